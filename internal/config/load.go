package config

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

// matches $(VAR_NAME)
var envPattern = regexp.MustCompile(`\$\(([A-Za-z0-9_]+)\)`)

// replaces $(VAR) with os.Getenv(VAR)
func expandEnvVars(s string) string {
	return envPattern.ReplaceAllStringFunc(s, func(m string) string {
		key := mapEnvKey(envPattern.FindStringSubmatch(m)[1])
		return os.Getenv(key)
	})
}

// Load reads the YAML file at path. A missing file is reported with an
// error wrapping fs.ErrNotExist.
func Load(path string) (*Config, error) {
	// read raw YAML file
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	return Parse(data)
}

// Parse decodes a YAML document on top of Default.
func Parse(data []byte) (*Config, error) {
	// expand $(ENV_VAR) placeholders
	expanded := expandEnvVars(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling yaml: %w", err)
	}

	cfg.applyDefaults()
	return cfg, nil
}

// Overrides carries command-line values. Nil fields were not set.
type Overrides struct {
	KeepDays      *int
	MaxFiles      *int
	Timeout       *int
	MirrorMissing *bool
	// Albums replaces the configured albums when non-empty.
	Albums string
	Debug  bool
}

// Apply layers o over the loaded config.
func (c *Config) Apply(o Overrides) error {
	if o.KeepDays != nil {
		c.Sync.KeepDays = *o.KeepDays
	}
	if o.MaxFiles != nil {
		c.Sync.MaxFiles = *o.MaxFiles
	}
	if o.Timeout != nil {
		c.Sync.Timeout = *o.Timeout
	}
	if o.MirrorMissing != nil {
		c.Sync.MirrorMissing = *o.MirrorMissing
	}
	if o.Debug {
		c.Logging.Level = "debug"
	}

	if o.Albums != "" {
		albums, err := ParseAlbums(o.Albums)
		if err != nil {
			return err
		}
		c.Albums = albums
	}

	c.applyDefaults()
	return nil
}
