package config

import (
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// a mapping key: identifier, optional spaces, colon, then space or end.
// "https://" is not a key because no space follows its colon.
var keyPattern = regexp.MustCompile(`([A-Za-z_][\w-]*)\s*:(?:\s|$)`)

// ParseAlbums decodes an inline album list. Input without newlines such as
// `shared_url: https://... album_subfolder: Family` is first rewritten into a
// one-item block list. A single mapping is accepted as a one-album list.
func ParseAlbums(raw string) ([]AlbumConfig, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil, nil
	}
	if !strings.Contains(s, "\n") {
		s = normalizeSingleLine(s)
	}

	var albums []AlbumConfig
	if err := yaml.Unmarshal([]byte(s), &albums); err != nil {
		var one AlbumConfig
		if err1 := yaml.Unmarshal([]byte(s), &one); err1 != nil {
			return nil, fmt.Errorf("parsing albums: %w", err)
		}
		albums = []AlbumConfig{one}
	}

	for i := range albums {
		albums[i].applyDefaults()
	}
	return albums, nil
}

// normalizeSingleLine splits "- a: 1 b: 2" into "- a: 1\n  b: 2".
func normalizeSingleLine(s string) string {
	if !strings.HasPrefix(s, "- ") {
		s = "- " + s
	}
	body := s[2:]

	type span struct {
		key        string
		start, end int
	}
	var spans []span
	for _, m := range keyPattern.FindAllStringSubmatchIndex(body, -1) {
		if m[2] > 0 && isKeyByte(body[m[2]-1]) {
			continue
		}
		colon := strings.IndexByte(body[m[2]:m[1]], ':') + m[2]
		spans = append(spans, span{key: body[m[2]:m[3]], start: m[2], end: colon + 1})
	}
	if len(spans) == 0 {
		return s
	}

	lines := make([]string, 0, len(spans))
	for i, sp := range spans {
		next := len(body)
		if i+1 < len(spans) {
			next = spans[i+1].start
		}
		val := strings.TrimSpace(body[sp.end:next])

		prefix := "  "
		if i == 0 {
			prefix = "- "
		}
		if val == "" {
			lines = append(lines, prefix+sp.key+":")
		} else {
			lines = append(lines, prefix+sp.key+": "+val)
		}
	}
	return strings.Join(lines, "\n")
}

func isKeyByte(b byte) bool {
	return b == '_' || b == '-' ||
		(b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}
