package config

import (
	"fmt"

	"github.com/inhies/go-bytesize"
	"gopkg.in/yaml.v3"
)

// ByteSize is a byte count written either as a plain integer or with a unit
// ("300KB", "1.5MB"). Units are binary.
type ByteSize int64

func (b *ByteSize) UnmarshalYAML(n *yaml.Node) error {
	var i int64
	if err := n.Decode(&i); err == nil {
		*b = ByteSize(i)
		return nil
	}

	var s string
	if err := n.Decode(&s); err != nil {
		return err
	}
	v, err := bytesize.Parse(s)
	if err != nil {
		return fmt.Errorf("size %q: %w", s, err)
	}
	*b = ByteSize(v)
	return nil
}

func (b ByteSize) String() string {
	return bytesize.New(float64(b)).String()
}
