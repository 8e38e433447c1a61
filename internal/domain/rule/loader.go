package rule

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// file is the on-disk layout of a rules file
type file struct {
	Rules []StaticRule `yaml:"rules"`
}

// Load decodes a YAML rule table and builds a validated Set
func Load(r io.Reader) (*Set, error) {
	var f file
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("rules file is empty")
		}
		return nil, fmt.Errorf("failed to decode rules: %w", err)
	}
	set, err := NewSet(f.Rules)
	if err != nil {
		return nil, fmt.Errorf("invalid rules: %w", err)
	}
	return set, nil
}

// LoadFile reads a rule table from path
func LoadFile(path string) (*Set, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open rules file: %w", err)
	}
	defer fh.Close()
	return Load(fh)
}
