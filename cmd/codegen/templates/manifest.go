package templates

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

var ErrDuplicateClass = errors.New("class defined twice")

// Manifest lists the classes, their state keys and the action types a
// package wants typed bindings for.
type Manifest struct {
	Package string          `yaml:"package"`
	Classes []ClassManifest `yaml:"classes"`
	Actions []string        `yaml:"actions"`
}

type ClassManifest struct {
	Name string   `yaml:"name"`
	Keys []string `yaml:"keys"`
}

func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseManifest(data)
}

func ParseManifest(data []byte) (*Manifest, error) {
	m := &Manifest{Package: "bindings"}
	if err := yaml.Unmarshal(data, m); err != nil {
		return nil, err
	}
	seen := map[string]bool{}
	for _, c := range m.Classes {
		if seen[c.Name] {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateClass, c.Name)
		}
		seen[c.Name] = true
	}
	return m, nil
}
