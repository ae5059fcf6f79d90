package batch

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/sdejongh/filesage/pkg/models"
)

// Pair is one comparison listed in a manifest
type Pair struct {
	Local  string `yaml:"local"`
	Remote string `yaml:"remote"`
	// Policies overrides the configured policy list for this pair
	Policies []models.Policy `yaml:"policies,omitempty"`
}

// Manifest is a list of pairs to verify
type Manifest struct {
	Pairs []Pair `yaml:"pairs"`
}

// LoadManifest loads a manifest from a YAML file
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	return ParseManifest(data)
}

// ParseManifest parses and validates a YAML manifest
func ParseManifest(data []byte) (*Manifest, error) {
	m := &Manifest{}
	if err := yaml.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("invalid manifest: %w", err)
	}
	return m, nil
}

// Validate checks that every pair names both resources
func (m *Manifest) Validate() error {
	if len(m.Pairs) == 0 {
		return &models.ValidationError{Field: "pairs", Message: "manifest lists no pairs"}
	}
	for i, p := range m.Pairs {
		if strings.TrimSpace(p.Local) == "" {
			return &models.ValidationError{Field: fmt.Sprintf("pairs[%d].local", i), Message: "must not be empty"}
		}
		if strings.TrimSpace(p.Remote) == "" {
			return &models.ValidationError{Field: fmt.Sprintf("pairs[%d].remote", i), Message: "must not be empty"}
		}
	}
	return nil
}
