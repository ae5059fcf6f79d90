package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/sdejongh/filesage/pkg/models"
)

const fileHeader = `# filesage configuration
# Policies run in the listed order. Each entry is a policy name, or
# "etag=<token>" to pin the expected entity tag.
`

// LoadFromFile loads configuration from a YAML file. Keys absent from the
// file keep their defaults; a policies list replaces the default order.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg, err := decodeConfig(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration in %s: %w", path, err)
	}

	return cfg, nil
}

// decodeConfig overlays data on Default. The policies list is decoded entry
// by entry so a bad entry is reported by its index and line.
func decodeConfig(data []byte) (*Config, error) {
	cfg := Default()

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if len(doc.Content) == 0 {
		return cfg, nil
	}

	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("line %d: top level must be a mapping", root.Line)
	}

	policies := takeKey(root, "policies")
	if err := root.Decode(cfg); err != nil {
		return nil, err
	}
	if policies != nil {
		list, err := decodePolicies(policies)
		if err != nil {
			return nil, err
		}
		cfg.Policies = list
	}
	return cfg, nil
}

// takeKey removes key from a mapping node and returns its value
func takeKey(mapping *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		if mapping.Content[i].Value == key {
			value := mapping.Content[i+1]
			mapping.Content = append(mapping.Content[:i], mapping.Content[i+2:]...)
			return value
		}
	}
	return nil
}

func decodePolicies(node *yaml.Node) ([]models.Policy, error) {
	if node.Kind == yaml.ScalarNode && node.Tag == "!!null" {
		return []models.Policy{}, nil
	}
	if node.Kind != yaml.SequenceNode {
		return nil, &models.ValidationError{
			Field:   "policies",
			Message: fmt.Sprintf("line %d: must be a list", node.Line),
		}
	}

	list := make([]models.Policy, 0, len(node.Content))
	for i, item := range node.Content {
		var p models.Policy
		if err := item.Decode(&p); err != nil {
			msg := err.Error()
			var ve *models.ValidationError
			if errors.As(err, &ve) {
				msg = ve.Message
			}
			return nil, &models.ValidationError{
				Field:   fmt.Sprintf("policies[%d]", i),
				Message: fmt.Sprintf("line %d: %s", item.Line, msg),
			}
		}
		list = append(list, p)
	}
	return list, nil
}

// SaveToFile saves configuration to a YAML file
func SaveToFile(cfg *Config, path string) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".config-*.yaml")
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer os.Remove(tmp.Name())

	_, err = tmp.WriteString(fileHeader)
	if err == nil {
		_, err = tmp.Write(data)
	}
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace config file: %w", err)
	}

	return nil
}

// DefaultConfigPath returns the default configuration file path
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	return filepath.Join(home, ".config", "filesage", "config.yaml"), nil
}

// LoadDefault attempts to load configuration from the default location
// If the file doesn't exist, returns the default configuration
func LoadDefault() (*Config, error) {
	path, err := DefaultConfigPath()
	if err != nil {
		return nil, err
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return Default(), nil
	}

	return LoadFromFile(path)
}
