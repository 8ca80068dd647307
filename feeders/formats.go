package feeders

import (
	"encoding/json"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// JSONFeeder is a feeder that reads JSON files
type JSONFeeder struct {
	fileFeeder
}

// NewJSONFeeder creates a new JSONFeeder that reads from the specified JSON file
func NewJSONFeeder(filePath string) *JSONFeeder {
	return &JSONFeeder{fileFeeder{
		Path:   filePath,
		format: "JSON",
		decode: func(data []byte, doc *map[string]any) error { return json.Unmarshal(data, doc) },
	}}
}

// YamlFeeder is a feeder that reads YAML files
type YamlFeeder struct {
	fileFeeder
}

// NewYamlFeeder creates a new YamlFeeder that reads from the specified YAML file
func NewYamlFeeder(filePath string) *YamlFeeder {
	return &YamlFeeder{fileFeeder{
		Path:   filePath,
		format: "YAML",
		decode: func(data []byte, doc *map[string]any) error { return yaml.Unmarshal(data, doc) },
	}}
}

// TomlFeeder is a feeder that reads TOML files
type TomlFeeder struct {
	fileFeeder
}

// NewTomlFeeder creates a new TomlFeeder that reads from the specified TOML file
func NewTomlFeeder(filePath string) *TomlFeeder {
	return &TomlFeeder{fileFeeder{
		Path:   filePath,
		format: "TOML",
		decode: func(data []byte, doc *map[string]any) error {
			_, err := toml.Decode(string(data), doc)
			return err
		},
	}}
}
