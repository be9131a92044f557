package schemaconf

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	json "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/patarapolw/tinydb-constraint/internal/schema"
)

// Load reads a schema configuration file, choosing the format by extension.
func Load(path string) (schema.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema config: %w", err)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		return ParseYAML(data)
	case ".json":
		return ParseJSON(data)
	case ".cue":
		return ParseCUE(path, data)
	default:
		return nil, fmt.Errorf("schema config %s: unsupported extension %q (want .yaml, .yml, .json or .cue)", path, ext)
	}
}

// ParseYAML decodes a YAML schema configuration.
func ParseYAML(data []byte) (schema.Config, error) {
	cfg := schema.Config{}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse yaml schema config: %w", err)
	}
	return cfg, nil
}

// ParseJSON decodes a JSON schema configuration.
func ParseJSON(data []byte) (schema.Config, error) {
	cfg := schema.Config{}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse json schema config: %w", err)
	}
	return cfg, nil
}
