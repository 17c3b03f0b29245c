package parsers

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"
)

// YAMLParser parses YAML inventories: a list of devices or a mapping with a
// devices key
type YAMLParser struct{}

// CanParse returns true for .yaml and .yml files
func (p *YAMLParser) CanParse(filename string) bool {
	return hasExt(filename, ".yaml", ".yml")
}

// Parse extracts device records from YAML content
func (p *YAMLParser) Parse(filepath string, content []byte) ([]Record, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(content, &root); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", filepath, err)
	}
	if len(root.Content) == 0 {
		return nil, nil
	}

	var records []Record
	doc := root.Content[0]
	switch doc.Kind {
	case yaml.SequenceNode:
		if err := doc.Decode(&records); err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", filepath, err)
		}
	case yaml.MappingNode:
		var file struct {
			Devices []Record `yaml:"devices"`
		}
		if err := doc.Decode(&file); err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", filepath, err)
		}
		records = file.Devices
	default:
		if len(bytes.TrimSpace(content)) > 0 {
			return nil, fmt.Errorf("failed to decode %s: expected a list of devices", filepath)
		}
	}
	return stamp(records, filepath), nil
}
