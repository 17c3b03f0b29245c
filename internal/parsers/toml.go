package parsers

import (
	"fmt"

	"github.com/BurntSushi/toml"
)

// TOMLParser parses TOML inventories written as [[devices]] tables
type TOMLParser struct{}

// CanParse returns true for .toml files
func (p *TOMLParser) CanParse(filename string) bool {
	return hasExt(filename, ".toml")
}

// Parse extracts device records from TOML content
func (p *TOMLParser) Parse(filepath string, content []byte) ([]Record, error) {
	var file struct {
		Devices []Record `toml:"devices"`
	}
	if _, err := toml.Decode(string(content), &file); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", filepath, err)
	}
	return stamp(file.Devices, filepath), nil
}
