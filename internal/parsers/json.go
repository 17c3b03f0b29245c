package parsers

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// JSONParser parses JSON inventories: either a bare array of devices or a
// controller response envelope {"response": [...]}
type JSONParser struct{}

// CanParse returns true for .json files
func (p *JSONParser) CanParse(filename string) bool {
	return hasExt(filename, ".json")
}

// Parse extracts device records from JSON content
func (p *JSONParser) Parse(filepath string, content []byte) ([]Record, error) {
	trimmed := bytes.TrimSpace(content)
	if len(trimmed) == 0 {
		return nil, nil
	}

	var records []Record
	if trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &records); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", filepath, err)
		}
		return stamp(records, filepath), nil
	}

	var envelope struct {
		Response []Record `json:"response"`
		Devices  []Record `json:"devices"`
	}
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", filepath, err)
	}
	records = envelope.Response
	if len(records) == 0 {
		records = envelope.Devices
	}
	return stamp(records, filepath), nil
}
