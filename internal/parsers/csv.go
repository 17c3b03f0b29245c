package parsers

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// CSVParser parses CSV inventories with a header row naming the device fields
type CSVParser struct{}

// CanParse returns true for .csv files
func (p *CSVParser) CanParse(filename string) bool {
	return hasExt(filename, ".csv")
}

// Parse extracts device records from CSV content. Unknown columns are ignored.
func (p *CSVParser) Parse(filepath string, content []byte) ([]Record, error) {
	r := csv.NewReader(bytes.NewReader(content))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", filepath, err)
	}

	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.ToLower(strings.TrimSpace(name))] = i
	}
	if _, ok := columns["hostname"]; !ok {
		return nil, fmt.Errorf("failed to parse %s: missing hostname column", filepath)
	}

	var records []Record
	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", filepath, err)
		}

		field := func(name string) string {
			if i, ok := columns[strings.ToLower(name)]; ok && i < len(row) {
				return strings.TrimSpace(row[i])
			}
			return ""
		}
		records = append(records, Record{
			Hostname:        field("hostname"),
			ManagementIP:    field("managementIpAddress"),
			PlatformID:      field("platformId"),
			SoftwareType:    field("softwareType"),
			SoftwareVersion: field("softwareVersion"),
			SerialNumber:    field("serialNumber"),
			Config:          field("config"),
			ConfigFile:      field("configFile"),
		})
	}
	return stamp(records, filepath), nil
}
