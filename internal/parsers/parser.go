package parsers

import (
	"path/filepath"
	"strings"

	"github.com/ethanolivertroy/psirt-check/internal/models"
)

// Parser is the interface for inventory file parsers
type Parser interface {
	// CanParse returns true if this parser can handle the given filename
	CanParse(filename string) bool

	// Parse extracts device records from the file content
	Parse(filepath string, content []byte) ([]Record, error)
}

// Record is one device entry as written in an inventory file. Field names
// follow the network controller's device vocabulary.
type Record struct {
	Hostname        string `json:"hostname" yaml:"hostname" toml:"hostname"`
	ManagementIP    string `json:"managementIpAddress" yaml:"managementIpAddress" toml:"managementIpAddress"`
	PlatformID      string `json:"platformId" yaml:"platformId" toml:"platformId"`
	SoftwareType    string `json:"softwareType" yaml:"softwareType" toml:"softwareType"`
	SoftwareVersion string `json:"softwareVersion" yaml:"softwareVersion" toml:"softwareVersion"`
	SerialNumber    string `json:"serialNumber" yaml:"serialNumber" toml:"serialNumber"`
	Config          string `json:"config" yaml:"config" toml:"config"`
	ConfigFile      string `json:"configFile" yaml:"configFile" toml:"configFile"` // Path to running config, relative to the inventory file
	SourceFile      string `json:"-" yaml:"-" toml:"-"`
}

// Device converts the record to a Device. ConfigFile is not resolved here.
func (r Record) Device() models.Device {
	return models.Device{
		Hostname:        strings.TrimSpace(r.Hostname),
		ManagementIP:    strings.TrimSpace(r.ManagementIP),
		PlatformID:      strings.TrimSpace(r.PlatformID),
		SoftwareType:    strings.TrimSpace(r.SoftwareType),
		SoftwareVersion: strings.TrimSpace(r.SoftwareVersion),
		SerialNumber:    strings.TrimSpace(r.SerialNumber),
		Config:          strings.ToLower(r.Config),
	}
}

// GetAllParsers returns all available parsers
func GetAllParsers() []Parser {
	return []Parser{
		&JSONParser{},
		&YAMLParser{},
		&TOMLParser{},
		&CSVParser{},
	}
}

// ForFile returns the first parser that accepts the filename, or nil
func ForFile(filename string) Parser {
	for _, p := range GetAllParsers() {
		if p.CanParse(filename) {
			return p
		}
	}
	return nil
}

func hasExt(filename string, exts ...string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, e := range exts {
		if ext == e {
			return true
		}
	}
	return false
}

func stamp(records []Record, path string) []Record {
	for i := range records {
		records[i].SourceFile = path
	}
	return records
}
