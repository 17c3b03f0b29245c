package models

import "time"

// CorrelationResult holds the advisories judged applicable to one device
type CorrelationResult struct {
	Device     Device
	OSType     OSType
	Advisories []Advisory // Subset of the raw advisories for (OSType, version)
}

// HasAdvisories returns true if any advisory applies to the device
func (r CorrelationResult) HasAdvisories() bool {
	return len(r.Advisories) > 0
}

// RiskRankedEntry pairs a correlation result with its risk score
type RiskRankedEntry struct {
	Result CorrelationResult
	Score  float64
	Rank   int // 1-based position in the ranking
}

// Diagnostic records a non-fatal advisory fetch failure for one (OS type, version) pair
type Diagnostic struct {
	OSType  OSType
	Version string
	Devices int // Devices sharing the failed pair
	Message string
}

// SeverityCounts holds advisory counts per severity
type SeverityCounts struct {
	Critical int `json:"critical"`
	High     int `json:"high"`
	Medium   int `json:"medium"`
	Low      int `json:"low"`
	None     int `json:"none"`
}

// Add counts one advisory of the given severity
func (c *SeverityCounts) Add(s Severity) {
	switch s {
	case SeverityCritical:
		c.Critical++
	case SeverityHigh:
		c.High++
	case SeverityMedium:
		c.Medium++
	case SeverityLow:
		c.Low++
	default:
		c.None++
	}
}

// Get returns the count for the given severity
func (c SeverityCounts) Get(s Severity) int {
	switch s {
	case SeverityCritical:
		return c.Critical
	case SeverityHigh:
		return c.High
	case SeverityMedium:
		return c.Medium
	case SeverityLow:
		return c.Low
	default:
		return c.None
	}
}

// Total returns the number of advisories counted
func (c SeverityCounts) Total() int {
	return c.Critical + c.High + c.Medium + c.Low + c.None
}

// DeviceDigest is the condensed per-device view used for summaries
type DeviceDigest struct {
	Hostname string         `json:"hostname"`
	Version  string         `json:"version"`
	OSType   OSType         `json:"os_type"`
	Score    float64        `json:"score"`
	Total    int            `json:"total_vulnerabilities"`
	Counts   SeverityCounts `json:"counts"`
}

// Report is the complete output of one correlation run
type Report struct {
	RunID          string
	GeneratedAt    time.Time
	Results        []CorrelationResult
	Ranked         []RiskRankedEntry
	Digests        []DeviceDigest
	Summary        string // Markdown executive summary
	SeverityCounts SeverityCounts
	Diagnostics    []Diagnostic
}

// AdvisoryCount returns the number of applicable advisories across all devices
func (r *Report) AdvisoryCount() int {
	n := 0
	for _, res := range r.Results {
		n += len(res.Advisories)
	}
	return n
}

// AffectedDevices returns the number of devices with at least one applicable advisory
func (r *Report) AffectedDevices() int {
	n := 0
	for _, res := range r.Results {
		if res.HasAdvisories() {
			n++
		}
	}
	return n
}
