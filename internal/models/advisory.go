package models

import (
	"strconv"
	"strings"
	"time"
)

// Severity is the security impact rating (SIR) of an advisory
type Severity int

const (
	SeverityNone Severity = iota // absent or unrecognized rating
	SeverityLow
	SeverityMedium
	SeverityHigh
	SeverityCritical
)

// Severities lists the recognized ratings from most to least severe
var Severities = []Severity{SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow}

// ParseSeverity maps a rating tag to a Severity, case-insensitively.
// Unrecognized values map to SeverityNone.
func ParseSeverity(s string) Severity {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "critical":
		return SeverityCritical
	case "high":
		return SeverityHigh
	case "medium":
		return SeverityMedium
	case "low":
		return SeverityLow
	default:
		return SeverityNone
	}
}

// String returns the display name of the severity
func (s Severity) String() string {
	switch s {
	case SeverityCritical:
		return "Critical"
	case SeverityHigh:
		return "High"
	case SeverityMedium:
		return "Medium"
	case SeverityLow:
		return "Low"
	default:
		return "N/A"
	}
}

// Advisory represents a vendor security advisory as returned by an advisory source.
// Advisories are treated as immutable once fetched.
type Advisory struct {
	ID             string
	Title          string
	URL            string
	SIR            string // Raw severity tag as published
	Feature        string // Optional feature/subsystem the advisory concerns
	Summary        string
	CVEs           []string
	BugIDs         []string
	CVSSBaseScore  string
	FirstPublished time.Time
	LastUpdated    time.Time
}

// Severity returns the parsed security impact rating
func (a Advisory) Severity() Severity {
	return ParseSeverity(a.SIR)
}

// DisplayTitle returns the title, or a placeholder when missing
func (a Advisory) DisplayTitle() string {
	if strings.TrimSpace(a.Title) == "" {
		return "Untitled"
	}
	return a.Title
}

// DisplayURL returns the publication URL, or a placeholder when missing
func (a Advisory) DisplayURL() string {
	if strings.TrimSpace(a.URL) == "" {
		return "#"
	}
	return a.URL
}

// Key returns an identifier for the advisory suitable for de-duplication
func (a Advisory) Key() string {
	if a.ID != "" {
		return a.ID
	}
	return a.DisplayTitle() + "|" + a.URL
}

// CVSS returns the numeric CVSS base score, or 0 when absent or unparsable
func (a Advisory) CVSS() float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(a.CVSSBaseScore), 64)
	if err != nil {
		return 0
	}
	return f
}
