package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseSeverity(t *testing.T) {
	tests := []struct {
		in   string
		want Severity
	}{
		{"Critical", SeverityCritical},
		{"HIGH", SeverityHigh},
		{" medium ", SeverityMedium},
		{"low", SeverityLow},
		{"", SeverityNone},
		{"informational", SeverityNone},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseSeverity(tt.in))
		})
	}
}

func TestSeverityString(t *testing.T) {
	assert.Equal(t, "Critical", SeverityCritical.String())
	assert.Equal(t, "Low", SeverityLow.String())
	assert.Equal(t, "N/A", SeverityNone.String())
	assert.Equal(t, "N/A", Severity(42).String())
}

func TestAdvisoryDisplay(t *testing.T) {
	var empty Advisory
	assert.Equal(t, "Untitled", empty.DisplayTitle())
	assert.Equal(t, "#", empty.DisplayURL())
	assert.Equal(t, SeverityNone, empty.Severity())

	a := Advisory{Title: "Web UI Privilege Escalation", URL: "https://sec.example/a", SIR: "critical"}
	assert.Equal(t, "Web UI Privilege Escalation", a.DisplayTitle())
	assert.Equal(t, "https://sec.example/a", a.DisplayURL())
	assert.Equal(t, SeverityCritical, a.Severity())

	blank := Advisory{Title: "   "}
	assert.Equal(t, "Untitled", blank.DisplayTitle())
}

func TestAdvisoryKey(t *testing.T) {
	assert.Equal(t, "cisco-sa-x", Advisory{ID: "cisco-sa-x", Title: "T"}.Key())
	assert.Equal(t, "T|https://u", Advisory{Title: "T", URL: "https://u"}.Key())
	assert.Equal(t, "Untitled|", Advisory{}.Key())
}

func TestAdvisoryCVSS(t *testing.T) {
	assert.Equal(t, 7.5, Advisory{CVSSBaseScore: "7.5"}.CVSS())
	assert.Equal(t, 10.0, Advisory{CVSSBaseScore: " 10.0 "}.CVSS())
	assert.Equal(t, 0.0, Advisory{CVSSBaseScore: "n/a"}.CVSS())
	assert.Equal(t, 0.0, Advisory{}.CVSS())
}

func TestSeverityCounts(t *testing.T) {
	var c SeverityCounts
	for _, s := range []Severity{SeverityCritical, SeverityCritical, SeverityHigh, SeverityLow, SeverityNone} {
		c.Add(s)
	}
	assert.Equal(t, 2, c.Get(SeverityCritical))
	assert.Equal(t, 1, c.Get(SeverityHigh))
	assert.Equal(t, 0, c.Get(SeverityMedium))
	assert.Equal(t, 1, c.Get(SeverityNone))
	assert.Equal(t, 5, c.Total())
}

func TestReportCounts(t *testing.T) {
	r := &Report{Results: []CorrelationResult{
		{Device: Device{Hostname: "a"}, Advisories: []Advisory{{ID: "1"}, {ID: "2"}}},
		{Device: Device{Hostname: "b"}},
		{Device: Device{Hostname: "c"}, Advisories: []Advisory{{ID: "1"}}},
	}}
	assert.Equal(t, 3, r.AdvisoryCount())
	assert.Equal(t, 2, r.AffectedDevices())
	assert.False(t, r.Results[1].HasAdvisories())
}

func TestDevice(t *testing.T) {
	d := Device{Hostname: "core1", SoftwareVersion: "17.3.6"}
	assert.Equal(t, "core1 (17.3.6)", d.String())
	assert.False(t, d.HasConfig())

	d.PlatformID = "C9300-48P"
	d.Config = "router bgp 65000"
	assert.Equal(t, "core1 [C9300-48P] (17.3.6)", d.String())
	assert.True(t, d.HasConfig())
}

func TestDefaultConfig(t *testing.T) {
	c := DefaultConfig()
	assert.Equal(t, "file", c.Source)
	assert.Equal(t, 10, c.TopN)
	assert.Equal(t, 8, c.MaxConcurrent)
	assert.Equal(t, uint16(161), c.SNMP.Port)
	assert.NotSame(t, c, DefaultConfig())
}
