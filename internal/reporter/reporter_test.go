package reporter

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethanolivertroy/psirt-check/internal/models"
	"github.com/ethanolivertroy/psirt-check/internal/risk"
	"github.com/ethanolivertroy/psirt-check/internal/summary"
)

func sampleReport() *models.Report {
	results := []models.CorrelationResult{
		{
			Device: models.Device{Hostname: "core1", PlatformID: "C9500-24Y4C", SoftwareVersion: "17.3.6", ManagementIP: "10.0.0.1"},
			OSType: models.OSTypeIOSXE,
			Advisories: []models.Advisory{
				{ID: "cisco-sa-webui", Title: "Web UI Privilege Escalation", URL: "https://sec.example/webui",
					SIR: "Critical", Feature: "webui", CVEs: []string{"CVE-2023-20198"}, CVSSBaseScore: "10.0",
					FirstPublished: time.Date(2023, 10, 16, 0, 0, 0, 0, time.UTC)},
				{ID: "cisco-sa-ntp", SIR: "low"},
			},
		},
		{
			Device:     models.Device{Hostname: "acc1", SoftwareVersion: "17.9.3"},
			OSType:     models.OSTypeIOSXE,
			Advisories: []models.Advisory{},
		},
		{
			Device: models.Device{Hostname: "fw1", PlatformID: "ASA5516", SoftwareVersion: "9.16.4"},
			OSType: models.OSTypeASA,
			Advisories: []models.Advisory{
				{ID: "cisco-sa-webui", Title: "Web UI Privilege Escalation", SIR: "Critical"},
				{Title: "Unrated Advisory"},
			},
		},
	}
	ranked := risk.Rank(results, 10)
	digests := summary.Build(ranked, 10)
	return &models.Report{
		RunID:          "1c4e3a58-8f0c-4a43-9f6c-0b7f3c1e2d11",
		GeneratedAt:    time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Results:        results,
		Ranked:         ranked,
		Digests:        digests,
		Summary:        summary.Markdown(digests),
		SeverityCounts: risk.CountBySeverity(results),
		Diagnostics: []models.Diagnostic{
			{OSType: models.OSTypeNXOS, Version: "9.3(8)", Devices: 2, Message: "unexpected status code 503"},
		},
	}
}

func TestGet(t *testing.T) {
	assert.IsType(t, &JSONReporter{}, Get("json", false))
	assert.IsType(t, &SARIFReporter{}, Get("sarif", false))
	assert.IsType(t, &PDFReporter{}, Get("pdf", false))
	assert.IsType(t, &MarkdownReporter{}, Get("markdown", false))
	assert.IsType(t, &MarkdownReporter{}, Get("md", false))

	term, ok := Get("terminal", true).(*TerminalReporter)
	require.True(t, ok)
	assert.True(t, term.Color)
	assert.IsType(t, &TerminalReporter{}, Get("", false))
}

func TestColorEnabled(t *testing.T) {
	assert.False(t, ColorEnabled(nil))
	t.Setenv("NO_COLOR", "1")
	assert.False(t, ColorEnabled(nil))
}

func TestTerminalReporter(t *testing.T) {
	out, err := (&TerminalReporter{}).Report(sampleReport())
	require.NoError(t, err)
	text := string(out)

	assert.Contains(t, text, "Found 4 applicable advisories on 2 of 3 devices")
	assert.Contains(t, text, "Critical: 2  High: 0  Medium: 0  Low: 1")
	assert.Contains(t, text, "advisory lookup failed for nxos 9.3(8) (2 devices)")
	assert.Contains(t, text, "core1 [C9500-24Y4C] (17.3.6)")
	assert.Contains(t, text, "[N/A] Unrated Advisory")
	assert.Contains(t, text, "      #\n")
	assert.Contains(t, text, "## Executive Summary")
	assert.NotContains(t, text, "\033[")

	// acc1 has nothing applicable, so no detail block
	assert.NotContains(t, text, "📟 acc1")
}

func TestTerminalReporterColor(t *testing.T) {
	out, err := (&TerminalReporter{Color: true}).Report(sampleReport())
	require.NoError(t, err)
	assert.Contains(t, string(out), ansiRed+"[Critical]"+ansiReset)
}

func TestTerminalReporterEmpty(t *testing.T) {
	out, err := (&TerminalReporter{}).Report(&models.Report{})
	require.NoError(t, err)
	assert.Contains(t, string(out), "No devices in inventory.")
}

func TestJSONReporter(t *testing.T) {
	out, err := (&JSONReporter{}).Report(sampleReport())
	require.NoError(t, err)

	var decoded jsonOutput
	require.NoError(t, json.Unmarshal(out, &decoded))

	assert.Equal(t, 3, decoded.Summary.TotalDevices)
	assert.Equal(t, 2, decoded.Summary.AffectedDevices)
	assert.Equal(t, 4, decoded.Summary.TotalAdvisories)
	assert.Equal(t, "2026-03-01T12:00:00Z", decoded.Summary.GeneratedAt)
	assert.Equal(t, 2, decoded.Summary.SeverityCounts.Critical)

	require.Len(t, decoded.Ranking, 3)
	assert.Equal(t, "core1", decoded.Ranking[0].Hostname)
	assert.InDelta(t, 5.5, decoded.Ranking[0].Score, 1e-9)

	require.Len(t, decoded.Devices, 3)
	webui := decoded.Devices[0].Advisories[0]
	assert.Equal(t, "Critical", webui.Severity)
	assert.Equal(t, "2023-10-16", webui.FirstPublished)
	assert.Equal(t, "#", decoded.Devices[0].Advisories[1].URL)
	assert.NotNil(t, decoded.Devices[1].Advisories)

	require.Len(t, decoded.Diagnostics, 1)
	assert.Equal(t, "nxos", decoded.Diagnostics[0].OSType)
}

func TestSARIFReporter(t *testing.T) {
	out, err := (&SARIFReporter{}).Report(sampleReport())
	require.NoError(t, err)

	var decoded sarifReport
	require.NoError(t, json.Unmarshal(out, &decoded))
	require.Len(t, decoded.Runs, 1)
	run := decoded.Runs[0]

	// cisco-sa-webui appears on two devices but is one rule
	require.Len(t, run.Tool.Driver.Rules, 3)
	assert.Equal(t, "cisco-sa-webui", run.Tool.Driver.Rules[0].ID)
	assert.Equal(t, "10.0", run.Tool.Driver.Rules[0].Properties.SecuritySeverity)
	assert.Equal(t, "2.0", run.Tool.Driver.Rules[1].Properties.SecuritySeverity)
	assert.Equal(t, "Unrated Advisory|", run.Tool.Driver.Rules[2].ID)
	assert.Empty(t, run.Tool.Driver.Rules[2].Properties.SecuritySeverity)

	require.Len(t, run.Results, 4)
	assert.Equal(t, "device://core1", run.Results[0].Locations[0].PhysicalLocation.ArtifactLocation.URI)
	assert.Equal(t, "error", run.Results[0].Level)
	assert.Equal(t, "note", run.Results[1].Level)
	assert.Equal(t, "device://fw1", run.Results[2].Locations[0].PhysicalLocation.ArtifactLocation.URI)
	assert.Equal(t, 0, run.Results[2].RuleIndex)
	assert.Equal(t, 2, run.Results[3].RuleIndex)
}

func TestPDFReporter(t *testing.T) {
	out, err := (&PDFReporter{}).Report(sampleReport())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))

	empty, err := (&PDFReporter{}).Report(&models.Report{})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(empty, []byte("%PDF")))
}

func TestMarkdownReporter(t *testing.T) {
	out, err := (&MarkdownReporter{}).Report(sampleReport())
	require.NoError(t, err)
	md := string(out)

	assert.True(t, strings.HasPrefix(md, "# Network Advisory Risk Report"))
	assert.Contains(t, md, "| Critical | 2 |")
	assert.Contains(t, md, "| 1 | core1 | iosxe | 17.3.6 | 5.5 | medium |")
	assert.Contains(t, md, "advisory lookups failed for nxos 9.3(8) (2 devices)")
	assert.Contains(t, md, "- **Critical** [Web UI Privilege Escalation](https://sec.example/webui) (CVE-2023-20198)")
	assert.Contains(t, md, "- **N/A** [Unrated Advisory](#)")
}
