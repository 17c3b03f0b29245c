package reporter

import (
	"fmt"
	"strings"

	"github.com/ethanolivertroy/psirt-check/internal/models"
	"github.com/ethanolivertroy/psirt-check/internal/risk"
)

// TerminalReporter outputs a human-readable report
type TerminalReporter struct {
	Color bool
}

const (
	ansiReset  = "\033[0m"
	ansiBold   = "\033[1m"
	ansiRed    = "\033[31m"
	ansiYellow = "\033[33m"
	ansiOrange = "\033[38;5;208m"
	ansiCyan   = "\033[36m"
	ansiGray   = "\033[90m"
)

func severityColor(s models.Severity) string {
	switch s {
	case models.SeverityCritical:
		return ansiRed
	case models.SeverityHigh:
		return ansiYellow
	case models.SeverityMedium:
		return ansiOrange
	case models.SeverityLow:
		return ansiCyan
	default:
		return ansiGray
	}
}

func (r *TerminalReporter) paint(color, text string) string {
	if !r.Color {
		return text
	}
	return color + text + ansiReset
}

// Report generates terminal output for the run
func (r *TerminalReporter) Report(report *models.Report) ([]byte, error) {
	var sb strings.Builder

	sb.WriteString("\n" + r.paint(ansiBold, "PSIRT ADVISORY CORRELATION") + "\n")
	sb.WriteString(strings.Repeat("=", 60) + "\n\n")

	if len(report.Results) == 0 && len(report.Ranked) == 0 {
		sb.WriteString("No devices in inventory.\n")
		return []byte(sb.String()), nil
	}

	sb.WriteString(fmt.Sprintf("Found %d applicable advisories on %d of %d devices\n",
		report.AdvisoryCount(), report.AffectedDevices(), len(report.Results)))
	counts := report.SeverityCounts
	for i, s := range models.Severities {
		if i > 0 {
			sb.WriteString("  ")
		}
		sb.WriteString(r.paint(severityColor(s), fmt.Sprintf("%s: %d", s, counts.Get(s))))
	}
	sb.WriteString("\n")

	if len(report.Diagnostics) > 0 {
		sb.WriteString("\n")
		for _, d := range report.Diagnostics {
			sb.WriteString(fmt.Sprintf("⚠️  advisory lookup failed for %s %s (%d devices): %s\n",
				d.OSType, d.Version, d.Devices, d.Message))
		}
	}

	if len(report.Ranked) > 0 {
		sb.WriteString("\n" + r.paint(ansiBold, "TOP RISK DEVICES") + "\n")
		sb.WriteString(strings.Repeat("-", 60) + "\n")
		for _, e := range report.Ranked {
			level := risk.Level(e.Score)
			sb.WriteString(fmt.Sprintf("%3d. %-40s %-6s score %5.1f (%s)\n",
				e.Rank, e.Result.Device.String(), e.Result.OSType, e.Score, level))
		}
	}

	sb.WriteString("\n")
	for _, res := range report.Results {
		if !res.HasAdvisories() {
			continue
		}
		sb.WriteString(fmt.Sprintf("📟 %s - %s\n", res.Device.String(), res.OSType))
		if res.Device.ManagementIP != "" {
			sb.WriteString(fmt.Sprintf("   Management IP: %s\n", res.Device.ManagementIP))
		}

		for _, adv := range res.Advisories {
			sev := adv.Severity()
			sb.WriteString(fmt.Sprintf("\n   %s %s\n",
				r.paint(severityColor(sev), "["+sev.String()+"]"), adv.DisplayTitle()))
			if adv.ID != "" {
				sb.WriteString(fmt.Sprintf("      %s\n", adv.ID))
			}
			if len(adv.CVEs) > 0 {
				sb.WriteString(fmt.Sprintf("      CVEs: %s\n", strings.Join(adv.CVEs, ", ")))
			}
			if adv.CVSSBaseScore != "" {
				sb.WriteString(fmt.Sprintf("      CVSS: %s\n", adv.CVSSBaseScore))
			}
			if adv.Feature != "" {
				sb.WriteString(fmt.Sprintf("      Feature: %s\n", adv.Feature))
			}
			sb.WriteString(fmt.Sprintf("      %s\n", adv.DisplayURL()))
		}
		sb.WriteString("\n" + strings.Repeat("-", 60) + "\n")
	}

	if report.Summary != "" {
		sb.WriteString("\n" + report.Summary)
		if !strings.HasSuffix(report.Summary, "\n") {
			sb.WriteString("\n")
		}
	}

	return []byte(sb.String()), nil
}
