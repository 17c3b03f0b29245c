package reporter

import (
	"fmt"
	"strings"

	"github.com/ethanolivertroy/psirt-check/internal/models"
	"github.com/ethanolivertroy/psirt-check/internal/risk"
)

// MarkdownReporter renders the run as a markdown document
type MarkdownReporter struct{}

// Report generates markdown for the run
func (r *MarkdownReporter) Report(report *models.Report) ([]byte, error) {
	var sb strings.Builder

	sb.WriteString("# Network Advisory Risk Report\n\n")
	if !report.GeneratedAt.IsZero() {
		fmt.Fprintf(&sb, "_Generated %s", report.GeneratedAt.Format("2006-01-02 15:04 MST"))
		if report.RunID != "" {
			fmt.Fprintf(&sb, ", run `%s`", report.RunID)
		}
		sb.WriteString("_\n\n")
	}

	fmt.Fprintf(&sb, "%d applicable advisories on %d of %d devices.\n\n",
		report.AdvisoryCount(), report.AffectedDevices(), len(report.Results))

	sb.WriteString("| Severity | Advisories |\n|---|---|\n")
	for _, s := range models.Severities {
		fmt.Fprintf(&sb, "| %s | %d |\n", s, report.SeverityCounts.Get(s))
	}
	sb.WriteString("\n")

	if len(report.Diagnostics) > 0 {
		sb.WriteString("> **Incomplete data:** advisory lookups failed for ")
		parts := make([]string, 0, len(report.Diagnostics))
		for _, d := range report.Diagnostics {
			parts = append(parts, fmt.Sprintf("%s %s (%d devices)", d.OSType, d.Version, d.Devices))
		}
		sb.WriteString(strings.Join(parts, ", ") + ".\n\n")
	}

	if len(report.Ranked) > 0 {
		sb.WriteString("## Top Risk Devices\n\n")
		sb.WriteString("| Rank | Device | OS | Version | Score | Level |\n|---|---|---|---|---|---|\n")
		for _, e := range report.Ranked {
			fmt.Fprintf(&sb, "| %d | %s | %s | %s | %.1f | %s |\n",
				e.Rank, escapeCell(e.Result.Device.Hostname), e.Result.OSType,
				escapeCell(e.Result.Device.SoftwareVersion), e.Score, risk.Level(e.Score))
		}
		sb.WriteString("\n")
	}

	if report.Summary != "" {
		sb.WriteString(report.Summary)
		if !strings.HasSuffix(report.Summary, "\n") {
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}

	if report.AffectedDevices() > 0 {
		sb.WriteString("## Applicable Advisories\n\n")
		for _, res := range report.Results {
			if !res.HasAdvisories() {
				continue
			}
			fmt.Fprintf(&sb, "### %s\n\n", res.Device.String())
			for _, adv := range res.Advisories {
				fmt.Fprintf(&sb, "- **%s** [%s](%s)", adv.Severity(), adv.DisplayTitle(), adv.DisplayURL())
				if len(adv.CVEs) > 0 {
					fmt.Fprintf(&sb, " (%s)", strings.Join(adv.CVEs, ", "))
				}
				sb.WriteString("\n")
			}
			sb.WriteString("\n")
		}
	}

	return []byte(sb.String()), nil
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", "\\|")
}
