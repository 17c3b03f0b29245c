package reporter

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"github.com/ethanolivertroy/psirt-check/internal/models"
	"github.com/ethanolivertroy/psirt-check/internal/risk"
)

// PDFReporter renders the run as a printable PDF document
type PDFReporter struct{}

// Report generates a PDF for the run
func (r *PDFReporter) Report(report *models.Report) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	r.addHeader(pdf, report)
	r.addStatistics(pdf, report)
	r.addRanking(pdf, tr, report)
	r.addDevices(pdf, tr, report)
	r.addSummary(pdf, tr, report)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to generate PDF: %w", err)
	}
	return buf.Bytes(), nil
}

func (r *PDFReporter) addHeader(pdf *gofpdf.Fpdf, report *models.Report) {
	pdf.SetFont("Arial", "B", 22)
	pdf.SetTextColor(0, 51, 102)
	pdf.CellFormat(0, 14, "Network Advisory Risk Report", "", 1, "L", false, 0, "")

	pdf.SetFont("Arial", "", 10)
	pdf.SetTextColor(120, 120, 120)
	if !report.GeneratedAt.IsZero() {
		pdf.CellFormat(0, 6, "Generated: "+report.GeneratedAt.Format("2006-01-02 15:04"), "", 1, "L", false, 0, "")
	}
	if report.RunID != "" {
		pdf.CellFormat(0, 6, "Run: "+report.RunID, "", 1, "L", false, 0, "")
	}
	pdf.Ln(6)
}

func (r *PDFReporter) section(pdf *gofpdf.Fpdf, title string) {
	if pdf.GetY() > 250 {
		pdf.AddPage()
	}
	pdf.SetFont("Arial", "B", 14)
	pdf.SetTextColor(0, 51, 102)
	pdf.CellFormat(0, 10, title, "", 1, "L", false, 0, "")
	pdf.Ln(2)
}

// severityRGB follows the dashboard palette
func severityRGB(s models.Severity) (r, g, b int) {
	switch s {
	case models.SeverityCritical:
		return 220, 53, 69
	case models.SeverityHigh:
		return 218, 165, 32
	case models.SeverityMedium:
		return 255, 149, 0
	case models.SeverityLow:
		return 0, 191, 255
	default:
		return 150, 150, 150
	}
}

func (r *PDFReporter) addStatistics(pdf *gofpdf.Fpdf, report *models.Report) {
	r.section(pdf, "Overview")

	stats := []struct {
		label string
		value int
		sev   models.Severity
	}{
		{"Devices", len(report.Results), models.SeverityNone},
		{"Affected devices", report.AffectedDevices(), models.SeverityNone},
		{"Applicable advisories", report.AdvisoryCount(), models.SeverityNone},
		{"Critical", report.SeverityCounts.Critical, models.SeverityCritical},
		{"High", report.SeverityCounts.High, models.SeverityHigh},
		{"Medium", report.SeverityCounts.Medium, models.SeverityMedium},
		{"Low", report.SeverityCounts.Low, models.SeverityLow},
	}

	for i, stat := range stats {
		x := 20.0
		if i%2 == 1 {
			x = 105.0
		}
		pdf.SetXY(x, pdf.GetY())

		pdf.SetFont("Arial", "", 10)
		pdf.SetTextColor(100, 100, 100)
		pdf.CellFormat(50, 7, stat.label+":", "", 0, "L", false, 0, "")

		pdf.SetFont("Arial", "B", 11)
		if stat.sev == models.SeverityNone {
			pdf.SetTextColor(0, 102, 204)
		} else {
			pdf.SetTextColor(severityRGB(stat.sev))
		}
		pdf.CellFormat(35, 7, fmt.Sprintf("%d", stat.value), "", 0, "R", false, 0, "")

		if i%2 == 1 || i == len(stats)-1 {
			pdf.Ln(7)
		}
	}

	for _, d := range report.Diagnostics {
		pdf.SetFont("Arial", "I", 9)
		pdf.SetTextColor(180, 60, 60)
		pdf.CellFormat(0, 6, fmt.Sprintf("Advisory lookup failed for %s %s (%d devices)", d.OSType, d.Version, d.Devices),
			"", 1, "L", false, 0, "")
	}
	pdf.Ln(6)
}

func (r *PDFReporter) addRanking(pdf *gofpdf.Fpdf, tr func(string) string, report *models.Report) {
	r.section(pdf, "Top Risk Devices")

	if len(report.Ranked) == 0 {
		pdf.SetFont("Arial", "I", 10)
		pdf.SetTextColor(100, 100, 100)
		pdf.CellFormat(0, 7, "No devices ranked", "", 1, "L", false, 0, "")
		pdf.Ln(5)
		return
	}

	pdf.SetFillColor(240, 240, 240)
	pdf.SetFont("Arial", "B", 10)
	pdf.SetTextColor(60, 60, 60)
	pdf.CellFormat(15, 8, "Rank", "1", 0, "C", true, 0, "")
	pdf.CellFormat(60, 8, "Device", "1", 0, "L", true, 0, "")
	pdf.CellFormat(25, 8, "OS", "1", 0, "C", true, 0, "")
	pdf.CellFormat(35, 8, "Version", "1", 0, "C", true, 0, "")
	pdf.CellFormat(20, 8, "Score", "1", 0, "C", true, 0, "")
	pdf.CellFormat(20, 8, "Level", "1", 1, "C", true, 0, "")

	pdf.SetFont("Arial", "", 9)
	for _, e := range report.Ranked {
		pdf.SetTextColor(60, 60, 60)
		pdf.CellFormat(15, 7, fmt.Sprintf("%d", e.Rank), "1", 0, "C", false, 0, "")
		pdf.CellFormat(60, 7, tr(truncate(e.Result.Device.Hostname, 32)), "1", 0, "L", false, 0, "")
		pdf.CellFormat(25, 7, string(e.Result.OSType), "1", 0, "C", false, 0, "")
		pdf.CellFormat(35, 7, tr(e.Result.Device.SoftwareVersion), "1", 0, "C", false, 0, "")
		pdf.CellFormat(20, 7, fmt.Sprintf("%.1f", e.Score), "1", 0, "C", false, 0, "")
		pdf.CellFormat(20, 7, risk.Level(e.Score), "1", 1, "C", false, 0, "")
	}
	pdf.Ln(8)
}

func (r *PDFReporter) addDevices(pdf *gofpdf.Fpdf, tr func(string) string, report *models.Report) {
	if report.AffectedDevices() == 0 {
		return
	}
	r.section(pdf, "Applicable Advisories")

	for _, res := range report.Results {
		if !res.HasAdvisories() {
			continue
		}
		if pdf.GetY() > 260 {
			pdf.AddPage()
		}
		pdf.SetFont("Arial", "B", 11)
		pdf.SetTextColor(0, 51, 102)
		pdf.CellFormat(0, 7, tr(fmt.Sprintf("%s - %s", res.Device.String(), res.OSType)), "", 1, "L", false, 0, "")

		for _, adv := range res.Advisories {
			if pdf.GetY() > 270 {
				pdf.AddPage()
			}
			sev := adv.Severity()
			pdf.SetFont("Arial", "B", 9)
			pdf.SetTextColor(severityRGB(sev))
			pdf.CellFormat(22, 6, sev.String(), "", 0, "L", false, 0, "")

			pdf.SetFont("Arial", "", 9)
			pdf.SetTextColor(60, 60, 60)
			line := adv.DisplayTitle()
			if len(adv.CVEs) > 0 {
				line += " (" + strings.Join(adv.CVEs, ", ") + ")"
			}
			pdf.CellFormat(0, 6, tr(truncate(line, 110)), "", 1, "L", false, 0, adv.URL)
		}
		pdf.Ln(3)
	}
}

func (r *PDFReporter) addSummary(pdf *gofpdf.Fpdf, tr func(string) string, report *models.Report) {
	if report.Summary == "" {
		return
	}
	r.section(pdf, "Executive Summary")

	pdf.SetFont("Arial", "", 10)
	pdf.SetTextColor(60, 60, 60)
	for _, line := range strings.Split(report.Summary, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "## ") {
			continue
		}
		if strings.HasPrefix(line, "### ") {
			pdf.SetFont("Arial", "B", 11)
			pdf.CellFormat(0, 7, tr(strings.TrimPrefix(line, "### ")), "", 1, "L", false, 0, "")
			pdf.SetFont("Arial", "", 10)
			continue
		}
		line = strings.ReplaceAll(line, "**", "")
		if strings.HasPrefix(line, "- ") {
			line = "  - " + strings.TrimPrefix(line, "- ")
		}
		pdf.MultiCell(0, 5, tr(line), "", "L", false)
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
