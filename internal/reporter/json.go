package reporter

import (
	"encoding/json"
	"time"

	"github.com/ethanolivertroy/psirt-check/internal/models"
)

// JSONReporter outputs the run in JSON format
type JSONReporter struct{}

// jsonOutput represents the JSON output structure
type jsonOutput struct {
	Summary     jsonSummary           `json:"summary"`
	Ranking     []RankedView          `json:"ranking"`
	Devices     []DeviceView          `json:"devices"`
	Digests     []models.DeviceDigest `json:"digests"`
	Executive   string                `json:"executive_summary,omitempty"`
	Diagnostics []jsonDiagnostic      `json:"diagnostics,omitempty"`
}

type jsonSummary struct {
	RunID           string                `json:"run_id,omitempty"`
	GeneratedAt     string                `json:"generated_at,omitempty"`
	TotalDevices    int                   `json:"total_devices"`
	AffectedDevices int                   `json:"affected_devices"`
	TotalAdvisories int                   `json:"total_advisories"`
	SeverityCounts  models.SeverityCounts `json:"severity_counts"`
}

// RankedView is the JSON form of a ranking entry
type RankedView struct {
	Rank     int     `json:"rank"`
	Hostname string  `json:"hostname"`
	OSType   string  `json:"os_type"`
	Version  string  `json:"version"`
	Score    float64 `json:"score"`
}

// DeviceView is the JSON form of one device's correlation result
type DeviceView struct {
	Device     models.Device  `json:"device"`
	OSType     string         `json:"os_type"`
	Advisories []jsonAdvisory `json:"advisories"`
}

type jsonAdvisory struct {
	ID             string   `json:"id"`
	Title          string   `json:"title"`
	URL            string   `json:"url"`
	Severity       string   `json:"severity"`
	Feature        string   `json:"feature,omitempty"`
	CVEs           []string `json:"cves,omitempty"`
	BugIDs         []string `json:"bug_ids,omitempty"`
	CVSSBaseScore  string   `json:"cvss_base_score,omitempty"`
	FirstPublished string   `json:"first_published,omitempty"`
	LastUpdated    string   `json:"last_updated,omitempty"`
}

type jsonDiagnostic struct {
	OSType  string `json:"os_type"`
	Version string `json:"version"`
	Devices int    `json:"devices"`
	Message string `json:"message"`
}

// Report generates JSON output for the run
func (r *JSONReporter) Report(report *models.Report) ([]byte, error) {
	output := jsonOutput{
		Summary: jsonSummary{
			RunID:           report.RunID,
			TotalDevices:    len(report.Results),
			AffectedDevices: report.AffectedDevices(),
			TotalAdvisories: report.AdvisoryCount(),
			SeverityCounts:  report.SeverityCounts,
		},
		Ranking:   RankingViews(report.Ranked),
		Devices:   DeviceViews(report.Results),
		Digests:   report.Digests,
		Executive: report.Summary,
	}
	if !report.GeneratedAt.IsZero() {
		output.Summary.GeneratedAt = report.GeneratedAt.UTC().Format(time.RFC3339)
	}
	if output.Digests == nil {
		output.Digests = []models.DeviceDigest{}
	}

	for _, d := range report.Diagnostics {
		output.Diagnostics = append(output.Diagnostics, jsonDiagnostic{
			OSType:  string(d.OSType),
			Version: d.Version,
			Devices: d.Devices,
			Message: d.Message,
		})
	}

	return json.MarshalIndent(output, "", "  ")
}

// RankingViews converts ranking entries to their JSON form
func RankingViews(entries []models.RiskRankedEntry) []RankedView {
	views := make([]RankedView, 0, len(entries))
	for _, e := range entries {
		views = append(views, RankedView{
			Rank:     e.Rank,
			Hostname: e.Result.Device.Hostname,
			OSType:   string(e.Result.OSType),
			Version:  e.Result.Device.SoftwareVersion,
			Score:    e.Score,
		})
	}
	return views
}

// DeviceViews converts correlation results to their JSON form
func DeviceViews(results []models.CorrelationResult) []DeviceView {
	views := make([]DeviceView, 0, len(results))
	for _, res := range results {
		dv := DeviceView{
			Device:     res.Device,
			OSType:     string(res.OSType),
			Advisories: make([]jsonAdvisory, 0, len(res.Advisories)),
		}
		for _, adv := range res.Advisories {
			dv.Advisories = append(dv.Advisories, jsonAdvisory{
				ID:             adv.ID,
				Title:          adv.DisplayTitle(),
				URL:            adv.DisplayURL(),
				Severity:       adv.Severity().String(),
				Feature:        adv.Feature,
				CVEs:           adv.CVEs,
				BugIDs:         adv.BugIDs,
				CVSSBaseScore:  adv.CVSSBaseScore,
				FirstPublished: formatDate(adv.FirstPublished),
				LastUpdated:    formatDate(adv.LastUpdated),
			})
		}
		views = append(views, dv)
	}
	return views
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}
