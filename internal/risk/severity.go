package risk

import "github.com/ethanolivertroy/psirt-check/internal/models"

// CountBySeverity tallies applicable advisories across all results
func CountBySeverity(results []models.CorrelationResult) models.SeverityCounts {
	var counts models.SeverityCounts
	for _, r := range results {
		for _, adv := range r.Advisories {
			counts.Add(adv.Severity())
		}
	}
	return counts
}

// FilterBySeverity restricts every result to advisories of exactly the given
// severity and drops devices left with none. Input results are not modified.
func FilterBySeverity(results []models.CorrelationResult, s models.Severity) []models.CorrelationResult {
	filtered := []models.CorrelationResult{}
	for _, r := range results {
		var matching []models.Advisory
		for _, adv := range r.Advisories {
			if adv.Severity() == s {
				matching = append(matching, adv)
			}
		}
		if len(matching) == 0 {
			continue
		}
		filtered = append(filtered, models.CorrelationResult{
			Device:     r.Device,
			OSType:     r.OSType,
			Advisories: matching,
		})
	}
	return filtered
}

// Results returns the correlation results carried by ranked entries, in rank order
func Results(entries []models.RiskRankedEntry) []models.CorrelationResult {
	out := make([]models.CorrelationResult, len(entries))
	for i, e := range entries {
		out[i] = e.Result
	}
	return out
}

// AtOrAbove reports whether any applicable advisory has severity of at least min.
// A min of SeverityNone never matches.
func AtOrAbove(results []models.CorrelationResult, min models.Severity) bool {
	if min == models.SeverityNone {
		return false
	}
	for _, r := range results {
		for _, adv := range r.Advisories {
			if adv.Severity() >= min {
				return true
			}
		}
	}
	return false
}
