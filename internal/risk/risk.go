// Package risk reduces correlation results to scalar risk scores and ranks
// devices by them.
package risk

import (
	"sort"

	"github.com/ethanolivertroy/psirt-check/internal/models"
)

// DefaultTopN is the ranking length used when none is configured
const DefaultTopN = 10

// Weight returns the score contribution of one advisory of the given severity
func Weight(s models.Severity) float64 {
	switch s {
	case models.SeverityCritical:
		return 5
	case models.SeverityHigh:
		return 3
	case models.SeverityMedium:
		return 1
	case models.SeverityLow:
		return 0.5
	default:
		return 0
	}
}

// Score sums the severity weights of the advisories
func Score(advisories []models.Advisory) float64 {
	var total float64
	for _, adv := range advisories {
		total += Weight(adv.Severity())
	}
	return total
}

// Rank orders results by score, highest first. Equal scores keep their
// inventory order. A topN of zero or less, or one at least len(results),
// returns every result.
func Rank(results []models.CorrelationResult, topN int) []models.RiskRankedEntry {
	entries := make([]models.RiskRankedEntry, len(results))
	for i, r := range results {
		entries[i] = models.RiskRankedEntry{Result: r, Score: Score(r.Advisories)}
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Score > entries[j].Score
	})

	if topN > 0 && topN < len(entries) {
		entries = entries[:topN]
	}
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries
}

// Level buckets a score into a coarse label for display
func Level(score float64) string {
	switch {
	case score >= 15:
		return "critical"
	case score >= 8:
		return "high"
	case score >= 3:
		return "medium"
	case score > 0:
		return "low"
	default:
		return "none"
	}
}
