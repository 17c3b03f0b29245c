// Package summary condenses a risk ranking into per-device digests and a
// short executive summary.
package summary

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/mod/semver"

	"github.com/ethanolivertroy/psirt-check/internal/models"
)

// Summarizer turns ranked device digests into a markdown summary
type Summarizer interface {
	Summarize(ctx context.Context, digests []models.DeviceDigest) (string, error)
}

// RuleBased is a deterministic Summarizer that needs no external service
type RuleBased struct{}

// Summarize implements Summarizer
func (RuleBased) Summarize(_ context.Context, digests []models.DeviceDigest) (string, error) {
	return Markdown(digests), nil
}

// Build produces digests for the first topN ranked entries. topN <= 0 keeps all.
func Build(ranked []models.RiskRankedEntry, topN int) []models.DeviceDigest {
	if topN > 0 && topN < len(ranked) {
		ranked = ranked[:topN]
	}

	digests := make([]models.DeviceDigest, 0, len(ranked))
	for _, entry := range ranked {
		var counts models.SeverityCounts
		for _, adv := range entry.Result.Advisories {
			counts.Add(adv.Severity())
		}
		digests = append(digests, models.DeviceDigest{
			Hostname: entry.Result.Device.Hostname,
			Version:  entry.Result.Device.SoftwareVersion,
			OSType:   entry.Result.OSType,
			Score:    entry.Score,
			Total:    len(entry.Result.Advisories),
			Counts:   counts,
		})
	}
	return digests
}

// patchFirstLimit caps the "Patch first" list when no device has critical advisories
const patchFirstLimit = 3

// Markdown renders a rule-based executive summary of the digests, which are
// expected in rank order.
func Markdown(digests []models.DeviceDigest) string {
	var b strings.Builder

	b.WriteString("## Executive Summary\n\n")
	if len(digests) == 0 {
		b.WriteString("No devices were assessed. No applicable advisories were found.\n")
		return b.String()
	}

	var total, affected int
	var counts models.SeverityCounts
	for _, d := range digests {
		total += d.Total
		if d.Total > 0 {
			affected++
		}
		counts.Critical += d.Counts.Critical
		counts.High += d.Counts.High
		counts.Medium += d.Counts.Medium
		counts.Low += d.Counts.Low
		counts.None += d.Counts.None
	}

	if total == 0 {
		fmt.Fprintf(&b, "%d of the highest-risk devices were assessed and none has an applicable advisory. "+
			"No patching is required based on current advisories.\n\n", len(digests))
		return b.String()
	}

	fmt.Fprintf(&b, "%d of %d highest-risk devices are affected by %d applicable advisories "+
		"(%d critical, %d high, %d medium, %d low). ",
		affected, len(digests), total, counts.Critical, counts.High, counts.Medium, counts.Low)
	top := digests[0]
	fmt.Fprintf(&b, "**%s** running %s carries the highest risk with a score of %s.\n\n",
		top.Hostname, displayVersion(top.Version), formatScore(top.Score))

	b.WriteString("### Patch first\n\n")
	for _, d := range patchFirst(digests) {
		fmt.Fprintf(&b, "- **%s** (%s): score %s, %d critical, %d high\n",
			d.Hostname, displayVersion(d.Version), formatScore(d.Score), d.Counts.Critical, d.Counts.High)
	}

	b.WriteString("\n### By software version\n\n")
	for _, group := range GroupByVersion(digests) {
		hostnames := make([]string, len(group.Devices))
		var advisories int
		for i, d := range group.Devices {
			hostnames[i] = d.Hostname
			advisories += d.Total
		}
		fmt.Fprintf(&b, "- **%s**: %s (%d advisories)\n",
			displayVersion(group.Version), strings.Join(hostnames, ", "), advisories)
	}
	return b.String()
}

// patchFirst returns every device with a critical advisory, or failing that
// the highest scorers.
func patchFirst(digests []models.DeviceDigest) []models.DeviceDigest {
	var critical []models.DeviceDigest
	for _, d := range digests {
		if d.Counts.Critical > 0 {
			critical = append(critical, d)
		}
	}
	if len(critical) > 0 {
		return critical
	}

	var out []models.DeviceDigest
	for _, d := range digests {
		if d.Score <= 0 || len(out) == patchFirstLimit {
			break
		}
		out = append(out, d)
	}
	return out
}

// VersionGroup is a set of devices sharing one software version
type VersionGroup struct {
	Version string
	Devices []models.DeviceDigest
}

// GroupByVersion groups digests by software version, newest first. Versions
// that parse as dotted numbers are compared semantically and sort ahead of
// the rest, which are ordered lexically.
func GroupByVersion(digests []models.DeviceDigest) []VersionGroup {
	index := make(map[string]int)
	var groups []VersionGroup
	for _, d := range digests {
		i, ok := index[d.Version]
		if !ok {
			i = len(groups)
			index[d.Version] = i
			groups = append(groups, VersionGroup{Version: d.Version})
		}
		groups[i].Devices = append(groups[i].Devices, d)
	}

	sort.SliceStable(groups, func(i, j int) bool {
		vi, vj := canonical(groups[i].Version), canonical(groups[j].Version)
		switch {
		case vi != "" && vj != "":
			if c := semver.Compare(vi, vj); c != 0 {
				return c > 0
			}
			return groups[i].Version > groups[j].Version
		case vi != "":
			return true
		case vj != "":
			return false
		default:
			return groups[i].Version > groups[j].Version
		}
	})
	return groups
}

// canonical converts a vendor version such as "17.09.04a" into a semver
// string, or returns "" when it cannot.
func canonical(version string) string {
	version = strings.TrimPrefix(strings.TrimSpace(version), "v")
	if version == "" {
		return ""
	}

	parts := strings.Split(version, ".")
	if len(parts) > 3 {
		return ""
	}
	for i, p := range parts {
		// trailing letters are maintenance rebuilds, e.g. 17.9.4a
		p = strings.TrimRight(p, "abcdefghijklmnopqrstuvwxyz")
		p = strings.TrimLeft(p, "0")
		if p == "" {
			p = "0"
		}
		parts[i] = p
	}

	v := "v" + strings.Join(parts, ".")
	if !semver.IsValid(v) {
		return ""
	}
	return semver.Canonical(v)
}

func displayVersion(v string) string {
	if strings.TrimSpace(v) == "" {
		return "unknown version"
	}
	return v
}

func formatScore(score float64) string {
	return strings.TrimSuffix(strings.TrimSuffix(fmt.Sprintf("%.1f", score), "0"), ".")
}
