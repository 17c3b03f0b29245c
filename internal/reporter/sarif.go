package reporter

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ethanolivertroy/psirt-check/internal/models"
)

// SARIFReporter outputs applicable advisories in SARIF format
type SARIFReporter struct{}

// SARIF structures
type sarifReport struct {
	Schema  string     `json:"$schema"`
	Version string     `json:"version"`
	Runs    []sarifRun `json:"runs"`
}

type sarifRun struct {
	Tool    sarifTool     `json:"tool"`
	Results []sarifResult `json:"results"`
}

type sarifTool struct {
	Driver sarifDriver `json:"driver"`
}

type sarifDriver struct {
	Name           string      `json:"name"`
	Version        string      `json:"version"`
	InformationURI string      `json:"informationUri"`
	Rules          []sarifRule `json:"rules"`
}

type sarifRule struct {
	ID               string          `json:"id"`
	Name             string          `json:"name"`
	ShortDescription sarifText       `json:"shortDescription"`
	FullDescription  sarifText       `json:"fullDescription"`
	Help             sarifText       `json:"help"`
	HelpURI          string          `json:"helpUri,omitempty"`
	DefaultConfig    sarifRuleConfig `json:"defaultConfiguration"`
	Properties       sarifProperties `json:"properties"`
}

type sarifText struct {
	Text string `json:"text"`
}

type sarifRuleConfig struct {
	Level string `json:"level"`
}

type sarifProperties struct {
	Tags             []string `json:"tags"`
	SecuritySeverity string   `json:"security-severity,omitempty"`
}

type sarifResult struct {
	RuleID              string            `json:"ruleId"`
	RuleIndex           int               `json:"ruleIndex"`
	Level               string            `json:"level"`
	Message             sarifText         `json:"message"`
	Locations           []sarifLocation   `json:"locations"`
	PartialFingerprints map[string]string `json:"partialFingerprints"`
}

type sarifLocation struct {
	PhysicalLocation sarifPhysicalLocation `json:"physicalLocation"`
}

type sarifPhysicalLocation struct {
	ArtifactLocation sarifArtifact `json:"artifactLocation"`
}

type sarifArtifact struct {
	URI string `json:"uri"`
}

// sarifLevel maps an advisory severity to a SARIF result level
func sarifLevel(s models.Severity) string {
	switch s {
	case models.SeverityCritical, models.SeverityHigh:
		return "error"
	case models.SeverityMedium:
		return "warning"
	default:
		return "note"
	}
}

// securitySeverity prefers the published CVSS score and falls back to the rating
func securitySeverity(adv models.Advisory) string {
	if score := adv.CVSS(); score > 0 {
		return fmt.Sprintf("%.1f", score)
	}
	switch adv.Severity() {
	case models.SeverityCritical:
		return "9.5"
	case models.SeverityHigh:
		return "8.0"
	case models.SeverityMedium:
		return "5.5"
	case models.SeverityLow:
		return "2.0"
	default:
		return ""
	}
}

// Report generates SARIF output for the run
func (r *SARIFReporter) Report(report *models.Report) ([]byte, error) {
	rules, ruleIndexMap := r.buildRules(report.Results)

	out := sarifReport{
		Schema:  "https://json.schemastore.org/sarif-2.1.0.json",
		Version: "2.1.0",
		Runs: []sarifRun{{
			Tool: sarifTool{
				Driver: sarifDriver{
					Name:           "psirt-check",
					Version:        "1.0.0",
					InformationURI: "https://github.com/ethanolivertroy/psirt-check",
					Rules:          rules,
				},
			},
			Results: r.buildResults(report.Results, ruleIndexMap),
		}},
	}

	return json.MarshalIndent(out, "", "  ")
}

// buildRules emits one rule per distinct advisory, in first-seen order
func (r *SARIFReporter) buildRules(results []models.CorrelationResult) ([]sarifRule, map[string]int) {
	rules := []sarifRule{}
	ruleIndexMap := make(map[string]int)

	for _, res := range results {
		for _, adv := range res.Advisories {
			key := adv.Key()
			if _, exists := ruleIndexMap[key]; exists {
				continue
			}

			tags := []string{"security", "vulnerability", "psirt"}
			if adv.Feature != "" {
				tags = append(tags, strings.ToLower(adv.Feature))
			}

			help := fmt.Sprintf("Severity: %s\n\nSee %s for fixed releases and workarounds.",
				adv.Severity(), adv.DisplayURL())
			if len(adv.CVEs) > 0 {
				help += "\n\nCVEs: " + strings.Join(adv.CVEs, ", ")
			}

			description := adv.Summary
			if description == "" {
				description = adv.DisplayTitle()
			}

			ruleIndexMap[key] = len(rules)
			rules = append(rules, sarifRule{
				ID:               key,
				Name:             adv.DisplayTitle(),
				ShortDescription: sarifText{Text: adv.DisplayTitle()},
				FullDescription:  sarifText{Text: description},
				Help:             sarifText{Text: help},
				HelpURI:          adv.URL,
				DefaultConfig:    sarifRuleConfig{Level: sarifLevel(adv.Severity())},
				Properties: sarifProperties{
					Tags:             tags,
					SecuritySeverity: securitySeverity(adv),
				},
			})
		}
	}

	return rules, ruleIndexMap
}

func (r *SARIFReporter) buildResults(results []models.CorrelationResult, ruleIndexMap map[string]int) []sarifResult {
	out := []sarifResult{}

	for _, res := range results {
		for _, adv := range res.Advisories {
			key := adv.Key()
			msg := fmt.Sprintf("Device %s (%s %s) is affected by %s: %s",
				res.Device.Hostname, res.OSType, res.Device.SoftwareVersion, key, adv.DisplayTitle())

			out = append(out, sarifResult{
				RuleID:    key,
				RuleIndex: ruleIndexMap[key],
				Level:     sarifLevel(adv.Severity()),
				Message:   sarifText{Text: msg},
				Locations: []sarifLocation{{
					PhysicalLocation: sarifPhysicalLocation{
						ArtifactLocation: sarifArtifact{URI: "device://" + res.Device.Hostname},
					},
				}},
				PartialFingerprints: map[string]string{
					"primaryLocationLineHash": fmt.Sprintf("%s:%s:%s",
						res.Device.Hostname, res.Device.SoftwareVersion, key),
				},
			})
		}
	}

	return out
}
