package output

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/dshills/stylegate/internal/review"
)

// SARIFWriter outputs violations in SARIF v2.1.0 format.
type SARIFWriter struct{}

func (s *SARIFWriter) Write(w io.Writer, report *review.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(buildSARIF(report)); err != nil {
		return fmt.Errorf("writing SARIF: %w", err)
	}
	return nil
}

// SARIF schema types (v2.1.0)

type sarifLog struct {
	Version string     `json:"version"`
	Schema  string     `json:"$schema"`
	Runs    []sarifRun `json:"runs"`
}

type sarifRun struct {
	Tool       sarifTool          `json:"tool"`
	Results    []sarifResult      `json:"results"`
	Properties sarifRunProperties `json:"properties"`
}

type sarifRunProperties struct {
	Outcome         string `json:"outcome"`
	TotalViolations int    `json:"totalViolations"`
	RulesDigest     string `json:"rulesDigest,omitempty"`
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
	ID               string             `json:"id"`
	ShortDescription sarifMessage       `json:"shortDescription"`
	DefaultConfig    sarifDefaultConfig `json:"defaultConfiguration"`
}

type sarifDefaultConfig struct {
	Level string `json:"level"`
}

type sarifResult struct {
	RuleID    string          `json:"ruleId"`
	RuleIndex int             `json:"ruleIndex"`
	Level     string          `json:"level"`
	Message   sarifMessage    `json:"message"`
	Locations []sarifLocation `json:"locations"`
	Fixes     []sarifFix      `json:"fixes,omitempty"`
}

type sarifMessage struct {
	Text string `json:"text"`
}

type sarifLocation struct {
	PhysicalLocation sarifPhysicalLocation `json:"physicalLocation"`
}

type sarifPhysicalLocation struct {
	ArtifactLocation sarifArtifactLocation `json:"artifactLocation"`
	Region           sarifRegion           `json:"region"`
}

type sarifArtifactLocation struct {
	URI string `json:"uri"`
}

type sarifRegion struct {
	StartLine   int           `json:"startLine"`
	StartColumn int           `json:"startColumn,omitempty"`
	Snippet     *sarifMessage `json:"snippet,omitempty"`
}

type sarifFix struct {
	Description sarifMessage `json:"description"`
}

func buildSARIF(report *review.Report) sarifLog {
	var rules []sarifRule
	ruleIndex := make(map[string]int)
	results := make([]sarifResult, 0, len(report.Violations))

	for _, v := range report.Violations {
		idx, ok := ruleIndex[v.RuleID]
		if !ok {
			idx = len(rules)
			ruleIndex[v.RuleID] = idx
			rules = append(rules, sarifRule{
				ID:               v.RuleID,
				ShortDescription: sarifMessage{Text: v.Message},
				DefaultConfig:    sarifDefaultConfig{Level: sarifLevel(v)},
			})
		}

		region := sarifRegion{StartLine: v.AnnotationLine(), StartColumn: v.Column}
		if v.Match != "" {
			region.Snippet = &sarifMessage{Text: v.Match}
		}
		result := sarifResult{
			RuleID:    v.RuleID,
			RuleIndex: idx,
			Level:     sarifLevel(v),
			Message:   sarifMessage{Text: v.Message},
			Locations: []sarifLocation{{
				PhysicalLocation: sarifPhysicalLocation{
					ArtifactLocation: sarifArtifactLocation{URI: v.Path},
					Region:           region,
				},
			}},
		}
		if v.Fix != "" {
			result.Fixes = []sarifFix{{Description: sarifMessage{Text: v.Fix}}}
		}
		results = append(results, result)
	}

	return sarifLog{
		Version: "2.1.0",
		Schema:  "https://raw.githubusercontent.com/oasis-tcs/sarif-spec/main/sarif-2.1/schema/sarif-schema-2.1.0.json",
		Runs: []sarifRun{{
			Tool: sarifTool{
				Driver: sarifDriver{
					Name:           review.Tool,
					Version:        report.Version,
					InformationURI: "https://github.com/dshills/stylegate",
					Rules:          rules,
				},
			},
			Results: results,
			Properties: sarifRunProperties{
				Outcome:         string(report.Verdict.Outcome),
				TotalViolations: report.Verdict.TotalViolations,
				RulesDigest:     report.Rules.Digest,
			},
		}},
	}
}

func sarifLevel(v review.Violation) string {
	if v.Critical {
		return "error"
	}
	return "warning"
}
