package reporter

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/ppiankov/oraspectre/internal/analyzer"
)

// SARIF 2.1.0 types, minimal subset for valid output.

type sarifLog struct {
	Version string     `json:"version"`
	Schema  string     `json:"$schema"`
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
	ID               string            `json:"id"`
	ShortDescription sarifMessage      `json:"shortDescription"`
	DefaultConfig    sarifRuleDefaults `json:"defaultConfiguration"`
}

type sarifRuleDefaults struct {
	Level string `json:"level"`
}

type sarifMessage struct {
	Text string `json:"text"`
}

type sarifResult struct {
	RuleID     string          `json:"ruleId"`
	Level      string          `json:"level"`
	Message    sarifMessage    `json:"message"`
	Locations  []sarifLocation `json:"locations,omitempty"`
	Properties map[string]any  `json:"properties,omitempty"`
}

type sarifLocation struct {
	PhysicalLocation *sarifPhysicalLocation `json:"physicalLocation,omitempty"`
	LogicalLocations []sarifLogicalLocation `json:"logicalLocations,omitempty"`
}

type sarifPhysicalLocation struct {
	ArtifactLocation sarifArtifactLocation `json:"artifactLocation"`
	Region           *sarifRegion          `json:"region,omitempty"`
}

type sarifArtifactLocation struct {
	URI string `json:"uri"`
}

type sarifRegion struct {
	StartLine int `json:"startLine"`
}

type sarifLogicalLocation struct {
	Name               string `json:"name"`
	FullyQualifiedName string `json:"fullyQualifiedName"`
	Kind               string `json:"kind"`
}

const ruleAnalysisError = "ANALYSIS_ERROR"

var ruleDescriptions = map[string]string{
	string(analyzer.PointEntry):  "Entry table filter column has no supporting index",
	string(analyzer.PointJoin):   "Join column on the driven table has no supporting index",
	string(analyzer.PointFilter): "Filter column has no supporting index",
	string(analyzer.PointOrder):  "ORDER BY column has no supporting index",
	ruleAnalysisError:            "Statement could not be analysed",
}

var priorityToLevel = map[analyzer.Priority]string{
	analyzer.PriorityCritical: "error",
	analyzer.PriorityHigh:     "error",
	analyzer.PriorityMedium:   "warning",
	analyzer.PriorityLow:      "note",
}

func writeSARIF(w io.Writer, report *Report) error {
	ruleSet := make(map[string]bool)
	var results []sarifResult

	for _, e := range report.Entries {
		resp := e.Response
		if resp == nil || !resp.Success || resp.Data == nil {
			ruleSet[ruleAnalysisError] = true
			msg := "analysis failed"
			if resp != nil && resp.Error != nil {
				msg = resp.Error.Error()
			}
			results = append(results, sarifResult{
				RuleID:    "oraspectre/" + ruleAnalysisError,
				Level:     "warning",
				Message:   sarifMessage{Text: msg},
				Locations: entryLocations(e, nil),
			})
			continue
		}

		for _, r := range resp.Data.Recommendations {
			ruleSet[string(r.PointType)] = true
			level := priorityToLevel[r.Priority]
			if level == "" {
				level = "note"
			}
			results = append(results, sarifResult{
				RuleID:    "oraspectre/" + string(r.PointType),
				Level:     level,
				Message:   sarifMessage{Text: fmt.Sprintf("%s: %s", r.Rationale, r.DDL)},
				Locations: entryLocations(e, &r),
				Properties: map[string]any{
					"priority":            string(r.Priority),
					"pointNumbers":        r.PointNumbers,
					"ddl":                 r.DDL,
					"expectedImprovement": r.ExpectedImprovement,
				},
			})
		}
	}

	ids := make([]string, 0, len(ruleSet))
	for id := range ruleSet {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	rules := make([]sarifRule, 0, len(ids))
	for _, id := range ids {
		desc := ruleDescriptions[id]
		if desc == "" {
			desc = id
		}
		rules = append(rules, sarifRule{
			ID:               "oraspectre/" + id,
			ShortDescription: sarifMessage{Text: desc},
			DefaultConfig:    sarifRuleDefaults{Level: "warning"},
		})
	}

	log := sarifLog{
		Version: "2.1.0",
		Schema:  "https://raw.githubusercontent.com/oasis-tcs/sarif-spec/main/sarif-2.1/schema/sarif-schema-2.1.0.json",
		Runs: []sarifRun{
			{
				Tool: sarifTool{
					Driver: sarifDriver{
						Name:           "oraspectre",
						Version:        report.Metadata.Version,
						InformationURI: "https://github.com/ppiankov/oraspectre",
						Rules:          rules,
					},
				},
				Results: results,
			},
		},
	}

	if log.Runs[0].Results == nil {
		log.Runs[0].Results = []sarifResult{}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(log); err != nil {
		return fmt.Errorf("encode SARIF: %w", err)
	}
	return nil
}

func entryLocations(e Entry, r *analyzer.Recommendation) []sarifLocation {
	var loc sarifLocation
	if e.Source != "" {
		loc.PhysicalLocation = &sarifPhysicalLocation{ArtifactLocation: sarifArtifactLocation{URI: e.Source}}
		if e.Line > 0 {
			loc.PhysicalLocation.Region = &sarifRegion{StartLine: e.Line}
		}
	}
	if r != nil {
		loc.LogicalLocations = []sarifLogicalLocation{{
			Name:               r.ColumnName,
			FullyQualifiedName: recommendationLocation(*r),
			Kind:               "database/column",
		}}
	}
	if loc.PhysicalLocation == nil && loc.LogicalLocations == nil {
		return nil
	}
	return []sarifLocation{loc}
}
