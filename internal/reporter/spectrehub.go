package reporter

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"
)

// SpectreHubEnvelope is the spectre/v1 cross-tool ingestion format.
type SpectreHubEnvelope struct {
	Schema    string              `json:"schema"`
	Tool      string              `json:"tool"`
	Version   string              `json:"version"`
	Timestamp string              `json:"timestamp"`
	Target    SpectreHubTarget    `json:"target"`
	Findings  []SpectreHubFinding `json:"findings"`
	Summary   SpectreHubSummary   `json:"summary"`
}

// SpectreHubTarget describes the analysed system.
type SpectreHubTarget struct {
	Type       string `json:"type"`
	URIHash    string `json:"uri_hash,omitempty"`
	Connection string `json:"connection,omitempty"`
}

// SpectreHubFinding is a single finding in the spectre/v1 format.
type SpectreHubFinding struct {
	ID       string         `json:"id"`
	Severity string         `json:"severity"`
	Location string         `json:"location"`
	Message  string         `json:"message"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// SpectreHubSummary counts findings by severity. Critical recommendations
// count as high.
type SpectreHubSummary struct {
	Total  int `json:"total"`
	High   int `json:"high"`
	Medium int `json:"medium"`
	Low    int `json:"low"`
	Info   int `json:"info"`
}

// HashURI produces a sha256 hash of the URI with credentials stripped.
// go-ora style URLs carry the password in userinfo as well.
func HashURI(rawURI string) string {
	u, err := url.Parse(rawURI)
	if err != nil {
		h := sha256.Sum256([]byte(rawURI))
		return fmt.Sprintf("sha256:%x", h)
	}
	u.User = nil
	safe := u.String()
	h := sha256.Sum256([]byte(safe))
	return fmt.Sprintf("sha256:%x", h)
}

func writeSpectreHub(w io.Writer, report *Report) error {
	envelope := SpectreHubEnvelope{
		Schema:    "spectre/v1",
		Tool:      "oraspectre",
		Version:   report.Metadata.Version,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Target: SpectreHubTarget{
			Type:       "oracle",
			URIHash:    report.Metadata.URIHash,
			Connection: report.Metadata.Connection,
		},
		Findings: []SpectreHubFinding{},
	}

	for _, e := range report.Entries {
		resp := e.Response
		if resp == nil || !resp.Success || resp.Data == nil {
			continue
		}
		for _, r := range resp.Data.Recommendations {
			severity := strings.ToLower(string(r.Priority))
			if severity == "critical" {
				severity = "high"
			}
			switch severity {
			case "high":
				envelope.Summary.High++
			case "medium":
				envelope.Summary.Medium++
			default:
				envelope.Summary.Low++
			}
			envelope.Summary.Total++

			meta := map[string]any{
				"priority":   string(r.Priority),
				"point_type": string(r.PointType),
				"ddl":        r.DDL,
			}
			if loc := e.Location(); loc != "" {
				meta["source"] = loc
			}
			envelope.Findings = append(envelope.Findings, SpectreHubFinding{
				ID:       "MISSING_INDEX_" + string(r.PointType),
				Severity: severity,
				Location: recommendationLocation(r),
				Message:  r.Rationale,
				Metadata: meta,
			})
		}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(envelope)
}
