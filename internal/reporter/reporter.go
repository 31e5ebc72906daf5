package reporter

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/ppiankov/oraspectre/internal/analyzer"
	"github.com/ppiankov/oraspectre/internal/engine"
)

// Format controls report output format.
type Format string

const (
	FormatText       Format = "text"
	FormatJSON       Format = "json"
	FormatSARIF      Format = "sarif"
	FormatMermaid    Format = "mermaid"
	FormatSpectreHub Format = "spectrehub"
)

// ParseFormat validates a --format value.
func ParseFormat(s string) (Format, error) {
	switch f := Format(s); f {
	case FormatText, FormatJSON, FormatSARIF, FormatMermaid, FormatSpectreHub:
		return f, nil
	case "":
		return FormatText, nil
	}
	return "", fmt.Errorf("unknown format %q (want text, json, sarif, mermaid or spectrehub)", s)
}

// Metadata holds report context.
type Metadata struct {
	Tool       string `json:"tool"`
	Version    string `json:"version,omitempty"`
	Command    string `json:"command"`
	Timestamp  string `json:"timestamp"`
	URIHash    string `json:"uriHash,omitempty"`
	Connection string `json:"connection,omitempty"`
}

// Entry is one analysed statement. Source and Line locate it when it came
// from a file.
type Entry struct {
	Source   string           `json:"source,omitempty"`
	Line     int              `json:"line,omitempty"`
	Response *engine.Response `json:"response"`
}

// Location renders Source and Line as file:line.
func (e Entry) Location() string {
	switch {
	case e.Source == "":
		return ""
	case e.Line > 0:
		return fmt.Sprintf("%s:%d", e.Source, e.Line)
	}
	return e.Source
}

// Summary counts analyses and recommendations by priority.
type Summary struct {
	Analyses        int `json:"analyses"`
	Failed          int `json:"failed"`
	Degraded        int `json:"degraded"`
	Recommendations int `json:"recommendations"`
	Critical        int `json:"critical"`
	High            int `json:"high"`
	Medium          int `json:"medium"`
	Low             int `json:"low"`
}

// Report is the top-level analyze/batch output.
type Report struct {
	Metadata    Metadata          `json:"metadata"`
	Entries     []Entry           `json:"analyses"`
	MaxPriority analyzer.Priority `json:"maxPriority,omitempty"`
	Summary     Summary           `json:"summary"`
}

// NewReport builds a report from analysed entries.
func NewReport(command, version string, entries []Entry) Report {
	if entries == nil {
		entries = []Entry{}
	}
	var summary Summary
	var all []analyzer.Recommendation
	for _, e := range entries {
		summary.Analyses++
		resp := e.Response
		if resp == nil || !resp.Success || resp.Data == nil {
			summary.Failed++
			continue
		}
		if resp.Metadata.Degraded {
			summary.Degraded++
		}
		for _, r := range resp.Data.Recommendations {
			summary.Recommendations++
			switch r.Priority {
			case analyzer.PriorityCritical:
				summary.Critical++
			case analyzer.PriorityHigh:
				summary.High++
			case analyzer.PriorityMedium:
				summary.Medium++
			case analyzer.PriorityLow:
				summary.Low++
			}
		}
		all = append(all, resp.Data.Recommendations...)
	}

	return Report{
		Metadata: Metadata{
			Tool:      "oraspectre",
			Version:   version,
			Command:   command,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		},
		Entries:     entries,
		MaxPriority: analyzer.MaxPriority(all),
		Summary:     summary,
	}
}

// Write outputs the report in the given format.
func Write(w io.Writer, report *Report, format Format) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, report)
	case FormatSARIF:
		return writeSARIF(w, report)
	case FormatMermaid:
		return writeMermaid(w, report)
	case FormatSpectreHub:
		return writeSpectreHub(w, report)
	default:
		return writeText(w, report)
	}
}

// writeJSON emits the bare response for a single analysis and the full
// report otherwise.
func writeJSON(w io.Writer, report *Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if report.Metadata.Command != "batch" && len(report.Entries) == 1 {
		return enc.Encode(report.Entries[0].Response)
	}
	return enc.Encode(report)
}
