package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/ppiankov/oraspectre/internal/analyzer"
	"github.com/ppiankov/oraspectre/internal/baseline"
	"github.com/ppiankov/oraspectre/internal/reporter"
	"github.com/ppiankov/oraspectre/internal/suppress"
)

// filterRecommendations drops baselined and suppressed recommendations
// from every entry in place and returns how many were removed.
func filterRecommendations(entries []reporter.Entry, baselinePath string) (int, error) {
	var bl *baseline.Baseline
	if baselinePath != "" {
		var err error
		bl, err = baseline.Load(baselinePath)
		if err != nil {
			return 0, fmt.Errorf("load baseline: %w", err)
		}
	}

	// .oraspectre-ignore.yml + config exclude
	cwd, err := os.Getwd()
	if err != nil {
		cwd = "."
	}
	rules, err := suppress.LoadRules(cwd)
	if err != nil {
		return 0, fmt.Errorf("load suppress rules: %w", err)
	}
	rules.WithConfigExclusions(cfg.Exclude.PointTypes, cfg.Exclude.Tables)

	total := 0
	for _, e := range entries {
		if e.Response == nil || e.Response.Data == nil {
			continue
		}
		recs := e.Response.Data.Recommendations
		var n int
		if bl != nil {
			recs, n = bl.Filter(recs)
			total += n
		}
		recs, n = rules.Filter(recs)
		total += n
		e.Response.Data.Recommendations = recs
	}
	return total, nil
}

// applyReportFilters narrows each entry's recommendations by minimum
// priority and point type.
func applyReportFilters(entries []reporter.Entry, minPriority, pointTypes string) {
	if minPriority == "" && pointTypes == "" {
		return
	}
	for _, e := range entries {
		if e.Response == nil || e.Response.Data == nil {
			continue
		}
		recs := e.Response.Data.Recommendations
		if minPriority != "" {
			recs = filterByPriority(recs, minPriority)
		}
		if pointTypes != "" {
			recs = filterByPointType(recs, pointTypes)
		}
		e.Response.Data.Recommendations = recs
	}
}

// filterByPriority keeps recommendations at or above min. An unknown
// priority keeps everything.
func filterByPriority(recs []analyzer.Recommendation, min string) []analyzer.Recommendation {
	p := analyzer.Priority(strings.ToUpper(strings.TrimSpace(min)))
	if _, ok := priorityNames[strings.ToLower(string(p))]; !ok {
		return recs
	}
	out := make([]analyzer.Recommendation, 0, len(recs))
	for _, r := range recs {
		if r.Priority.Rank() >= p.Rank() {
			out = append(out, r)
		}
	}
	return out
}

// filterByPointType keeps recommendations whose point type is listed.
func filterByPointType(recs []analyzer.Recommendation, types string) []analyzer.Recommendation {
	want := make(map[analyzer.PointType]bool)
	for _, t := range strings.Split(types, ",") {
		if t = strings.TrimSpace(t); t != "" {
			want[analyzer.PointType(strings.ToUpper(t))] = true
		}
	}
	if len(want) == 0 {
		return recs
	}
	out := make([]analyzer.Recommendation, 0, len(recs))
	for _, r := range recs {
		if want[r.PointType] {
			out = append(out, r)
		}
	}
	return out
}
