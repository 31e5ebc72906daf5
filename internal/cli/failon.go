package cli

import (
	"strings"

	"github.com/ppiankov/oraspectre/internal/analyzer"
)

var priorityNames = map[string]analyzer.Priority{
	"critical": analyzer.PriorityCritical,
	"high":     analyzer.PriorityHigh,
	"medium":   analyzer.PriorityMedium,
	"low":      analyzer.PriorityLow,
}

// shouldFailOn returns true if any recommendation matches the fail-on
// criteria. Criteria can be point types (JOIN) or priorities (critical, high).
func shouldFailOn(recs []analyzer.Recommendation, failOn string) bool {
	types := make(map[analyzer.PointType]bool)
	priorities := make(map[analyzer.Priority]bool)

	for _, p := range strings.Split(failOn, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if prio, ok := priorityNames[strings.ToLower(p)]; ok {
			priorities[prio] = true
			continue
		}
		types[analyzer.PointType(strings.ToUpper(p))] = true
	}

	for _, r := range recs {
		if types[r.PointType] || priorities[r.Priority] {
			return true
		}
	}
	return false
}
