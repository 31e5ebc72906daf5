package analyzer

import (
	"strings"

	"github.com/ppiankov/oraspectre/internal/sqlparse"
)

// Hints renders optimizer hints that pin the access order: LEADING lists
// every table in order and USE_NL names every non-leading table. Fewer than
// two tables yield an empty string.
func Hints(order []string, p *sqlparse.ParsedSQL) string {
	if len(order) < 2 {
		return ""
	}
	labels := make([]string, 0, len(order))
	for _, id := range order {
		if t, ok := p.Table(id); ok {
			labels = append(labels, t.Label())
		}
	}
	if len(labels) < 2 {
		return ""
	}
	return "/*+ LEADING(" + strings.Join(labels, " ") + ") USE_NL(" + strings.Join(labels[1:], " ") + ") */"
}
