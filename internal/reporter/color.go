package reporter

import (
	"io"
	"os"

	"github.com/ppiankov/oraspectre/internal/analyzer"
)

// ANSI escape codes for priority colors.
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorGray   = "\033[37m"
	colorGreen  = "\033[32m"
	colorBold   = "\033[1m"
)

var priorityColor = map[analyzer.Priority]string{
	analyzer.PriorityCritical: colorBold + colorRed,
	analyzer.PriorityHigh:     colorRed,
	analyzer.PriorityMedium:   colorYellow,
	analyzer.PriorityLow:      colorCyan,
}

var coverageColor = map[analyzer.Coverage]string{
	analyzer.CoverageCovered: colorGreen,
	analyzer.CoverageMissing: colorRed,
	analyzer.CoverageUnknown: colorGray,
}

// painter wraps strings in ANSI colors when enabled.
type painter struct {
	enabled bool
}

func newPainter(w io.Writer) painter {
	return painter{enabled: isTTY(w) && os.Getenv("NO_COLOR") == ""}
}

func (p painter) paint(color, s string) string {
	if !p.enabled || color == "" || s == "" {
		return s
	}
	return color + s + colorReset
}

func (p painter) priority(pr analyzer.Priority) string {
	return p.paint(priorityColor[pr], string(pr))
}

func (p painter) coverage(c analyzer.Coverage) string {
	return p.paint(coverageColor[c], string(c))
}

// isTTY returns true if the writer is a terminal.
func isTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}
