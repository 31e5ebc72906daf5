package reporter

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/ppiankov/oraspectre/internal/analyzer"
	"github.com/ppiankov/oraspectre/internal/engine"
)

// textWriter accumulates the first write error so the rendering code can
// stay linear.
type textWriter struct {
	w   io.Writer
	err error
}

func (t *textWriter) printf(format string, args ...any) {
	if t.err != nil {
		return
	}
	_, t.err = fmt.Fprintf(t.w, format, args...)
}

func (t *textWriter) table(header table.Row, rows []table.Row) {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleLight)
	tw.AppendHeader(header)
	tw.AppendRows(rows)
	t.printf("%s\n", tw.Render())
}

func writeText(w io.Writer, report *Report) error {
	tw := &textWriter{w: w}
	p := newPainter(w)

	if len(report.Entries) == 0 {
		tw.printf("No statements analysed.\n")
		return tw.err
	}

	for i, e := range report.Entries {
		if i > 0 {
			tw.printf("\n")
		}
		if loc := e.Location(); loc != "" {
			tw.printf("%s\n", p.paint(colorBold, loc))
		}
		writeEntry(tw, p, e.Response)
	}

	if len(report.Entries) > 1 {
		s := report.Summary
		tw.printf("\nSummary: %d analyses, %d failed, %d degraded, %d recommendations (critical=%d high=%d medium=%d low=%d)\n",
			s.Analyses, s.Failed, s.Degraded, s.Recommendations, s.Critical, s.High, s.Medium, s.Low)
	}
	return tw.err
}

func writeEntry(tw *textWriter, p painter, resp *engine.Response) {
	if resp == nil {
		tw.printf("[ERROR] no response\n")
		return
	}
	if !resp.Success || resp.Data == nil {
		code, msg := engine.CodeInternalError, "analysis failed"
		if resp.Error != nil {
			code, msg = resp.Error.Code, resp.Error.Message
		}
		tw.printf("[%s] %s: %s\n", p.paint(colorRed, "ERROR"), code, msg)
		return
	}

	d := resp.Data
	s := d.Summary
	tw.printf("%s statement: %d tables, %d joins, %d index points (%d covered, %d missing), health %d/100\n",
		d.Analysis.StatementType, s.TableCount, s.JoinCount, s.IndexPointCount,
		s.ExistingIndexCount, s.MissingIndexCount, s.OverallHealthScore)
	if resp.Metadata.Degraded {
		tw.printf("%s index metadata unavailable, coverage unknown\n", p.paint(colorYellow, "[DEGRADED]"))
	}

	if path := d.Diagram.RecommendedAccessPath; len(path) > 0 {
		tw.printf("\nAccess path\n")
		rows := make([]table.Row, 0, len(path))
		for _, step := range path {
			rows = append(rows, table.Row{step.Step, tableLabel(step.TableName, step.Alias), step.Reason, step.ViaColumn})
		}
		tw.table(table.Row{"Step", "Table", "Reason", "Via"}, rows)
	}

	if points := d.Analysis.IndexPoints; len(points) > 0 {
		tw.printf("\nIndex points\n")
		rows := make([]table.Row, 0, len(points))
		for _, pt := range points {
			index := ""
			if pt.ExistingIndex != nil {
				index = pt.ExistingIndex.IndexName
			}
			rows = append(rows, table.Row{
				pt.PointNumber,
				tableLabel(pt.TableName, pt.TableAlias),
				pt.ColumnName,
				pt.PointType,
				p.priority(pt.Priority),
				pt.Score,
				p.coverage(pt.Coverage),
				index,
			})
		}
		tw.table(table.Row{"#", "Table", "Column", "Type", "Priority", "Score", "Coverage", "Index"}, rows)
	}

	if recs := d.Recommendations; len(recs) > 0 {
		tw.printf("\nRecommendations\n")
		rows := make([]table.Row, 0, len(recs))
		for _, r := range recs {
			rows = append(rows, table.Row{p.priority(r.Priority), joinInts(r.PointNumbers), r.DDL, r.ExpectedImprovement})
		}
		tw.table(table.Row{"Priority", "Points", "DDL", "Expected"}, rows)
	} else if s.IndexPointCount > 0 && s.MissingIndexCount == 0 {
		tw.printf("\nAll index points are covered.\n")
	}

	if d.Hints != "" {
		tw.printf("\nHints: %s\n", d.Hints)
	}
	for _, warn := range resp.Metadata.Warnings {
		tw.printf("warning: %s\n", warn)
	}
}

func tableLabel(name, alias string) string {
	if alias == "" || strings.EqualFold(alias, name) {
		return name
	}
	return name + " " + alias
}

func joinInts(ns []int) string {
	parts := make([]string, len(ns))
	for i, n := range ns {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ",")
}

// recommendationLocation is schema.table.column for a recommendation.
func recommendationLocation(r analyzer.Recommendation) string {
	loc := r.TableName + "." + r.ColumnName
	if r.Schema != "" {
		loc = r.Schema + "." + loc
	}
	return loc
}
