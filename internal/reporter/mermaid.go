package reporter

import (
	"fmt"
	"io"
	"strings"

	"github.com/ppiankov/oraspectre/internal/analyzer"
)

// writeMermaid renders each successful analysis as a flowchart. Nodes list
// their numbered columns; outer joins are dashed edges; the entry table is
// highlighted.
func writeMermaid(w io.Writer, report *Report) error {
	tw := &textWriter{w: w}
	for i, e := range report.Entries {
		if i > 0 {
			tw.printf("\n")
		}
		if loc := e.Location(); loc != "" {
			tw.printf("%%%% %s\n", loc)
		}
		resp := e.Response
		if resp == nil || !resp.Success || resp.Data == nil {
			msg := "analysis failed"
			if resp != nil && resp.Error != nil {
				msg = resp.Error.Error()
			}
			tw.printf("%%%% %s\n", msg)
			continue
		}
		tw.printf("%s", Mermaid(resp.Data.Diagram))
	}
	return tw.err
}

// Mermaid renders a diagram as Mermaid flowchart text.
func Mermaid(d analyzer.Diagram) string {
	var b strings.Builder
	b.WriteString("flowchart LR\n")

	var entry []string
	for _, n := range d.Nodes {
		lines := []string{nodeTitle(n)}
		for _, c := range n.Columns {
			lines = append(lines, columnLine(c))
		}
		fmt.Fprintf(&b, "    %s[\"%s\"]\n", n.TableID, strings.Join(lines, "<br/>"))
		if n.IsEntry {
			entry = append(entry, n.TableID)
		}
	}

	for _, e := range d.Edges {
		label := edgeLabel(e)
		arrow := "-->"
		if e.LineStyle == analyzer.LineDashed {
			arrow = "-.->"
		}
		if label == "" {
			fmt.Fprintf(&b, "    %s %s %s\n", e.SourceTableID, arrow, e.TargetTableID)
		} else {
			fmt.Fprintf(&b, "    %s %s|\"%s\"| %s\n", e.SourceTableID, arrow, label, e.TargetTableID)
		}
	}

	if len(entry) > 0 {
		b.WriteString("    classDef entry stroke-width:3px\n")
		fmt.Fprintf(&b, "    class %s entry\n", strings.Join(entry, ","))
	}
	return b.String()
}

func nodeTitle(n analyzer.DiagramNode) string {
	title := n.TableName
	if n.Schema != "" {
		title = n.Schema + "." + title
	}
	if n.Alias != "" && !strings.EqualFold(n.Alias, n.TableName) {
		title += " " + n.Alias
	}
	if n.AccessOrder > 0 {
		title = fmt.Sprintf("%d. %s", n.AccessOrder, title)
	}
	if n.IsOuterJoinTarget {
		title += " (outer)"
	}
	return mermaidEscape(title)
}

func columnLine(c analyzer.DiagramColumn) string {
	var b strings.Builder
	if c.Position > 0 {
		fmt.Fprintf(&b, "(%d) ", c.Position)
	}
	b.WriteString(c.Name)
	kind := string(c.ConditionType)
	if c.PointType != "" {
		kind = string(c.PointType)
	}
	fmt.Fprintf(&b, " %s", kind)
	switch {
	case c.HasIndex:
		fmt.Fprintf(&b, " [%s]", c.IndexName)
	case c.Position > 0:
		b.WriteString(" [no index]")
	}
	return mermaidEscape(b.String())
}

func edgeLabel(e analyzer.DiagramEdge) string {
	switch {
	case e.SourceColumn != "" && e.TargetColumn != "":
		return mermaidEscape(e.SourceColumn + " = " + e.TargetColumn)
	case e.SourceColumn != "":
		return mermaidEscape(e.SourceColumn)
	case e.TargetColumn != "":
		return mermaidEscape(e.TargetColumn)
	}
	return ""
}

var mermaidReplacer = strings.NewReplacer(`"`, "#quot;", "<", "#lt;", ">", "#gt;", "|", "#124;")

func mermaidEscape(s string) string {
	return mermaidReplacer.Replace(s)
}
