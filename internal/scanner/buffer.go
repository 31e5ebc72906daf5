package scanner

import (
	"strings"

	"github.com/ppiankov/oraspectre/internal/sqlparse"
)

// blockKind identifies the type of multi-line block being buffered.
type blockKind int

const (
	blockNone        blockKind = iota
	blockSQL                   // script: accumulate until a top-level semicolon
	blockProgram               // script: PL/SQL unit, accumulate until a "/" line
	blockBacktick              // Go/JS/TS: backtick string literal
	blockTripleQuote           // Python/Java/Kotlin: triple-quote string
)

// sqlBuffer accumulates lines that belong to a multi-line SQL construct and
// yields completed statements. Quote and comment state carries across
// lines so semicolons inside literals never split a statement.
type sqlBuffer struct {
	kind      blockKind
	lines     []string
	startLine int
	// code is set once the buffer holds something other than comments.
	code      bool
	inQuote   bool
	inComment bool
}

// bufferedStatement is a completed SQL statement with its origin line.
type bufferedStatement struct {
	text    string
	lineNum int
}

// backtickExts are file extensions that use backtick multi-line strings.
var backtickExts = map[string]bool{
	".go": true, ".js": true, ".ts": true, ".jsx": true, ".tsx": true,
}

// tripleQuoteExts are file extensions that use triple-quote multi-line strings.
var tripleQuoteExts = map[string]bool{
	".py": true, ".java": true, ".kt": true,
}

func newSQLBuffer() *sqlBuffer {
	return &sqlBuffer{}
}

func (b *sqlBuffer) active() bool {
	return b.kind != blockNone
}

func (b *sqlBuffer) reset() {
	b.kind = blockNone
	b.lines = nil
	b.startLine = 0
	b.code = false
	b.inQuote = false
	b.inComment = false
}

// take returns the buffered statement and resets the buffer.
func (b *sqlBuffer) take() bufferedStatement {
	st := bufferedStatement{text: joinLines(b.lines), lineNum: b.startLine}
	b.reset()
	return st
}

// terminate ends the current statement at a "/" line.
func (b *sqlBuffer) terminate() []bufferedStatement {
	if !b.code {
		b.reset()
		return nil
	}
	return []bufferedStatement{b.take()}
}

// feedSQL processes a line from a script. Returns completed statements when
// top-level semicolons or "/" terminator lines are encountered.
func (b *sqlBuffer) feedSQL(lineNum int, line string) []bufferedStatement {
	trimmed := strings.TrimSpace(line)

	if b.kind == blockProgram {
		if trimmed == "/" {
			return b.terminate()
		}
		b.lines = append(b.lines, line)
		return nil
	}

	if !b.inQuote && !b.inComment {
		if trimmed == "/" {
			return b.terminate()
		}
		if !b.code {
			if trimmed == "" && len(b.lines) == 0 {
				return nil
			}
			// SQL*Plus commands end at the line break and take any
			// preceding comment lines with them.
			if isSQLPlusCommand(trimmed) {
				b.reset()
				return nil
			}
		}
	}

	if b.kind == blockNone {
		b.kind = blockSQL
	}

	var out []bufferedStatement
	start := 0
	for i := 0; i < len(line); i++ {
		ch := line[i]
		next := byte(0)
		if i+1 < len(line) {
			next = line[i+1]
		}
		switch {
		case b.inComment:
			if ch == '*' && next == '/' {
				b.inComment = false
				i++
			}
		case b.inQuote:
			if ch == '\'' {
				if next == '\'' {
					i++
				} else {
					b.inQuote = false
				}
			}
		case ch == '-' && next == '-':
			i = len(line)
		case ch == '/' && next == '*':
			b.inComment = true
			i++
		case ch == ';':
			b.lines = append(b.lines, line[start:i])
			if !b.code {
				b.reset()
				b.kind = blockSQL
				start = i + 1
				continue
			}
			// The first semicolon of a PL/SQL unit is inside its body.
			if sqlparse.StartsProgramUnit(joinLines(b.lines)) {
				b.kind = blockProgram
				b.inQuote = false
				b.inComment = false
				b.lines[len(b.lines)-1] = line[start:]
				return out
			}
			out = append(out, b.take())
			b.kind = blockSQL
			start = i + 1
		case ch == ' ' || ch == '\t' || ch == '\r':
		default:
			if ch == '\'' {
				b.inQuote = true
			}
			if !b.code {
				b.code = true
				b.startLine = lineNum
			}
		}
	}

	rest := line[start:]
	if b.code || b.inComment || strings.TrimSpace(rest) != "" {
		b.lines = append(b.lines, rest)
	}
	if len(b.lines) == 0 && !b.code {
		b.kind = blockNone
	}
	return out
}

// feedCode processes a line from a code file. Returns a completed statement
// when a multi-line string block closes, and whether the line was buffered.
func (b *sqlBuffer) feedCode(lineNum int, line, ext string) (*bufferedStatement, bool) {
	if b.active() {
		b.lines = append(b.lines, line)

		switch b.kind {
		case blockBacktick:
			if containsBacktick(line) {
				text := trimAtBacktick(joinLines(b.lines))
				result := &bufferedStatement{text: strings.TrimSpace(text), lineNum: b.startLine}
				b.reset()
				return result, true
			}
		case blockTripleQuote:
			if containsTripleQuote(line) {
				text := trimAtTripleQuote(joinLines(b.lines))
				result := &bufferedStatement{text: strings.TrimSpace(text), lineNum: b.startLine}
				b.reset()
				return result, true
			}
		}
		return nil, true
	}

	if backtickExts[ext] && opensBacktickBlock(line) {
		b.kind = blockBacktick
		b.startLine = lineNum
		b.lines = []string{extractAfterBacktick(line)}
		return nil, true
	}

	if tripleQuoteExts[ext] && opensTripleQuoteBlock(line) {
		b.kind = blockTripleQuote
		b.startLine = lineNum
		b.lines = []string{extractAfterTripleQuote(line)}
		return nil, true
	}

	return nil, false
}

// flush returns a statement from any remaining buffered content. Script
// statements without a terminator and unclosed string blocks are both
// returned.
func (b *sqlBuffer) flush() *bufferedStatement {
	if len(b.lines) == 0 {
		b.reset()
		return nil
	}
	if (b.kind == blockSQL || b.kind == blockProgram) && !b.code {
		b.reset()
		return nil
	}
	lineNum := b.startLine
	text := joinLines(b.lines)
	b.reset()
	if text == "" {
		return nil
	}
	return &bufferedStatement{text: text, lineNum: lineNum}
}

// joinLines joins buffered lines and trims the outer whitespace. Line breaks
// are kept so trailing -- comments do not swallow the next line.
func joinLines(lines []string) string {
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// opensBacktickBlock returns true if the line has an odd number of unescaped
// backticks (meaning one is unclosed).
func opensBacktickBlock(line string) bool {
	count := 0
	for i := 0; i < len(line); i++ {
		if line[i] == '`' {
			if i > 0 && line[i-1] == '\\' {
				continue
			}
			count++
		}
	}
	return count%2 == 1
}

// containsBacktick returns true if the line has an unescaped backtick.
func containsBacktick(line string) bool {
	for i := 0; i < len(line); i++ {
		if line[i] == '`' {
			if i > 0 && line[i-1] == '\\' {
				continue
			}
			return true
		}
	}
	return false
}

// opensTripleQuoteBlock returns true if the line has an opening triple-quote
// that is not closed on the same line.
func opensTripleQuoteBlock(line string) bool {
	for _, delim := range []string{`"""`, `'''`} {
		idx := strings.Index(line, delim)
		if idx >= 0 {
			rest := line[idx+3:]
			if !strings.Contains(rest, delim) {
				return true
			}
		}
	}
	return false
}

func containsTripleQuote(line string) bool {
	return strings.Contains(line, `"""`) || strings.Contains(line, `'''`)
}

// extractAfterBacktick returns everything after the last unescaped backtick,
// which is the one left open.
func extractAfterBacktick(line string) string {
	for i := len(line) - 1; i >= 0; i-- {
		if line[i] == '`' && (i == 0 || line[i-1] != '\\') {
			return line[i+1:]
		}
	}
	return line
}

// extractAfterTripleQuote returns everything after the first """ or '''.
func extractAfterTripleQuote(line string) string {
	for _, delim := range []string{`"""`, `'''`} {
		if idx := strings.Index(line, delim); idx >= 0 {
			return line[idx+3:]
		}
	}
	return line
}

// trimAtBacktick truncates text at the first unescaped backtick.
func trimAtBacktick(text string) string {
	for i := 0; i < len(text); i++ {
		if text[i] == '`' && (i == 0 || text[i-1] != '\\') {
			return text[:i]
		}
	}
	return text
}

// trimAtTripleQuote truncates text at the first """ or '''.
func trimAtTripleQuote(text string) string {
	for _, delim := range []string{`"""`, `'''`} {
		if idx := strings.Index(text, delim); idx >= 0 {
			return text[:idx]
		}
	}
	return text
}
