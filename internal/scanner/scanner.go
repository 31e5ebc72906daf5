package scanner

import (
	"bufio"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ppiankov/oraspectre/internal/suppress"
)

// scriptExtensions hold SQL and PL/SQL scripts.
var scriptExtensions = map[string]bool{
	".sql": true,
	".pls": true,
	".pks": true,
	".pkb": true,
	".prc": true,
	".fnc": true,
	".trg": true,
}

// codeExtensions hold application code that may embed SQL strings.
var codeExtensions = map[string]bool{
	".go":   true,
	".py":   true,
	".js":   true,
	".ts":   true,
	".jsx":  true,
	".tsx":  true,
	".java": true,
	".kt":   true,
	".rb":   true,
	".cs":   true,
}

var skipDirs = map[string]bool{
	"node_modules": true,
	"vendor":       true,
	".git":         true,
	"__pycache__":  true,
	".venv":        true,
	"venv":         true,
	"dist":         true,
	"build":        true,
	"bin":          true,
	"target":       true,
}

// Options controls what is scanned.
type Options struct {
	// IncludeCode also extracts SQL string literals from application code.
	IncludeCode bool
}

func (o Options) wants(ext string) bool {
	return scriptExtensions[ext] || (o.IncludeCode && codeExtensions[ext])
}

// Scan walks a directory and extracts analysable SQL statements.
func Scan(root string, opts Options) (ScanResult, error) {
	result := ScanResult{Root: root}

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			if path != root && skipDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}

		ext := strings.ToLower(filepath.Ext(path))
		if !opts.wants(ext) {
			result.FilesSkipped++
			return nil
		}

		relPath, _ := filepath.Rel(root, path)
		stmts, skipped, err := scanFile(path, relPath)
		if err != nil {
			return fmt.Errorf("scan %s: %w", relPath, err)
		}

		result.Statements = append(result.Statements, stmts...)
		result.SkippedStatements += skipped
		result.FilesScanned++
		return nil
	})
	if err != nil {
		return result, fmt.Errorf("walk %s: %w", root, err)
	}

	sortStatements(result.Statements)
	return result, nil
}

func scanFile(path, relPath string) ([]Statement, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer func() { _ = f.Close() }()

	return ScanReader(f, relPath)
}

// ScanReader extracts statements from r. The name's extension selects
// script or code mode; "-" and names without a known extension are read as
// scripts.
func ScanReader(r io.Reader, name string) ([]Statement, int, error) {
	ext := strings.ToLower(filepath.Ext(name))
	code := codeExtensions[ext]

	var stmts []Statement
	skipped := 0
	add := func(st bufferedStatement, origin Origin) {
		if st.text == "" {
			return
		}
		if origin == OriginScript && !isAnalysable(st.text) {
			skipped++
			return
		}
		if origin == OriginEmbedded && !isQueryLike(st.text) {
			return
		}
		stmts = append(stmts, Statement{
			File:    name,
			Line:    st.lineNum,
			Text:    st.text,
			Origin:  origin,
			Ignored: suppress.HasInlineIgnore(st.text),
		})
	}

	buf := newSQLBuffer()
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := scanner.Text()

		if !code {
			for _, st := range buf.feedSQL(lineNum, line) {
				add(st, OriginScript)
			}
			continue
		}

		if st, buffered := buf.feedCode(lineNum, line, ext); buffered {
			if st != nil {
				add(*st, OriginEmbedded)
			}
			continue
		}
		for _, text := range ScanLine(line) {
			add(bufferedStatement{text: text, lineNum: lineNum}, OriginEmbedded)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, 0, err
	}

	if st := buf.flush(); st != nil {
		if code {
			add(*st, OriginEmbedded)
		} else {
			add(*st, OriginScript)
		}
	}
	return stmts, skipped, nil
}

func sortStatements(stmts []Statement) {
	sort.SliceStable(stmts, func(i, j int) bool {
		if stmts[i].File != stmts[j].File {
			return stmts[i].File < stmts[j].File
		}
		return stmts[i].Line < stmts[j].Line
	})
}
