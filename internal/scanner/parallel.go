package scanner

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"runtime"
	"strings"

	"golang.org/x/sync/errgroup"
)

// fileResult holds the scan result for a single file.
type fileResult struct {
	stmts    []Statement
	skipped  int
	err      error
	filePath string
}

// ScanParallel walks a directory using N goroutines.
// workers=0 means runtime.NumCPU(). workers=1 is sequential.
func ScanParallel(root string, opts Options, workers int) (ScanResult, error) {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers == 1 {
		return Scan(root, opts)
	}

	// Phase 1: collect file paths
	var paths []string
	skipped := 0

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
			skipped++
			return nil
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return ScanResult{Root: root}, fmt.Errorf("walk %s: %w", root, err)
	}

	// Phase 2: fan out, one result slot per path
	results := make([]fileResult, len(paths))
	var g errgroup.Group
	g.SetLimit(workers)
	for i, path := range paths {
		g.Go(func() error {
			relPath, _ := filepath.Rel(root, path)
			stmts, n, err := scanFile(path, relPath)
			results[i] = fileResult{stmts: stmts, skipped: n, err: err, filePath: relPath}
			return nil
		})
	}
	_ = g.Wait()

	// Phase 3: merge in walk order; the first failing path wins
	result := ScanResult{
		Root:         root,
		FilesSkipped: skipped,
	}

	for _, fr := range results {
		if fr.err != nil {
			return result, fmt.Errorf("scan %s: %w", fr.filePath, fr.err)
		}
		result.Statements = append(result.Statements, fr.stmts...)
		result.SkippedStatements += fr.skipped
		result.FilesScanned++
	}

	sortStatements(result.Statements)
	return result, nil
}
