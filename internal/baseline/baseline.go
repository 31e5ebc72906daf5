package baseline

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/ppiankov/oraspectre/internal/analyzer"
)

// Baseline holds fingerprints of previously accepted recommendations.
type Baseline struct {
	Fingerprints []string `json:"fingerprints"`
	set          map[string]bool
}

// Load reads a baseline file. Returns an empty baseline if the file does not exist.
func Load(path string) (*Baseline, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &Baseline{set: make(map[string]bool)}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read baseline: %w", err)
	}

	var b Baseline
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("parse baseline: %w", err)
	}
	b.set = make(map[string]bool, len(b.Fingerprints))
	for _, fp := range b.Fingerprints {
		b.set[fp] = true
	}
	return &b, nil
}

// Save writes the baseline to a file.
func Save(path string, recs []analyzer.Recommendation) error {
	fps := make([]string, 0, len(recs))
	seen := make(map[string]bool)
	for i := range recs {
		fp := Fingerprint(&recs[i])
		if !seen[fp] {
			fps = append(fps, fp)
			seen[fp] = true
		}
	}
	sort.Strings(fps)

	b := Baseline{Fingerprints: fps}
	data, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal baseline: %w", err)
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o644)
}

// Len returns the number of fingerprints.
func (b *Baseline) Len() int {
	return len(b.set)
}

// Contains returns true if the recommendation's fingerprint is in the baseline.
func (b *Baseline) Contains(r *analyzer.Recommendation) bool {
	return b.set[Fingerprint(r)]
}

// Filter removes baselined recommendations and returns the remaining ones.
// Returns the filtered list and the number of suppressed recommendations.
func (b *Baseline) Filter(recs []analyzer.Recommendation) ([]analyzer.Recommendation, int) {
	if len(b.set) == 0 {
		return recs, 0
	}

	filtered := make([]analyzer.Recommendation, 0, len(recs))
	suppressed := 0
	for i := range recs {
		if b.Contains(&recs[i]) {
			suppressed++
		} else {
			filtered = append(filtered, recs[i])
		}
	}
	return filtered, suppressed
}

// Fingerprint computes a stable identifier for a recommendation. Identifier
// case and point numbers do not affect it, so reordering a query keeps its
// baseline.
func Fingerprint(r *analyzer.Recommendation) string {
	key := fmt.Sprintf("%s|%s|%s|%s",
		r.PointType,
		strings.ToUpper(r.Schema),
		strings.ToUpper(r.TableName),
		strings.ToUpper(r.ColumnName))
	h := sha256.Sum256([]byte(key))
	return fmt.Sprintf("%x", h[:16])
}
