package analyzer

import (
	"testing"

	"github.com/ppiankov/oraspectre/internal/sqlparse"
)

func TestHealthScore(t *testing.T) {
	tests := []struct {
		name                             string
		existing, total, critical, penal int
		want                             int
	}{
		{"no points", 0, 0, 0, 15, 100},
		{"all covered", 4, 4, 0, 15, 100},
		{"half covered", 2, 4, 0, 15, 50},
		{"one critical", 2, 4, 1, 15, 35},
		{"clamped at zero", 0, 3, 2, 15, 0},
		{"thirds round", 1, 3, 0, 15, 33},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := HealthScore(tt.existing, tt.total, tt.critical, tt.penal)
			if got != tt.want {
				t.Errorf("HealthScore = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestHealthScoreMonotonic(t *testing.T) {
	prev := -1
	for existing := 0; existing <= 5; existing++ {
		got := HealthScore(existing, 5, 0, 15)
		if got < prev {
			t.Errorf("coverage %d/5 scored %d, below %d", existing, got, prev)
		}
		prev = got
	}
	if HealthScore(3, 5, 1, 15) > HealthScore(3, 5, 0, 15) {
		t.Error("critical issues must not raise the score")
	}
}

func TestSummarize(t *testing.T) {
	p, err := sqlparse.Parse(ordersCustomers)
	if err != nil {
		t.Fatal(err)
	}
	points := []IndexPoint{
		{PointNumber: 1, NeedsIndex: true, Priority: PriorityHigh},
		{PointNumber: 2, NeedsIndex: true, Priority: PriorityCritical},
		{PointNumber: 3, NeedsIndex: false, Priority: PriorityLow},
	}
	s := Summarize(p, points, 15)
	want := Summary{
		TableCount:         2,
		JoinCount:          1,
		IndexPointCount:    3,
		ExistingIndexCount: 1,
		MissingIndexCount:  2,
		CriticalIssueCount: 1,
		OverallHealthScore: 18,
	}
	if s != want {
		t.Errorf("Summarize = %+v, want %+v", s, want)
	}
}

func TestHints(t *testing.T) {
	tests := []struct {
		name string
		sql  string
		want string
	}{
		{"single table", "SELECT * FROM t WHERE t.a = 1", ""},
		{"aliases", ordersCustomers, "/*+ LEADING(o c) USE_NL(c) */"},
		{"names without alias", "SELECT * FROM a, b, c WHERE a.k = b.k AND b.m = c.m", "/*+ LEADING(a b c) USE_NL(b c) */"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := sqlparse.Parse(tt.sql)
			if err != nil {
				t.Fatal(err)
			}
			order := AccessOrder(p, AnalyzeColumns(p, DefaultScoring(), nil))
			if got := Hints(order, p); got != tt.want {
				t.Errorf("Hints = %q, want %q", got, tt.want)
			}
		})
	}
}
