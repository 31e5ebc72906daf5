package metadata

import (
	"context"
	"reflect"
	"testing"
	"time"
)

func TestParseIndexColumns(t *testing.T) {
	tests := []struct {
		name string
		def  string
		want []string
	}{
		{
			"simple single column",
			"CREATE INDEX idx_email ON public.users USING btree (email)",
			[]string{"email"},
		},
		{
			"composite index",
			"CREATE INDEX idx_user_created ON public.orders USING btree (user_id, created_at)",
			[]string{"user_id", "created_at"},
		},
		{
			"with DESC",
			"CREATE INDEX idx_sort ON orders (created_at DESC)",
			[]string{"created_at"},
		},
		{
			"with NULLS LAST",
			"CREATE INDEX idx_sort ON orders (created_at DESC NULLS LAST)",
			[]string{"created_at"},
		},
		{
			"function-based (skipped)",
			"CREATE INDEX idx_lower ON users (lower(email))",
			nil,
		},
		{
			"quoted identifier",
			`CREATE UNIQUE INDEX "Idx" ON users ("UserName")`,
			[]string{"UserName"},
		},
		{
			"no column list",
			"garbage",
			nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseIndexColumns(tt.def)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("parseIndexColumns(%q) = %v, want %v", tt.def, got, tt.want)
			}
		})
	}
}

func TestPgColumnStats(t *testing.T) {
	tests := []struct {
		name                           string
		nDistinct, nullFrac, reltuples float64
		want                           ColumnStats
	}{
		{"absolute distinct", 4, 0, 1000, ColumnStats{NumDistinct: 4, NumNulls: 0, NumRows: 1000}},
		{"fractional distinct", -1, 0, 1000, ColumnStats{NumDistinct: 1000, NumNulls: 0, NumRows: 1000}},
		{"half distinct with nulls", -0.5, 0.1, 200, ColumnStats{NumDistinct: 100, NumNulls: 20, NumRows: 200}},
		{"never analysed", 0, 0, -1, ColumnStats{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := pgColumnStats(tt.nDistinct, tt.nullFrac, tt.reltuples)
			if got != tt.want {
				t.Errorf("pgColumnStats = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestOpenPostgres_InvalidURL(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	start := time.Now()
	_, err := OpenPostgres(ctx, "not-a-url")
	if err == nil {
		t.Fatal("expected error")
	}
	if elapsed := time.Since(start); elapsed >= baseDelay {
		t.Fatalf("expected fail-fast without retry delay, took %v", elapsed)
	}
}

func TestOpenPostgres_Unreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if _, err := OpenPostgres(ctx, "postgres://localhost:1/nonexistent"); err == nil {
		t.Fatal("expected error for unreachable server")
	}
}
