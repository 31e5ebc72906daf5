package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ppiankov/oraspectre/internal/metadata"
)

func writeConfig(t *testing.T, dir, body string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, ".oraspectre.yml"), []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Scoring.MinCandidateScore != 30 {
		t.Errorf("MinCandidateScore = %d, want 30", cfg.Scoring.MinCandidateScore)
	}
	if cfg.Scoring.CriticalPenalty != 15 {
		t.Errorf("CriticalPenalty = %d, want 15", cfg.Scoring.CriticalPenalty)
	}
	if cfg.Defaults.Format != "text" {
		t.Errorf("Format = %q, want text", cfg.Defaults.Format)
	}
	if cfg.Defaults.Timeout != "10s" {
		t.Errorf("Timeout = %q, want 10s", cfg.Defaults.Timeout)
	}
	if cfg.Defaults.Listen != ":8080" {
		t.Errorf("Listen = %q, want :8080", cfg.Defaults.Listen)
	}
}

func TestLoad_NoFile(t *testing.T) {
	t.Setenv("ORASPECTRE_DB_URL", "")
	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Scoring.DefaultSelectivity != 0.1 {
		t.Errorf("expected default selectivity 0.1, got %v", cfg.Scoring.DefaultSelectivity)
	}
}

func TestLoad_FromDir(t *testing.T) {
	t.Setenv("ORASPECTRE_DB_URL", "")
	dir := t.TempDir()
	writeConfig(t, dir, `
connections:
  - id: prod
    driver: oracle
    url: "oracle://scott:tiger@db:1521/ORCLPDB1"
    schema: SALES
  - id: snap
    driver: file
    path: indexes.yml
scoring:
  min_candidate_score: 40
exclude:
  tables:
    - AUDIT_*
  point_types:
    - ORDER
defaults:
  format: json
  timeout: "5s"
  parallel: 4
`)

	cfg, err := Load(dir)
	if err != nil {
		t.Fatal(err)
	}

	if len(cfg.Connections) != 2 || cfg.Connections[0].Schema != "SALES" {
		t.Errorf("Connections = %+v", cfg.Connections)
	}
	if cfg.Scoring.MinCandidateScore != 40 {
		t.Errorf("MinCandidateScore = %d, want 40", cfg.Scoring.MinCandidateScore)
	}
	if cfg.Scoring.CriticalPenalty != 15 {
		t.Errorf("CriticalPenalty = %d, want default 15", cfg.Scoring.CriticalPenalty)
	}
	if len(cfg.Exclude.Tables) != 1 || len(cfg.Exclude.PointTypes) != 1 {
		t.Errorf("Exclude = %+v", cfg.Exclude)
	}
	if cfg.Defaults.Format != "json" || cfg.Defaults.Parallel != 4 {
		t.Errorf("Defaults = %+v", cfg.Defaults)
	}
	if cfg.TimeoutDuration() != 5*time.Second {
		t.Errorf("TimeoutDuration = %v, want 5s", cfg.TimeoutDuration())
	}

	conns := cfg.MetadataConnections()
	if conns[1].Driver != metadata.DriverFile || conns[1].Path != "indexes.yml" {
		t.Errorf("MetadataConnections = %+v", conns)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "{{invalid")

	if _, err := Load(dir); err == nil {
		t.Error("expected error for invalid YAML")
	}
}

func TestLoad_EnvConnection(t *testing.T) {
	t.Setenv("ORASPECTRE_DB_URL", "postgres://localhost/app")
	t.Setenv("ORASPECTRE_DRIVER", "postgres")

	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if len(cfg.Connections) != 1 {
		t.Fatalf("Connections = %+v", cfg.Connections)
	}
	c := cfg.Connections[0]
	if c.ID != "default" || c.Driver != "postgres" || c.URL != "postgres://localhost/app" {
		t.Errorf("env connection = %+v", c)
	}
}

func TestSetConnectionReplaces(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SetConnection(Connection{ID: "default", URL: "a"})
	cfg.SetConnection(Connection{ID: "default", URL: "b"})
	if len(cfg.Connections) != 1 || cfg.Connections[0].URL != "b" {
		t.Errorf("Connections = %+v", cfg.Connections)
	}
	if cfg.Connections[0].Driver != metadata.DriverOracle {
		t.Errorf("Driver = %q, want oracle default", cfg.Connections[0].Driver)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		conns   []Connection
		wantErr string
	}{
		{"ok", []Connection{{ID: "a", URL: "oracle://x"}, {ID: "b", Driver: "file", Path: "p.yml"}}, ""},
		{"missing id", []Connection{{URL: "oracle://x"}}, "id is required"},
		{"duplicate", []Connection{{ID: "a", URL: "x"}, {ID: "a", URL: "y"}}, "duplicate id"},
		{"missing url", []Connection{{ID: "a", Driver: "postgres"}}, "url is required"},
		{"missing path", []Connection{{ID: "a", Driver: "file"}}, "path is required"},
		{"bad driver", []Connection{{ID: "a", Driver: "mysql", URL: "x"}}, "unsupported driver"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Config{Connections: tt.conns}
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() = %v, want %q", err, tt.wantErr)
			}
		})
	}
}

func TestScoringConfig(t *testing.T) {
	cfg := Config{Scoring: Scoring{MinCandidateScore: 50}}
	s := cfg.ScoringConfig()
	if s.MinCandidateScore != 50 || s.DefaultSelectivity != 0.1 || s.CriticalPenalty != 15 {
		t.Errorf("ScoringConfig = %+v", s)
	}
}

func TestTimeoutDuration(t *testing.T) {
	tests := []struct {
		name    string
		timeout string
		want    time.Duration
	}{
		{"valid 60s", "60s", 60 * time.Second},
		{"valid 2m", "2m", 2 * time.Minute},
		{"empty", "", 10 * time.Second},
		{"invalid", "notaduration", 10 * time.Second},
		{"negative", "-1s", 10 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Config{Defaults: Defaults{Timeout: tt.timeout}}
			got := cfg.TimeoutDuration()
			if got != tt.want {
				t.Errorf("TimeoutDuration() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestExists(t *testing.T) {
	dir := t.TempDir()
	if Exists(dir) {
		t.Error("Exists() = true before writing")
	}
	writeConfig(t, dir, "defaults:\n  format: json\n")
	if !Exists(dir) {
		t.Error("Exists() = false, want true")
	}
}
