package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/ppiankov/oraspectre/internal/analyzer"
	"github.com/ppiankov/oraspectre/internal/metadata"
)

const (
	fileName        = ".oraspectre.yml"
	defaultTimeout  = 10 * time.Second
	envDBURL        = "ORASPECTRE_DB_URL"
	envDriver       = "ORASPECTRE_DRIVER"
	envConnectionID = "default"
)

// Config holds all oraspectre configuration.
type Config struct {
	Connections []Connection `yaml:"connections"`
	Scoring     Scoring      `yaml:"scoring"`
	Exclude     Exclude      `yaml:"exclude"`
	Defaults    Defaults     `yaml:"defaults"`
}

// Connection names one index metadata source.
type Connection struct {
	ID     string `yaml:"id"`
	Driver string `yaml:"driver"` // oracle, postgres or file
	URL    string `yaml:"url"`
	Schema string `yaml:"schema"`
	Path   string `yaml:"path"` // snapshot file for the file driver
}

// Scoring tunes the column candidacy scorer and health score.
type Scoring struct {
	DefaultSelectivity float64 `yaml:"default_selectivity"`
	DefaultNullRatio   float64 `yaml:"default_null_ratio"`
	MinCandidateScore  int     `yaml:"min_candidate_score"`
	CriticalPenalty    int     `yaml:"critical_penalty"`
}

// Exclude lists tables and point types whose recommendations are dropped.
type Exclude struct {
	Tables     []string `yaml:"tables"`
	PointTypes []string `yaml:"point_types"`
}

// Defaults holds default CLI flag values.
type Defaults struct {
	Format   string `yaml:"format"`
	Timeout  string `yaml:"timeout"` // metadata fetch bound, parsed as time.Duration
	Listen   string `yaml:"listen"`
	Parallel int    `yaml:"parallel"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Config {
	s := analyzer.DefaultScoring()
	return Config{
		Scoring: Scoring{
			DefaultSelectivity: s.DefaultSelectivity,
			DefaultNullRatio:   s.DefaultNullRatio,
			MinCandidateScore:  s.MinCandidateScore,
			CriticalPenalty:    s.CriticalPenalty,
		},
		Defaults: Defaults{
			Format:  "text",
			Timeout: "10s",
			Listen:  ":8080",
		},
	}
}

// Load reads configuration from .oraspectre.yml in the given directory,
// falling back to ~/.oraspectre.yml, then applies environment overrides.
// Returns DefaultConfig if no file found.
func Load(dir string) (Config, error) {
	cfg := DefaultConfig()

	paths := []string{filepath.Join(dir, fileName)}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, fileName))
	}

	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("%s: %w", path, err)
		}
		break
	}

	cfg.applyEnv(os.Getenv)
	return cfg, cfg.Validate()
}

// applyEnv adds or replaces the "default" connection from
// ORASPECTRE_DB_URL and ORASPECTRE_DRIVER.
func (c *Config) applyEnv(getenv func(string) string) {
	url := getenv(envDBURL)
	if url == "" {
		return
	}
	c.SetConnection(Connection{ID: envConnectionID, Driver: getenv(envDriver), URL: url})
}

// SetConnection adds conn, replacing any connection with the same id.
func (c *Config) SetConnection(conn Connection) {
	if conn.Driver == "" {
		conn.Driver = metadata.DriverOracle
	}
	for i := range c.Connections {
		if c.Connections[i].ID == conn.ID {
			c.Connections[i] = conn
			return
		}
	}
	c.Connections = append(c.Connections, conn)
}

// Validate checks connection entries.
func (c *Config) Validate() error {
	seen := make(map[string]bool, len(c.Connections))
	for i, conn := range c.Connections {
		if conn.ID == "" {
			return fmt.Errorf("connections[%d]: id is required", i)
		}
		if seen[conn.ID] {
			return fmt.Errorf("connections[%d]: duplicate id %q", i, conn.ID)
		}
		seen[conn.ID] = true
		switch conn.Driver {
		case metadata.DriverOracle, metadata.DriverPostgres, "":
			if conn.URL == "" {
				return fmt.Errorf("connection %s: url is required", conn.ID)
			}
		case metadata.DriverFile:
			if conn.Path == "" {
				return fmt.Errorf("connection %s: path is required", conn.ID)
			}
		default:
			return fmt.Errorf("connection %s: unsupported driver %q", conn.ID, conn.Driver)
		}
	}
	return nil
}

// MetadataConnections converts the connection list for metadata.NewRegistry.
func (c *Config) MetadataConnections() []metadata.Connection {
	out := make([]metadata.Connection, len(c.Connections))
	for i, conn := range c.Connections {
		out[i] = metadata.Connection{
			ID:     conn.ID,
			Driver: conn.Driver,
			URL:    conn.URL,
			Schema: conn.Schema,
			Path:   conn.Path,
		}
	}
	return out
}

// ScoringConfig returns the scorer settings, substituting defaults for
// non-positive values.
func (c *Config) ScoringConfig() analyzer.ScoringConfig {
	s := analyzer.DefaultScoring()
	if c.Scoring.DefaultSelectivity > 0 {
		s.DefaultSelectivity = c.Scoring.DefaultSelectivity
	}
	if c.Scoring.DefaultNullRatio > 0 {
		s.DefaultNullRatio = c.Scoring.DefaultNullRatio
	}
	if c.Scoring.MinCandidateScore > 0 {
		s.MinCandidateScore = c.Scoring.MinCandidateScore
	}
	if c.Scoring.CriticalPenalty > 0 {
		s.CriticalPenalty = c.Scoring.CriticalPenalty
	}
	return s
}

// TimeoutDuration parses the Defaults.Timeout string as a time.Duration.
// Returns 10s if parsing fails.
func (c *Config) TimeoutDuration() time.Duration {
	if c.Defaults.Timeout == "" {
		return defaultTimeout
	}
	d, err := time.ParseDuration(c.Defaults.Timeout)
	if err != nil || d <= 0 {
		return defaultTimeout
	}
	return d
}

// Exists reports whether dir contains a .oraspectre.yml.
func Exists(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, fileName))
	return err == nil
}
