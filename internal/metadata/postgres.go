package metadata

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

const defaultPostgresSchema = "public"

// indexColumnRe extracts the parenthesized column list of an index definition.
var indexColumnRe = regexp.MustCompile(`\(([^)]+)\)`)

// Postgres reads index definitions and planner statistics from the
// PostgreSQL catalog.
type Postgres struct {
	pool *pgxpool.Pool
}

// OpenPostgres connects to url and verifies the connection, retrying
// transient failures.
func OpenPostgres(ctx context.Context, url string) (*Postgres, error) {
	return connectWithRetry(ctx, func(ctx context.Context) (*Postgres, error) {
		pool, err := pgxpool.New(ctx, url)
		if err != nil {
			return nil, fmt.Errorf("connect: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("ping: %w", err)
		}
		return &Postgres{pool: pool}, nil
	})
}

// Close releases the connection pool.
func (p *Postgres) Close() {
	p.pool.Close()
}

// foldNames lower-cases table names, matching how PostgreSQL stores unquoted
// identifiers.
func foldNames(tables []string) []string {
	out := make([]string, len(tables))
	for i, t := range tables {
		out[i] = strings.ToLower(t)
	}
	return out
}

func pgSchema(schema string) string {
	if schema == "" {
		return defaultPostgresSchema
	}
	return strings.ToLower(schema)
}

// IndexesForTables returns the indexes defined on tables. Expression
// columns are dropped from the column list.
func (p *Postgres) IndexesForTables(ctx context.Context, _ string, schema string, tables []string) (IndexMap, error) {
	out := NewIndexMap()
	if len(tables) == 0 {
		return out, nil
	}

	query := `
		SELECT tablename, indexname, indexdef
		FROM pg_catalog.pg_indexes
		WHERE schemaname = $1
			AND tablename = ANY($2)
		ORDER BY tablename, indexname`

	rows, err := p.pool.Query(ctx, query, pgSchema(schema), foldNames(tables))
	if err != nil {
		return nil, fmt.Errorf("get indexes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var table, name, def string
		if err := rows.Scan(&table, &name, &def); err != nil {
			return nil, fmt.Errorf("scan index: %w", err)
		}
		cols := parseIndexColumns(def)
		if len(cols) == 0 {
			continue
		}
		out.Add(table, ExistingIndex{
			IndexName: name,
			Columns:   cols,
			Unique:    strings.HasPrefix(strings.ToUpper(def), "CREATE UNIQUE"),
		})
	}
	return out, rows.Err()
}

// ColumnStatsForTables returns planner statistics from pg_stats for the
// columns of tables.
func (p *Postgres) ColumnStatsForTables(ctx context.Context, _ string, schema string, tables []string) (StatsMap, error) {
	out := NewStatsMap()
	if len(tables) == 0 {
		return out, nil
	}

	query := `
		SELECT
			s.tablename,
			s.attname,
			s.n_distinct::float8,
			s.null_frac::float8,
			COALESCE(c.reltuples, 0)::float8
		FROM pg_catalog.pg_stats s
		JOIN pg_catalog.pg_namespace n ON n.nspname = s.schemaname
		JOIN pg_catalog.pg_class c
			ON c.relname = s.tablename
			AND c.relnamespace = n.oid
		WHERE s.schemaname = $1
			AND s.tablename = ANY($2)
		ORDER BY s.tablename, s.attname`

	rows, err := p.pool.Query(ctx, query, pgSchema(schema), foldNames(tables))
	if err != nil {
		return nil, fmt.Errorf("get column stats: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			table, column                  string
			nDistinct, nullFrac, reltuples float64
		)
		if err := rows.Scan(&table, &column, &nDistinct, &nullFrac, &reltuples); err != nil {
			return nil, fmt.Errorf("scan column stats: %w", err)
		}
		out.Add(table, column, pgColumnStats(nDistinct, nullFrac, reltuples))
	}
	return out, rows.Err()
}

// pgColumnStats converts pg_stats values. A negative n_distinct is a
// fraction of the row count; reltuples is -1 for never-analysed tables.
func pgColumnStats(nDistinct, nullFrac, reltuples float64) ColumnStats {
	rows := math.Max(reltuples, 0)
	ndv := nDistinct
	if ndv < 0 {
		ndv = -ndv * rows
	}
	return ColumnStats{
		NumDistinct: int64(math.Round(ndv)),
		NumNulls:    int64(math.Round(nullFrac * rows)),
		NumRows:     int64(math.Round(rows)),
	}
}

// parseIndexColumns extracts column names from an index definition.
func parseIndexColumns(def string) []string {
	m := indexColumnRe.FindStringSubmatch(def)
	if len(m) < 2 {
		return nil
	}

	var cols []string
	for _, part := range strings.Split(m[1], ",") {
		col := strings.TrimSpace(part)
		// Remove ASC/DESC/NULLS FIRST/NULLS LAST
		col = strings.SplitN(col, " ", 2)[0]
		if strings.Contains(col, "(") {
			continue
		}
		col = strings.Trim(col, `"`)
		if col != "" {
			cols = append(cols, col)
		}
	}
	return cols
}
