package engine

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/oraspectre/internal/analyzer"
	"github.com/ppiankov/oraspectre/internal/metadata"
)

const ordersCustomers = "SELECT * FROM orders o JOIN customers c ON o.cust_id = c.id WHERE o.status = 'OPEN'"

func staticProvider(indexes map[string][]metadata.ExistingIndex) *metadata.Static {
	m := metadata.NewIndexMap()
	for table, idx := range indexes {
		for _, i := range idx {
			m.Add(table, i)
		}
	}
	return &metadata.Static{Indexes: m, Stats: metadata.NewStatsMap()}
}

func failingProvider(err error) metadata.Provider {
	return metadata.ProviderFunc(func(context.Context, string, string, []string) (metadata.IndexMap, error) {
		return nil, err
	})
}

func analyze(t *testing.T, e *Engine, req Request) *Response {
	t.Helper()
	resp := e.Analyze(context.Background(), req)
	require.NotNil(t, resp)
	assert.NotEmpty(t, resp.Metadata.AnalysisID)
	assert.Equal(t, ParserVersion, resp.Metadata.ParserVersion)
	assert.False(t, resp.Metadata.Timestamp.IsZero())
	assert.GreaterOrEqual(t, resp.Metadata.ExecutionTimeMs, int64(0))
	return resp
}

func point(t *testing.T, resp *Response, table, column string) analyzer.IndexPoint {
	t.Helper()
	for _, pt := range resp.Data.Analysis.IndexPoints {
		if pt.TableName == table && pt.ColumnName == column {
			return pt
		}
	}
	t.Fatalf("no point for %s.%s", table, column)
	return analyzer.IndexPoint{}
}

func TestScenarioNoIndexes(t *testing.T) {
	e := New(staticProvider(nil))
	resp := analyze(t, e, Request{SQL: ordersCustomers, ConnectionID: "prod"})

	require.True(t, resp.Success)
	require.Nil(t, resp.Error)
	assert.Equal(t, StageSucceeded, resp.Metadata.Stage)
	assert.False(t, resp.Metadata.Degraded)

	a := resp.Data.Analysis
	require.Len(t, a.Tables, 2)
	assert.Equal(t, []string{a.Tables[0].ID, a.Tables[1].ID}, a.AccessOrder)
	assert.Equal(t, "orders", a.Tables[0].Name)

	status := point(t, resp, "orders", "status")
	assert.Equal(t, analyzer.PointEntry, status.PointType)
	assert.Equal(t, analyzer.PriorityCritical, status.Priority)
	for _, col := range [][2]string{{"orders", "cust_id"}, {"customers", "id"}} {
		pt := point(t, resp, col[0], col[1])
		assert.Equal(t, analyzer.PointJoin, pt.PointType)
		assert.Equal(t, analyzer.PriorityHigh, pt.Priority)
	}

	var ddl int
	for _, r := range resp.Data.Recommendations {
		if strings.HasPrefix(r.DDL, "CREATE INDEX") {
			ddl++
		}
	}
	assert.GreaterOrEqual(t, ddl, 2)
	assert.Less(t, resp.Data.Summary.OverallHealthScore, 50)
	assert.Empty(t, resp.Data.Hints, "hints are opt-in")
}

func TestScenarioExistingIndex(t *testing.T) {
	e := New(staticProvider(map[string][]metadata.ExistingIndex{
		"CUSTOMERS": {{IndexName: "PK_CUSTOMERS", Columns: []string{"ID"}, Unique: true}},
	}))
	resp := analyze(t, e, Request{SQL: ordersCustomers, ConnectionID: "prod"})
	require.True(t, resp.Success)

	id := point(t, resp, "customers", "id")
	assert.False(t, id.NeedsIndex)
	assert.Equal(t, analyzer.PriorityLow, id.Priority)
	require.NotNil(t, id.ExistingIndex)
	assert.Equal(t, "PK_CUSTOMERS", id.ExistingIndex.IndexName)

	for _, r := range resp.Data.Recommendations {
		assert.False(t, r.TableName == "customers" && r.ColumnName == "id", "covered point recommended: %+v", r)
	}
}

func TestScenarioOuterJoin(t *testing.T) {
	for _, sql := range []string{
		"SELECT * FROM a LEFT OUTER JOIN b ON a.x = b.y",
		"SELECT * FROM a LEFT OUTER JOIN b ON a.x = b.y WHERE b.z = 'Q'",
	} {
		t.Run(sql, func(t *testing.T) {
			resp := analyze(t, New(staticProvider(nil)), Request{SQL: sql, ConnectionID: "prod"})
			require.True(t, resp.Success)

			a := resp.Data.Analysis
			require.Len(t, a.Tables, 2)
			assert.Equal(t, "b", a.Tables[1].Name)
			assert.True(t, a.Tables[1].IsOuterJoinTarget)
			assert.Equal(t, []string{a.Tables[0].ID, a.Tables[1].ID}, a.AccessOrder)
			require.Len(t, resp.Data.Diagram.Edges, 1)
			assert.Equal(t, analyzer.LineDashed, resp.Data.Diagram.Edges[0].LineStyle)
		})
	}
}

func TestScenarioUnsupported(t *testing.T) {
	e := New(staticProvider(nil))

	proc := analyze(t, e, Request{SQL: "BEGIN NULL; END;", ConnectionID: "prod"})
	require.False(t, proc.Success)
	require.NotNil(t, proc.Error)
	assert.Nil(t, proc.Data)
	assert.Equal(t, CodeUnsupportedSyntax, proc.Error.Code)
	assert.Equal(t, StageFailed, proc.Metadata.Stage)
	assert.Contains(t, proc.Error.Message, "extract")
	assert.Contains(t, proc.Error.Message, "INSERT ... SELECT")

	ins := analyze(t, e, Request{SQL: "INSERT INTO t VALUES (1,2,3)", ConnectionID: "prod"})
	require.False(t, ins.Success)
	assert.Equal(t, CodeUnsupportedSyntax, ins.Error.Code)
	assert.NotEqual(t, proc.Error.Message, ins.Error.Message)
}

func TestScenarioProviderFails(t *testing.T) {
	e := New(failingProvider(errors.New("ORA-12541: TNS:no listener")))
	resp := analyze(t, e, Request{SQL: ordersCustomers, ConnectionID: "prod"})

	require.True(t, resp.Success)
	assert.True(t, resp.Metadata.Degraded)
	require.NotEmpty(t, resp.Metadata.Warnings)
	assert.Contains(t, resp.Metadata.Warnings[0], "ORA-12541")
	for _, pt := range resp.Data.Analysis.IndexPoints {
		assert.Nil(t, pt.ExistingIndex)
		assert.True(t, pt.NeedsIndex)
		assert.Equal(t, analyzer.CoverageUnknown, pt.Coverage)
		assert.NotEqual(t, analyzer.PriorityLow, pt.Priority)
	}
	assert.NotEmpty(t, resp.Data.Recommendations)
}

func TestNilProviderIsDegraded(t *testing.T) {
	resp := analyze(t, New(nil), Request{SQL: ordersCustomers, ConnectionID: "offline"})
	require.True(t, resp.Success)
	assert.True(t, resp.Metadata.Degraded)
}

func TestProviderTimeout(t *testing.T) {
	slow := metadata.ProviderFunc(func(ctx context.Context, _, _ string, _ []string) (metadata.IndexMap, error) {
		time.Sleep(2 * time.Second)
		return metadata.NewIndexMap(), nil
	})
	e := New(slow, WithFetchTimeout(50*time.Millisecond))

	start := time.Now()
	resp := analyze(t, e, Request{SQL: ordersCustomers, ConnectionID: "prod"})
	assert.Less(t, time.Since(start), time.Second)
	require.True(t, resp.Success)
	assert.True(t, resp.Metadata.Degraded)
	assert.Contains(t, resp.Metadata.Warnings[0], "deadline exceeded")
}

func TestProviderPanicDegrades(t *testing.T) {
	p := metadata.ProviderFunc(func(context.Context, string, string, []string) (metadata.IndexMap, error) {
		panic("driver bug")
	})
	resp := analyze(t, New(p), Request{SQL: ordersCustomers, ConnectionID: "prod"})
	require.True(t, resp.Success)
	assert.True(t, resp.Metadata.Degraded)
}

func TestInvalidRequests(t *testing.T) {
	tests := []struct {
		name string
		req  Request
		code ErrorCode
	}{
		{"empty sql", Request{SQL: "  ", ConnectionID: "prod"}, CodeInvalidSQL},
		{"missing connection", Request{SQL: ordersCustomers}, CodeInvalidSQL},
		{"comment only", Request{SQL: "-- nothing", ConnectionID: "prod"}, CodeInvalidSQL},
		{"merge", Request{SQL: "MERGE INTO t USING s ON (t.id = s.id) WHEN MATCHED THEN UPDATE SET t.v = s.v", ConnectionID: "prod"}, CodeUnsupportedSyntax},
		{"two statements", Request{SQL: "SELECT 1 FROM a; SELECT 2 FROM b", ConnectionID: "prod"}, CodeUnsupportedSyntax},
		{"delete without where", Request{SQL: "DELETE FROM t", ConnectionID: "prod"}, CodeUnsupportedSyntax},
		{"no tables", Request{SQL: "SELECT 1", ConnectionID: "prod"}, CodeParseError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := analyze(t, New(nil), tt.req)
			require.False(t, resp.Success)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.code, resp.Error.Code)
			assert.NotEmpty(t, resp.Error.Message)
		})
	}
}

func TestAnalysisPanicIsInternalError(t *testing.T) {
	e := New(nil)
	e.analyze = func(analyzer.Input) *analyzer.Result { panic("index out of range") }

	resp := analyze(t, e, Request{SQL: ordersCustomers, ConnectionID: "prod"})
	require.False(t, resp.Success)
	assert.Equal(t, CodeInternalError, resp.Error.Code)
	assert.Contains(t, resp.Error.Message, "index out of range")
	assert.Equal(t, StageFailed, resp.Metadata.Stage)
}

func TestOptions(t *testing.T) {
	off := false
	e := New(staticProvider(nil))
	resp := analyze(t, e, Request{
		SQL:          ordersCustomers,
		ConnectionID: "prod",
		Owner:        "sales",
		Options:      Options{IncludeHints: true, IncludeRecommendations: &off},
	})
	require.True(t, resp.Success)
	assert.Empty(t, resp.Data.Recommendations)
	assert.Equal(t, "/*+ LEADING(o c) USE_NL(c) */", resp.Data.Hints)

	resp = analyze(t, e, Request{
		SQL:          ordersCustomers,
		ConnectionID: "prod",
		Owner:        "sales",
		Options:      Options{TargetSchema: "dw"},
	})
	require.NotEmpty(t, resp.Data.Recommendations)
	assert.Contains(t, resp.Data.Recommendations[0].DDL, " ON DW.orders(")
}

func TestStatisticsOption(t *testing.T) {
	p := staticProvider(nil)
	p.Stats.Add("ORDERS", "STATUS", metadata.ColumnStats{NumDistinct: 1, NumRows: 1000})
	e := New(p)

	resp := analyze(t, e, Request{
		SQL:          ordersCustomers,
		ConnectionID: "prod",
		Options:      Options{IncludeStatistics: true},
	})
	require.True(t, resp.Success)
	var found bool
	for _, c := range resp.Data.Analysis.Columns {
		if c.ColumnName == "status" {
			found = true
			assert.Equal(t, analyzer.StatsSourceStatistics, c.StatsSource)
			assert.False(t, c.IsIndexable, "every row matches")
		}
	}
	assert.True(t, found)

	noStats := New(failingProvider(nil))
	resp = analyze(t, noStats, Request{SQL: ordersCustomers, ConnectionID: "prod", Options: Options{IncludeStatistics: true}})
	require.True(t, resp.Success)
	assert.False(t, resp.Metadata.Degraded)
	assert.NotEmpty(t, resp.Metadata.Warnings)
}

func TestSchemaGrouping(t *testing.T) {
	var calls atomic.Int32
	seen := make(chan string, 4)
	p := metadata.ProviderFunc(func(_ context.Context, conn, schema string, tables []string) (metadata.IndexMap, error) {
		calls.Add(1)
		seen <- schema + ":" + strings.Join(tables, ",")
		assert.Equal(t, "prod", conn)
		return metadata.NewIndexMap(), nil
	})
	resp := analyze(t, New(p), Request{
		SQL:          "SELECT * FROM hr.emp e JOIN dept d ON e.dept_id = d.id JOIN emp m ON e.mgr = m.id",
		ConnectionID: "prod",
		Owner:        "APP",
	})
	require.True(t, resp.Success)
	assert.Equal(t, int32(2), calls.Load())
	close(seen)
	var got []string
	for s := range seen {
		got = append(got, s)
	}
	assert.Equal(t, []string{"APP:dept,emp", "hr:emp"}, got)
}

func TestDeterministicResponses(t *testing.T) {
	e := New(staticProvider(nil))
	sql := "SELECT * FROM a JOIN b ON a.k = b.k LEFT JOIN c ON b.m = c.m WHERE a.x = 1 AND b.y = 2 ORDER BY c.z"

	first := analyze(t, e, Request{SQL: sql, ConnectionID: "prod"})
	want, err := json.Marshal(first.Data)
	require.NoError(t, err)
	for range 10 {
		again := analyze(t, e, Request{SQL: sql, ConnectionID: "prod"})
		got, err := json.Marshal(again.Data)
		require.NoError(t, err)
		assert.JSONEq(t, string(want), string(got))
		assert.NotEqual(t, first.Metadata.AnalysisID, again.Metadata.AnalysisID)
	}
}

func TestResponseJSONShape(t *testing.T) {
	resp := analyze(t, New(nil), Request{SQL: "BEGIN NULL; END;", ConnectionID: "prod"})
	raw, err := json.Marshal(resp)
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(raw, &m))
	assert.Equal(t, false, m["success"])
	assert.NotContains(t, m, "data")
	assert.Equal(t, "UNSUPPORTED_SYNTAX", m["error"].(map[string]any)["code"])
	assert.Contains(t, m["metadata"].(map[string]any), "analysisId")
}
