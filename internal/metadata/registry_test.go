package metadata

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const snapshotYAML = `
indexes:
  CUSTOMERS:
    - name: PK_CUSTOMERS
      columns: [ID]
      unique: true
  orders:
    - name: IX_ORDERS_CUST
      columns: [cust_id, created]
stats:
  ORDERS:
    STATUS: {num_distinct: 4, num_nulls: 0, num_rows: 1000}
`

func writeSnapshot(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "indexes.yml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadFile(t *testing.T) {
	s, err := LoadFile(writeSnapshot(t, snapshotYAML))
	require.NoError(t, err)

	assert.Equal(t, 2, s.Indexes.Len())
	cust := s.Indexes.For("customers")
	require.Len(t, cust, 1)
	assert.True(t, cust[0].Unique)
	orders := s.Indexes.For("ORDERS")
	require.Len(t, orders, 1)
	assert.Equal(t, 1, orders[0].Position("CREATED"))

	st, ok := s.Stats.Lookup("orders", "status")
	require.True(t, ok)
	assert.Equal(t, int64(4), st.NumDistinct)
}

func TestLoadFileErrors(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.yml"))
	assert.ErrorContains(t, err, "read index file")

	_, err = LoadFile(writeSnapshot(t, "indexes: [not a map"))
	assert.ErrorContains(t, err, "parse index file")

	_, err = LoadFile(writeSnapshot(t, "indexes:\n  T:\n    - columns: [A]\n"))
	assert.ErrorContains(t, err, "needs a name and columns")
}

func TestStaticFiltersTables(t *testing.T) {
	s, err := ParseSnapshot([]byte(snapshotYAML))
	require.NoError(t, err)

	got, err := s.IndexesForTables(context.Background(), "x", "", []string{"Orders"})
	require.NoError(t, err)
	assert.Equal(t, 1, got.Len())
	assert.Empty(t, got.For("customers"))

	stats, err := s.ColumnStatsForTables(context.Background(), "x", "", []string{"customers"})
	require.NoError(t, err)
	assert.Empty(t, stats)
}

func TestRegistryOpensOnce(t *testing.T) {
	var (
		mu    sync.Mutex
		opens int
	)
	static := &Static{Indexes: NewIndexMap()}
	static.Indexes.Add("T", ExistingIndex{IndexName: "IX_T", Columns: []string{"A"}})
	open := func(_ context.Context, c Connection) (Provider, error) {
		mu.Lock()
		opens++
		mu.Unlock()
		return static, nil
	}
	r := NewRegistry([]Connection{{ID: "prod", Driver: DriverOracle}}, open)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := r.IndexesForTables(context.Background(), "prod", "", []string{"t"})
			assert.NoError(t, err)
			assert.Equal(t, 1, got.Len())
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, opens)
	assert.NoError(t, r.Close())
}

func TestRegistryUnknownConnection(t *testing.T) {
	r := NewRegistry(nil, nil)
	_, err := r.IndexesForTables(context.Background(), "nope", "", []string{"t"})
	assert.ErrorIs(t, err, ErrUnknownConnection)
	assert.False(t, r.Has("nope"))
}

func TestRegistryOpenError(t *testing.T) {
	boom := errors.New("ORA-01017: invalid username/password")
	r := NewRegistry([]Connection{{ID: "prod"}}, func(context.Context, Connection) (Provider, error) {
		return nil, boom
	})
	_, err := r.IndexesForTables(context.Background(), "prod", "", nil)
	assert.ErrorIs(t, err, boom)
	assert.ErrorContains(t, err, "open connection prod")
}

func TestRegistryDefaultSchema(t *testing.T) {
	var gotSchema string
	p := ProviderFunc(func(_ context.Context, _, schema string, _ []string) (IndexMap, error) {
		gotSchema = schema
		return NewIndexMap(), nil
	})
	r := NewRegistry([]Connection{{ID: "prod", Schema: "SALES"}}, func(context.Context, Connection) (Provider, error) {
		return p, nil
	})

	_, err := r.IndexesForTables(context.Background(), "prod", "", nil)
	require.NoError(t, err)
	assert.Equal(t, "SALES", gotSchema)

	_, err = r.IndexesForTables(context.Background(), "prod", "HR", nil)
	require.NoError(t, err)
	assert.Equal(t, "HR", gotSchema)

	_, err = r.ColumnStatsForTables(context.Background(), "prod", "", nil)
	assert.ErrorIs(t, err, ErrNoStats)
}

func TestRegistryFileDriver(t *testing.T) {
	path := writeSnapshot(t, snapshotYAML)
	r := NewRegistry([]Connection{{ID: "snap", Driver: DriverFile, Path: path}, {ID: "a"}}, nil)
	assert.Equal(t, []string{"a", "snap"}, r.IDs())

	got, err := r.IndexesForTables(context.Background(), "snap", "", []string{"customers"})
	require.NoError(t, err)
	assert.Equal(t, "PK_CUSTOMERS", got.For("CUSTOMERS")[0].IndexName)

	stats, err := r.ColumnStatsForTables(context.Background(), "snap", "", []string{"orders"})
	require.NoError(t, err)
	_, ok := stats.Lookup("ORDERS", "STATUS")
	assert.True(t, ok)
}

func TestOpenConnectionUnsupportedDriver(t *testing.T) {
	_, err := OpenConnection(context.Background(), Connection{ID: "x", Driver: "mysql"})
	assert.ErrorContains(t, err, `unsupported driver "mysql"`)
}
