package testutil

import (
	"context"
	"fmt"
	"os"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

// SeedSQL creates the orders/customers schema used by metadata provider
// integration tests.
const SeedSQL = `
CREATE TABLE customers (
	id SERIAL PRIMARY KEY,
	name TEXT NOT NULL,
	email TEXT NOT NULL
);

CREATE TABLE orders (
	id SERIAL PRIMARY KEY,
	cust_id INTEGER NOT NULL REFERENCES customers(id),
	status TEXT NOT NULL DEFAULT 'OPEN',
	created TIMESTAMPTZ DEFAULT NOW()
);

CREATE INDEX idx_orders_cust_created ON orders (cust_id, created DESC);
CREATE INDEX idx_customers_lower_email ON customers (lower(email));

INSERT INTO customers (name, email) VALUES
	('Alice', 'alice@example.com'),
	('Bob', 'bob@example.com'),
	('Charlie', 'charlie@example.com');

INSERT INTO orders (cust_id, status) VALUES
	(1, 'OPEN'),
	(1, 'CLOSED'),
	(2, 'OPEN'),
	(3, 'SHIPPED');

ANALYZE;
`

const testDBEnv = "ORASPECTRE_TEST_DB_URL"

// runPostgresContainer starts a PG container, recovering from panics if Docker is unavailable.
func runPostgresContainer(ctx context.Context) (container *postgres.PostgresContainer, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%v", r)
		}
	}()
	return postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
	)
}

func seedDatabase(ctx context.Context, connStr string) error {
	conn, err := pgx.Connect(ctx, connStr)
	if err != nil {
		return fmt.Errorf("seed connect: %w", err)
	}
	if _, err := conn.Exec(ctx, SeedSQL); err != nil {
		_ = conn.Close(ctx)
		return fmt.Errorf("seed: %w", err)
	}
	return conn.Close(ctx)
}

// Setup starts a PostgreSQL container, seeds it and returns the connection
// string and a cleanup function. If ORASPECTRE_TEST_DB_URL is set, that
// database is seeded instead of starting Docker.
func Setup() (string, func(), error) {
	ctx := context.Background()

	if connStr := os.Getenv(testDBEnv); connStr != "" {
		if err := seedDatabase(ctx, connStr); err != nil {
			return "", nil, fmt.Errorf("seed %s: %w", testDBEnv, err)
		}
		return connStr, func() {}, nil
	}

	container, err := runPostgresContainer(ctx)
	if err != nil {
		return "", nil, fmt.Errorf("docker not available: %w", err)
	}

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = container.Terminate(ctx)
		return "", nil, fmt.Errorf("connection string: %w", err)
	}

	if err := seedDatabase(ctx, connStr); err != nil {
		_ = container.Terminate(ctx)
		return "", nil, err
	}

	cleanup := func() {
		_ = container.Terminate(ctx)
	}
	return connStr, cleanup, nil
}

// SetupPostgres starts and seeds a PostgreSQL database, skipping the test
// when Docker is not available.
func SetupPostgres(t *testing.T) (string, func()) {
	t.Helper()
	connStr, cleanup, err := Setup()
	if err != nil {
		t.Skipf("skipping: %v", err)
	}
	return connStr, cleanup
}
