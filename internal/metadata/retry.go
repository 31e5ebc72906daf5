package metadata

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"net"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

const (
	maxRetries = 3
	baseDelay  = 1 * time.Second
	maxJitter  = 500 * time.Millisecond
)

// Postgres SQLSTATEs that will not change on retry.
var pgFatalCodes = map[string]bool{
	"28P01": true, // invalid_password
	"28000": true, // invalid_authorization_specification
	"3D000": true, // invalid_catalog_name
}

// Oracle errors that will not change on retry.
var oraFatalCodes = []string{
	"ORA-01017", // invalid username/password
	"ORA-28000", // account locked
	"ORA-01045", // lacks CREATE SESSION
	"ORA-12514", // listener does not know service
}

// connectWithRetry calls connect with exponential backoff.
// Retries on transient errors (connection refused, timeout).
// Fails fast on auth and configuration errors.
func connectWithRetry[T any](ctx context.Context, connect func(context.Context) (T, error)) (T, error) {
	var (
		zero    T
		lastErr error
	)

	for attempt := range maxRetries {
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		conn, err := connect(ctx)
		if err == nil {
			if attempt > 0 {
				slog.Info("connected after retry", "attempt", attempt+1)
			}
			return conn, nil
		}

		if !isRetryable(err) {
			return zero, err
		}

		lastErr = err
		if attempt == maxRetries-1 {
			break
		}
		delay := backoffDelay(attempt)

		slog.Warn("connection failed, retrying",
			"attempt", attempt+1,
			"error", err,
			"retry_in", delay)

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(delay):
		}
	}

	return zero, lastErr
}

// isRetryable classifies errors as retryable or fail-fast.
func isRetryable(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return !pgFatalCodes[pgErr.Code]
	}
	var parseErr *pgconn.ParseConfigError
	if errors.As(err, &parseErr) {
		return false
	}

	msg := err.Error()
	for _, code := range oraFatalCodes {
		if strings.Contains(msg, code) {
			return false
		}
	}
	if strings.Contains(msg, "password authentication failed") ||
		strings.Contains(msg, "no pg_hba.conf entry") ||
		strings.Contains(msg, "no such host") {
		return false
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return dnsErr.IsTemporary
	}

	var netErr *net.OpError
	if errors.As(err, &netErr) {
		return true
	}

	// Unknown errors may be transient.
	return true
}

// backoffDelay returns exponential backoff with jitter.
func backoffDelay(attempt int) time.Duration {
	delay := baseDelay << uint(attempt) // 1s, 2s, 4s
	jitter := time.Duration(rand.Int64N(int64(maxJitter)))
	return delay + jitter
}
