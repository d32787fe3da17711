package utils

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/UltimateTournament/backoff/v4"
	"github.com/cockroachdb/cockroach-go/v2/crdb/crdbpgx"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

const maxExecRetries = 5

// IsRetryableDBError reports whether running the same statement again may succeed
func IsRetryableDBError(err error) bool {
	if err == nil || IsPermanent(err) {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40003", "08006", "57P01":
			// serialization failure, statement completion unknown, connection failure, admin shutdown
			return true
		default:
			return false
		}
	}
	// a try running into its own tryTimeout, the caller's context is checked by the backoff
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	return pgconn.SafeToRetry(err) || pgconn.Timeout(err)
}

// ReliableExec acquires a pooled connection and runs f, retrying with
// exponential backoff while the error is retryable. Every try gets its own
// tryTimeout.
func ReliableExec(ctx context.Context, pool *pgxpool.Pool, tryTimeout time.Duration, f func(ctx context.Context, conn *pgxpool.Conn) error) error {
	b := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), maxExecRetries), ctx)
	return backoff.Retry(func() error {
		tryCtx, cancel := context.WithTimeout(ctx, tryTimeout)
		defer cancel()

		conn, err := pool.Acquire(tryCtx)
		if err != nil {
			return fmt.Errorf("error in pool.Acquire: %w", err)
		}
		defer conn.Release()

		err = f(tryCtx, conn)
		if err != nil && !IsRetryableDBError(err) {
			return backoff.Permanent(err)
		}
		return err
	}, b)
}

// ReliableExecInTx is ReliableExec with f running in a transaction, crdbpgx
// takes care of CockroachDB's client side transaction retries.
func ReliableExecInTx(ctx context.Context, pool *pgxpool.Pool, tryTimeout time.Duration, f func(ctx context.Context, tx pgx.Tx) error) error {
	return ReliableExec(ctx, pool, tryTimeout, func(ctx context.Context, conn *pgxpool.Conn) error {
		return crdbpgx.ExecuteTx(ctx, conn, pgx.TxOptions{}, func(tx pgx.Tx) error {
			return f(ctx, tx)
		})
	})
}
