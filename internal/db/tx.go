package db

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"log/slog"
	"time"

	cr "github.com/cockroachdb/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrTransactionBegin   = cr.New("failed to begin transaction")
	ErrTransactionCommit  = cr.New("failed to commit transaction")
	ErrMaxRetriesExceeded = cr.New("transaction failed after max retries")
)

// TxRunner runs functions inside pgx transactions, re-running them on
// serialization, deadlock and exclusion failures.
type TxRunner struct {
	pool       *pgxpool.Pool
	options    pgx.TxOptions
	maxRetries int
	backoff    time.Duration
	logger     *slog.Logger
}

// NewTxRunner creates a runner using READ COMMITTED isolation.
func NewTxRunner(pool *pgxpool.Pool, maxRetries int, logger *slog.Logger) *TxRunner {
	if maxRetries < 0 {
		maxRetries = 0
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &TxRunner{
		pool:       pool,
		options:    pgx.TxOptions{IsoLevel: pgx.ReadCommitted},
		maxRetries: maxRetries,
		backoff:    50 * time.Millisecond,
		logger:     logger,
	}
}

// Within runs fn in a transaction. fn must not keep tx after returning.
// The transaction commits when fn returns nil and rolls back otherwise.
func (r *TxRunner) Within(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) error {
	for attempt := 0; attempt <= r.maxRetries; attempt++ {
		err := r.runOnce(ctx, fn)
		if err == nil {
			return nil
		}

		if !IsRetryable(err) {
			return err
		}
		if attempt == r.maxRetries {
			r.logger.Error("transaction failed after max retries",
				"attempts", attempt+1,
				"error", err.Error())
			return cr.Mark(err, ErrMaxRetriesExceeded)
		}

		waitTime := calculateBackoff(attempt, r.backoff)
		r.logger.Warn("retrying transaction due to retryable error",
			"attempt", attempt+1,
			"wait_ms", waitTime.Milliseconds(),
			"error", err.Error())

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(waitTime):
		}
	}
	return ErrMaxRetriesExceeded
}

// runOnce avoids defer accumulation across retries.
func (r *TxRunner) runOnce(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) error {
	tx, err := r.pool.BeginTx(ctx, r.options)
	if err != nil {
		return cr.Mark(err, ErrTransactionBegin)
	}

	err = fn(ctx, tx)
	if err == nil {
		if err = tx.Commit(ctx); err == nil {
			return nil
		}
		err = cr.Mark(err, ErrTransactionCommit)
	}

	// Rollback with a fresh context so an expired request deadline still releases locks.
	rbCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	if rollbackErr := tx.Rollback(rbCtx); rollbackErr != nil && !errors.Is(rollbackErr, pgx.ErrTxClosed) {
		r.logger.Warn("rollback failed", "error", rollbackErr.Error())
	}
	return err
}

func calculateBackoff(attempt int, base time.Duration) time.Duration {
	waitTime := time.Duration(1<<attempt) * base
	jitter := cryptoRandInt63n(int64(waitTime / 5))
	return waitTime + time.Duration(jitter)
}

func cryptoRandInt63n(n int64) int64 {
	if n <= 0 {
		return 0
	}
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return 0
	}
	uval := binary.BigEndian.Uint64(buf[:]) & 0x7FFFFFFFFFFFFFFF
	return int64(uval) % n
}
