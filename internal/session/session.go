// Package session provides the per-operation unit of work: a dedicated pool
// connection paired with exactly one open transaction. Services acquire a
// session at the start of an operation, defer Release, and call Commit only
// on the success path. Release without a prior Commit rolls everything back,
// so no code path can leave partial effects committed.
package session

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/clubware/billing-service/internal/apperrors"
)

// Factory hands out sessions backed by the shared connection pool.
// Pass it to services explicitly; there is no package-level instance.
type Factory struct {
	db        *sql.DB
	isolation sql.IsolationLevel
}

// NewFactory wraps the pool. Read committed is the floor the data layer
// assumes; callers needing stricter isolation use NewFactoryWithIsolation.
func NewFactory(db *sql.DB) *Factory {
	return NewFactoryWithIsolation(db, sql.LevelReadCommitted)
}

func NewFactoryWithIsolation(db *sql.DB, level sql.IsolationLevel) *Factory {
	return &Factory{db: db, isolation: level}
}

// Acquire blocks until a connection is available or ctx is done, then opens
// a transaction on it. Failures at either step are transient: nothing was
// written and the caller may retry.
func (f *Factory) Acquire(ctx context.Context) (*Session, error) {
	conn, err := f.db.Conn(ctx)
	if err != nil {
		return nil, apperrors.Transient("failed to acquire database connection", err)
	}
	tx, err := conn.BeginTx(ctx, &sql.TxOptions{Isolation: f.isolation})
	if err != nil {
		conn.Close()
		return nil, apperrors.Transient("failed to begin transaction", err)
	}
	return &Session{conn: conn, tx: tx}, nil
}

// Session is one connection plus one open transaction. It is not safe for
// concurrent use; each logical operation owns its own session.
type Session struct {
	conn *sql.Conn
	tx   *sql.Tx

	mu        sync.Mutex
	committed bool
	released  bool
}

func (s *Session) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return s.tx.ExecContext(ctx, query, args...)
}

func (s *Session) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return s.tx.QueryContext(ctx, query, args...)
}

func (s *Session) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return s.tx.QueryRowContext(ctx, query, args...)
}

// Commit commits the transaction. It may be called at most once and must
// precede Release.
func (s *Session) Commit() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.released {
		return fmt.Errorf("session already released")
	}
	if s.committed {
		return fmt.Errorf("session already committed")
	}
	if err := s.tx.Commit(); err != nil {
		return apperrors.Transient("failed to commit transaction", err)
	}
	s.committed = true
	return nil
}

// Release ends the unit of work. If Commit did not run the transaction is
// rolled back, then the connection goes back to the pool. Safe to defer and
// safe to call after Commit; subsequent calls are no-ops.
func (s *Session) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.released {
		return
	}
	s.released = true
	if !s.committed {
		// Rollback on an aborted or cancelled transaction returns
		// ErrTxDone; either way the transaction is finished.
		s.tx.Rollback()
	}
	s.conn.Close()
}
