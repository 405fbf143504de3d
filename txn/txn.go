// Package txn defines the transactional resource shared by the units of a
// request and a database/sql backed implementation.
package txn

import (
	"context"
	"database/sql"
	"errors"
	"sync"
)

// ErrReleased is returned when a released resource is used.
var ErrReleased = errors.New("txn: resource released")

// Tx is a transactional resource. Commit and Rollback end the unit of
// work; Release returns the resource to its pool and rolls back any work
// that was not committed.
type Tx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	Commit() error
	Rollback() error
	Release() error
}

// Pool hands out transactional resources.
type Pool interface {
	Acquire(ctx context.Context) (Tx, error)
}

// PoolFunc adapts a function to the Pool interface.
type PoolFunc func(ctx context.Context) (Tx, error)

// Acquire calls f.
func (f PoolFunc) Acquire(ctx context.Context) (Tx, error) {
	return f(ctx)
}

// SQLPool begins a database transaction per acquisition.
type SQLPool struct {
	db   *sql.DB
	opts *sql.TxOptions
}

// NewSQLPool returns a pool starting transactions on db with opts.
func NewSQLPool(db *sql.DB, opts *sql.TxOptions) *SQLPool {
	return &SQLPool{db: db, opts: opts}
}

// Acquire begins a transaction.
func (p *SQLPool) Acquire(ctx context.Context) (Tx, error) {
	tx, err := p.db.BeginTx(ctx, p.opts)
	if err != nil {
		return nil, err
	}
	return &sqlTx{tx: tx}, nil
}

type sqlTx struct {
	mu       sync.Mutex
	tx       *sql.Tx
	done     bool
	released bool
}

func (t *sqlTx) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	if err := t.check(); err != nil {
		return nil, err
	}
	return t.tx.ExecContext(ctx, query, args...)
}

func (t *sqlTx) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	if err := t.check(); err != nil {
		return nil, err
	}
	return t.tx.QueryContext(ctx, query, args...)
}

func (t *sqlTx) check() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.released {
		return ErrReleased
	}
	return nil
}

func (t *sqlTx) Commit() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.released {
		return ErrReleased
	}
	t.done = true
	return t.tx.Commit()
}

func (t *sqlTx) Rollback() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.released {
		return ErrReleased
	}
	if t.done {
		return nil
	}
	t.done = true
	return t.tx.Rollback()
}

func (t *sqlTx) Release() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.released {
		return nil
	}
	t.released = true
	if t.done {
		return nil
	}
	t.done = true
	return t.tx.Rollback()
}
