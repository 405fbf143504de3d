// Package test holds fixtures shared by the package tests.
package test

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"sync"

	"github.com/fxsml/msgdriver/txn"
)

// Pool is a txn.Pool recording every call made on the resources it hands
// out.
type Pool struct {
	mu sync.Mutex

	AcquireErr error
	CommitErr  error

	acquired  int
	commits   int
	rollbacks int
	releases  int
	execs     []string
}

// Counts is a snapshot of the calls recorded by a Pool.
type Counts struct {
	Acquired  int
	Commits   int
	Rollbacks int
	Releases  int
}

var _ txn.Pool = (*Pool)(nil)

// Acquire returns a new recording resource.
func (p *Pool) Acquire(ctx context.Context) (txn.Tx, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.AcquireErr != nil {
		return nil, p.AcquireErr
	}
	p.acquired++
	return &tx{p: p}, nil
}

// Counts returns the calls recorded so far.
func (p *Pool) Counts() Counts {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Counts{Acquired: p.acquired, Commits: p.commits, Rollbacks: p.rollbacks, Releases: p.releases}
}

// Execs returns the statements executed so far.
func (p *Pool) Execs() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.execs...)
}

type tx struct {
	p *Pool
}

func (t *tx) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	t.p.mu.Lock()
	defer t.p.mu.Unlock()
	t.p.execs = append(t.p.execs, query)
	return driver.RowsAffected(1), nil
}

func (t *tx) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return nil, errors.New("test: query not supported")
}

func (t *tx) Commit() error {
	t.p.mu.Lock()
	defer t.p.mu.Unlock()
	t.p.commits++
	return t.p.CommitErr
}

func (t *tx) Rollback() error {
	t.p.mu.Lock()
	defer t.p.mu.Unlock()
	t.p.rollbacks++
	return nil
}

func (t *tx) Release() error {
	t.p.mu.Lock()
	defer t.p.mu.Unlock()
	t.p.releases++
	return nil
}
