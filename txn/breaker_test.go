package txn

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBreakerOpensAfterFailures(t *testing.T) {
	down := errors.New("connection refused")
	calls := 0
	var changes []string
	p := NewBreakerPool(PoolFunc(func(ctx context.Context) (Tx, error) {
		calls++
		return nil, down
	}), BreakerConfig{
		MaxFailures: 2,
		Timeout:     time.Hour,
		OnStateChange: func(name, from, to string) {
			changes = append(changes, from+"->"+to)
		},
	})

	for range 2 {
		_, err := p.Acquire(context.Background())
		require.ErrorIs(t, err, down)
	}
	assert.Equal(t, "open", p.State())

	_, err := p.Acquire(context.Background())
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, 2, calls)
	assert.Equal(t, []string{"closed->open"}, changes)
}

func TestBreakerHalfOpenRecovers(t *testing.T) {
	fail := true
	p := NewBreakerPool(PoolFunc(func(ctx context.Context) (Tx, error) {
		if fail {
			return nil, errors.New("down")
		}
		return &sqlTx{}, nil
	}), BreakerConfig{MaxFailures: 1, Timeout: 10 * time.Millisecond})

	_, err := p.Acquire(context.Background())
	require.Error(t, err)
	require.Equal(t, "open", p.State())

	fail = false
	time.Sleep(20 * time.Millisecond)
	tx, err := p.Acquire(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, tx)
	assert.Equal(t, "closed", p.State())
}

func TestBreakerIgnoresCancellation(t *testing.T) {
	p := NewBreakerPool(PoolFunc(func(ctx context.Context) (Tx, error) {
		return nil, ctx.Err()
	}), BreakerConfig{MaxFailures: 1})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	for range 3 {
		_, err := p.Acquire(ctx)
		require.ErrorIs(t, err, context.Canceled)
	}
	assert.Equal(t, "closed", p.State())
}

func TestBreakerWithSQLPool(t *testing.T) {
	p := NewBreakerPool(NewSQLPool(openDB(t), nil), BreakerConfig{Name: "sqlite"})

	tx, err := p.Acquire(context.Background())
	require.NoError(t, err)
	_, err = tx.ExecContext(context.Background(), "CREATE TABLE t (v TEXT)")
	require.NoError(t, err)
	require.NoError(t, tx.Commit())
	require.NoError(t, tx.Release())
	assert.Equal(t, "closed", p.State())
}
