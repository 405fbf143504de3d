package txn

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"
)

// ErrUnavailable is returned while a BreakerPool refuses acquisitions.
var ErrUnavailable = errors.New("txn: pool unavailable")

// BreakerConfig configures a BreakerPool.
type BreakerConfig struct {
	Name string
	// MaxFailures is the number of consecutive failed acquisitions that
	// opens the breaker. Default: 5.
	MaxFailures uint32
	// Timeout is how long the breaker stays open before letting a trial
	// acquisition through. Default: 30s.
	Timeout time.Duration
	// OnStateChange is called when the breaker changes state.
	OnStateChange func(name, from, to string)
}

// BreakerPool guards a Pool with a circuit breaker, so that requests fail
// fast while the underlying database is unreachable.
type BreakerPool struct {
	pool Pool
	cb   *gobreaker.CircuitBreaker
}

var _ Pool = (*BreakerPool)(nil)

// NewBreakerPool wraps pool.
func NewBreakerPool(pool Pool, cfg BreakerConfig) *BreakerPool {
	if cfg.MaxFailures == 0 {
		cfg.MaxFailures = 5
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Name == "" {
		cfg.Name = "txn"
	}
	st := gobreaker.Settings{
		Name:    cfg.Name,
		Timeout: cfg.Timeout,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= cfg.MaxFailures
		},
		// context cancellation says nothing about the pool's health
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
		},
	}
	if cfg.OnStateChange != nil {
		st.OnStateChange = func(name string, from, to gobreaker.State) {
			cfg.OnStateChange(name, from.String(), to.String())
		}
	}
	return &BreakerPool{pool: pool, cb: gobreaker.NewCircuitBreaker(st)}
}

// Acquire acquires from the wrapped pool unless the breaker is open.
func (p *BreakerPool) Acquire(ctx context.Context) (Tx, error) {
	v, err := p.cb.Execute(func() (interface{}, error) {
		return p.pool.Acquire(ctx)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	if err != nil {
		return nil, err
	}
	return v.(Tx), nil
}

// State returns the breaker state: "closed", "half-open" or "open".
func (p *BreakerPool) State() string {
	return p.cb.State().String()
}
