// Package shared provides the per-request context shared by every unit a
// driver runs: a named value store and a lazily acquired transactional
// resource with an ownership flag.
//
// Only the owning context commits, rolls back or releases the resource. A
// context that inherits a transaction from a parent is never the owner, so
// nested flows leave the outcome to the outermost driver.
package shared

import (
	"context"
	"errors"
	"sort"

	"github.com/fxsml/msgdriver"
	"github.com/fxsml/msgdriver/message"
	"github.com/fxsml/msgdriver/txn"
)

type resource struct {
	pool txn.Pool
	tx   txn.Tx
}

// Context is a named value store with an optional transactional resource.
// It is used by one request at a time and is not safe for concurrent use.
type Context struct {
	data  *message.Object
	res   *resource
	owner bool
	log   msgdriver.Logger
}

// Option configures a Context.
type Option func(*Context)

// WithPool sets the pool the transactional resource is acquired from.
func WithPool(pool txn.Pool) Option {
	return func(c *Context) {
		c.res.pool = pool
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(log msgdriver.Logger) Option {
	return func(c *Context) {
		if log != nil {
			c.log = log
		}
	}
}

// New returns an empty Context that owns its transaction.
func New(opts ...Option) *Context {
	c := &Context{
		data:  message.NewObject(message.Map{}),
		res:   &resource{},
		owner: true,
		log:   msgdriver.DefaultLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func checkName(name string) error {
	if name == "" || name == message.InputMessage {
		return msgdriver.SystemErrorf("shared: invalid value name %q", name)
	}
	return nil
}

// Get returns the value stored under name. A dotted name addresses into the
// stored value the way message paths do.
func (c *Context) Get(name string) (message.Value, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}
	return c.data.Get(name)
}

// GetString returns the textual value stored under name.
func (c *Context) GetString(name string) (string, error) {
	if err := checkName(name); err != nil {
		return "", err
	}
	return c.data.GetString(name)
}

// Set stores v under name.
func (c *Context) Set(name string, v message.Value) error {
	if err := checkName(name); err != nil {
		return err
	}
	if v == nil {
		return msgdriver.DataErrorf("shared: nil value for %q", name)
	}
	return c.data.Set(name, v)
}

// Exists reports whether name resolves, and with requireValue whether the
// value is non-empty.
func (c *Context) Exists(name string, requireValue bool) bool {
	if checkName(name) != nil {
		return false
	}
	return c.data.Exists(name, requireValue)
}

// Delete removes a top-level entry.
func (c *Context) Delete(name string) {
	if m, ok := c.data.Value().(message.Map); ok {
		delete(m, name)
	}
}

// Keys returns the top-level entry names in sorted order.
func (c *Context) Keys() []string {
	m, _ := c.data.Value().(message.Map)
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// InheritData makes c share the value store of parent.
func (c *Context) InheritData(parent *Context) error {
	if err := c.checkParent(parent); err != nil {
		return err
	}
	c.data = parent.data
	return nil
}

// InheritTransaction makes c share the transactional resource of parent.
// c stops being the owner. A resource c acquired on its own is released.
func (c *Context) InheritTransaction(parent *Context) error {
	if err := c.checkParent(parent); err != nil {
		return err
	}
	if c.owner && c.res.tx != nil {
		c.log.Warn("Releasing transaction replaced by inherited one")
		if err := c.Release(); err != nil {
			return err
		}
	}
	c.res = parent.res
	c.owner = false
	return nil
}

func (c *Context) checkParent(parent *Context) error {
	if parent == nil {
		return msgdriver.SystemErrorf("shared: nil parent context")
	}
	if parent == c {
		return msgdriver.SystemErrorf("shared: context cannot inherit from itself")
	}
	return nil
}

// Pool returns the pool the resource is acquired from.
func (c *Context) Pool() txn.Pool {
	return c.res.pool
}

// Owner reports whether c commits and releases the resource.
func (c *Context) Owner() bool {
	return c.owner
}

// SetOwner changes ownership. Used to hand a context to a nested flow
// without letting it end the transaction.
func (c *Context) SetOwner(owner bool) {
	c.owner = owner
}

// HasTx reports whether a resource has been acquired.
func (c *Context) HasTx() bool {
	return c.res.tx != nil
}

// Tx returns the transactional resource, acquiring it on first use.
func (c *Context) Tx(ctx context.Context) (txn.Tx, error) {
	if c.res.tx != nil {
		return c.res.tx, nil
	}
	if c.res.pool == nil {
		return nil, msgdriver.SystemErrorf("shared: no transaction pool configured")
	}
	tx, err := c.res.pool.Acquire(ctx)
	if err != nil {
		return nil, msgdriver.AsSystem(err)
	}
	c.res.tx = tx
	return tx, nil
}

// Commit commits and releases the resource. It does nothing unless c is the
// owner and a resource was acquired.
func (c *Context) Commit() error {
	return c.end("commit", func(tx txn.Tx) error { return tx.Commit() })
}

// Rollback rolls back and releases the resource. It does nothing unless c
// is the owner and a resource was acquired.
func (c *Context) Rollback() error {
	return c.end("rollback", func(tx txn.Tx) error { return tx.Rollback() })
}

func (c *Context) end(op string, fn func(txn.Tx) error) error {
	if !c.owner {
		c.log.Debug("Skipping "+op+" on inherited transaction", "op", op)
		return nil
	}
	tx := c.res.tx
	if tx == nil {
		return nil
	}
	c.res.tx = nil
	err := fn(tx)
	if rerr := tx.Release(); rerr != nil {
		err = errors.Join(err, rerr)
	}
	return msgdriver.AsSystem(err)
}

// Release releases the resource without committing. A non-owner only logs
// a warning.
func (c *Context) Release() error {
	if !c.owner {
		c.log.Warn("Release requested by context that does not own the transaction")
		return nil
	}
	tx := c.res.tx
	if tx == nil {
		return nil
	}
	c.res.tx = nil
	return msgdriver.AsSystem(tx.Release())
}
