// Package unit defines processing units, the nodes a driver routes
// messages through.
//
// A unit is called with an input message, or with a nil input when the
// driver flushes it after all pending work is delivered. The result is one
// of four cases:
//
//	input    output   meaning
//	non-nil  Emit     deliver outputs to the named next units
//	non-nil  None     batching, nothing to deliver yet
//	nil      Emit     flush previously batched output
//	nil      None     finished for this request
package unit

import (
	"context"

	"github.com/fxsml/msgdriver"
	"github.com/fxsml/msgdriver/config"
	"github.com/fxsml/msgdriver/message"
	"github.com/fxsml/msgdriver/shared"
)

// Unit processes messages for one request.
type Unit interface {
	// Name returns the unique name outputs are addressed to.
	Name() string
	// Process handles in, or flushes when in is nil.
	Process(ctx context.Context, sc *shared.Context, in *message.Object) (Outputs, error)
	// Cleanup releases resources held by the unit. It is called once after
	// the request, whatever its outcome.
	Cleanup(ctx context.Context) error
}

// Outputs is the result of a call to Process: either none, or a possibly
// empty list of named messages.
type Outputs struct {
	msgs []message.NamedMessage
	emit bool
}

// None returns the empty result.
func None() Outputs {
	return Outputs{}
}

// Emit returns a result delivering msgs.
func Emit(msgs ...message.NamedMessage) Outputs {
	return Outputs{msgs: msgs, emit: true}
}

// IsNone reports whether o is the empty result.
func (o Outputs) IsNone() bool {
	return !o.emit
}

// Messages returns the delivered messages.
func (o Outputs) Messages() []message.NamedMessage {
	return o.msgs
}

// Len returns the number of delivered messages.
func (o Outputs) Len() int {
	return len(o.msgs)
}

// Env carries what a factory may need beyond its own properties.
type Env struct {
	Catalog *Catalog
	Source  config.PropertySource
	Logger  msgdriver.Logger
}

// Factory creates a unit from its properties.
type Factory func(env Env, props config.Properties) (Unit, error)
