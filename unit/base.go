package unit

import (
	"context"
	"strings"

	"github.com/fxsml/msgdriver"
	"github.com/fxsml/msgdriver/config"
	"github.com/fxsml/msgdriver/message"
	"github.com/fxsml/msgdriver/shared"
)

// Properties every unit understands.
const (
	// PropName is the unit's unique name.
	PropName = "NAME"
	// PropNext lists the units outputs go to, separated by NextSeparator.
	PropNext = "NEXT_PROCESSOR_NAME"

	NextSeparator = "|"
)

// Base implements the parts common to most units: name, routing to the
// configured next units and property access. Embed it and implement
// Process.
type Base struct {
	name  string
	next  []string
	props config.Properties
	log   msgdriver.Logger
}

// NewBase parses the common properties.
func NewBase(env Env, props config.Properties) (Base, error) {
	name, err := props.Required(PropName)
	if err != nil {
		return Base{}, err
	}
	log := env.Logger
	if log == nil {
		log = msgdriver.DefaultLogger()
	}
	return Base{
		name:  name,
		next:  ParseNext(props.Get(PropNext, "")),
		props: props,
		log:   msgdriver.WithArgs(log, "unit", name),
	}, nil
}

// ParseNext splits a NEXT_PROCESSOR_NAME value. Blank entries and NOBODY,
// in any case, are dropped.
func ParseNext(s string) []string {
	var out []string
	for _, n := range strings.Split(s, NextSeparator) {
		n = strings.TrimSpace(n)
		if n == "" || strings.EqualFold(n, message.Nobody) {
			continue
		}
		out = append(out, n)
	}
	return out
}

// Name returns the unit's name.
func (b *Base) Name() string { return b.name }

// Next returns the configured next unit names.
func (b *Base) Next() []string { return b.next }

// Props returns the unit's static properties.
func (b *Base) Props() config.Properties { return b.props }

// Logger returns a logger tagged with the unit's name.
func (b *Base) Logger() msgdriver.Logger { return b.log }

// Cleanup does nothing.
func (b *Base) Cleanup(context.Context) error { return nil }

// Forward addresses v to every configured next unit. With no next units
// the result is an empty Emit.
func (b *Base) Forward(v message.Value) Outputs {
	msgs := make([]message.NamedMessage, len(b.next))
	for i, n := range b.next {
		msgs[i] = message.To(n, v)
	}
	return Emit(msgs...)
}

// Property returns the value of name, preferring a per-request override
// stored in the context under "<NAME>_<name>".
func (b *Base) Property(sc *shared.Context, name string) string {
	if sc != nil {
		key := b.name + "_" + name
		if sc.Exists(key, true) {
			if v, err := sc.GetString(key); err == nil {
				return v
			}
		}
	}
	return b.props.Get(name, "")
}
