// Package testunit builds driver configurations out of scripted units for
// package tests.
package testunit

import (
	"context"
	"strconv"

	"github.com/fxsml/msgdriver/config"
	"github.com/fxsml/msgdriver/message"
	"github.com/fxsml/msgdriver/shared"
	"github.com/fxsml/msgdriver/unit"
)

// ProcessFunc scripts the behaviour of a unit.
type ProcessFunc func(ctx context.Context, b *unit.Base, sc *shared.Context, in *message.Object) (unit.Outputs, error)

// Func is a unit running a ProcessFunc.
type Func struct {
	unit.Base
	process ProcessFunc
	cleanup func() error
}

// Process calls the script.
func (f *Func) Process(ctx context.Context, sc *shared.Context, in *message.Object) (unit.Outputs, error) {
	return f.process(ctx, &f.Base, sc, in)
}

// Cleanup calls the cleanup script, if any.
func (f *Func) Cleanup(context.Context) error {
	if f.cleanup == nil {
		return nil
	}
	return f.cleanup()
}

// Factory returns a factory creating Func units.
func Factory(process ProcessFunc, cleanup func() error) unit.Factory {
	return func(env unit.Env, props config.Properties) (unit.Unit, error) {
		b, err := unit.NewBase(env, props)
		if err != nil {
			return nil, err
		}
		return &Func{Base: b, process: process, cleanup: cleanup}, nil
	}
}

// Echo forwards every input to the next units.
func Echo(ctx context.Context, b *unit.Base, sc *shared.Context, in *message.Object) (unit.Outputs, error) {
	if in == nil {
		return unit.None(), nil
	}
	return b.Forward(in.Value()), nil
}

// Fail returns err for every input.
func Fail(err error) ProcessFunc {
	return func(ctx context.Context, b *unit.Base, sc *shared.Context, in *message.Object) (unit.Outputs, error) {
		if in == nil {
			return unit.None(), nil
		}
		return unit.None(), err
	}
}

// Spec describes a unit of a Flow.
type Spec struct {
	Name  string
	Next  string
	Props config.Properties

	// Class selects a registered class. When empty, Process and Cleanup
	// are registered under a generated class.
	Class   string
	Process ProcessFunc
	Cleanup func() error
}

// Flow builds a catalog and property source for one driver.
type Flow struct {
	Catalog *unit.Catalog
	Source  config.MapSource
	Key     string
	Type    string

	n int
}

// New starts a flow whose driver properties are props, stored under key
// and type "driver".
func New(key string, props config.Properties) *Flow {
	return NewIn(unit.NewCatalog(), config.MapSource{}, key, props)
}

// NewIn is like New but adds to an existing catalog and source, so several
// drivers can share them.
func NewIn(catalog *unit.Catalog, source config.MapSource, key string, props config.Properties) *Flow {
	p := props.Clone()
	source[config.Locator{Key: key, Type: "driver"}] = p
	return &Flow{Catalog: catalog, Source: source, Key: key, Type: "driver"}
}

func (f *Flow) props() config.Properties {
	return f.Source[config.Locator{Key: f.Key, Type: f.Type}]
}

func (f *Flow) register(s Spec) (string, config.Properties) {
	class := s.Class
	if class == "" {
		class = f.Key + "." + s.Name
		f.Catalog.MustRegister(class, Factory(s.Process, s.Cleanup))
	}
	props := s.Props.Clone()
	props[unit.PropName] = s.Name
	if s.Next != "" {
		props[unit.PropNext] = s.Next
	}
	return class, props
}

// Unit adds a unit.
func (f *Flow) Unit(s Spec) *Flow {
	class, props := f.register(s)
	key := f.Key + "." + s.Name
	f.Source[config.Locator{Key: key, Type: "unit"}] = props

	idx := strconv.Itoa(f.n)
	dp := f.props()
	dp["CLASS_"+idx] = class
	dp["KEY_"+idx] = key
	dp["TYPE_"+idx] = "unit"
	f.n++
	return f
}

// Echo adds an echo unit.
func (f *Flow) Echo(name, next string) *Flow {
	return f.Unit(Spec{Name: name, Next: next, Process: Echo})
}

// ErrorHandler configures the error handler unit.
func (f *Flow) ErrorHandler(s Spec) *Flow {
	class, props := f.register(s)
	key := f.Key + ".error"
	f.Source[config.Locator{Key: key, Type: "unit"}] = props

	dp := f.props()
	dp["ERROR_PROCESSOR_CLASS_NAME"] = class
	dp["ERROR_PROCESSOR_KEY"] = key
	dp["ERROR_PROCESSOR_TYPE"] = "unit"
	return f
}
