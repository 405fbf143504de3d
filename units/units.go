// Package units provides the built-in processing units.
//
// Register adds them to a catalog under these class names:
//
//	units.Forward        pass the input on, optionally storing it first
//	units.Batch          collect inputs and emit them joined on flush
//	units.Split          cut substrings out of a value
//	units.Route          pick the next unit by a value in the input
//	units.Test           store the result of the first matching condition
//	units.Copy           copy values between locations
//	units.SQLLog         insert values into a database table
//	units.SubFlow        run the input through a nested driver
//	units.ErrorResponse  render a failure as a response document
//	units.Event          wrap text into a CloudEvent or unwrap one
//
// Locations in properties are resolved against the input message or, with
// the @context. prefix, against the shared context.
package units

import (
	"strconv"

	"github.com/fxsml/msgdriver/config"
	"github.com/fxsml/msgdriver/message"
	"github.com/fxsml/msgdriver/shared"
	"github.com/fxsml/msgdriver/unit"
)

// Class names.
const (
	ClassForward       = "units.Forward"
	ClassBatch         = "units.Batch"
	ClassSplit         = "units.Split"
	ClassRoute         = "units.Route"
	ClassTest          = "units.Test"
	ClassCopy          = "units.Copy"
	ClassSQLLog        = "units.SQLLog"
	ClassSubFlow       = "units.SubFlow"
	ClassErrorResponse = "units.ErrorResponse"
	ClassEvent         = "units.Event"
)

// Register adds every built-in unit to c.
func Register(c *unit.Catalog) error {
	for _, r := range []struct {
		class string
		f     unit.Factory
	}{
		{ClassForward, NewForward},
		{ClassBatch, NewBatch},
		{ClassSplit, NewSplit},
		{ClassRoute, NewRoute},
		{ClassTest, NewTest},
		{ClassCopy, NewCopy},
		{ClassSQLLog, NewSQLLog},
		{ClassSubFlow, NewSubFlow},
		{ClassErrorResponse, NewErrorResponse},
		{ClassEvent, NewEvent},
	} {
		if err := c.Register(r.class, r.f); err != nil {
			return err
		}
	}
	return nil
}

// Catalog returns a new catalog holding the built-in units.
func Catalog() *unit.Catalog {
	c := unit.NewCatalog()
	if err := Register(c); err != nil {
		panic(err)
	}
	return c
}

// row is one group of indexed properties, keyed by prefix.
type row map[string]string

// rows reads groups of indexed properties such as COLUMN_0, LOCATION_0,
// COLUMN_1, LOCATION_1. It stops at the first index for which none of the
// prefixes is set.
func rows(p config.Properties, start int, prefixes ...string) []row {
	var out []row
	for n := start; ; n++ {
		r := make(row, len(prefixes))
		suffix := "_" + strconv.Itoa(n)
		for _, prefix := range prefixes {
			if v, ok := p.Lookup(prefix + suffix); ok {
				r[prefix] = v
			}
		}
		if len(r) == 0 {
			return out
		}
		out = append(out, r)
	}
}

func (r row) bool(name string, def bool) (bool, error) {
	v, ok := r[name]
	if !ok {
		return def, nil
	}
	return config.Properties{name: v}.Bool(name, def)
}

// resolver resolves condition locations against an input and a context.
type resolver struct {
	sc *shared.Context
	in *message.Object
}

func (r resolver) Exists(location string, requireValue bool) bool {
	return unit.Exists(r.sc, r.in, location, requireValue)
}

func (r resolver) GetString(location string) (string, error) {
	return unit.GetString(r.sc, r.in, location)
}
