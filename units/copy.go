package units

import (
	"context"
	"strings"

	"github.com/fxsml/msgdriver"
	"github.com/fxsml/msgdriver/config"
	"github.com/fxsml/msgdriver/message"
	"github.com/fxsml/msgdriver/shared"
	"github.com/fxsml/msgdriver/unit"
)

// Copy properties. The indexed ones count from 0.
const (
	PropInputLoc  = "INPUT_LOC"
	PropOutputLoc = "OUTPUT_LOC"
	PropDefault   = "DEFAULT"
	PropOptional  = "OPTIONAL"

	// LocationSeparator separates alternative locations; the first that
	// exists is used.
	LocationSeparator = "|"
)

type copyRule struct {
	from     []string
	to       string
	def      string
	optional bool
}

func (c copyRule) lookup(sc *shared.Context, in *message.Object) (message.Value, bool, error) {
	if v, ok, err := first(sc, in, c.from); ok || err != nil {
		return v, ok, err
	}
	if c.def != "" {
		return message.Scalar(c.def), true, nil
	}
	return nil, false, nil
}

// first returns the value of the first of locations that exists.
func first(sc *shared.Context, in *message.Object, locations []string) (message.Value, bool, error) {
	for _, loc := range locations {
		if !unit.Exists(sc, in, loc, false) {
			continue
		}
		v, err := unit.Get(sc, in, loc)
		if err != nil {
			return nil, false, err
		}
		return v, true, nil
	}
	return nil, false, nil
}

func splitLocations(s, sep string) []string {
	var out []string
	for _, loc := range strings.Split(s, sep) {
		if loc = strings.TrimSpace(loc); loc != "" {
			out = append(out, loc)
		}
	}
	return out
}

// Copy copies the value of the first existing INPUT_LOC_n alternative, or
// DEFAULT_n, to OUTPUT_LOC_n. A missing value fails unless OPTIONAL_n is
// true.
type Copy struct {
	unit.Base
	rules []copyRule
}

var _ unit.Unit = (*Copy)(nil)

// NewCopy creates a Copy unit.
func NewCopy(env unit.Env, props config.Properties) (unit.Unit, error) {
	b, err := unit.NewBase(env, props)
	if err != nil {
		return nil, err
	}
	c := &Copy{Base: b}
	for i, r := range rows(props, 0, PropInputLoc, PropOutputLoc, PropDefault, PropOptional) {
		to, ok := r[PropOutputLoc]
		if !ok {
			return nil, msgdriver.SystemErrorf("units: copy %s: %s_%d is missing", b.Name(), PropOutputLoc, i)
		}
		optional, err := r.bool(PropOptional, false)
		if err != nil {
			return nil, err
		}
		c.rules = append(c.rules, copyRule{
			from:     splitLocations(r[PropInputLoc], LocationSeparator),
			to:       to,
			def:      r[PropDefault],
			optional: optional,
		})
	}
	if len(c.rules) == 0 {
		return nil, msgdriver.SystemErrorf("units: copy %s has nothing to copy", b.Name())
	}
	return c, nil
}

func (c *Copy) Process(ctx context.Context, sc *shared.Context, in *message.Object) (unit.Outputs, error) {
	if in == nil {
		return unit.None(), nil
	}
	for _, r := range c.rules {
		v, ok, err := r.lookup(sc, in)
		if err != nil {
			return unit.None(), err
		}
		if !ok {
			if r.optional {
				c.Logger().Debug("Skipping optional value", "from", strings.Join(r.from, LocationSeparator))
				continue
			}
			return unit.None(), msgdriver.DataErrorf("units: copy %s: no value at %s", c.Name(), strings.Join(r.from, LocationSeparator))
		}
		if err := unit.Set(sc, in, r.to, message.Clone(v)); err != nil {
			return unit.None(), err
		}
	}
	return c.Forward(in.Value()), nil
}
