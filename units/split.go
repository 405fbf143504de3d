package units

import (
	"context"
	"strconv"

	"github.com/fxsml/msgdriver"
	"github.com/fxsml/msgdriver/config"
	"github.com/fxsml/msgdriver/message"
	"github.com/fxsml/msgdriver/shared"
	"github.com/fxsml/msgdriver/unit"
)

// Split properties. The indexed ones count from 0.
const (
	PropSubstringFrom = "SUBSTRING_FROM"
	PropSubstringTo   = "SUBSTRING_TO"
	PropRequired      = "REQUIRED"

	EndOfString = "END_OF_STRING"
)

type cut struct {
	output   string
	from     int
	to       int // -1 for the end of the string
	required bool
}

// Split cuts substrings out of the value at INPUT_LOCATION and stores each
// at its OUTPUT_LOCATION_n, then passes the input on. Positions are byte
// offsets, SUBSTRING_TO_n is exclusive and may be END_OF_STRING.
type Split struct {
	unit.Base
	input    string
	cuts     []cut
	required bool
}

var _ unit.Unit = (*Split)(nil)

// NewSplit creates a Split unit.
func NewSplit(env unit.Env, props config.Properties) (unit.Unit, error) {
	b, err := unit.NewBase(env, props)
	if err != nil {
		return nil, err
	}
	input, err := props.Required(PropInputLocation)
	if err != nil {
		return nil, err
	}
	s := &Split{Base: b, input: input}
	for i, r := range rows(props, 0, PropOutputLocation, PropSubstringFrom, PropSubstringTo, PropRequired) {
		c, err := parseCut(r)
		if err != nil {
			return nil, msgdriver.SystemErrorf("units: split %s, cut %d: %w", b.Name(), i, err)
		}
		s.required = s.required || c.required
		s.cuts = append(s.cuts, c)
	}
	if len(s.cuts) == 0 {
		return nil, msgdriver.SystemErrorf("units: split %s has no %s_0", b.Name(), PropOutputLocation)
	}
	return s, nil
}

func parseCut(r row) (cut, error) {
	var c cut
	var ok bool
	if c.output, ok = r[PropOutputLocation]; !ok {
		return c, msgdriver.SystemErrorf("missing %s", PropOutputLocation)
	}
	from, err := strconv.Atoi(r[PropSubstringFrom])
	if err != nil || from < 0 {
		return c, msgdriver.SystemErrorf("invalid %s %q", PropSubstringFrom, r[PropSubstringFrom])
	}
	c.from = from
	switch to := r[PropSubstringTo]; to {
	case EndOfString, "":
		c.to = -1
	default:
		n, err := strconv.Atoi(to)
		if err != nil || n < from {
			return c, msgdriver.SystemErrorf("invalid %s %q", PropSubstringTo, to)
		}
		c.to = n
	}
	if c.required, err = r.bool(PropRequired, false); err != nil {
		return c, err
	}
	return c, nil
}

func (s *Split) Process(ctx context.Context, sc *shared.Context, in *message.Object) (unit.Outputs, error) {
	if in == nil {
		return unit.None(), nil
	}
	if !unit.Exists(sc, in, s.input, true) {
		if s.required {
			return unit.None(), msgdriver.DataErrorf("units: split %s: no value at %s", s.Name(), s.input)
		}
		return s.Forward(in.Value()), nil
	}
	str, err := unit.GetString(sc, in, s.input)
	if err != nil {
		return unit.None(), err
	}
	for _, c := range s.cuts {
		to := c.to
		if to < 0 {
			to = len(str)
		}
		if c.from > len(str) || to > len(str) {
			if c.required {
				return unit.None(), msgdriver.DataErrorf("units: split %s: [%d:%d] out of range for %q", s.Name(), c.from, to, str)
			}
			s.Logger().Debug("Skipping substring out of range", "output", c.output, "length", len(str))
			continue
		}
		if err := unit.Set(sc, in, c.output, message.Scalar(str[c.from:to])); err != nil {
			return unit.None(), err
		}
	}
	return s.Forward(in.Value()), nil
}
