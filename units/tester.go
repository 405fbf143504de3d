package units

import (
	"context"

	"github.com/fxsml/msgdriver"
	"github.com/fxsml/msgdriver/condition"
	"github.com/fxsml/msgdriver/config"
	"github.com/fxsml/msgdriver/message"
	"github.com/fxsml/msgdriver/shared"
	"github.com/fxsml/msgdriver/unit"
)

// Test properties. TEST_n and RESULT_VALUE_n count from 0.
const (
	PropTest           = "TEST"
	PropResultValue    = "RESULT_VALUE"
	PropResultLocation = "RESULT_LOCATION"
	PropFieldSeparator = "FIELD_VALUE_SEPARATOR"
	PropAndSeparator   = "AND_SEPARATOR"
	PropOrSeparator    = "OR_SEPARATOR"
)

type test struct {
	expr   *condition.Expr
	result string
}

// Test evaluates TEST_n in order and stores RESULT_VALUE_n of the first that
// holds at RESULT_LOCATION. The input is passed on either way.
type Test struct {
	unit.Base
	location string
	tests    []test
}

var _ unit.Unit = (*Test)(nil)

// NewTest creates a Test unit.
func NewTest(env unit.Env, props config.Properties) (unit.Unit, error) {
	b, err := unit.NewBase(env, props)
	if err != nil {
		return nil, err
	}
	location, err := props.Required(PropResultLocation)
	if err != nil {
		return nil, err
	}
	seps := condition.Separators{
		Field: props.Get(PropFieldSeparator, ""),
		And:   props.Get(PropAndSeparator, ""),
		Or:    props.Get(PropOrSeparator, ""),
	}
	t := &Test{Base: b, location: location}
	for i, r := range rows(props, 0, PropTest, PropResultValue) {
		src, ok := r[PropTest]
		if !ok {
			return nil, msgdriver.SystemErrorf("units: test %s: %s_%d is missing", b.Name(), PropTest, i)
		}
		expr, err := condition.Parse(src, seps)
		if err != nil {
			return nil, msgdriver.AsSystem(err)
		}
		t.tests = append(t.tests, test{expr: expr, result: r[PropResultValue]})
	}
	if len(t.tests) == 0 {
		return nil, msgdriver.SystemErrorf("units: test %s needs at least one condition", b.Name())
	}
	return t, nil
}

func (t *Test) Process(ctx context.Context, sc *shared.Context, in *message.Object) (unit.Outputs, error) {
	if in == nil {
		return unit.None(), nil
	}
	r := resolver{sc: sc, in: in}
	for _, tt := range t.tests {
		ok, err := tt.expr.Eval(r)
		if err != nil {
			return unit.None(), err
		}
		if !ok {
			continue
		}
		t.Logger().Debug("Condition holds", "test", tt.expr.String(), "result", tt.result)
		if tt.result != "" {
			if err := unit.Set(sc, in, t.location, message.Scalar(tt.result)); err != nil {
				return unit.None(), err
			}
		}
		return t.Forward(in.Value()), nil
	}
	t.Logger().Debug("No condition holds")
	return t.Forward(in.Value()), nil
}
