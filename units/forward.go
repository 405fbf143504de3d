package units

import (
	"context"

	"github.com/fxsml/msgdriver/config"
	"github.com/fxsml/msgdriver/message"
	"github.com/fxsml/msgdriver/shared"
	"github.com/fxsml/msgdriver/unit"
)

// PropOutputLocation names where a unit stores its result.
const PropOutputLocation = "OUTPUT_LOCATION"

// Forward passes its input to every next unit. With OUTPUT_LOCATION set, the
// input is stored there first, which is mostly useful with a @context.
// location.
type Forward struct {
	unit.Base
	output string
}

var _ unit.Unit = (*Forward)(nil)

// NewForward creates a Forward unit.
func NewForward(env unit.Env, props config.Properties) (unit.Unit, error) {
	b, err := unit.NewBase(env, props)
	if err != nil {
		return nil, err
	}
	return &Forward{Base: b, output: props.Get(PropOutputLocation, "")}, nil
}

func (f *Forward) Process(ctx context.Context, sc *shared.Context, in *message.Object) (unit.Outputs, error) {
	if in == nil {
		return unit.None(), nil
	}
	if f.output != "" {
		if err := unit.Set(sc, in, f.output, message.Clone(in.Value())); err != nil {
			return unit.None(), err
		}
	}
	return f.Forward(in.Value()), nil
}
