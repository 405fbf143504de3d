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

// Batch properties.
const (
	PropInputLocation = "INPUT_LOCATION"
	PropSeparator     = "SEPARATOR"
	PropBatchSize     = "BATCH_SIZE"

	DefaultBatchSeparator = "\n"
)

// Batch collects the text of its inputs and emits them joined by SEPARATOR
// when flushed. With BATCH_SIZE set, a full batch is emitted right away.
type Batch struct {
	unit.Base
	input string
	sep   string
	size  int

	buf []string
}

var _ unit.Unit = (*Batch)(nil)

// NewBatch creates a Batch unit.
func NewBatch(env unit.Env, props config.Properties) (unit.Unit, error) {
	b, err := unit.NewBase(env, props)
	if err != nil {
		return nil, err
	}
	size, err := props.Int(PropBatchSize, 0)
	if err != nil {
		return nil, err
	}
	if size < 0 {
		return nil, msgdriver.SystemErrorf("units: %s must not be negative", PropBatchSize)
	}
	sep, ok := props[PropSeparator]
	if !ok {
		sep = DefaultBatchSeparator
	}
	return &Batch{
		Base:  b,
		input: props.Get(PropInputLocation, message.InputMessage),
		sep:   sep,
		size:  size,
	}, nil
}

func (u *Batch) Process(ctx context.Context, sc *shared.Context, in *message.Object) (unit.Outputs, error) {
	if in == nil {
		if len(u.buf) == 0 {
			return unit.None(), nil
		}
		return u.emit(), nil
	}
	s, err := unit.GetString(sc, in, u.input)
	if err != nil {
		return unit.None(), err
	}
	u.buf = append(u.buf, s)
	if u.size > 0 && len(u.buf) >= u.size {
		return u.emit(), nil
	}
	return unit.None(), nil
}

func (u *Batch) emit() unit.Outputs {
	out := strings.Join(u.buf, u.sep)
	u.Logger().Debug("Emitting batch", "size", len(u.buf))
	u.buf = nil
	return u.Forward(message.Scalar(out))
}

// Cleanup drops anything left in the batch.
func (u *Batch) Cleanup(context.Context) error {
	u.buf = nil
	return nil
}
