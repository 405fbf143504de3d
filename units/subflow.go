package units

import (
	"context"

	"github.com/fxsml/msgdriver"
	"github.com/fxsml/msgdriver/config"
	"github.com/fxsml/msgdriver/driver"
	"github.com/fxsml/msgdriver/message"
	"github.com/fxsml/msgdriver/shared"
	"github.com/fxsml/msgdriver/unit"
)

// SubFlow properties. The indexed ones count from 0.
const (
	PropInputMessageLocation = "INPUT_MESSAGE_LOCATION"
	PropDefaultDriverKey     = "DEFAULT_DRIVER_KEY"
	PropDriverKeyCtxLoc      = "DRIVER_KEY_CTX_LOC"
	PropDefaultDriverType    = "DEFAULT_DRIVER_TYPE"
	PropDriverTypeCtxLoc     = "DRIVER_TYPE_CTX_LOC"
	PropUseParentTransaction = "USE_PARENT_TRANSACTION"

	PropTargetCtxValueLoc = "TARGET_CTX_VALUE_LOC"
	PropSourceCtxValueLoc = "SOURCE_CTX_VALUE_LOC"
	PropSourceCtxRequired = "SOURCE_CTX_REQUIRED_FLAG"
	PropSourceCtxDefault  = "SOURCE_CTX_DEFAULT_VALUE"

	PropReturnTargetCtxValueLoc = "RETURN_TARGET_CTX_VALUE_LOC"
	PropReturnSourceCtxValueLoc = "RETURN_SOURCE_CTX_VALUE_LOC"
	PropReturnSourceCtxRequired = "RETURN_SOURCE_CTX_REQUIRED_FLAG"
	PropReturnSourceCtxDefault  = "RETURN_SOURCE_CTX_DEFAULT_VALUE"
)

// ctxCopy copies one context value between a parent and a nested context.
type ctxCopy struct {
	source   string
	target   string
	required bool
	def      string
}

func (c ctxCopy) apply(dst, src *shared.Context) error {
	var v message.Value
	if src.Exists(c.source, false) {
		var err error
		if v, err = src.Get(c.source); err != nil {
			return err
		}
		v = message.Clone(v)
	} else if c.def != "" {
		v = message.Scalar(c.def)
	}
	if v == nil {
		if c.required {
			return msgdriver.DataErrorf("units: missing context value %s for %s", c.source, c.target)
		}
		return nil
	}
	return dst.Set(c.target, v)
}

func readCopies(props config.Properties, source, target, required, def string) ([]ctxCopy, error) {
	var out []ctxCopy
	for _, r := range rows(props, 0, source, target, required, def) {
		c := ctxCopy{source: r[source], target: r[target], def: r[def]}
		if c.source == "" && c.target == "" {
			break
		}
		if c.target == "" {
			c.target = c.source
		}
		if c.source == "" {
			c.source = c.target
		}
		var err error
		if c.required, err = r.bool(required, true); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// SubFlow runs its input through a nested driver and passes the nested
// response on.
//
// Without context copies and with USE_PARENT_TRANSACTION (the default) the
// nested driver runs on the parent context itself, which gives up ownership
// for the duration so the nested driver cannot end the transaction.
// Otherwise the nested driver gets a context of its own, seeded from the
// parent by the SOURCE/TARGET copies (or sharing the parent's values when
// there are none), and RETURN copies bring values back afterwards. Such a
// context inherits the parent's transaction, or with USE_PARENT_TRANSACTION
// false acquires and commits one of its own.
type SubFlow struct {
	unit.Base
	env unit.Env

	inputLocation string
	defaultKey    string
	keyCtxLoc     string
	defaultType   string
	typeCtxLoc    string
	useParentTx   bool
	copies        []ctxCopy
	returns       []ctxCopy
}

var _ unit.Unit = (*SubFlow)(nil)

// NewSubFlow creates a SubFlow unit. The nested driver is resolved through
// the catalog and property source in env.
func NewSubFlow(env unit.Env, props config.Properties) (unit.Unit, error) {
	b, err := unit.NewBase(env, props)
	if err != nil {
		return nil, err
	}
	s := &SubFlow{
		Base:          b,
		env:           env,
		inputLocation: props.Get(PropInputMessageLocation, ""),
		defaultKey:    props.Get(PropDefaultDriverKey, ""),
		keyCtxLoc:     props.Get(PropDriverKeyCtxLoc, ""),
		defaultType:   props.Get(PropDefaultDriverType, ""),
		typeCtxLoc:    props.Get(PropDriverTypeCtxLoc, ""),
	}
	if s.defaultKey == "" && s.keyCtxLoc == "" {
		return nil, msgdriver.SystemErrorf("units: subflow %s needs %s or %s", b.Name(), PropDefaultDriverKey, PropDriverKeyCtxLoc)
	}
	if s.defaultType == "" && s.typeCtxLoc == "" {
		return nil, msgdriver.SystemErrorf("units: subflow %s needs %s or %s", b.Name(), PropDefaultDriverType, PropDriverTypeCtxLoc)
	}
	if s.useParentTx, err = props.Bool(PropUseParentTransaction, true); err != nil {
		return nil, err
	}
	if s.copies, err = readCopies(props, PropSourceCtxValueLoc, PropTargetCtxValueLoc, PropSourceCtxRequired, PropSourceCtxDefault); err != nil {
		return nil, err
	}
	if s.returns, err = readCopies(props, PropReturnSourceCtxValueLoc, PropReturnTargetCtxValueLoc, PropReturnSourceCtxRequired, PropReturnSourceCtxDefault); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SubFlow) Process(ctx context.Context, sc *shared.Context, in *message.Object) (unit.Outputs, error) {
	if in == nil {
		return unit.None(), nil
	}
	key, err := s.locate(sc, s.keyCtxLoc, s.defaultKey)
	if err != nil {
		return unit.None(), err
	}
	typ, err := s.locate(sc, s.typeCtxLoc, s.defaultType)
	if err != nil {
		return unit.None(), err
	}
	d, err := driver.Open(s.env.Catalog, s.env.Source, key, typ, driver.WithLogger(s.env.Logger))
	if err != nil {
		return unit.None(), err
	}

	request := in.Value()
	if s.inputLocation != "" {
		if request, err = unit.Get(sc, in, s.inputLocation); err != nil {
			return unit.None(), err
		}
	}

	var result message.Value
	if len(s.copies) == 0 && len(s.returns) == 0 && s.useParentTx {
		result, err = s.runShared(ctx, d, sc, request)
	} else {
		result, err = s.runNested(ctx, d, sc, request)
	}
	if err != nil {
		return unit.None(), err
	}
	if result == nil {
		return unit.Emit(), nil
	}
	return s.Forward(result), nil
}

func (s *SubFlow) runShared(ctx context.Context, d *driver.Driver, sc *shared.Context, request message.Value) (message.Value, error) {
	owner := sc.Owner()
	sc.SetOwner(false)
	defer sc.SetOwner(owner)
	return d.ProcessWith(ctx, sc, request)
}

func (s *SubFlow) runNested(ctx context.Context, d *driver.Driver, sc *shared.Context, request message.Value) (message.Value, error) {
	child := shared.New(shared.WithPool(sc.Pool()), shared.WithLogger(s.Logger()))
	if len(s.copies) > 0 || len(s.returns) > 0 {
		for _, c := range s.copies {
			if err := c.apply(child, sc); err != nil {
				return nil, err
			}
		}
	} else if err := child.InheritData(sc); err != nil {
		return nil, err
	}
	if s.useParentTx {
		if err := child.InheritTransaction(sc); err != nil {
			return nil, err
		}
	}

	result, err := d.ProcessWith(ctx, child, request)
	if err != nil {
		return nil, err
	}
	for _, c := range s.returns {
		if err := c.apply(sc, child); err != nil {
			return nil, err
		}
	}
	return result, nil
}

func (s *SubFlow) locate(sc *shared.Context, loc, def string) (string, error) {
	if loc != "" && sc.Exists(loc, true) {
		return sc.GetString(loc)
	}
	if def == "" {
		return "", msgdriver.DataErrorf("units: subflow %s: no driver location at %s", s.Name(), loc)
	}
	return def, nil
}
