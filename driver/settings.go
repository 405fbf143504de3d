package driver

import (
	"strconv"

	"github.com/fxsml/msgdriver"
	"github.com/fxsml/msgdriver/config"
	"github.com/fxsml/msgdriver/unit"
)

// Driver-level property names.
const (
	PropAsync                = "ASYNC_FLAG"
	PropDeferErrors          = "DEFER_EXCEPTIONS_FLAG"
	PropReturnString         = "RETURN_STRING"
	PropErrorClass           = "ERROR_PROCESSOR_CLASS_NAME"
	PropErrorKey             = "ERROR_PROCESSOR_KEY"
	PropErrorType            = "ERROR_PROCESSOR_TYPE"
	PropErrorLocation        = "ERROR_PROCESSOR_EXCEPTION_LOCATION"
	PropErrorContextLocation = "ERROR_CONTEXT_LOCATION"
	PropErrorContextLimit    = "ERROR_CONTEXT_LIMIT"

	PropClassPrefix = "CLASS_"
	PropKeyPrefix   = "KEY_"
	PropTypePrefix  = "TYPE_"

	// DefaultErrorContextLocation is where error records go when an error
	// handler is configured without an explicit location.
	DefaultErrorContextLocation = "DEFAULT_ERROR_CONTEXT_LOCATION"
	// DefaultErrorContextLimit bounds the error record list.
	DefaultErrorContextLimit = 64
)

// Settings holds the driver-level configuration.
type Settings struct {
	// Async disables response capture: COMM_SERVER outputs are delivered
	// like any other output instead of ending the request.
	Async bool `prop:"ASYNC_FLAG"`
	// DeferErrors collects unit failures and keeps processing.
	DeferErrors bool `prop:"DEFER_EXCEPTIONS_FLAG"`
	// ReturnString converts a document response to its text form.
	ReturnString bool `prop:"RETURN_STRING"`

	ErrorClass string `prop:"ERROR_PROCESSOR_CLASS_NAME"`
	ErrorKey   string `prop:"ERROR_PROCESSOR_KEY"`
	ErrorType  string `prop:"ERROR_PROCESSOR_TYPE"`
	// ErrorLocation is the context name the error handler finds the
	// failure under.
	ErrorLocation string `prop:"ERROR_PROCESSOR_EXCEPTION_LOCATION"`
	// ErrorContextLocation is the context name the error handler finds the
	// error records under. Records are kept only when it is set.
	ErrorContextLocation string `prop:"ERROR_CONTEXT_LOCATION"`
	// ErrorContextLimit bounds the number of error records kept.
	ErrorContextLimit int `prop:"ERROR_CONTEXT_LIMIT"`
}

// ParseSettings reads Settings from driver properties. ASYNC_FLAG is
// required.
func ParseSettings(p config.Properties) (Settings, error) {
	var s Settings
	var err error
	if s.Async, err = p.RequiredBool(PropAsync); err != nil {
		return s, err
	}
	if s.DeferErrors, err = p.Bool(PropDeferErrors, false); err != nil {
		return s, err
	}
	if s.ReturnString, err = p.Bool(PropReturnString, false); err != nil {
		return s, err
	}
	if s.ErrorContextLimit, err = p.Int(PropErrorContextLimit, DefaultErrorContextLimit); err != nil {
		return s, err
	}
	s.ErrorClass = p.Get(PropErrorClass, "")
	s.ErrorKey = p.Get(PropErrorKey, "")
	s.ErrorType = p.Get(PropErrorType, "")
	s.ErrorLocation = p.Get(PropErrorLocation, "")
	s.ErrorContextLocation = p.Get(PropErrorContextLocation, "")
	return s, nil
}

func (s *Settings) validate() error {
	if s.ErrorClass != "" {
		if s.ErrorKey == "" || s.ErrorType == "" {
			return msgdriver.SystemErrorf("driver: %s requires %s and %s", PropErrorClass, PropErrorKey, PropErrorType)
		}
		if s.ErrorContextLocation == "" {
			s.ErrorContextLocation = DefaultErrorContextLocation
		}
	}
	if s.ErrorContextLimit <= 0 {
		s.ErrorContextLimit = DefaultErrorContextLimit
	}
	return nil
}

// UnitInfo describes a configured unit.
type UnitInfo struct {
	Name    string
	Class   string
	Locator config.Locator
	Next    []string
	Props   config.Properties
}

func readUnits(p config.Properties, source config.PropertySource) ([]UnitInfo, error) {
	classes := p.Indexed(PropClassPrefix, 0)
	infos := make([]UnitInfo, 0, len(classes))
	for n, class := range classes {
		idx := strconv.Itoa(n)
		key, err := p.Required(PropKeyPrefix + idx)
		if err != nil {
			return nil, err
		}
		typ, err := p.Required(PropTypePrefix + idx)
		if err != nil {
			return nil, err
		}
		info, err := readUnit(source, class, key, typ)
		if err != nil {
			return nil, err
		}
		infos = append(infos, info)
	}
	return infos, nil
}

func readUnit(source config.PropertySource, class, key, typ string) (UnitInfo, error) {
	props, err := source.Properties(key, typ)
	if err != nil {
		return UnitInfo{}, msgdriver.AsSystem(err)
	}
	name, err := props.Required(unit.PropName)
	if err != nil {
		return UnitInfo{}, msgdriver.SystemErrorf("driver: unit %s/%s: %w", key, typ, err)
	}
	return UnitInfo{
		Name:    name,
		Class:   class,
		Locator: config.Locator{Key: key, Type: typ},
		Next:    unit.ParseNext(props.Get(unit.PropNext, "")),
		Props:   props,
	}, nil
}
