package units

import (
	"context"
	"fmt"

	"github.com/fxsml/msgdriver"
	"github.com/fxsml/msgdriver/config"
	"github.com/fxsml/msgdriver/document"
	"github.com/fxsml/msgdriver/driver"
	"github.com/fxsml/msgdriver/message"
	"github.com/fxsml/msgdriver/shared"
	"github.com/fxsml/msgdriver/unit"
)

// ErrorResponse properties.
const (
	PropErrorLocation   = "ERROR_LOCATION"
	PropRecordsLocation = "RECORDS_LOCATION"
	PropResponseRoot    = "RESPONSE_ROOT"
	PropRethrow         = "RETHROW"

	DefaultResponseRoot = "ErrorResponse"
)

// ErrorResponse is meant to be configured as a driver's error handler. It
// reads the failure the driver stored at ERROR_LOCATION and answers with a
// document:
//
//	<ErrorResponse>
//	  <Category value="data"/>
//	  <Message value="unit A: bad input"/>
//	  <Error><Unit value="A"/><Message value="unit A: bad input"/></Error>
//	</ErrorResponse>
//
// Error elements list the records found at RECORDS_LOCATION, most recent
// first. With RETHROW the failure is handed back to the driver instead,
// which then rolls back. Without a failure there is nothing to answer and
// the unit emits nothing.
type ErrorResponse struct {
	unit.Base
	errorLoc   string
	recordsLoc string
	root       string
	rethrow    bool
}

var _ unit.Unit = (*ErrorResponse)(nil)

// NewErrorResponse creates an ErrorResponse unit.
func NewErrorResponse(env unit.Env, props config.Properties) (unit.Unit, error) {
	b, err := unit.NewBase(env, props)
	if err != nil {
		return nil, err
	}
	u := &ErrorResponse{
		Base:       b,
		recordsLoc: props.Get(PropRecordsLocation, driver.DefaultErrorContextLocation),
		root:       props.Get(PropResponseRoot, DefaultResponseRoot),
	}
	if u.errorLoc, err = props.Required(PropErrorLocation); err != nil {
		return nil, err
	}
	if u.rethrow, err = props.Bool(PropRethrow, false); err != nil {
		return nil, err
	}
	return u, nil
}

func (u *ErrorResponse) Process(ctx context.Context, sc *shared.Context, in *message.Object) (unit.Outputs, error) {
	if in == nil || !sc.Exists(u.errorLoc, false) {
		return unit.None(), nil
	}
	v, err := sc.Get(u.errorLoc)
	if err != nil {
		return unit.None(), err
	}
	failure := driver.ErrorValue(v)
	if failure == nil {
		return unit.None(), msgdriver.SystemErrorf("units: error response %s: no error at %s", u.Name(), u.errorLoc)
	}
	if u.rethrow {
		return u.reply(message.Native{V: failure}), nil
	}

	doc := document.New(u.root)
	set := func(path, value string) {
		if err == nil {
			err = doc.Set(u.root+"."+path, value)
		}
	}
	set("Category", msgdriver.CategoryOf(failure).String())
	set("Message", failure.Error())
	if sc.Exists(u.recordsLoc, false) {
		rv, gerr := sc.Get(u.recordsLoc)
		if gerr != nil {
			return unit.None(), gerr
		}
		records, _ := driver.ErrorRecords(rv)
		for i, r := range records {
			set(fmt.Sprintf("Error(%d).Unit", i), r.Unit)
			set(fmt.Sprintf("Error(%d).Message", i), r.Err.Error())
		}
	}
	if err != nil {
		return unit.None(), msgdriver.AsSystem(err)
	}
	return u.reply(message.NewDoc(doc)), nil
}

// reply addresses v to the next units, or to COMM_SERVER when none are
// configured.
func (u *ErrorResponse) reply(v message.Value) unit.Outputs {
	if len(u.Next()) == 0 {
		return unit.Emit(message.To(message.CommServer, v))
	}
	return u.Forward(v)
}
