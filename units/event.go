package units

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/google/uuid"

	"github.com/fxsml/msgdriver"
	"github.com/fxsml/msgdriver/config"
	"github.com/fxsml/msgdriver/document"
	"github.com/fxsml/msgdriver/message"
	"github.com/fxsml/msgdriver/shared"
	"github.com/fxsml/msgdriver/unit"
)

// Event properties. EXTENSION_NAME_n and EXTENSION_LOCATION_n count from 0.
const (
	PropMode               = "MODE"
	PropEventType          = "EVENT_TYPE"
	PropEventSource        = "EVENT_SOURCE"
	PropSubjectLocation    = "SUBJECT_LOCATION"
	PropDataContentType    = "DATA_CONTENT_TYPE"
	PropExtensionName      = "EXTENSION_NAME"
	PropExtensionLocation  = "EXTENSION_LOCATION"
	PropAttributesLocation = "ATTRIBUTES_LOCATION"
)

// Event modes.
const (
	ModeWrap   = "WRAP"
	ModeUnwrap = "UNWRAP"
)

type extension struct {
	name     string
	location string
}

// Event converts between message text and CloudEvents in JSON format.
//
// In WRAP mode the input text becomes the data of a new event with
// EVENT_TYPE and EVENT_SOURCE, a random id and the current time. Its
// subject and extensions are read from SUBJECT_LOCATION and the
// EXTENSION_LOCATION_n values. DATA_CONTENT_TYPE defaults to
// application/xml for document text and text/plain otherwise.
//
// In UNWRAP mode the input must be an event; its data is passed on and its
// attributes are stored as a map at ATTRIBUTES_LOCATION when that is set.
type Event struct {
	unit.Base
	unwrap      bool
	typ         string
	source      string
	subject     string
	contentType string
	extensions  []extension
	attributes  string
	newID       func() string
	now         func() time.Time
}

var _ unit.Unit = (*Event)(nil)

// NewEvent creates an Event unit.
func NewEvent(env unit.Env, props config.Properties) (unit.Unit, error) {
	b, err := unit.NewBase(env, props)
	if err != nil {
		return nil, err
	}
	e := &Event{Base: b, newID: uuid.NewString, now: time.Now}
	switch mode := strings.ToUpper(props.Get(PropMode, ModeWrap)); mode {
	case ModeWrap:
	case ModeUnwrap:
		e.unwrap = true
		e.attributes = props.Get(PropAttributesLocation, "")
		return e, nil
	default:
		return nil, msgdriver.SystemErrorf("units: event %s: unknown %s %q", b.Name(), PropMode, mode)
	}

	if e.typ, err = props.Required(PropEventType); err != nil {
		return nil, err
	}
	if e.source, err = props.Required(PropEventSource); err != nil {
		return nil, err
	}
	e.subject = props.Get(PropSubjectLocation, "")
	e.contentType = props.Get(PropDataContentType, "")
	for i, r := range rows(props, 0, PropExtensionName, PropExtensionLocation) {
		name, loc := r[PropExtensionName], r[PropExtensionLocation]
		if name == "" || loc == "" {
			return nil, msgdriver.SystemErrorf("units: event %s: extension %d needs %s and %s", b.Name(), i, PropExtensionName, PropExtensionLocation)
		}
		e.extensions = append(e.extensions, extension{name: strings.ToLower(name), location: loc})
	}
	return e, nil
}

func (e *Event) Process(ctx context.Context, sc *shared.Context, in *message.Object) (unit.Outputs, error) {
	if in == nil {
		return unit.None(), nil
	}
	text, err := in.GetString(message.InputMessage)
	if err != nil {
		return unit.None(), err
	}
	if e.unwrap {
		return e.unwrapEvent(sc, in, text)
	}
	return e.wrapEvent(sc, in, text)
}

func (e *Event) wrapEvent(sc *shared.Context, in *message.Object, text string) (unit.Outputs, error) {
	ev := cloudevents.NewEvent()
	ev.SetID(e.newID())
	ev.SetType(e.typ)
	ev.SetSource(e.source)
	ev.SetTime(e.now().UTC())
	if e.subject != "" && unit.Exists(sc, in, e.subject, true) {
		subject, err := unit.GetString(sc, in, e.subject)
		if err != nil {
			return unit.None(), err
		}
		ev.SetSubject(subject)
	}
	for _, x := range e.extensions {
		if !unit.Exists(sc, in, x.location, true) {
			continue
		}
		v, err := unit.GetString(sc, in, x.location)
		if err != nil {
			return unit.None(), err
		}
		ev.SetExtension(x.name, v)
	}

	ct := e.contentType
	if ct == "" {
		ct = cloudevents.TextPlain
		if document.LooksLike(text) {
			ct = cloudevents.ApplicationXML
		}
	}
	var err error
	if ct == cloudevents.ApplicationJSON && json.Valid([]byte(text)) {
		err = ev.SetData(ct, json.RawMessage(text))
	} else {
		err = ev.SetData(ct, []byte(text))
	}
	if err != nil {
		return unit.None(), msgdriver.DataErrorf("units: event %s: set data: %w", e.Name(), err)
	}
	if err := ev.Validate(); err != nil {
		return unit.None(), msgdriver.SystemErrorf("units: event %s: %w", e.Name(), err)
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return unit.None(), msgdriver.SystemErrorf("units: event %s: %w", e.Name(), err)
	}
	return e.Forward(message.Scalar(data)), nil
}

func (e *Event) unwrapEvent(sc *shared.Context, in *message.Object, text string) (unit.Outputs, error) {
	var ev cloudevents.Event
	if err := json.Unmarshal([]byte(text), &ev); err != nil {
		return unit.None(), msgdriver.DataErrorf("units: event %s: input is not an event: %w", e.Name(), err)
	}
	if err := ev.Validate(); err != nil {
		return unit.None(), msgdriver.DataErrorf("units: event %s: %w", e.Name(), err)
	}
	if e.attributes != "" {
		if err := unit.Set(sc, in, e.attributes, attributes(&ev)); err != nil {
			return unit.None(), err
		}
	}
	return e.Forward(message.Scalar(ev.Data())), nil
}

func attributes(ev *cloudevents.Event) message.Map {
	attrs := message.Map{
		"id":          message.Scalar(ev.ID()),
		"specversion": message.Scalar(ev.SpecVersion()),
		"type":        message.Scalar(ev.Type()),
		"source":      message.Scalar(ev.Source()),
	}
	if v := ev.DataContentType(); v != "" {
		attrs["datacontenttype"] = message.Scalar(v)
	}
	if v := ev.DataSchema(); v != "" {
		attrs["dataschema"] = message.Scalar(v)
	}
	if v := ev.Subject(); v != "" {
		attrs["subject"] = message.Scalar(v)
	}
	if t := ev.Time(); !t.IsZero() {
		attrs["time"] = message.Scalar(t.UTC().Format(time.RFC3339))
	}
	for k, v := range ev.Extensions() {
		attrs[k] = message.Scalar(fmt.Sprint(v))
	}
	return attrs
}
