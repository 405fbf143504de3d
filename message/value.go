package message

import (
	"github.com/fxsml/msgdriver/document"
)

// Value is a message payload. It is one of Scalar, *Doc, Map, *List or
// Native.
type Value interface {
	isValue()
}

// Scalar is a plain string value. A scalar holding document text is
// reparsed into a *Doc the first time a path inside it is addressed.
type Scalar string

// Doc is a structured document value.
type Doc struct {
	*document.Document
}

// Map is a keyed collection of values.
type Map map[string]Value

// List is an ordered collection of values. It is used by pointer so that
// appends through an addressing path are visible to every holder.
type List struct {
	Items []Value
}

// Native carries an arbitrary Go value, such as an error or a slice of
// error records, through a context. It cannot be addressed into.
type Native struct {
	V any
}

func (Scalar) isValue() {}
func (*Doc) isValue()   {}
func (Map) isValue()    {}
func (*List) isValue()  {}
func (Native) isValue() {}

var (
	_ Value = Scalar("")
	_ Value = (*Doc)(nil)
	_ Value = Map(nil)
	_ Value = (*List)(nil)
	_ Value = Native{}
)

// NewDoc wraps d as a Value.
func NewDoc(d *document.Document) *Doc {
	return &Doc{Document: d}
}

// ParseDoc parses text into a document value.
func ParseDoc(text string) (*Doc, error) {
	d, err := document.Parse(text)
	if err != nil {
		return nil, err
	}
	return NewDoc(d), nil
}

// NewList returns a list holding items.
func NewList(items ...Value) *List {
	return &List{Items: items}
}

// String returns the textual form of v. Only scalars and documents have
// one.
func String(v Value) (string, bool) {
	switch v := v.(type) {
	case Scalar:
		return string(v), true
	case *Doc:
		return v.String(), true
	default:
		return "", false
	}
}

// IsEmpty reports whether v carries no content.
func IsEmpty(v Value) bool {
	switch v := v.(type) {
	case nil:
		return true
	case Scalar:
		return v == ""
	case *Doc:
		return v == nil || v.Document == nil
	case Map:
		return len(v) == 0
	case *List:
		return v == nil || len(v.Items) == 0
	case Native:
		return v.V == nil
	default:
		return true
	}
}

// Clone returns a deep copy of containers and documents. Scalars and Native
// values are returned as they are.
func Clone(v Value) Value {
	switch v := v.(type) {
	case *Doc:
		if v == nil || v.Document == nil {
			return v
		}
		return NewDoc(v.Clone())
	case Map:
		if v == nil {
			return v
		}
		out := make(Map, len(v))
		for k, e := range v {
			out[k] = Clone(e)
		}
		return out
	case *List:
		if v == nil {
			return v
		}
		out := &List{Items: make([]Value, len(v.Items))}
		for i, e := range v.Items {
			out.Items[i] = Clone(e)
		}
		return out
	default:
		return v
	}
}
