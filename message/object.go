package message

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/fxsml/msgdriver/document"
)

// Object holds a value and addresses into it with dotted paths.
//
// The first segment of a path selects the entry of a Map or the index of a
// List root. The remainder is resolved inside that entry, recursively. When
// a Scalar is addressed into, it is parsed as a document and the parsed
// document replaces the scalar in its holder, so later reads do not parse
// again. The empty path and InputMessage address the whole value.
type Object struct {
	root Value
}

// NewObject returns an Object holding v.
func NewObject(v Value) *Object {
	return &Object{root: v}
}

// Value returns the held value.
func (o *Object) Value() Value {
	return o.root
}

// Get returns the value at path.
func (o *Object) Get(path string) (Value, error) {
	if isWhole(path) {
		if o.root == nil {
			return nil, &PathError{Op: "get", Path: path, Err: ErrNotFound}
		}
		return o.root, nil
	}
	v, err := get(o.root, path, o.replace)
	if err != nil {
		return nil, &PathError{Op: "get", Path: path, Err: err}
	}
	return v, nil
}

// GetString returns the textual value at path.
func (o *Object) GetString(path string) (string, error) {
	v, err := o.Get(path)
	if err != nil {
		return "", err
	}
	s, ok := String(v)
	if !ok {
		return "", &PathError{Op: "get", Path: path, Err: fmt.Errorf("%w: %T has no text form", ErrInvalidTarget, v)}
	}
	return s, nil
}

// Set writes v at path. Writing to an empty Object creates a Map root.
func (o *Object) Set(path string, v Value) error {
	if v == nil {
		return &PathError{Op: "set", Path: path, Err: fmt.Errorf("%w: nil value", ErrInvalidTarget)}
	}
	if isWhole(path) {
		o.root = v
		return nil
	}
	if o.root == nil {
		o.root = Map{}
	}
	if err := set(o.root, path, v, o.replace); err != nil {
		return &PathError{Op: "set", Path: path, Err: err}
	}
	return nil
}

// Exists reports whether path resolves. With requireValue it also requires
// the value to be non-empty.
func (o *Object) Exists(path string, requireValue bool) bool {
	v, err := o.Get(path)
	if err != nil {
		return false
	}
	return !requireValue || !IsEmpty(v)
}

func (o *Object) replace(v Value) {
	o.root = v
}

func isWhole(path string) bool {
	return path == "" || path == InputMessage
}

func reparse(s Scalar) (*Doc, error) {
	if !document.LooksLike(string(s)) {
		return nil, fmt.Errorf("%w: value is not a document", ErrNotFound)
	}
	return ParseDoc(string(s))
}

func listIndex(seg string) (int, error) {
	i, err := strconv.Atoi(seg)
	if err != nil || i < 0 {
		return 0, fmt.Errorf("%w: list index %q is not numeric", ErrInvalidTarget, seg)
	}
	return i, nil
}

func get(v Value, path string, replace func(Value)) (Value, error) {
	switch c := v.(type) {
	case Map:
		key, rest, _ := strings.Cut(path, ".")
		e, ok := c[key]
		if !ok || e == nil {
			return nil, ErrNotFound
		}
		if rest == "" {
			return e, nil
		}
		return get(e, rest, func(nv Value) { c[key] = nv })
	case *List:
		seg, rest, _ := strings.Cut(path, ".")
		i, err := listIndex(seg)
		if err != nil {
			return nil, err
		}
		if i >= len(c.Items) || c.Items[i] == nil {
			return nil, ErrNotFound
		}
		if rest == "" {
			return c.Items[i], nil
		}
		return get(c.Items[i], rest, func(nv Value) { c.Items[i] = nv })
	case Scalar:
		d, err := reparse(c)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrNotFound, err)
		}
		replace(d)
		return get(d, path, replace)
	case *Doc:
		s, ok := c.Get(path)
		if !ok {
			return nil, ErrNotFound
		}
		return Scalar(s), nil
	default:
		return nil, ErrNotFound
	}
}

func set(v Value, path string, nv Value, replace func(Value)) error {
	switch c := v.(type) {
	case Map:
		key, rest, _ := strings.Cut(path, ".")
		if key == "" || c == nil {
			return fmt.Errorf("%w: empty key or nil map", ErrInvalidTarget)
		}
		if rest == "" {
			c[key] = nv
			return nil
		}
		e, ok := c[key]
		if !ok || e == nil {
			return fmt.Errorf("%w: no entry %q", ErrInvalidTarget, key)
		}
		return set(e, rest, nv, func(x Value) { c[key] = x })
	case *List:
		seg, rest, _ := strings.Cut(path, ".")
		i, err := listIndex(seg)
		if err != nil {
			return err
		}
		if rest == "" {
			switch {
			case i == len(c.Items):
				c.Items = append(c.Items, nv)
			case i < len(c.Items):
				c.Items[i] = nv
			default:
				return fmt.Errorf("%w: index %d beyond list of %d", ErrInvalidTarget, i, len(c.Items))
			}
			return nil
		}
		if i >= len(c.Items) || c.Items[i] == nil {
			return fmt.Errorf("%w: no item %d", ErrInvalidTarget, i)
		}
		return set(c.Items[i], rest, nv, func(x Value) { c.Items[i] = x })
	case Scalar:
		d, err := reparse(c)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidTarget, err)
		}
		if err := set(d, path, nv, replace); err != nil {
			return err
		}
		replace(d)
		return nil
	case *Doc:
		s, ok := nv.(Scalar)
		if !ok {
			return fmt.Errorf("%w: document leaf requires a scalar, got %T", ErrInvalidTarget, nv)
		}
		if err := c.Set(path, string(s)); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidTarget, err)
		}
		return nil
	default:
		return fmt.Errorf("%w: %T is not addressable", ErrInvalidTarget, v)
	}
}
