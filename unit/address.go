package unit

import (
	"github.com/fxsml/msgdriver"
	"github.com/fxsml/msgdriver/message"
	"github.com/fxsml/msgdriver/shared"
)

// Get resolves path against the input or, with the @context. selector, the
// shared context.
func Get(sc *shared.Context, in *message.Object, path string) (message.Value, error) {
	src, rest := message.Resolve(path)
	if src == message.FromContext {
		return sc.Get(rest)
	}
	if in == nil {
		return nil, noInput(path)
	}
	return in.Get(rest)
}

// GetString is like Get but returns the textual value.
func GetString(sc *shared.Context, in *message.Object, path string) (string, error) {
	src, rest := message.Resolve(path)
	if src == message.FromContext {
		return sc.GetString(rest)
	}
	if in == nil {
		return "", noInput(path)
	}
	return in.GetString(rest)
}

// Set writes v at path in the input or the shared context.
func Set(sc *shared.Context, in *message.Object, path string, v message.Value) error {
	src, rest := message.Resolve(path)
	if src == message.FromContext {
		return sc.Set(rest, v)
	}
	if in == nil {
		return noInput(path)
	}
	return in.Set(rest, v)
}

// Exists reports whether path resolves in the input or the shared context.
func Exists(sc *shared.Context, in *message.Object, path string, requireValue bool) bool {
	src, rest := message.Resolve(path)
	if src == message.FromContext {
		return sc.Exists(rest, requireValue)
	}
	return in != nil && in.Exists(rest, requireValue)
}

func noInput(path string) error {
	return msgdriver.DataErrorf("unit: no input message to resolve %q", path)
}
