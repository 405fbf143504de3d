package message

import "strings"

// Root selectors and the whole-input alias.
const (
	MessagePrefix = "@message."
	ContextPrefix = "@context."
	InputMessage  = "INPUT_MESSAGE"
)

// Source identifies the root a path resolves against.
type Source int

const (
	// FromMessage resolves against the current unit's input.
	FromMessage Source = iota
	// FromContext resolves against the shared context.
	FromContext
)

// Resolve splits a root selector off path. Paths without a selector
// resolve against the input message.
func Resolve(path string) (Source, string) {
	switch {
	case strings.HasPrefix(path, ContextPrefix):
		return FromContext, path[len(ContextPrefix):]
	case path == "@context":
		return FromContext, ""
	case strings.HasPrefix(path, MessagePrefix):
		return FromMessage, path[len(MessagePrefix):]
	case path == "@message":
		return FromMessage, ""
	default:
		return FromMessage, path
	}
}
