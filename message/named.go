package message

// Reserved unit names.
const (
	// Root is the unit receiving the initial request.
	Root = "ROOT"
	// Nobody marks an output to be discarded.
	Nobody = "NOBODY"
	// CommServer marks the final response in synchronous mode.
	CommServer = "COMM_SERVER"
)

// NamedMessage is a value addressed to a unit.
type NamedMessage struct {
	Name  string
	Value Value
}

// To returns a message addressed to name.
func To(name string, v Value) NamedMessage {
	return NamedMessage{Name: name, Value: v}
}

// Discard reports whether m should be dropped instead of delivered.
func (m NamedMessage) Discard() bool {
	return m.Value == nil || IsNobody(m.Name)
}

// IsNobody reports whether name is the discard sentinel. Names are
// case-sensitive, so a unit named "nobody" still receives output.
func IsNobody(name string) bool {
	return name == Nobody
}
