package deptree

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func knownSet(names ...string) func(string) bool {
	m := map[string]bool{}
	for _, n := range names {
		m[n] = true
	}
	return func(name string) bool { return m[name] }
}

func drain(t *Tree) []string {
	var order []string
	for {
		name, ok := t.Candidate()
		if !ok {
			return order
		}
		order = append(order, name)
		t.SetDone(name)
	}
}

func TestCandidateOrder(t *testing.T) {
	tr := New("ROOT", knownSet("ROOT", "A", "B", "C"), nil)
	tr.Attach("ROOT", []string{"A", "C"})
	tr.Attach("A", []string{"B"})

	assert.Equal(t, []string{"ROOT", "A", "B", "C"}, drain(tr))

	_, ok := tr.Candidate()
	assert.False(t, ok)
}

func TestAttachIgnores(t *testing.T) {
	tr := New("ROOT", knownSet("ROOT", "A"), nil)
	tr.Attach("ROOT", []string{"", "NOBODY", "nobody", "COMM_SERVER", "UNKNOWN", "A"})

	assert.True(t, tr.Contains("A"))
	assert.False(t, tr.Contains("COMM_SERVER"))
	assert.False(t, tr.Contains("UNKNOWN"))
	assert.Equal(t, []string{"ROOT", "A"}, drain(tr))
}

func TestReactivation(t *testing.T) {
	tr := New("ROOT", knownSet("ROOT", "A", "B"), nil)
	tr.Attach("ROOT", []string{"A"})
	tr.Attach("A", []string{"B"})
	assert.Equal(t, []string{"ROOT", "A", "B"}, drain(tr))
	assert.True(t, tr.Done("B"))

	// new input for a done unit makes it a candidate again, even though
	// every ancestor was cached as finished
	tr.Attach("A", []string{"B"})
	assert.False(t, tr.Done("B"))
	name, ok := tr.Candidate()
	assert.True(t, ok)
	assert.Equal(t, "B", name)
	tr.SetDone("B")

	_, ok = tr.Candidate()
	assert.False(t, ok)
}

func TestSharedNodeAndCycle(t *testing.T) {
	tr := New("ROOT", knownSet("ROOT", "A", "B"), nil)
	tr.Attach("ROOT", []string{"A", "B"})
	tr.Attach("A", []string{"B"})
	tr.Attach("B", []string{"ROOT"})

	assert.Equal(t, []string{"ROOT", "A", "B"}, drain(tr))

	assert.Equal(t,
		"ROOT [done]\n"+
			"|-->A [done]\n"+
			"|  |-->B [done]\n"+
			"|  |  |-->ROOT (cycle)\n"+
			"|-->B [done]\n"+
			"|  |-->ROOT (cycle)\n",
		tr.Describe())
}

func TestCycleTerminates(t *testing.T) {
	tr := New("ROOT", knownSet("ROOT", "A"), nil)
	tr.Attach("ROOT", []string{"A"})
	tr.Attach("A", []string{"ROOT"})
	tr.SetDone("ROOT")
	tr.SetDone("A")

	_, ok := tr.Candidate()
	assert.False(t, ok)
}

func TestAttachUnknownParent(t *testing.T) {
	tr := New("ROOT", nil, nil)
	tr.Attach("X", []string{"A"})
	assert.False(t, tr.Contains("A"))

	// without a known func every name is accepted
	tr.Attach("ROOT", []string{"A"})
	assert.True(t, tr.Contains("A"))
}
