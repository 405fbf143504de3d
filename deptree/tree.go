// Package deptree tracks which units of a request may still produce output.
//
// Each unit appears at most once. Its node records whether the unit itself
// is done and whether the search below it found nothing left to flush. The
// children of a node are the units it has sent output to, in first-send
// order. Since a unit may send to one of its ancestors, the structure can
// contain cycles; searches visit each node at most once.
package deptree

import (
	"strings"

	"github.com/fxsml/msgdriver"
	"github.com/fxsml/msgdriver/message"
)

type node struct {
	name            string
	children        []int
	selfDone        bool
	descendantsDone bool
}

func (n *node) done() bool {
	return n.selfDone && n.descendantsDone
}

// Tree is the per-request dependency tree. It is not safe for concurrent
// use.
type Tree struct {
	nodes []node
	index map[string]int
	known func(name string) bool
	log   msgdriver.Logger
}

// New returns a tree rooted at root. Names for which known returns false
// are never attached.
func New(root string, known func(name string) bool, log msgdriver.Logger) *Tree {
	if log == nil {
		log = msgdriver.DefaultLogger()
	}
	t := &Tree{index: make(map[string]int), known: known, log: log}
	t.add(root)
	return t
}

func (t *Tree) add(name string) int {
	id := len(t.nodes)
	t.nodes = append(t.nodes, node{name: name})
	t.index[name] = id
	return id
}

// Attach records that parent sent output to names. Each named unit becomes
// active again. Blank names and NOBODY are ignored, as are names that are
// not known units; only COMM_SERVER is ignored silently.
func (t *Tree) Attach(parent string, names []string) {
	pid, ok := t.index[parent]
	if !ok {
		t.log.Warn("Attaching to unit missing from dependency tree", "parent", parent)
		return
	}
	reactivated := false
	for _, name := range names {
		if name == "" || message.IsNobody(name) {
			continue
		}
		id, ok := t.index[name]
		if !ok {
			if t.known != nil && !t.known(name) {
				if name != message.CommServer {
					t.log.Warn("Output addressed to unknown unit", "parent", parent, "target", name)
				}
				continue
			}
			id = t.add(name)
		}
		if !t.hasChild(pid, id) {
			t.nodes[pid].children = append(t.nodes[pid].children, id)
		}
		t.nodes[id].selfDone = false
		reactivated = true
	}
	if reactivated {
		// cached search results above the reactivated nodes are stale
		for i := range t.nodes {
			t.nodes[i].descendantsDone = false
		}
	}
}

func (t *Tree) hasChild(pid, id int) bool {
	for _, c := range t.nodes[pid].children {
		if c == id {
			return true
		}
	}
	return false
}

// Candidate returns the first unit in depth-first order that is not done
// itself. Subtrees found to hold nothing are marked so later searches skip
// them.
func (t *Tree) Candidate() (string, bool) {
	visited := make([]bool, len(t.nodes))
	id := t.candidate(0, visited)
	if id < 0 {
		return "", false
	}
	return t.nodes[id].name, true
}

func (t *Tree) candidate(id int, visited []bool) int {
	if visited[id] {
		return -1
	}
	visited[id] = true
	n := &t.nodes[id]
	if n.done() {
		return -1
	}
	if !n.selfDone {
		return id
	}
	for _, c := range n.children {
		if found := t.candidate(c, visited); found >= 0 {
			return found
		}
	}
	n.descendantsDone = true
	return -1
}

// SetDone marks a unit as having nothing left to flush.
func (t *Tree) SetDone(name string) {
	if id, ok := t.index[name]; ok {
		t.nodes[id].selfDone = true
	}
}

// Done reports whether name has been marked done. Unknown names are
// reported as done.
func (t *Tree) Done(name string) bool {
	id, ok := t.index[name]
	return !ok || t.nodes[id].selfDone
}

// Contains reports whether name has a node.
func (t *Tree) Contains(name string) bool {
	_, ok := t.index[name]
	return ok
}

// Describe renders the tree, one unit per line:
//
//	ROOT [done]
//	|-->A
//	|  |-->B
//	|  |  |-->A (cycle)
func (t *Tree) Describe() string {
	var b strings.Builder
	onPath := make([]bool, len(t.nodes))
	t.describe(&b, 0, 0, onPath)
	return b.String()
}

func (t *Tree) describe(b *strings.Builder, id, depth int, onPath []bool) {
	if depth > 0 {
		b.WriteString(strings.Repeat("|  ", depth-1))
		b.WriteString("|-->")
	}
	n := &t.nodes[id]
	b.WriteString(n.name)
	if onPath[id] {
		b.WriteString(" (cycle)\n")
		return
	}
	if n.selfDone {
		b.WriteString(" [done]")
	}
	b.WriteString("\n")
	onPath[id] = true
	for _, c := range n.children {
		t.describe(b, c, depth+1, onPath)
	}
	onPath[id] = false
}
