// Package document provides a structured document value: a tree of named,
// attributed nodes addressed by dotted paths.
//
// A path names elements starting at the root element, so the root's own
// tag is the first segment:
//
//	Order.Customer.Id
//	Order.Line(1).Sku
//
// A segment may select the n-th (zero-based) child of that name with an
// index suffix. The value of a node is its "value" attribute when present,
// else its trimmed text. [Document.Set] creates missing elements and writes
// the "value" attribute.
package document

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/beevik/etree"
)

// ValueAttr is the attribute holding a node's value.
const ValueAttr = "value"

var (
	// ErrParse is returned when text is not a well-formed document.
	ErrParse = errors.New("document: parse failed")
	// ErrInvalidPath is returned for malformed paths or paths that do not
	// start at the root element.
	ErrInvalidPath = errors.New("document: invalid path")
)

// Document is a mutable structured document.
type Document struct {
	doc *etree.Document
	// src is the parsed text, kept until the first write.
	src string
}

// New returns a document holding an empty root element.
func New(root string) *Document {
	doc := etree.NewDocument()
	doc.CreateElement(root)
	return &Document{doc: doc}
}

// Parse parses text into a Document. Text without a root element is
// rejected.
func Parse(text string) (*Document, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromString(text); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParse, err)
	}
	if doc.Root() == nil {
		return nil, fmt.Errorf("%w: no root element", ErrParse)
	}
	return &Document{doc: doc, src: text}, nil
}

// LooksLike reports whether text could be a document. It is a cheap check
// used before attempting a full parse.
func LooksLike(text string) bool {
	return strings.HasPrefix(strings.TrimSpace(text), "<")
}

// RootName returns the tag of the root element.
func (d *Document) RootName() string {
	return d.doc.Root().Tag
}

// String serializes the document. A parsed document that was never written
// to returns its source text unchanged.
func (d *Document) String() string {
	if d.src != "" {
		return d.src
	}
	s, err := d.doc.WriteToString()
	if err != nil {
		return ""
	}
	return s
}

// Clone returns a deep copy of d.
func (d *Document) Clone() *Document {
	return &Document{doc: d.doc.Copy(), src: d.src}
}

// Get returns the value of the node at path and whether the node exists.
func (d *Document) Get(path string) (string, bool) {
	el, err := d.find(path, false)
	if err != nil || el == nil {
		return "", false
	}
	return nodeValue(el), true
}

// Has reports whether a node exists at path.
func (d *Document) Has(path string) bool {
	_, ok := d.Get(path)
	return ok
}

// Set writes value to the node at path, creating missing elements.
func (d *Document) Set(path, value string) error {
	d.src = ""
	el, err := d.find(path, true)
	if err != nil {
		return err
	}
	el.CreateAttr(ValueAttr, value)
	return nil
}

// Children returns the tags of the direct children of the node at path in
// document order.
func (d *Document) Children(path string) ([]string, error) {
	el, err := d.find(path, false)
	if err != nil {
		return nil, err
	}
	if el == nil {
		return nil, nil
	}
	var tags []string
	for _, c := range el.ChildElements() {
		tags = append(tags, c.Tag)
	}
	return tags, nil
}

func nodeValue(el *etree.Element) string {
	if a := el.SelectAttr(ValueAttr); a != nil {
		return a.Value
	}
	return strings.TrimSpace(el.Text())
}

type segment struct {
	name  string
	index int
}

func parsePath(path string) ([]segment, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: empty path", ErrInvalidPath)
	}
	parts := strings.Split(path, ".")
	segs := make([]segment, len(parts))
	for i, p := range parts {
		name, idx := p, 0
		if open := strings.IndexByte(p, '('); open >= 0 {
			if !strings.HasSuffix(p, ")") {
				return nil, fmt.Errorf("%w: %q", ErrInvalidPath, path)
			}
			n, err := strconv.Atoi(p[open+1 : len(p)-1])
			if err != nil || n < 0 {
				return nil, fmt.Errorf("%w: bad index in %q", ErrInvalidPath, path)
			}
			name, idx = p[:open], n
		}
		if name == "" {
			return nil, fmt.Errorf("%w: empty segment in %q", ErrInvalidPath, path)
		}
		segs[i] = segment{name: name, index: idx}
	}
	return segs, nil
}

// find walks path. A missing element yields nil, or is created when create
// is set. Only the last same-named sibling slot may be created, so an index
// can extend a list by one.
func (d *Document) find(path string, create bool) (*etree.Element, error) {
	segs, err := parsePath(path)
	if err != nil {
		return nil, err
	}
	root := d.doc.Root()
	if segs[0].name != root.Tag || segs[0].index != 0 {
		if create {
			return nil, fmt.Errorf("%w: %q does not start at root %q", ErrInvalidPath, path, root.Tag)
		}
		return nil, nil
	}
	el := root
	for _, s := range segs[1:] {
		matches := el.SelectElements(s.name)
		switch {
		case s.index < len(matches):
			el = matches[s.index]
		case create && s.index == len(matches):
			el = el.CreateElement(s.name)
		case create:
			return nil, fmt.Errorf("%w: index %d of %q out of range", ErrInvalidPath, s.index, s.name)
		default:
			return nil, nil
		}
	}
	return el, nil
}
