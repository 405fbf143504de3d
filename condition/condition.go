// Package condition parses and evaluates simple test expressions.
//
// An expression is a list of alternatives separated by the OR separator,
// each a list of terms separated by the AND separator. A term is either a
// location, true when a node exists there, or a location and a value
// joined by the field separator, true when the location holds exactly that
// value:
//
//	Request.Type=NEW&&@context.Region||Request.Priority=HIGH
//
// AND binds tighter than OR. Locations and values are trimmed.
package condition

import (
	"errors"
	"fmt"
	"strings"
)

// ErrSyntax is returned for malformed expressions.
var ErrSyntax = errors.New("condition: syntax error")

// Default separators.
const (
	DefaultField = "="
	DefaultAnd   = "&&"
	DefaultOr    = "||"
)

// Separators configures the tokens an expression is split on. Each is set
// independently; empty fields take their default.
type Separators struct {
	Field string
	And   string
	Or    string
}

func (s Separators) parse() (Separators, error) {
	if s.Field == "" {
		s.Field = DefaultField
	}
	if s.And == "" {
		s.And = DefaultAnd
	}
	if s.Or == "" {
		s.Or = DefaultOr
	}
	if s.And == s.Or || s.Field == s.And || s.Field == s.Or {
		return s, fmt.Errorf("%w: separators must differ, got field %q, and %q, or %q", ErrSyntax, s.Field, s.And, s.Or)
	}
	return s, nil
}

// Resolver looks up locations.
type Resolver interface {
	// Exists reports whether location exists, and with requireValue also
	// whether it holds a non-empty value.
	Exists(location string, requireValue bool) bool
	GetString(location string) (string, error)
}

// Term is a single test.
type Term struct {
	Location string
	Value    string
	// Compare is false for existence tests.
	Compare bool
}

func (t Term) String() string {
	if !t.Compare {
		return t.Location
	}
	return t.Location + DefaultField + t.Value
}

func (t Term) eval(r Resolver) (bool, error) {
	if !t.Compare {
		return r.Exists(t.Location, false), nil
	}
	if !r.Exists(t.Location, true) {
		return false, nil
	}
	v, err := r.GetString(t.Location)
	if err != nil {
		return false, err
	}
	return v == t.Value, nil
}

// Expr is a parsed expression: alternatives of conjunctions.
type Expr struct {
	src  string
	alts [][]Term
}

// Parse parses expr using seps.
func Parse(expr string, seps Separators) (*Expr, error) {
	seps, err := seps.parse()
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(expr) == "" {
		return nil, fmt.Errorf("%w: empty expression", ErrSyntax)
	}
	e := &Expr{src: expr}
	for _, alt := range strings.Split(expr, seps.Or) {
		var terms []Term
		for _, raw := range strings.Split(alt, seps.And) {
			t, err := parseTerm(raw, seps.Field)
			if err != nil {
				return nil, fmt.Errorf("%w in %q", err, expr)
			}
			terms = append(terms, t)
		}
		e.alts = append(e.alts, terms)
	}
	return e, nil
}

// MustParse is like Parse but panics on error.
func MustParse(expr string, seps Separators) *Expr {
	e, err := Parse(expr, seps)
	if err != nil {
		panic(err)
	}
	return e
}

func parseTerm(raw, field string) (Term, error) {
	loc, val, compare := strings.Cut(raw, field)
	loc = strings.TrimSpace(loc)
	if loc == "" {
		return Term{}, fmt.Errorf("%w: empty location in term %q", ErrSyntax, strings.TrimSpace(raw))
	}
	return Term{Location: loc, Value: strings.TrimSpace(val), Compare: compare}, nil
}

// Eval evaluates the expression. Evaluation stops at the first alternative
// whose terms all hold.
func (e *Expr) Eval(r Resolver) (bool, error) {
	for _, terms := range e.alts {
		ok := true
		for _, t := range terms {
			held, err := t.eval(r)
			if err != nil {
				return false, err
			}
			if !held {
				ok = false
				break
			}
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

// Alternatives returns the parsed terms.
func (e *Expr) Alternatives() [][]Term { return e.alts }

func (e *Expr) String() string { return e.src }
