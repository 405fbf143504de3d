package units

import (
	"context"
	"strings"

	"github.com/fxsml/msgdriver"
	"github.com/fxsml/msgdriver/config"
	"github.com/fxsml/msgdriver/message"
	"github.com/fxsml/msgdriver/shared"
	"github.com/fxsml/msgdriver/unit"
)

// Route properties. KEY_VALUE_n and ROUTE_TO_n count from 1.
const (
	PropRoutingKey  = "ROUTING_KEY"
	PropRoutingRule = "ROUTING_RULE"
	PropKeyValue    = "KEY_VALUE"
	PropRouteTo     = "ROUTE_TO"
)

// RoutingRule decides how the routing value is matched against KEY_VALUE_n.
type RoutingRule string

// Routing rules.
const (
	RuleEquals     RoutingRule = "EQUALS"
	RuleStartsWith RoutingRule = "STARTS_WITH"
	RuleEndsWith   RoutingRule = "ENDS_WITH"
	// RuleNodeExists routes to the first entry for which a node named by
	// KEY_VALUE_n exists below ROUTING_KEY.
	RuleNodeExists RoutingRule = "NODE_EXISTS"
)

type routeEntry struct {
	key string
	to  string
}

// Route sends its input to a single unit picked by the value at
// ROUTING_KEY. Entries are tried in order; no match is a data error.
type Route struct {
	unit.Base
	rule    RoutingRule
	entries []routeEntry
}

var _ unit.Unit = (*Route)(nil)

// NewRoute creates a Route unit.
func NewRoute(env unit.Env, props config.Properties) (unit.Unit, error) {
	b, err := unit.NewBase(env, props)
	if err != nil {
		return nil, err
	}
	if _, err := props.Required(PropRoutingKey); err != nil {
		return nil, err
	}
	rule, err := props.Required(PropRoutingRule)
	if err != nil {
		return nil, err
	}
	r := &Route{Base: b, rule: RoutingRule(strings.ToUpper(rule))}
	switch r.rule {
	case RuleEquals, RuleStartsWith, RuleEndsWith, RuleNodeExists:
	default:
		return nil, msgdriver.SystemErrorf("units: route %s: unknown %s %q", b.Name(), PropRoutingRule, rule)
	}
	for i, e := range rows(props, 1, PropKeyValue, PropRouteTo) {
		key, to := e[PropKeyValue], e[PropRouteTo]
		if key == "" || to == "" {
			return nil, msgdriver.SystemErrorf("units: route %s: entry %d needs both %s and %s", b.Name(), i+1, PropKeyValue, PropRouteTo)
		}
		r.entries = append(r.entries, routeEntry{key: key, to: to})
	}
	if len(r.entries) == 0 {
		return nil, msgdriver.SystemErrorf("units: route %s has no routing entries", b.Name())
	}
	return r, nil
}

// Process routes in. ROUTING_KEY can be overridden per request through the
// context value <NAME>_ROUTING_KEY.
func (r *Route) Process(ctx context.Context, sc *shared.Context, in *message.Object) (unit.Outputs, error) {
	if in == nil {
		return unit.None(), nil
	}
	key := r.Property(sc, PropRoutingKey)
	to, err := r.route(sc, in, key)
	if err != nil {
		return unit.None(), err
	}
	r.Logger().Debug("Routing", "key", key, "to", to)
	return unit.Emit(message.To(to, in.Value())), nil
}

func (r *Route) route(sc *shared.Context, in *message.Object, key string) (string, error) {
	if r.rule == RuleNodeExists {
		for _, e := range r.entries {
			if unit.Exists(sc, in, key+"."+e.key, false) {
				return e.to, nil
			}
		}
		return "", msgdriver.DataErrorf("units: route %s: no node below %s matches a routing entry", r.Name(), key)
	}

	val, err := unit.GetString(sc, in, key)
	if err != nil {
		return "", err
	}
	for _, e := range r.entries {
		if r.match(val, e.key) {
			return e.to, nil
		}
	}
	return "", msgdriver.DataErrorf("units: route %s: value %q does not match any routing entry", r.Name(), val)
}

func (r *Route) match(val, key string) bool {
	switch r.rule {
	case RuleStartsWith:
		return strings.HasPrefix(val, key)
	case RuleEndsWith:
		return strings.HasSuffix(val, key)
	default:
		return val == key
	}
}
