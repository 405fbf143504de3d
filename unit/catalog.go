package unit

import (
	"sort"
	"sync"

	"github.com/fxsml/msgdriver"
	"github.com/fxsml/msgdriver/config"
)

// Catalog maps class names to unit factories. Drivers look up the CLASS_n
// properties of their configuration here.
type Catalog struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewCatalog returns an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{factories: make(map[string]Factory)}
}

// Register adds a factory under class. Registering a class twice fails.
func (c *Catalog) Register(class string, f Factory) error {
	if class == "" || f == nil {
		return msgdriver.SystemErrorf("unit: invalid registration for class %q", class)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.factories[class]; ok {
		return msgdriver.SystemErrorf("unit: class %q already registered", class)
	}
	c.factories[class] = f
	return nil
}

// MustRegister is like Register but panics on error.
func (c *Catalog) MustRegister(class string, f Factory) {
	if err := c.Register(class, f); err != nil {
		panic(err)
	}
}

// Has reports whether class is registered.
func (c *Catalog) Has(class string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.factories[class]
	return ok
}

// New creates a unit of class. The created unit's name must match the NAME
// property.
func (c *Catalog) New(class string, env Env, props config.Properties) (Unit, error) {
	c.mu.RLock()
	f, ok := c.factories[class]
	c.mu.RUnlock()
	if !ok {
		return nil, msgdriver.SystemErrorf("unit: unknown class %q", class)
	}
	if env.Catalog == nil {
		env.Catalog = c
	}
	if env.Logger == nil {
		env.Logger = msgdriver.DefaultLogger()
	}
	u, err := f(env, props)
	if err != nil {
		return nil, msgdriver.Categorize(err)
	}
	if name := props.Get(PropName, ""); u.Name() != name {
		return nil, msgdriver.SystemErrorf("unit: class %q created %q instead of %q", class, u.Name(), name)
	}
	return u, nil
}

// Classes returns the registered class names in sorted order.
func (c *Catalog) Classes() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.factories))
	for k := range c.factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
