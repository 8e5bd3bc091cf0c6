package domain

import (
	"sort"
	"strings"
)

// Identity is one User-Agent persona of a search engine.
type Identity struct {
	Engine    string `json:"engine"`
	Label     string `json:"label"`
	UserAgent string `json:"user_agent"`
}

// Catalog maps normalized engine names to their identities in source order.
// It is read-only once built.
type Catalog struct {
	engines    []string
	identities map[string][]Identity
}

func NewCatalog() *Catalog {
	return &Catalog{identities: make(map[string][]Identity)}
}

func NormalizeEngine(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Set replaces the identities of an engine. The engine keeps its first
// insertion position.
func (c *Catalog) Set(engine string, pairs [][2]string) {
	engine = NormalizeEngine(engine)
	if _, ok := c.identities[engine]; !ok {
		c.engines = append(c.engines, engine)
	}

	list := make([]Identity, 0, len(pairs))
	for _, p := range pairs {
		list = append(list, Identity{Engine: engine, Label: p[0], UserAgent: p[1]})
	}
	c.identities[engine] = list
}

func (c *Catalog) Lookup(engine string) []Identity {
	if c == nil {
		return nil
	}
	return c.identities[NormalizeEngine(engine)]
}

func (c *Catalog) Has(engine string) bool {
	if c == nil {
		return false
	}
	_, ok := c.identities[NormalizeEngine(engine)]
	return ok
}

// Engines returns the engine names sorted alphabetically.
func (c *Catalog) Engines() []string {
	if c == nil {
		return nil
	}
	out := make([]string, len(c.engines))
	copy(out, c.engines)
	sort.Strings(out)
	return out
}

func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.engines)
}
