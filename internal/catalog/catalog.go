// Package catalog holds the static blueprint content, one entry per role.
// The content is embedded at build time and never changes at runtime.
package catalog

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

//go:embed blueprints.json
var rawBlueprints []byte

// Section is one titled block of a blueprint.
type Section struct {
	Title string   `json:"title"`
	Body  []string `json:"body"`
}

// Blueprint is the purchasable content for a single role.  Subhead is shown
// to every visitor; Sections only once access has been granted.
type Blueprint struct {
	Subhead  string    `json:"subhead"`
	Sections []Section `json:"sections"`
}

// Catalog is a read-only role -> Blueprint lookup.
type Catalog struct {
	items map[string]Blueprint
	roles []string
}

// Load parses the embedded blueprint set.
func Load() (*Catalog, error) {
	return Parse(rawBlueprints)
}

// MustLoad is Load for program start-up; it panics on a broken embed.
func MustLoad() *Catalog {
	c, err := Load()
	if err != nil {
		panic(err)
	}
	return c
}

// Parse builds a Catalog from JSON shaped as {"role": {subhead, sections}}.
// Keys are lowercased.
func Parse(data []byte) (*Catalog, error) {
	var m map[string]Blueprint
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("catalog: decode: %w", err)
	}
	c := &Catalog{items: make(map[string]Blueprint, len(m))}
	for k, v := range m {
		slug := strings.ToLower(strings.TrimSpace(k))
		if slug == "" {
			return nil, fmt.Errorf("catalog: empty role key")
		}
		c.items[slug] = v
		c.roles = append(c.roles, slug)
	}
	sort.Strings(c.roles)
	return c, nil
}

// Get returns the blueprint for role, matched case-insensitively.
func (c *Catalog) Get(role string) (Blueprint, bool) {
	b, ok := c.items[strings.ToLower(strings.TrimSpace(role))]
	return b, ok
}

// Has reports whether role exists.
func (c *Catalog) Has(role string) bool {
	_, ok := c.Get(role)
	return ok
}

// Roles returns the known role slugs in sorted order.
func (c *Catalog) Roles() []string {
	out := make([]string, len(c.roles))
	copy(out, c.roles)
	return out
}

// Title turns a slug such as "growth-architect" into "Growth Architect".
func Title(slug string) string {
	words := strings.Split(slug, "-")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
