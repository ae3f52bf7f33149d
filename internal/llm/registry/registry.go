// Package registry implements the Model Registry Cache: an O(1) in-memory
// index from model name to the provider that serves it, with exact, alias,
// and weak substring lookup, refreshed only on explicit request.
package registry

import (
	"strings"
	"sync"

	"github.com/AlessandroBorges/jsimplerag-go/internal/llm"
)

// Cache maps model names to providers. Safe for concurrent use.
type Cache struct {
	mu        sync.RWMutex
	providers []llm.Provider
	exact     map[string]llm.Provider
	aliases   map[string]llm.Provider
}

// New builds an empty cache. Call Refresh to populate it.
func New() *Cache {
	return &Cache{
		exact:   make(map[string]llm.Provider),
		aliases: make(map[string]llm.Provider),
	}
}

// Refresh rebuilds the lookup tables from the given providers. It is the
// only way entries change: there is no background refresh, matching the
// explicit-refresh-only design of the registry this cache implements.
func (c *Cache) Refresh(providers []llm.Provider) {
	exact := make(map[string]llm.Provider, len(providers)*2)
	aliases := make(map[string]llm.Provider, len(providers)*2)

	for _, p := range providers {
		for _, name := range p.Models() {
			norm := normalize(name)
			exact[norm] = p
			for _, alias := range aliasesFor(norm) {
				aliases[alias] = p
			}
		}
	}

	c.mu.Lock()
	c.providers = providers
	c.exact = exact
	c.aliases = aliases
	c.mu.Unlock()
}

// Resolve finds the provider for model using exact match, then alias match,
// then a weak substring match against every registered model name. It
// returns llm.ErrNoProviderForModel if nothing matches.
func (c *Cache) Resolve(model string) (llm.Provider, error) {
	norm := normalize(model)

	c.mu.RLock()
	defer c.mu.RUnlock()

	if p, ok := c.exact[norm]; ok {
		return p, nil
	}
	if p, ok := c.aliases[norm]; ok {
		return p, nil
	}
	for known, p := range c.exact {
		if strings.Contains(known, norm) || strings.Contains(norm, known) {
			return p, nil
		}
	}
	return nil, llm.ErrNoProviderForModel
}

// Providers returns the full set of providers currently registered.
func (c *Cache) Providers() []llm.Provider {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]llm.Provider, len(c.providers))
	copy(out, c.providers)
	return out
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// aliasesFor derives common shorthand aliases for a fully-qualified model
// name, e.g. "gpt-4o-2024-08-06" -> "gpt-4o" is NOT derived (dated suffixes
// are ambiguous); "models/text-embedding-004" -> "text-embedding-004" is.
func aliasesFor(norm string) []string {
	if idx := strings.LastIndex(norm, "/"); idx >= 0 && idx+1 < len(norm) {
		return []string{norm[idx+1:]}
	}
	return nil
}
