package adapters

import (
	"strings"
	"sync"

	"powersearch/models"
)

// URLBuilder builds a site's search URL for a query, optional price bounds and a 1-based page.
type URLBuilder func(query string, minPrice, maxPrice *float64, page int) string

// Extractor turns raw page content into listings. It must never panic.
type Extractor func(content, baseURL string) []models.Listing

// Adapter is the per-site capability record.
type Adapter struct {
	Site     string
	GeoHint  string
	BuildURL URLBuilder
	Extract  Extractor
}

// Registry maps site identifiers to adapters, with a generic fallback.
type Registry struct {
	mu       sync.RWMutex
	adapters map[string]Adapter
}

// NewRegistry returns a registry pre-populated with the built-in storefronts.
func NewRegistry() *Registry {
	r := &Registry{adapters: make(map[string]Adapter)}
	for _, a := range builtins() {
		r.Register(a)
	}
	return r
}

// NewEmptyRegistry returns a registry that only knows the generic adapter.
func NewEmptyRegistry() *Registry {
	return &Registry{adapters: make(map[string]Adapter)}
}

// Register adds or replaces the adapter for a.Site.
func (r *Registry) Register(a Adapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := strings.ToLower(a.Site)
	if a.BuildURL == nil {
		a.BuildURL = genericURLBuilder(key)
	}
	if a.Extract == nil {
		a.Extract = ExtractGeneric
	}
	r.adapters[key] = a
}

// Get returns the adapter for site. The bool is false when the generic
// adapter was substituted because nothing is registered for site.
func (r *Registry) Get(site string) (Adapter, bool) {
	key := strings.ToLower(strings.TrimSpace(site))

	r.mu.RLock()
	a, ok := r.adapters[key]
	r.mu.RUnlock()
	if ok {
		return a, true
	}
	return Generic(key), false
}

// Sites lists the registered identifiers.
func (r *Registry) Sites() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.adapters))
	for k := range r.adapters {
		out = append(out, k)
	}
	return out
}

// Generic builds the fallback adapter for an unregistered site.
func Generic(site string) Adapter {
	return Adapter{
		Site:     site,
		BuildURL: genericURLBuilder(site),
		Extract:  ExtractGeneric,
	}
}
