// Package permission tracks which review servers the user allowed
// reviewdeck to contact. Access is granted per origin (scheme, host and
// port); a cycle may only start when every configured site's origin is
// granted.
package permission

import (
	"context"
	"fmt"
	"net/url"
	"slices"
	"strings"
	"sync"

	"github.com/dshills/reviewdeck/internal/review"
)

// Persister stores the granted origins, typically in the config file.
type Persister func(origins []string) error

// Gate answers and updates host-permission queries. It is safe for
// concurrent use.
type Gate struct {
	mu      sync.Mutex
	granted []string
	persist Persister
}

// NewGate creates a Gate from previously granted origins. persist may be
// nil, in which case grants only live in memory.
func NewGate(origins []string, persist Persister) *Gate {
	g := &Gate{persist: persist}
	for _, o := range origins {
		if norm, err := Origin(o); err == nil && !slices.Contains(g.granted, norm) {
			g.granted = append(g.granted, norm)
		}
	}
	return g
}

// Origin returns the "scheme://host/" origin of a site URL.
func Origin(siteURL string) (string, error) {
	u, err := url.Parse(siteURL)
	if err != nil {
		return "", fmt.Errorf("parsing site url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("site url %q has no scheme or host", siteURL)
	}
	return strings.ToLower(u.Scheme) + "://" + strings.ToLower(u.Host) + "/", nil
}

// Origins returns the distinct origins of sites in order. Sites without a
// URL, such as demo sites, need no access and are skipped. So are sites
// whose URL has no origin; their backend reports them as misconfigured.
func Origins(sites []review.Site) []string {
	var out []string
	for _, s := range sites {
		if s.URL == "" {
			continue
		}
		o, err := Origin(s.URL)
		if err != nil {
			continue
		}
		if !slices.Contains(out, o) {
			out = append(out, o)
		}
	}
	return out
}

// CheckGranted reports whether every site's origin is granted.
func (g *Gate) CheckGranted(_ context.Context, sites []review.Site) (bool, error) {
	return len(g.Missing(sites)) == 0, nil
}

// Missing returns the origins of sites that are not granted yet.
func (g *Gate) Missing(sites []review.Site) []string {
	origins := Origins(sites)
	g.mu.Lock()
	defer g.mu.Unlock()
	var missing []string
	for _, o := range origins {
		if !slices.Contains(g.granted, o) {
			missing = append(missing, o)
		}
	}
	return missing
}

// Grant adds the origins of sites and persists the result.
func (g *Gate) Grant(_ context.Context, sites []review.Site) error {
	origins := Origins(sites)
	g.mu.Lock()
	defer g.mu.Unlock()
	next := slices.Clone(g.granted)
	for _, o := range origins {
		if !slices.Contains(next, o) {
			next = append(next, o)
		}
	}
	return g.commit(next)
}

// Revoke removes the origins of sites and persists the result.
func (g *Gate) Revoke(_ context.Context, sites []review.Site) error {
	origins := Origins(sites)
	g.mu.Lock()
	defer g.mu.Unlock()
	next := slices.DeleteFunc(slices.Clone(g.granted), func(o string) bool {
		return slices.Contains(origins, o)
	})
	return g.commit(next)
}

// Granted returns a copy of the granted origins.
func (g *Gate) Granted() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return slices.Clone(g.granted)
}

// commit persists next and, on success, makes it current. Callers hold mu.
func (g *Gate) commit(next []string) error {
	if next == nil {
		next = []string{}
	}
	if g.persist != nil {
		if err := g.persist(next); err != nil {
			return fmt.Errorf("saving permissions: %w", err)
		}
	}
	g.granted = next
	return nil
}
