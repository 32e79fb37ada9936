// Package catalog maintains the client-side directory of connectable
// endpoints: the merged server list, the user's selection and favorites,
// and the sorted/filtered views the UI renders.
package catalog

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/kstephens0331/sacvpn-desktop/internal/core"
)

// Tab selects which subset of the catalog a filtered view shows.
type Tab int

const (
	TabAll Tab = iota
	TabFavorites
	TabRecent
)

// Catalog holds the known endpoints. Directory refreshes replace the list
// wholesale; locally-owned fields (favorites, selection) survive the merge.
type Catalog struct {
	mu         sync.RWMutex
	endpoints  []core.Endpoint
	selectedID string
	recentIDs  []string
	bus        *core.EventBus
}

// New creates an empty catalog.
func New(bus *core.EventBus) *Catalog {
	return &Catalog{bus: bus}
}

// ReplaceAll swaps in a freshly fetched endpoint list. Favorite flags are
// carried over by endpoint ID; incoming IsFavorite values are ignored
// because the directory does not own that field. If the selected endpoint
// vanished from the new list, selection falls back to the first endpoint
// in display order (or none when the list is empty).
func (c *Catalog) ReplaceAll(endpoints []core.Endpoint) {
	c.mu.Lock()

	favs := make(map[string]bool, len(c.endpoints))
	for _, ep := range c.endpoints {
		if ep.IsFavorite {
			favs[ep.ID] = true
		}
	}

	fresh := make([]core.Endpoint, len(endpoints))
	copy(fresh, endpoints)
	for i := range fresh {
		fresh[i].IsFavorite = favs[fresh[i].ID]
	}
	sortEndpoints(fresh)
	c.endpoints = fresh

	if c.selectedID != "" && c.indexOfLocked(c.selectedID) < 0 {
		c.selectedID = ""
	}
	if c.selectedID == "" && len(c.endpoints) > 0 {
		c.selectedID = c.endpoints[0].ID
	}
	if len(c.endpoints) == 0 {
		c.selectedID = ""
	}

	c.mu.Unlock()

	if c.bus != nil {
		c.bus.Publish(core.Event{Type: core.EventEndpointsUpdated})
	}
}

// All returns the endpoints in display order.
func (c *Catalog) All() []core.Endpoint {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]core.Endpoint, len(c.endpoints))
	copy(out, c.endpoints)
	return out
}

// Get returns the endpoint with the given ID.
func (c *Catalog) Get(id string) (core.Endpoint, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if i := c.indexOfLocked(id); i >= 0 {
		return c.endpoints[i], true
	}
	return core.Endpoint{}, false
}

// Select marks the endpoint with the given ID as the user's choice.
func (c *Catalog) Select(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.indexOfLocked(id) < 0 {
		return fmt.Errorf("unknown endpoint %q", id)
	}
	c.selectedID = id
	return nil
}

// Selected returns the currently selected endpoint.
func (c *Catalog) Selected() (core.Endpoint, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if i := c.indexOfLocked(c.selectedID); i >= 0 {
		return c.endpoints[i], true
	}
	return core.Endpoint{}, false
}

// ToggleFavorite flips the favorite flag and returns the new value.
// Unknown ids are a no-op.
func (c *Catalog) ToggleFavorite(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := c.indexOfLocked(id)
	if i < 0 {
		return false
	}
	c.endpoints[i].IsFavorite = !c.endpoints[i].IsFavorite
	return c.endpoints[i].IsFavorite
}

// SetFavorites marks exactly the given IDs as favorites. Used to restore
// persisted favorites at startup.
func (c *Catalog) SetFavorites(ids []string) {
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}

	c.mu.Lock()
	for i := range c.endpoints {
		c.endpoints[i].IsFavorite = want[c.endpoints[i].ID]
	}
	c.mu.Unlock()
}

// Favorites returns the IDs of all favorite endpoints.
func (c *Catalog) Favorites() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []string
	for _, ep := range c.endpoints {
		if ep.IsFavorite {
			out = append(out, ep.ID)
		}
	}
	return out
}

// MarkRecent records id as the most recently used endpoint.
// Keeps at most five entries.
func (c *Catalog) MarkRecent(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	kept := c.recentIDs[:0]
	for _, r := range c.recentIDs {
		if r != id {
			kept = append(kept, r)
		}
	}
	c.recentIDs = append([]string{id}, kept...)
	if len(c.recentIDs) > 5 {
		c.recentIDs = c.recentIDs[:5]
	}
}

// Filtered returns the endpoints matching a tab and a case-insensitive
// substring query over name, city and country code, in display order.
// Recent entries keep their usage order instead.
func (c *Catalog) Filtered(query string, tab Tab) []core.Endpoint {
	c.mu.RLock()
	defer c.mu.RUnlock()

	query = strings.ToLower(strings.TrimSpace(query))

	var source []core.Endpoint
	switch tab {
	case TabFavorites:
		for _, ep := range c.endpoints {
			if ep.IsFavorite {
				source = append(source, ep)
			}
		}
	case TabRecent:
		for _, id := range c.recentIDs {
			if i := c.indexOfLocked(id); i >= 0 {
				source = append(source, c.endpoints[i])
			}
		}
	default:
		source = c.endpoints
	}

	out := make([]core.Endpoint, 0, len(source))
	for _, ep := range source {
		if query == "" || matchesQuery(ep, query) {
			out = append(out, ep)
		}
	}
	return out
}

func matchesQuery(ep core.Endpoint, query string) bool {
	return strings.Contains(strings.ToLower(ep.Name), query) ||
		strings.Contains(strings.ToLower(ep.City), query) ||
		strings.Contains(strings.ToLower(ep.CountryCode), query)
}

// indexOfLocked returns the position of id, or -1. Caller holds the lock.
func (c *Catalog) indexOfLocked(id string) int {
	if id == "" {
		return -1
	}
	for i, ep := range c.endpoints {
		if ep.ID == id {
			return i
		}
	}
	return -1
}

// sortEndpoints orders by measured latency ascending with unknown (0)
// latencies last, then by load ascending, then by ID for stability.
func sortEndpoints(eps []core.Endpoint) {
	sort.SliceStable(eps, func(i, j int) bool {
		li, lj := eps[i].LatencyMs, eps[j].LatencyMs
		if (li > 0) != (lj > 0) {
			return li > 0
		}
		if li != lj {
			return li < lj
		}
		if eps[i].Load != eps[j].Load {
			return eps[i].Load < eps[j].Load
		}
		return eps[i].ID < eps[j].ID
	})
}
