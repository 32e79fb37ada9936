package main

import (
	"github.com/kstephens0331/sacvpn-desktop/internal/catalog"
	"github.com/kstephens0331/sacvpn-desktop/internal/core"
)

// RefreshEndpoints fetches the server directory and replaces the catalog.
func (b *BindingService) RefreshEndpoints() error {
	endpoints, err := b.client.FetchServers(b.ctx)
	if err != nil {
		return err
	}
	b.catalog.ReplaceAll(endpoints)
	return nil
}

// GetEndpoints returns the endpoints for one list tab, filtered by a
// search query. tab is "all", "favorites" or "recent".
func (b *BindingService) GetEndpoints(query, tab string) []core.Endpoint {
	t := catalog.TabAll
	switch tab {
	case "favorites":
		t = catalog.TabFavorites
	case "recent":
		t = catalog.TabRecent
	}
	return b.catalog.Filtered(query, t)
}

// SelectEndpoint records the user's endpoint choice.
func (b *BindingService) SelectEndpoint(id string) error {
	return b.orch.SelectEndpoint(id)
}

// ToggleFavorite flips an endpoint's favorite flag and persists the set.
func (b *BindingService) ToggleFavorite(id string) bool {
	fav := b.catalog.ToggleFavorite(id)
	if err := b.store.SetFavorites(b.catalog.Favorites()); err != nil {
		core.Log.Warnf("UI", "Failed to persist favorites: %v", err)
	}
	return fav
}
