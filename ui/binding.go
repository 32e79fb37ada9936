package main

import (
	"context"
	"os"
	"runtime"

	"github.com/wailsapp/wails/v3/pkg/application"

	"github.com/kstephens0331/sacvpn-desktop/internal/api"
	"github.com/kstephens0331/sacvpn-desktop/internal/catalog"
	"github.com/kstephens0331/sacvpn-desktop/internal/core"
	"github.com/kstephens0331/sacvpn-desktop/internal/store"
	"github.com/kstephens0331/sacvpn-desktop/internal/update"
	"github.com/kstephens0331/sacvpn-desktop/internal/vpn"
)

// BindingService is exposed to the frontend via Wails bindings.
// Each public method becomes callable from JavaScript.
type BindingService struct {
	orch    *vpn.Orchestrator
	catalog *catalog.Catalog
	state   *core.ConnectionState
	client  *api.Client
	store   *store.Store
	cfgMgr  *core.ConfigManager
	checker *update.Checker
	bus     *core.EventBus

	ctx      context.Context    // cancelled on GUI shutdown
	cancel   context.CancelFunc // stops background goroutines
	notifMgr *NotificationManager
}

// NewBindingService wires the binding layer over the orchestrator and its
// collaborators.
func NewBindingService(orch *vpn.Orchestrator, cat *catalog.Catalog, state *core.ConnectionState, client *api.Client, st *store.Store, cfgMgr *core.ConfigManager, checker *update.Checker, bus *core.EventBus) *BindingService {
	ctx, cancel := context.WithCancel(context.Background())
	b := &BindingService{
		orch:     orch,
		catalog:  cat,
		state:    state,
		client:   client,
		store:    st,
		cfgMgr:   cfgMgr,
		checker:  checker,
		bus:      bus,
		ctx:      ctx,
		cancel:   cancel,
		notifMgr: NewNotificationManager(),
	}
	b.notifMgr.SetEnabled(cfgMgr.Get().GUI.Notifications)
	return b
}

// Shutdown cancels all background goroutines.
func (b *BindingService) Shutdown() {
	b.cancel()
}

// GetPlatform returns the OS identifier ("windows", "darwin", etc.)
// so the frontend can adapt UI hints per platform.
func (b *BindingService) GetPlatform() string {
	return runtime.GOOS
}

// GetVersion returns the running build's version string.
func (b *BindingService) GetVersion() string {
	return Version
}

// bootstrap restores favorites and selection from the store and, when a
// session exists, refreshes the endpoint directory.
func (b *BindingService) bootstrap() {
	st := b.store.Get()
	b.catalog.SetFavorites(st.Favorites)

	if !b.client.HasToken() {
		return
	}
	if err := b.RefreshEndpoints(); err != nil {
		core.Log.Warnf("UI", "Initial directory fetch failed: %v", err)
		return
	}
	if st.LastEndpointID != "" {
		if err := b.orch.SelectEndpoint(st.LastEndpointID); err == nil {
			return
		}
	}
	if sel, ok := b.catalog.Selected(); ok {
		b.orch.SelectEndpoint(sel.ID)
	}
}

// forwardEvents bridges bus events to the frontend and the notifier.
func (b *BindingService) forwardEvents(app *application.App) {
	bus := b.bus

	bus.Subscribe(core.EventConnectionStateChanged, func(e core.Event) {
		snap := b.state.Snapshot()
		app.Event.Emit("connection:state", snap)
		if snap.LastError != nil && snap.Phase == "disconnected" {
			b.notifMgr.NotifyConnectionError(snap.LastError.Message)
		}
	})
	bus.Subscribe(core.EventStatsUpdated, func(e core.Event) {
		app.Event.Emit("connection:stats", e.Payload)
	})
	bus.Subscribe(core.EventEndpointsUpdated, func(e core.Event) {
		app.Event.Emit("endpoints:updated", nil)
	})
	bus.Subscribe(core.EventHealthLost, func(e core.Event) {
		app.Event.Emit("connection:health-lost", nil)
		b.notifMgr.NotifyHealthLost()
	})
	bus.Subscribe(core.EventUpdateAvailable, func(e core.Event) {
		app.Event.Emit("update:available", e.Payload)
		if p, ok := e.Payload.(core.UpdatePayload); ok {
			b.notifMgr.NotifyUpdateAvailable(p.Version)
		}
	})
}

func hostName() (string, error) {
	return os.Hostname()
}
