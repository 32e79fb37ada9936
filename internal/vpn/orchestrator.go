// Package vpn contains the connection orchestrator: the state machine that
// owns the connection lifecycle, drives acquisition and the tunnel backend,
// and is the only writer of the shared connection state.
package vpn

import (
	"context"
	"sync"
	"time"

	"github.com/kstephens0331/sacvpn-desktop/internal/catalog"
	"github.com/kstephens0331/sacvpn-desktop/internal/core"
	"github.com/kstephens0331/sacvpn-desktop/internal/stats"
	"github.com/kstephens0331/sacvpn-desktop/internal/tunnel"
	"github.com/kstephens0331/sacvpn-desktop/internal/wgconf"
)

// Acquirer produces a complete tunnel config for an endpoint.
type Acquirer interface {
	Acquire(ctx context.Context, endpointID string) (wgconf.Config, error)
}

// Telemetry reports connection events. Failures never affect tunnel state.
type Telemetry interface {
	ReportEvent(ctx context.Context, event string, fields map[string]string) error
}

// Orchestrator serializes connect, disconnect and switch operations over
// one tunnel. At most one operation is in flight at a time; concurrent
// calls are rejected synchronously, never queued. The one exception is a
// disconnect issued while Connecting: that intent is remembered and
// applied as soon as the connect settles.
type Orchestrator struct {
	state     *core.ConnectionState
	catalog   *catalog.Catalog
	acquirer  Acquirer
	backend   tunnel.Backend
	telemetry Telemetry
	bus       *core.EventBus

	statsInterval time.Duration

	mu               sync.Mutex
	opInFlight       bool
	disconnectQueued bool
	poller           *stats.Poller
}

// New creates an orchestrator in the Disconnected phase. telemetry may be
// nil.
func New(state *core.ConnectionState, cat *catalog.Catalog, acq Acquirer, backend tunnel.Backend, telemetry Telemetry, bus *core.EventBus, statsInterval time.Duration) *Orchestrator {
	return &Orchestrator{
		state:         state,
		catalog:       cat,
		acquirer:      acq,
		backend:       backend,
		telemetry:     telemetry,
		bus:           bus,
		statsInterval: statsInterval,
	}
}

// SelectEndpoint records the user's choice in both the catalog and the
// connection state. Selection may change at any phase; it only takes
// effect on the next connect.
func (o *Orchestrator) SelectEndpoint(id string) error {
	if err := o.catalog.Select(id); err != nil {
		return err
	}
	ep, _ := o.catalog.Get(id)
	o.state.SetSelected(&ep)
	return nil
}

// Connect establishes a tunnel to the selected endpoint. Rejected
// synchronously when another operation is in flight or the phase is not
// Disconnected; rejected with NoEndpointSelected when nothing is selected.
func (o *Orchestrator) Connect(ctx context.Context) error {
	o.mu.Lock()
	if o.opInFlight || o.state.Phase() != core.PhaseDisconnected {
		o.mu.Unlock()
		return core.NewOpError(core.ErrorOperationInProgress, "another operation is in progress")
	}
	ep, ok := o.state.Selected()
	if !ok {
		o.mu.Unlock()
		return core.NewOpError(core.ErrorNoEndpointSelected, "no endpoint selected")
	}
	o.opInFlight = true
	o.mu.Unlock()

	err := o.connectLeg(ctx, ep)

	o.mu.Lock()
	queued := o.disconnectQueued
	o.disconnectQueued = false
	o.opInFlight = false
	o.mu.Unlock()

	if queued && err == nil {
		core.Log.Infof("VPN", "Applying disconnect queued during connect")
		return o.Disconnect(ctx)
	}
	return err
}

// connectLeg runs acquisition and activation for one endpoint. On failure
// the phase is Disconnected with lastError set; no partial state remains.
func (o *Orchestrator) connectLeg(ctx context.Context, ep core.Endpoint) error {
	core.Log.Infof("VPN", "Connecting to %s (%s)...", ep.Name, ep.ID)
	o.state.BeginConnecting()

	cfg, err := o.acquirer.Acquire(ctx, ep.ID)
	if err != nil {
		return o.failConnect(ctx, ep, err)
	}
	if cerr := cfg.Complete(); cerr != nil {
		cfg.Zero()
		return o.failConnect(ctx, ep, core.WrapOp(core.ErrorIssuance, cerr, "issued config incomplete"))
	}

	err = o.backend.Activate(ctx, cfg)
	cfg.Zero()
	if err != nil {
		return o.failConnect(ctx, ep, core.WrapOp(core.ErrorActivation, err, "activate tunnel"))
	}

	o.state.SetConnected(ep, time.Now())
	o.catalog.MarkRecent(ep.ID)
	o.startPoller()
	o.report(ctx, "connect", ep.ID)
	core.Log.Infof("VPN", "Connected to %s", ep.Name)
	return nil
}

func (o *Orchestrator) failConnect(ctx context.Context, ep core.Endpoint, err error) error {
	core.Log.Errorf("VPN", "Connect to %s failed: %v", ep.ID, err)
	o.state.SetDisconnected(core.ToLastError(err))
	o.report(ctx, "connect_failed", ep.ID)
	return err
}

// Disconnect tears the tunnel down. While a connect or the reconnect leg
// of a switch is settling the intent is queued and applied once that
// operation settles; when already Disconnected it is a no-op.
func (o *Orchestrator) Disconnect(ctx context.Context) error {
	o.mu.Lock()
	phase := o.state.Phase()
	if o.opInFlight {
		// Connecting covers the in-flight connect (or reconnect leg);
		// Connected covers the window where the leg has settled but the
		// owning operation has not yet released its flags. Both owners
		// apply the queued intent when they settle.
		if phase == core.PhaseConnecting || phase == core.PhaseConnected {
			o.disconnectQueued = true
			o.mu.Unlock()
			core.Log.Infof("VPN", "Disconnect requested while connecting, queued")
			return nil
		}
		o.mu.Unlock()
		return core.NewOpError(core.ErrorOperationInProgress, "another operation is in progress")
	}
	switch phase {
	case core.PhaseConnecting:
		o.disconnectQueued = true
		o.mu.Unlock()
		core.Log.Infof("VPN", "Disconnect requested while connecting, queued")
		return nil
	case core.PhaseDisconnected:
		o.mu.Unlock()
		return nil
	case core.PhaseDisconnecting:
		o.mu.Unlock()
		return core.NewOpError(core.ErrorOperationInProgress, "disconnect already in progress")
	}
	o.opInFlight = true
	o.mu.Unlock()

	o.disconnectLeg(ctx)

	o.mu.Lock()
	o.opInFlight = false
	o.mu.Unlock()
	return nil
}

// disconnectLeg stops the poller, then deactivates. The poller stop is
// awaited so no stats sample can land after the phase leaves Connected.
// Deactivation failure is logged but still ends in Disconnected; a stuck
// tunnel must not trap the UI.
func (o *Orchestrator) disconnectLeg(ctx context.Context) {
	ep, _ := o.state.Active()
	core.Log.Infof("VPN", "Disconnecting from %s...", ep.ID)

	o.stopPoller()
	o.state.BeginDisconnecting()

	if err := o.backend.Deactivate(ctx); err != nil {
		core.Log.Errorf("VPN", "Deactivate failed: %v", err)
	}

	o.state.SetDisconnected(nil)
	o.report(ctx, "disconnect", ep.ID)
	core.Log.Infof("VPN", "Disconnected")
}

// SwitchEndpoint moves an established tunnel to another endpoint as one
// logical operation: disconnect, then connect against the new endpoint.
// Switching to the active endpoint is a no-op. If the reconnect leg fails
// the final phase is Disconnected, not Connected.
func (o *Orchestrator) SwitchEndpoint(ctx context.Context, newID string) error {
	o.mu.Lock()
	if o.opInFlight || o.state.Phase() != core.PhaseConnected {
		o.mu.Unlock()
		return core.NewOpError(core.ErrorOperationInProgress, "switch requires an established connection")
	}
	active, _ := o.state.Active()
	if active.ID == newID {
		o.mu.Unlock()
		return nil
	}
	newEp, ok := o.catalog.Get(newID)
	if !ok {
		o.mu.Unlock()
		return core.NewOpError(core.ErrorNoEndpointSelected, "unknown endpoint %q", newID)
	}
	o.opInFlight = true
	o.mu.Unlock()

	core.Log.Infof("VPN", "Switching %s -> %s", active.ID, newID)
	o.disconnectLeg(ctx)

	if err := o.catalog.Select(newID); err == nil {
		o.state.SetSelected(&newEp)
	}
	err := o.connectLeg(ctx, newEp)

	o.mu.Lock()
	queued := o.disconnectQueued
	o.disconnectQueued = false
	o.opInFlight = false
	o.mu.Unlock()

	if queued && err == nil {
		core.Log.Infof("VPN", "Applying disconnect queued during switch")
		return o.Disconnect(ctx)
	}
	return err
}

// Snapshot exposes the current connection state for the UI.
func (o *Orchestrator) Snapshot() core.StateSnapshot {
	return o.state.Snapshot()
}

func (o *Orchestrator) startPoller() {
	p := stats.NewPoller(o.backend, o.statsInterval)
	p.OnSample = func(s stats.Sample) {
		o.state.SetStats(s.UploadBytesPerSec, s.DownloadBytesPerSec, s.TotalUploadBytes, s.TotalDownloadBytes)
	}
	p.OnHealthLost = o.onHealthLost
	p.Start(context.Background())

	o.mu.Lock()
	o.poller = p
	o.mu.Unlock()
}

// stopPoller awaits the poll loop's exit before returning.
func (o *Orchestrator) stopPoller() {
	o.mu.Lock()
	p := o.poller
	o.poller = nil
	o.mu.Unlock()
	if p != nil {
		p.Stop()
	}
}

// onHealthLost surfaces a warning only. Counter-read loss is not treated
// as proof the tunnel is down; automatic reconnect stays out of scope.
func (o *Orchestrator) onHealthLost() {
	core.Log.Warnf("VPN", "Tunnel health lost (counter reads failing)")
	if o.bus != nil {
		o.bus.Publish(core.Event{Type: core.EventHealthLost})
	}
}

// report sends a telemetry event, swallowing any failure.
func (o *Orchestrator) report(ctx context.Context, event, endpointID string) {
	if o.telemetry == nil {
		return
	}
	if err := o.telemetry.ReportEvent(ctx, event, map[string]string{"endpoint_id": endpointID}); err != nil {
		core.Log.Debugf("VPN", "Telemetry %s failed: %v", event, err)
	}
}
