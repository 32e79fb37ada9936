package core

import (
	"sync"
	"time"
)

// Phase is the lifecycle phase of the VPN connection.
type Phase int

const (
	PhaseDisconnected Phase = iota
	PhaseConnecting
	PhaseConnected
	PhaseDisconnecting
)

func (p Phase) String() string {
	switch p {
	case PhaseDisconnected:
		return "disconnected"
	case PhaseConnecting:
		return "connecting"
	case PhaseConnected:
		return "connected"
	case PhaseDisconnecting:
		return "disconnecting"
	default:
		return "unknown"
	}
}

// Endpoint is a connectable remote server location.
type Endpoint struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Region      string `json:"region"`
	CountryCode string `json:"countryCode"`
	City        string `json:"city"`
	// Load is the advisory server load, 0–100. May be stale.
	Load int `json:"load"`
	// LatencyMs is the measured round-trip latency; 0 means unknown.
	LatencyMs  int  `json:"latencyMs"`
	IsFavorite bool `json:"isFavorite"`
}

// TrafficStats holds the live transfer counters for the active tunnel.
// ConnectedAt (unix seconds) is non-zero exactly while the phase is Connected.
type TrafficStats struct {
	UploadBytesPerSec   uint64 `json:"uploadBytesPerSec"`
	DownloadBytesPerSec uint64 `json:"downloadBytesPerSec"`
	TotalUploadBytes    uint64 `json:"totalUploadBytes"`
	TotalDownloadBytes  uint64 `json:"totalDownloadBytes"`
	ConnectedAt         int64  `json:"connectedAtTimestamp,omitempty"`
}

// StateSnapshot is a read-only copy of the connection state for the UI.
type StateSnapshot struct {
	Phase            string       `json:"phase"`
	ActiveEndpoint   *Endpoint    `json:"activeEndpoint,omitempty"`
	SelectedEndpoint *Endpoint    `json:"selectedEndpoint,omitempty"`
	Stats            TrafficStats `json:"stats"`
	LastError        *LastError   `json:"lastError,omitempty"`
}

// ConnectionState is the single source of truth for UI rendering.
// It is created once at startup and mutated only by the connection
// orchestrator (the stats poller writes stats through it while Connected).
// Readers take snapshots; the struct itself is never replaced.
type ConnectionState struct {
	mu       sync.RWMutex
	phase    Phase
	active   *Endpoint
	selected *Endpoint
	stats    TrafficStats
	lastErr  *LastError
	bus      *EventBus
}

// NewConnectionState creates the state object in the Disconnected phase.
func NewConnectionState(bus *EventBus) *ConnectionState {
	return &ConnectionState{phase: PhaseDisconnected, bus: bus}
}

// Phase returns the current connection phase.
func (cs *ConnectionState) Phase() Phase {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return cs.phase
}

// Snapshot returns a copy of the full state for rendering.
func (cs *ConnectionState) Snapshot() StateSnapshot {
	cs.mu.RLock()
	defer cs.mu.RUnlock()

	snap := StateSnapshot{
		Phase: cs.phase.String(),
		Stats: cs.stats,
	}
	if cs.active != nil {
		ep := *cs.active
		snap.ActiveEndpoint = &ep
	}
	if cs.selected != nil {
		ep := *cs.selected
		snap.SelectedEndpoint = &ep
	}
	if cs.lastErr != nil {
		le := *cs.lastErr
		snap.LastError = &le
	}
	return snap
}

// Selected returns the currently selected endpoint.
func (cs *ConnectionState) Selected() (Endpoint, bool) {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	if cs.selected == nil {
		return Endpoint{}, false
	}
	return *cs.selected, true
}

// Active returns the endpoint of the established tunnel, if any.
func (cs *ConnectionState) Active() (Endpoint, bool) {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	if cs.active == nil {
		return Endpoint{}, false
	}
	return *cs.active, true
}

// SetSelected records the user's endpoint selection.
func (cs *ConnectionState) SetSelected(ep *Endpoint) {
	cs.mu.Lock()
	if ep == nil {
		cs.selected = nil
	} else {
		e := *ep
		cs.selected = &e
	}
	cs.mu.Unlock()
	cs.publishChange(cs.Phase(), cs.Phase())
}

// BeginConnecting clears the last error and enters the Connecting phase.
func (cs *ConnectionState) BeginConnecting() {
	cs.mu.Lock()
	old := cs.phase
	cs.phase = PhaseConnecting
	cs.lastErr = nil
	cs.mu.Unlock()
	cs.publishChange(old, PhaseConnecting)
}

// SetConnected enters the Connected phase: the active endpoint is set and
// the stats are reset with the connection timestamp.
func (cs *ConnectionState) SetConnected(ep Endpoint, at time.Time) {
	cs.mu.Lock()
	old := cs.phase
	cs.phase = PhaseConnected
	e := ep
	cs.active = &e
	cs.stats = TrafficStats{ConnectedAt: at.Unix()}
	cs.mu.Unlock()
	cs.publishChange(old, PhaseConnected)
}

// BeginDisconnecting enters the Disconnecting phase.
func (cs *ConnectionState) BeginDisconnecting() {
	cs.mu.Lock()
	old := cs.phase
	cs.phase = PhaseDisconnecting
	cs.mu.Unlock()
	cs.publishChange(old, PhaseDisconnecting)
}

// SetDisconnected enters the Disconnected phase: the active endpoint is
// cleared and the stats zeroed. A non-nil lastErr records why.
func (cs *ConnectionState) SetDisconnected(lastErr *LastError) {
	cs.mu.Lock()
	old := cs.phase
	cs.phase = PhaseDisconnected
	cs.active = nil
	cs.stats = TrafficStats{}
	if lastErr != nil {
		cs.lastErr = lastErr
	}
	cs.mu.Unlock()
	cs.publishChange(old, PhaseDisconnected)
}

// SetStats updates the live traffic counters. Ignored unless Connected,
// so a late sample can never land on a torn-down state.
func (cs *ConnectionState) SetStats(upRate, downRate, totalUp, totalDown uint64) {
	cs.mu.Lock()
	if cs.phase != PhaseConnected {
		cs.mu.Unlock()
		return
	}
	cs.stats.UploadBytesPerSec = upRate
	cs.stats.DownloadBytesPerSec = downRate
	cs.stats.TotalUploadBytes = totalUp
	cs.stats.TotalDownloadBytes = totalDown
	stats := cs.stats
	cs.mu.Unlock()

	if cs.bus != nil {
		cs.bus.Publish(Event{Type: EventStatsUpdated, Payload: stats})
	}
}

func (cs *ConnectionState) publishChange(old, now Phase) {
	if cs.bus == nil {
		return
	}
	cs.bus.Publish(Event{
		Type:    EventConnectionStateChanged,
		Payload: ConnectionStatePayload{OldPhase: old, NewPhase: now},
	})
}
