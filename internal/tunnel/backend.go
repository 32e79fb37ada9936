// Package tunnel contains the platform backends that turn a structured
// WireGuard config into a live interface and expose its transfer counters.
package tunnel

import (
	"context"
	"time"

	"github.com/kstephens0331/sacvpn-desktop/internal/wgconf"
)

// Counters are the cumulative transfer totals of the active tunnel.
// LastHandshake is zero when no handshake has completed yet.
type Counters struct {
	BytesIn       uint64
	BytesOut      uint64
	LastHandshake time.Time
}

// Backend brings a tunnel up and down and reads its counters. A backend
// manages at most one tunnel at a time; Activate on an active backend
// fails. Deactivate on an inactive backend is a no-op.
type Backend interface {
	Activate(ctx context.Context, cfg wgconf.Config) error
	Deactivate(ctx context.Context) error
	ReadCounters() (Counters, error)
}
