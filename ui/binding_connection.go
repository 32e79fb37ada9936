package main

import (
	"github.com/kstephens0331/sacvpn-desktop/internal/core"
)

// GetConnectionState returns the current connection snapshot for the
// frontend's initial render; subsequent changes arrive as events.
func (b *BindingService) GetConnectionState() core.StateSnapshot {
	return b.orch.Snapshot()
}

// Connect establishes a tunnel to the selected endpoint.
func (b *BindingService) Connect() error {
	if err := b.orch.Connect(b.ctx); err != nil {
		return err
	}
	if ep, ok := b.state.Active(); ok {
		if err := b.store.SetLastEndpoint(ep.ID); err != nil {
			core.Log.Warnf("UI", "Failed to persist last endpoint: %v", err)
		}
	}
	return nil
}

// Disconnect tears the tunnel down.
func (b *BindingService) Disconnect() error {
	return b.orch.Disconnect(b.ctx)
}

// SwitchEndpoint moves an established connection to another endpoint.
func (b *BindingService) SwitchEndpoint(id string) error {
	if err := b.orch.SwitchEndpoint(b.ctx, id); err != nil {
		return err
	}
	if err := b.store.SetLastEndpoint(id); err != nil {
		core.Log.Warnf("UI", "Failed to persist last endpoint: %v", err)
	}
	return nil
}
