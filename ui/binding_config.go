package main

import (
	"context"

	"github.com/kstephens0331/sacvpn-desktop/internal/core"
	"github.com/kstephens0331/sacvpn-desktop/internal/update"
)

// GetConfig returns the current application configuration.
func (b *BindingService) GetConfig() core.Config {
	return b.cfgMgr.Get()
}

// SetConfig persists a new configuration from the settings UI. Backend and
// API changes take effect on the next connect.
func (b *BindingService) SetConfig(cfg core.Config) error {
	if err := b.cfgMgr.Set(cfg); err != nil {
		return err
	}
	b.notifMgr.SetEnabled(cfg.GUI.Notifications)
	return nil
}

// CheckForUpdate performs an immediate update check. Returns nil when
// already up to date.
func (b *BindingService) CheckForUpdate() (*update.Info, error) {
	return b.checker.CheckNow(context.Background())
}
