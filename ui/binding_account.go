package main

import (
	"github.com/kstephens0331/sacvpn-desktop/internal/core"
	"github.com/kstephens0331/sacvpn-desktop/internal/secrets"
)

// Login authenticates, stores the token in the system keychain and loads
// the endpoint directory.
func (b *BindingService) Login(email, password string) error {
	res, err := b.client.Login(b.ctx, email, password)
	if err != nil {
		return err
	}
	if err := secrets.SaveToken(email, res.Token); err != nil {
		core.Log.Warnf("UI", "Failed to store token in keychain: %v", err)
	}
	if err := b.store.SetEmail(email); err != nil {
		core.Log.Warnf("UI", "Failed to persist account email: %v", err)
	}

	if err := b.RefreshEndpoints(); err != nil {
		core.Log.Warnf("UI", "Directory fetch after login failed: %v", err)
	}
	return nil
}

// Logout disconnects if needed and discards the stored session.
func (b *BindingService) Logout() error {
	if err := b.orch.Disconnect(b.ctx); err != nil {
		return err
	}

	email := b.store.Get().Email
	if email != "" {
		if err := secrets.DeleteToken(email); err != nil {
			core.Log.Warnf("UI", "Failed to remove token from keychain: %v", err)
		}
	}
	b.client.SetToken("")
	return b.store.SetEmail("")
}

// StoredAccount returns the remembered account email and whether a usable
// session exists, so the frontend can skip the login form.
func (b *BindingService) StoredAccount() (email string, loggedIn bool) {
	return b.store.Get().Email, b.client.HasToken()
}
