// Package acquire implements the credential and config acquisition
// protocol: one call that hides the register-then-issue round trip, the
// already-registered fallback and the optional server switch, and yields a
// structurally complete tunnel config.
package acquire

import (
	"context"
	"errors"
	"net/http"

	"github.com/kstephens0331/sacvpn-desktop/internal/api"
	"github.com/kstephens0331/sacvpn-desktop/internal/core"
	"github.com/kstephens0331/sacvpn-desktop/internal/wgconf"
)

// Service is the subset of the API client the protocol needs.
type Service interface {
	RegisterDevice(ctx context.Context, fingerprint, deviceName, platform string) (api.DeviceConfig, error)
	FetchDeviceConfig(ctx context.Context, fingerprint string) (api.DeviceConfig, error)
	SwitchServer(ctx context.Context, deviceID, serverID string) (api.PeerUpdate, error)
}

// Identity is the persisted device identity the protocol reads and,
// on first registration, writes.
type Identity interface {
	EnsureFingerprint() (string, error)
	DeviceID() string
	SetDeviceID(id string) error
}

// Acquirer runs the acquisition protocol against a service and an
// identity store.
type Acquirer struct {
	svc        Service
	ident      Identity
	deviceName string
	platform   string
}

// New creates an acquirer. deviceName and platform are sent on
// registration so the account page can label the device.
func New(svc Service, ident Identity, deviceName, platform string) *Acquirer {
	return &Acquirer{svc: svc, ident: ident, deviceName: deviceName, platform: platform}
}

// Acquire produces a tunnel config for this device, targeted at endpointID
// when non-empty. The device ID is cached on first successful registration
// and the registration step is skipped from then on. No step is retried;
// classification of the failure is left in the returned *core.OpError.
func (a *Acquirer) Acquire(ctx context.Context, endpointID string) (wgconf.Config, error) {
	fingerprint, err := a.ident.EnsureFingerprint()
	if err != nil {
		return wgconf.Config{}, core.WrapOp(core.ErrorRegistration, err, "device fingerprint")
	}

	var dc api.DeviceConfig
	if a.ident.DeviceID() == "" {
		dc, err = a.register(ctx, fingerprint)
	} else {
		dc, err = a.svc.FetchDeviceConfig(ctx, fingerprint)
		if err != nil {
			err = classify(core.ErrorIssuance, err, "fetch device config")
		}
	}
	if err != nil {
		return wgconf.Config{}, err
	}

	if dc.DeviceID != "" {
		if err := a.ident.SetDeviceID(dc.DeviceID); err != nil {
			core.Log.Warnf("Acquire", "Failed to persist device id: %v", err)
		}
	}

	cfg := dc.ToConfig()
	if endpointID == "" || endpointID == dc.ServerID {
		return cfg, nil
	}

	deviceID := dc.DeviceID
	if deviceID == "" {
		deviceID = a.ident.DeviceID()
	}
	upd, err := a.svc.SwitchServer(ctx, deviceID, endpointID)
	if err != nil {
		return wgconf.Config{}, classify(core.ErrorIssuance, err, "switch server")
	}

	cfg.PeerPublicKey = upd.Peer.PublicKey
	cfg.PresharedKey = upd.Peer.PresharedKey
	cfg.Endpoint = upd.Peer.Endpoint
	if len(upd.Peer.AllowedIPs) > 0 {
		cfg.AllowedIPs = upd.Peer.AllowedIPs
	}
	if upd.Peer.PersistentKeepalive > 0 {
		cfg.Keepalive = upd.Peer.PersistentKeepalive
	}
	return cfg, nil
}

// register runs the combined register+issue step, falling back to the
// fetch-existing path on the distinguished already-registered conflict.
func (a *Acquirer) register(ctx context.Context, fingerprint string) (api.DeviceConfig, error) {
	dc, err := a.svc.RegisterDevice(ctx, fingerprint, a.deviceName, a.platform)
	if err == nil {
		return dc, nil
	}
	if errors.Is(err, api.ErrAlreadyRegistered) {
		core.Log.Infof("Acquire", "Device already registered, fetching existing config")
		dc, err = a.svc.FetchDeviceConfig(ctx, fingerprint)
		if err != nil {
			return api.DeviceConfig{}, classify(core.ErrorIssuance, err, "fetch existing config")
		}
		return dc, nil
	}
	return api.DeviceConfig{}, classify(core.ErrorRegistration, err, "register device")
}

// classify wraps a service error with its kind: 401 means the session is
// gone regardless of which step failed, transport errors are network, and
// everything else keeps the step's own kind.
func classify(kind core.ErrorKind, err error, msg string) error {
	var apiErr *api.APIError
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode == http.StatusUnauthorized {
			return core.WrapOp(core.ErrorAuth, err, msg)
		}
		return core.WrapOp(kind, err, msg)
	}
	return core.WrapOp(core.ErrorNetwork, err, msg)
}
