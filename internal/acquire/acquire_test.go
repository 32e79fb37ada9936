package acquire

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/kstephens0331/sacvpn-desktop/internal/api"
	"github.com/kstephens0331/sacvpn-desktop/internal/core"
)

type fakeService struct {
	registerCalls int
	fetchCalls    int
	switchCalls   int

	registerErr error
	fetchErr    error
	switchErr   error

	config api.DeviceConfig
	update api.PeerUpdate
}

func (f *fakeService) RegisterDevice(ctx context.Context, fingerprint, name, platform string) (api.DeviceConfig, error) {
	f.registerCalls++
	if f.registerErr != nil {
		return api.DeviceConfig{}, f.registerErr
	}
	return f.config, nil
}

func (f *fakeService) FetchDeviceConfig(ctx context.Context, fingerprint string) (api.DeviceConfig, error) {
	f.fetchCalls++
	if f.fetchErr != nil {
		return api.DeviceConfig{}, f.fetchErr
	}
	return f.config, nil
}

func (f *fakeService) SwitchServer(ctx context.Context, deviceID, serverID string) (api.PeerUpdate, error) {
	f.switchCalls++
	if f.switchErr != nil {
		return api.PeerUpdate{}, f.switchErr
	}
	return f.update, nil
}

type fakeIdentity struct {
	fingerprint string
	deviceID    string
}

func (f *fakeIdentity) EnsureFingerprint() (string, error) { return f.fingerprint, nil }
func (f *fakeIdentity) DeviceID() string                   { return f.deviceID }
func (f *fakeIdentity) SetDeviceID(id string) error {
	if f.deviceID == "" {
		f.deviceID = id
	}
	return nil
}

func testDeviceConfig() api.DeviceConfig {
	return api.DeviceConfig{
		DeviceID: "dev-1",
		ServerID: "us-east-1",
		Interface: api.WireInterface{
			PrivateKey: "priv",
			Address:    "10.0.0.2/32",
		},
		Peer: api.WirePeer{
			PublicKey: "pub-us",
			Endpoint:  "1.1.1.1:51820",
		},
	}
}

func TestFirstAcquireRegistersAndCachesDeviceID(t *testing.T) {
	svc := &fakeService{config: testDeviceConfig()}
	ident := &fakeIdentity{fingerprint: "fp-1"}
	a := New(svc, ident, "laptop", "linux")

	cfg, err := a.Acquire(context.Background(), "")
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if svc.registerCalls != 1 || svc.fetchCalls != 0 {
		t.Errorf("register=%d fetch=%d, want 1/0", svc.registerCalls, svc.fetchCalls)
	}
	if ident.deviceID != "dev-1" {
		t.Errorf("deviceID = %q, not cached", ident.deviceID)
	}
	if cfg.PeerPublicKey != "pub-us" {
		t.Errorf("config = %+v", cfg)
	}
}

func TestCachedDeviceIDSkipsRegistration(t *testing.T) {
	svc := &fakeService{config: testDeviceConfig()}
	ident := &fakeIdentity{fingerprint: "fp-1", deviceID: "dev-1"}
	a := New(svc, ident, "laptop", "linux")

	if _, err := a.Acquire(context.Background(), ""); err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if svc.registerCalls != 0 || svc.fetchCalls != 1 {
		t.Errorf("register=%d fetch=%d, want 0/1", svc.registerCalls, svc.fetchCalls)
	}
}

func TestAlreadyRegisteredFallsBackToFetch(t *testing.T) {
	svc := &fakeService{
		registerErr: api.ErrAlreadyRegistered,
		config:      testDeviceConfig(),
	}
	ident := &fakeIdentity{fingerprint: "fp-1"}
	a := New(svc, ident, "laptop", "linux")

	cfg, err := a.Acquire(context.Background(), "")
	if err != nil {
		t.Fatalf("Acquire: %v, want fallback success", err)
	}
	if svc.registerCalls != 1 || svc.fetchCalls != 1 {
		t.Errorf("register=%d fetch=%d, want 1/1", svc.registerCalls, svc.fetchCalls)
	}
	if ident.deviceID != "dev-1" {
		t.Errorf("deviceID = %q, not cached on fallback", ident.deviceID)
	}
	if cfg.PrivateKey != "priv" {
		t.Errorf("config = %+v", cfg)
	}
}

func TestSwitchReplacesPeerFields(t *testing.T) {
	svc := &fakeService{
		config: testDeviceConfig(),
		update: api.PeerUpdate{
			ServerID: "de-fra-1",
			Peer: api.WirePeer{
				PublicKey: "pub-de",
				Endpoint:  "2.2.2.2:51820",
			},
		},
	}
	ident := &fakeIdentity{fingerprint: "fp-1", deviceID: "dev-1"}
	a := New(svc, ident, "laptop", "linux")

	cfg, err := a.Acquire(context.Background(), "de-fra-1")
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if svc.switchCalls != 1 {
		t.Errorf("switchCalls = %d", svc.switchCalls)
	}
	if cfg.PeerPublicKey != "pub-de" || cfg.Endpoint != "2.2.2.2:51820" {
		t.Errorf("peer not replaced: %+v", cfg)
	}
	if cfg.PrivateKey != "priv" {
		t.Error("interface fields must survive the switch")
	}
}

func TestSwitchToCurrentServerIsSkipped(t *testing.T) {
	svc := &fakeService{config: testDeviceConfig()}
	ident := &fakeIdentity{fingerprint: "fp-1", deviceID: "dev-1"}
	a := New(svc, ident, "laptop", "linux")

	if _, err := a.Acquire(context.Background(), "us-east-1"); err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if svc.switchCalls != 0 {
		t.Errorf("switchCalls = %d, want 0", svc.switchCalls)
	}
}

func TestSwitchFailureDoesNotMutateIdentity(t *testing.T) {
	svc := &fakeService{
		config:    testDeviceConfig(),
		switchErr: &api.APIError{StatusCode: http.StatusBadGateway, Message: "backend down"},
	}
	ident := &fakeIdentity{fingerprint: "fp-1", deviceID: "dev-1"}
	a := New(svc, ident, "laptop", "linux")

	_, err := a.Acquire(context.Background(), "de-fra-1")
	if err == nil {
		t.Fatal("Acquire = nil, want error")
	}
	if core.KindOf(err) != core.ErrorIssuance {
		t.Errorf("kind = %v, want issuance", core.KindOf(err))
	}
	if ident.deviceID != "dev-1" {
		t.Errorf("deviceID mutated to %q", ident.deviceID)
	}
}

func TestErrorClassification(t *testing.T) {
	tests := []struct {
		name string
		prep func(*fakeService)
		want core.ErrorKind
	}{
		{
			"registration rejected",
			func(s *fakeService) {
				s.registerErr = &api.APIError{StatusCode: http.StatusForbidden, Message: "device limit"}
			},
			core.ErrorRegistration,
		},
		{
			"unauthorized",
			func(s *fakeService) {
				s.registerErr = &api.APIError{StatusCode: http.StatusUnauthorized, Message: "bad token"}
			},
			core.ErrorAuth,
		},
		{
			"transport failure",
			func(s *fakeService) {
				s.registerErr = errors.New("dial tcp: connection refused")
			},
			core.ErrorNetwork,
		},
		{
			"fallback fetch rejected",
			func(s *fakeService) {
				s.registerErr = api.ErrAlreadyRegistered
				s.fetchErr = &api.APIError{StatusCode: http.StatusNotFound, Message: "no config"}
			},
			core.ErrorIssuance,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeService{config: testDeviceConfig()}
			tt.prep(svc)
			a := New(svc, &fakeIdentity{fingerprint: "fp-1"}, "laptop", "linux")

			_, err := a.Acquire(context.Background(), "")
			if err == nil {
				t.Fatal("Acquire = nil, want error")
			}
			if got := core.KindOf(err); got != tt.want {
				t.Errorf("kind = %v, want %v", got, tt.want)
			}
		})
	}
}
