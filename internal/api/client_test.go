package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, 5*time.Second)
}

func TestLoginInstallsToken(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/auth/login" || r.Method != http.MethodPost {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		if body["email"] != "a@b.c" {
			t.Errorf("email = %q", body["email"])
		}
		json.NewEncoder(w).Encode(LoginResult{Token: "tok-123", Email: "a@b.c"})
	})

	res, err := c.Login(context.Background(), "a@b.c", "secret")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if res.Token != "tok-123" {
		t.Errorf("token = %q", res.Token)
	}
	if !c.HasToken() {
		t.Error("token not installed on client")
	}
}

func TestFetchServersSendsBearer(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("Authorization = %q", got)
		}
		w.Write([]byte(`[{"id":"us-1","name":"US","country_code":"US","city":"NYC","load":30,"latency_ms":50}]`))
	})
	c.SetToken("tok")

	eps, err := c.FetchServers(context.Background())
	if err != nil {
		t.Fatalf("FetchServers: %v", err)
	}
	if len(eps) != 1 || eps[0].ID != "us-1" || eps[0].LatencyMs != 50 {
		t.Errorf("endpoints = %+v", eps)
	}
}

func TestRegisterDeviceConflict(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte(`{"error":"device already registered"}`))
	})

	_, err := c.RegisterDevice(context.Background(), "fp", "laptop", "linux")
	if !errors.Is(err, ErrAlreadyRegistered) {
		t.Errorf("err = %v, want ErrAlreadyRegistered", err)
	}
}

func TestRegisterDeviceOtherErrorIsAPIError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"error":"device limit reached"}`))
	})

	_, err := c.RegisterDevice(context.Background(), "fp", "laptop", "linux")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want *APIError", err)
	}
	if apiErr.StatusCode != http.StatusForbidden || apiErr.Message != "device limit reached" {
		t.Errorf("apiErr = %+v", apiErr)
	}
}

func TestDeviceConfigToConfig(t *testing.T) {
	dc := DeviceConfig{
		DeviceID: "dev-1",
		ServerID: "us-1",
		Interface: WireInterface{
			PrivateKey: "priv",
			Address:    "10.0.0.2/32",
			DNS:        []string{"1.1.1.1"},
			MTU:        1420,
		},
		Peer: WirePeer{
			PublicKey:           "pub",
			Endpoint:            "1.2.3.4:51820",
			AllowedIPs:          []string{"0.0.0.0/0"},
			PersistentKeepalive: 25,
		},
	}

	cfg := dc.ToConfig()
	if cfg.PrivateKey != "priv" || cfg.Address != "10.0.0.2/32" || cfg.MTU != 1420 {
		t.Errorf("interface fields: %+v", cfg)
	}
	if cfg.PeerPublicKey != "pub" || cfg.Endpoint != "1.2.3.4:51820" || cfg.Keepalive != 25 {
		t.Errorf("peer fields: %+v", cfg)
	}
}

func TestSwitchServer(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/vpn/devices/dev-1/server" {
			t.Errorf("path = %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(PeerUpdate{
			ServerID: "de-1",
			Peer:     WirePeer{PublicKey: "newpub", Endpoint: "5.6.7.8:51820"},
		})
	})

	upd, err := c.SwitchServer(context.Background(), "dev-1", "de-1")
	if err != nil {
		t.Fatalf("SwitchServer: %v", err)
	}
	if upd.ServerID != "de-1" || upd.Peer.PublicKey != "newpub" {
		t.Errorf("update = %+v", upd)
	}
}
