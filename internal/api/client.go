// Package api is the HTTP client for the SACVPN backend: authentication,
// the endpoint directory, device registration and config issuance, server
// switching and best-effort telemetry.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/kstephens0331/sacvpn-desktop/internal/core"
	"github.com/kstephens0331/sacvpn-desktop/internal/wgconf"
)

// ErrAlreadyRegistered is returned by RegisterDevice when the service
// already knows this fingerprint. Callers fall back to FetchDeviceConfig.
var ErrAlreadyRegistered = errors.New("device already registered")

// APIError is a non-2xx response from the service.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api: %s (status %d)", e.Message, e.StatusCode)
}

// Client talks to the SACVPN REST API. Safe for concurrent use.
type Client struct {
	baseURL string
	http    *http.Client

	mu    sync.RWMutex
	token string
}

// NewClient creates a client for the given base URL, e.g.
// "https://api.sacvpn.com".
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// SetToken installs the bearer token used on authenticated calls.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// HasToken reports whether a bearer token is installed.
func (c *Client) HasToken() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token != ""
}

// LoginResult is the successful response to Login.
type LoginResult struct {
	Token string `json:"token"`
	Email string `json:"email"`
}

// Login exchanges credentials for an API token and installs it on the
// client.
func (c *Client) Login(ctx context.Context, email, password string) (LoginResult, error) {
	var out LoginResult
	err := c.do(ctx, http.MethodPost, "/api/auth/login", map[string]string{
		"email":    email,
		"password": password,
	}, &out)
	if err != nil {
		return LoginResult{}, err
	}
	c.SetToken(out.Token)
	return out, nil
}

// serverInfo is the directory's wire format for one server.
type serverInfo struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Region      string `json:"region"`
	CountryCode string `json:"country_code"`
	City        string `json:"city"`
	Load        int    `json:"load"`
	LatencyMs   int    `json:"latency_ms"`
}

// FetchServers retrieves the endpoint directory.
func (c *Client) FetchServers(ctx context.Context) ([]core.Endpoint, error) {
	var servers []serverInfo
	if err := c.do(ctx, http.MethodGet, "/api/vpn/servers", nil, &servers); err != nil {
		return nil, err
	}

	endpoints := make([]core.Endpoint, len(servers))
	for i, s := range servers {
		endpoints[i] = core.Endpoint{
			ID:          s.ID,
			Name:        s.Name,
			Region:      s.Region,
			CountryCode: s.CountryCode,
			City:        s.City,
			Load:        s.Load,
			LatencyMs:   s.LatencyMs,
		}
	}
	return endpoints, nil
}

// WireInterface is the issued config's interface block.
type WireInterface struct {
	PrivateKey string   `json:"private_key"`
	Address    string   `json:"address"`
	DNS        []string `json:"dns"`
	MTU        int      `json:"mtu"`
}

// WirePeer is the issued config's peer block.
type WirePeer struct {
	PublicKey           string   `json:"public_key"`
	PresharedKey        string   `json:"preshared_key"`
	Endpoint            string   `json:"endpoint"`
	AllowedIPs          []string `json:"allowed_ips"`
	PersistentKeepalive int      `json:"persistent_keepalive"`
}

// DeviceConfig is the service's combined registration/issuance response.
type DeviceConfig struct {
	DeviceID  string        `json:"device_id"`
	ServerID  string        `json:"server_id"`
	Interface WireInterface `json:"interface"`
	Peer      WirePeer      `json:"peer"`
}

// ToConfig converts the wire form into the codec's structured config.
func (dc DeviceConfig) ToConfig() wgconf.Config {
	return wgconf.Config{
		Address:       dc.Interface.Address,
		PrivateKey:    dc.Interface.PrivateKey,
		DNS:           dc.Interface.DNS,
		MTU:           dc.Interface.MTU,
		PeerPublicKey: dc.Peer.PublicKey,
		PresharedKey:  dc.Peer.PresharedKey,
		Endpoint:      dc.Peer.Endpoint,
		AllowedIPs:    dc.Peer.AllowedIPs,
		Keepalive:     dc.Peer.PersistentKeepalive,
	}
}

// RegisterDevice registers this installation and receives its first config
// in one call. Returns ErrAlreadyRegistered when the fingerprint is known.
func (c *Client) RegisterDevice(ctx context.Context, fingerprint, deviceName, platform string) (DeviceConfig, error) {
	var out DeviceConfig
	err := c.do(ctx, http.MethodPost, "/api/vpn/devices", map[string]string{
		"fingerprint": fingerprint,
		"name":        deviceName,
		"platform":    platform,
	}, &out)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusConflict {
			return DeviceConfig{}, ErrAlreadyRegistered
		}
		return DeviceConfig{}, err
	}
	return out, nil
}

// FetchDeviceConfig retrieves the existing config for an already
// registered fingerprint.
func (c *Client) FetchDeviceConfig(ctx context.Context, fingerprint string) (DeviceConfig, error) {
	var out DeviceConfig
	err := c.do(ctx, http.MethodPost, "/api/vpn/config", map[string]string{
		"fingerprint": fingerprint,
	}, &out)
	if err != nil {
		return DeviceConfig{}, err
	}
	return out, nil
}

// PeerUpdate is the response to a server switch: the replacement peer
// block for the new server.
type PeerUpdate struct {
	ServerID string   `json:"server_id"`
	Peer     WirePeer `json:"peer"`
}

// SwitchServer moves the device's assignment to another server.
func (c *Client) SwitchServer(ctx context.Context, deviceID, serverID string) (PeerUpdate, error) {
	var out PeerUpdate
	err := c.do(ctx, http.MethodPost, "/api/vpn/devices/"+deviceID+"/server", map[string]string{
		"server_id": serverID,
	}, &out)
	if err != nil {
		return PeerUpdate{}, err
	}
	return out, nil
}

// ReportEvent sends a telemetry event. Errors are returned for logging
// only; callers must never let them affect tunnel state.
func (c *Client) ReportEvent(ctx context.Context, event string, fields map[string]string) error {
	body := map[string]any{"event": event}
	for k, v := range fields {
		body[k] = v
	}
	return c.do(ctx, http.MethodPost, "/api/vpn/events", body, nil)
}

// do performs one JSON request/response cycle against the API.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.mu.RLock()
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	c.mu.RUnlock()

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{StatusCode: resp.StatusCode, Message: readErrorMessage(resp)}
	}

	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

// readErrorMessage extracts {"error": "..."} or {"message": "..."} from an
// error response body, falling back to the HTTP status text.
func readErrorMessage(resp *http.Response) string {
	data, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err == nil && len(data) > 0 {
		var payload struct {
			Error   string `json:"error"`
			Message string `json:"message"`
		}
		if json.Unmarshal(data, &payload) == nil {
			if payload.Error != "" {
				return payload.Error
			}
			if payload.Message != "" {
				return payload.Message
			}
		}
	}
	return http.StatusText(resp.StatusCode)
}
