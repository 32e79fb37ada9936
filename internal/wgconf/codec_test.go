package wgconf

import (
	"reflect"
	"testing"
)

const (
	testPrivateKey = "WAmgVYXkbT2bCtdcDwolI88/iqF52MacNO1PBgAGUWk="
	testPublicKey  = "xTIBA5rboUvnH4htodjb6e697QjLERt1NAB4mZqp8Dg="
	testPSK        = "FpCyhws9cxwWoV4xELtfJvjJN+zQVRPISllRWgeopVE="
)

func TestParseFullConfig(t *testing.T) {
	text := `[Interface]
PrivateKey = ` + testPrivateKey + `
Address = 10.70.0.2/32
DNS = 1.1.1.1, 8.8.8.8
MTU = 1380

[Peer]
PublicKey = ` + testPublicKey + `
PresharedKey = ` + testPSK + `
Endpoint = vpn.example.com:51820
AllowedIPs = 0.0.0.0/0, ::/0
PersistentKeepalive = 25
`

	cfg := Parse(text)

	if cfg.PrivateKey != testPrivateKey {
		t.Errorf("PrivateKey = %q", cfg.PrivateKey)
	}
	if cfg.Address != "10.70.0.2/32" {
		t.Errorf("Address = %q", cfg.Address)
	}
	if !reflect.DeepEqual(cfg.DNS, []string{"1.1.1.1", "8.8.8.8"}) {
		t.Errorf("DNS = %v", cfg.DNS)
	}
	if cfg.MTU != 1380 {
		t.Errorf("MTU = %d", cfg.MTU)
	}
	if cfg.PeerPublicKey != testPublicKey {
		t.Errorf("PeerPublicKey = %q", cfg.PeerPublicKey)
	}
	if cfg.PresharedKey != testPSK {
		t.Errorf("PresharedKey = %q", cfg.PresharedKey)
	}
	if cfg.Endpoint != "vpn.example.com:51820" {
		t.Errorf("Endpoint = %q", cfg.Endpoint)
	}
	if !reflect.DeepEqual(cfg.AllowedIPs, []string{"0.0.0.0/0", "::/0"}) {
		t.Errorf("AllowedIPs = %v", cfg.AllowedIPs)
	}
	if cfg.Keepalive != 25 {
		t.Errorf("Keepalive = %d", cfg.Keepalive)
	}
	if err := cfg.Complete(); err != nil {
		t.Errorf("Complete() = %v, want nil", err)
	}
}

func TestParseCaseInsensitive(t *testing.T) {
	text := `[interface]
privatekey = ` + testPrivateKey + `
ADDRESS = 10.0.0.2/32

[PEER]
PUBLICKEY = ` + testPublicKey + `
endpoint = 1.2.3.4:51820
`

	cfg := Parse(text)
	if cfg.PrivateKey != testPrivateKey {
		t.Errorf("PrivateKey = %q", cfg.PrivateKey)
	}
	if cfg.Address != "10.0.0.2/32" {
		t.Errorf("Address = %q", cfg.Address)
	}
	if cfg.PeerPublicKey != testPublicKey {
		t.Errorf("PeerPublicKey = %q", cfg.PeerPublicKey)
	}
	if cfg.Endpoint != "1.2.3.4:51820" {
		t.Errorf("Endpoint = %q", cfg.Endpoint)
	}
}

func TestParseIgnoresCommentsAndUnknownKeys(t *testing.T) {
	text := `# exported config
[Interface]
PrivateKey = ` + testPrivateKey + `
; another comment style
Table = off
FwMark = 0x8888

[Peer]
PublicKey = ` + testPublicKey + `
Endpoint = 1.2.3.4:51820
SomeFutureKey = value
`

	cfg := Parse(text)
	if cfg.PrivateKey != testPrivateKey {
		t.Errorf("PrivateKey = %q", cfg.PrivateKey)
	}
	if cfg.Endpoint != "1.2.3.4:51820" {
		t.Errorf("Endpoint = %q", cfg.Endpoint)
	}
}

func TestParseStripsBOM(t *testing.T) {
	text := "\xEF\xBB\xBF[Interface]\nPrivateKey = " + testPrivateKey + "\n"

	cfg := Parse(text)
	if cfg.PrivateKey != testPrivateKey {
		t.Errorf("PrivateKey = %q, BOM not stripped", cfg.PrivateKey)
	}
}

func TestParseBadNumericLeftAbsent(t *testing.T) {
	text := `[Interface]
MTU = not-a-number

[Peer]
PersistentKeepalive = twenty-five
`

	cfg := Parse(text)
	if cfg.MTU != 0 {
		t.Errorf("MTU = %d, want 0", cfg.MTU)
	}
	if cfg.Keepalive != 0 {
		t.Errorf("Keepalive = %d, want 0", cfg.Keepalive)
	}
}

func TestRenderParseRoundTrip(t *testing.T) {
	orig := Config{
		Address:       "10.70.0.2/32",
		PrivateKey:    testPrivateKey,
		DNS:           []string{"1.1.1.1", "8.8.8.8"},
		MTU:           1420,
		PeerPublicKey: testPublicKey,
		PresharedKey:  testPSK,
		Endpoint:      "vpn.example.com:51820",
		AllowedIPs:    []string{"0.0.0.0/0", "::/0"},
		Keepalive:     25,
	}

	got := Parse(Render(orig))
	if !reflect.DeepEqual(got, orig) {
		t.Errorf("round-trip mismatch:\n got  %+v\n want %+v", got, orig)
	}
}

func TestRenderDeterministic(t *testing.T) {
	cfg := Config{
		Address:       "10.0.0.2/32",
		PrivateKey:    testPrivateKey,
		PeerPublicKey: testPublicKey,
		Endpoint:      "1.2.3.4:51820",
		AllowedIPs:    []string{"0.0.0.0/0"},
	}

	a := Render(cfg)
	b := Render(cfg)
	if a != b {
		t.Errorf("Render not deterministic:\n%s\n---\n%s", a, b)
	}
}

func TestCompleteRejectsMissingFields(t *testing.T) {
	base := Config{
		Address:       "10.0.0.2/32",
		PrivateKey:    testPrivateKey,
		PeerPublicKey: testPublicKey,
		Endpoint:      "1.2.3.4:51820",
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no private key", func(c *Config) { c.PrivateKey = "" }},
		{"no peer public key", func(c *Config) { c.PeerPublicKey = "" }},
		{"no endpoint", func(c *Config) { c.Endpoint = "" }},
		{"no address", func(c *Config) { c.Address = "" }},
		{"garbage private key", func(c *Config) { c.PrivateKey = "not-base64!" }},
		{"garbage public key", func(c *Config) { c.PeerPublicKey = "short" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			tt.mutate(&cfg)
			if err := cfg.Complete(); err == nil {
				t.Error("Complete() = nil, want error")
			}
		})
	}
}

func TestZeroClearsSecrets(t *testing.T) {
	cfg := Config{
		PrivateKey:    testPrivateKey,
		PresharedKey:  testPSK,
		PeerPublicKey: testPublicKey,
	}

	cfg.Zero()
	if cfg.PrivateKey != "" {
		t.Errorf("PrivateKey = %q after Zero", cfg.PrivateKey)
	}
	if cfg.PresharedKey != "" {
		t.Errorf("PresharedKey = %q after Zero", cfg.PresharedKey)
	}
	if cfg.PeerPublicKey != testPublicKey {
		t.Error("Zero must not touch the peer public key")
	}
}
