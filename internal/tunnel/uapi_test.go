package tunnel

import (
	"strings"
	"testing"
	"time"

	"github.com/kstephens0331/sacvpn-desktop/internal/wgconf"
)

const (
	// 32 zero bytes.
	zeroKeyB64 = "AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA="
	zeroKeyHex = "0000000000000000000000000000000000000000000000000000000000000000"
)

func TestUAPIConfigOrderingAndEncoding(t *testing.T) {
	cfg := wgconf.Config{
		Address:       "10.0.0.2/32",
		PrivateKey:    zeroKeyB64,
		PeerPublicKey: zeroKeyB64,
		PresharedKey:  zeroKeyB64,
		Endpoint:      "1.2.3.4:51820",
		AllowedIPs:    []string{"0.0.0.0/0", "::/0"},
		Keepalive:     25,
	}

	got, err := uapiConfig(cfg)
	if err != nil {
		t.Fatalf("uapiConfig: %v", err)
	}

	want := strings.Join([]string{
		"private_key=" + zeroKeyHex,
		"replace_peers=true",
		"public_key=" + zeroKeyHex,
		"preshared_key=" + zeroKeyHex,
		"endpoint=1.2.3.4:51820",
		"allowed_ip=0.0.0.0/0",
		"allowed_ip=::/0",
		"persistent_keepalive_interval=25",
	}, "\n") + "\n"

	if got != want {
		t.Errorf("uapi config:\n got:\n%s\n want:\n%s", got, want)
	}
}

func TestUAPIConfigDefaultsAllowedIPs(t *testing.T) {
	cfg := wgconf.Config{
		Address:       "10.0.0.2/32",
		PrivateKey:    zeroKeyB64,
		PeerPublicKey: zeroKeyB64,
		Endpoint:      "1.2.3.4:51820",
	}

	got, err := uapiConfig(cfg)
	if err != nil {
		t.Fatalf("uapiConfig: %v", err)
	}
	if !strings.Contains(got, "allowed_ip=0.0.0.0/0\n") {
		t.Errorf("missing default allowed_ip:\n%s", got)
	}
}

func TestUAPIConfigRejectsBadKey(t *testing.T) {
	cfg := wgconf.Config{
		Address:       "10.0.0.2/32",
		PrivateKey:    "not-a-key",
		PeerPublicKey: zeroKeyB64,
		Endpoint:      "1.2.3.4:51820",
	}
	if _, err := uapiConfig(cfg); err == nil {
		t.Error("uapiConfig accepted a garbage private key")
	}
}

func TestLocalAddresses(t *testing.T) {
	cfg := wgconf.Config{Address: "10.0.0.2/32, fd00::2"}
	addrs, err := localAddresses(cfg)
	if err != nil {
		t.Fatalf("localAddresses: %v", err)
	}
	if len(addrs) != 2 {
		t.Fatalf("got %d addresses, want 2", len(addrs))
	}
	if addrs[0].String() != "10.0.0.2" {
		t.Errorf("addrs[0] = %s", addrs[0])
	}

	if _, err := localAddresses(wgconf.Config{}); err == nil {
		t.Error("empty address accepted")
	}
}

func TestParseCountersSumsPeers(t *testing.T) {
	ipc := strings.Join([]string{
		"private_key=" + zeroKeyHex,
		"public_key=" + zeroKeyHex,
		"rx_bytes=1000",
		"tx_bytes=500",
		"last_handshake_time_sec=1700000000",
		"public_key=" + zeroKeyHex,
		"rx_bytes=200",
		"tx_bytes=100",
		"last_handshake_time_sec=1700000100",
	}, "\n")

	c := parseCounters(ipc)
	if c.BytesIn != 1200 {
		t.Errorf("BytesIn = %d, want 1200", c.BytesIn)
	}
	if c.BytesOut != 600 {
		t.Errorf("BytesOut = %d, want 600", c.BytesOut)
	}
	if want := time.Unix(1700000100, 0); !c.LastHandshake.Equal(want) {
		t.Errorf("LastHandshake = %v, want %v", c.LastHandshake, want)
	}
}

func TestParseCountersNoHandshake(t *testing.T) {
	c := parseCounters("rx_bytes=10\ntx_bytes=20\nlast_handshake_time_sec=0\n")
	if !c.LastHandshake.IsZero() {
		t.Errorf("LastHandshake = %v, want zero", c.LastHandshake)
	}
}
