package tunnel

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"net"
	"net/netip"
	"strconv"
	"strings"
	"time"

	"github.com/kstephens0331/sacvpn-desktop/internal/wgconf"
)

// uapiConfig renders a structured config as a UAPI set-operation string
// for device.IpcSet. Keys are hex-encoded (UAPI does not take base64) and
// public_key leads the peer block as the protocol requires.
func uapiConfig(cfg wgconf.Config) (string, error) {
	var b strings.Builder

	privHex, err := base64ToHex(cfg.PrivateKey)
	if err != nil {
		return "", fmt.Errorf("private key: %w", err)
	}
	fmt.Fprintf(&b, "private_key=%s\n", privHex)

	pubHex, err := base64ToHex(cfg.PeerPublicKey)
	if err != nil {
		return "", fmt.Errorf("peer public key: %w", err)
	}
	fmt.Fprint(&b, "replace_peers=true\n")
	fmt.Fprintf(&b, "public_key=%s\n", pubHex)

	if cfg.PresharedKey != "" {
		pskHex, err := base64ToHex(cfg.PresharedKey)
		if err != nil {
			return "", fmt.Errorf("preshared key: %w", err)
		}
		fmt.Fprintf(&b, "preshared_key=%s\n", pskHex)
	}

	ep, err := resolveEndpoint(cfg.Endpoint)
	if err != nil {
		return "", fmt.Errorf("endpoint %q: %w", cfg.Endpoint, err)
	}
	fmt.Fprintf(&b, "endpoint=%s\n", ep)

	allowed := cfg.AllowedIPs
	if len(allowed) == 0 {
		allowed = []string{"0.0.0.0/0", "::/0"}
	}
	for _, cidr := range allowed {
		fmt.Fprintf(&b, "allowed_ip=%s\n", cidr)
	}

	if cfg.Keepalive > 0 {
		fmt.Fprintf(&b, "persistent_keepalive_interval=%d\n", cfg.Keepalive)
	}

	return b.String(), nil
}

// base64ToHex converts a base64 WireGuard key to the hex form UAPI wants.
func base64ToHex(key string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(key)
	if err != nil {
		return "", fmt.Errorf("invalid base64 key: %w", err)
	}
	if len(raw) != 32 {
		return "", fmt.Errorf("key is %d bytes, want 32", len(raw))
	}
	return hex.EncodeToString(raw), nil
}

// resolveEndpoint resolves a hostname:port endpoint to IP:port.
// UAPI requires numeric IP addresses; hostnames are not accepted.
func resolveEndpoint(endpoint string) (string, error) {
	host, port, err := net.SplitHostPort(endpoint)
	if err != nil {
		return "", err
	}
	if _, err := netip.ParseAddr(host); err == nil {
		return endpoint, nil
	}
	ips, err := net.LookupHost(host)
	if err != nil {
		return "", fmt.Errorf("resolve %q: %w", host, err)
	}
	if len(ips) == 0 {
		return "", fmt.Errorf("no addresses for %q", host)
	}
	return net.JoinHostPort(ips[0], port), nil
}

// localAddresses extracts the interface IPs for the netstack TUN.
// Plain addresses and CIDR notation are both accepted.
func localAddresses(cfg wgconf.Config) ([]netip.Addr, error) {
	var out []netip.Addr
	for _, s := range strings.Split(cfg.Address, ",") {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if prefix, err := netip.ParsePrefix(s); err == nil {
			out = append(out, prefix.Addr())
			continue
		}
		ip, err := netip.ParseAddr(s)
		if err != nil {
			return nil, fmt.Errorf("invalid address %q", s)
		}
		out = append(out, ip)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("config has no interface address")
	}
	return out, nil
}

// dnsAddresses parses the DNS entries, skipping anything non-numeric.
func dnsAddresses(cfg wgconf.Config) []netip.Addr {
	var out []netip.Addr
	for _, s := range cfg.DNS {
		if ip, err := netip.ParseAddr(s); err == nil {
			out = append(out, ip)
		}
	}
	return out
}

// parseCounters sums rx/tx bytes across all peers of a device's IpcGet
// output and keeps the newest handshake time.
func parseCounters(ipcData string) Counters {
	var c Counters
	var newestHandshake int64

	for _, line := range strings.Split(ipcData, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "rx_bytes="):
			if n, err := strconv.ParseUint(strings.TrimPrefix(line, "rx_bytes="), 10, 64); err == nil {
				c.BytesIn += n
			}
		case strings.HasPrefix(line, "tx_bytes="):
			if n, err := strconv.ParseUint(strings.TrimPrefix(line, "tx_bytes="), 10, 64); err == nil {
				c.BytesOut += n
			}
		case strings.HasPrefix(line, "last_handshake_time_sec="):
			if n, err := strconv.ParseInt(strings.TrimPrefix(line, "last_handshake_time_sec="), 10, 64); err == nil && n > newestHandshake {
				newestHandshake = n
			}
		}
	}

	if newestHandshake > 0 {
		c.LastHandshake = time.Unix(newestHandshake, 0)
	}
	return c
}
