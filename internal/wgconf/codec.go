// Package wgconf converts between the standard WireGuard config document
// ([Interface]/[Peer] sections with Key = Value lines) and its structured
// in-memory form.
package wgconf

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"

	"golang.zx2c4.com/wireguard/wgctrl/wgtypes"
)

// Config is the tunnel's identity material and routing.
// A Config may be structurally incomplete after Parse; callers gate
// activation on Complete().
type Config struct {
	// Interface section.
	Address    string   // CIDR, e.g. "10.70.0.2/32"
	PrivateKey string   // base64; secret, never logged
	DNS        []string // ordered
	MTU        int      // 0 = absent

	// Peer section.
	PeerPublicKey string
	PresharedKey  string // optional
	Endpoint      string // host:port
	AllowedIPs    []string
	Keepalive     int // seconds, 0 = absent
}

// Parse scans a WireGuard config document line by line. Section headers and
// keys are matched case-insensitively; unknown keys, blank lines and
// #-comments are skipped. Numeric fields that fail to parse are left absent.
// Missing required fields do not fail the parse; see Complete.
func Parse(text string) Config {
	var cfg Config
	section := ""

	firstLine := true
	scanner := bufio.NewScanner(strings.NewReader(text))
	for scanner.Scan() {
		line := scanner.Text()
		// Strip UTF-8 BOM from the first line (common in Windows-exported configs).
		if firstLine {
			line = strings.TrimPrefix(line, "\xEF\xBB\xBF")
			firstLine = false
		}
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, ";") {
			continue
		}

		if strings.HasPrefix(line, "[") {
			section = strings.ToLower(strings.Trim(line, "[] "))
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.ToLower(strings.TrimSpace(parts[0]))
		value := strings.TrimSpace(parts[1])

		switch section {
		case "interface":
			parseInterfaceKey(&cfg, key, value)
		case "peer":
			parsePeerKey(&cfg, key, value)
		}
	}

	return cfg
}

func parseInterfaceKey(cfg *Config, key, value string) {
	switch key {
	case "privatekey":
		cfg.PrivateKey = value
	case "address":
		cfg.Address = value
	case "dns":
		cfg.DNS = splitCSV(value)
	case "mtu":
		if n, err := strconv.Atoi(value); err == nil && n > 0 {
			cfg.MTU = n
		}
	}
}

func parsePeerKey(cfg *Config, key, value string) {
	switch key {
	case "publickey":
		cfg.PeerPublicKey = value
	case "presharedkey":
		cfg.PresharedKey = value
	case "endpoint":
		cfg.Endpoint = value
	case "allowedips":
		cfg.AllowedIPs = splitCSV(value)
	case "persistentkeepalive":
		if n, err := strconv.Atoi(value); err == nil && n > 0 {
			cfg.Keepalive = n
		}
	}
}

// Render produces the canonical text form of the config with a fixed,
// diff-friendly ordering of sections and keys. Parse(Render(c)) is
// field-wise equal to c for any complete c.
func Render(cfg Config) string {
	var b strings.Builder

	b.WriteString("[Interface]\n")
	if cfg.PrivateKey != "" {
		fmt.Fprintf(&b, "PrivateKey = %s\n", cfg.PrivateKey)
	}
	if cfg.Address != "" {
		fmt.Fprintf(&b, "Address = %s\n", cfg.Address)
	}
	if len(cfg.DNS) > 0 {
		fmt.Fprintf(&b, "DNS = %s\n", strings.Join(cfg.DNS, ", "))
	}
	if cfg.MTU > 0 {
		fmt.Fprintf(&b, "MTU = %d\n", cfg.MTU)
	}

	b.WriteString("\n[Peer]\n")
	if cfg.PeerPublicKey != "" {
		fmt.Fprintf(&b, "PublicKey = %s\n", cfg.PeerPublicKey)
	}
	if cfg.PresharedKey != "" {
		fmt.Fprintf(&b, "PresharedKey = %s\n", cfg.PresharedKey)
	}
	if cfg.Endpoint != "" {
		fmt.Fprintf(&b, "Endpoint = %s\n", cfg.Endpoint)
	}
	if len(cfg.AllowedIPs) > 0 {
		fmt.Fprintf(&b, "AllowedIPs = %s\n", strings.Join(cfg.AllowedIPs, ", "))
	}
	if cfg.Keepalive > 0 {
		fmt.Fprintf(&b, "PersistentKeepalive = %d\n", cfg.Keepalive)
	}

	return b.String()
}

// Complete reports whether the config carries everything activation needs.
// Key material is validated as 32-byte base64 via wgtypes.
func (cfg *Config) Complete() error {
	if cfg.PrivateKey == "" {
		return fmt.Errorf("config missing PrivateKey")
	}
	if _, err := wgtypes.ParseKey(cfg.PrivateKey); err != nil {
		return fmt.Errorf("invalid PrivateKey: %w", err)
	}
	if cfg.PeerPublicKey == "" {
		return fmt.Errorf("config missing peer PublicKey")
	}
	if _, err := wgtypes.ParseKey(cfg.PeerPublicKey); err != nil {
		return fmt.Errorf("invalid peer PublicKey: %w", err)
	}
	if cfg.Endpoint == "" {
		return fmt.Errorf("config missing peer Endpoint")
	}
	if cfg.Address == "" {
		return fmt.Errorf("config missing interface Address")
	}
	return nil
}

// Zero overwrites the secret key material. Called when the config is
// discarded after disconnect or a failed activation.
func (cfg *Config) Zero() {
	cfg.PrivateKey = strings.Repeat("\x00", len(cfg.PrivateKey))
	cfg.PrivateKey = ""
	cfg.PresharedKey = strings.Repeat("\x00", len(cfg.PresharedKey))
	cfg.PresharedKey = ""
}

// splitCSV splits a comma-separated value string and trims whitespace.
func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
