package tunnel

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"golang.zx2c4.com/wireguard/wgctrl"

	"github.com/kstephens0331/sacvpn-desktop/internal/core"
	"github.com/kstephens0331/sacvpn-desktop/internal/wgconf"
)

// QuickBackend drives the system WireGuard tools: the config is rendered
// to a file and wg-quick brings the interface up and down. Requires
// wireguard-tools installed and privilege elevation (pkexec or sudo on
// Linux). Counters come from the kernel via wgctrl.
type QuickBackend struct {
	ifaceName string

	mu       sync.Mutex
	confPath string
	active   bool
}

// NewQuickBackend creates a backend for the named interface, e.g.
// "sacvpn". The interface name is also the config file basename, which is
// how wg-quick associates the two.
func NewQuickBackend(ifaceName string) *QuickBackend {
	return &QuickBackend{ifaceName: ifaceName}
}

// Activate writes the config file (owner-only, it holds the private key)
// and runs wg-quick up.
func (b *QuickBackend) Activate(ctx context.Context, cfg wgconf.Config) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.active {
		return fmt.Errorf("tunnel already active")
	}

	dir, err := os.MkdirTemp("", "sacvpn-wg")
	if err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	confPath := filepath.Join(dir, b.ifaceName+".conf")
	if err := os.WriteFile(confPath, []byte(wgconf.Render(cfg)), 0o600); err != nil {
		os.RemoveAll(dir)
		return fmt.Errorf("write config file: %w", err)
	}

	if err := b.runElevated(ctx, "wg-quick", "up", confPath); err != nil {
		os.RemoveAll(dir)
		return err
	}

	b.confPath = confPath
	b.active = true
	core.Log.Infof("Tunnel", "Interface %s up via wg-quick", b.ifaceName)
	return nil
}

// Deactivate runs wg-quick down and removes the config file. Safe to call
// when inactive.
func (b *QuickBackend) Deactivate(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.active {
		return nil
	}

	err := b.runElevated(ctx, "wg-quick", "down", b.confPath)

	os.RemoveAll(filepath.Dir(b.confPath))
	b.confPath = ""
	b.active = false

	if err != nil {
		return err
	}
	core.Log.Infof("Tunnel", "Interface %s down", b.ifaceName)
	return nil
}

// ReadCounters sums the kernel interface's peer transfer totals.
func (b *QuickBackend) ReadCounters() (Counters, error) {
	b.mu.Lock()
	active := b.active
	b.mu.Unlock()
	if !active {
		return Counters{}, fmt.Errorf("tunnel not active")
	}

	client, err := wgctrl.New()
	if err != nil {
		return Counters{}, fmt.Errorf("open wgctrl: %w", err)
	}
	defer client.Close()

	dev, err := client.Device(b.ifaceName)
	if err != nil {
		return Counters{}, fmt.Errorf("query %s: %w", b.ifaceName, err)
	}

	var c Counters
	for _, peer := range dev.Peers {
		c.BytesIn += uint64(peer.ReceiveBytes)
		c.BytesOut += uint64(peer.TransmitBytes)
		if peer.LastHandshakeTime.After(c.LastHandshake) {
			c.LastHandshake = peer.LastHandshakeTime
		}
	}
	return c, nil
}

// runElevated runs the command, elevating on Linux through pkexec with a
// sudo fallback. Other platforms run the command as-is.
func (b *QuickBackend) runElevated(ctx context.Context, name string, args ...string) error {
	if runtime.GOOS == "linux" && os.Geteuid() != 0 {
		if _, err := exec.LookPath("pkexec"); err == nil {
			err := runCommand(ctx, "pkexec", append([]string{name}, args...)...)
			if err == nil {
				return nil
			}
			core.Log.Warnf("Tunnel", "pkexec failed, falling back to sudo: %v", err)
		}
		return runCommand(ctx, "sudo", append([]string{"-n", name}, args...)...)
	}
	return runCommand(ctx, name, args...)
}

func runCommand(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		msg := strings.TrimSpace(string(out))
		if msg == "" {
			msg = err.Error()
		}
		if strings.Contains(strings.ToLower(msg), "permission denied") || strings.Contains(msg, "Operation not permitted") {
			return fmt.Errorf("%s %s: insufficient privileges: %s", name, strings.Join(args, " "), msg)
		}
		return fmt.Errorf("%s %s: %s", name, strings.Join(args, " "), msg)
	}
	return nil
}
