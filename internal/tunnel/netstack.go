package tunnel

import (
	"context"
	"fmt"
	"sync"

	"golang.zx2c4.com/wireguard/conn"
	"golang.zx2c4.com/wireguard/device"
	"golang.zx2c4.com/wireguard/tun/netstack"

	"github.com/kstephens0331/sacvpn-desktop/internal/core"
	"github.com/kstephens0331/sacvpn-desktop/internal/wgconf"
)

// NetstackBackend runs an embedded userspace WireGuard device on a
// gVisor netstack TUN. It needs no privileges and no system WireGuard
// installation.
type NetstackBackend struct {
	mu  sync.Mutex
	dev *device.Device
}

// NewNetstackBackend creates an inactive embedded backend.
func NewNetstackBackend() *NetstackBackend {
	return &NetstackBackend{}
}

// Activate creates the netstack TUN, applies the config over UAPI and
// brings the device up.
func (b *NetstackBackend) Activate(ctx context.Context, cfg wgconf.Config) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.dev != nil {
		return fmt.Errorf("tunnel already active")
	}

	addrs, err := localAddresses(cfg)
	if err != nil {
		return fmt.Errorf("interface addresses: %w", err)
	}
	mtu := cfg.MTU
	if mtu == 0 {
		mtu = 1420
	}

	uapi, err := uapiConfig(cfg)
	if err != nil {
		return fmt.Errorf("build device config: %w", err)
	}

	tunDev, _, err := netstack.CreateNetTUN(addrs, dnsAddresses(cfg), mtu)
	if err != nil {
		return fmt.Errorf("create netstack TUN: %w", err)
	}

	logger := device.NewLogger(device.LogLevelError, "[tunnel] ")
	dev := device.NewDevice(tunDev, conn.NewDefaultBind(), logger)

	if err := dev.IpcSet(uapi); err != nil {
		dev.Close()
		return fmt.Errorf("apply device config: %w", err)
	}
	if err := dev.Up(); err != nil {
		dev.Close()
		return fmt.Errorf("device up: %w", err)
	}

	b.dev = dev
	core.Log.Infof("Tunnel", "Embedded tunnel up (mtu=%d, endpoint=%s)", mtu, cfg.Endpoint)
	return nil
}

// Deactivate closes the device. Safe to call when inactive.
func (b *NetstackBackend) Deactivate(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.dev == nil {
		return nil
	}
	b.dev.Close()
	b.dev = nil
	core.Log.Infof("Tunnel", "Embedded tunnel closed")
	return nil
}

// ReadCounters reads the device's transfer totals over IPC.
func (b *NetstackBackend) ReadCounters() (Counters, error) {
	b.mu.Lock()
	dev := b.dev
	b.mu.Unlock()

	if dev == nil {
		return Counters{}, fmt.Errorf("tunnel not active")
	}
	ipcData, err := dev.IpcGet()
	if err != nil {
		return Counters{}, fmt.Errorf("device ipc get: %w", err)
	}
	return parseCounters(ipcData), nil
}
