package main

import (
	"embed"
	"log"
	"net/http"
	"path/filepath"
	"runtime"
	"time"

	"github.com/wailsapp/wails/v3/pkg/application"
	"github.com/wailsapp/wails/v3/pkg/events"

	"github.com/kstephens0331/sacvpn-desktop/internal/acquire"
	"github.com/kstephens0331/sacvpn-desktop/internal/api"
	"github.com/kstephens0331/sacvpn-desktop/internal/catalog"
	"github.com/kstephens0331/sacvpn-desktop/internal/core"
	"github.com/kstephens0331/sacvpn-desktop/internal/secrets"
	"github.com/kstephens0331/sacvpn-desktop/internal/store"
	"github.com/kstephens0331/sacvpn-desktop/internal/tunnel"
	"github.com/kstephens0331/sacvpn-desktop/internal/update"
	"github.com/kstephens0331/sacvpn-desktop/internal/vpn"
)

//go:embed all:frontend/dist
var assets embed.FS

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	runtime.LockOSThread()

	if !acquireSingleInstance() {
		notifyExistingInstance()
		return
	}

	dataDir, err := store.DefaultDir()
	if err != nil {
		log.Fatalf("Cannot resolve data directory: %v", err)
	}

	st, err := store.Open(dataDir)
	if err != nil {
		log.Fatalf("Cannot open state store: %v", err)
	}

	cfgMgr := core.NewConfigManager(filepath.Join(dataDir, "config.yaml"))
	if err := cfgMgr.Load(); err != nil {
		log.Fatalf("Cannot load config: %v", err)
	}
	cfg := cfgMgr.Get()

	bus := core.NewEventBus()
	state := core.NewConnectionState(bus)
	cat := catalog.New(bus)

	client := api.NewClient(cfg.API.BaseURL, cfg.API.TimeoutOrDefault())
	restoreSession(client, st)

	deviceName := cfg.DeviceName
	if deviceName == "" {
		deviceName, _ = hostName()
	}
	acquirer := acquire.New(client, st, deviceName, runtime.GOOS)

	var backend tunnel.Backend
	if cfg.Backend.Mode == "wg-quick" {
		backend = tunnel.NewQuickBackend(cfg.Backend.InterfaceOrDefault())
	} else {
		backend = tunnel.NewNetstackBackend()
	}

	orch := vpn.New(state, cat, acquirer, backend, client, bus, cfg.Stats.IntervalOrDefault())

	checker := update.NewChecker(Version, 6*time.Hour, bus, &http.Client{Timeout: 30 * time.Second})

	binding := NewBindingService(orch, cat, state, client, st, cfgMgr, checker, bus)

	app := application.New(application.Options{
		Name:        "SACVPN",
		Description: "SACVPN desktop client",
		Services: []application.Service{
			application.NewService(binding),
		},
		Assets: application.AssetOptions{
			Handler: application.AssetFileServerFS(assets),
		},
	})

	mainWindow := app.Window.NewWithOptions(application.WebviewWindowOptions{
		Title:            "SACVPN",
		Width:            420,
		Height:           680,
		URL:              "/",
		BackgroundColour: application.NewRGB(24, 24, 27),
	})

	// Hide instead of close; the app lives in the tray.
	mainWindow.RegisterHook(events.Common.WindowClosing, func(e *application.WindowEvent) {
		mainWindow.Hide()
		e.Cancel()
	})
	registerWindowMessageHook(func() {
		mainWindow.Show()
		mainWindow.Focus()
	})
	if cfg.GUI.StartMinimized {
		mainWindow.Hide()
	}

	binding.forwardEvents(app)
	setupTray(app, mainWindow, binding)

	go checker.Start(binding.ctx)
	go binding.bootstrap()

	if err := app.Run(); err != nil {
		log.Fatal(err)
	}
	binding.Shutdown()
}

// restoreSession installs a stored API token for the remembered account.
func restoreSession(client *api.Client, st *store.Store) {
	email := st.Get().Email
	if email == "" {
		return
	}
	token, err := secrets.Token(email)
	if err != nil {
		core.Log.Infof("UI", "No stored session for %s: %v", email, err)
		return
	}
	client.SetToken(token)
	core.Log.Infof("UI", "Restored session for %s", email)
}
