package main

import (
	"github.com/wailsapp/wails/v3/pkg/application"
	"github.com/wailsapp/wails/v3/pkg/icons"

	"github.com/kstephens0331/sacvpn-desktop/internal/core"
)

func setupTray(app *application.App, mainWindow *application.WebviewWindow, binding *BindingService) {
	systray := app.SystemTray.New()
	systray.SetIcon(icons.SystrayLight)
	systray.SetLabel("SACVPN - Disconnected")

	// Left-click on tray icon opens the main window.
	systray.OnClick(func() {
		mainWindow.Show()
		mainWindow.Focus()
	})

	menu := app.Menu.New()

	connectItem := menu.Add("Connect")
	connectItem.OnClick(func(_ *application.Context) {
		go func() {
			var err error
			if binding.state.Phase() == core.PhaseConnected {
				err = binding.Disconnect()
			} else {
				err = binding.Connect()
			}
			if err != nil {
				core.Log.Warnf("UI", "Tray action failed: %v", err)
			}
		}()
	})

	menu.AddSeparator()

	menu.Add("Show window").OnClick(func(_ *application.Context) {
		mainWindow.Show()
		mainWindow.Focus()
	})

	menu.Add("Settings").OnClick(func(_ *application.Context) {
		mainWindow.Show()
		mainWindow.Focus()
		app.Event.Emit("navigate", "/settings")
	})

	menu.AddSeparator()

	menu.Add("Quit").OnClick(func(_ *application.Context) {
		if err := binding.Disconnect(); err != nil {
			core.Log.Warnf("UI", "Disconnect on quit failed: %v", err)
		}
		app.Quit()
	})

	systray.SetMenu(menu)

	// Keep the tray label and toggle in sync with the connection phase.
	binding.bus.Subscribe(core.EventConnectionStateChanged, func(core.Event) {
		switch binding.state.Phase() {
		case core.PhaseConnected:
			systray.SetLabel("SACVPN - Connected")
			connectItem.SetLabel("Disconnect")
			connectItem.SetChecked(true)
		case core.PhaseConnecting:
			systray.SetLabel("SACVPN - Connecting...")
		case core.PhaseDisconnecting:
			systray.SetLabel("SACVPN - Disconnecting...")
		default:
			systray.SetLabel("SACVPN - Disconnected")
			connectItem.SetLabel("Connect")
			connectItem.SetChecked(false)
		}
	})
}
