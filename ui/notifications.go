package main

import (
	"sync"
	"time"
)

// NotificationManager sends desktop notifications with throttling so a
// flapping connection does not flood the notification center.
type NotificationManager struct {
	mu        sync.Mutex
	enabled   bool
	lastNotif map[string]time.Time
	throttle  time.Duration
	lastVer   string
	appName   string
}

// NewNotificationManager creates a notification manager with default
// settings.
func NewNotificationManager() *NotificationManager {
	return &NotificationManager{
		enabled:   true,
		lastNotif: make(map[string]time.Time),
		throttle:  30 * time.Second,
		appName:   "SACVPN",
	}
}

// SetEnabled turns notifications on or off.
func (nm *NotificationManager) SetEnabled(enabled bool) {
	nm.mu.Lock()
	nm.enabled = enabled
	nm.mu.Unlock()
}

// NotifyConnectionError notifies about a failed connect attempt.
func (nm *NotificationManager) NotifyConnectionError(message string) {
	if !nm.allow("connection_error") {
		return
	}
	go nm.send("Connection failed", message)
}

// NotifyHealthLost notifies that the tunnel stopped responding.
func (nm *NotificationManager) NotifyHealthLost() {
	if !nm.allow("health_lost") {
		return
	}
	go nm.send("Connection problem", "The VPN tunnel has stopped responding")
}

// NotifyUpdateAvailable notifies about a new version, at most once per
// version.
func (nm *NotificationManager) NotifyUpdateAvailable(version string) {
	nm.mu.Lock()
	if !nm.enabled || version == nm.lastVer {
		nm.mu.Unlock()
		return
	}
	nm.lastVer = version
	nm.mu.Unlock()

	go nm.send("Update available", "SACVPN "+version+" is ready to install")
}

// allow applies the enabled flag and the per-key throttle window.
func (nm *NotificationManager) allow(key string) bool {
	nm.mu.Lock()
	defer nm.mu.Unlock()
	if !nm.enabled {
		return false
	}
	if time.Since(nm.lastNotif[key]) < nm.throttle {
		return false
	}
	nm.lastNotif[key] = time.Now()
	return true
}
