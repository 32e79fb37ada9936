//go:build windows

package main

import (
	"log"

	"github.com/go-toast/toast"
)

func (nm *NotificationManager) send(title, message string) {
	n := toast.Notification{
		AppID:   nm.appName,
		Title:   title,
		Message: message,
	}
	if err := n.Push(); err != nil {
		log.Printf("[UI] Toast notification failed: %v", err)
	}
}
