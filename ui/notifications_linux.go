//go:build linux

package main

import (
	"log"
	"os/exec"
)

func (nm *NotificationManager) send(title, message string) {
	if err := exec.Command("notify-send", "--app-name", nm.appName, title, message).Run(); err != nil {
		log.Printf("[UI] Desktop notification failed: %v", err)
	}
}
