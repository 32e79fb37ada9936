//go:build darwin

package main

import (
	"log"
	"os/exec"
)

func (nm *NotificationManager) send(title, message string) {
	script := `display notification "` + escapeAppleScript(message) +
		`" with title "` + escapeAppleScript(title) + `"`
	if err := exec.Command("osascript", "-e", script).Run(); err != nil {
		log.Printf("[UI] macOS notification failed: %v", err)
	}
}

// escapeAppleScript escapes double quotes and backslashes for AppleScript strings.
func escapeAppleScript(s string) string {
	var out []byte
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '"':
			out = append(out, '\\', '"')
		case '\\':
			out = append(out, '\\', '\\')
		default:
			out = append(out, s[i])
		}
	}
	return string(out)
}
