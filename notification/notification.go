// Package notification shows short desktop notifications.
package notification

import (
	"fmt"
	"log"
)

// Notifier shows a notification without blocking the caller.
type Notifier interface {
	Show(title, message string) error
}

// Disabled only logs.
type Disabled struct{}

func (Disabled) Show(title, message string) error {
	log.Printf("NOTIFY: %s: %s", title, message)
	return nil
}

// Sharing formats the notification for a mode change.
func Sharing(recording bool, width, height int) (title, message string) {
	if recording {
		return "Sharing started", fmt.Sprintf("Capturing %dx%d. Share the frame window in your meeting.", width, height)
	}
	return "Sharing stopped", fmt.Sprintf("The frame is editable again (%dx%d).", width, height)
}
