//go:build windows

package notification

import (
	"log"

	"github.com/go-toast/toast"
)

// Toast shows Windows toast notifications.
type Toast struct {
	appID string
}

func New(appID string) Notifier {
	return &Toast{appID: appID}
}

// Show pushes asynchronously; failures are only logged.
func (n *Toast) Show(title, message string) error {
	go func() {
		notification := toast.Notification{
			AppID:   n.appID,
			Title:   title,
			Message: message,
		}
		if err := notification.Push(); err != nil {
			log.Printf("NOTIFY: toast failed: %v", err)
		}
	}()
	return nil
}
