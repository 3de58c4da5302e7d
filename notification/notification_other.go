//go:build !windows

package notification

func New(appID string) Notifier { return Disabled{} }
