package syncer

import "github.com/gen2brain/beeep"

// Notifier raises a user-visible alert.
type Notifier interface {
	Notify(title, message string) error
}

// DesktopNotifier sends native desktop notifications.
type DesktopNotifier struct{}

func (DesktopNotifier) Notify(title, message string) error {
	return beeep.Notify(title, message, "")
}
