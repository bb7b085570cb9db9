// Package desktop registers the "desktop" notification backend. It links the
// fyne driver, so only binaries that want native notifications import it.
package desktop

import (
	"context"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"

	"github.com/mscrnt/pcie_speed/pkg/notify"
)

// AppID identifies pciespeed to the desktop notification service
const AppID = "com.mscrnt.pciespeed"

func init() {
	_ = notify.Register("desktop", func() (notify.Notifier, error) { return New(nil), nil })
}

// Notifier sends notifications through the fyne driver, which uses the
// native mechanism of each platform.
type Notifier struct {
	once sync.Once
	app  fyne.App
}

// New returns a notifier bound to a. If a is nil an application is
// created on first use.
func New(a fyne.App) *Notifier {
	return &Notifier{app: a}
}

// Name returns "desktop"
func (d *Notifier) Name() string { return "desktop" }

// Show sends the notification. fyne has no expiration control.
func (d *Notifier) Show(_ context.Context, n notify.Notification) error {
	d.once.Do(func() {
		if d.app == nil {
			d.app = app.NewWithID(AppID)
		}
	})

	title := n.Title
	if n.Attribution != "" {
		title = n.Attribution + ": " + n.Title
	}
	d.app.SendNotification(fyne.NewNotification(title, n.Body))
	return nil
}
