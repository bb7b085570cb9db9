package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/godbus/dbus/v5"
)

const (
	notifyDest   = "org.freedesktop.Notifications"
	notifyPath   = dbus.ObjectPath("/org/freedesktop/Notifications")
	notifyMethod = "org.freedesktop.Notifications.Notify"
)

// DBus sends notifications through the freedesktop notification service on
// the session bus.
type DBus struct {
	object func() (dbus.BusObject, error)
}

// NewDBus returns a notifier using the session bus
func NewDBus() *DBus {
	return &DBus{object: sessionObject}
}

func sessionObject() (dbus.BusObject, error) {
	// SessionBus is shared and must not be closed
	conn, err := dbus.SessionBus()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to session bus: %w", err)
	}
	return conn.Object(notifyDest, notifyPath), nil
}

// Name returns "dbus"
func (d *DBus) Name() string { return "dbus" }

// Show calls org.freedesktop.Notifications.Notify
func (d *DBus) Show(ctx context.Context, n Notification) error {
	obj, err := d.object()
	if err != nil {
		return err
	}

	timeout := int32(-1)
	if n.Expiration > 0 {
		timeout = int32(n.Expiration / time.Millisecond)
	}

	call := obj.CallWithContext(ctx, notifyMethod, 0,
		n.Attribution,             // app_name
		uint32(0),                 // replaces_id
		"dialog-warning",          // app_icon
		n.Title,                   // summary
		n.Body,                    // body
		[]string{},                // actions
		map[string]dbus.Variant{}, // hints
		timeout,                   // expire_timeout
	)
	if call.Err != nil {
		return fmt.Errorf("failed to send notification: %w", call.Err)
	}

	var id uint32
	if err := call.Store(&id); err != nil {
		return fmt.Errorf("failed to read notification id: %w", err)
	}
	return nil
}
