// Package notify delivers degraded-link alerts to the desktop.
package notify

import (
	"context"
	"time"
)

// Notification is one alert
type Notification struct {
	// Attribution names the sending application
	Attribution string `json:"attribution"`
	Title       string `json:"title"`
	Body        string `json:"body"`

	// Expiration is how long the alert stays visible; zero lets the server decide
	Expiration time.Duration `json:"expiration"`
}

// Notifier is the interface that all notification backends implement
type Notifier interface {
	// Name returns the backend name used in configuration
	Name() string

	// Show displays n. Errors are reported to the caller, who treats them as
	// non-fatal.
	Show(ctx context.Context, n Notification) error
}

// Nop discards notifications
type Nop struct{}

// Name returns "none"
func (Nop) Name() string { return "none" }

// Show does nothing
func (Nop) Show(context.Context, Notification) error { return nil }
