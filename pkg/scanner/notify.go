package scanner

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mscrnt/pcie_speed/pkg/logger"
	"github.com/mscrnt/pcie_speed/pkg/notify"
)

// NotifyOptions controls alert text and lifetime
type NotifyOptions struct {
	Attribution string
	Expiration  time.Duration
}

// Message builds the alert for one degraded device
func Message(d DeviceReport, opts NotifyOptions) notify.Notification {
	body := strings.Join(warningLines(d), "\n")
	if body == "" {
		rec := d.Record
		body = fmt.Sprintf("Link at %s x%d, maximum %s x%d",
			rec.NegotiatedSpeed, rec.NegotiatedWidth, rec.MaxSpeed, rec.MaxWidth)
	}

	return notify.Notification{
		Attribution: opts.Attribution,
		Title:       d.Record.Name,
		Body:        body,
		Expiration:  opts.Expiration,
	}
}

// Notify sends one alert per degraded device and returns how many were
// delivered. Delivery failures are logged and never abort the loop.
func Notify(ctx context.Context, n notify.Notifier, r *Result, opts NotifyOptions) int {
	sent := 0
	for _, d := range r.Degraded() {
		if err := n.Show(ctx, Message(d, opts)); err != nil {
			logger.WithDevice(d.Address).WithError(err).Warnf("Failed to send %s notification", n.Name())
			continue
		}
		sent++
	}
	return sent
}
