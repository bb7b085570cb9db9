// Package scanner runs one pass over the PCI bus: it reads each matching
// device's PCI Express capability, decodes the link registers and applies
// the degradation policy.
package scanner

import (
	"context"
	"fmt"
	"time"

	"github.com/shirou/gopsutil/v3/host"
	"golang.org/x/sync/errgroup"

	"github.com/mscrnt/pcie_speed/pkg/logger"
	"github.com/mscrnt/pcie_speed/pkg/pcibus"
	"github.com/mscrnt/pcie_speed/pkg/pcie"
)

// Source supplies devices and their capability bytes. *pcibus.Enumerator
// implements it.
type Source interface {
	Devices(ctx context.Context) ([]pcibus.Device, error)
	ReadExpressCap(dev pcibus.Device) ([]byte, error)
}

// DeviceReport is the outcome for one device
type DeviceReport struct {
	Address string       `json:"address"`
	Record  pcie.Record  `json:"record"`
	Verdict pcie.Verdict `json:"verdict"`
}

// Warning records a device that was skipped
type Warning struct {
	Address string `json:"address"`
	Name    string `json:"name"`
	Message string `json:"message"`
}

// Result is one scan pass
type Result struct {
	Host      string         `json:"host"`
	StartedAt time.Time      `json:"started_at"`
	Duration  time.Duration  `json:"duration"`
	Devices   []DeviceReport `json:"devices"`
	Warnings  []Warning      `json:"warnings,omitempty"`
}

// Degraded returns the reports whose verdict is degraded
func (r *Result) Degraded() []DeviceReport {
	var out []DeviceReport
	for _, d := range r.Devices {
		if d.Verdict.Degraded {
			out = append(out, d)
		}
	}
	return out
}

// Scanner runs scans
type Scanner struct {
	Source      Source
	Policy      pcie.Policy
	Parallelism int
}

// Scan enumerates the source and decodes every device. Per-device failures
// become warnings and do not stop the scan. Devices keep the source's order.
func (s *Scanner) Scan(ctx context.Context) (*Result, error) {
	result := &Result{
		Host:      hostname(),
		StartedAt: time.Now(),
	}

	devices, err := s.Source.Devices(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate devices: %w", err)
	}

	type outcome struct {
		report  *DeviceReport
		warning *Warning
	}
	outcomes := make([]outcome, len(devices))

	limit := s.Parallelism
	if limit < 1 {
		limit = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i, dev := range devices {
		i, dev := i, dev
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			report, warn := s.scanDevice(dev)
			outcomes[i] = outcome{report: report, warning: warn}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, o := range outcomes {
		if o.warning != nil {
			result.Warnings = append(result.Warnings, *o.warning)
			continue
		}
		result.Devices = append(result.Devices, *o.report)
	}

	result.Duration = time.Since(result.StartedAt)
	logger.WithFields(map[string]interface{}{
		"devices":  len(result.Devices),
		"warnings": len(result.Warnings),
		"degraded": len(result.Degraded()),
	}).Debug("Scan complete")

	return result, nil
}

func (s *Scanner) scanDevice(dev pcibus.Device) (*DeviceReport, *Warning) {
	log := logger.WithDevice(dev.Address)

	capBuf, err := s.Source.ReadExpressCap(dev)
	if err != nil {
		log.WithError(err).Warn("Skipping device")
		return nil, &Warning{Address: dev.Address, Name: dev.Name, Message: err.Error()}
	}

	rec, err := pcie.Decode(dev.Name, capBuf)
	if err != nil {
		log.WithError(err).Warn("Skipping device")
		return nil, &Warning{Address: dev.Address, Name: dev.Name, Message: err.Error()}
	}

	verdict := s.Policy.Evaluate(rec)
	log.WithField("degraded", verdict.Degraded).Debugf("Link %s x%d of %s x%d, ceiling %s",
		rec.NegotiatedSpeed, rec.NegotiatedWidth, rec.MaxSpeed, rec.MaxWidth, rec.SupportedCeiling)

	return &DeviceReport{Address: dev.Address, Record: rec, Verdict: verdict}, nil
}

func hostname() string {
	info, err := host.Info()
	if err != nil {
		logger.WithError(err).Debug("Failed to read host info")
		return ""
	}
	return info.Hostname
}
