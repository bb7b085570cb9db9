package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mscrnt/pcie_speed/internal/config"
	"github.com/mscrnt/pcie_speed/pkg/logger"
	"github.com/mscrnt/pcie_speed/pkg/scanner"
)

func scanCmd() *cobra.Command {
	var (
		flags      scanFlags
		notifyWith string
		save       bool
		jsonOut    bool
	)

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Check PCI Express link speeds",
		Long: `Scan matching PCI devices and print their link capabilities.

For each device the maximum, negotiated, supported and target link speeds are
printed in lspci style. A warning follows when the link runs below the
fastest speed the device supports.

Examples:
  # Check all display controllers (the default filter ::0300)
  pciespeed scan

  # Check every NVIDIA device and raise a desktop notification
  pciespeed scan --filter 10de: --notify desktop

  # Record the result and print it as JSON
  pciespeed scan --save --json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			flags.apply(cmd, cfg)
			if cmd.Flags().Changed("notify") {
				cfg.Notify.Backend = notifyWith
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			result, err := runScan(cmd.Context(), cfg, save)
			if err != nil {
				return err
			}

			if jsonOut {
				return scanner.FormatJSON(os.Stdout, result)
			}
			return scanner.Format(os.Stdout, result)
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVar(&notifyWith, "notify", config.DefaultBackend, "Notification backend for degraded links (dbus, desktop, log, none)")
	cmd.Flags().BoolVar(&save, "save", false, "Record the scan in the history database")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print the result as JSON")

	return cmd
}

// runScan scans, notifies about degraded links and optionally records the
// result. Notification and storage failures are logged, not returned.
func runScan(ctx context.Context, c *config.Config, save bool) (*scanner.Result, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	sc, err := newScanner(c)
	if err != nil {
		return nil, err
	}

	result, err := sc.Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("scan failed: %w", err)
	}

	if len(result.Degraded()) > 0 {
		n, err := newNotifier(c)
		if err != nil {
			logger.WithError(err).Warn("Notifications disabled")
		} else {
			scanner.Notify(ctx, n, result, notifyOptions(c))
		}
	}

	if save {
		database, err := openDB(c)
		if err != nil {
			logger.WithError(err).Error("Scan not recorded")
			return result, nil
		}
		defer func() { _ = database.Close() }()

		scan, err := database.SaveResult(result, c.Filter, policy(c))
		if err != nil {
			logger.WithError(err).Error("Scan not recorded")
			return result, nil
		}
		logger.WithField("scan_id", scan.ID).Info("Scan recorded")
	}

	return result, nil
}
