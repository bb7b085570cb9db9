package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/mscrnt/pcie_speed/pkg/logger"
	"github.com/mscrnt/pcie_speed/pkg/schedule"
)

const watchJob = "scan"

func watchCmd() *cobra.Command {
	var (
		flags    scanFlags
		cronExpr string
		save     bool
		now      bool
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Scan periodically until interrupted",
		Long: `Run scans on a cron schedule and notify about degraded links.

Cron expression format:
  ┌───────────── minute (0 - 59)
  │ ┌───────────── hour (0 - 23)
  │ │ ┌───────────── day of month (1 - 31)
  │ │ │ ┌───────────── month (1 - 12)
  │ │ │ │ ┌───────────── day of week (0 - 6) (Sunday to Saturday)
  │ │ │ │ │
  * * * * *

Descriptors such as @hourly and @every 15m are accepted too.

Examples:
  # Check every 15 minutes (the default) and record results
  pciespeed watch --save

  # Check at boot and then every hour on the hour
  pciespeed watch --now --cron "0 * * * *"`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			flags.apply(cmd, cfg)
			if cmd.Flags().Changed("cron") {
				cfg.Watch.Cron = cronExpr
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			runner := schedule.NewRunner()
			job := func(ctx context.Context) error {
				result, err := runScan(ctx, cfg, save)
				if err != nil {
					return err
				}
				logger.WithFields(logrus.Fields{
					"devices":  len(result.Devices),
					"degraded": len(result.Degraded()),
					"skipped":  len(result.Warnings),
				}).Info("Scan complete")
				return nil
			}
			if err := runner.Add(watchJob, cfg.Watch.Cron, job); err != nil {
				return err
			}

			runner.Start()
			defer runner.Stop()

			if now {
				if err := runner.RunNow(watchJob); err != nil {
					return err
				}
			}

			if next, err := schedule.Next(cfg.Watch.Cron, time.Now()); err == nil {
				fmt.Printf("Watching with %q, next scan at %s\n", cfg.Watch.Cron, next.Format(time.RFC3339))
			}
			fmt.Println("Press Ctrl+C to stop...")

			<-ctx.Done()
			fmt.Println("\nStopping...")
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVar(&cronExpr, "cron", "", "Cron expression (default from config, @every 15m)")
	cmd.Flags().BoolVar(&save, "save", false, "Record every scan in the history database")
	cmd.Flags().BoolVar(&now, "now", false, "Scan once immediately")

	return cmd
}
