package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mscrnt/pcie_speed/pkg/db"
	"github.com/mscrnt/pcie_speed/pkg/scanner"
)

func listCmd() *cobra.Command {
	var (
		host     string
		since    time.Duration
		degraded bool
		limit    int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded scans",
		Long: `List scans from the history database, newest first.

Examples:
  # List all scans
  pciespeed list

  # List scans from the last day that found a degraded link
  pciespeed list --since 24h --degraded

  # List last 10 scans of one host
  pciespeed list --host rig-01 --limit 10`,
		RunE: func(_ *cobra.Command, _ []string) error {
			database, err := openDB(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = database.Close() }()

			filter := db.ScanFilter{
				Host:         host,
				DegradedOnly: degraded,
				Limit:        limit,
			}
			if since > 0 {
				start := time.Now().Add(-since)
				filter.StartTime = &start
			}

			scans, err := database.ListScans(filter)
			if err != nil {
				return fmt.Errorf("failed to list scans: %w", err)
			}

			if len(scans) == 0 {
				fmt.Println("No scans found")
				return nil
			}

			fmt.Printf("%-6s %-16s %-20s %-10s %-8s %-8s %-8s\n",
				"ID", "Host", "Start Time", "Duration", "Devices", "Degraded", "Skipped")
			fmt.Println(strings.Repeat("-", 82))

			for _, s := range scans {
				duration := "-"
				if s.EndTime != nil {
					duration = fmt.Sprintf("%.2fs", s.Duration().Seconds())
				}
				fmt.Printf("%-6d %-16s %-20s %-10s %-8d %-8d %-8d\n",
					s.ID,
					s.Host,
					s.StartTime.Format("2006-01-02 15:04:05"),
					duration,
					s.DeviceCount,
					s.DegradedCount,
					len(s.Warnings),
				)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&host, "host", "", "Only scans from this host")
	cmd.Flags().DurationVar(&since, "since", 0, "Only scans newer than this (e.g. 24h)")
	cmd.Flags().BoolVar(&degraded, "degraded", false, "Only scans that found a degraded link")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of scans to show")

	return cmd
}

func showCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <scan-id>",
		Short: "Show the links recorded by a scan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseScanID(args[0])
			if err != nil {
				return err
			}

			database, err := openDB(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = database.Close() }()

			scan, err := database.GetScan(id)
			if err != nil {
				return err
			}
			links, err := database.GetLinks(id)
			if err != nil {
				return err
			}

			fmt.Printf("Scan #%d on %s at %s (filter %s)\n\n",
				scan.ID, scan.Host, scan.StartTime.Format("2006-01-02 15:04:05"), scan.Filter)

			result := &scanner.Result{
				Host:      scan.Host,
				StartedAt: scan.StartTime,
				Duration:  scan.Duration(),
				Warnings:  scan.Warnings,
			}
			for _, l := range links {
				result.Devices = append(result.Devices, l.Report())
			}
			return scanner.Format(cmd.OutOrStdout(), result)
		},
	}
}

func exportCmd() *cobra.Command {
	var (
		format string
		output string
		all    bool
	)

	cmd := &cobra.Command{
		Use:   "export [scan-id]",
		Short: "Export recorded scans",
		Long: `Export a recorded scan as CSV or JSON.

Examples:
  # Export scan 42 to a file
  pciespeed export 42 --format csv --output links.csv

  # Export scan 42 as JSON to stdout
  pciespeed export 42 --format json

  # Export every scan as CSV
  pciespeed export --all --output history.csv`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			if !all && len(args) == 0 {
				return fmt.Errorf("either a scan id or --all must be given")
			}

			database, err := openDB(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = database.Close() }()

			out, closeOut, err := createOutput(output)
			if err != nil {
				return err
			}
			defer closeOut()

			if all {
				if db.ExportFormat(format) != db.ExportFormatCSV {
					return fmt.Errorf("--all supports csv only")
				}
				return database.ExportAllCSV(out)
			}

			id, err := parseScanID(args[0])
			if err != nil {
				return err
			}
			if err := database.Export(out, id, db.ExportFormat(format)); err != nil {
				return err
			}
			if output != "" {
				fmt.Printf("Exported scan %d to %s\n", id, output)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", string(db.ExportFormatCSV), "Output format (csv, json)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default: stdout)")
	cmd.Flags().BoolVar(&all, "all", false, "Export all scans")

	return cmd
}

func parseScanID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid scan id %q", s)
	}
	return id, nil
}
