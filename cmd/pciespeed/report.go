package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mscrnt/pcie_speed/pkg/report"
)

func reportCmd() *cobra.Command {
	var (
		format  string
		output  string
		latest  bool
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "report [scan-id]",
		Short: "Render a recorded scan as HTML or PDF",
		Long: `Render a recorded scan as an HTML page or a PDF document.

PDF output needs a local Chrome or Chromium installation.

Examples:
  # HTML report of scan 42
  pciespeed report 42 --output scan-42.html

  # PDF report of the latest scan
  pciespeed report --latest --format pdf --output latest.pdf`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			database, err := openDB(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = database.Close() }()

			var id int64
			switch {
			case latest:
				scan, err := database.LatestScan()
				if err != nil {
					return err
				}
				id = scan.ID
			case len(args) == 1:
				if id, err = parseScanID(args[0]); err != nil {
					return err
				}
			default:
				return fmt.Errorf("either a scan id or --latest must be given")
			}

			gen := report.NewGenerator(database)

			switch strings.ToLower(format) {
			case "html":
				html, err := gen.GenerateHTML(id)
				if err != nil {
					return err
				}
				if output == "" {
					fmt.Print(html)
					return nil
				}
				if err := os.WriteFile(output, []byte(html), 0o600); err != nil {
					return fmt.Errorf("failed to write report: %w", err)
				}

			case "pdf":
				if output == "" {
					return fmt.Errorf("--output is required for PDF reports")
				}
				opts := report.DefaultPDFOptions()
				opts.Timeout = timeout
				if err := gen.GeneratePDF(cmd.Context(), id, output, opts); err != nil {
					return err
				}

			default:
				return fmt.Errorf("unsupported report format: %s", format)
			}

			fmt.Printf("Report for scan %d written to %s\n", id, output)
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "html", "Report format (html, pdf)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (HTML defaults to stdout)")
	cmd.Flags().BoolVar(&latest, "latest", false, "Report on the most recent scan")
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "PDF rendering timeout")

	return cmd
}
