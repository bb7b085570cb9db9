package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mscrnt/pcie_speed/internal/config"
	"github.com/mscrnt/pcie_speed/internal/version"
	"github.com/mscrnt/pcie_speed/pkg/logger"
	_ "github.com/mscrnt/pcie_speed/pkg/notify/desktop"
)

var (
	// Build variables set by ldflags
	buildVersion string
	buildCommit  string
	buildTime    string

	// Persistent flags
	configFile string
	logLevel   string
	logJSON    bool
	dbPath     string

	// cfg is loaded before any subcommand runs
	cfg *config.Config
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "pciespeed",
		Short: "Check PCI Express links for reduced speed",
		Long: `pciespeed reads the PCI Express capability of each matching device,
prints its maximum, negotiated, supported and target link speeds, and warns
when a link runs slower than the device and slot support.`,
		Version:       version.GetVersion(buildVersion, buildCommit, buildTime),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return setup(cmd)
		},
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Config file (default: ~/.pciespeed/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "Emit logs as JSON")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "History database (default: ~/.pciespeed/pciespeed.db)")

	rootCmd.AddCommand(versionCmd())
	rootCmd.AddCommand(scanCmd())
	rootCmd.AddCommand(listCmd())
	rootCmd.AddCommand(showCmd())
	rootCmd.AddCommand(exportCmd())
	rootCmd.AddCommand(reportCmd())
	rootCmd.AddCommand(watchCmd())
	rootCmd.AddCommand(agentCmd())
	rootCmd.AddCommand(configCmd())

	return rootCmd
}

// setup applies logging flags and loads the configuration
func setup(cmd *cobra.Command) error {
	if err := logger.SetLevel(logLevel); err != nil {
		return err
	}
	logger.SetJSON(logJSON)

	path := configFile
	if path == "" {
		path = config.DefaultPath()
	}

	loaded, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("failed to load config %s: %w", path, err)
	}
	if dbPath != "" {
		loaded.Database = dbPath
	}
	cfg = loaded

	logger.Debug("Loaded configuration from %s for %s", path, cmd.CommandPath())
	return nil
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Println(version.GetDetailedVersion(buildVersion, buildCommit, buildTime))
		},
	}
}
