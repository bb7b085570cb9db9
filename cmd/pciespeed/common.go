package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mscrnt/pcie_speed/internal/config"
	"github.com/mscrnt/pcie_speed/pkg/db"
	"github.com/mscrnt/pcie_speed/pkg/notify"
	"github.com/mscrnt/pcie_speed/pkg/pcibus"
	"github.com/mscrnt/pcie_speed/pkg/pcie"
	"github.com/mscrnt/pcie_speed/pkg/scanner"
)

// scanFlags are the flags shared by commands that run scans. Each one only
// overrides the config when given on the command line.
type scanFlags struct {
	filter   string
	sysfs    string
	force    bool
	strict   bool
	parallel int
}

func (f *scanFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.filter, "filter", config.DefaultFilter, "Device filter [vendor]:[device][:class], hex")
	cmd.Flags().StringVar(&f.sysfs, "sysfs", config.DefaultSysfsRoot, "sysfs mount point")
	cmd.Flags().BoolVar(&f.force, "force", false, "Report every matching device as degraded")
	cmd.Flags().BoolVar(&f.strict, "strict", false, "Also treat a reduced link width as degraded")
	cmd.Flags().IntVar(&f.parallel, "parallel", 1, "Devices decoded concurrently")
}

// apply copies explicitly set flags over the config
func (f *scanFlags) apply(cmd *cobra.Command, c *config.Config) {
	if cmd.Flags().Changed("filter") {
		c.Filter = f.filter
	}
	if cmd.Flags().Changed("sysfs") {
		c.SysfsRoot = f.sysfs
	}
	if cmd.Flags().Changed("force") {
		c.Force = f.force
	}
	if cmd.Flags().Changed("strict") {
		c.Strict = f.strict
	}
	if cmd.Flags().Changed("parallel") {
		c.Parallelism = f.parallel
	}
}

// newScanner builds a scanner over the live PCI bus
func newScanner(c *config.Config) (*scanner.Scanner, error) {
	filter, err := pcibus.ParseFilter(c.Filter)
	if err != nil {
		return nil, err
	}

	enum, err := pcibus.NewEnumerator(c.SysfsRoot, filter)
	if err != nil {
		return nil, err
	}

	return &scanner.Scanner{
		Source:      enum,
		Policy:      policy(c),
		Parallelism: c.Parallelism,
	}, nil
}

func policy(c *config.Config) pcie.Policy {
	return pcie.Policy{Force: c.Force, Strict: c.Strict}
}

// newNotifier resolves the configured backend
func newNotifier(c *config.Config) (notify.Notifier, error) {
	return notify.Get(c.Notify.Backend)
}

func notifyOptions(c *config.Config) scanner.NotifyOptions {
	return scanner.NotifyOptions{
		Attribution: c.Notify.Attribution,
		Expiration:  c.Notify.Expiration,
	}
}

// openDB opens the history database
func openDB(c *config.Config) (*db.DB, error) {
	database, err := db.Open(c.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return database, nil
}

// createOutput returns stdout for an empty path
func createOutput(path string) (*os.File, func(), error) {
	if path == "" {
		return os.Stdout, func() {}, nil
	}
	out, err := os.Create(path) // #nosec G304 -- path is a user-specified output file from a command line flag
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return out, func() { _ = out.Close() }, nil
}
