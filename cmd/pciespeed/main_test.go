package main

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mscrnt/pcie_speed/internal/config"
	"github.com/mscrnt/pcie_speed/pkg/db"
	"github.com/mscrnt/pcie_speed/pkg/pcie"
	"github.com/mscrnt/pcie_speed/pkg/scanner"
)

// execute runs the root command with a private config and database
func execute(t *testing.T, args ...string) error {
	t.Helper()
	dir := t.TempDir()
	base := []string{
		"--config", filepath.Join(dir, "config.yaml"),
		"--db", filepath.Join(dir, "history.db"),
		"--log-level", "error",
	}
	cmd := newRootCmd()
	cmd.SetArgs(append(base, args...))
	return cmd.Execute()
}

func TestRootCommands(t *testing.T) {
	names := map[string]bool{}
	for _, c := range newRootCmd().Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"scan", "list", "show", "export", "report", "watch", "agent", "config", "version"} {
		assert.True(t, names[want], "missing command %s", want)
	}
}

func TestSetupAppliesFlags(t *testing.T) {
	require.NoError(t, execute(t, "config", "show"))
	require.NotNil(t, cfg)
	assert.Equal(t, config.DefaultFilter, cfg.Filter)
	assert.Equal(t, "history.db", filepath.Base(cfg.Database))

	assert.Error(t, execute(t, "--log-level", "loud", "version"))
}

func TestScanFlagsOverrideOnlyWhenSet(t *testing.T) {
	c := config.Default()
	c.Force = true

	cmd := listCmd()
	var flags scanFlags
	flags.register(cmd)
	require.NoError(t, cmd.ParseFlags([]string{"--filter", "1002::", "--strict"}))
	flags.apply(cmd, c)

	assert.Equal(t, "1002::", c.Filter)
	assert.True(t, c.Strict)
	assert.True(t, c.Force, "unset flag must not override config")
	assert.Equal(t, 1, c.Parallelism)
	assert.Equal(t, pcie.Policy{Force: true, Strict: true}, policy(c))
}

func TestParseScanID(t *testing.T) {
	id, err := parseScanID("42")
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	for _, bad := range []string{"", "0", "-3", "abc"} {
		_, err := parseScanID(bad)
		assert.Error(t, err, bad)
	}
}

func TestHistoryCommands(t *testing.T) {
	dir := t.TempDir()
	dbFile := filepath.Join(dir, "history.db")

	store, err := db.Open(dbFile)
	require.NoError(t, err)
	_, err = store.SaveResult(&scanner.Result{
		Host:      "rig-01",
		StartedAt: time.Now(),
		Devices: []scanner.DeviceReport{{
			Address: "0000:01:00.0",
			Record:  pcie.Record{Name: "gpu", MaxSpeed: pcie.Speed8GT, SupportedCeiling: pcie.Speed16GT},
			Verdict: pcie.Verdict{Degraded: true, Reasons: []pcie.Reason{pcie.ReasonMaxBelowCeiling}},
		}},
	}, config.DefaultFilter, pcie.Policy{})
	require.NoError(t, err)
	require.NoError(t, store.Close())

	run := func(args ...string) error {
		cmd := newRootCmd()
		cmd.SetArgs(append([]string{"--config", filepath.Join(dir, "none.yaml"), "--db", dbFile, "--log-level", "error"}, args...))
		return cmd.Execute()
	}

	assert.NoError(t, run("list", "--degraded"))
	assert.NoError(t, run("show", "1"))
	assert.Error(t, run("show", "2"))

	out := filepath.Join(dir, "links.csv")
	assert.NoError(t, run("export", "1", "--output", out))
	assert.FileExists(t, out)
	assert.Error(t, run("export"))
	assert.Error(t, run("export", "--all", "--format", "json"))

	html := filepath.Join(dir, "report.html")
	assert.NoError(t, run("report", "--latest", "--output", html))
	assert.FileExists(t, html)
	assert.Error(t, run("report", "1", "--format", "pdf"))
}

func TestConfigInit(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	run := func(args ...string) error {
		cmd := newRootCmd()
		cmd.SetArgs(append([]string{"--config", path, "--log-level", "error"}, args...))
		return cmd.Execute()
	}

	require.NoError(t, run("config", "init"))
	loaded, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, config.DefaultCron, loaded.Watch.Cron)

	assert.Error(t, run("config", "init"))
	assert.NoError(t, run("config", "init", "--force"))
}
