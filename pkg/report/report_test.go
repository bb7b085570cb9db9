package report

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mscrnt/pcie_speed/pkg/db"
	"github.com/mscrnt/pcie_speed/pkg/pcie"
	"github.com/mscrnt/pcie_speed/pkg/scanner"
)

func savedScan(t *testing.T) (*db.DB, int64) {
	t.Helper()
	store, err := db.Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	result := &scanner.Result{
		Host:      "rig-01",
		StartedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Duration:  40 * time.Millisecond,
		Devices: []scanner.DeviceReport{
			{
				Address: "0000:01:00.0",
				Record: pcie.Record{
					Name: "10de:2684 NVIDIA AD102", MaxSpeed: pcie.Speed16GT, MaxWidth: 16,
					NegotiatedSpeed: pcie.Speed16GT, NegotiatedWidth: 16,
					SupportedCeiling: pcie.Speed16GT, TargetSpeed: pcie.Speed16GT,
				},
			},
			{
				Address: "0000:02:00.0",
				Record: pcie.Record{
					Name: "1002:744c <AMD> Navi 31", MaxSpeed: pcie.Speed8GT, MaxWidth: 16,
					NegotiatedSpeed: pcie.Speed8GT, NegotiatedWidth: 16,
					SupportedCeiling: pcie.Speed16GT, TargetSpeed: pcie.Speed8GT,
				},
				Verdict: pcie.Verdict{Degraded: true, Reasons: []pcie.Reason{pcie.ReasonMaxBelowCeiling}},
			},
		},
		Warnings: []scanner.Warning{
			{Address: "0000:03:00.0", Name: "8086:56a0", Message: "no config access"},
		},
	}

	scan, err := store.SaveResult(result, "::0300", pcie.Policy{Strict: true})
	require.NoError(t, err)
	return store, scan.ID
}

func TestGenerateHTML(t *testing.T) {
	store, id := savedScan(t)

	html, err := NewGenerator(store).GenerateHTML(id)
	require.NoError(t, err)

	assert.Contains(t, html, "Scan #1")
	assert.Contains(t, html, "Host: rig-01")
	assert.Contains(t, html, "Degraded: 1 of 2")
	assert.Contains(t, html, "speed and width")
	assert.Contains(t, html, "16GT/s x16")
	assert.Contains(t, html, `<tr class="degraded">`)
	assert.Contains(t, html, "max-below-ceiling")
	assert.Contains(t, html, "no config access")

	// Device names are escaped
	assert.Contains(t, html, "&lt;AMD&gt;")
	assert.False(t, strings.Contains(html, "<AMD>"))
}

func TestGenerateHTMLMissingScan(t *testing.T) {
	store, _ := savedScan(t)

	_, err := NewGenerator(store).GenerateHTML(42)
	require.Error(t, err)
	assert.True(t, errors.Is(err, db.ErrNotFound))
}

func TestLinkRow(t *testing.T) {
	row := linkRow(&db.Link{
		Address:          "0000:02:00.0",
		MaxSpeed:         pcie.Speed8GT,
		MaxWidth:         8,
		NegotiatedSpeed:  pcie.Speed2_5GT,
		NegotiatedWidth:  4,
		SupportedCeiling: pcie.Speed16GT,
		PortType:         pcie.PortRootPort,
		Degraded:         true,
		Reasons:          db.Reasons{pcie.ReasonMaxBelowCeiling, pcie.ReasonNegotiatedBelowCeiling},
	})

	assert.Equal(t, "8GT/s x8", row.Maximum)
	assert.Equal(t, "2.5GT/s x4", row.Negotiated)
	assert.Equal(t, "unknown", row.Target)
	assert.Equal(t, "Root Port", row.PortType)
	assert.Equal(t, "max-below-ceiling, negotiated-below-ceiling", row.Reasons)
}

func TestDefaultPDFOptions(t *testing.T) {
	opts := DefaultPDFOptions()
	assert.True(t, opts.Landscape)
	assert.True(t, opts.PrintBackground)
	assert.Equal(t, 30*time.Second, opts.Timeout)
}
