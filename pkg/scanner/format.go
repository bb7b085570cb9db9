package scanner

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/mscrnt/pcie_speed/pkg/pcie"
)

// Format writes the lspci style block for every device, followed by a
// warning line for degraded links, then the skipped devices.
func Format(w io.Writer, r *Result) error {
	for _, d := range r.Devices {
		if err := formatDevice(w, d); err != nil {
			return err
		}
	}

	for _, warn := range r.Warnings {
		if _, err := fmt.Fprintf(w, "Warning: %s %s: %s\n", warn.Address, warn.Name, warn.Message); err != nil {
			return err
		}
	}
	return nil
}

func formatDevice(w io.Writer, d DeviceReport) error {
	rec := d.Record

	_, err := fmt.Fprintf(w, "%s %s\n"+
		"\tLnkCap:\tMaximum Link Speed %s, Maximum Link Width x%d\n"+
		"\tLnkSta:\tNegotiated Link Speed %s, Negotiated Link Width x%d\n"+
		"\tLnkCap2: Supported Link Speed: 2.5GT/s - %s\n"+
		"\tLnkCtl2: Target Link Speed: %s\n",
		d.Address, rec.Name,
		rec.MaxSpeed, rec.MaxWidth,
		rec.NegotiatedSpeed, rec.NegotiatedWidth,
		rec.SupportedCeiling,
		rec.TargetSpeed)
	if err != nil {
		return err
	}

	for _, line := range warningLines(d) {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// warningLines describes each degradation reason of d
func warningLines(d DeviceReport) []string {
	rec := d.Record
	var lines []string

	switch {
	case d.Verdict.Has(pcie.ReasonMaxBelowCeiling):
		lines = append(lines, fmt.Sprintf("Warning: device is operating at suboptimal speed %s instead of %s",
			rec.MaxSpeed, rec.SupportedCeiling))
	case d.Verdict.Has(pcie.ReasonNegotiatedBelowCeiling):
		lines = append(lines, fmt.Sprintf("Warning: device is operating at suboptimal speed %s instead of %s",
			rec.NegotiatedSpeed, rec.SupportedCeiling))
	}

	if d.Verdict.Has(pcie.ReasonWidthDowngraded) {
		lines = append(lines, fmt.Sprintf("Warning: device is operating at reduced width x%d instead of x%d",
			rec.NegotiatedWidth, rec.MaxWidth))
	}
	return lines
}

// FormatJSON writes r as indented JSON
func FormatJSON(w io.Writer, r *Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}
