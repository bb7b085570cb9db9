package db

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mscrnt/pcie_speed/pkg/pcie"
	"github.com/mscrnt/pcie_speed/pkg/scanner"
)

// Scan is one stored scan pass
type Scan struct {
	ID            int64      `json:"id"`
	Host          string     `json:"host"`
	Filter        string     `json:"filter"`
	Force         bool       `json:"force"`
	Strict        bool       `json:"strict"`
	StartTime     time.Time  `json:"start_time"`
	EndTime       *time.Time `json:"end_time"`
	DeviceCount   int        `json:"device_count"`
	DegradedCount int        `json:"degraded_count"`
	Warnings      Warnings   `json:"warnings,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// Duration returns the duration of the scan
func (s *Scan) Duration() time.Duration {
	if s.EndTime == nil {
		return 0
	}
	return s.EndTime.Sub(s.StartTime)
}

// Link is one device's stored link record
type Link struct {
	ID               int64         `json:"id"`
	ScanID           int64         `json:"scan_id"`
	Address          string        `json:"address"`
	Name             string        `json:"name"`
	MaxSpeed         pcie.Speed    `json:"max_speed"`
	MaxWidth         int           `json:"max_width"`
	NegotiatedSpeed  pcie.Speed    `json:"negotiated_speed"`
	NegotiatedWidth  int           `json:"negotiated_width"`
	SupportedCeiling pcie.Speed    `json:"supported_ceiling"`
	TargetSpeed      pcie.Speed    `json:"target_speed"`
	PortType         pcie.PortType `json:"port_type"`
	Degraded         bool          `json:"degraded"`
	Reasons          Reasons       `json:"reasons,omitempty"`
}

// LinkFromReport converts a scanner report into a storable link
func LinkFromReport(d scanner.DeviceReport) *Link {
	return &Link{
		Address:          d.Address,
		Name:             d.Record.Name,
		MaxSpeed:         d.Record.MaxSpeed,
		MaxWidth:         d.Record.MaxWidth,
		NegotiatedSpeed:  d.Record.NegotiatedSpeed,
		NegotiatedWidth:  d.Record.NegotiatedWidth,
		SupportedCeiling: d.Record.SupportedCeiling,
		TargetSpeed:      d.Record.TargetSpeed,
		PortType:         d.Record.PortType,
		Degraded:         d.Verdict.Degraded,
		Reasons:          Reasons(d.Verdict.Reasons),
	}
}

// Report converts the stored link back into a scanner report
func (l *Link) Report() scanner.DeviceReport {
	return scanner.DeviceReport{
		Address: l.Address,
		Record: pcie.Record{
			Name:             l.Name,
			MaxSpeed:         l.MaxSpeed,
			MaxWidth:         l.MaxWidth,
			NegotiatedSpeed:  l.NegotiatedSpeed,
			NegotiatedWidth:  l.NegotiatedWidth,
			SupportedCeiling: l.SupportedCeiling,
			TargetSpeed:      l.TargetSpeed,
			PortType:         l.PortType,
		},
		Verdict: pcie.Verdict{
			Degraded: l.Degraded,
			Reasons:  []pcie.Reason(l.Reasons),
		},
	}
}

// Reasons is stored as a JSON array
type Reasons []pcie.Reason

// Value implements the driver.Valuer interface
func (r Reasons) Value() (driver.Value, error) {
	if len(r) == 0 {
		return nil, nil
	}
	return json.Marshal([]pcie.Reason(r))
}

// Scan implements the sql.Scanner interface
func (r *Reasons) Scan(value interface{}) error {
	return scanJSON(value, r)
}

// Warnings is stored as a JSON array
type Warnings []scanner.Warning

// Value implements the driver.Valuer interface
func (w Warnings) Value() (driver.Value, error) {
	if len(w) == 0 {
		return nil, nil
	}
	return json.Marshal([]scanner.Warning(w))
}

// Scan implements the sql.Scanner interface
func (w *Warnings) Scan(value interface{}) error {
	return scanJSON(value, w)
}

func scanJSON(value interface{}, dest interface{}) error {
	if value == nil {
		return nil
	}

	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("cannot scan type %T into %T", value, dest)
	}

	return json.Unmarshal(data, dest)
}

// ScanFilter represents filters for querying scans
type ScanFilter struct {
	Host         string
	StartTime    *time.Time
	EndTime      *time.Time
	DegradedOnly bool
	Limit        int
	Offset       int
}

// ExportFormat represents the format for exporting data
type ExportFormat string

const (
	ExportFormatCSV  ExportFormat = "csv"
	ExportFormatJSON ExportFormat = "json"
)
