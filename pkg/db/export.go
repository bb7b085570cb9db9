package db

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
)

var csvHeaders = []string{
	"Scan ID", "Host", "Start Time", "Address", "Name",
	"Max Speed", "Max Width", "Negotiated Speed", "Negotiated Width",
	"Supported Ceiling", "Target Speed", "Port Type", "Degraded", "Reasons",
}

// Export writes a scan in the given format
func (db *DB) Export(w io.Writer, scanID int64, format ExportFormat) error {
	switch format {
	case ExportFormatCSV:
		return db.ExportCSV(w, scanID)
	case ExportFormatJSON:
		return db.ExportJSON(w, scanID)
	default:
		return fmt.Errorf("unsupported export format: %s", format)
	}
}

// ExportCSV exports one scan's links to CSV format
func (db *DB) ExportCSV(w io.Writer, scanID int64) error {
	scan, err := db.GetScan(scanID)
	if err != nil {
		return fmt.Errorf("failed to get scan: %w", err)
	}

	links, err := db.GetLinks(scanID)
	if err != nil {
		return fmt.Errorf("failed to get links: %w", err)
	}

	csvWriter := csv.NewWriter(w)
	if err := csvWriter.Write(csvHeaders); err != nil {
		return fmt.Errorf("failed to write headers: %w", err)
	}

	for _, l := range links {
		if err := csvWriter.Write(csvRow(scan, l)); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}

	csvWriter.Flush()
	return csvWriter.Error()
}

// ExportAllCSV exports the links of every stored scan to CSV format
func (db *DB) ExportAllCSV(w io.Writer) error {
	scans, err := db.ListScans(ScanFilter{})
	if err != nil {
		return fmt.Errorf("failed to list scans: %w", err)
	}

	csvWriter := csv.NewWriter(w)
	if err := csvWriter.Write(csvHeaders); err != nil {
		return fmt.Errorf("failed to write headers: %w", err)
	}

	for _, scan := range scans {
		links, err := db.GetLinks(scan.ID)
		if err != nil {
			return fmt.Errorf("failed to get links for scan %d: %w", scan.ID, err)
		}
		for _, l := range links {
			if err := csvWriter.Write(csvRow(scan, l)); err != nil {
				return fmt.Errorf("failed to write row: %w", err)
			}
		}
	}

	csvWriter.Flush()
	return csvWriter.Error()
}

func csvRow(scan *Scan, l *Link) []string {
	reasons := make([]string, len(l.Reasons))
	for i, r := range l.Reasons {
		reasons[i] = string(r)
	}

	return []string{
		strconv.FormatInt(scan.ID, 10),
		scan.Host,
		scan.StartTime.Format("2006-01-02 15:04:05"),
		l.Address,
		l.Name,
		l.MaxSpeed.String(),
		strconv.Itoa(l.MaxWidth),
		l.NegotiatedSpeed.String(),
		strconv.Itoa(l.NegotiatedWidth),
		l.SupportedCeiling.String(),
		l.TargetSpeed.String(),
		l.PortType.String(),
		strconv.FormatBool(l.Degraded),
		strings.Join(reasons, ";"),
	}
}

// ExportJSON exports one scan and its links to JSON format
func (db *DB) ExportJSON(w io.Writer, scanID int64) error {
	scan, err := db.GetScan(scanID)
	if err != nil {
		return fmt.Errorf("failed to get scan: %w", err)
	}

	links, err := db.GetLinks(scanID)
	if err != nil {
		return fmt.Errorf("failed to get links: %w", err)
	}

	export := struct {
		Scan  *Scan   `json:"scan"`
		Links []*Link `json:"links"`
	}{
		Scan:  scan,
		Links: links,
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(export); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}

	return nil
}
