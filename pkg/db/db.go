// Package db stores scan history in SQLite.
package db

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/mscrnt/pcie_speed/pkg/pcie"
	"github.com/mscrnt/pcie_speed/pkg/scanner"
)

// ErrNotFound is returned when a scan does not exist
var ErrNotFound = errors.New("scan not found")

// DB wraps the SQL database connection
type DB struct {
	conn *sql.DB
	path string
}

// Open creates or opens a SQLite database
func Open(path string) (*DB, error) {
	// Create directory if it doesn't exist
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	conn, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db := &DB{
		conn: conn,
		path: path,
	}

	if err := db.Migrate(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return db, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// Path returns the database file path
func (db *DB) Path() string {
	return db.path
}

// Migrate creates or updates the database schema
func (db *DB) Migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS scans (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		host TEXT,
		filter TEXT,
		force_report BOOLEAN DEFAULT 0,
		strict_policy BOOLEAN DEFAULT 0,
		start_time DATETIME NOT NULL,
		end_time DATETIME,
		device_count INTEGER DEFAULT 0,
		degraded_count INTEGER DEFAULT 0,
		warnings TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS links (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		scan_id INTEGER NOT NULL,
		address TEXT NOT NULL,
		name TEXT,
		max_speed TEXT,
		max_width INTEGER,
		negotiated_speed TEXT,
		negotiated_width INTEGER,
		supported_ceiling TEXT,
		target_speed TEXT,
		port_type INTEGER,
		degraded BOOLEAN DEFAULT 0,
		reasons TEXT,
		FOREIGN KEY (scan_id) REFERENCES scans(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_scans_start_time ON scans(start_time);
	CREATE INDEX IF NOT EXISTS idx_scans_degraded ON scans(degraded_count);
	CREATE INDEX IF NOT EXISTS idx_links_scan_id ON links(scan_id);
	CREATE INDEX IF NOT EXISTS idx_links_address ON links(address);
	`

	_, err := db.conn.Exec(schema)
	return err
}

// CreateScan inserts a scan header and returns it with its ID set
func (db *DB) CreateScan(scan *Scan) error {
	if scan.StartTime.IsZero() {
		scan.StartTime = time.Now()
	}
	scan.CreatedAt = time.Now()

	result, err := db.conn.Exec(
		`INSERT INTO scans (host, filter, force_report, strict_policy, start_time, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		scan.Host, scan.Filter, scan.Force, scan.Strict, scan.StartTime, scan.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create scan: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	scan.ID = id
	return nil
}

// FinishScan records the end time, counters and warnings of a scan
func (db *DB) FinishScan(scan *Scan) error {
	if scan.EndTime == nil {
		now := time.Now()
		scan.EndTime = &now
	}

	_, err := db.conn.Exec(
		`UPDATE scans SET end_time = ?, device_count = ?, degraded_count = ?, warnings = ?
		 WHERE id = ?`,
		scan.EndTime, scan.DeviceCount, scan.DegradedCount, scan.Warnings, scan.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to finish scan: %w", err)
	}
	return nil
}

// AddLinks stores the device links of a scan in a transaction
func (db *DB) AddLinks(scanID int64, links []*Link) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		// No-op after commit
		_ = tx.Rollback()
	}()

	stmt, err := tx.Prepare(
		`INSERT INTO links (scan_id, address, name, max_speed, max_width,
		 negotiated_speed, negotiated_width, supported_ceiling, target_speed,
		 port_type, degraded, reasons)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, l := range links {
		res, err := stmt.Exec(scanID, l.Address, l.Name,
			l.MaxSpeed.String(), l.MaxWidth,
			l.NegotiatedSpeed.String(), l.NegotiatedWidth,
			l.SupportedCeiling.String(), l.TargetSpeed.String(),
			int(l.PortType), l.Degraded, l.Reasons)
		if err != nil {
			return fmt.Errorf("failed to insert link %s: %w", l.Address, err)
		}
		if l.ID, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("failed to get last insert id: %w", err)
		}
		l.ScanID = scanID
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// SaveResult stores a complete scanner result and returns the scan header
func (db *DB) SaveResult(r *scanner.Result, filter string, policy pcie.Policy) (*Scan, error) {
	scan := &Scan{
		Host:      r.Host,
		Filter:    filter,
		Force:     policy.Force,
		Strict:    policy.Strict,
		StartTime: r.StartedAt,
	}
	if err := db.CreateScan(scan); err != nil {
		return nil, err
	}

	links := make([]*Link, 0, len(r.Devices))
	for _, d := range r.Devices {
		links = append(links, LinkFromReport(d))
	}
	if err := db.AddLinks(scan.ID, links); err != nil {
		return nil, db.discardScan(scan.ID, err)
	}

	end := r.StartedAt.Add(r.Duration)
	scan.EndTime = &end
	scan.DeviceCount = len(r.Devices)
	scan.DegradedCount = len(r.Degraded())
	scan.Warnings = Warnings(r.Warnings)
	if err := db.FinishScan(scan); err != nil {
		return nil, db.discardScan(scan.ID, err)
	}

	return scan, nil
}

// discardScan removes a scan header whose links or counters could not be
// stored, so LatestScan never serves a half written scan.
func (db *DB) discardScan(id int64, cause error) error {
	if err := db.DeleteScan(id); err != nil {
		return errors.Join(cause, err)
	}
	return cause
}

const scanColumns = `id, host, filter, force_report, strict_policy, start_time, end_time,
	device_count, degraded_count, warnings, created_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanScan(row rowScanner) (*Scan, error) {
	s := &Scan{}
	var host, filter sql.NullString
	err := row.Scan(&s.ID, &host, &filter, &s.Force, &s.Strict, &s.StartTime, &s.EndTime,
		&s.DeviceCount, &s.DegradedCount, &s.Warnings, &s.CreatedAt)
	if err != nil {
		return nil, err
	}
	s.Host = host.String
	s.Filter = filter.String
	return s, nil
}

// GetScan retrieves a scan by ID
func (db *DB) GetScan(id int64) (*Scan, error) {
	row := db.conn.QueryRow(`SELECT `+scanColumns+` FROM scans WHERE id = ?`, id)
	s, err := scanScan(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get scan: %w", err)
	}
	return s, nil
}

// LatestScan returns the most recent scan
func (db *DB) LatestScan() (*Scan, error) {
	scans, err := db.ListScans(ScanFilter{Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(scans) == 0 {
		return nil, ErrNotFound
	}
	return scans[0], nil
}

// ListScans retrieves scans based on filters, newest first
func (db *DB) ListScans(filter ScanFilter) ([]*Scan, error) {
	query := `SELECT ` + scanColumns + ` FROM scans WHERE 1=1`
	args := []interface{}{}

	if filter.Host != "" {
		query += " AND host = ?"
		args = append(args, filter.Host)
	}

	if filter.StartTime != nil {
		query += " AND start_time >= ?"
		args = append(args, filter.StartTime)
	}

	if filter.EndTime != nil {
		query += " AND start_time <= ?"
		args = append(args, filter.EndTime)
	}

	if filter.DegradedOnly {
		query += " AND degraded_count > 0"
	}

	query += " ORDER BY start_time DESC, id DESC"

	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)

		if filter.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, filter.Offset)
		}
	}

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list scans: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var scans []*Scan
	for rows.Next() {
		s, err := scanScan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		scans = append(scans, s)
	}

	return scans, rows.Err()
}

// GetLinks retrieves the links of a scan ordered by address
func (db *DB) GetLinks(scanID int64) ([]*Link, error) {
	rows, err := db.conn.Query(
		`SELECT id, scan_id, address, name, max_speed, max_width,
		 negotiated_speed, negotiated_width, supported_ceiling, target_speed,
		 port_type, degraded, reasons
		 FROM links WHERE scan_id = ? ORDER BY address`,
		scanID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get links: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var links []*Link
	for rows.Next() {
		l := &Link{}
		var name sql.NullString
		var maxSpeed, negSpeed, ceiling, target string
		var portType int
		err := rows.Scan(&l.ID, &l.ScanID, &l.Address, &name,
			&maxSpeed, &l.MaxWidth, &negSpeed, &l.NegotiatedWidth,
			&ceiling, &target, &portType, &l.Degraded, &l.Reasons)
		if err != nil {
			return nil, fmt.Errorf("failed to scan link: %w", err)
		}
		l.Name = name.String
		l.MaxSpeed = pcie.ParseSpeed(maxSpeed)
		l.NegotiatedSpeed = pcie.ParseSpeed(negSpeed)
		l.SupportedCeiling = pcie.ParseSpeed(ceiling)
		l.TargetSpeed = pcie.ParseSpeed(target)
		l.PortType = pcie.PortType(portType)
		links = append(links, l)
	}

	return links, rows.Err()
}

// DeleteScan removes a scan and its links
func (db *DB) DeleteScan(id int64) error {
	res, err := db.conn.Exec(`DELETE FROM scans WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete scan: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	return nil
}
