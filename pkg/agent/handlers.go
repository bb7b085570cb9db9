package agent

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/mscrnt/pcie_speed/pkg/db"
	"github.com/mscrnt/pcie_speed/pkg/logger"
	"github.com/mscrnt/pcie_speed/pkg/scanner"
)

// SysInfo contains system information
type SysInfo struct {
	Timestamp time.Time  `json:"timestamp"`
	Host      HostInfo   `json:"host"`
	Memory    MemoryInfo `json:"memory"`
}

// HostInfo contains host information
type HostInfo struct {
	Hostname        string `json:"hostname"`
	Uptime          uint64 `json:"uptime"`
	BootTime        uint64 `json:"boot_time"`
	OS              string `json:"os"`
	Platform        string `json:"platform"`
	PlatformVersion string `json:"platform_version"`
	KernelVersion   string `json:"kernel_version"`
	Architecture    string `json:"architecture"`
}

// MemoryInfo contains memory information
type MemoryInfo struct {
	Total       uint64  `json:"total"`
	Available   uint64  `json:"available"`
	UsedPercent float64 `json:"used_percent"`
}

// DevicesResponse is the body of /devices
type DevicesResponse struct {
	// Source is "live" for a fresh scan or "history" for the latest stored one
	Source    string                 `json:"source"`
	ScanID    int64                  `json:"scan_id,omitempty"`
	Host      string                 `json:"host"`
	Timestamp time.Time              `json:"timestamp"`
	Devices   []scanner.DeviceReport `json:"devices"`
	Warnings  []scanner.Warning      `json:"warnings,omitempty"`
}

// Degraded counts degraded devices in the response
func (d *DevicesResponse) Degraded() int {
	n := 0
	for _, dev := range d.Devices {
		if dev.Verdict.Degraded {
			n++
		}
	}
	return n
}

// healthHandler returns server health status
func healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, "OK\n")
}

// sysinfoHandler returns system information as JSON
func sysinfoHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	info := SysInfo{
		Timestamp: time.Now(),
	}

	if hostInfo, err := host.Info(); err == nil {
		info.Host = HostInfo{
			Hostname:        hostInfo.Hostname,
			Uptime:          hostInfo.Uptime,
			BootTime:        hostInfo.BootTime,
			OS:              hostInfo.OS,
			Platform:        hostInfo.Platform,
			PlatformVersion: hostInfo.PlatformVersion,
			KernelVersion:   hostInfo.KernelVersion,
			Architecture:    runtime.GOARCH,
		}
	}

	if vm, err := mem.VirtualMemory(); err == nil {
		info.Memory = MemoryInfo{
			Total:       vm.Total,
			Available:   vm.Available,
			UsedPercent: vm.UsedPercent,
		}
	}

	writeJSON(w, info)
}

// devicesHandler serves the latest stored scan, or a live scan when asked
// with ?live=1 or when there is no history.
func (s *Server) devicesHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	live := r.URL.Query().Get("live") == "1" || s.history == nil

	var (
		resp *DevicesResponse
		err  error
	)
	if live {
		resp, err = s.liveDevices(r)
	} else {
		resp, err = s.storedDevices()
	}

	switch {
	case errors.Is(err, db.ErrNotFound):
		http.Error(w, "No scans recorded", http.StatusNotFound)
		return
	case err != nil:
		logger.WithError(err).Error("Failed to collect devices")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if r.URL.Query().Get("degraded") == "1" {
		var filtered []scanner.DeviceReport
		for _, d := range resp.Devices {
			if d.Verdict.Degraded {
				filtered = append(filtered, d)
			}
		}
		resp.Devices = filtered
	}

	writeJSON(w, resp)
}

func (s *Server) liveDevices(r *http.Request) (*DevicesResponse, error) {
	if s.scanner == nil {
		return nil, errors.New("live scans are not available")
	}

	result, err := s.scanner.Scan(r.Context())
	if err != nil {
		return nil, err
	}

	return &DevicesResponse{
		Source:    "live",
		Host:      result.Host,
		Timestamp: result.StartedAt,
		Devices:   result.Devices,
		Warnings:  result.Warnings,
	}, nil
}

func (s *Server) storedDevices() (*DevicesResponse, error) {
	scan, err := s.history.LatestScan()
	if err != nil {
		return nil, err
	}

	links, err := s.history.GetLinks(scan.ID)
	if err != nil {
		return nil, err
	}

	resp := &DevicesResponse{
		Source:    "history",
		ScanID:    scan.ID,
		Host:      scan.Host,
		Timestamp: scan.StartTime,
		Warnings:  scan.Warnings,
	}
	for _, l := range links {
		resp.Devices = append(resp.Devices, l.Report())
	}
	return resp, nil
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(v); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}
