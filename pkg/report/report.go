package report

import (
	"bytes"
	"fmt"
	"html/template"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/mscrnt/pcie_speed/pkg/db"
	"github.com/mscrnt/pcie_speed/pkg/pcie"
)

// Store is the part of the history database reports are built from
type Store interface {
	GetScan(id int64) (*db.Scan, error)
	GetLinks(scanID int64) ([]*db.Link, error)
}

// ReportData contains all data needed for report generation
type ReportData struct {
	Scan        *db.Scan
	Links       []LinkRow
	GeneratedAt time.Time
	SystemInfo  SystemInfo
}

// SystemInfo describes the machine generating the report
type SystemInfo struct {
	Hostname     string
	OS           string
	Kernel       string
	Architecture string
	TotalMemory  string
}

// LinkRow is one device line of the report table
type LinkRow struct {
	Address    string
	Name       string
	PortType   string
	Maximum    string
	Negotiated string
	Ceiling    string
	Target     string
	Degraded   bool
	Reasons    string
}

// Generator creates reports from stored scans
type Generator struct {
	store Store
}

// NewGenerator creates a new report generator
func NewGenerator(store Store) *Generator {
	return &Generator{
		store: store,
	}
}

// GenerateHTML generates an HTML report for a scan
func (g *Generator) GenerateHTML(scanID int64) (string, error) {
	data, err := g.loadReportData(scanID)
	if err != nil {
		return "", err
	}

	tmpl, err := loadHTMLTemplate()
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}

	return buf.String(), nil
}

func (g *Generator) loadReportData(scanID int64) (*ReportData, error) {
	scan, err := g.store.GetScan(scanID)
	if err != nil {
		return nil, fmt.Errorf("failed to get scan: %w", err)
	}

	links, err := g.store.GetLinks(scanID)
	if err != nil {
		return nil, fmt.Errorf("failed to get links: %w", err)
	}

	data := &ReportData{
		Scan:        scan,
		GeneratedAt: time.Now(),
		SystemInfo:  getSystemInfo(),
	}
	for _, l := range links {
		data.Links = append(data.Links, linkRow(l))
	}

	return data, nil
}

func linkRow(l *db.Link) LinkRow {
	row := LinkRow{
		Address:    l.Address,
		Name:       l.Name,
		PortType:   l.PortType.String(),
		Maximum:    formatLink(l.MaxSpeed, l.MaxWidth),
		Negotiated: formatLink(l.NegotiatedSpeed, l.NegotiatedWidth),
		Ceiling:    l.SupportedCeiling.String(),
		Target:     l.TargetSpeed.String(),
		Degraded:   l.Degraded,
	}
	for i, r := range l.Reasons {
		if i > 0 {
			row.Reasons += ", "
		}
		row.Reasons += string(r)
	}
	return row
}

func formatLink(s pcie.Speed, width int) string {
	return fmt.Sprintf("%s x%d", s, width)
}

func getSystemInfo() SystemInfo {
	info := SystemInfo{
		Architecture: runtime.GOARCH,
	}

	if h, err := host.Info(); err == nil {
		info.Hostname = h.Hostname
		info.OS = fmt.Sprintf("%s %s", h.Platform, h.PlatformVersion)
		info.Kernel = h.KernelVersion
	}

	if vm, err := mem.VirtualMemory(); err == nil {
		info.TotalMemory = formatBytes(vm.Total)
	}

	return info
}

func formatBytes(b uint64) string {
	const gib = 1 << 30
	if b >= gib {
		return fmt.Sprintf("%.1f GB", float64(b)/gib)
	}
	return fmt.Sprintf("%d MB", b>>20)
}

func loadHTMLTemplate() (*template.Template, error) {
	funcMap := template.FuncMap{
		"formatTime": func(t time.Time) string {
			return t.Format("2006-01-02 15:04:05")
		},
		"formatDuration": func(d time.Duration) string {
			return fmt.Sprintf("%.2f seconds", d.Seconds())
		},
		"statusClass": func(degraded bool) string {
			if degraded {
				return "degraded"
			}
			return "ok"
		},
		"statusText": func(degraded bool) string {
			if degraded {
				return "DEGRADED"
			}
			return "OK"
		},
	}

	tmpl, err := template.New("report").Funcs(funcMap).Parse(htmlTemplate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse template: %w", err)
	}
	return tmpl, nil
}

// htmlTemplate is the default HTML report template
const htmlTemplate = `
<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>PCIe Link Report - Scan #{{.Scan.ID}}</title>
    <style>
        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif;
            line-height: 1.6;
            color: #333;
            max-width: 1200px;
            margin: 0 auto;
            padding: 20px;
            background-color: #f5f5f5;
        }
        .container {
            background-color: white;
            border-radius: 8px;
            box-shadow: 0 2px 4px rgba(0,0,0,0.1);
            padding: 30px;
        }
        h1, h2 {
            color: #2c3e50;
        }
        .header {
            border-bottom: 3px solid #3B82F6;
            padding-bottom: 20px;
            margin-bottom: 30px;
        }
        .status {
            display: inline-block;
            padding: 2px 10px;
            border-radius: 4px;
            font-weight: bold;
            color: white;
        }
        .status.ok {
            background-color: #10B981;
        }
        .status.degraded {
            background-color: #EF4444;
        }
        .info-grid {
            display: grid;
            grid-template-columns: repeat(auto-fit, minmax(200px, 1fr));
            gap: 20px;
            margin: 20px 0;
        }
        .info-card {
            background-color: #f8f9fa;
            padding: 15px;
            border-radius: 4px;
            border-left: 4px solid #3B82F6;
        }
        .info-card h3 {
            margin: 0 0 10px 0;
            color: #666;
            font-size: 0.9em;
            text-transform: uppercase;
        }
        .info-card p {
            margin: 0;
            font-size: 1.1em;
            font-weight: 500;
        }
        .links-table {
            width: 100%;
            border-collapse: collapse;
        }
        .links-table th,
        .links-table td {
            padding: 8px;
            text-align: left;
            border-bottom: 1px solid #e0e0e0;
        }
        .links-table th {
            background-color: #f8f9fa;
            color: #666;
        }
        .links-table tr.degraded td {
            background-color: #FEE;
        }
        .warnings {
            background-color: #FFF8E1;
            border: 1px solid #FFE082;
            border-radius: 4px;
            padding: 15px;
            margin: 20px 0;
        }
        .footer {
            margin-top: 40px;
            padding-top: 20px;
            border-top: 1px solid #e0e0e0;
            text-align: center;
            color: #666;
            font-size: 0.9em;
        }
    </style>
</head>
<body>
    <div class="container">
        <div class="header">
            <h1>PCIe Link Report</h1>
            <p>Scan #{{.Scan.ID}} | Host: {{.Scan.Host}} | Filter: {{.Scan.Filter}} |
               Degraded: {{.Scan.DegradedCount}} of {{.Scan.DeviceCount}}</p>
        </div>

        <div class="info-grid">
            <div class="info-card">
                <h3>Start Time</h3>
                <p>{{formatTime .Scan.StartTime}}</p>
            </div>
            <div class="info-card">
                <h3>Duration</h3>
                <p>{{if .Scan.EndTime}}{{formatDuration .Scan.Duration}}{{else}}N/A{{end}}</p>
            </div>
            <div class="info-card">
                <h3>Policy</h3>
                <p>{{if .Scan.Strict}}speed and width{{else}}speed{{end}}{{if .Scan.Force}}, forced{{end}}</p>
            </div>
            <div class="info-card">
                <h3>Reporter</h3>
                <p>{{.SystemInfo.Hostname}} {{.SystemInfo.Architecture}}</p>
            </div>
        </div>

        <h2>Links</h2>
        <table class="links-table">
            <thead>
                <tr>
                    <th>Address</th>
                    <th>Device</th>
                    <th>Port</th>
                    <th>Maximum</th>
                    <th>Negotiated</th>
                    <th>Supported</th>
                    <th>Target</th>
                    <th>Status</th>
                </tr>
            </thead>
            <tbody>
                {{range .Links}}
                <tr class="{{statusClass .Degraded}}">
                    <td>{{.Address}}</td>
                    <td>{{.Name}}</td>
                    <td>{{.PortType}}</td>
                    <td>{{.Maximum}}</td>
                    <td>{{.Negotiated}}</td>
                    <td>{{.Ceiling}}</td>
                    <td>{{.Target}}</td>
                    <td><span class="status {{statusClass .Degraded}}">{{statusText .Degraded}}</span>{{if .Reasons}} {{.Reasons}}{{end}}</td>
                </tr>
                {{end}}
            </tbody>
        </table>

        {{if .Scan.Warnings}}
        <div class="warnings">
            <h2>Skipped Devices</h2>
            <ul>
                {{range .Scan.Warnings}}
                <li>{{.Address}} {{.Name}}: {{.Message}}</li>
                {{end}}
            </ul>
        </div>
        {{end}}

        <div class="footer">
            <p>Generated by pciespeed on {{formatTime .GeneratedAt}}</p>
            <p>{{.SystemInfo.OS}} {{.SystemInfo.Kernel}} {{.SystemInfo.TotalMemory}}</p>
        </div>
    </div>
</body>
</html>
`
