//go:build linux

package pcibus

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/prometheus/procfs/sysfs"

	"github.com/mscrnt/pcie_speed/pkg/logger"
)

// Enumerator lists PCI devices under a sysfs mount point
type Enumerator struct {
	root   string
	fs     sysfs.FS
	filter Filter
}

// NewEnumerator opens the sysfs tree mounted at root ("/sys" if empty).
func NewEnumerator(root string, filter Filter) (*Enumerator, error) {
	if root == "" {
		root = "/sys"
	}

	fs, err := sysfs.NewFS(root)
	if err != nil {
		return nil, fmt.Errorf("failed to open sysfs: %w", err)
	}

	return &Enumerator{
		root:   root,
		fs:     fs,
		filter: filter,
	}, nil
}

// Devices returns the devices matching the filter, sorted by address.
func (e *Enumerator) Devices(ctx context.Context) ([]Device, error) {
	devices, err := e.fs.PciDevices()
	if err != nil {
		return nil, fmt.Errorf("failed to read pci devices: %w", err)
	}

	var result []Device
	for _, d := range devices {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		addr := sysfsAddress(d.Location)
		vendor, device := uint16(d.Vendor), uint16(d.Device)
		if !e.filter.Match(vendor, device, d.Class) {
			logger.WithDevice(addr).Debugf("Skipping device, class 0x%06x not matching %s", d.Class, e.filter)
			continue
		}

		logger.WithDevice(addr).Debug("Found matching pci device")
		result = append(result, Device{
			Address:          addr,
			VendorID:         vendor,
			DeviceID:         device,
			Class:            d.Class,
			Name:             DeviceName(vendor, device),
			MaxLinkSpeed:     d.MaxLinkSpeed,
			MaxLinkWidth:     d.MaxLinkWidth,
			CurrentLinkSpeed: d.CurrentLinkSpeed,
			CurrentLinkWidth: d.CurrentLinkWidth,
		})
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Address < result[j].Address
	})

	return result, nil
}

// sysfsAddress formats loc the way /sys/bus/pci/devices names it, with a dot
// before the function number.
func sysfsAddress(loc sysfs.PciDeviceLocation) string {
	return fmt.Sprintf("%04x:%02x:%02x.%x", loc.Segment, loc.Bus, loc.Device, loc.Function)
}

// ReadExpressCap reads the device's configuration space and returns its PCI
// Express capability bytes.
func (e *Enumerator) ReadExpressCap(dev Device) ([]byte, error) {
	path := filepath.Join(e.root, "bus", "pci", "devices", dev.Address, "config")

	config, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrPermission) {
			return nil, fmt.Errorf("%w: %v", ErrConfigAccess, err)
		}
		return nil, fmt.Errorf("failed to read config space of %s: %w", dev.Address, err)
	}

	return FindExpressCap(config)
}
