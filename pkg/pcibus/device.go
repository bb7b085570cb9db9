// Package pcibus enumerates PCI devices through sysfs and extracts their PCI
// Express capability structure from configuration space.
package pcibus

import "errors"

// ErrUnsupported is returned by NewEnumerator where sysfs is unavailable
var ErrUnsupported = errors.New("pci enumeration is only supported on linux")

// Device is one enumerated PCI function
type Device struct {
	Address  string `json:"address"`
	VendorID uint16 `json:"vendor_id"`
	DeviceID uint16 `json:"device_id"`
	Class    uint32 `json:"class"`
	Name     string `json:"name"`

	// Link attributes as reported by the kernel, nil when not exposed
	MaxLinkSpeed     *float64 `json:"max_link_speed,omitempty"`
	MaxLinkWidth     *float64 `json:"max_link_width,omitempty"`
	CurrentLinkSpeed *float64 `json:"current_link_speed,omitempty"`
	CurrentLinkWidth *float64 `json:"current_link_width,omitempty"`
}
