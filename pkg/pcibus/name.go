package pcibus

import (
	"fmt"
	"strings"

	"github.com/siderolabs/go-pcidb/pkg/pcidb"
)

// DeviceName formats "vvvv:dddd Vendor Product" from the PCI ID database,
// falling back to the bare ids for unlisted devices.
func DeviceName(vendor, device uint16) string {
	ids := fmt.Sprintf("%04x:%04x", vendor, device)

	var parts []string
	if v, ok := pcidb.LookupVendor(vendor); ok {
		parts = append(parts, v)
	}
	if p, ok := pcidb.LookupProduct(vendor, device); ok {
		parts = append(parts, p)
	}

	if len(parts) == 0 {
		return ids
	}
	return ids + " " + strings.Join(parts, " ")
}
