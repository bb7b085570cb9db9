package pcibus

import (
	"fmt"
	"strconv"
	"strings"
)

// Filter selects devices by vendor, device and class. Nil fields match
// anything.
type Filter struct {
	Vendor *uint16
	Device *uint16
	Class  *uint16 // base class and subclass, e.g. 0x0300
}

// ParseFilter parses "[vendor]:[device][:class]" with hex ids, the same
// syntax lspci -d accepts. "::0300" selects VGA compatible controllers.
func ParseFilter(s string) (Filter, error) {
	var f Filter

	s = strings.TrimSpace(s)
	if s == "" {
		return f, nil
	}

	parts := strings.Split(s, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return f, fmt.Errorf("invalid filter %q: expected [vendor]:[device][:class]", s)
	}

	fields := []**uint16{&f.Vendor, &f.Device, &f.Class}
	for i, part := range parts {
		if part == "" || part == "*" {
			continue
		}
		v, err := strconv.ParseUint(strings.TrimPrefix(part, "0x"), 16, 16)
		if err != nil {
			return Filter{}, fmt.Errorf("invalid filter %q: bad id %q", s, part)
		}
		id := uint16(v)
		*fields[i] = &id
	}

	return f, nil
}

// Match reports whether the ids satisfy the filter. class is the full 24-bit
// class code from sysfs; its programming interface byte is ignored.
func (f Filter) Match(vendor, device uint16, class uint32) bool {
	if f.Vendor != nil && *f.Vendor != vendor {
		return false
	}
	if f.Device != nil && *f.Device != device {
		return false
	}
	if f.Class != nil && *f.Class != uint16(class>>8) {
		return false
	}
	return true
}

func (f Filter) String() string {
	part := func(v *uint16) string {
		if v == nil {
			return ""
		}
		return fmt.Sprintf("%04x", *v)
	}
	return part(f.Vendor) + ":" + part(f.Device) + ":" + part(f.Class)
}
