package pcibus

import (
	"errors"

	"github.com/mscrnt/pcie_speed/pkg/pcie"
)

var (
	// ErrNoExpressCap means the device has no PCI Express capability.
	ErrNoExpressCap = errors.New("failed to find PCI Express capability")

	// ErrConfigAccess means the configuration space could not be read far
	// enough. Unprivileged readers only see the first 64 bytes.
	ErrConfigAccess = errors.New("no config access")
)

// Type 0/1 header fields
const (
	cfgStatus      = 0x06
	cfgCapPointer  = 0x34
	cfgHeaderLen   = 0x40
	cfgLegacyLen   = 0x100
	statusCapList  = 0x10
	capPointerMask = 0xFC
	capNextOffset  = 1
)

// FindExpressCap walks the capability list of a raw configuration space and
// returns up to pcie.CapReadLen bytes of the PCI Express capability.
func FindExpressCap(config []byte) ([]byte, error) {
	if len(config) < cfgHeaderLen {
		return nil, ErrConfigAccess
	}

	if pcie.ReadWord(config, cfgStatus)&statusCapList == 0 {
		return nil, ErrNoExpressCap
	}

	visited := make(map[int]bool)
	ptr := int(pcie.ReadByte(config, cfgCapPointer)) & capPointerMask
	for ptr != 0 && ptr < cfgLegacyLen && !visited[ptr] {
		visited[ptr] = true

		// The list points past what we were allowed to read
		if ptr+capNextOffset >= len(config) {
			return nil, ErrConfigAccess
		}

		if pcie.ReadByte(config, ptr) == pcie.CapIDExpress {
			if ptr+pcie.MinCapLen > len(config) {
				return nil, ErrConfigAccess
			}
			end := ptr + pcie.CapReadLen
			if end > len(config) {
				end = len(config)
			}
			capBuf := make([]byte, end-ptr)
			copy(capBuf, config[ptr:end])
			return capBuf, nil
		}

		ptr = int(pcie.ReadByte(config, ptr+capNextOffset)) & capPointerMask
	}

	return nil, ErrNoExpressCap
}
