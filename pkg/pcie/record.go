// Package pcie decodes the link registers of a PCI Express capability
// structure and classifies the resulting link speeds.
package pcie

import (
	"errors"
	"fmt"
)

// ErrMalformedBuffer is returned when a capability buffer is too short to
// hold the link registers.
var ErrMalformedBuffer = errors.New("malformed capability buffer")

// Record is one device's link facts from a single scan pass.
type Record struct {
	// Vendor and device identification
	Name string `json:"name"`

	// Link Capabilities: maximum link speed/width (ASPM ignored)
	MaxSpeed Speed `json:"max_speed"`
	MaxWidth int   `json:"max_width"`

	// Link Status: current link, may be reduced by ASPM
	NegotiatedSpeed Speed `json:"negotiated_speed"`
	NegotiatedWidth int   `json:"negotiated_width"`

	// Link Capabilities 2: highest rate the silicon supports
	SupportedCeiling Speed `json:"supported_ceiling"`

	// Link Control 2: configured target rate
	TargetSpeed Speed `json:"target_speed"`

	PortType PortType `json:"port_type"`
}

// Registers holds the raw link register values of one capability structure.
type Registers struct {
	Flags    uint16
	LinkCap  uint32
	LinkSta  uint16
	LinkCap2 uint32
	LinkCtl2 uint16
}

// ReadRegisters extracts the raw link registers. buf must hold at least
// MinCapLen bytes.
func ReadRegisters(buf []byte) Registers {
	return Registers{
		Flags:    ReadWord(buf, CapFlags),
		LinkCap:  ReadLong(buf, CapLinkCap),
		LinkSta:  ReadWord(buf, CapLinkSta),
		LinkCap2: ReadLong(buf, CapLinkCap2),
		LinkCtl2: ReadWord(buf, CapLinkCtl2),
	}
}

// Record classifies the raw registers into a Record named name.
func (r Registers) Record(name string) Record {
	return Record{
		Name:             name,
		MaxSpeed:         SpeedFromCode(r.LinkCap & LinkCapSpeedMask),
		MaxWidth:         int((r.LinkCap & LinkCapWidthMask) >> LinkCapWidthShift),
		NegotiatedSpeed:  SpeedFromCode(uint32(r.LinkSta & LinkStaSpeedMask)),
		NegotiatedWidth:  int((r.LinkSta & LinkStaWidthMask) >> LinkStaWidthShift),
		SupportedCeiling: SpeedFromVector(LinkCap2Speeds(r.LinkCap2)),
		TargetSpeed:      SpeedFromTargetCode(LinkCtl2Speed(r.LinkCtl2)),
		PortType:         PortType((r.Flags & FlagsTypeMask) >> FlagsTypeShift),
	}
}

// Decode builds a Record from the raw PCI Express capability bytes of one
// device.
func Decode(name string, buf []byte) (Record, error) {
	if len(buf) < MinCapLen {
		return Record{}, fmt.Errorf("%w: %d bytes, need %d", ErrMalformedBuffer, len(buf), MinCapLen)
	}
	return ReadRegisters(buf).Record(name), nil
}

// Encode lays the registers out as a CapReadLen byte capability structure
// with a PCI Express capability header. It is the inverse of ReadRegisters.
func (r Registers) Encode() []byte {
	buf := make([]byte, CapReadLen)
	buf[0] = CapIDExpress
	putWord(buf, CapFlags, r.Flags)
	putLong(buf, CapLinkCap, r.LinkCap)
	putWord(buf, CapLinkSta, r.LinkSta)
	putLong(buf, CapLinkCap2, r.LinkCap2)
	putWord(buf, CapLinkCtl2, r.LinkCtl2)
	return buf
}

func putWord(buf []byte, off int, v uint16) {
	buf[off] = byte(v)
	buf[off+1] = byte(v >> 8)
}

func putLong(buf []byte, off int, v uint32) {
	buf[off] = byte(v)
	buf[off+1] = byte(v >> 8)
	buf[off+2] = byte(v >> 16)
	buf[off+3] = byte(v >> 24)
}
