package pcie

// CapIDExpress is the capability ID of the PCI Express capability structure.
const CapIDExpress = 0x10

// Offsets inside the PCI Express capability structure, relative to the
// capability header (PCIe Base Spec, section 7.5.3).
const (
	CapFlags    = 0x02 // PCI Express Capabilities Register
	CapDevCap   = 0x04 // Device Capabilities
	CapLinkCap  = 0x0C // Link Capabilities
	CapLinkCtl  = 0x10 // Link Control
	CapLinkSta  = 0x12 // Link Status
	CapLinkCap2 = 0x2C // Link Capabilities 2
	CapLinkCtl2 = 0x30 // Link Control 2
	CapLinkSta2 = 0x32 // Link Status 2
)

const (
	// MinCapLen is the number of capability bytes populated for devices with links.
	MinCapLen = 56

	// CapReadLen is how many capability bytes the enumerator tries to read.
	CapReadLen = 60
)

// Register field masks
const (
	FlagsVersionMask = 0x000F
	FlagsTypeMask    = 0x00F0
	FlagsTypeShift   = 4

	LinkCapSpeedMask  = 0x0000000F
	LinkCapWidthMask  = 0x000003F0
	LinkCapWidthShift = 4

	LinkStaSpeedMask  = 0x000F
	LinkStaWidthMask  = 0x03F0
	LinkStaWidthShift = 4

	LinkCap2SpeedShift = 1
	LinkCap2SpeedMask  = 0x7F

	LinkCtl2SpeedMask = 0x000F
)

// ReadByte returns the byte at off.
func ReadByte(buf []byte, off int) uint8 {
	return buf[off]
}

// ReadWord returns the little-endian 16-bit value at off.
func ReadWord(buf []byte, off int) uint16 {
	return uint16(buf[off]) | uint16(buf[off+1])<<8
}

// ReadLong returns the little-endian 32-bit value at off.
func ReadLong(buf []byte, off int) uint32 {
	return uint32(buf[off]) |
		uint32(buf[off+1])<<8 |
		uint32(buf[off+2])<<16 |
		uint32(buf[off+3])<<24
}

// LinkCap2Speeds extracts the Supported Link Speeds vector from a Link
// Capabilities 2 value.
func LinkCap2Speeds(raw uint32) uint32 {
	return (raw >> LinkCap2SpeedShift) & LinkCap2SpeedMask
}

// LinkCtl2Speed extracts the Target Link Speed from a Link Control 2 value.
func LinkCtl2Speed(raw uint16) uint32 {
	return uint32(raw & LinkCtl2SpeedMask)
}
