package pcie

import "fmt"

// PortType is the Device/Port Type field of the PCI Express Capabilities
// register.
type PortType uint8

const (
	PortEndpoint       PortType = 0x0
	PortLegacyEndpoint PortType = 0x1
	PortRootPort       PortType = 0x4
	PortUpstream       PortType = 0x5
	PortDownstream     PortType = 0x6
	PortPCIeToPCI      PortType = 0x7
	PortPCIToPCIe      PortType = 0x8
	PortRCEndpoint     PortType = 0x9
	PortRCEventCol     PortType = 0xA
)

var portNames = map[PortType]string{
	PortEndpoint:       "Endpoint",
	PortLegacyEndpoint: "Legacy Endpoint",
	PortRootPort:       "Root Port",
	PortUpstream:       "Upstream Port",
	PortDownstream:     "Downstream Port",
	PortPCIeToPCI:      "PCIe to PCI/PCI-X Bridge",
	PortPCIToPCIe:      "PCI/PCI-X to PCIe Bridge",
	PortRCEndpoint:     "Root Complex Integrated Endpoint",
	PortRCEventCol:     "Root Complex Event Collector",
}

func (p PortType) String() string {
	if name, ok := portNames[p]; ok {
		return name
	}
	return fmt.Sprintf("Unknown (0x%x)", uint8(p))
}

// DownstreamFacing reports whether the port sits above the link it trains,
// so a narrower negotiated width is decided by whatever is plugged below it.
func (p PortType) DownstreamFacing() bool {
	switch p {
	case PortRootPort, PortDownstream, PortPCIeToPCI, PortPCIToPCIe:
		return true
	}
	return false
}
