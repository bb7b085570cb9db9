package pcie

// Speed is a PCIe link rate. Values are ordered so that a faster rate always
// compares greater than a slower one.
type Speed uint8

const (
	SpeedUnknown Speed = iota
	Speed2_5GT
	Speed5GT
	Speed8GT
	Speed16GT
	Speed32GT
	Speed64GT
)

var speedNames = [...]string{
	SpeedUnknown: "unknown",
	Speed2_5GT:   "2.5GT/s",
	Speed5GT:     "5GT/s",
	Speed8GT:     "8GT/s",
	Speed16GT:    "16GT/s",
	Speed32GT:    "32GT/s",
	Speed64GT:    "64GT/s",
}

// String returns the lspci style rate, e.g. "16GT/s"
func (s Speed) String() string {
	if int(s) < len(speedNames) {
		return speedNames[s]
	}
	return speedNames[SpeedUnknown]
}

// Known reports whether s is a concrete rate
func (s Speed) Known() bool {
	return s > SpeedUnknown && int(s) < len(speedNames)
}

// Generation returns the PCIe generation that introduced s (1 for 2.5GT/s)
// or 0 when unknown.
func (s Speed) Generation() int {
	if !s.Known() {
		return 0
	}
	return int(s)
}

// GTs returns the raw signaling rate in GT/s.
func (s Speed) GTs() float64 {
	switch s {
	case Speed2_5GT:
		return 2.5
	case Speed5GT:
		return 5
	case Speed8GT:
		return 8
	case Speed16GT:
		return 16
	case Speed32GT:
		return 32
	case Speed64GT:
		return 64
	default:
		return 0
	}
}

// SpeedFromCode converts the current/max link speed code found in the Link
// Capabilities and Link Status registers.
func SpeedFromCode(code uint32) Speed {
	switch code {
	case 1:
		return Speed2_5GT
	case 2:
		return Speed5GT
	case 3:
		return Speed8GT
	case 4:
		return Speed16GT
	case 5:
		return Speed32GT
	case 6:
		return Speed64GT
	default:
		return SpeedUnknown
	}
}

// SpeedFromVector converts the Supported Link Speeds vector of Link
// Capabilities 2 (already shifted down by one bit) to the highest rate it
// advertises.
func SpeedFromVector(vector uint32) Speed {
	// A device must support 2.5GT/s and may not skip any rate between 2.5GT/s
	// and its highest supported rate, so the highest set bit is the ceiling.
	switch {
	case vector&0x60 != 0:
		return Speed64GT
	case vector&0x10 != 0:
		return Speed32GT
	case vector&0x08 != 0:
		return Speed16GT
	case vector&0x04 != 0:
		return Speed8GT
	case vector&0x02 != 0:
		return Speed5GT
	case vector&0x01 != 0:
		return Speed2_5GT
	default:
		return SpeedUnknown
	}
}

// SpeedFromTargetCode converts the Target Link Speed field of Link Control 2.
func SpeedFromTargetCode(code uint32) Speed {
	switch code {
	case 0: // hardwired to 0 means only 2.5GT/s is supported
		return Speed2_5GT
	case 1:
		return Speed2_5GT
	case 2:
		return Speed5GT
	case 3:
		return Speed8GT
	case 4:
		return Speed16GT
	case 5:
		return Speed32GT
	case 6:
		return Speed64GT
	default:
		return SpeedUnknown
	}
}

// ParseSpeed is the inverse of Speed.String. Unrecognized text yields
// SpeedUnknown.
func ParseSpeed(text string) Speed {
	for i, name := range speedNames {
		if name == text {
			return Speed(i)
		}
	}
	return SpeedUnknown
}

// MarshalText implements encoding.TextMarshaler.
func (s Speed) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Speed) UnmarshalText(text []byte) error {
	*s = ParseSpeed(string(text))
	return nil
}
