package pcibus

import (
	"errors"
	"testing"

	"github.com/mscrnt/pcie_speed/pkg/pcie"
)

var testRegs = pcie.Registers{
	Flags:    0x0002,
	LinkCap:  0x00477104,
	LinkSta:  0x1101,
	LinkCap2: 0x0000001E,
	LinkCtl2: 0x0004,
}

// buildConfig returns a 256 byte configuration space with a power management
// capability at 0x40 followed by the PCI Express capability at 0x60.
func buildConfig(regs pcie.Registers) []byte {
	config := make([]byte, cfgLegacyLen)
	config[0], config[1] = 0xde, 0x10
	config[cfgStatus] = statusCapList
	config[cfgCapPointer] = 0x40

	config[0x40] = 0x01 // power management
	config[0x41] = 0x60

	copy(config[0x60:], regs.Encode())
	config[0x61] = 0x00 // end of list
	return config
}

func TestFindExpressCap(t *testing.T) {
	capBuf, err := FindExpressCap(buildConfig(testRegs))
	if err != nil {
		t.Fatalf("FindExpressCap failed: %v", err)
	}
	if len(capBuf) != pcie.CapReadLen {
		t.Errorf("capability length = %d, want %d", len(capBuf), pcie.CapReadLen)
	}

	rec, err := pcie.Decode("dev", capBuf)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if rec.MaxSpeed != pcie.Speed16GT || rec.MaxWidth != 16 {
		t.Errorf("unexpected link capabilities %s x%d", rec.MaxSpeed, rec.MaxWidth)
	}
}

func TestFindExpressCapErrors(t *testing.T) {
	noCapList := buildConfig(testRegs)
	noCapList[cfgStatus] = 0

	loop := buildConfig(testRegs)
	loop[0x41] = 0x40 // points back to itself

	noExpress := buildConfig(testRegs)
	noExpress[0x41] = 0x00

	// Express capability too close to the end of the readable range
	truncatedCap := buildConfig(testRegs)[:0x60+pcie.MinCapLen-1]

	tests := []struct {
		name   string
		config []byte
		want   error
	}{
		{"unprivileged view", buildConfig(testRegs)[:64], ErrConfigAccess},
		{"empty", nil, ErrConfigAccess},
		{"no capability list", noCapList, ErrNoExpressCap},
		{"capability loop", loop, ErrNoExpressCap},
		{"no express capability", noExpress, ErrNoExpressCap},
		{"truncated capability", truncatedCap, ErrConfigAccess},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FindExpressCap(tt.config)
			if !errors.Is(err, tt.want) {
				t.Errorf("FindExpressCap error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestFindExpressCapShortTail(t *testing.T) {
	// Between MinCapLen and CapReadLen bytes available is still usable
	config := buildConfig(testRegs)[:0x60+pcie.MinCapLen]

	capBuf, err := FindExpressCap(config)
	if err != nil {
		t.Fatalf("FindExpressCap failed: %v", err)
	}
	if len(capBuf) != pcie.MinCapLen {
		t.Errorf("capability length = %d, want %d", len(capBuf), pcie.MinCapLen)
	}
}
