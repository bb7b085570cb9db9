package pcie

import (
	"errors"
	"testing"
)

// gpuRegisters is a Gen4 x16 endpoint currently idling at 2.5GT/s x16
var gpuRegisters = Registers{
	Flags:    0x0002,     // version 2, endpoint
	LinkCap:  0x00477104, // 16GT/s x16
	LinkSta:  0x1101,     // 2.5GT/s x16
	LinkCap2: 0x0000001E, // 2.5-16GT/s
	LinkCtl2: 0x0004,     // target 16GT/s
}

func TestDecode(t *testing.T) {
	rec, err := Decode("10de:2684 NVIDIA AD102", gpuRegisters.Encode())
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	if rec.Name != "10de:2684 NVIDIA AD102" {
		t.Errorf("Name = %q", rec.Name)
	}
	if rec.MaxSpeed != Speed16GT {
		t.Errorf("MaxSpeed = %s, want 16GT/s", rec.MaxSpeed)
	}
	if rec.MaxWidth != 16 {
		t.Errorf("MaxWidth = %d, want 16", rec.MaxWidth)
	}
	if rec.NegotiatedSpeed != Speed2_5GT {
		t.Errorf("NegotiatedSpeed = %s, want 2.5GT/s", rec.NegotiatedSpeed)
	}
	if rec.NegotiatedWidth != 16 {
		t.Errorf("NegotiatedWidth = %d, want 16", rec.NegotiatedWidth)
	}
	if rec.SupportedCeiling != Speed16GT {
		t.Errorf("SupportedCeiling = %s, want 16GT/s", rec.SupportedCeiling)
	}
	if rec.TargetSpeed != Speed16GT {
		t.Errorf("TargetSpeed = %s, want 16GT/s", rec.TargetSpeed)
	}
	if rec.PortType != PortEndpoint {
		t.Errorf("PortType = %s, want Endpoint", rec.PortType)
	}
}

func TestDecodeWidthField(t *testing.T) {
	tests := []struct {
		linkCap uint32
		want    int
	}{
		{0x00000010, 1}, // only bit 4 set
		{0x00000012, 1}, // speed code 2 does not leak into width
		{0x00000020, 2},
		{0x00000040, 4},
		{0x00000080, 8},
		{0x00000100, 16},
		{0x00000200, 32},
		{0x00000C00, 0}, // bits above the field are ignored
	}

	for _, tt := range tests {
		regs := Registers{LinkCap: tt.linkCap}
		rec, err := Decode("dev", regs.Encode())
		if err != nil {
			t.Fatalf("Decode failed: %v", err)
		}
		if rec.MaxWidth != tt.want {
			t.Errorf("LinkCap 0x%08x: MaxWidth = %d, want %d", tt.linkCap, rec.MaxWidth, tt.want)
		}
	}
}

func TestDecodeShortBuffer(t *testing.T) {
	_, err := Decode("dev", make([]byte, MinCapLen-1))
	if !errors.Is(err, ErrMalformedBuffer) {
		t.Fatalf("expected ErrMalformedBuffer, got %v", err)
	}

	// Exactly MinCapLen bytes is enough
	if _, err := Decode("dev", make([]byte, MinCapLen)); err != nil {
		t.Fatalf("Decode of %d bytes failed: %v", MinCapLen, err)
	}
}

func TestDecodeUnknownCodes(t *testing.T) {
	regs := Registers{
		LinkCap:  0x0000010F, // reserved speed code 15
		LinkSta:  0x0100,     // speed code 0
		LinkCap2: 0x00000000, // no vector
		LinkCtl2: 0x000F,
	}

	rec, err := Decode("dev", regs.Encode())
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if rec.MaxSpeed != SpeedUnknown || rec.NegotiatedSpeed != SpeedUnknown {
		t.Errorf("expected unknown speeds, got %s / %s", rec.MaxSpeed, rec.NegotiatedSpeed)
	}
	if rec.SupportedCeiling != SpeedUnknown {
		t.Errorf("SupportedCeiling = %s, want unknown", rec.SupportedCeiling)
	}
	if rec.TargetSpeed != SpeedUnknown {
		t.Errorf("TargetSpeed = %s, want unknown", rec.TargetSpeed)
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	buf := gpuRegisters.Encode()
	if len(buf) != CapReadLen {
		t.Fatalf("Encode length = %d, want %d", len(buf), CapReadLen)
	}
	if buf[0] != CapIDExpress {
		t.Errorf("capability ID = 0x%02x, want 0x10", buf[0])
	}
	if got := ReadRegisters(buf); got != gpuRegisters {
		t.Errorf("ReadRegisters(Encode()) = %+v, want %+v", got, gpuRegisters)
	}
}
