package pcie

import "testing"

func TestPolicyEvaluate(t *testing.T) {
	tests := []struct {
		name     string
		policy   Policy
		rec      Record
		degraded bool
		reasons  []Reason
	}{
		{
			name:     "hardware max below ceiling",
			rec:      Record{MaxSpeed: Speed5GT, NegotiatedSpeed: Speed5GT, SupportedCeiling: Speed16GT},
			degraded: true,
			reasons:  []Reason{ReasonMaxBelowCeiling, ReasonNegotiatedBelowCeiling},
		},
		{
			name:     "link trained down",
			rec:      Record{MaxSpeed: Speed16GT, NegotiatedSpeed: Speed8GT, SupportedCeiling: Speed16GT},
			degraded: true,
			reasons:  []Reason{ReasonNegotiatedBelowCeiling},
		},
		{
			name: "full speed",
			rec:  Record{MaxSpeed: Speed16GT, NegotiatedSpeed: Speed16GT, SupportedCeiling: Speed16GT},
		},
		{
			name: "unknown ceiling",
			rec:  Record{MaxSpeed: Speed2_5GT, NegotiatedSpeed: SpeedUnknown, SupportedCeiling: SpeedUnknown},
		},
		{
			name:     "unknown negotiated speed against known ceiling",
			rec:      Record{MaxSpeed: Speed8GT, NegotiatedSpeed: SpeedUnknown, SupportedCeiling: Speed8GT},
			degraded: true,
			reasons:  []Reason{ReasonNegotiatedBelowCeiling},
		},
		{
			name:     "forced",
			policy:   Policy{Force: true},
			rec:      Record{MaxSpeed: Speed16GT, NegotiatedSpeed: Speed16GT, SupportedCeiling: Speed16GT},
			degraded: true,
			reasons:  []Reason{ReasonForced},
		},
		{
			name:     "forced with unknown ceiling",
			policy:   Policy{Force: true},
			rec:      Record{SupportedCeiling: SpeedUnknown},
			degraded: true,
			reasons:  []Reason{ReasonForced},
		},
		{
			name: "narrow link ignored by default",
			rec: Record{MaxSpeed: Speed16GT, NegotiatedSpeed: Speed16GT, SupportedCeiling: Speed16GT,
				MaxWidth: 16, NegotiatedWidth: 8},
		},
		{
			name:   "narrow link flagged when strict",
			policy: Policy{Strict: true},
			rec: Record{MaxSpeed: Speed16GT, NegotiatedSpeed: Speed16GT, SupportedCeiling: Speed16GT,
				MaxWidth: 16, NegotiatedWidth: 8},
			degraded: true,
			reasons:  []Reason{ReasonWidthDowngraded},
		},
		{
			name:   "narrow root port exempt when strict",
			policy: Policy{Strict: true},
			rec: Record{MaxSpeed: Speed16GT, NegotiatedSpeed: Speed16GT, SupportedCeiling: Speed16GT,
				MaxWidth: 16, NegotiatedWidth: 4, PortType: PortRootPort},
		},
		{
			name:   "narrow bridge exempt when strict",
			policy: Policy{Strict: true},
			rec: Record{MaxSpeed: Speed8GT, NegotiatedSpeed: Speed8GT, SupportedCeiling: Speed8GT,
				MaxWidth: 4, NegotiatedWidth: 1, PortType: PortPCIeToPCI},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := tt.policy.Evaluate(tt.rec)
			if v.Degraded != tt.degraded {
				t.Errorf("Degraded = %v, want %v", v.Degraded, tt.degraded)
			}
			if len(v.Reasons) != len(tt.reasons) {
				t.Fatalf("Reasons = %v, want %v", v.Reasons, tt.reasons)
			}
			for _, r := range tt.reasons {
				if !v.Has(r) {
					t.Errorf("missing reason %s in %v", r, v.Reasons)
				}
			}
		})
	}
}

func TestDegraded(t *testing.T) {
	// Unknown ceiling never degrades, whatever the other fields say
	for _, s := range []Speed{SpeedUnknown, Speed2_5GT, Speed64GT} {
		rec := Record{MaxSpeed: s, NegotiatedSpeed: s, SupportedCeiling: SpeedUnknown}
		if Degraded(rec) {
			t.Errorf("Degraded with unknown ceiling and speed %s", s)
		}
	}

	if !Degraded(Record{MaxSpeed: Speed5GT, NegotiatedSpeed: Speed5GT, SupportedCeiling: Speed16GT}) {
		t.Error("expected 5GT/s device with 16GT/s ceiling to be degraded")
	}
}

func TestPortTypeString(t *testing.T) {
	if got := PortRootPort.String(); got != "Root Port" {
		t.Errorf("String() = %q, want Root Port", got)
	}
	if got := PortType(0x3).String(); got != "Unknown (0x3)" {
		t.Errorf("String() = %q, want Unknown (0x3)", got)
	}
	if PortEndpoint.DownstreamFacing() || PortUpstream.DownstreamFacing() {
		t.Error("endpoint and upstream ports are not downstream facing")
	}
	if !PortDownstream.DownstreamFacing() || !PortPCIToPCIe.DownstreamFacing() {
		t.Error("downstream port and PCI to PCIe bridge are downstream facing")
	}
}
