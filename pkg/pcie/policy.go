package pcie

// Reason explains why a device was reported
type Reason string

const (
	ReasonMaxBelowCeiling        Reason = "max-below-ceiling"
	ReasonNegotiatedBelowCeiling Reason = "negotiated-below-ceiling"
	ReasonWidthDowngraded        Reason = "width-downgraded"
	ReasonForced                 Reason = "forced"
)

// Policy decides whether a Record is reported as under-performing.
//
// The default policy only compares speeds. Strict also compares the
// negotiated width against the maximum width, skipping downstream facing
// ports where a narrower link is decided by the device below.
type Policy struct {
	Force  bool
	Strict bool
}

// Verdict is the outcome of evaluating one Record
type Verdict struct {
	Degraded bool     `json:"degraded"`
	Reasons  []Reason `json:"reasons,omitempty"`
}

// Has reports whether reason is part of the verdict.
func (v Verdict) Has(reason Reason) bool {
	for _, r := range v.Reasons {
		if r == reason {
			return true
		}
	}
	return false
}

// Evaluate applies the policy to rec.
func (p Policy) Evaluate(rec Record) Verdict {
	var v Verdict

	// Without a ceiling there is nothing to compare against.
	if rec.SupportedCeiling != SpeedUnknown {
		if rec.MaxSpeed < rec.SupportedCeiling {
			v.Reasons = append(v.Reasons, ReasonMaxBelowCeiling)
		}
		if rec.NegotiatedSpeed < rec.SupportedCeiling {
			v.Reasons = append(v.Reasons, ReasonNegotiatedBelowCeiling)
		}
	}

	if p.Strict && !rec.PortType.DownstreamFacing() && rec.NegotiatedWidth < rec.MaxWidth {
		v.Reasons = append(v.Reasons, ReasonWidthDowngraded)
	}

	if p.Force {
		v.Reasons = append(v.Reasons, ReasonForced)
	}

	v.Degraded = len(v.Reasons) > 0
	return v
}

// Degraded is shorthand for the default speed-only policy.
func Degraded(rec Record) bool {
	return Policy{}.Evaluate(rec).Degraded
}
