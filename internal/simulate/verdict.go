package simulate

// Verdict is the three-valued outcome of a condition evaluation. Missing or
// malformed inputs resolve to VerdictUnknown rather than an error, so a
// partially specified scenario still produces a best-effort answer.
type Verdict int

const (
	VerdictUnknown Verdict = iota
	VerdictFalse
	VerdictTrue
)

// verdictOf converts a definite boolean outcome into a Verdict
func verdictOf(ok bool) Verdict {
	if ok {
		return VerdictTrue
	}
	return VerdictFalse
}

// IsTrue reports whether the verdict is definitely true
func (v Verdict) IsTrue() bool { return v == VerdictTrue }

// IsFalse reports whether the verdict is definitely false
func (v Verdict) IsFalse() bool { return v == VerdictFalse }

// IsUnknown reports whether the verdict could not be decided
func (v Verdict) IsUnknown() bool { return v == VerdictUnknown }

func (v Verdict) String() string {
	switch v {
	case VerdictTrue:
		return "true"
	case VerdictFalse:
		return "false"
	default:
		return "unknown"
	}
}
