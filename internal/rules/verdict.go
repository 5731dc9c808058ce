package rules

// VerdictKind identifies the outcome of classifying one command.
type VerdictKind int

const (
	// VerdictAllowedSilently means no rule matched; the command passes with
	// no output. It is the zero value, so an uninitialized Verdict defaults
	// to the quiet outcome.
	VerdictAllowedSilently VerdictKind = iota

	// VerdictAllowedWithSuggestions means the command is allowed but one or
	// more suggestion rules matched.
	VerdictAllowedWithSuggestions

	// VerdictBlocked means a blocking rule matched and the command must not
	// be executed.
	VerdictBlocked
)

// String returns the string representation of a VerdictKind.
func (k VerdictKind) String() string {
	switch k {
	case VerdictAllowedSilently:
		return "allowed"
	case VerdictAllowedWithSuggestions:
		return "allowed_with_suggestions"
	case VerdictBlocked:
		return "blocked"
	default:
		return "unknown"
	}
}

// Verdict is the result of classifying one command.
//
// Reason is set only for VerdictBlocked and already carries the
// "Security violation: " prefix. Suggestions is set only for
// VerdictAllowedWithSuggestions, in rule-table order.
type Verdict struct {
	Kind        VerdictKind
	Reason      string
	Suggestions []string
}
