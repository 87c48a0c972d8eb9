package qr

// ErrorKind identifies why a scan pairing was rejected.
type ErrorKind string

const (
	ErrorNone            ErrorKind = "none"
	ErrorBothPaying      ErrorKind = "both_paying"
	ErrorBothReceiving   ErrorKind = "both_receiving"
	ErrorUnsupportedPair ErrorKind = "unsupported_pair"
)

// ValidationResult is the outcome of pairing two roles. Computed fresh on
// every scan event, never persisted.
type ValidationResult struct {
	Valid       bool      `json:"valid"`
	ErrorKind   ErrorKind `json:"error_kind"`
	Remediation string    `json:"remediation,omitempty"`
}

// ValidatePairing decides whether a (my role, their role) pairing is safe to
// proceed to settlement. Pure, total and deterministic. Same-role checks take
// precedence over the unsupported-pair check so the most specific error kind
// is reported when several could apply.
func ValidatePairing(mine, theirs Role) ValidationResult {
	if mine.IsPaying() && theirs.IsPaying() {
		return ValidationResult{
			ErrorKind:   ErrorBothPaying,
			Remediation: "Both codes are payment codes. One of you must switch to your receive code.",
		}
	}

	if mine.IsReceiving() && theirs.IsReceiving() {
		return ValidationResult{
			ErrorKind:   ErrorBothReceiving,
			Remediation: "Both codes are receive codes. The payer must switch to their payment code.",
		}
	}

	if !supportedPair(mine, theirs) {
		return ValidationResult{
			ErrorKind:   ErrorUnsupportedPair,
			Remediation: "This code combination cannot be settled. Use a payment code with a receive code.",
		}
	}

	return ValidationResult{Valid: true, ErrorKind: ErrorNone}
}

// supportedPair lists the pairings that can settle: PAY against a receive
// code in either direction, and PAY against a REQUEST or SPLIT code where the
// PAY side is the payer.
func supportedPair(mine, theirs Role) bool {
	switch {
	case mine.IsPaying() && theirs.IsReceiving():
		return true
	case mine.IsReceiving() && theirs.IsPaying():
		return true
	case mine.IsPaying() && (theirs == RoleRequest || theirs == RoleSplit):
		return true
	default:
		return false
	}
}
