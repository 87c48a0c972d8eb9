package scan

import "dottpay/internal/qr"

// State tracks a scan attempt through its lifecycle. Settled, RejectedLocal
// and RejectedServer are terminal; NetworkError hands control back to idle
// with the failure surfaced to the caller.
type State string

const (
	StateIdle            State = "idle"
	StateDecoding        State = "decoding"
	StateValidatingLocal State = "validating_local"
	StateSubmitting      State = "submitting"
	StateSettled         State = "settled"
	StateRejectedLocal   State = "rejected_local"
	StateRejectedServer  State = "rejected_server"
	StateNetworkError    State = "network_error"
)

// Input is a single scan attempt: the caller's own role and the raw string
// read from the other party's code.
type Input struct {
	SubjectID   string   `json:"subject_id"`
	MyRole      qr.Role  `json:"my_role"`
	ScannedRaw  string   `json:"scanned_raw"`
	Amount      *float64 `json:"amount,omitempty"`
	Currency    string   `json:"currency"`
	Description string   `json:"description,omitempty"`
}

// Result is the terminal outcome of a scan attempt.
type Result struct {
	State               State                `json:"state"`
	Scanned             *qr.Classification   `json:"scanned,omitempty"`
	Validation          *qr.ValidationResult `json:"validation,omitempty"`
	SettlementReference string               `json:"settlement_reference,omitempty"`
	ErrorKind           string               `json:"error_kind,omitempty"`
	Message             string               `json:"message,omitempty"`
	ClientRequestID     string               `json:"client_request_id,omitempty"`
}
