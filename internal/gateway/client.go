// Package gateway is the client for the authoritative settlement endpoint.
// The engine's local checks are advisory; only this endpoint can atomically
// debit and credit, and it re-validates every submission independently.
package gateway

import (
	"context"
	"time"

	"dottpay/internal/qr"
)

// ScanRequest is the wire contract for a scan submission.
type ScanRequest struct {
	MyRole            qr.Role  `json:"my_role"`
	ScannedPayloadRaw string   `json:"scanned_payload_raw"`
	Amount            *float64 `json:"amount,omitempty"`
	Currency          string   `json:"currency"`
	Description       string   `json:"description,omitempty"`
	ClientRequestID   string   `json:"client_request_id"`
}

// ScanResponse carries the settlement outcome for a scan.
type ScanResponse struct {
	Success             bool   `json:"success"`
	SettlementReference string `json:"settlement_reference,omitempty"`
	ErrorKind           string `json:"error_kind,omitempty"`
	Message             string `json:"message,omitempty"`
}

// TransferRequest is the wire contract for a direct send-money submission.
// ClientRequestID is the idempotency token: it is generated once at enqueue
// time and resent unchanged on every retry so the server can deduplicate an
// attempt whose response was lost.
type TransferRequest struct {
	RecipientHandle string  `json:"recipient_handle"`
	Amount          float64 `json:"amount"`
	Currency        string  `json:"currency"`
	Description     string  `json:"description,omitempty"`
	ClientRequestID string  `json:"client_request_id"`
}

// TransferResponse carries the settlement outcome for a transfer.
type TransferResponse struct {
	Success             bool   `json:"success"`
	SettlementReference string `json:"settlement_reference,omitempty"`
	ErrorKind           string `json:"error_kind,omitempty"`
	Message             string `json:"message,omitempty"`
}

// WalletResponse is the authoritative balance view.
type WalletResponse struct {
	AvailableBalance float64   `json:"available_balance"`
	PendingBalance   float64   `json:"pending_balance"`
	Currency         string    `json:"currency"`
	AsOf             time.Time `json:"as_of"`
}

// Client talks to the settlement endpoint. Implementations must return
// *RejectionError for business-rule failures and *TransportError for
// timeouts, connection failures and 5xx responses.
type Client interface {
	SubmitScan(ctx context.Context, req ScanRequest) (*ScanResponse, error)
	SubmitTransfer(ctx context.Context, req TransferRequest) (*TransferResponse, error)
	FetchWallet(ctx context.Context, subjectID string) (*WalletResponse, error)
	Health(ctx context.Context) error
}
