package models

import "time"

// Pending transfer statuses
const (
	TransferStatusQueued    = "queued"
	TransferStatusInFlight  = "in_flight"
	TransferStatusCompleted = "completed"
	TransferStatusFailed    = "failed"
)

// MaxTransferAttempts bounds queue retries; once reached the entry becomes a
// dead-letter requiring explicit user action.
const MaxTransferAttempts = 3

// PendingTransfer is a send-money intent not yet confirmed by the settlement
// endpoint. The ID is generated client-side at enqueue time and doubles as
// the idempotency token sent with every retry attempt.
type PendingTransfer struct {
	ID              string  `gorm:"primarykey" json:"id"`
	SubjectID       string  `gorm:"not null;index" json:"subject_id"`
	RecipientHandle string  `gorm:"not null" json:"recipient_handle"`
	Amount          float64 `gorm:"not null" json:"amount"`
	Currency        string  `gorm:"not null;default:'USD'" json:"currency"`
	Description     string  `json:"description"`
	Status          string  `gorm:"not null;default:'queued';index" json:"status"`
	Attempts        int     `gorm:"not null;default:0" json:"attempts"`
	LastError       string  `json:"last_error,omitempty"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Cancellable reports whether the user may still cancel the transfer.
// Once in flight the request may already have reached the server.
func (t *PendingTransfer) Cancellable() bool {
	return t.Status == TransferStatusQueued
}
