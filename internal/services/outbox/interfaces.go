package outbox

import (
	"context"

	"dottpay/internal/models"
)

// Service is the offline-tolerant send-money pathway. Sends that cannot
// reach the settlement endpoint are parked durably and replayed in FIFO
// order; no transfer is ever lost or submitted without its idempotency token.
type Service interface {
	// Send attempts an immediate settlement when the link is up; on a
	// retryable transport failure or while offline the intent is enqueued.
	// Permanent rejections are returned to the caller, never queued.
	Send(ctx context.Context, intent TransferIntent) (*SendResult, error)

	// Enqueue persists the intent before returning so a crash cannot lose it.
	Enqueue(ctx context.Context, intent TransferIntent) (*models.PendingTransfer, error)

	// ProcessQueue replays queued entries one at a time in creation order.
	// A run already in progress suppresses a concurrent invocation.
	ProcessQueue(ctx context.Context) error

	GetQueue(ctx context.Context, subjectID string) ([]models.PendingTransfer, error)

	// Cancel removes a queued entry. In-flight entries cannot be cancelled:
	// the request may already have reached the server.
	Cancel(ctx context.Context, subjectID, transferID string) error

	// RetryFailed resets a dead-letter entry back to queued with a fresh
	// attempt budget. The idempotency token is preserved.
	RetryFailed(ctx context.Context, subjectID, transferID string) (*models.PendingTransfer, error)

	// Run drives ProcessQueue until the context is cancelled: immediately on
	// connectivity-restored events, and on a periodic sweep that picks up
	// entries parked by a transient failure while the link stayed up.
	Run(ctx context.Context)
}
