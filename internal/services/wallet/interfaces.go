package wallet

import "context"

// Service exposes balance reads with cached fallback.
type Service interface {
	// GetBalance fetches the live balance and refreshes the snapshot cache.
	// When the live call fails on transport, the cached snapshot is returned
	// with Cached set so the UI always has a value to render.
	GetBalance(ctx context.Context, subjectID string) (*BalanceView, error)

	// Invalidate drops the cached snapshot, forcing the next read live.
	Invalidate(ctx context.Context, subjectID string) error
}
