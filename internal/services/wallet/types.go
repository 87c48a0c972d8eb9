package wallet

import (
	"context"

	"dottpay/internal/models"
)

// DefaultProvider tags snapshots from the primary settlement backend.
const DefaultProvider = "dottpay"

// BalanceView is what the UI renders: the snapshot plus whether it came from
// cache because the live fetch failed. The caller distinguishes a stale view
// by Cached together with the snapshot's LastUpdated age.
type BalanceView struct {
	Snapshot models.WalletSnapshot `json:"snapshot"`
	Cached   bool                  `json:"cached"`
}

// KV is the generic cache surface the snapshot cache runs on. Satisfied by
// the Redis CacheService.
type KV interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}) error
	Delete(ctx context.Context, keys ...string) error
}
