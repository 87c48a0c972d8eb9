package wallet

import (
	"context"
	"fmt"

	"dottpay/internal/models"
)

// SnapshotCache is the wallet read-model cache. It is the only writer of its
// storage keys; every other component goes through this type.
type SnapshotCache struct {
	kv       KV
	provider string
}

// NewSnapshotCache creates a cache for one balance provider.
func NewSnapshotCache(kv KV, provider string) *SnapshotCache {
	if kv == nil {
		panic("kv store is required")
	}
	if provider == "" {
		provider = DefaultProvider
	}
	return &SnapshotCache{kv: kv, provider: provider}
}

func (c *SnapshotCache) key(subjectID string) string {
	return fmt.Sprintf("wallet:snapshot:%s:%s", c.provider, subjectID)
}

// Read returns the cached snapshot, or (nil, nil) on a miss.
func (c *SnapshotCache) Read(ctx context.Context, subjectID string) (*models.WalletSnapshot, error) {
	var snap models.WalletSnapshot
	found, err := c.kv.Get(ctx, c.key(subjectID), &snap)
	if err != nil || !found {
		return nil, err
	}
	return &snap, nil
}

// Write stores the snapshot only if it is strictly newer than the cached
// one. Last-writer-wins by timestamp, not by call order: a slow concurrent
// fetch that lands late must not clobber a fresher balance view. Returns
// whether the snapshot was stored.
func (c *SnapshotCache) Write(ctx context.Context, snap *models.WalletSnapshot) (bool, error) {
	if snap == nil {
		return false, fmt.Errorf("cannot cache nil snapshot")
	}

	current, err := c.Read(ctx, snap.SubjectID)
	if err != nil {
		return false, err
	}
	if current != nil && !snap.NewerThan(current) {
		return false, nil
	}

	if err := c.kv.Set(ctx, c.key(snap.SubjectID), snap); err != nil {
		return false, err
	}
	return true, nil
}

// Invalidate drops the cached snapshot for a subject.
func (c *SnapshotCache) Invalidate(ctx context.Context, subjectID string) error {
	return c.kv.Delete(ctx, c.key(subjectID))
}
