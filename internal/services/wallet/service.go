package wallet

import (
	"context"
	"fmt"
	"log"

	"dottpay/internal/gateway"
	"dottpay/internal/models"
)

type service struct {
	gw    gateway.Client
	cache *SnapshotCache
}

// NewService creates a new wallet service.
func NewService(gw gateway.Client, cache *SnapshotCache) Service {
	if gw == nil {
		panic("gateway client is required")
	}
	if cache == nil {
		panic("snapshot cache is required")
	}
	return &service{gw: gw, cache: cache}
}

func (s *service) GetBalance(ctx context.Context, subjectID string) (*BalanceView, error) {
	resp, err := s.gw.FetchWallet(ctx, subjectID)
	if err == nil {
		snap := &models.WalletSnapshot{
			SubjectID:        subjectID,
			Provider:         s.cache.provider,
			AvailableBalance: resp.AvailableBalance,
			PendingBalance:   resp.PendingBalance,
			Currency:         resp.Currency,
			LastUpdated:      resp.AsOf,
		}
		if _, werr := s.cache.Write(ctx, snap); werr != nil {
			log.Printf("failed to cache wallet snapshot for %s: %v", subjectID, werr)
		}
		return &BalanceView{Snapshot: *snap}, nil
	}

	if !gateway.IsTransport(err) {
		return nil, fmt.Errorf("failed to fetch wallet: %w", err)
	}

	// Live fetch unreachable; fall back to the last-known snapshot.
	snap, cerr := s.cache.Read(ctx, subjectID)
	if cerr != nil {
		log.Printf("wallet cache read failed for %s: %v", subjectID, cerr)
	}
	if snap == nil {
		return nil, fmt.Errorf("%w: %v", ErrBalanceUnavailable, err)
	}
	return &BalanceView{Snapshot: *snap, Cached: true}, nil
}

func (s *service) Invalidate(ctx context.Context, subjectID string) error {
	return s.cache.Invalidate(ctx, subjectID)
}
