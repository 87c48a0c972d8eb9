package models

import "time"

// WalletSnapshot is the cached read model of balance and recent activity.
// LastUpdated strictly increases: a snapshot is only replaced by a strictly
// newer one, never by a stale concurrent fetch.
type WalletSnapshot struct {
	SubjectID        string    `json:"subject_id"`
	Provider         string    `json:"provider"`
	AvailableBalance float64   `json:"available_balance"`
	PendingBalance   float64   `json:"pending_balance"`
	Currency         string    `json:"currency"`
	LastUpdated      time.Time `json:"last_updated"`
}

// NewerThan reports whether s is strictly newer than other.
func (s *WalletSnapshot) NewerThan(other *WalletSnapshot) bool {
	if other == nil {
		return true
	}
	return s.LastUpdated.After(other.LastUpdated)
}
