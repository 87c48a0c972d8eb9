package models

import "time"

// Transaction kinds
const (
	TransactionKindScanPayment = "scan_payment"
	TransactionKindTransfer    = "transfer"
)

// Transaction is the local archive of a settled operation. The settlement
// ledger itself lives server-side; this record exists so history reads and
// queue bookkeeping survive restarts.
type Transaction struct {
	ID                  uint   `gorm:"primarykey"`
	ClientRequestID     string `gorm:"uniqueIndex;not null"`
	Kind                string `gorm:"not null"`
	SubjectID           string `gorm:"not null;index"`
	CounterpartyID      string
	RecipientHandle     string
	Amount              float64 `gorm:"not null"`
	Currency            string  `gorm:"default:'USD'"`
	Description         string
	SettlementReference string
	Status              string `gorm:"not null;default:'completed'"`
	Metadata            JSON   `gorm:"type:jsonb"`
	CreatedAt           time.Time
	UpdatedAt           time.Time
}
