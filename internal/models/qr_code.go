package models

import (
	"time"

	"gorm.io/gorm"
)

// QR code lifecycle statuses
const (
	QRStatusActive   = "active"
	QRStatusConsumed = "consumed"
	QRStatusExpired  = "expired"
)

// QRCode is an issued code record. The Payload column holds the exact raw
// string rendered into the QR image so a re-fetch returns the identical code.
type QRCode struct {
	gorm.Model
	Code        string `gorm:"uniqueIndex;not null"`
	SubjectID   string `gorm:"not null;index"`
	Role        string `gorm:"not null"`
	DisplayName string
	Amount      *float64
	Reference   string
	MerchantID  string
	Payload     string `gorm:"not null"`
	ExpiresAt   *time.Time
	MaxUses     int    `gorm:"not null;default:1"`
	UsageCount  int    `gorm:"not null;default:0"`
	Status      string `gorm:"not null;default:'active'"`
}
