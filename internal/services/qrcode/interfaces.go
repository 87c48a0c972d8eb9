package qrcode

import (
	"context"

	"dottpay/internal/models"
)

// Service issues the codes a wallet holder presents and enforces local
// single-use consumption of dynamic codes. The Payload column of every issued
// record round-trips through the codec, so a re-fetch renders the identical
// image.
type Service interface {
	// ReceiveQR returns the caller's static receive code, issuing it on first
	// use. The same code is returned on every subsequent call.
	ReceiveQR(ctx context.Context, subject Subject) (*models.QRCode, error)

	// PaymentQR returns the caller's payment code, issuing it on first use.
	PaymentQR(ctx context.Context, subject Subject) (*models.QRCode, error)

	// DynamicQR issues a fresh single-use receive code carrying a fixed amount,
	// valid for DynamicValidity from issuance.
	DynamicQR(ctx context.Context, subject Subject, amount float64) (*models.QRCode, error)

	List(ctx context.Context, subjectID string) ([]models.QRCode, error)

	// Consume marks a locally issued code as used under a row lock, so two
	// concurrent scans of the same single-use code cannot both proceed.
	Consume(ctx context.Context, code string) error
}
