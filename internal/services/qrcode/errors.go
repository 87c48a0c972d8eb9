package qrcode

import "errors"

// Service errors
var (
	ErrCodeNotFound = errors.New("QR code not found")
	ErrCodeConsumed = errors.New("QR code already used")
	ErrCodeExpired  = errors.New("QR code expired")
)
