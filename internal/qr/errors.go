package qr

import "errors"

// Codec and classification errors
var (
	ErrMalformed     = errors.New("malformed QR payload")
	ErrUnknownRole   = errors.New("unknown QR role")
	ErrInvalidAmount = errors.New("invalid amount")
)
