package qr

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"
)

// Payload is the decoded contents of a scanned or generated code.
type Payload struct {
	Role        Role       `json:"role"`
	SubjectID   string     `json:"subject_id"`
	DisplayName string     `json:"display_name,omitempty"`
	Amount      *float64   `json:"amount,omitempty"`
	Reference   string     `json:"reference,omitempty"`
	IssuedAt    time.Time  `json:"issued_at"`
	MerchantID  string     `json:"merchant_id,omitempty"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
}

// amountCarriers are the roles that may carry a fixed amount.
var amountCarriers = map[Role]bool{
	RoleReceiveDynamic: true,
	RoleRequest:        true,
	RoleSplit:          true,
}

// Decode parses the raw string carried inside a QR image.
// It fails with ErrMalformed on invalid structure and ErrUnknownRole when the
// declared role is outside the closed enum. No network or storage access.
func Decode(raw string) (*Payload, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || !strings.HasPrefix(raw, "{") {
		return nil, ErrMalformed
	}

	var p Payload
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	if !p.Role.Valid() {
		return nil, ErrUnknownRole
	}
	if p.SubjectID == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrMalformed)
	}
	if err := validateAmount(&p); err != nil {
		return nil, err
	}

	return &p, nil
}

// Encode serializes a payload into the raw string embedded in a QR image.
// It is the exact inverse of Decode for any valid payload.
func Encode(p *Payload) (string, error) {
	if p == nil {
		return "", ErrMalformed
	}
	if !p.Role.Valid() {
		return "", ErrUnknownRole
	}
	if p.SubjectID == "" {
		return "", fmt.Errorf("%w: missing subject", ErrMalformed)
	}
	if err := validateAmount(p); err != nil {
		return "", err
	}

	data, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return string(data), nil
}

func validateAmount(p *Payload) error {
	if p.Amount == nil {
		return nil
	}
	if !amountCarriers[p.Role] {
		return fmt.Errorf("%w: role %s cannot carry an amount", ErrInvalidAmount, p.Role)
	}
	if *p.Amount <= 0 {
		return fmt.Errorf("%w: must be positive", ErrInvalidAmount)
	}
	// Currency amounts carry at most 2 decimal places.
	cents := *p.Amount * 100
	if math.Abs(cents-math.Round(cents)) > 1e-6 {
		return fmt.Errorf("%w: more than 2 decimal places", ErrInvalidAmount)
	}
	return nil
}
