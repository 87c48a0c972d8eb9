package models

import "github.com/golang-jwt/jwt/v5"

// SessionClaims are the claims minted by the identity/session provider. The
// engine never issues tokens; it only validates them and reads the subject.
type SessionClaims struct {
	jwt.RegisteredClaims
	SubjectID   string `json:"subject_id"`
	DisplayName string `json:"display_name"`
	MerchantID  string `json:"merchant_id,omitempty"`
	Role        string `json:"role"`
}
