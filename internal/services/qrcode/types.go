package qrcode

import "time"

// DynamicValidity bounds how long an amount-bearing receive code stays
// scannable. After this window the code is rejected locally and on the server.
const DynamicValidity = 15 * time.Minute

// Subject identifies the wallet holder a code is issued for.
type Subject struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name,omitempty"`
	MerchantID  string `json:"merchant_id,omitempty"`
}
