package outbox

import "dottpay/internal/models"

// TransferIntent is a user-initiated send-money request.
type TransferIntent struct {
	SubjectID       string  `json:"subject_id"`
	RecipientHandle string  `json:"recipient_handle"`
	Amount          float64 `json:"amount"`
	Currency        string  `json:"currency"`
	Description     string  `json:"description"`
}

// SendResult reports how a send was handled: settled immediately, or parked
// in the durable queue for replay.
type SendResult struct {
	Queued      bool                    `json:"queued"`
	Transaction *models.Transaction     `json:"transaction,omitempty"`
	Pending     *models.PendingTransfer `json:"pending,omitempty"`
}
