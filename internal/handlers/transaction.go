package handlers

import (
	"dottpay/internal/repositories"
	"dottpay/internal/utils"

	"github.com/gofiber/fiber/v2"
)

type TransactionHandler struct {
	txRepo repositories.TransactionRepository
}

func NewTransactionHandler(txRepo repositories.TransactionRepository) *TransactionHandler {
	return &TransactionHandler{
		txRepo: txRepo,
	}
}

// GetTransactions returns the caller's settled operations, newest first.
func (h *TransactionHandler) GetTransactions(c *fiber.Ctx) error {
	claims, err := utils.GetSessionClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	limit := c.QueryInt("limit", 20)
	if limit < 1 || limit > 100 {
		limit = 20
	}
	offset := c.QueryInt("offset", 0)
	if offset < 0 {
		offset = 0
	}

	transactions, err := h.txRepo.ListBySubject(c.Context(), claims.SubjectID, limit, offset)
	if err != nil {
		return utils.InternalError(c, "Failed to load transactions")
	}

	return utils.Success(c, fiber.Map{
		"transactions": transactions,
		"limit":        limit,
		"offset":       offset,
	})
}
