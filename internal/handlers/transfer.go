package handlers

import (
	"errors"

	"dottpay/internal/gateway"
	"dottpay/internal/services/outbox"
	"dottpay/internal/utils"

	"github.com/gofiber/fiber/v2"
)

type TransferHandler struct {
	outboxService outbox.Service
}

func NewTransferHandler(outboxService outbox.Service) *TransferHandler {
	return &TransferHandler{
		outboxService: outboxService,
	}
}

// SendMoney settles immediately when the link is up. A transport failure or
// offline state parks the transfer in the durable queue and answers 202.
func (h *TransferHandler) SendMoney(c *fiber.Ctx) error {
	claims, err := utils.GetSessionClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	var input struct {
		RecipientHandle string  `json:"recipient_handle"`
		Amount          float64 `json:"amount"`
		Currency        string  `json:"currency"`
		Description     string  `json:"description,omitempty"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Invalid request format")
	}
	if input.Currency == "" {
		input.Currency = "USD"
	}

	result, err := h.outboxService.Send(c.Context(), outbox.TransferIntent{
		SubjectID:       claims.SubjectID,
		RecipientHandle: input.RecipientHandle,
		Amount:          input.Amount,
		Currency:        input.Currency,
		Description:     input.Description,
	})
	if err != nil {
		if errors.Is(err, outbox.ErrInvalidIntent) {
			return utils.BadRequest(c, err.Error())
		}
		if rej := gateway.AsRejection(err); rej != nil {
			return utils.UnprocessableEntity(c, fiber.Map{
				"error_kind": rej.Kind,
				"error":      rej.Message,
			})
		}
		return utils.InternalError(c, "Failed to send money")
	}

	if result.Queued {
		return utils.Accepted(c, result)
	}
	return utils.Success(c, result)
}

func (h *TransferHandler) GetQueue(c *fiber.Ctx) error {
	claims, err := utils.GetSessionClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	entries, err := h.outboxService.GetQueue(c.Context(), claims.SubjectID)
	if err != nil {
		return utils.InternalError(c, "Failed to load queue")
	}
	return utils.Success(c, fiber.Map{"queue": entries})
}

func (h *TransferHandler) RetryTransfer(c *fiber.Ctx) error {
	claims, err := utils.GetSessionClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	pending, err := h.outboxService.RetryFailed(c.Context(), claims.SubjectID, c.Params("id"))
	if err != nil {
		switch {
		case errors.Is(err, outbox.ErrNotFound):
			return utils.NotFound(c, "transfer not found")
		case errors.Is(err, outbox.ErrNotRetryable):
			return utils.Conflict(c, err.Error())
		default:
			return utils.InternalError(c, "Failed to retry transfer")
		}
	}
	return utils.Accepted(c, pending)
}

func (h *TransferHandler) CancelTransfer(c *fiber.Ctx) error {
	claims, err := utils.GetSessionClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	if err := h.outboxService.Cancel(c.Context(), claims.SubjectID, c.Params("id")); err != nil {
		switch {
		case errors.Is(err, outbox.ErrNotFound):
			return utils.NotFound(c, "transfer not found")
		case errors.Is(err, outbox.ErrNotCancellable):
			return utils.Conflict(c, err.Error())
		default:
			return utils.InternalError(c, "Failed to cancel transfer")
		}
	}
	return utils.Success(c, fiber.Map{"cancelled": true})
}
