package handlers

import (
	"errors"

	"dottpay/internal/qr"
	"dottpay/internal/services/scan"
	"dottpay/internal/utils"

	"github.com/gofiber/fiber/v2"
)

type ScanHandler struct {
	scanService scan.Service
}

func NewScanHandler(scanService scan.Service) *ScanHandler {
	return &ScanHandler{
		scanService: scanService,
	}
}

// ProcessScan runs a scanned code through decode, local validation and
// settlement submission, and maps the terminal state to an HTTP status.
func (h *ScanHandler) ProcessScan(c *fiber.Ctx) error {
	claims, err := utils.GetSessionClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	var input struct {
		MyRole      string   `json:"my_role"`
		ScannedRaw  string   `json:"scanned_raw"`
		Amount      *float64 `json:"amount,omitempty"`
		Currency    string   `json:"currency"`
		Description string   `json:"description,omitempty"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Invalid request format")
	}
	if input.Currency == "" {
		input.Currency = "USD"
	}

	result, err := h.scanService.Scan(c.Context(), scan.Input{
		SubjectID:   claims.SubjectID,
		MyRole:      qr.Role(input.MyRole),
		ScannedRaw:  input.ScannedRaw,
		Amount:      input.Amount,
		Currency:    input.Currency,
		Description: input.Description,
	})
	if err != nil {
		switch {
		case errors.Is(err, scan.ErrCoolingDown):
			return utils.TooManyRequests(c, err.Error())
		case errors.Is(err, qr.ErrUnknownRole):
			return utils.BadRequest(c, "unknown role")
		default:
			return utils.InternalError(c, "Failed to process scan")
		}
	}

	switch result.State {
	case scan.StateSettled:
		return utils.Success(c, result)
	case scan.StateNetworkError:
		return utils.ServiceUnavailable(c, result)
	default:
		return utils.UnprocessableEntity(c, result)
	}
}
