package handlers

import (
	"errors"

	"dottpay/internal/models"
	"dottpay/internal/qr"
	"dottpay/internal/services/qrcode"
	"dottpay/internal/utils"

	"github.com/gofiber/fiber/v2"
)

type QRHandler struct {
	qrService qrcode.Service
}

func NewQRHandler(qrService qrcode.Service) *QRHandler {
	return &QRHandler{
		qrService: qrService,
	}
}

func subjectFromClaims(claims *models.SessionClaims) qrcode.Subject {
	return qrcode.Subject{
		ID:          claims.SubjectID,
		DisplayName: claims.DisplayName,
		MerchantID:  claims.MerchantID,
	}
}

// codeView shapes an issued code for the client: the raw payload to render
// plus the role's display color.
func codeView(record *models.QRCode) fiber.Map {
	view := fiber.Map{
		"code":    record.Code,
		"role":    record.Role,
		"payload": record.Payload,
		"status":  record.Status,
	}
	if cls, err := qr.Classify(qr.Role(record.Role)); err == nil {
		view["color"] = cls.Color
	}
	if record.Amount != nil {
		view["amount"] = *record.Amount
	}
	if record.ExpiresAt != nil {
		view["expires_at"] = record.ExpiresAt
	}
	return view
}

func (h *QRHandler) GetReceiveQR(c *fiber.Ctx) error {
	claims, err := utils.GetSessionClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	record, err := h.qrService.ReceiveQR(c.Context(), subjectFromClaims(claims))
	if err != nil {
		return utils.InternalError(c, "Failed to get receive code")
	}
	return utils.Success(c, codeView(record))
}

func (h *QRHandler) GetPaymentQR(c *fiber.Ctx) error {
	claims, err := utils.GetSessionClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	record, err := h.qrService.PaymentQR(c.Context(), subjectFromClaims(claims))
	if err != nil {
		return utils.InternalError(c, "Failed to get payment code")
	}
	return utils.Success(c, codeView(record))
}

func (h *QRHandler) CreateDynamicQR(c *fiber.Ctx) error {
	claims, err := utils.GetSessionClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	var input struct {
		Amount float64 `json:"amount"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Invalid request format")
	}

	record, err := h.qrService.DynamicQR(c.Context(), subjectFromClaims(claims), input.Amount)
	if err != nil {
		if errors.Is(err, qr.ErrInvalidAmount) {
			return utils.BadRequest(c, err.Error())
		}
		return utils.InternalError(c, "Failed to create dynamic code")
	}
	return utils.Success(c, codeView(record))
}

func (h *QRHandler) GetUserQRCodes(c *fiber.Ctx) error {
	claims, err := utils.GetSessionClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	records, err := h.qrService.List(c.Context(), claims.SubjectID)
	if err != nil {
		return utils.InternalError(c, "Failed to list codes")
	}

	views := make([]fiber.Map, 0, len(records))
	for i := range records {
		views = append(views, codeView(&records[i]))
	}
	return utils.Success(c, fiber.Map{"qr_codes": views})
}
