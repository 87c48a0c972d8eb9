package handlers

import (
	"errors"

	"dottpay/internal/services/wallet"
	"dottpay/internal/utils"

	"github.com/gofiber/fiber/v2"
)

type WalletHandler struct {
	walletService wallet.Service
}

func NewWalletHandler(walletService wallet.Service) *WalletHandler {
	return &WalletHandler{
		walletService: walletService,
	}
}

// GetWallet returns the live balance, or the last cached snapshot flagged
// cached=true when the settlement endpoint is unreachable.
func (h *WalletHandler) GetWallet(c *fiber.Ctx) error {
	claims, err := utils.GetSessionClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	view, err := h.walletService.GetBalance(c.Context(), claims.SubjectID)
	if err != nil {
		if errors.Is(err, wallet.ErrBalanceUnavailable) {
			return utils.ServiceUnavailable(c, fiber.Map{
				"error": "balance unavailable and no cached snapshot exists",
			})
		}
		return utils.InternalError(c, "Failed to get wallet")
	}

	return utils.Success(c, view)
}
