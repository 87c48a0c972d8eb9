// Package routes defines the API routing configuration.
// It wires repositories, services and handlers together and groups routes
// with their middleware.
package routes

import (
	"time"

	"dottpay/internal/connectivity"
	"dottpay/internal/feedback"
	"dottpay/internal/gateway"
	"dottpay/internal/handlers"
	"dottpay/internal/middleware"
	"dottpay/internal/repositories"
	"dottpay/internal/services/outbox"
	"dottpay/internal/services/qrcode"
	"dottpay/internal/services/scan"
	"dottpay/internal/services/wallet"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

// SetupRoutes configures all application routes. It returns the outbox
// service so main can drive its queue replay loop.
func SetupRoutes(
	app *fiber.App,
	gw gateway.Client,
	observer connectivity.Observer,
	notifier feedback.Notifier,
) outbox.Service {
	// Initialize repositories
	transferRepo := repositories.NewPendingTransferRepository(repositories.DB)
	qrRepo := repositories.NewQRCodeRepository(repositories.DB)
	txRepo := repositories.NewTransactionRepository(repositories.DB)

	// Initialize services in dependency order
	snapshotCache := wallet.NewSnapshotCache(repositories.CacheService, wallet.DefaultProvider)
	walletService := wallet.NewService(gw, snapshotCache)
	qrService := qrcode.NewService(qrRepo)
	scanService := scan.NewService(gw, txRepo, qrService, notifier)
	outboxService := outbox.NewService(transferRepo, txRepo, gw, observer, notifier)

	// Initialize handlers
	scanHandler := handlers.NewScanHandler(scanService)
	qrHandler := handlers.NewQRHandler(qrService)
	transferHandler := handlers.NewTransferHandler(outboxService)
	walletHandler := handlers.NewWalletHandler(walletService)
	transactionHandler := handlers.NewTransactionHandler(txRepo)
	healthHandler := handlers.NewHealthHandler(gw)

	app.Get("/health", healthHandler.HealthCheck)

	api := app.Group("/api")
	protected := api.Use(middleware.SessionAuth)

	// A scan is a user-present interaction; a burst of submissions from one
	// session is either a stuck client or abuse.
	protected.Post("/scan", limiter.New(limiter.Config{
		Max:        10,
		Expiration: 30 * time.Second,
	}), scanHandler.ProcessScan)

	qr := protected.Group("/qr")
	qr.Get("/receive", qrHandler.GetReceiveQR)
	qr.Get("/pay", qrHandler.GetPaymentQR)
	qr.Post("/dynamic", qrHandler.CreateDynamicQR)
	qr.Get("/", qrHandler.GetUserQRCodes)

	transfers := protected.Group("/transfers")
	transfers.Post("/", transferHandler.SendMoney)
	transfers.Get("/queue", transferHandler.GetQueue)
	transfers.Post("/queue/:id/retry", transferHandler.RetryTransfer)
	transfers.Delete("/queue/:id", transferHandler.CancelTransfer)

	protected.Get("/wallet", walletHandler.GetWallet)
	protected.Get("/transactions", transactionHandler.GetTransactions)

	return outboxService
}
