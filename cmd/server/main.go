// Package main is the entry point for the application.
// It initializes all dependencies, sets up the HTTP server,
// and starts the background queue processor.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"dottpay/internal/config"
	"dottpay/internal/connectivity"
	"dottpay/internal/feedback"
	"dottpay/internal/gateway"
	"dottpay/internal/repositories"
	"dottpay/internal/routes"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
)

func main() {
	// Load environment variables
	config.LoadEnv()

	// Initialize databases (PostgreSQL + Redis)
	if err := repositories.InitDB(); err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}

	sqlDB, err := repositories.DB.DB()
	if err != nil {
		log.Fatalf("Failed to get database instance: %v", err)
	}
	if err := sqlDB.Ping(); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}
	log.Println("✅ Successfully connected to database")

	defer func() {
		if err := sqlDB.Close(); err != nil {
			log.Printf("⚠️ Failed to close database connection: %v", err)
		}
		if repositories.CacheService != nil {
			if err := repositories.CacheService.Close(); err != nil {
				log.Printf("⚠️ Failed to close Redis connection: %v", err)
			}
		}
	}()

	// Settlement endpoint client
	gw := gateway.NewHTTPClient(
		config.GetEnv("GATEWAY_URL", "http://localhost:9090"),
		config.GetEnv("GATEWAY_TOKEN", ""),
		config.GetDurationEnv("GATEWAY_TIMEOUT", gateway.DefaultTimeout),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Connectivity probe drives the queue replay loop
	probe := connectivity.NewProbe(gw, config.GetDurationEnv("PROBE_INTERVAL", 0))
	go probe.Start(ctx)
	defer probe.Stop()

	notifier := feedback.NewDispatcher(feedback.LogNotifier{})

	// Create Fiber app
	app := fiber.New()

	app.Use(cors.New(cors.Config{
		AllowOrigins: config.GetEnv("CORS_ORIGINS", "http://localhost:5173"),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET,POST,HEAD,PUT,DELETE,PATCH",
	}))

	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	outboxService := routes.SetupRoutes(app, gw, probe, notifier)

	// Replay any transfers stranded by a previous run, then follow
	// connectivity transitions.
	go outboxService.Run(ctx)

	// Graceful shutdown
	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		<-sig
		log.Println("Shutting down...")
		cancel()
		if err := app.Shutdown(); err != nil {
			log.Printf("⚠️ Server shutdown error: %v", err)
		}
	}()

	port := config.GetEnv("PORT", "8080")
	log.Printf("Starting server on port %s", port)
	if err := app.Listen(":" + port); err != nil {
		log.Fatalf("Server stopped: %v", err)
	}
}
