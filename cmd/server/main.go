package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/codyseavey/vault-tracker/internal/api"
	"github.com/codyseavey/vault-tracker/internal/config"
	"github.com/codyseavey/vault-tracker/internal/database"
	"github.com/codyseavey/vault-tracker/internal/metrics"
	"github.com/codyseavey/vault-tracker/internal/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// Initialize database
	if err := database.Initialize(cfg.Database.Path); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	db := database.GetDB()
	metrics.UpdateCollectionMetrics(db)

	// Process-wide catalog keys; each user may override them from settings
	defaults := catalogDefaults(cfg.Catalog)
	logCatalogStatus(defaults)

	// Initialize catalog clients
	rebrickable := services.NewRebrickableService(cfg.Catalog.UpstreamTimeout)
	brickset := services.NewBricksetService(cfg.Catalog.UpstreamTimeout)
	bricklink := services.NewBrickLinkService(cfg.Catalog.UpstreamTimeout, cfg.Catalog.BrickLinkDailyLimit)
	legoService := services.NewLegoService(rebrickable, brickset, bricklink)

	itemService := services.NewItemService(db, legoService, defaults)
	imageStorageService := services.NewImageStorageService(cfg.Server.ItemImagesDir)

	// Initialize price alert worker
	priceWorker := services.NewPriceAlertWorker(db, legoService, defaults, cfg.Workers.PriceCheckInterval)

	// Initialize snapshot service for daily value tracking
	snapshotService := services.NewSnapshotService(db, cfg.Workers.SnapshotHour)

	// Create a cancellable context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Start price worker in background with panic recovery
	go runWithRestart(ctx, "price alert worker", priceWorker.Start)

	// Start snapshot service in background
	go runWithRestart(ctx, "snapshot service", snapshotService.Start)

	// Setup router
	router := api.SetupRouter(cfg.Server, legoService, defaults, itemService, priceWorker, imageStorageService, snapshotService)

	// Create HTTP server for graceful shutdown
	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Printf("Starting server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Cancel the context to stop the background workers
	cancel()

	// Give outstanding requests a deadline to complete
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}

// runWithRestart keeps a background worker alive, restarting it 30s after a panic
func runWithRestart(ctx context.Context, name string, start func(context.Context)) {
	for {
		func() {
			defer func() {
				if r := recover(); r != nil {
					log.Printf("PANIC in %s: %v - restarting in 30 seconds", name, r)
				}
			}()
			start(ctx)
		}()

		select {
		case <-ctx.Done():
			return // Graceful shutdown
		case <-time.After(30 * time.Second):
			log.Printf("Restarting %s after panic recovery...", name)
		}
	}
}

func catalogDefaults(c config.CatalogConfig) services.Credentials {
	return services.Credentials{
		BricksetAPIKey: c.BricksetAPIKey,
		BrickLink: services.BrickLinkKeys{
			ConsumerKey:    c.BricklinkConsumerKey,
			ConsumerSecret: c.BricklinkConsumerSecret,
			TokenValue:     c.BricklinkTokenValue,
			TokenSecret:    c.BricklinkTokenSecret,
		},
		RebrickableAPIKey: c.RebrickableAPIKey,
		Currency:          c.DefaultCurrency,
	}
}

func logCatalogStatus(c services.Credentials) {
	status := func(ok bool) string {
		if ok {
			return "configured"
		}
		return "not configured (per-user keys only)"
	}
	log.Printf("Rebrickable: %s", status(c.RebrickableAPIKey != ""))
	log.Printf("Brickset: %s", status(c.BricksetAPIKey != ""))
	log.Printf("BrickLink: %s", status(c.BrickLink.Complete()))
}
