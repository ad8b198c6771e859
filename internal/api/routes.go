package api

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/codyseavey/vault-tracker/internal/api/handlers"
	"github.com/codyseavey/vault-tracker/internal/config"
	"github.com/codyseavey/vault-tracker/internal/services"
)

func SetupRouter(cfg config.ServerConfig, lookup handlers.SetLookup, defaults services.Credentials, itemService *services.ItemService, priceWorker *services.PriceAlertWorker, imageStorageService *services.ImageStorageService, snapshotService *services.SnapshotService) *gin.Engine {
	router := gin.Default()
	router.Use(metricsMiddleware())

	serveFrontend := cfg.FrontendDistPath != "" && dirExists(cfg.FrontendDistPath)

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.CORSOrigins
	if len(corsConfig.AllowOrigins) == 0 {
		corsConfig.AllowOrigins = []string{"http://localhost:5173", "http://localhost:3000"}
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization", handlers.UserIDHeader}
	corsConfig.AllowCredentials = false
	router.Use(cors.New(corsConfig))

	// Initialize handlers
	lookupHandler := handlers.NewLookupHandler(lookup, defaults, cfg.LookupCacheSize, cfg.LookupCacheTTL)
	collectionHandler := handlers.NewCollectionHandler(itemService, imageStorageService, snapshotService)
	priceHandler := handlers.NewPriceHandler(priceWorker)
	settingsHandler := handlers.NewSettingsHandler(lookupHandler.Forget)

	// Serve uploaded item images
	if imageStorageService != nil {
		router.Static(handlers.ItemImagesRoute, imageStorageService.GetStorageDir())
	}

	// API routes, all scoped to the caller
	api := router.Group("/api", requireUser())
	{
		api.GET("/lookup/lego", lookupHandler.LookupLego)

		collections := api.Group("/collections")
		{
			collections.GET("", collectionHandler.ListCollections)
			collections.POST("", collectionHandler.CreateCollection)
			collections.PUT("/:id", collectionHandler.UpdateCollection)
			collections.DELETE("/:id", collectionHandler.DeleteCollection)
			collections.GET("/:id/items", collectionHandler.ListItems)
			collections.POST("/:id/items", collectionHandler.AddItem)
		}

		items := api.Group("/items")
		{
			items.PUT("/:id", collectionHandler.UpdateItem)
			items.DELETE("/:id", collectionHandler.DeleteItem)
			items.POST("/:id/refresh", collectionHandler.RefreshItem)
			items.POST("/:id/image", collectionHandler.UploadItemImage)
		}

		api.GET("/settings", settingsHandler.GetSettings)
		api.PUT("/settings", settingsHandler.UpdateSettings)

		prices := api.Group("/prices")
		{
			prices.GET("/status", priceHandler.GetPriceStatus)
			prices.POST("/check", priceHandler.CheckPrices)
		}

		api.GET("/stats", collectionHandler.GetStats)
		api.GET("/stats/history", collectionHandler.GetValueHistory)
	}

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Serve frontend static files
	if serveFrontend {
		frontendPath := cfg.FrontendDistPath
		indexPath := filepath.Join(frontendPath, "index.html")

		// Serve static assets
		router.Static("/assets", filepath.Join(frontendPath, "assets"))

		// Serve other static files (favicon, etc.)
		router.StaticFile("/vite.svg", filepath.Join(frontendPath, "vite.svg"))

		// Serve root index.html
		router.GET("/", func(c *gin.Context) {
			c.File(indexPath)
		})

		// SPA fallback - serve index.html for all non-API routes
		router.NoRoute(func(c *gin.Context) {
			path := c.Request.URL.Path

			// Don't serve index.html for API routes
			if strings.HasPrefix(path, "/api") {
				c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
				return
			}

			// Serve index.html for SPA routing
			c.File(indexPath)
		})
	}

	return router
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}
