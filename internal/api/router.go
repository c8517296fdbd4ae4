package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"realty/catalog/internal/api/handlers"
	"realty/catalog/internal/api/middleware"
	"realty/catalog/internal/config"
	"realty/catalog/internal/logging"
	"realty/catalog/internal/search"
	"realty/catalog/internal/services"
	"realty/catalog/internal/storage"
)

// SetupRouter configures and returns the main Gin engine. Image routes are
// only mounted when both storageService and taskClient are available.
func SetupRouter(
	cfg *config.Config,
	listingService services.IListingService,
	storageService storage.IS3Storage,
	taskClient handlers.IAsynqClient,
	rateLimiter *middleware.RateLimiterMiddleware,
) *gin.Engine {
	r := gin.New()

	// Order matters: the request logger must wrap everything else.
	r.Use(logging.GinMiddleware(*logging.L()))
	r.Use(gin.Recovery())
	r.Use(middleware.CORSMiddleware(cfg.CorsAllowedOrigin))
	if rateLimiter != nil {
		r.Use(rateLimiter.Limit())
	}
	r.Use(middleware.TimeoutMiddleware(cfg.RequestTimeout))

	restListingHandler := handlers.NewRestListingHandler(listingService)

	api := r.Group("/api")
	{
		api.GET("/ping", func(c *gin.Context) {
			c.String(http.StatusOK, "pong")
		})

		properties := api.Group("/properties")
		properties.GET("", restListingHandler.SearchListings)
		properties.GET("/featured", restListingHandler.FeaturedListings)
		properties.GET("/featured/list", restListingHandler.FeaturedListings)
		properties.GET("/:id", restListingHandler.GetListingByID)

		// Mutations require a bearer token when JWT_SECRET is set.
		editor := properties.Group("")
		editor.Use(middleware.AuthMiddleware(cfg.JwtSecret))
		{
			editor.POST("", restListingHandler.CreateListing)
			editor.PUT("/:id", restListingHandler.ReplaceListing)
			editor.PATCH("/:id", restListingHandler.PatchListing)
			editor.DELETE("/:id", restListingHandler.DeleteListing)

			if storageService != nil && taskClient != nil {
				restImageHandler := handlers.NewRestImageHandler(listingService, storageService, taskClient)
				editor.POST("/:id/images", restImageHandler.RequestUpload)
				editor.POST("/:id/images/confirm", restImageHandler.ConfirmUpload)
			}
		}
	}

	return r
}

// ServiceStats is the result of the "stats" service method.
type ServiceStats struct {
	RunMode            string `json:"runMode"`
	Uptime             string `json:"uptime"`
	ActiveListings     int64  `json:"activeListings"`
	RateLimitedClients int    `json:"rateLimitedClients"`
}

// SetupServiceRouter configures and returns the service Gin engine.
func SetupServiceRouter(
	cfg *config.Config,
	listingService services.IListingService,
	rateLimiter *middleware.RateLimiterMiddleware,
	shutdownChan chan<- struct{},
) *gin.Engine {
	started := time.Now()
	logger := logging.L().With().Str(logging.FieldService, "service-api").Logger()

	r := gin.New()
	r.Use(logging.GinMiddleware(logger), gin.Recovery())

	r.POST("/api", func(c *gin.Context) {
		var req struct {
			Method    string          `json:"method"`
			Arguments json.RawMessage `json:"arguments"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid request format"})
			return
		}

		switch req.Method {
		case "shutdown":
			logger.Info().Msg("received shutdown command via service API")
			c.JSON(http.StatusOK, gin.H{"success": true, "result": "Shutdown initiated"})
			select {
			case shutdownChan <- struct{}{}:
			default:
				logger.Warn().Msg("shutdown channel already signaled")
			}

		case "stats":
			stats := ServiceStats{
				RunMode: cfg.RunMode,
				Uptime:  time.Since(started).Round(time.Second).String(),
			}
			if rateLimiter != nil {
				stats.RateLimitedClients = rateLimiter.Clients()
			}
			if listingService != nil {
				ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
				defer cancel()
				health := search.DefaultCriteria()
				health.Limit = 1
				page, err := listingService.SearchListings(ctx, health)
				if err != nil {
					_ = c.Error(err)
					c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to count listings"})
					return
				}
				stats.ActiveListings = page.Pagination.TotalItems
			}
			c.JSON(http.StatusOK, gin.H{"success": true, "result": stats})

		default:
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": fmt.Sprintf("Unknown service method: %s", req.Method)})
		}
	})
	return r
}
