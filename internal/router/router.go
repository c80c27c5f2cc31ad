// internal/router/router.go
package router

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/javajoker/medconnect-backend/internal/config"
	"github.com/javajoker/medconnect-backend/internal/events"
	"github.com/javajoker/medconnect-backend/internal/handlers"
	"github.com/javajoker/medconnect-backend/internal/middleware"
	"github.com/javajoker/medconnect-backend/internal/repository"
	"github.com/javajoker/medconnect-backend/internal/services"
	"github.com/javajoker/medconnect-backend/internal/utils"
)

// Dependencies are the collaborators the HTTP layer is built on.
type Dependencies struct {
	Store     *repository.Store
	Publisher events.Publisher
	Storage   *services.StorageService
}

// Initialize wires services and handlers and returns the engine. Background
// housekeeping (rate limiter cleanup) stops when ctx is done.
func Initialize(ctx context.Context, cfg *config.Config, deps Dependencies) *gin.Engine {
	policy := services.NewAccessPolicy()
	catalogService := services.NewCatalogService(deps.Store, policy)
	orderService := services.NewOrderService(deps.Store, catalogService, policy, deps.Publisher, cfg.Marketplace.RequireVerifiedListings)
	authService := services.NewAuthService(deps.Store, cfg)
	userService := services.NewUserService(deps.Store)
	adminService := services.NewAdminService(deps.Store, policy)

	authHandler := handlers.NewAuthHandler(authService)
	userHandler := handlers.NewUserHandler(userService)
	medicineHandler := handlers.NewMedicineHandler(catalogService)
	orderHandler := handlers.NewOrderHandler(orderService)
	adminHandler := handlers.NewAdminHandler(adminService)
	uploadHandler := handlers.NewUploadHandler(deps.Storage)

	utils.SetJWTSecret(cfg.JWT.SecretKey)

	generalLimiter := middleware.PerMinute(cfg.Server.RateLimit)
	authLimiter := middleware.PerMinute(20)
	uploadLimiter := middleware.PerMinute(10)
	for _, rl := range []*middleware.RateLimiter{generalLimiter, authLimiter, uploadLimiter} {
		go rl.Cleanup(ctx)
	}

	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.CORS(cfg.Frontend.AllowedOrigins))
	r.Use(middleware.I18nMiddleware())
	r.Use(generalLimiter.Middleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"version": "1.0.0",
		})
	})

	v1 := r.Group("/v1")
	{
		auth := v1.Group("/auth")
		{
			auth.POST("/register", authLimiter.Middleware(), authHandler.Register)
			auth.POST("/login", authLimiter.Middleware(), authHandler.Login)
			auth.POST("/refresh", authLimiter.Middleware(), authHandler.RefreshToken)
			auth.GET("/me", middleware.AuthRequired(), userHandler.GetProfile)
			auth.PUT("/profile", middleware.AuthRequired(), userHandler.UpdateProfile)
		}

		medicines := v1.Group("/medicines")
		{
			medicines.GET("", middleware.OptionalAuth(), medicineHandler.GetMedicines)

			protected := medicines.Group("")
			protected.Use(middleware.AuthRequired())
			{
				protected.GET("/seller/mine", medicineHandler.GetMyMedicines)
				protected.GET("/verification/pending", medicineHandler.GetPendingVerification)
				protected.POST("", medicineHandler.CreateMedicine)
				protected.PUT("/:id", medicineHandler.UpdateMedicine)
				protected.DELETE("/:id", medicineHandler.DeleteMedicine)
				protected.PUT("/:id/verify", medicineHandler.VerifyMedicine)
			}

			medicines.GET("/:id", middleware.OptionalAuth(), medicineHandler.GetMedicine)
		}

		orders := v1.Group("/orders")
		orders.Use(middleware.AuthRequired())
		{
			orders.POST("", orderHandler.PlaceOrder)
			orders.GET("/mine", orderHandler.GetMyOrders)
			orders.GET("/seller", orderHandler.GetSellerOrders)
			orders.GET("/:id", orderHandler.GetOrder)
			orders.PUT("/:id/status", orderHandler.UpdateOrderStatus)
			orders.PUT("/:id/cancel", orderHandler.CancelOrder)
		}

		uploads := v1.Group("/uploads")
		uploads.Use(middleware.AuthRequired(), uploadLimiter.Middleware())
		{
			uploads.POST("/:kind", uploadHandler.Upload)
		}

		admin := v1.Group("/admin")
		admin.Use(middleware.AuthRequired(), middleware.AdminRequired())
		{
			admin.GET("/pharmacists", adminHandler.GetPharmacists)
			admin.PUT("/pharmacists/:id/verify", adminHandler.VerifyPharmacist)
		}
	}

	return r
}
