// Package api provides HTTP routing and server configuration for EndoTrace.
// It wires together handlers, middleware, and services to create the application's API endpoints.
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/endotrace/endotrace/internal/api/handlers"
	"github.com/endotrace/endotrace/internal/api/middleware"
	"github.com/endotrace/endotrace/internal/archive"
	"github.com/endotrace/endotrace/internal/config"
	"github.com/endotrace/endotrace/internal/database"
	"github.com/endotrace/endotrace/internal/database/models"
	"github.com/endotrace/endotrace/internal/metrics"
	"github.com/endotrace/endotrace/internal/service"
)

// Collaborators are the optional outside services the API depends on.
// Nil fields disable the matching feature.
type Collaborators struct {
	Alerter service.Alerter
	Archive archive.Store
	Metrics *metrics.Metrics
}

// NewRouter creates and configures the HTTP router
func NewRouter(cfg *config.Config, db *database.Database, logger *zap.Logger, collab Collaborators) *gin.Engine {
	if cfg.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Global middleware
	router.Use(gin.Recovery())
	router.Use(middleware.LoggerMiddleware(logger))
	router.Use(middleware.CORSMiddleware(cfg))
	if collab.Metrics != nil {
		router.Use(middleware.MetricsMiddleware(collab.Metrics))
	}

	// Initialize services
	userService := service.NewUserService(db, cfg, collab.Metrics)
	if err := userService.LoadJWTSecret(); err != nil {
		logger.Error("Failed to load JWT secret", zap.Error(err))
	}

	monitor := service.NewMalfunctionMonitor(db, collab.Alerter, cfg.Alerts.Threshold, logger, collab.Metrics)
	endoscopeService := service.NewEndoscopeService(db, monitor, collab.Metrics)
	sterilisationService := service.NewSterilisationService(db, collab.Metrics)
	usageService := service.NewUsageService(db, collab.Metrics)
	dashboardService := service.NewDashboardService(db, monitor, cfg.Dashboard.RecentBreakdownDays)
	adminService := service.NewAdminService(db, monitor, logger, collab.Metrics)
	reportService := service.NewReportService(db, collab.Archive, logger, collab.Metrics)

	// Initialize handlers
	setupHandler := handlers.NewSetupHandler(userService, logger)
	authHandler := handlers.NewAuthHandler(userService, logger)
	userHandler := handlers.NewUserHandler(userService, logger)
	endoscopeHandler := handlers.NewEndoscopeHandler(endoscopeService, logger)
	sterilisationHandler := handlers.NewSterilisationHandler(sterilisationService, logger)
	usageHandler := handlers.NewUsageHandler(usageService, logger)
	dashboardHandler := handlers.NewDashboardHandler(dashboardService, logger)
	reportHandler := handlers.NewReportHandler(reportService, logger)
	adminHandler := handlers.NewAdminHandler(adminService, logger)

	// Public routes
	public := router.Group("/api/v1")
	{
		public.GET("/setup/status", setupHandler.GetStatus)
		public.POST("/setup", setupHandler.PerformSetup)
		public.POST("/auth/login", authHandler.Login)
	}

	// Protected routes (require authentication). Per-record ownership is
	// decided by the services; RequireRole only keeps admin pages apart.
	protected := router.Group("/api/v1")
	protected.Use(middleware.AuthMiddleware(cfg, db))
	{
		protected.GET("/auth/me", authHandler.GetCurrentUser)

		// Users
		users := protected.Group("/users", middleware.RequireRole(models.RoleAdmin))
		users.GET("", userHandler.ListUsers)
		users.POST("", userHandler.CreateUser)
		users.PUT("/:id/role", userHandler.UpdateUserRole)
		users.PUT("/:id/password", userHandler.UpdateUserPassword)
		users.DELETE("/:id", userHandler.DeleteUser)

		// Endoscopes
		protected.GET("/endoscopes", endoscopeHandler.ListEndoscopes)
		protected.POST("/endoscopes", endoscopeHandler.CreateEndoscope)
		protected.GET("/endoscopes/:id", endoscopeHandler.GetEndoscope)
		protected.PUT("/endoscopes/:id", endoscopeHandler.UpdateEndoscope)
		protected.DELETE("/endoscopes/:id", endoscopeHandler.DeleteEndoscope)
		protected.GET("/endoscopes/:id/qr", endoscopeHandler.GetQRCode)

		// Sterilisation reports
		protected.GET("/sterilisation-reports", sterilisationHandler.ListReports)
		protected.POST("/sterilisation-reports", sterilisationHandler.CreateReport)
		protected.GET("/sterilisation-reports/mine", sterilisationHandler.ListOwnReports)
		protected.GET("/sterilisation-reports/:id", sterilisationHandler.GetReport)
		protected.PUT("/sterilisation-reports/:id", sterilisationHandler.UpdateReport)
		protected.DELETE("/sterilisation-reports/:id", sterilisationHandler.DeleteReport)

		// Legacy usage reports
		protected.GET("/usage-reports", usageHandler.ListReports)
		protected.POST("/usage-reports", usageHandler.CreateReport)
		protected.GET("/usage-reports/mine", usageHandler.ListOwnReports)
		protected.GET("/usage-reports/:id", usageHandler.GetReport)
		protected.PUT("/usage-reports/:id", usageHandler.UpdateReport)
		protected.DELETE("/usage-reports/:id", usageHandler.DeleteReport)

		// Dashboard and reports
		protected.GET("/dashboard", dashboardHandler.GetDashboard)
		protected.GET("/reports/inventory.pdf", reportHandler.InventoryPDF)
		protected.GET("/reports/sterilisation.pdf", reportHandler.SterilisationPDF)
		protected.GET("/reports/archive", reportHandler.ListArchive)
		protected.GET("/reports/files/*key", reportHandler.GetArchived)
		protected.DELETE("/reports/files/*key", reportHandler.DeleteArchived)

		// Administration
		admin := protected.Group("/admin", middleware.RequireRole(models.RoleAdmin))
		admin.GET("/statistics", adminHandler.GetStatistics)
		admin.POST("/purge/:kind", adminHandler.Purge)
		admin.POST("/migrate-usage-reports", adminHandler.MigrateUsageReports)
		admin.POST("/alerts/test", adminHandler.TestAlerts)
	}

	if collab.Metrics != nil && cfg.Metrics.Enabled {
		router.GET(cfg.Metrics.Path, gin.WrapH(collab.Metrics.Handler()))
	}

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})

	return router
}
