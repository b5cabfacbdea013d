package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/endotrace/endotrace/internal/api/middleware"
	"github.com/endotrace/endotrace/internal/service"
)

// AdminHandler exposes the maintenance operations
type AdminHandler struct {
	adminService *service.AdminService
	logger       *zap.Logger
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(adminService *service.AdminService, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{
		adminService: adminService,
		logger:       logger,
	}
}

// GetStatistics returns table totals and users by role
// @Router /api/v1/admin/statistics [get]
func (h *AdminHandler) GetStatistics(c *gin.Context) {
	stats, err := h.adminService.DatabaseStatistics(middleware.Actor(c))
	if err != nil {
		respondError(c, h.logger, "Failed to compute statistics", err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// Purge deletes every record of one kind: endoscopes, sterilisation-reports or usage-reports
// @Router /api/v1/admin/purge/{kind} [post]
func (h *AdminHandler) Purge(c *gin.Context) {
	actor := middleware.Actor(c)
	kind := c.Param("kind")

	var (
		n   int64
		err error
	)
	switch kind {
	case "endoscopes":
		n, err = h.adminService.PurgeEndoscopes(c.Request.Context(), actor)
	case "sterilisation-reports":
		n, err = h.adminService.PurgeSterilisationReports(actor)
	case "usage-reports":
		n, err = h.adminService.PurgeUsageReports(actor)
	default:
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown record kind"})
		return
	}
	if err != nil {
		respondError(c, h.logger, "Failed to purge records", err, zap.String("kind", kind))
		return
	}

	c.JSON(http.StatusOK, gin.H{"kind": kind, "deleted": n})
}

// MigrateUsageReports moves the legacy usage reports into sterilisation reports
// @Router /api/v1/admin/migrate-usage-reports [post]
func (h *AdminHandler) MigrateUsageReports(c *gin.Context) {
	n, err := h.adminService.MigrateUsageReports(middleware.Actor(c))
	if err != nil {
		respondError(c, h.logger, "Failed to migrate usage reports", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"migrated": n})
}

// TestAlerts sends the current malfunction figures to the configured recipients
// @Router /api/v1/admin/alerts/test [post]
func (h *AdminHandler) TestAlerts(c *gin.Context) {
	status, err := h.adminService.TestAlerts(c.Request.Context(), middleware.Actor(c))
	if err != nil {
		if statusFor(err) != http.StatusInternalServerError {
			respondError(c, h.logger, "Alert test rejected", err)
			return
		}
		h.logger.Warn("Alert test failed", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error(), "status": status})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "test alert sent", "status": status})
}
