package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/endotrace/endotrace/internal/api/middleware"
	"github.com/endotrace/endotrace/internal/service"
)

// DashboardHandler serves the dashboard figures
type DashboardHandler struct {
	dashboardService *service.DashboardService
	logger           *zap.Logger
}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler(dashboardService *service.DashboardService, logger *zap.Logger) *DashboardHandler {
	return &DashboardHandler{
		dashboardService: dashboardService,
		logger:           logger,
	}
}

// GetDashboard returns inventory totals, malfunction rate, availability and recent breakdowns
// @Router /api/v1/dashboard [get]
func (h *DashboardHandler) GetDashboard(c *gin.Context) {
	stats, err := h.dashboardService.DashboardStats(middleware.Actor(c))
	if err != nil {
		respondError(c, h.logger, "Failed to compute dashboard", err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
