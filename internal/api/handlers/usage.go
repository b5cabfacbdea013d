package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/endotrace/endotrace/internal/api/middleware"
	"github.com/endotrace/endotrace/internal/service"
)

// UsageHandler handles the legacy usage reports
type UsageHandler struct {
	usageService *service.UsageService
	logger       *zap.Logger
}

// NewUsageHandler creates a new usage report handler
func NewUsageHandler(usageService *service.UsageService, logger *zap.Logger) *UsageHandler {
	return &UsageHandler{
		usageService: usageService,
		logger:       logger,
	}
}

// UsageRequest is the body of create and update requests
type UsageRequest struct {
	NomOperateur string  `json:"nom_operateur"`
	Endoscope    string  `json:"endoscope"`
	NumeroSerie  string  `json:"numero_serie"`
	Medecin      string  `json:"medecin"`
	Etat         string  `json:"etat"`
	NaturePanne  *string `json:"nature_panne"`
}

func (r UsageRequest) input() service.UsageInput {
	return service.UsageInput(r)
}

// ListReports lists usage reports
// @Router /api/v1/usage-reports [get]
func (h *UsageHandler) ListReports(c *gin.Context) {
	reports, err := h.usageService.ListUsageReports(middleware.Actor(c))
	if err != nil {
		respondError(c, h.logger, "Failed to list usage reports", err)
		return
	}
	c.JSON(http.StatusOK, reports)
}

// ListOwnReports lists the caller's usage reports
// @Router /api/v1/usage-reports/mine [get]
func (h *UsageHandler) ListOwnReports(c *gin.Context) {
	reports, err := h.usageService.ListOwnUsageReports(middleware.Actor(c))
	if err != nil {
		respondError(c, h.logger, "Failed to list own usage reports", err)
		return
	}
	c.JSON(http.StatusOK, reports)
}

// GetReport returns one usage report
// @Router /api/v1/usage-reports/{id} [get]
func (h *UsageHandler) GetReport(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	r, err := h.usageService.GetUsageReport(middleware.Actor(c), id)
	if err != nil {
		respondError(c, h.logger, "Failed to get usage report", err, zap.Int64("id", id))
		return
	}
	c.JSON(http.StatusOK, r)
}

// CreateReport records a usage report
// @Router /api/v1/usage-reports [post]
func (h *UsageHandler) CreateReport(c *gin.Context) {
	var req UsageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	r, err := h.usageService.CreateUsageReport(middleware.Actor(c), req.input())
	if err != nil {
		respondError(c, h.logger, "Failed to create usage report", err)
		return
	}
	c.JSON(http.StatusCreated, r)
}

// UpdateReport replaces a usage report's fields
// @Router /api/v1/usage-reports/{id} [put]
func (h *UsageHandler) UpdateReport(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req UsageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	r, err := h.usageService.UpdateUsageReport(middleware.Actor(c), id, req.input())
	if err != nil {
		respondError(c, h.logger, "Failed to update usage report", err, zap.Int64("id", id))
		return
	}
	c.JSON(http.StatusOK, r)
}

// DeleteReport removes a usage report
// @Router /api/v1/usage-reports/{id} [delete]
func (h *UsageHandler) DeleteReport(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := h.usageService.DeleteUsageReport(middleware.Actor(c), id); err != nil {
		respondError(c, h.logger, "Failed to delete usage report", err, zap.Int64("id", id))
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "report deleted"})
}
