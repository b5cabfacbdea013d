package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/endotrace/endotrace/internal/api/middleware"
	"github.com/endotrace/endotrace/internal/database"
	"github.com/endotrace/endotrace/internal/service"
)

// EndoscopeHandler handles the endoscope inventory
type EndoscopeHandler struct {
	endoscopeService *service.EndoscopeService
	logger           *zap.Logger
}

// NewEndoscopeHandler creates a new endoscope handler
func NewEndoscopeHandler(endoscopeService *service.EndoscopeService, logger *zap.Logger) *EndoscopeHandler {
	return &EndoscopeHandler{
		endoscopeService: endoscopeService,
		logger:           logger,
	}
}

// EndoscopeRequest is the body of create and update requests
type EndoscopeRequest struct {
	Designation  string  `json:"designation"`
	Marque       string  `json:"marque"`
	Modele       string  `json:"modele"`
	NumeroSerie  string  `json:"numero_serie"`
	Etat         string  `json:"etat"`
	Observation  *string `json:"observation"`
	Localisation string  `json:"localisation"`
}

func (r EndoscopeRequest) input() service.EndoscopeInput {
	return service.EndoscopeInput{
		Designation:  r.Designation,
		Marque:       r.Marque,
		Modele:       r.Modele,
		NumeroSerie:  r.NumeroSerie,
		Etat:         r.Etat,
		Observation:  r.Observation,
		Localisation: r.Localisation,
	}
}

func endoscopeFilter(c *gin.Context) database.EndoscopeFilter {
	return database.EndoscopeFilter{
		Etats:         queryList(c, "etat"),
		Marques:       queryList(c, "marque"),
		Localisations: queryList(c, "localisation"),
		CreatedBy:     queryList(c, "created_by"),
		Search:        c.Query("q"),
		SortBy:        c.Query("sort"),
		Ascending:     ascending(c),
	}
}

// ListEndoscopes lists the inventory
// @Summary List endoscopes
// @Param etat query string false "Filter by state, repeatable"
// @Param localisation query string false "Filter by location, repeatable"
// @Param sort query string false "Sort column"
// @Param order query string false "asc or desc"
// @Router /api/v1/endoscopes [get]
func (h *EndoscopeHandler) ListEndoscopes(c *gin.Context) {
	endoscopes, err := h.endoscopeService.ListEndoscopes(middleware.Actor(c), endoscopeFilter(c))
	if err != nil {
		respondError(c, h.logger, "Failed to list endoscopes", err)
		return
	}
	c.JSON(http.StatusOK, endoscopes)
}

// GetEndoscope returns one device
// @Router /api/v1/endoscopes/{id} [get]
func (h *EndoscopeHandler) GetEndoscope(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	e, err := h.endoscopeService.GetEndoscope(middleware.Actor(c), id)
	if err != nil {
		respondError(c, h.logger, "Failed to get endoscope", err, zap.Int64("id", id))
		return
	}
	c.JSON(http.StatusOK, e)
}

// CreateEndoscope adds a device
// @Router /api/v1/endoscopes [post]
func (h *EndoscopeHandler) CreateEndoscope(c *gin.Context) {
	var req EndoscopeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	e, err := h.endoscopeService.CreateEndoscope(c.Request.Context(), middleware.Actor(c), req.input())
	if err != nil {
		respondError(c, h.logger, "Failed to create endoscope", err, zap.String("numero_serie", req.NumeroSerie))
		return
	}

	h.logger.Info("Endoscope created", zap.Int64("id", e.ID), zap.String("numero_serie", e.NumeroSerie))
	c.JSON(http.StatusCreated, e)
}

// UpdateEndoscope replaces a device's fields
// @Router /api/v1/endoscopes/{id} [put]
func (h *EndoscopeHandler) UpdateEndoscope(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req EndoscopeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	e, err := h.endoscopeService.UpdateEndoscope(c.Request.Context(), middleware.Actor(c), id, req.input())
	if err != nil {
		respondError(c, h.logger, "Failed to update endoscope", err, zap.Int64("id", id))
		return
	}
	c.JSON(http.StatusOK, e)
}

// DeleteEndoscope removes a device
// @Router /api/v1/endoscopes/{id} [delete]
func (h *EndoscopeHandler) DeleteEndoscope(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := h.endoscopeService.DeleteEndoscope(c.Request.Context(), middleware.Actor(c), id); err != nil {
		respondError(c, h.logger, "Failed to delete endoscope", err, zap.Int64("id", id))
		return
	}

	h.logger.Info("Endoscope deleted", zap.Int64("id", id))
	c.JSON(http.StatusOK, gin.H{"message": "endoscope deleted"})
}

// GetQRCode renders the QR label of a device as PNG
// @Param size query int false "Edge length in pixels"
// @Produce png
// @Router /api/v1/endoscopes/{id}/qr [get]
func (h *EndoscopeHandler) GetQRCode(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	size, _ := strconv.Atoi(c.Query("size"))
	if size < 0 || size > 2048 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "size must be between 1 and 2048"})
		return
	}

	png, e, err := h.endoscopeService.EndoscopeQRCode(middleware.Actor(c), id, size)
	if err != nil {
		respondError(c, h.logger, "Failed to render QR code", err, zap.Int64("id", id))
		return
	}

	c.Header("Content-Disposition", contentDisposition("inline", "qr_"+e.NumeroSerie+".png"))
	c.Data(http.StatusOK, "image/png", png)
}
