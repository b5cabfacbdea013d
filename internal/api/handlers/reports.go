package handlers

import (
	"mime"
	"net/http"
	"path"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/endotrace/endotrace/internal/api/middleware"
	"github.com/endotrace/endotrace/internal/service"
)

// ReportHandler serves PDF reports and the report archive
type ReportHandler struct {
	reportService *service.ReportService
	logger        *zap.Logger
}

// NewReportHandler creates a new report handler
func NewReportHandler(reportService *service.ReportService, logger *zap.Logger) *ReportHandler {
	return &ReportHandler{
		reportService: reportService,
		logger:        logger,
	}
}

func contentDisposition(disposition, filename string) string {
	return mime.FormatMediaType(disposition, map[string]string{"filename": filename})
}

func (h *ReportHandler) sendPDF(c *gin.Context, gen *service.GeneratedReport) {
	if gen.ArchiveKey != "" {
		c.Header("X-Archive-Key", gen.ArchiveKey)
	}
	if gen.Warning != "" {
		c.Header("X-Archive-Warning", gen.Warning)
	}
	c.Header("Content-Disposition", contentDisposition("attachment", gen.Filename))
	c.Data(http.StatusOK, "application/pdf", gen.Data)
}

// archiveRequested reads the archive query flag
func archiveRequested(c *gin.Context) bool {
	keep, _ := strconv.ParseBool(c.Query("archive"))
	return keep
}

// InventoryPDF renders the inventory, one QR code per endoscope
// @Summary Inventory report
// @Param archive query bool false "Keep a copy in the archive"
// @Produce application/pdf
// @Router /api/v1/reports/inventory.pdf [get]
func (h *ReportHandler) InventoryPDF(c *gin.Context) {
	gen, err := h.reportService.InventoryReport(c.Request.Context(), middleware.Actor(c), endoscopeFilter(c), archiveRequested(c))
	if err != nil {
		respondError(c, h.logger, "Failed to generate inventory report", err)
		return
	}
	h.sendPDF(c, gen)
}

// SterilisationPDF renders the sterilisation reports
// @Summary Sterilisation report
// @Param archive query bool false "Keep a copy in the archive"
// @Produce application/pdf
// @Router /api/v1/reports/sterilisation.pdf [get]
func (h *ReportHandler) SterilisationPDF(c *gin.Context) {
	gen, err := h.reportService.SterilisationArchiveReport(c.Request.Context(), middleware.Actor(c), sterilisationFilter(c), archiveRequested(c))
	if err != nil {
		respondError(c, h.logger, "Failed to generate sterilisation report", err)
		return
	}
	h.sendPDF(c, gen)
}

// ListArchive lists archived reports
// @Param prefix query string false "Key prefix, e.g. inventaire/"
// @Router /api/v1/reports/archive [get]
func (h *ReportHandler) ListArchive(c *gin.Context) {
	items, err := h.reportService.ListArchivedReports(c.Request.Context(), middleware.Actor(c), c.Query("prefix"))
	if err != nil {
		respondError(c, h.logger, "Failed to list archive", err)
		return
	}
	c.JSON(http.StatusOK, items)
}

// GetArchived downloads one archived report
// @Router /api/v1/reports/files/{key} [get]
func (h *ReportHandler) GetArchived(c *gin.Context) {
	key := c.Param("key")

	info, data, err := h.reportService.FetchArchivedReport(c.Request.Context(), middleware.Actor(c), key)
	if err != nil {
		respondError(c, h.logger, "Failed to fetch archived report", err, zap.String("key", key))
		return
	}

	contentType := info.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Header("Content-Disposition", contentDisposition("attachment", path.Base(info.Key)))
	c.Data(http.StatusOK, contentType, data)
}

// DeleteArchived removes one archived report. Admin only.
// @Router /api/v1/reports/files/{key} [delete]
func (h *ReportHandler) DeleteArchived(c *gin.Context) {
	key := c.Param("key")

	if err := h.reportService.DeleteArchivedReport(c.Request.Context(), middleware.Actor(c), key); err != nil {
		respondError(c, h.logger, "Failed to delete archived report", err, zap.String("key", key))
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "report deleted"})
}
