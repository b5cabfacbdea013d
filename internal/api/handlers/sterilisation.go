package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/endotrace/endotrace/internal/api/middleware"
	"github.com/endotrace/endotrace/internal/database"
	"github.com/endotrace/endotrace/internal/service"
)

// SterilisationHandler handles sterilisation reports
type SterilisationHandler struct {
	sterilisationService *service.SterilisationService
	logger               *zap.Logger
}

// NewSterilisationHandler creates a new sterilisation report handler
func NewSterilisationHandler(sterilisationService *service.SterilisationService, logger *zap.Logger) *SterilisationHandler {
	return &SterilisationHandler{
		sterilisationService: sterilisationService,
		logger:               logger,
	}
}

// SterilisationRequest is the body of create and update requests.
// endoscope_id, when present, replaces endoscope and numero_serie with the inventory values.
type SterilisationRequest struct {
	EndoscopeID        *int64  `json:"endoscope_id"`
	NomOperateur       string  `json:"nom_operateur"`
	Endoscope          string  `json:"endoscope"`
	NumeroSerie        string  `json:"numero_serie"`
	MedecinResponsable string  `json:"medecin_responsable"`
	DateDesinfection   string  `json:"date_desinfection"`
	TypeDesinfection   string  `json:"type_desinfection"`
	Cycle              string  `json:"cycle"`
	TestEtancheite     string  `json:"test_etancheite"`
	HeureDebut         string  `json:"heure_debut"`
	HeureFin           string  `json:"heure_fin"`
	ProcedureMedicale  *string `json:"procedure_medicale"`
	Salle              string  `json:"salle"`
	TypeActe           string  `json:"type_acte"`
	EtatEndoscope      string  `json:"etat_endoscope"`
	NaturePanne        *string `json:"nature_panne"`
}

func (r SterilisationRequest) input() service.SterilisationInput {
	return service.SterilisationInput{
		EndoscopeID:        r.EndoscopeID,
		NomOperateur:       r.NomOperateur,
		Endoscope:          r.Endoscope,
		NumeroSerie:        r.NumeroSerie,
		MedecinResponsable: r.MedecinResponsable,
		DateDesinfection:   r.DateDesinfection,
		TypeDesinfection:   r.TypeDesinfection,
		Cycle:              r.Cycle,
		TestEtancheite:     r.TestEtancheite,
		HeureDebut:         r.HeureDebut,
		HeureFin:           r.HeureFin,
		ProcedureMedicale:  r.ProcedureMedicale,
		Salle:              r.Salle,
		TypeActe:           r.TypeActe,
		EtatEndoscope:      r.EtatEndoscope,
		NaturePanne:        r.NaturePanne,
	}
}

func sterilisationFilter(c *gin.Context) database.SterilisationReportFilter {
	return database.SterilisationReportFilter{
		CreatedBy:        c.Query("created_by"),
		DateDesinfection: c.Query("date"),
		Since:            c.Query("since"),
		Until:            c.Query("until"),
		EtatsEndoscope:   queryList(c, "etat"),
		Operators:        queryList(c, "operateur"),
		Medecins:         queryList(c, "medecin"),
		SortBy:           c.Query("sort"),
		Ascending:        ascending(c),
	}
}

// ListReports lists sterilisation reports
// @Param date query string false "Disinfection date YYYY-MM-DD"
// @Param operateur query string false "Operator, repeatable"
// @Param medecin query string false "Responsible doctor, repeatable"
// @Router /api/v1/sterilisation-reports [get]
func (h *SterilisationHandler) ListReports(c *gin.Context) {
	reports, err := h.sterilisationService.ListSterilisationReports(middleware.Actor(c), sterilisationFilter(c))
	if err != nil {
		respondError(c, h.logger, "Failed to list sterilisation reports", err)
		return
	}
	c.JSON(http.StatusOK, reports)
}

// ListOwnReports lists the caller's sterilisation reports
// @Router /api/v1/sterilisation-reports/mine [get]
func (h *SterilisationHandler) ListOwnReports(c *gin.Context) {
	reports, err := h.sterilisationService.ListOwnSterilisationReports(middleware.Actor(c), sterilisationFilter(c))
	if err != nil {
		respondError(c, h.logger, "Failed to list own sterilisation reports", err)
		return
	}
	c.JSON(http.StatusOK, reports)
}

// GetReport returns one report
// @Router /api/v1/sterilisation-reports/{id} [get]
func (h *SterilisationHandler) GetReport(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	r, err := h.sterilisationService.GetSterilisationReport(middleware.Actor(c), id)
	if err != nil {
		respondError(c, h.logger, "Failed to get sterilisation report", err, zap.Int64("id", id))
		return
	}
	c.JSON(http.StatusOK, r)
}

// CreateReport records a disinfection cycle
// @Router /api/v1/sterilisation-reports [post]
func (h *SterilisationHandler) CreateReport(c *gin.Context) {
	var req SterilisationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	r, err := h.sterilisationService.CreateSterilisationReport(middleware.Actor(c), req.input())
	if err != nil {
		respondError(c, h.logger, "Failed to create sterilisation report", err)
		return
	}

	h.logger.Info("Sterilisation report created", zap.Int64("id", r.ID), zap.String("numero_serie", r.NumeroSerie))
	c.JSON(http.StatusCreated, r)
}

// UpdateReport replaces a report's fields
// @Router /api/v1/sterilisation-reports/{id} [put]
func (h *SterilisationHandler) UpdateReport(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req SterilisationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	r, err := h.sterilisationService.UpdateSterilisationReport(middleware.Actor(c), id, req.input())
	if err != nil {
		respondError(c, h.logger, "Failed to update sterilisation report", err, zap.Int64("id", id))
		return
	}
	c.JSON(http.StatusOK, r)
}

// DeleteReport removes a report
// @Router /api/v1/sterilisation-reports/{id} [delete]
func (h *SterilisationHandler) DeleteReport(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := h.sterilisationService.DeleteSterilisationReport(middleware.Actor(c), id); err != nil {
		respondError(c, h.logger, "Failed to delete sterilisation report", err, zap.Int64("id", id))
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "report deleted"})
}
