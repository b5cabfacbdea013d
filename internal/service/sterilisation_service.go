package service

import (
	"strings"
	"time"

	"github.com/endotrace/endotrace/internal/database"
	"github.com/endotrace/endotrace/internal/database/models"
	"github.com/endotrace/endotrace/internal/metrics"
	"github.com/endotrace/endotrace/internal/policy"
)

// SterilisationService manages sterilisation reports
type SterilisationService struct {
	db      *database.Database
	metrics *metrics.Metrics
}

// NewSterilisationService creates a new sterilisation report service
func NewSterilisationService(db *database.Database, m *metrics.Metrics) *SterilisationService {
	return &SterilisationService{db: db, metrics: m}
}

// SterilisationInput holds the editable fields of a sterilisation report.
// When EndoscopeID is set, Endoscope and NumeroSerie are copied from the inventory.
type SterilisationInput struct {
	EndoscopeID        *int64
	NomOperateur       string
	Endoscope          string
	NumeroSerie        string
	MedecinResponsable string
	DateDesinfection   string
	TypeDesinfection   string
	Cycle              string
	TestEtancheite     string
	HeureDebut         string
	HeureFin           string
	ProcedureMedicale  *string
	Salle              string
	TypeActe           string
	EtatEndoscope      string
	NaturePanne        *string
}

func (in *SterilisationInput) normalize() error {
	for _, s := range []*string{
		&in.NomOperateur, &in.Endoscope, &in.NumeroSerie, &in.MedecinResponsable,
		&in.DateDesinfection, &in.TypeDesinfection, &in.Cycle, &in.TestEtancheite,
		&in.HeureDebut, &in.HeureFin, &in.Salle, &in.TypeActe, &in.EtatEndoscope,
	} {
		*s = strings.TrimSpace(*s)
	}
	in.ProcedureMedicale = optional(in.ProcedureMedicale)

	if err := required(
		field{"nom_operateur", in.NomOperateur},
		field{"endoscope", in.Endoscope},
		field{"numero_serie", in.NumeroSerie},
		field{"medecin_responsable", in.MedecinResponsable},
		field{"date_desinfection", in.DateDesinfection},
		field{"type_desinfection", in.TypeDesinfection},
		field{"cycle", in.Cycle},
		field{"test_etancheite", in.TestEtancheite},
		field{"heure_debut", in.HeureDebut},
		field{"heure_fin", in.HeureFin},
		field{"salle", in.Salle},
		field{"type_acte", in.TypeActe},
		field{"etat_endoscope", in.EtatEndoscope},
	); err != nil {
		return err
	}

	if err := oneOf("type_desinfection", in.TypeDesinfection, models.DesinfectionManuel, models.DesinfectionAutomatique); err != nil {
		return err
	}
	if err := oneOf("cycle", in.Cycle, models.CycleComplet, models.CycleIncomplet); err != nil {
		return err
	}
	if err := oneOf("test_etancheite", in.TestEtancheite, models.EtancheiteReussi, models.EtancheiteEchoue); err != nil {
		return err
	}
	if err := validEtat("etat_endoscope", in.EtatEndoscope); err != nil {
		return err
	}
	if err := validateDate("date_desinfection", in.DateDesinfection); err != nil {
		return err
	}
	if err := validateTimes(in.HeureDebut, in.HeureFin); err != nil {
		return err
	}

	np, err := naturePanne(in.EtatEndoscope, in.NaturePanne)
	if err != nil {
		return err
	}
	in.NaturePanne = np
	return nil
}

// resolve fills the input from the referenced inventory device and the actor
func (s *SterilisationService) resolve(actor policy.Actor, in *SterilisationInput) error {
	if strings.TrimSpace(in.NomOperateur) == "" {
		in.NomOperateur = actor.Username
	}
	if in.EndoscopeID == nil {
		return nil
	}

	e, err := s.db.GetEndoscope(*in.EndoscopeID)
	if err != nil {
		err = storeError("get endoscope", err, "")
		if isNotFound(err) {
			return &ValidationError{Field: "endoscope_id", Message: "unknown endoscope"}
		}
		return err
	}
	in.Endoscope = e.Designation
	in.NumeroSerie = e.NumeroSerie
	return nil
}

func (in *SterilisationInput) apply(r *models.SterilisationReport) {
	r.NomOperateur = in.NomOperateur
	r.Endoscope = in.Endoscope
	r.NumeroSerie = in.NumeroSerie
	r.MedecinResponsable = in.MedecinResponsable
	r.DateDesinfection = in.DateDesinfection
	r.TypeDesinfection = in.TypeDesinfection
	r.Cycle = in.Cycle
	r.TestEtancheite = in.TestEtancheite
	r.HeureDebut = in.HeureDebut
	r.HeureFin = in.HeureFin
	r.ProcedureMedicale = in.ProcedureMedicale
	r.Salle = in.Salle
	r.TypeActe = in.TypeActe
	r.EtatEndoscope = in.EtatEndoscope
	r.NaturePanne = in.NaturePanne
}

// CreateSterilisationReport records a disinfection cycle owned by actor
func (s *SterilisationService) CreateSterilisationReport(actor policy.Actor, in SterilisationInput) (r *models.SterilisationReport, err error) {
	defer func() { observe(s.metrics, policy.KindSterilisationReport, policy.ActionCreate, err) }()

	if err := policy.Authorize(actor, policy.KindSterilisationReport, policy.ActionCreate, ""); err != nil {
		return nil, err
	}
	if err := s.resolve(actor, &in); err != nil {
		return nil, err
	}
	if err := in.normalize(); err != nil {
		return nil, err
	}

	r = &models.SterilisationReport{
		Origin:    models.OriginSterilisation,
		CreatedBy: actor.Username,
		CreatedAt: time.Now().UTC(),
	}
	in.apply(r)

	if err := s.db.CreateSterilisationReport(r); err != nil {
		return nil, storeError("create sterilisation report", err, "")
	}
	return r, nil
}

// UpdateSterilisationReport replaces the editable fields of a report. Only its creator or an admin may do so.
func (s *SterilisationService) UpdateSterilisationReport(actor policy.Actor, id int64, in SterilisationInput) (r *models.SterilisationReport, err error) {
	defer func() { observe(s.metrics, policy.KindSterilisationReport, policy.ActionUpdate, err) }()

	r, err = s.db.GetSterilisationReport(id)
	if err != nil {
		return nil, storeError("get sterilisation report", err, "")
	}
	if err := policy.Authorize(actor, policy.KindSterilisationReport, policy.ActionUpdate, r.CreatedBy); err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.NomOperateur) == "" {
		in.NomOperateur = r.NomOperateur
	}
	if err := s.resolve(actor, &in); err != nil {
		return nil, err
	}
	if err := in.normalize(); err != nil {
		return nil, err
	}

	in.apply(r)
	if err := s.db.UpdateSterilisationReport(r); err != nil {
		return nil, storeError("update sterilisation report", err, "")
	}
	return r, nil
}

// DeleteSterilisationReport removes a report. Only its creator or an admin may do so.
func (s *SterilisationService) DeleteSterilisationReport(actor policy.Actor, id int64) (err error) {
	defer func() { observe(s.metrics, policy.KindSterilisationReport, policy.ActionDelete, err) }()

	r, err := s.db.GetSterilisationReport(id)
	if err != nil {
		return storeError("get sterilisation report", err, "")
	}
	if err := policy.Authorize(actor, policy.KindSterilisationReport, policy.ActionDelete, r.CreatedBy); err != nil {
		return err
	}
	if err := s.db.DeleteSterilisationReport(id); err != nil {
		return storeError("delete sterilisation report", err, "")
	}
	return nil
}

// GetSterilisationReport returns one report
func (s *SterilisationService) GetSterilisationReport(actor policy.Actor, id int64) (*models.SterilisationReport, error) {
	if err := policy.Authorize(actor, policy.KindSterilisationReport, policy.ActionRead, ""); err != nil {
		return nil, err
	}
	r, err := s.db.GetSterilisationReport(id)
	if err != nil {
		return nil, storeError("get sterilisation report", err, "")
	}
	return r, nil
}

// ListSterilisationReports returns the reports matching filter
func (s *SterilisationService) ListSterilisationReports(actor policy.Actor, filter database.SterilisationReportFilter) ([]*models.SterilisationReport, error) {
	if err := policy.Authorize(actor, policy.KindSterilisationReport, policy.ActionRead, ""); err != nil {
		return nil, err
	}
	reports, err := s.db.ListSterilisationReports(filter)
	if err != nil {
		return nil, storeError("list sterilisation reports", err, "")
	}
	return reports, nil
}

// ListOwnSterilisationReports returns the reports created by actor
func (s *SterilisationService) ListOwnSterilisationReports(actor policy.Actor, filter database.SterilisationReportFilter) ([]*models.SterilisationReport, error) {
	filter.CreatedBy = actor.Username
	return s.ListSterilisationReports(actor, filter)
}
