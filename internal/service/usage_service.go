package service

import (
	"strings"
	"time"

	"github.com/endotrace/endotrace/internal/database"
	"github.com/endotrace/endotrace/internal/database/models"
	"github.com/endotrace/endotrace/internal/metrics"
	"github.com/endotrace/endotrace/internal/policy"
)

// UsageService keeps the legacy usage report operations available until the
// reports are migrated into sterilisation reports.
type UsageService struct {
	db      *database.Database
	metrics *metrics.Metrics
}

// NewUsageService creates a new usage report service
func NewUsageService(db *database.Database, m *metrics.Metrics) *UsageService {
	return &UsageService{db: db, metrics: m}
}

// UsageInput holds the editable fields of a usage report
type UsageInput struct {
	NomOperateur string
	Endoscope    string
	NumeroSerie  string
	Medecin      string
	Etat         string
	NaturePanne  *string
}

func (in *UsageInput) normalize() error {
	in.NomOperateur = strings.TrimSpace(in.NomOperateur)
	in.Endoscope = strings.TrimSpace(in.Endoscope)
	in.NumeroSerie = strings.TrimSpace(in.NumeroSerie)
	in.Medecin = strings.TrimSpace(in.Medecin)
	in.Etat = strings.TrimSpace(in.Etat)

	if err := required(
		field{"nom_operateur", in.NomOperateur},
		field{"endoscope", in.Endoscope},
		field{"numero_serie", in.NumeroSerie},
		field{"medecin", in.Medecin},
		field{"etat", in.Etat},
	); err != nil {
		return err
	}
	if err := validEtat("etat", in.Etat); err != nil {
		return err
	}

	np, err := naturePanne(in.Etat, in.NaturePanne)
	if err != nil {
		return err
	}
	in.NaturePanne = np
	return nil
}

func (in *UsageInput) apply(r *models.UsageReport) {
	r.NomOperateur = in.NomOperateur
	r.Endoscope = in.Endoscope
	r.NumeroSerie = in.NumeroSerie
	r.Medecin = in.Medecin
	r.Etat = in.Etat
	r.NaturePanne = in.NaturePanne
}

// CreateUsageReport records a usage report owned by actor
func (s *UsageService) CreateUsageReport(actor policy.Actor, in UsageInput) (r *models.UsageReport, err error) {
	defer func() { observe(s.metrics, policy.KindUsageReport, policy.ActionCreate, err) }()

	if strings.TrimSpace(in.NomOperateur) == "" {
		in.NomOperateur = actor.Username
	}
	if err := in.normalize(); err != nil {
		return nil, err
	}
	if err := policy.Authorize(actor, policy.KindUsageReport, policy.ActionCreate, ""); err != nil {
		return nil, err
	}

	r = &models.UsageReport{
		CreatedBy:       actor.Username,
		DateUtilisation: time.Now().UTC(),
	}
	in.apply(r)

	if err := s.db.CreateUsageReport(r); err != nil {
		return nil, storeError("create usage report", err, "")
	}
	return r, nil
}

// UpdateUsageReport replaces the editable fields of a report. Only its creator or an admin may do so.
func (s *UsageService) UpdateUsageReport(actor policy.Actor, id int64, in UsageInput) (r *models.UsageReport, err error) {
	defer func() { observe(s.metrics, policy.KindUsageReport, policy.ActionUpdate, err) }()

	r, err = s.db.GetUsageReport(id)
	if err != nil {
		return nil, storeError("get usage report", err, "")
	}
	if err := policy.Authorize(actor, policy.KindUsageReport, policy.ActionUpdate, r.CreatedBy); err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.NomOperateur) == "" {
		in.NomOperateur = r.NomOperateur
	}
	if err := in.normalize(); err != nil {
		return nil, err
	}

	in.apply(r)
	if err := s.db.UpdateUsageReport(r); err != nil {
		return nil, storeError("update usage report", err, "")
	}
	return r, nil
}

// DeleteUsageReport removes a report. Only its creator or an admin may do so.
func (s *UsageService) DeleteUsageReport(actor policy.Actor, id int64) (err error) {
	defer func() { observe(s.metrics, policy.KindUsageReport, policy.ActionDelete, err) }()

	r, err := s.db.GetUsageReport(id)
	if err != nil {
		return storeError("get usage report", err, "")
	}
	if err := policy.Authorize(actor, policy.KindUsageReport, policy.ActionDelete, r.CreatedBy); err != nil {
		return err
	}
	if err := s.db.DeleteUsageReport(id); err != nil {
		return storeError("delete usage report", err, "")
	}
	return nil
}

// GetUsageReport returns one report
func (s *UsageService) GetUsageReport(actor policy.Actor, id int64) (*models.UsageReport, error) {
	if err := policy.Authorize(actor, policy.KindUsageReport, policy.ActionRead, ""); err != nil {
		return nil, err
	}
	r, err := s.db.GetUsageReport(id)
	if err != nil {
		return nil, storeError("get usage report", err, "")
	}
	return r, nil
}

// ListUsageReports returns every usage report, newest first
func (s *UsageService) ListUsageReports(actor policy.Actor) ([]*models.UsageReport, error) {
	return s.list(actor, "")
}

// ListOwnUsageReports returns the usage reports created by actor
func (s *UsageService) ListOwnUsageReports(actor policy.Actor) ([]*models.UsageReport, error) {
	return s.list(actor, actor.Username)
}

func (s *UsageService) list(actor policy.Actor, createdBy string) ([]*models.UsageReport, error) {
	if err := policy.Authorize(actor, policy.KindUsageReport, policy.ActionRead, ""); err != nil {
		return nil, err
	}
	reports, err := s.db.ListUsageReports(createdBy)
	if err != nil {
		return nil, storeError("list usage reports", err, "")
	}
	return reports, nil
}
