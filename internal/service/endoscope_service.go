package service

import (
	"context"
	"strings"
	"time"

	"github.com/endotrace/endotrace/internal/database"
	"github.com/endotrace/endotrace/internal/database/models"
	"github.com/endotrace/endotrace/internal/metrics"
	"github.com/endotrace/endotrace/internal/policy"
	"github.com/endotrace/endotrace/internal/report"
)

// EndoscopeService manages the endoscope inventory
type EndoscopeService struct {
	db      *database.Database
	monitor *MalfunctionMonitor
	metrics *metrics.Metrics
}

// NewEndoscopeService creates a new endoscope service. monitor may be nil.
func NewEndoscopeService(db *database.Database, monitor *MalfunctionMonitor, m *metrics.Metrics) *EndoscopeService {
	return &EndoscopeService{db: db, monitor: monitor, metrics: m}
}

// EndoscopeInput holds the editable fields of an endoscope
type EndoscopeInput struct {
	Designation  string
	Marque       string
	Modele       string
	NumeroSerie  string
	Etat         string
	Observation  *string
	Localisation string
}

func (in *EndoscopeInput) normalize() error {
	in.Designation = strings.TrimSpace(in.Designation)
	in.Marque = strings.TrimSpace(in.Marque)
	in.Modele = strings.TrimSpace(in.Modele)
	in.NumeroSerie = strings.TrimSpace(in.NumeroSerie)
	in.Etat = strings.TrimSpace(in.Etat)
	in.Localisation = strings.TrimSpace(in.Localisation)
	in.Observation = optional(in.Observation)

	if err := required(
		field{"designation", in.Designation},
		field{"marque", in.Marque},
		field{"modele", in.Modele},
		field{"numero_serie", in.NumeroSerie},
		field{"etat", in.Etat},
		field{"localisation", in.Localisation},
	); err != nil {
		return err
	}
	if err := validEtat("etat", in.Etat); err != nil {
		return err
	}
	return oneOf("localisation", in.Localisation, models.Localisations...)
}

const duplicateSerial = "serial number already exists"

// CreateEndoscope adds a device to the inventory, owned by actor
func (s *EndoscopeService) CreateEndoscope(ctx context.Context, actor policy.Actor, in EndoscopeInput) (e *models.Endoscope, err error) {
	defer func() { observe(s.metrics, policy.KindEndoscope, policy.ActionCreate, err) }()

	if err := in.normalize(); err != nil {
		return nil, err
	}
	if err := policy.Authorize(actor, policy.KindEndoscope, policy.ActionCreate, ""); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	e = &models.Endoscope{
		Designation:  in.Designation,
		Marque:       in.Marque,
		Modele:       in.Modele,
		NumeroSerie:  in.NumeroSerie,
		Etat:         in.Etat,
		Observation:  in.Observation,
		Localisation: in.Localisation,
		CreatedBy:    actor.Username,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.db.CreateEndoscope(e); err != nil {
		return nil, storeError("create endoscope", err, duplicateSerial)
	}

	s.checkMalfunctions(ctx)
	return e, nil
}

// UpdateEndoscope replaces the editable fields of a device. Only its creator or an admin may do so.
func (s *EndoscopeService) UpdateEndoscope(ctx context.Context, actor policy.Actor, id int64, in EndoscopeInput) (e *models.Endoscope, err error) {
	defer func() { observe(s.metrics, policy.KindEndoscope, policy.ActionUpdate, err) }()

	if err := in.normalize(); err != nil {
		return nil, err
	}

	e, err = s.db.GetEndoscope(id)
	if err != nil {
		return nil, storeError("get endoscope", err, "")
	}
	if err := policy.Authorize(actor, policy.KindEndoscope, policy.ActionUpdate, e.CreatedBy); err != nil {
		return nil, err
	}

	e.Designation = in.Designation
	e.Marque = in.Marque
	e.Modele = in.Modele
	e.NumeroSerie = in.NumeroSerie
	e.Etat = in.Etat
	e.Observation = in.Observation
	e.Localisation = in.Localisation
	e.UpdatedAt = time.Now().UTC()

	if err := s.db.UpdateEndoscope(e); err != nil {
		return nil, storeError("update endoscope", err, duplicateSerial)
	}

	s.checkMalfunctions(ctx)
	return e, nil
}

// DeleteEndoscope removes a device. Only its creator or an admin may do so.
func (s *EndoscopeService) DeleteEndoscope(ctx context.Context, actor policy.Actor, id int64) (err error) {
	defer func() { observe(s.metrics, policy.KindEndoscope, policy.ActionDelete, err) }()

	e, err := s.db.GetEndoscope(id)
	if err != nil {
		return storeError("get endoscope", err, "")
	}
	if err := policy.Authorize(actor, policy.KindEndoscope, policy.ActionDelete, e.CreatedBy); err != nil {
		return err
	}

	if err := s.db.DeleteEndoscope(id); err != nil {
		return storeError("delete endoscope", err, "")
	}

	s.checkMalfunctions(ctx)
	return nil
}

// GetEndoscope returns one device
func (s *EndoscopeService) GetEndoscope(actor policy.Actor, id int64) (*models.Endoscope, error) {
	if err := policy.Authorize(actor, policy.KindEndoscope, policy.ActionRead, ""); err != nil {
		return nil, err
	}
	e, err := s.db.GetEndoscope(id)
	if err != nil {
		return nil, storeError("get endoscope", err, "")
	}
	return e, nil
}

// ListEndoscopes returns the inventory, newest first unless filter asks for another sort
func (s *EndoscopeService) ListEndoscopes(actor policy.Actor, filter database.EndoscopeFilter) ([]*models.Endoscope, error) {
	if err := policy.Authorize(actor, policy.KindEndoscope, policy.ActionRead, ""); err != nil {
		return nil, err
	}
	endoscopes, err := s.db.ListEndoscopes(filter)
	if err != nil {
		return nil, storeError("list endoscopes", err, "")
	}
	return endoscopes, nil
}

// EndoscopeQRCode renders the QR label of one device as a PNG
func (s *EndoscopeService) EndoscopeQRCode(actor policy.Actor, id int64, size int) ([]byte, *models.Endoscope, error) {
	e, err := s.GetEndoscope(actor, id)
	if err != nil {
		return nil, nil, err
	}
	png, err := report.QRCode(e.ID, e.Designation, e.NumeroSerie, size)
	if err != nil {
		return nil, nil, err
	}
	return png, e, nil
}

func (s *EndoscopeService) checkMalfunctions(ctx context.Context) {
	if s.monitor != nil {
		s.monitor.Check(ctx)
	}
}
