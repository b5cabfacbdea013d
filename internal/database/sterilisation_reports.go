package database

import (
	"github.com/endotrace/endotrace/internal/database/models"
)

const sterilisationColumns = `id, nom_operateur, endoscope, numero_serie, medecin_responsable,
	date_desinfection, type_desinfection, cycle, test_etancheite, heure_debut, heure_fin,
	procedure_medicale, salle, type_acte, etat_endoscope, nature_panne, origin, created_by, created_at`

var sterilisationSortable = map[string]bool{
	"nom_operateur":       true,
	"endoscope":           true,
	"numero_serie":        true,
	"medecin_responsable": true,
	"date_desinfection":   true,
	"type_desinfection":   true,
	"cycle":               true,
	"test_etancheite":     true,
	"salle":               true,
	"etat_endoscope":      true,
	"created_by":          true,
	"created_at":          true,
}

// SterilisationReportFilter narrows ListSterilisationReports. Empty fields do not filter.
type SterilisationReportFilter struct {
	CreatedBy        string
	DateDesinfection string
	Since            string // YYYY-MM-DD, inclusive
	Until            string // YYYY-MM-DD, inclusive
	EtatsEndoscope   []string
	Operators        []string
	Medecins         []string
	SortBy           string
	Ascending        bool
}

func scanSterilisationReport(s scanner) (*models.SterilisationReport, error) {
	var r models.SterilisationReport
	err := s.Scan(
		&r.ID, &r.NomOperateur, &r.Endoscope, &r.NumeroSerie, &r.MedecinResponsable,
		&r.DateDesinfection, &r.TypeDesinfection, &r.Cycle, &r.TestEtancheite, &r.HeureDebut, &r.HeureFin,
		&r.ProcedureMedicale, &r.Salle, &r.TypeActe, &r.EtatEndoscope, &r.NaturePanne, &r.Origin,
		&r.CreatedBy, &r.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// CreateSterilisationReport inserts a new report and sets its ID
func (d *Database) CreateSterilisationReport(r *models.SterilisationReport) error {
	if r.Origin == "" {
		r.Origin = models.OriginSterilisation
	}
	id, err := d.insert(`INSERT INTO sterilisation_reports
	          (nom_operateur, endoscope, numero_serie, medecin_responsable, date_desinfection,
	           type_desinfection, cycle, test_etancheite, heure_debut, heure_fin, procedure_medicale,
	           salle, type_acte, etat_endoscope, nature_panne, origin, created_by, created_at)
	          VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.NomOperateur, r.Endoscope, r.NumeroSerie, r.MedecinResponsable, r.DateDesinfection,
		r.TypeDesinfection, r.Cycle, r.TestEtancheite, r.HeureDebut, r.HeureFin, r.ProcedureMedicale,
		r.Salle, r.TypeActe, r.EtatEndoscope, r.NaturePanne, r.Origin, r.CreatedBy, r.CreatedAt,
	)
	if err != nil {
		return err
	}
	r.ID = id
	return nil
}

// GetSterilisationReport retrieves a report by ID
func (d *Database) GetSterilisationReport(id int64) (*models.SterilisationReport, error) {
	row := d.db.QueryRow(d.rebind(`SELECT `+sterilisationColumns+` FROM sterilisation_reports WHERE id = ?`), id)
	return scanSterilisationReport(row)
}

// ListSterilisationReports retrieves reports matching filter, newest first unless a sort is requested
func (d *Database) ListSterilisationReports(filter SterilisationReportFilter) ([]*models.SterilisationReport, error) {
	var w where
	w.eq("created_by", filter.CreatedBy)
	w.eq("date_desinfection", filter.DateDesinfection)
	w.gte("date_desinfection", filter.Since)
	w.lte("date_desinfection", filter.Until)
	w.in("etat_endoscope", filter.EtatsEndoscope)
	w.in("nom_operateur", filter.Operators)
	w.in("medecin_responsable", filter.Medecins)

	query := `SELECT ` + sterilisationColumns + ` FROM sterilisation_reports` + w.String() +
		orderBy(sterilisationSortable, "created_at", filter.SortBy, filter.Ascending)

	rows, err := d.db.Query(d.rebind(query), w.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reports []*models.SterilisationReport
	for rows.Next() {
		r, err := scanSterilisationReport(rows)
		if err != nil {
			return nil, err
		}
		reports = append(reports, r)
	}

	return reports, rows.Err()
}

// UpdateSterilisationReport writes every mutable column; ownership and origin are never touched
func (d *Database) UpdateSterilisationReport(r *models.SterilisationReport) error {
	return d.execOne(`UPDATE sterilisation_reports SET
	          nom_operateur = ?, endoscope = ?, numero_serie = ?, medecin_responsable = ?,
	          date_desinfection = ?, type_desinfection = ?, cycle = ?, test_etancheite = ?,
	          heure_debut = ?, heure_fin = ?, procedure_medicale = ?, salle = ?, type_acte = ?,
	          etat_endoscope = ?, nature_panne = ?
	          WHERE id = ?`,
		r.NomOperateur, r.Endoscope, r.NumeroSerie, r.MedecinResponsable,
		r.DateDesinfection, r.TypeDesinfection, r.Cycle, r.TestEtancheite,
		r.HeureDebut, r.HeureFin, r.ProcedureMedicale, r.Salle, r.TypeActe,
		r.EtatEndoscope, r.NaturePanne, r.ID,
	)
}

// DeleteSterilisationReport deletes a report by ID
func (d *Database) DeleteSterilisationReport(id int64) error {
	return d.execOne(`DELETE FROM sterilisation_reports WHERE id = ?`, id)
}

// PurgeSterilisationReports deletes every sterilisation report
func (d *Database) PurgeSterilisationReports() (int64, error) {
	return d.execAll(`DELETE FROM sterilisation_reports`)
}
