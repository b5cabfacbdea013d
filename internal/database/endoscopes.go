package database

import (
	"github.com/endotrace/endotrace/internal/database/models"
)

const endoscopeColumns = `id, designation, marque, modele, numero_serie, etat, observation,
	localisation, created_by, created_at, updated_at`

var endoscopeSortable = map[string]bool{
	"designation":  true,
	"marque":       true,
	"modele":       true,
	"numero_serie": true,
	"etat":         true,
	"localisation": true,
	"created_by":   true,
	"created_at":   true,
	"updated_at":   true,
}

// EndoscopeFilter narrows ListEndoscopes. Empty fields do not filter.
type EndoscopeFilter struct {
	Etats         []string
	Marques       []string
	Localisations []string
	CreatedBy     []string
	Search        string // designation, modele or numero_serie contain it, ignoring case
	SortBy        string
	Ascending     bool
}

func scanEndoscope(s scanner) (*models.Endoscope, error) {
	var e models.Endoscope
	err := s.Scan(
		&e.ID, &e.Designation, &e.Marque, &e.Modele, &e.NumeroSerie, &e.Etat, &e.Observation,
		&e.Localisation, &e.CreatedBy, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// CreateEndoscope inserts a new endoscope and sets its ID
func (d *Database) CreateEndoscope(e *models.Endoscope) error {
	id, err := d.insert(`INSERT INTO endoscopes
	          (designation, marque, modele, numero_serie, etat, observation, localisation, created_by, created_at, updated_at)
	          VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.Designation, e.Marque, e.Modele, e.NumeroSerie, e.Etat, e.Observation,
		e.Localisation, e.CreatedBy, e.CreatedAt, e.UpdatedAt,
	)
	if err != nil {
		return err
	}
	e.ID = id
	return nil
}

// GetEndoscope retrieves an endoscope by ID
func (d *Database) GetEndoscope(id int64) (*models.Endoscope, error) {
	row := d.db.QueryRow(d.rebind(`SELECT `+endoscopeColumns+` FROM endoscopes WHERE id = ?`), id)
	return scanEndoscope(row)
}

// ListEndoscopes retrieves endoscopes matching filter, newest first unless a sort is requested
func (d *Database) ListEndoscopes(filter EndoscopeFilter) ([]*models.Endoscope, error) {
	var w where
	w.in("etat", filter.Etats)
	w.in("marque", filter.Marques)
	w.in("localisation", filter.Localisations)
	w.in("created_by", filter.CreatedBy)
	w.contains([]string{"designation", "modele", "numero_serie"}, filter.Search)

	query := `SELECT ` + endoscopeColumns + ` FROM endoscopes` + w.String() +
		orderBy(endoscopeSortable, "created_at", filter.SortBy, filter.Ascending)

	rows, err := d.db.Query(d.rebind(query), w.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var endoscopes []*models.Endoscope
	for rows.Next() {
		e, err := scanEndoscope(rows)
		if err != nil {
			return nil, err
		}
		endoscopes = append(endoscopes, e)
	}

	return endoscopes, rows.Err()
}

// UpdateEndoscope writes every mutable column; created_by and created_at are never touched
func (d *Database) UpdateEndoscope(e *models.Endoscope) error {
	return d.execOne(`UPDATE endoscopes SET
	          designation = ?, marque = ?, modele = ?, numero_serie = ?, etat = ?,
	          observation = ?, localisation = ?, updated_at = ?
	          WHERE id = ?`,
		e.Designation, e.Marque, e.Modele, e.NumeroSerie, e.Etat,
		e.Observation, e.Localisation, e.UpdatedAt, e.ID,
	)
}

// DeleteEndoscope deletes an endoscope by ID
func (d *Database) DeleteEndoscope(id int64) error {
	return d.execOne(`DELETE FROM endoscopes WHERE id = ?`, id)
}

// PurgeEndoscopes deletes every endoscope and returns how many were removed
func (d *Database) PurgeEndoscopes() (int64, error) {
	return d.execAll(`DELETE FROM endoscopes`)
}
