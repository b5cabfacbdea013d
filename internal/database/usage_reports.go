package database

import (
	"fmt"

	"github.com/endotrace/endotrace/internal/database/models"
)

const usageColumns = `id, nom_operateur, endoscope, numero_serie, medecin, etat, nature_panne, created_by, date_utilisation`

func scanUsageReport(s scanner) (*models.UsageReport, error) {
	var r models.UsageReport
	err := s.Scan(
		&r.ID, &r.NomOperateur, &r.Endoscope, &r.NumeroSerie, &r.Medecin,
		&r.Etat, &r.NaturePanne, &r.CreatedBy, &r.DateUtilisation,
	)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// CreateUsageReport inserts a legacy usage report and sets its ID
func (d *Database) CreateUsageReport(r *models.UsageReport) error {
	id, err := d.insert(`INSERT INTO usage_reports
	          (nom_operateur, endoscope, numero_serie, medecin, etat, nature_panne, created_by, date_utilisation)
	          VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.NomOperateur, r.Endoscope, r.NumeroSerie, r.Medecin, r.Etat, r.NaturePanne, r.CreatedBy, r.DateUtilisation,
	)
	if err != nil {
		return err
	}
	r.ID = id
	return nil
}

// GetUsageReport retrieves a usage report by ID
func (d *Database) GetUsageReport(id int64) (*models.UsageReport, error) {
	row := d.db.QueryRow(d.rebind(`SELECT `+usageColumns+` FROM usage_reports WHERE id = ?`), id)
	return scanUsageReport(row)
}

// ListUsageReports retrieves usage reports, newest first. An empty createdBy lists all of them.
func (d *Database) ListUsageReports(createdBy string) ([]*models.UsageReport, error) {
	var w where
	w.eq("created_by", createdBy)

	query := `SELECT ` + usageColumns + ` FROM usage_reports` + w.String() +
		` ORDER BY date_utilisation DESC, id DESC`

	rows, err := d.db.Query(d.rebind(query), w.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reports []*models.UsageReport
	for rows.Next() {
		r, err := scanUsageReport(rows)
		if err != nil {
			return nil, err
		}
		reports = append(reports, r)
	}

	return reports, rows.Err()
}

// UpdateUsageReport writes the mutable columns of a usage report
func (d *Database) UpdateUsageReport(r *models.UsageReport) error {
	return d.execOne(`UPDATE usage_reports SET
	          nom_operateur = ?, endoscope = ?, numero_serie = ?, medecin = ?, etat = ?, nature_panne = ?
	          WHERE id = ?`,
		r.NomOperateur, r.Endoscope, r.NumeroSerie, r.Medecin, r.Etat, r.NaturePanne, r.ID,
	)
}

// DeleteUsageReport deletes a usage report by ID
func (d *Database) DeleteUsageReport(id int64) error {
	return d.execOne(`DELETE FROM usage_reports WHERE id = ?`, id)
}

// PurgeUsageReports deletes every usage report
func (d *Database) PurgeUsageReports() (int64, error) {
	return d.execAll(`DELETE FROM usage_reports`)
}

// MigrateUsageReports moves every legacy usage report into sterilisation_reports
// in a single transaction and returns how many rows were moved.
func (d *Database) MigrateUsageReports() (int64, error) {
	tx, err := d.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	rows, err := tx.Query(`SELECT ` + usageColumns + ` FROM usage_reports ORDER BY id`)
	if err != nil {
		return 0, fmt.Errorf("failed to read usage reports: %w", err)
	}

	var legacy []*models.UsageReport
	for rows.Next() {
		r, err := scanUsageReport(rows)
		if err != nil {
			rows.Close()
			return 0, err
		}
		legacy = append(legacy, r)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}

	insert := d.rebind(`INSERT INTO sterilisation_reports
	          (nom_operateur, endoscope, numero_serie, medecin_responsable, date_desinfection,
	           etat_endoscope, nature_panne, origin, created_by, created_at)
	          VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)

	for _, r := range legacy {
		_, err := tx.Exec(insert,
			r.NomOperateur, r.Endoscope, r.NumeroSerie, r.Medecin,
			r.DateUtilisation.UTC().Format("2006-01-02"),
			r.Etat, r.NaturePanne, models.OriginUsageReport, r.CreatedBy, r.DateUtilisation.UTC(),
		)
		if err != nil {
			return 0, fmt.Errorf("failed to migrate usage report %d: %w", r.ID, translateError(err))
		}
	}

	if _, err := tx.Exec(`DELETE FROM usage_reports`); err != nil {
		return 0, fmt.Errorf("failed to clear usage reports: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit migration: %w", err)
	}

	return int64(len(legacy)), nil
}
