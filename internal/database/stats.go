package database

import (
	"math"

	"github.com/endotrace/endotrace/internal/database/models"
)

// CountEndoscopes returns the inventory size
func (d *Database) CountEndoscopes() (int, error) {
	return d.count(`SELECT COUNT(*) FROM endoscopes`)
}

// CountEndoscopesByEtat groups the inventory by state
func (d *Database) CountEndoscopesByEtat() ([]models.LabelCount, error) {
	return d.labelCounts(`SELECT etat, COUNT(*) FROM endoscopes GROUP BY etat ORDER BY etat`)
}

// CountEndoscopesByLocalisation groups the inventory by location
func (d *Database) CountEndoscopesByLocalisation() ([]models.LabelCount, error) {
	return d.labelCounts(`SELECT localisation, COUNT(*) FROM endoscopes GROUP BY localisation ORDER BY localisation`)
}

// CountUsersByRole groups user accounts by role
func (d *Database) CountUsersByRole() ([]models.LabelCount, error) {
	return d.labelCounts(`SELECT role, COUNT(*) FROM users GROUP BY role ORDER BY role`)
}

func (d *Database) labelCounts(query string) ([]models.LabelCount, error) {
	rows, err := d.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := []models.LabelCount{}
	for rows.Next() {
		var lc models.LabelCount
		if err := rows.Scan(&lc.Label, &lc.Count); err != nil {
			return nil, err
		}
		counts = append(counts, lc)
	}

	return counts, rows.Err()
}

// MalfunctionCounts returns how many endoscopes are broken out of the whole inventory
func (d *Database) MalfunctionCounts() (broken, total int, err error) {
	err = d.db.QueryRow(d.rebind(`SELECT COUNT(*), COALESCE(SUM(CASE WHEN etat = ? THEN 1 ELSE 0 END), 0) FROM endoscopes`),
		models.EtatEnPanne).Scan(&total, &broken)
	return broken, total, err
}

// AvailabilityByDesignation computes functional and broken ratios per endoscope designation
func (d *Database) AvailabilityByDesignation() ([]models.Availability, error) {
	rows, err := d.db.Query(d.rebind(`SELECT designation, COUNT(*),
	          COALESCE(SUM(CASE WHEN etat = ? THEN 1 ELSE 0 END), 0)
	          FROM endoscopes GROUP BY designation ORDER BY designation`), models.EtatEnPanne)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := []models.Availability{}
	for rows.Next() {
		var a models.Availability
		if err := rows.Scan(&a.Designation, &a.Total, &a.Broken); err != nil {
			return nil, err
		}
		a.Functional = a.Total - a.Broken
		if a.Total > 0 {
			a.AvailabilityPct = roundTenth(float64(a.Functional) / float64(a.Total) * 100)
			a.UnavailabilityPct = roundTenth(100 - a.AvailabilityPct)
		}
		stats = append(stats, a)
	}

	return stats, rows.Err()
}

// Statistics returns table totals for the administration page
func (d *Database) Statistics() (*models.DatabaseStatistics, error) {
	var stats models.DatabaseStatistics
	var err error

	if stats.TotalUsers, err = d.count(`SELECT COUNT(*) FROM users`); err != nil {
		return nil, err
	}
	if stats.TotalEndoscopes, err = d.count(`SELECT COUNT(*) FROM endoscopes`); err != nil {
		return nil, err
	}
	if stats.TotalSterilisationReports, err = d.count(`SELECT COUNT(*) FROM sterilisation_reports`); err != nil {
		return nil, err
	}
	if stats.TotalUsageReports, err = d.count(`SELECT COUNT(*) FROM usage_reports`); err != nil {
		return nil, err
	}
	if stats.UsersByRole, err = d.CountUsersByRole(); err != nil {
		return nil, err
	}

	return &stats, nil
}

func roundTenth(v float64) float64 {
	return math.Round(v*10) / 10
}
