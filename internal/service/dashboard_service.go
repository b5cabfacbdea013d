package service

import (
	"time"

	"github.com/endotrace/endotrace/internal/database"
	"github.com/endotrace/endotrace/internal/database/models"
	"github.com/endotrace/endotrace/internal/policy"
)

// DashboardService aggregates inventory figures for the dashboard
type DashboardService struct {
	db         *database.Database
	monitor    *MalfunctionMonitor
	recentDays int
}

// NewDashboardService creates a new dashboard service. recentDays is the
// window of the recent breakdown list; values below one mean 7.
func NewDashboardService(db *database.Database, monitor *MalfunctionMonitor, recentDays int) *DashboardService {
	if recentDays < 1 {
		recentDays = 7
	}
	return &DashboardService{db: db, monitor: monitor, recentDays: recentDays}
}

// DashboardStats is everything shown on the dashboard
type DashboardStats struct {
	TotalEndoscopes  int                           `json:"total_endoscopes"`
	ByEtat           []models.LabelCount           `json:"by_etat"`
	ByLocalisation   []models.LabelCount           `json:"by_localisation"`
	Malfunction      *MalfunctionStatus            `json:"malfunction"`
	Availability     []models.Availability         `json:"availability"`
	RecentBreakdowns []*models.SterilisationReport `json:"recent_breakdowns"`
	RecentDays       int                           `json:"recent_days"`
}

// DashboardStats computes the dashboard as of now
func (s *DashboardService) DashboardStats(actor policy.Actor) (*DashboardStats, error) {
	return s.statsAt(actor, time.Now().UTC())
}

func (s *DashboardService) statsAt(actor policy.Actor, now time.Time) (*DashboardStats, error) {
	if err := policy.Authorize(actor, policy.KindDashboard, policy.ActionRead, ""); err != nil {
		return nil, err
	}

	stats := &DashboardStats{RecentDays: s.recentDays}
	var err error

	if stats.TotalEndoscopes, err = s.db.CountEndoscopes(); err != nil {
		return nil, storeError("count endoscopes", err, "")
	}
	if stats.ByEtat, err = s.db.CountEndoscopesByEtat(); err != nil {
		return nil, storeError("count endoscopes by etat", err, "")
	}
	if stats.ByLocalisation, err = s.db.CountEndoscopesByLocalisation(); err != nil {
		return nil, storeError("count endoscopes by localisation", err, "")
	}
	if stats.Malfunction, err = s.monitor.Status(); err != nil {
		return nil, err
	}
	if stats.Availability, err = s.db.AvailabilityByDesignation(); err != nil {
		return nil, storeError("compute availability", err, "")
	}

	since := now.AddDate(0, 0, -s.recentDays).Format(dateLayout)
	stats.RecentBreakdowns, err = s.db.ListSterilisationReports(database.SterilisationReportFilter{
		Since:          since,
		EtatsEndoscope: []string{models.EtatEnPanne},
		SortBy:         "date_desinfection",
	})
	if err != nil {
		return nil, storeError("list recent breakdowns", err, "")
	}

	return stats, nil
}
