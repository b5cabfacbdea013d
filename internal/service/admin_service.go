package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/endotrace/endotrace/internal/database"
	"github.com/endotrace/endotrace/internal/database/models"
	"github.com/endotrace/endotrace/internal/metrics"
	"github.com/endotrace/endotrace/internal/policy"
)

// AdminService runs maintenance operations reserved to administrators
type AdminService struct {
	db      *database.Database
	monitor *MalfunctionMonitor
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// NewAdminService creates a new admin service
func NewAdminService(db *database.Database, monitor *MalfunctionMonitor, logger *zap.Logger, m *metrics.Metrics) *AdminService {
	return &AdminService{db: db, monitor: monitor, logger: logger, metrics: m}
}

// DatabaseStatistics returns table totals and users by role
func (s *AdminService) DatabaseStatistics(actor policy.Actor) (*models.DatabaseStatistics, error) {
	if err := policy.Authorize(actor, policy.KindSystem, policy.ActionRead, ""); err != nil {
		return nil, err
	}
	stats, err := s.db.Statistics()
	if err != nil {
		return nil, storeError("database statistics", err, "")
	}
	return stats, nil
}

// PurgeEndoscopes deletes the whole inventory and returns the number of removed rows
func (s *AdminService) PurgeEndoscopes(ctx context.Context, actor policy.Actor) (n int64, err error) {
	defer func() { observe(s.metrics, policy.KindEndoscope, policy.ActionPurge, err) }()

	if err := policy.Authorize(actor, policy.KindEndoscope, policy.ActionPurge, ""); err != nil {
		return 0, err
	}
	if n, err = s.db.PurgeEndoscopes(); err != nil {
		return 0, storeError("purge endoscopes", err, "")
	}
	s.logger.Info("Endoscopes purged", zap.String("actor", actor.Username), zap.Int64("count", n))

	if s.monitor != nil {
		s.monitor.Check(ctx)
	}
	return n, nil
}

// PurgeSterilisationReports deletes every sterilisation report
func (s *AdminService) PurgeSterilisationReports(actor policy.Actor) (n int64, err error) {
	defer func() { observe(s.metrics, policy.KindSterilisationReport, policy.ActionPurge, err) }()

	if err := policy.Authorize(actor, policy.KindSterilisationReport, policy.ActionPurge, ""); err != nil {
		return 0, err
	}
	if n, err = s.db.PurgeSterilisationReports(); err != nil {
		return 0, storeError("purge sterilisation reports", err, "")
	}
	s.logger.Info("Sterilisation reports purged", zap.String("actor", actor.Username), zap.Int64("count", n))
	return n, nil
}

// PurgeUsageReports deletes every legacy usage report
func (s *AdminService) PurgeUsageReports(actor policy.Actor) (n int64, err error) {
	defer func() { observe(s.metrics, policy.KindUsageReport, policy.ActionPurge, err) }()

	if err := policy.Authorize(actor, policy.KindUsageReport, policy.ActionPurge, ""); err != nil {
		return 0, err
	}
	if n, err = s.db.PurgeUsageReports(); err != nil {
		return 0, storeError("purge usage reports", err, "")
	}
	s.logger.Info("Usage reports purged", zap.String("actor", actor.Username), zap.Int64("count", n))
	return n, nil
}

// MigrateUsageReports moves every legacy usage report into the sterilisation reports
func (s *AdminService) MigrateUsageReports(actor policy.Actor) (n int64, err error) {
	defer func() { observe(s.metrics, policy.KindSystem, policy.ActionUpdate, err) }()

	if err := policy.Authorize(actor, policy.KindSystem, policy.ActionUpdate, ""); err != nil {
		return 0, err
	}
	if n, err = s.db.MigrateUsageReports(); err != nil {
		return 0, storeError("migrate usage reports", err, "")
	}
	s.logger.Info("Usage reports migrated", zap.String("actor", actor.Username), zap.Int64("count", n))
	return n, nil
}

// TestAlerts checks the SMTP configuration by sending the current figures
func (s *AdminService) TestAlerts(ctx context.Context, actor policy.Actor) (*MalfunctionStatus, error) {
	if err := policy.Authorize(actor, policy.KindSystem, policy.ActionUpdate, ""); err != nil {
		return nil, err
	}
	return s.monitor.SendTest(ctx)
}
