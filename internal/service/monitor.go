package service

import (
	"context"
	"database/sql"
	"errors"
	"math"
	"strconv"

	"go.uber.org/zap"

	"github.com/endotrace/endotrace/internal/database"
	"github.com/endotrace/endotrace/internal/metrics"
)

const alertActiveKey = "malfunction_alert_active"

// Alerter delivers the malfunction alert
type Alerter interface {
	SendMalfunctionAlert(ctx context.Context, percentage float64, broken, total int) error
	TestConnection(ctx context.Context) error
}

// MalfunctionStatus is the share of the inventory that is out of service
type MalfunctionStatus struct {
	Percentage float64 `json:"percentage"`
	Broken     int     `json:"broken"`
	Total      int     `json:"total"`
	Threshold  float64 `json:"threshold"`
	Critical   bool    `json:"critical"`
}

// MalfunctionMonitor sends one alert each time the malfunction rate crosses the threshold
type MalfunctionMonitor struct {
	db        *database.Database
	alerter   Alerter
	threshold float64
	logger    *zap.Logger
	metrics   *metrics.Metrics
}

// NewMalfunctionMonitor creates a monitor. A nil alerter only computes the status.
func NewMalfunctionMonitor(db *database.Database, alerter Alerter, threshold float64, logger *zap.Logger, m *metrics.Metrics) *MalfunctionMonitor {
	return &MalfunctionMonitor{
		db:        db,
		alerter:   alerter,
		threshold: threshold,
		logger:    logger,
		metrics:   m,
	}
}

// Status computes the current malfunction figures
func (m *MalfunctionMonitor) Status() (*MalfunctionStatus, error) {
	broken, total, err := m.db.MalfunctionCounts()
	if err != nil {
		return nil, storeError("count malfunctions", err, "")
	}

	status := &MalfunctionStatus{Broken: broken, Total: total, Threshold: m.threshold}
	if total > 0 {
		status.Percentage = math.Round(float64(broken)/float64(total)*1000) / 10
	}
	status.Critical = status.Percentage > m.threshold
	return status, nil
}

// Check is called after every committed inventory change. Its failures are
// logged and never returned: the change has already been stored.
func (m *MalfunctionMonitor) Check(ctx context.Context) {
	status, err := m.Status()
	if err != nil {
		m.logger.Warn("Failed to compute malfunction status", zap.Error(err))
		return
	}

	active := m.alertActive()
	switch {
	case status.Critical && !active:
		if m.alerter == nil {
			return
		}
		err := m.alerter.SendMalfunctionAlert(ctx, status.Percentage, status.Broken, status.Total)
		m.metrics.ObserveAlert(err)
		if err != nil {
			m.logger.Warn("Failed to send malfunction alert",
				zap.Float64("percentage", status.Percentage),
				zap.Error(err),
			)
			return
		}
		m.logger.Info("Malfunction alert sent",
			zap.Float64("percentage", status.Percentage),
			zap.Int("broken", status.Broken),
			zap.Int("total", status.Total),
		)
		m.setAlertActive(true)
	case !status.Critical && active:
		m.setAlertActive(false)
	}
}

func (m *MalfunctionMonitor) alertActive() bool {
	v, err := m.db.GetSystemConfig(alertActiveKey)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			m.logger.Warn("Failed to read alert state", zap.Error(err))
		}
		return false
	}
	active, _ := strconv.ParseBool(v)
	return active
}

func (m *MalfunctionMonitor) setAlertActive(active bool) {
	if err := m.db.SetSystemConfig(alertActiveKey, strconv.FormatBool(active)); err != nil {
		m.logger.Warn("Failed to store alert state", zap.Error(err))
	}
}

// SendTest mails the current figures regardless of the threshold
func (m *MalfunctionMonitor) SendTest(ctx context.Context) (*MalfunctionStatus, error) {
	if m.alerter == nil {
		return nil, errors.New("no alerter configured")
	}
	status, err := m.Status()
	if err != nil {
		return nil, err
	}
	if err := m.alerter.TestConnection(ctx); err != nil {
		return status, err
	}
	err = m.alerter.SendMalfunctionAlert(ctx, status.Percentage, status.Broken, status.Total)
	m.metrics.ObserveAlert(err)
	return status, err
}
