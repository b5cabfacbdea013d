package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/endotrace/endotrace/internal/database"
	"github.com/endotrace/endotrace/internal/database/models"
)

func TestAdminService(t *testing.T) {
	db, cfg := setupTestDB(t)
	alerter := &mockAlerter{}
	monitor := NewMalfunctionMonitor(db, alerter, 50, zap.NewNop(), nil)
	admins := NewAdminService(db, monitor, zap.NewNop(), nil)
	endoscopes := NewEndoscopeService(db, nil, nil)
	reports := NewSterilisationService(db, nil)
	usage := NewUsageService(db, nil)
	users := NewUserService(db, cfg, nil)
	ctx := context.Background()

	_, err := users.PerformInitialSetup(&SetupRequest{Password: "adminpass"})
	require.NoError(t, err)
	_, err = users.CreateUser(admin, &CreateUserRequest{Username: "bob", Password: "pw", Role: models.RoleBiomedical})
	require.NoError(t, err)
	_, err = endoscopes.CreateEndoscope(ctx, bob, endoscopeInput("SN-001"))
	require.NoError(t, err)
	_, err = reports.CreateSterilisationReport(carol, sterilisationInput())
	require.NoError(t, err)
	legacy := usageInput()
	legacy.Etat = models.EtatEnPanne
	legacy.NaturePanne = strptr("Optique rayée")
	_, err = usage.CreateUsageReport(carol, legacy)
	require.NoError(t, err)

	t.Run("Statistics", func(t *testing.T) {
		stats, err := admins.DatabaseStatistics(admin)
		require.NoError(t, err)
		assert.Equal(t, 2, stats.TotalUsers)
		assert.Equal(t, 1, stats.TotalEndoscopes)
		assert.Equal(t, 1, stats.TotalSterilisationReports)
		assert.Equal(t, 1, stats.TotalUsageReports)
		assert.Len(t, stats.UsersByRole, 2)

		_, err = admins.DatabaseStatistics(bob)
		assert.ErrorIs(t, err, ErrPermissionDenied)
	})

	t.Run("Only admins purge", func(t *testing.T) {
		_, err := admins.PurgeEndoscopes(ctx, bob)
		assert.ErrorIs(t, err, ErrPermissionDenied)
		_, err = admins.PurgeSterilisationReports(carol)
		assert.ErrorIs(t, err, ErrPermissionDenied)
		_, err = admins.MigrateUsageReports(carol)
		assert.ErrorIs(t, err, ErrPermissionDenied)
	})

	t.Run("Migrate usage reports", func(t *testing.T) {
		n, err := admins.MigrateUsageReports(admin)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		left, err := usage.ListUsageReports(admin)
		require.NoError(t, err)
		assert.Empty(t, left)

		migrated, err := reports.ListSterilisationReports(admin, database.SterilisationReportFilter{EtatsEndoscope: []string{models.EtatEnPanne}})
		require.NoError(t, err)
		require.Len(t, migrated, 1)
		assert.Equal(t, models.OriginUsageReport, migrated[0].Origin)
		assert.Equal(t, "carol", migrated[0].CreatedBy)
		assert.Equal(t, "Dr Martin", migrated[0].MedecinResponsable)
	})

	t.Run("Purge", func(t *testing.T) {
		n, err := admins.PurgeEndoscopes(ctx, admin)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		n, err = admins.PurgeSterilisationReports(admin)
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)

		n, err = admins.PurgeUsageReports(admin)
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	t.Run("Alert test", func(t *testing.T) {
		alerter.On("TestConnection", mock.Anything).Return(nil)
		alerter.On("SendMalfunctionAlert", mock.Anything, 0.0, 0, 0).Return(nil)

		_, err := admins.TestAlerts(ctx, bob)
		assert.ErrorIs(t, err, ErrPermissionDenied)

		status, err := admins.TestAlerts(ctx, admin)
		require.NoError(t, err)
		assert.Zero(t, status.Total)
		alerter.AssertExpectations(t)
	})
}
