package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/endotrace/endotrace/internal/database"
	"github.com/endotrace/endotrace/internal/database/models"
)

func requireValidationField(t *testing.T, err error, field string) {
	t.Helper()
	var verr *ValidationError
	require.True(t, errors.As(err, &verr), "expected a validation error, got %v", err)
	assert.Equal(t, field, verr.Field)
}

func TestSterilisationService_Create(t *testing.T) {
	db, _ := setupTestDB(t)
	reports := NewSterilisationService(db, nil)

	t.Run("Operator defaults to the actor", func(t *testing.T) {
		r, err := reports.CreateSterilisationReport(carol, sterilisationInput())
		require.NoError(t, err)
		assert.Equal(t, "carol", r.NomOperateur)
		assert.Equal(t, "carol", r.CreatedBy)
		assert.Equal(t, models.OriginSterilisation, r.Origin)
		assert.Nil(t, r.NaturePanne)
	})

	t.Run("End before start is rejected", func(t *testing.T) {
		in := sterilisationInput()
		in.HeureDebut = "08:00"
		in.HeureFin = "07:30"
		_, err := reports.CreateSterilisationReport(carol, in)
		requireValidationField(t, err, "heure_fin")
	})

	t.Run("Equal times are rejected", func(t *testing.T) {
		in := sterilisationInput()
		in.HeureFin = in.HeureDebut
		_, err := reports.CreateSterilisationReport(carol, in)
		requireValidationField(t, err, "heure_fin")
	})

	t.Run("Unparsable start time", func(t *testing.T) {
		in := sterilisationInput()
		in.HeureDebut = "8h"
		_, err := reports.CreateSterilisationReport(carol, in)
		requireValidationField(t, err, "heure_debut")
	})

	t.Run("Times need two-digit hours", func(t *testing.T) {
		in := sterilisationInput()
		in.HeureDebut = "8:00"
		_, err := reports.CreateSterilisationReport(carol, in)
		requireValidationField(t, err, "heure_debut")

		in = sterilisationInput()
		in.HeureFin = "9:05"
		_, err = reports.CreateSterilisationReport(carol, in)
		requireValidationField(t, err, "heure_fin")
	})

	t.Run("Broken endoscope requires nature_panne", func(t *testing.T) {
		in := sterilisationInput()
		in.EtatEndoscope = models.EtatEnPanne
		in.NaturePanne = strptr("   ")
		_, err := reports.CreateSterilisationReport(carol, in)
		requireValidationField(t, err, "nature_panne")

		in.NaturePanne = strptr("Fuite au test d'étanchéité")
		r, err := reports.CreateSterilisationReport(carol, in)
		require.NoError(t, err)
		require.NotNil(t, r.NaturePanne)
		assert.Equal(t, "Fuite au test d'étanchéité", *r.NaturePanne)
	})

	t.Run("Functional endoscope clears nature_panne", func(t *testing.T) {
		in := sterilisationInput()
		in.NaturePanne = strptr("ignored")
		r, err := reports.CreateSterilisationReport(carol, in)
		require.NoError(t, err)
		assert.Nil(t, r.NaturePanne)
	})

	t.Run("Enumerations and date", func(t *testing.T) {
		tests := []struct {
			field string
			edit  func(*SterilisationInput)
		}{
			{"type_desinfection", func(in *SterilisationInput) { in.TypeDesinfection = "vapeur" }},
			{"cycle", func(in *SterilisationInput) { in.Cycle = "partiel" }},
			{"test_etancheite", func(in *SterilisationInput) { in.TestEtancheite = "ok" }},
			{"etat_endoscope", func(in *SterilisationInput) { in.EtatEndoscope = "perdu" }},
			{"date_desinfection", func(in *SterilisationInput) { in.DateDesinfection = "10/03/2025" }},
			{"medecin_responsable", func(in *SterilisationInput) { in.MedecinResponsable = "" }},
		}
		for _, tt := range tests {
			t.Run(tt.field, func(t *testing.T) {
				in := sterilisationInput()
				tt.edit(&in)
				_, err := reports.CreateSterilisationReport(carol, in)
				requireValidationField(t, err, tt.field)
			})
		}
	})

	t.Run("Rejected inputs add no row", func(t *testing.T) {
		all, err := reports.ListSterilisationReports(admin, database.SterilisationReportFilter{})
		require.NoError(t, err)
		assert.Len(t, all, 3)
	})
}

func TestSterilisationService_EndoscopeReference(t *testing.T) {
	db, _ := setupTestDB(t)
	endoscopes := NewEndoscopeService(db, nil, nil)
	reports := NewSterilisationService(db, nil)

	in := endoscopeInput("SN-042")
	in.Designation = "Coloscope"
	e, err := endoscopes.CreateEndoscope(context.Background(), bob, in)
	require.NoError(t, err)

	t.Run("Name and serial are copied from the inventory", func(t *testing.T) {
		sin := sterilisationInput()
		sin.EndoscopeID = &e.ID
		sin.Endoscope = ""
		sin.NumeroSerie = "wrong"
		r, err := reports.CreateSterilisationReport(carol, sin)
		require.NoError(t, err)
		assert.Equal(t, "Coloscope", r.Endoscope)
		assert.Equal(t, "SN-042", r.NumeroSerie)
	})

	t.Run("Unknown endoscope", func(t *testing.T) {
		missing := int64(9999)
		sin := sterilisationInput()
		sin.EndoscopeID = &missing
		_, err := reports.CreateSterilisationReport(carol, sin)
		requireValidationField(t, err, "endoscope_id")
	})
}

func TestSterilisationService_Ownership(t *testing.T) {
	db, _ := setupTestDB(t)
	reports := NewSterilisationService(db, nil)

	bobs, err := reports.CreateSterilisationReport(bob, sterilisationInput())
	require.NoError(t, err)
	carols, err := reports.CreateSterilisationReport(carol, sterilisationInput())
	require.NoError(t, err)

	t.Run("Sterilisation user cannot delete another user's report", func(t *testing.T) {
		err := reports.DeleteSterilisationReport(carol, bobs.ID)
		assert.ErrorIs(t, err, ErrPermissionDenied)

		_, err = reports.GetSterilisationReport(carol, bobs.ID)
		assert.NoError(t, err, "the row remains")
	})

	t.Run("Sterilisation user cannot update another user's report", func(t *testing.T) {
		in := sterilisationInput()
		in.Salle = "Salle 9"
		_, err := reports.UpdateSterilisationReport(carol, bobs.ID, in)
		assert.ErrorIs(t, err, ErrPermissionDenied)
	})

	t.Run("Owner updates keep operator and ownership", func(t *testing.T) {
		in := sterilisationInput()
		in.Salle = "Salle 5"
		updated, err := reports.UpdateSterilisationReport(carol, carols.ID, in)
		require.NoError(t, err)
		assert.Equal(t, "Salle 5", updated.Salle)
		assert.Equal(t, "carol", updated.NomOperateur)
		assert.Equal(t, "carol", updated.CreatedBy)
	})

	t.Run("Update validates like create", func(t *testing.T) {
		in := sterilisationInput()
		in.EtatEndoscope = models.EtatEnPanne
		_, err := reports.UpdateSterilisationReport(carol, carols.ID, in)
		requireValidationField(t, err, "nature_panne")
	})

	t.Run("Own listing", func(t *testing.T) {
		mine, err := reports.ListOwnSterilisationReports(carol, database.SterilisationReportFilter{})
		require.NoError(t, err)
		require.Len(t, mine, 1)
		assert.Equal(t, carols.ID, mine[0].ID)
	})

	t.Run("Blank operator on update keeps the recorded operator", func(t *testing.T) {
		in := sterilisationInput()
		in.NomOperateur = "Carol Op"
		r, err := reports.CreateSterilisationReport(carol, in)
		require.NoError(t, err)

		in.NomOperateur = "   "
		in.Salle = "Salle 7"
		updated, err := reports.UpdateSterilisationReport(admin, r.ID, in)
		require.NoError(t, err)
		assert.Equal(t, "Carol Op", updated.NomOperateur)
		assert.Equal(t, "carol", updated.CreatedBy)

		stored, err := reports.GetSterilisationReport(admin, r.ID)
		require.NoError(t, err)
		assert.Equal(t, "Carol Op", stored.NomOperateur)
		assert.Equal(t, "Salle 7", stored.Salle)
	})

	t.Run("Admin deletes anyone's report", func(t *testing.T) {
		require.NoError(t, reports.DeleteSterilisationReport(admin, bobs.ID))
		_, err := reports.GetSterilisationReport(admin, bobs.ID)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}
