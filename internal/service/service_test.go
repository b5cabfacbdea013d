package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/endotrace/endotrace/internal/auth"
	"github.com/endotrace/endotrace/internal/config"
	"github.com/endotrace/endotrace/internal/database"
	"github.com/endotrace/endotrace/internal/database/models"
	"github.com/endotrace/endotrace/internal/policy"
)

func init() {
	auth.BcryptCost = bcrypt.MinCost
}

var (
	admin = policy.Actor{Username: "admin", Role: models.RoleAdmin}
	bob   = policy.Actor{Username: "bob", Role: models.RoleBiomedical}
	dave  = policy.Actor{Username: "dave", Role: models.RoleBiomedical}
	carol = policy.Actor{Username: "carol", Role: models.RoleSterilisation}
)

// setupTestDB creates a test database with migrations
func setupTestDB(t *testing.T) (*database.Database, *config.Config) {
	dbPath := t.TempDir() + "/test.db"

	cfg := &config.Config{
		Database: config.DatabaseConfig{
			Type: "sqlite",
			SQLite: config.SQLiteConfig{
				Path: dbPath,
			},
		},
		JWT: config.JWTConfig{
			Secret:     "test-secret-12345",
			Expiration: 24 * time.Hour,
			Issuer:     "endotrace-test",
		},
	}

	db, err := database.New(cfg)
	require.NoError(t, err, "Failed to create test database")
	t.Cleanup(func() { db.Close() })

	err = db.Migrate()
	require.NoError(t, err, "Failed to run migrations")

	return db, cfg
}

func strptr(s string) *string {
	return &s
}

func endoscopeInput(serial string) EndoscopeInput {
	return EndoscopeInput{
		Designation:  "Gastroscope",
		Marque:       "Olympus",
		Modele:       "GIF-H190",
		NumeroSerie:  serial,
		Etat:         models.EtatFonctionnel,
		Localisation: models.LocalisationEnStock,
	}
}

func brokenEndoscopeInput(serial string) EndoscopeInput {
	in := endoscopeInput(serial)
	in.Etat = models.EtatEnPanne
	in.Observation = strptr("Gaine percée")
	return in
}

func sterilisationInput() SterilisationInput {
	return SterilisationInput{
		Endoscope:          "Gastroscope",
		NumeroSerie:        "SN-001",
		MedecinResponsable: "Dr Martin",
		DateDesinfection:   "2025-03-10",
		TypeDesinfection:   models.DesinfectionAutomatique,
		Cycle:              models.CycleComplet,
		TestEtancheite:     models.EtancheiteReussi,
		HeureDebut:         "08:00",
		HeureFin:           "08:45",
		Salle:              "Salle 2",
		TypeActe:           "Gastroscopie",
		EtatEndoscope:      models.EtatFonctionnel,
	}
}
