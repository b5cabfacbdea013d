// Package models defines the data structures for database entities in EndoTrace.
// It includes models for users, endoscopes, sterilisation reports, legacy usage
// reports and system configuration, plus the aggregate rows returned by the
// dashboard queries.
package models

import "time"

// Roles
const (
	RoleAdmin         = "admin"
	RoleBiomedical    = "biomedical"
	RoleSterilisation = "sterilisation"
)

// ProtectedUsername is the account that can never be deleted or demoted
const ProtectedUsername = "admin"

// Equipment states shared by endoscopes and reports
const (
	EtatFonctionnel = "fonctionnel"
	EtatEnPanne     = "en panne"
)

// Endoscope locations
const (
	LocalisationEnUtilisation = "En utilisation"
	LocalisationEnStock       = "En stock"
	LocalisationSterilisation = "En zone de stérilisation"
	LocalisationEnExterne     = "En externe"
	LocalisationEnReforme     = "En réforme"
)

// Localisations lists every accepted endoscope location
var Localisations = []string{
	LocalisationEnUtilisation,
	LocalisationEnStock,
	LocalisationSterilisation,
	LocalisationEnExterne,
	LocalisationEnReforme,
}

// Sterilisation cycle values
const (
	DesinfectionManuel      = "manuel"
	DesinfectionAutomatique = "automatique"
	CycleComplet            = "complet"
	CycleIncomplet          = "incomplet"
	EtancheiteReussi        = "réussi"
	EtancheiteEchoue        = "échoué"
)

// User represents a system user
type User struct {
	ID           int64     `db:"id" json:"id"`
	Username     string    `db:"username" json:"username"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Role         string    `db:"role" json:"role"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// Endoscope represents an inventory device
type Endoscope struct {
	ID           int64     `db:"id" json:"id"`
	Designation  string    `db:"designation" json:"designation"`
	Marque       string    `db:"marque" json:"marque"`
	Modele       string    `db:"modele" json:"modele"`
	NumeroSerie  string    `db:"numero_serie" json:"numero_serie"`
	Etat         string    `db:"etat" json:"etat"`
	Observation  *string   `db:"observation" json:"observation"`
	Localisation string    `db:"localisation" json:"localisation"`
	CreatedBy    string    `db:"created_by" json:"created_by"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// SterilisationReport records one disinfection cycle of an endoscope
type SterilisationReport struct {
	ID                 int64     `db:"id" json:"id"`
	NomOperateur       string    `db:"nom_operateur" json:"nom_operateur"`
	Endoscope          string    `db:"endoscope" json:"endoscope"`
	NumeroSerie        string    `db:"numero_serie" json:"numero_serie"`
	MedecinResponsable string    `db:"medecin_responsable" json:"medecin_responsable"`
	DateDesinfection   string    `db:"date_desinfection" json:"date_desinfection"`
	TypeDesinfection   string    `db:"type_desinfection" json:"type_desinfection"`
	Cycle              string    `db:"cycle" json:"cycle"`
	TestEtancheite     string    `db:"test_etancheite" json:"test_etancheite"`
	HeureDebut         string    `db:"heure_debut" json:"heure_debut"`
	HeureFin           string    `db:"heure_fin" json:"heure_fin"`
	ProcedureMedicale  *string   `db:"procedure_medicale" json:"procedure_medicale"`
	Salle              string    `db:"salle" json:"salle"`
	TypeActe           string    `db:"type_acte" json:"type_acte"`
	EtatEndoscope      string    `db:"etat_endoscope" json:"etat_endoscope"`
	NaturePanne        *string   `db:"nature_panne" json:"nature_panne"`
	Origin             string    `db:"origin" json:"origin"`
	CreatedBy          string    `db:"created_by" json:"created_by"`
	CreatedAt          time.Time `db:"created_at" json:"created_at"`
}

// Report origins
const (
	OriginSterilisation = "sterilisation"
	OriginUsageReport   = "usage_report"
)

// UsageReport is the legacy, simplified predecessor of SterilisationReport
type UsageReport struct {
	ID              int64     `db:"id" json:"id"`
	NomOperateur    string    `db:"nom_operateur" json:"nom_operateur"`
	Endoscope       string    `db:"endoscope" json:"endoscope"`
	NumeroSerie     string    `db:"numero_serie" json:"numero_serie"`
	Medecin         string    `db:"medecin" json:"medecin"`
	Etat            string    `db:"etat" json:"etat"`
	NaturePanne     *string   `db:"nature_panne" json:"nature_panne"`
	CreatedBy       string    `db:"created_by" json:"created_by"`
	DateUtilisation time.Time `db:"date_utilisation" json:"date_utilisation"`
}

// SystemConfig represents system-wide configuration stored in the database
type SystemConfig struct {
	Key       string    `db:"key"`
	Value     string    `db:"value"`
	UpdatedAt time.Time `db:"updated_at"`
}

// LabelCount is one row of a GROUP BY count
type LabelCount struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// Availability summarises functional versus broken devices of one designation
type Availability struct {
	Designation       string  `json:"designation"`
	Total             int     `json:"total"`
	Functional        int     `json:"functional"`
	Broken            int     `json:"broken"`
	AvailabilityPct   float64 `json:"availability_pct"`
	UnavailabilityPct float64 `json:"unavailability_pct"`
}

// DatabaseStatistics holds table totals for the administration page
type DatabaseStatistics struct {
	TotalUsers                int          `json:"total_users"`
	TotalEndoscopes           int          `json:"total_endoscopes"`
	TotalSterilisationReports int          `json:"total_sterilisation_reports"`
	TotalUsageReports         int          `json:"total_usage_reports"`
	UsersByRole               []LabelCount `json:"users_by_role"`
}
