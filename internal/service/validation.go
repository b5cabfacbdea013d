package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/endotrace/endotrace/internal/auth"
	"github.com/endotrace/endotrace/internal/database/models"
)

const (
	clockLayout = "15:04"
	dateLayout  = "2006-01-02"
)

type field struct {
	name  string
	value string
}

// required rejects the first field that is empty once trimmed
func required(fields ...field) error {
	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			return &ValidationError{Field: f.name, Message: "is required"}
		}
	}
	return nil
}

func oneOf(name, value string, allowed ...string) error {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return &ValidationError{Field: name, Message: "must be one of " + strings.Join(allowed, ", ")}
}

func validEtat(name, value string) error {
	return oneOf(name, value, models.EtatFonctionnel, models.EtatEnPanne)
}

func validRole(role string) error {
	return oneOf("role", role, models.RoleAdmin, models.RoleBiomedical, models.RoleSterilisation)
}

// validPassword requires a non-blank password that bcrypt can hash
func validPassword(password string) error {
	if err := required(field{"password", password}); err != nil {
		return err
	}
	if len(password) > auth.MaxPasswordLength {
		return &ValidationError{Field: "password", Message: fmt.Sprintf("must be at most %d bytes", auth.MaxPasswordLength)}
	}
	return nil
}

func parseClock(name, value string) (time.Time, error) {
	t, err := time.Parse(clockLayout, value)
	if err != nil || len(value) != len(clockLayout) {
		return time.Time{}, &ValidationError{Field: name, Message: "must be a time formatted HH:MM"}
	}
	return t, nil
}

// validateTimes requires both clock times to parse and the end to be strictly later
func validateTimes(debut, fin string) error {
	start, err := parseClock("heure_debut", debut)
	if err != nil {
		return err
	}
	end, err := parseClock("heure_fin", fin)
	if err != nil {
		return err
	}
	if !end.After(start) {
		return &ValidationError{Field: "heure_fin", Message: "must be later than heure_debut"}
	}
	return nil
}

func validateDate(name, value string) error {
	if _, err := time.Parse(dateLayout, value); err != nil || len(value) != len(dateLayout) {
		return &ValidationError{Field: name, Message: "must be a date formatted YYYY-MM-DD"}
	}
	return nil
}

// naturePanne enforces the conditional field: required when broken, cleared when functional
func naturePanne(etat string, value *string) (*string, error) {
	if etat != models.EtatEnPanne {
		return nil, nil
	}
	v := optional(value)
	if v == nil {
		return nil, &ValidationError{Field: "nature_panne", Message: "is required when the endoscope is en panne"}
	}
	return v, nil
}

// optional trims s and turns blank values into nil
func optional(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
