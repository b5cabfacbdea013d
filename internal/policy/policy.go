// Package policy decides which actor may perform which action on which kind of
// record. It performs no I/O: callers pass the acting identity and the owner of
// the record being touched, and get back nil or a typed error.
package policy

import (
	"errors"
	"fmt"

	"github.com/endotrace/endotrace/internal/database/models"
)

var (
	// ErrPermissionDenied is returned when an authenticated actor may not perform an action
	ErrPermissionDenied = errors.New("permission denied")
	// ErrUnauthenticated is returned when no valid identity is attached to a request
	ErrUnauthenticated = errors.New("authentication required")
)

// Actor is the identity performing an operation
type Actor struct {
	Username string
	Role     string
}

// Authenticated reports whether the actor carries a username and a known role
func (a Actor) Authenticated() bool {
	if a.Username == "" {
		return false
	}
	switch a.Role {
	case models.RoleAdmin, models.RoleBiomedical, models.RoleSterilisation:
		return true
	}
	return false
}

// IsAdmin reports whether the actor holds the admin role
func (a Actor) IsAdmin() bool {
	return a.Authenticated() && a.Role == models.RoleAdmin
}

// Kind names a class of protected resource
type Kind string

const (
	KindUser                Kind = "user"
	KindEndoscope           Kind = "endoscope"
	KindSterilisationReport Kind = "sterilisation_report"
	KindUsageReport         Kind = "usage_report"
	KindDashboard           Kind = "dashboard"
	KindArchive             Kind = "archive"
	// KindSystem covers maintenance: statistics, purges, migrations and alert tests
	KindSystem Kind = "system"
)

// Action names an operation on a resource
type Action string

const (
	ActionCreate Action = "create"
	ActionRead   Action = "read"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
	ActionPurge  Action = "purge"
)

// Authorize returns nil when actor may perform action on a record of kind owned by owner.
// owner is ignored for create, read and purge.
func Authorize(actor Actor, kind Kind, action Action, owner string) error {
	if !actor.Authenticated() {
		return ErrUnauthenticated
	}
	if actor.Role == models.RoleAdmin {
		return nil
	}

	if allowed(actor, kind, action, owner) {
		return nil
	}
	return fmt.Errorf("%w: %s may not %s %s", ErrPermissionDenied, actor.Role, action, kind)
}

func allowed(actor Actor, kind Kind, action Action, owner string) bool {
	if action == ActionPurge {
		return false
	}

	switch kind {
	case KindDashboard, KindArchive:
		return action == ActionRead
	case KindSterilisationReport, KindUsageReport:
		return ownerScoped(actor, action, owner)
	case KindEndoscope:
		if actor.Role == models.RoleSterilisation {
			return action == ActionRead
		}
		return ownerScoped(actor, action, owner)
	}

	return false
}

// ownerScoped allows create and read to everyone and restricts changes to the record's owner
func ownerScoped(actor Actor, action Action, owner string) bool {
	switch action {
	case ActionCreate, ActionRead:
		return true
	case ActionUpdate, ActionDelete:
		return owner != "" && owner == actor.Username
	}
	return false
}
