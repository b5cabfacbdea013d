package policy

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

var (
	admin  = Actor{Username: "admin", Role: "admin"}
	bob    = Actor{Username: "bob", Role: "biomedical"}
	carol  = Actor{Username: "carol", Role: "sterilisation"}
	nobody = Actor{}
)

func TestAuthorize(t *testing.T) {
	tests := []struct {
		name   string
		actor  Actor
		kind   Kind
		action Action
		owner  string
		want   error
	}{
		{"admin creates user", admin, KindUser, ActionCreate, "", nil},
		{"admin deletes foreign endoscope", admin, KindEndoscope, ActionDelete, "bob", nil},
		{"admin purges reports", admin, KindSterilisationReport, ActionPurge, "", nil},

		{"biomedical creates endoscope", bob, KindEndoscope, ActionCreate, "", nil},
		{"biomedical updates own endoscope", bob, KindEndoscope, ActionUpdate, "bob", nil},
		{"biomedical updates foreign endoscope", bob, KindEndoscope, ActionUpdate, "dave", ErrPermissionDenied},
		{"biomedical deletes foreign endoscope", bob, KindEndoscope, ActionDelete, "dave", ErrPermissionDenied},
		{"biomedical reads users", bob, KindUser, ActionRead, "", ErrPermissionDenied},
		{"biomedical purges endoscopes", bob, KindEndoscope, ActionPurge, "", ErrPermissionDenied},
		{"biomedical creates sterilisation report", bob, KindSterilisationReport, ActionCreate, "", nil},
		{"biomedical deletes own usage report", bob, KindUsageReport, ActionDelete, "bob", nil},

		{"sterilisation reads endoscopes", carol, KindEndoscope, ActionRead, "", nil},
		{"sterilisation creates endoscope", carol, KindEndoscope, ActionCreate, "", ErrPermissionDenied},
		{"sterilisation updates own endoscope", carol, KindEndoscope, ActionUpdate, "carol", ErrPermissionDenied},
		{"sterilisation creates report", carol, KindSterilisationReport, ActionCreate, "", nil},
		{"sterilisation updates own report", carol, KindSterilisationReport, ActionUpdate, "carol", nil},
		{"sterilisation deletes bob's report", carol, KindSterilisationReport, ActionDelete, "bob", ErrPermissionDenied},
		{"sterilisation updates report with empty owner", carol, KindSterilisationReport, ActionUpdate, "", ErrPermissionDenied},
		{"sterilisation creates user", carol, KindUser, ActionCreate, "", ErrPermissionDenied},

		{"biomedical reads dashboard", bob, KindDashboard, ActionRead, "", nil},
		{"sterilisation reads archive", carol, KindArchive, ActionRead, "", nil},
		{"sterilisation deletes archive", carol, KindArchive, ActionDelete, "", ErrPermissionDenied},
		{"admin reads system statistics", admin, KindSystem, ActionRead, "", nil},
		{"biomedical reads system statistics", bob, KindSystem, ActionRead, "", ErrPermissionDenied},

		{"anonymous reads dashboard", nobody, KindDashboard, ActionRead, "", ErrUnauthenticated},
		{"unknown role", Actor{Username: "eve", Role: "root"}, KindEndoscope, ActionRead, "", ErrUnauthenticated},
		{"role without username", Actor{Role: "admin"}, KindUser, ActionRead, "", ErrUnauthenticated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Authorize(tt.actor, tt.kind, tt.action, tt.owner)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.Is(err, tt.want), "got %v, want %v", err, tt.want)
		})
	}
}

func TestAuthorizeDenialMessage(t *testing.T) {
	err := Authorize(carol, KindEndoscope, ActionDelete, "carol")
	assert.EqualError(t, err, "permission denied: sterilisation may not delete endoscope")
}

func TestActor(t *testing.T) {
	assert.True(t, admin.IsAdmin())
	assert.False(t, bob.IsAdmin())
	assert.False(t, Actor{Role: "admin"}.IsAdmin())
	assert.True(t, carol.Authenticated())
	assert.False(t, nobody.Authenticated())
}

// Every non-admin change to a record owned by someone else is denied, whatever the kind.
func TestNonOwnerNeverModifies(t *testing.T) {
	kinds := []Kind{KindUser, KindEndoscope, KindSterilisationReport, KindUsageReport, KindDashboard, KindArchive, KindSystem}
	for _, actor := range []Actor{bob, carol} {
		for _, kind := range kinds {
			for _, action := range []Action{ActionUpdate, ActionDelete, ActionPurge} {
				err := Authorize(actor, kind, action, "someone-else")
				assert.ErrorIs(t, err, ErrPermissionDenied, "%s %s %s", actor.Role, action, kind)
			}
		}
	}
}
