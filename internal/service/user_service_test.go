package service

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/endotrace/endotrace/internal/auth"
	"github.com/endotrace/endotrace/internal/database/models"
	"github.com/endotrace/endotrace/internal/policy"
)

func TestUserService_CreateUser(t *testing.T) {
	db, cfg := setupTestDB(t)
	userService := NewUserService(db, cfg, nil)

	t.Run("Create user successfully", func(t *testing.T) {
		user, err := userService.CreateUser(admin, &CreateUserRequest{
			Username: "bob",
			Password: "password123",
			Role:     models.RoleBiomedical,
		})
		require.NoError(t, err)
		assert.NotZero(t, user.ID)
		assert.Equal(t, "bob", user.Username)
		assert.Equal(t, models.RoleBiomedical, user.Role)
		assert.NotEqual(t, "password123", user.PasswordHash)
		assert.NotZero(t, user.CreatedAt)
	})

	t.Run("Duplicate username is a constraint violation", func(t *testing.T) {
		_, err := userService.CreateUser(admin, &CreateUserRequest{
			Username: "bob",
			Password: "other",
			Role:     models.RoleSterilisation,
		})
		assert.ErrorIs(t, err, ErrConstraintViolation)
		assert.Contains(t, err.Error(), "username already exists")
	})

	t.Run("Whitespace username is rejected", func(t *testing.T) {
		_, err := userService.CreateUser(admin, &CreateUserRequest{
			Username: "   ",
			Password: "password123",
			Role:     models.RoleBiomedical,
		})
		var verr *ValidationError
		require.True(t, errors.As(err, &verr))
		assert.Equal(t, "username", verr.Field)
	})

	t.Run("Unknown role is rejected", func(t *testing.T) {
		_, err := userService.CreateUser(admin, &CreateUserRequest{
			Username: "eve",
			Password: "password123",
			Role:     "root",
		})
		var verr *ValidationError
		require.True(t, errors.As(err, &verr))
		assert.Equal(t, "role", verr.Field)
	})

	t.Run("Non-admin cannot create users", func(t *testing.T) {
		_, err := userService.CreateUser(bob, &CreateUserRequest{
			Username: "mallory",
			Password: "password123",
			Role:     models.RoleAdmin,
		})
		assert.ErrorIs(t, err, ErrPermissionDenied)

		_, err = db.GetUserByUsername("mallory")
		assert.Error(t, err, "denied create must not reach the store")
	})

	t.Run("Anonymous actor is unauthenticated", func(t *testing.T) {
		_, err := userService.CreateUser(policy.Actor{}, &CreateUserRequest{
			Username: "mallory",
			Password: "password123",
			Role:     models.RoleBiomedical,
		})
		assert.ErrorIs(t, err, ErrUnauthenticated)
	})
}

func TestUserService_ProtectedAdmin(t *testing.T) {
	db, cfg := setupTestDB(t)
	userService := NewUserService(db, cfg, nil)

	setup, err := userService.PerformInitialSetup(&SetupRequest{Password: "adminpass"})
	require.NoError(t, err)
	adminID := setup.User.ID

	t.Run("Deleting admin is rejected", func(t *testing.T) {
		err := userService.DeleteUser(admin, adminID)
		assert.ErrorIs(t, err, ErrProtectedAccount)
		assert.ErrorIs(t, err, ErrPermissionDenied)

		users, err := userService.ListUsers(admin)
		require.NoError(t, err)
		assert.Len(t, users, 1)
	})

	t.Run("Demoting admin is rejected", func(t *testing.T) {
		err := userService.UpdateUserRole(admin, adminID, models.RoleSterilisation)
		assert.ErrorIs(t, err, ErrProtectedAccount)

		user, err := userService.GetUser(admin, adminID)
		require.NoError(t, err)
		assert.Equal(t, models.RoleAdmin, user.Role)
	})

	t.Run("Other accounts can be changed and removed", func(t *testing.T) {
		user, err := userService.CreateUser(admin, &CreateUserRequest{Username: "carol", Password: "pw", Role: models.RoleSterilisation})
		require.NoError(t, err)

		require.NoError(t, userService.UpdateUserRole(admin, user.ID, models.RoleBiomedical))
		got, err := userService.GetUser(admin, user.ID)
		require.NoError(t, err)
		assert.Equal(t, models.RoleBiomedical, got.Role)

		require.NoError(t, userService.UpdateUserPassword(admin, user.ID, "newpass"))
		_, _, err = userService.AuthenticateUser("carol", "newpass")
		assert.NoError(t, err)

		require.NoError(t, userService.DeleteUser(admin, user.ID))
		_, err = userService.GetUser(admin, user.ID)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("Deleting a missing user is not found", func(t *testing.T) {
		err := userService.DeleteUser(admin, 9999)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("Non-admin cannot list users", func(t *testing.T) {
		_, err := userService.ListUsers(carol)
		assert.ErrorIs(t, err, ErrPermissionDenied)
	})
}

func TestUserService_AuthenticateUser(t *testing.T) {
	db, cfg := setupTestDB(t)
	userService := NewUserService(db, cfg, nil)

	_, err := userService.CreateUser(admin, &CreateUserRequest{
		Username: "bob",
		Password: "password123",
		Role:     models.RoleBiomedical,
	})
	require.NoError(t, err)

	t.Run("Authenticate successfully", func(t *testing.T) {
		token, user, err := userService.AuthenticateUser("bob", "password123")
		require.NoError(t, err)
		assert.NotEmpty(t, token)
		assert.Equal(t, "bob", user.Username)

		claims, err := auth.ValidateToken(token, cfg.JWT.Secret, cfg.JWT.Issuer)
		require.NoError(t, err)
		assert.Equal(t, user.ID, claims.UserID)
		assert.Equal(t, models.RoleBiomedical, claims.Role)
	})

	t.Run("Wrong password", func(t *testing.T) {
		_, _, err := userService.AuthenticateUser("bob", "wrongpassword")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
		assert.ErrorIs(t, err, ErrUnauthenticated)
	})

	t.Run("Unknown user", func(t *testing.T) {
		_, _, err := userService.AuthenticateUser("nobody", "password123")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})
}

func TestUserService_PerformInitialSetup(t *testing.T) {
	db, cfg := setupTestDB(t)
	userService := NewUserService(db, cfg, nil)

	complete, err := userService.IsSetupComplete()
	require.NoError(t, err)
	assert.False(t, complete)

	t.Run("Empty password is rejected", func(t *testing.T) {
		_, err := userService.PerformInitialSetup(&SetupRequest{Password: " "})
		var verr *ValidationError
		assert.True(t, errors.As(err, &verr))
	})

	t.Run("Setup creates the admin account once", func(t *testing.T) {
		resp, err := userService.PerformInitialSetup(&SetupRequest{Password: "adminpass"})
		require.NoError(t, err)
		assert.Equal(t, models.ProtectedUsername, resp.User.Username)
		assert.Equal(t, models.RoleAdmin, resp.User.Role)
		assert.NotEmpty(t, resp.Token)

		complete, err := userService.IsSetupComplete()
		require.NoError(t, err)
		assert.True(t, complete)

		_, err = userService.PerformInitialSetup(&SetupRequest{Password: "again"})
		assert.ErrorIs(t, err, ErrSetupComplete)
	})
}

func TestUserService_LoadJWTSecret(t *testing.T) {
	db, cfg := setupTestDB(t)

	t.Run("Configured secret wins", func(t *testing.T) {
		userService := NewUserService(db, cfg, nil)
		require.NoError(t, userService.LoadJWTSecret())
		assert.Equal(t, "test-secret-12345", cfg.JWT.Secret)
	})

	t.Run("Generated secret is persisted", func(t *testing.T) {
		cfg.JWT.Secret = ""
		require.NoError(t, NewUserService(db, cfg, nil).LoadJWTSecret())
		first := cfg.JWT.Secret
		assert.Len(t, first, 64)

		cfg.JWT.Secret = ""
		require.NoError(t, NewUserService(db, cfg, nil).LoadJWTSecret())
		assert.Equal(t, first, cfg.JWT.Secret)
	})
}

func TestUserService_PasswordTooLong(t *testing.T) {
	db, cfg := setupTestDB(t)
	userService := NewUserService(db, cfg, nil)
	long := strings.Repeat("x", 80)

	requirePasswordError := func(t *testing.T, err error) {
		t.Helper()
		var verr *ValidationError
		require.True(t, errors.As(err, &verr), "got %v", err)
		assert.Equal(t, "password", verr.Field)
		assert.Equal(t, "validation_error", Outcome(err))
	}

	t.Run("Initial setup", func(t *testing.T) {
		_, err := userService.PerformInitialSetup(&SetupRequest{Password: long})
		requirePasswordError(t, err)

		complete, err := userService.IsSetupComplete()
		require.NoError(t, err)
		assert.False(t, complete)
	})

	t.Run("Create user", func(t *testing.T) {
		_, err := userService.CreateUser(admin, &CreateUserRequest{
			Username: "eve",
			Password: long,
			Role:     models.RoleBiomedical,
		})
		requirePasswordError(t, err)
	})

	t.Run("Update password", func(t *testing.T) {
		user, err := userService.CreateUser(admin, &CreateUserRequest{
			Username: "eve",
			Password: "password123",
			Role:     models.RoleBiomedical,
		})
		require.NoError(t, err)

		requirePasswordError(t, userService.UpdateUserPassword(admin, user.ID, long))

		_, _, err = userService.AuthenticateUser("eve", "password123")
		assert.NoError(t, err)
	})
}
