package service

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/endotrace/endotrace/internal/auth"
	"github.com/endotrace/endotrace/internal/config"
	"github.com/endotrace/endotrace/internal/database"
	"github.com/endotrace/endotrace/internal/database/models"
	"github.com/endotrace/endotrace/internal/metrics"
	"github.com/endotrace/endotrace/internal/policy"
)

const jwtSecretKey = "jwt_secret"

// UserService handles user operations
type UserService struct {
	db      *database.Database
	cfg     *config.Config
	metrics *metrics.Metrics
}

// NewUserService creates a new user service
func NewUserService(db *database.Database, cfg *config.Config, m *metrics.Metrics) *UserService {
	return &UserService{
		db:      db,
		cfg:     cfg,
		metrics: m,
	}
}

// CreateUserRequest represents a request to create a user
type CreateUserRequest struct {
	Username string
	Password string
	Role     string
}

// CreateUser creates a new user. Only admins may create accounts.
func (s *UserService) CreateUser(actor policy.Actor, req *CreateUserRequest) (user *models.User, err error) {
	defer func() { observe(s.metrics, policy.KindUser, policy.ActionCreate, err) }()

	username := strings.TrimSpace(req.Username)
	if err := required(field{"username", username}, field{"password", req.Password}, field{"role", req.Role}); err != nil {
		return nil, err
	}
	if err := validPassword(req.Password); err != nil {
		return nil, err
	}
	if err := validRole(req.Role); err != nil {
		return nil, err
	}
	if err := policy.Authorize(actor, policy.KindUser, policy.ActionCreate, ""); err != nil {
		return nil, err
	}

	return s.createUser(username, req.Password, req.Role)
}

func (s *UserService) createUser(username, password, role string) (*models.User, error) {
	passwordHash, err := auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Username:     username,
		PasswordHash: passwordHash,
		Role:         role,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.db.CreateUser(user); err != nil {
		return nil, storeError("create user", err, "username already exists")
	}

	return user, nil
}

// GetUser returns one user by ID
func (s *UserService) GetUser(actor policy.Actor, id int64) (*models.User, error) {
	if err := policy.Authorize(actor, policy.KindUser, policy.ActionRead, ""); err != nil {
		return nil, err
	}
	user, err := s.db.GetUser(id)
	if err != nil {
		return nil, storeError("get user", err, "")
	}
	return user, nil
}

// ListUsers returns every account, newest first
func (s *UserService) ListUsers(actor policy.Actor) ([]*models.User, error) {
	if err := policy.Authorize(actor, policy.KindUser, policy.ActionRead, ""); err != nil {
		return nil, err
	}
	users, err := s.db.ListUsers()
	if err != nil {
		return nil, storeError("list users", err, "")
	}
	return users, nil
}

// UpdateUserRole changes the role of a user. The protected admin account keeps its role.
func (s *UserService) UpdateUserRole(actor policy.Actor, id int64, role string) (err error) {
	defer func() { observe(s.metrics, policy.KindUser, policy.ActionUpdate, err) }()

	if err := validRole(role); err != nil {
		return err
	}
	if err := policy.Authorize(actor, policy.KindUser, policy.ActionUpdate, ""); err != nil {
		return err
	}

	user, err := s.db.GetUser(id)
	if err != nil {
		return storeError("get user", err, "")
	}
	if user.Username == models.ProtectedUsername && role != models.RoleAdmin {
		return ErrProtectedAccount
	}

	if err := s.db.UpdateUserRole(id, role); err != nil {
		return storeError("update user role", err, "")
	}
	return nil
}

// UpdateUserPassword replaces the password of a user
func (s *UserService) UpdateUserPassword(actor policy.Actor, id int64, password string) (err error) {
	defer func() { observe(s.metrics, policy.KindUser, policy.ActionUpdate, err) }()

	if err := validPassword(password); err != nil {
		return err
	}
	if err := policy.Authorize(actor, policy.KindUser, policy.ActionUpdate, ""); err != nil {
		return err
	}

	passwordHash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	if err := s.db.UpdateUserPassword(id, passwordHash); err != nil {
		return storeError("update user password", err, "")
	}
	return nil
}

// DeleteUser removes an account. The protected admin account can never be deleted.
func (s *UserService) DeleteUser(actor policy.Actor, id int64) (err error) {
	defer func() { observe(s.metrics, policy.KindUser, policy.ActionDelete, err) }()

	if err := policy.Authorize(actor, policy.KindUser, policy.ActionDelete, ""); err != nil {
		return err
	}

	user, err := s.db.GetUser(id)
	if err != nil {
		return storeError("get user", err, "")
	}
	if user.Username == models.ProtectedUsername {
		return ErrProtectedAccount
	}

	if err := s.db.DeleteUser(id); err != nil {
		return storeError("delete user", err, "")
	}
	return nil
}

// AuthenticateUser authenticates a user and returns a JWT token
func (s *UserService) AuthenticateUser(username, password string) (string, *models.User, error) {
	user, err := s.db.GetUserByUsername(strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, storeError("get user", err, "")
	}

	if err := auth.VerifyPassword(password, user.PasswordHash); err != nil {
		return "", nil, ErrInvalidCredentials
	}

	token, err := s.issueToken(user)
	if err != nil {
		return "", nil, err
	}
	return token, user, nil
}

func (s *UserService) issueToken(user *models.User) (string, error) {
	token, err := auth.GenerateToken(
		user.ID,
		user.Username,
		user.Role,
		s.cfg.JWT.Secret,
		s.cfg.JWT.Issuer,
		s.cfg.JWT.Expiration,
	)
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return token, nil
}

// SetupRequest represents initial setup request
type SetupRequest struct {
	Password string
}

// SetupResponse contains setup response data
type SetupResponse struct {
	User  *models.User
	Token string
}

// PerformInitialSetup creates the protected admin account on an empty database
func (s *UserService) PerformInitialSetup(req *SetupRequest) (*SetupResponse, error) {
	isComplete, err := s.db.IsSetupComplete()
	if err != nil {
		return nil, storeError("check setup status", err, "")
	}
	if isComplete {
		return nil, ErrSetupComplete
	}

	if err := validPassword(req.Password); err != nil {
		return nil, err
	}

	if s.cfg.JWT.Secret == "" {
		if err := s.LoadJWTSecret(); err != nil {
			return nil, err
		}
	}

	user, err := s.createUser(models.ProtectedUsername, req.Password, models.RoleAdmin)
	if err != nil {
		if errors.Is(err, ErrConstraintViolation) {
			return nil, ErrSetupComplete
		}
		return nil, fmt.Errorf("failed to create admin user: %w", err)
	}

	token, err := s.issueToken(user)
	if err != nil {
		return nil, err
	}

	return &SetupResponse{User: user, Token: token}, nil
}

// IsSetupComplete checks if initial setup has been completed
func (s *UserService) IsSetupComplete() (bool, error) {
	complete, err := s.db.IsSetupComplete()
	if err != nil {
		return false, storeError("check setup status", err, "")
	}
	return complete, nil
}

// LoadJWTSecret makes sure a signing secret is available. A configured secret wins;
// otherwise the one stored in system_config is used, generating it on first start.
func (s *UserService) LoadJWTSecret() error {
	if s.cfg.JWT.Secret != "" {
		return nil
	}

	secret, err := s.db.GetSystemConfig(jwtSecretKey)
	if err == nil {
		s.cfg.JWT.Secret = secret
		return nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return storeError("get JWT secret", err, "")
	}

	secret, err = auth.GenerateSecret(32)
	if err != nil {
		return fmt.Errorf("failed to generate JWT secret: %w", err)
	}
	if err := s.db.SetSystemConfig(jwtSecretKey, secret); err != nil {
		return storeError("store JWT secret", err, "")
	}
	s.cfg.JWT.Secret = secret
	return nil
}
