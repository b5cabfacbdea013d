package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/endotrace/endotrace/internal/api/middleware"
	"github.com/endotrace/endotrace/internal/service"
)

// UserHandler handles user management
type UserHandler struct {
	userService *service.UserService
	logger      *zap.Logger
}

// NewUserHandler creates a new user handler
func NewUserHandler(userService *service.UserService, logger *zap.Logger) *UserHandler {
	return &UserHandler{
		userService: userService,
		logger:      logger,
	}
}

// CreateUserRequest represents a request to create a user
type CreateUserRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// ListUsers lists every account
// @Router /api/v1/users [get]
func (h *UserHandler) ListUsers(c *gin.Context) {
	users, err := h.userService.ListUsers(middleware.Actor(c))
	if err != nil {
		respondError(c, h.logger, "Failed to list users", err)
		return
	}
	c.JSON(http.StatusOK, users)
}

// CreateUser creates an account
// @Router /api/v1/users [post]
func (h *UserHandler) CreateUser(c *gin.Context) {
	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.userService.CreateUser(middleware.Actor(c), &service.CreateUserRequest{
		Username: req.Username,
		Password: req.Password,
		Role:     req.Role,
	})
	if err != nil {
		respondError(c, h.logger, "Failed to create user", err, zap.String("target", req.Username))
		return
	}

	h.logger.Info("User created", zap.String("username", user.Username), zap.String("role", user.Role))
	c.JSON(http.StatusCreated, user)
}

// UpdateRoleRequest changes the role of a user
type UpdateRoleRequest struct {
	Role string `json:"role" binding:"required"`
}

// UpdateUserRole changes the role of a user
// @Router /api/v1/users/{id}/role [put]
func (h *UserHandler) UpdateUserRole(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req UpdateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.userService.UpdateUserRole(middleware.Actor(c), id, req.Role); err != nil {
		respondError(c, h.logger, "Failed to update user role", err, zap.Int64("id", id))
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "role updated"})
}

// UpdatePasswordRequest replaces the password of a user
type UpdatePasswordRequest struct {
	Password string `json:"password" binding:"required"`
}

// UpdateUserPassword replaces the password of a user
// @Router /api/v1/users/{id}/password [put]
func (h *UserHandler) UpdateUserPassword(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req UpdatePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.userService.UpdateUserPassword(middleware.Actor(c), id, req.Password); err != nil {
		respondError(c, h.logger, "Failed to update user password", err, zap.Int64("id", id))
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "password updated"})
}

// DeleteUser removes an account
// @Router /api/v1/users/{id} [delete]
func (h *UserHandler) DeleteUser(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := h.userService.DeleteUser(middleware.Actor(c), id); err != nil {
		respondError(c, h.logger, "Failed to delete user", err, zap.Int64("id", id))
		return
	}

	h.logger.Info("User deleted", zap.Int64("id", id))
	c.JSON(http.StatusOK, gin.H{"message": "user deleted"})
}
