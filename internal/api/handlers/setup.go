// Package handlers provides HTTP request handlers for the EndoTrace API.
// It includes handlers for setup, authentication, users, the endoscope inventory,
// sterilisation and usage reports, the dashboard, PDF reports and administration,
// translating service errors into HTTP statuses.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/endotrace/endotrace/internal/service"
)

// SetupHandler handles setup operations
type SetupHandler struct {
	userService *service.UserService
	logger      *zap.Logger
}

// NewSetupHandler creates a new setup handler
func NewSetupHandler(userService *service.UserService, logger *zap.Logger) *SetupHandler {
	return &SetupHandler{
		userService: userService,
		logger:      logger,
	}
}

// GetStatus checks if initial setup has been completed.
// @Summary Check setup status
// @Success 200 {object} map[string]bool
// @Router /api/v1/setup/status [get]
func (h *SetupHandler) GetStatus(c *gin.Context) {
	isComplete, err := h.userService.IsSetupComplete()
	if err != nil {
		respondError(c, h.logger, "Failed to check setup status", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"setup_complete": isComplete,
	})
}

// SetupRequest represents initial setup request
type SetupRequest struct {
	Password string `json:"password" binding:"required,min=8"`
}

// PerformSetup creates the protected admin account
// @Summary Perform initial setup
// @Accept json
// @Produce json
// @Param request body SetupRequest true "Setup request"
// @Success 200 {object} map[string]string
// @Router /api/v1/setup [post]
func (h *SetupHandler) PerformSetup(c *gin.Context) {
	var req SetupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.userService.PerformInitialSetup(&service.SetupRequest{
		Password: req.Password,
	})
	if err != nil {
		respondError(c, h.logger, "Setup failed", err)
		return
	}

	h.logger.Info("Initial setup completed", zap.String("username", result.User.Username))

	c.JSON(http.StatusOK, gin.H{
		"message":  "Setup completed successfully",
		"token":    result.Token,
		"username": result.User.Username,
	})
}
