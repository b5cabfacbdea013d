package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/endotrace/endotrace/internal/service"
)

// statusFor maps a service error to its HTTP status
func statusFor(err error) int {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrPermissionDenied):
		return http.StatusForbidden
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrConstraintViolation):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// respondError logs err and renders it. Internal failures are logged at error
// level and reported with a generic message.
func respondError(c *gin.Context, logger *zap.Logger, msg string, err error, fields ...zap.Field) {
	status := statusFor(err)
	fields = append(fields, zap.Error(err), zap.String("username", c.GetString("username")))

	if status == http.StatusInternalServerError {
		logger.Error(msg, fields...)
		c.JSON(status, gin.H{"error": "internal server error"})
		return
	}

	logger.Warn(msg, fields...)
	c.JSON(status, gin.H{"error": err.Error()})
}

// parseID reads the :id path parameter, answering 400 when it is not a positive integer
func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}

// queryList accepts both repeated and comma separated query values
func queryList(c *gin.Context, key string) []string {
	var values []string
	for _, raw := range c.QueryArray(key) {
		for _, v := range strings.Split(raw, ",") {
			if v = strings.TrimSpace(v); v != "" {
				values = append(values, v)
			}
		}
	}
	return values
}

func ascending(c *gin.Context) bool {
	return strings.EqualFold(c.Query("order"), "asc")
}
