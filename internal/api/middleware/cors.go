package middleware

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/endotrace/endotrace/internal/config"
)

// preflightMaxAge is how long browsers may cache a preflight answer.
const preflightMaxAge = 12 * time.Hour

// CORSMiddleware configures CORS based on configuration. An empty origin list
// opens the API to every origin, without credentials since browsers refuse
// credentialed wildcard responses.
func CORSMiddleware(cfg *config.Config) gin.HandlerFunc {
	if !cfg.Security.CORSEnabled {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	corsCfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders: []string{"Content-Length", "Content-Disposition", "X-Archive-Key", "X-Archive-Warning"},
		MaxAge:        preflightMaxAge,
	}
	if len(cfg.Security.CORSOrigins) == 0 {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = cfg.Security.CORSOrigins
		corsCfg.AllowCredentials = true
	}
	return cors.New(corsCfg)
}
