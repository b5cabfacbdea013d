package middleware

import (
	"database/sql"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/endotrace/endotrace/internal/auth"
	"github.com/endotrace/endotrace/internal/config"
	"github.com/endotrace/endotrace/internal/database/models"
)

func setupTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	return gin.New()
}

var testCfg = &config.Config{
	JWT: config.JWTConfig{
		Secret:     "test-secret-key-for-testing",
		Expiration: 24 * time.Hour,
		Issuer:     "test-issuer",
	},
}

func bearer(t *testing.T, username, role string, ttl time.Duration, secret string) string {
	t.Helper()
	token, err := auth.GenerateToken(7, username, role, secret, testCfg.JWT.Issuer, ttl)
	require.NoError(t, err)
	return "Bearer " + token
}

func serve(router *gin.Engine, path, authorization string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest(http.MethodGet, path, nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware(t *testing.T) {
	router := setupTestRouter()
	router.Use(AuthMiddleware(testCfg, nil))
	router.GET("/me", func(c *gin.Context) {
		actor := Actor(c)
		c.JSON(http.StatusOK, gin.H{
			"user_id":  c.GetInt64("user_id"),
			"username": actor.Username,
			"role":     actor.Role,
		})
	})

	t.Run("Valid token sets the actor", func(t *testing.T) {
		w := serve(router, "/me", bearer(t, "carol", models.RoleSterilisation, time.Hour, testCfg.JWT.Secret))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"user_id":7,"username":"carol","role":"sterilisation"}`, w.Body.String())
	})

	t.Run("Missing header", func(t *testing.T) {
		w := serve(router, "/me", "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "authorization header required")
	})

	t.Run("Malformed header", func(t *testing.T) {
		for _, header := range []string{"invalid-token", "Basic abc", "Bearer"} {
			w := serve(router, "/me", header)
			assert.Equal(t, http.StatusUnauthorized, w.Code, header)
		}
	})

	t.Run("Rejected tokens", func(t *testing.T) {
		tests := []struct {
			name   string
			header string
		}{
			{"garbage", "Bearer invalid-token"},
			{"empty", "Bearer "},
			{"expired", bearer(t, "bob", models.RoleBiomedical, -time.Hour, testCfg.JWT.Secret)},
			{"wrong secret", bearer(t, "bob", models.RoleBiomedical, time.Hour, "wrong-secret-key")},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				w := serve(router, "/me", tt.header)
				assert.Equal(t, http.StatusUnauthorized, w.Code)
				assert.Contains(t, w.Body.String(), "invalid or expired token")
			})
		}
	})
}

type userTable map[int64]*models.User

func (u userTable) GetUser(id int64) (*models.User, error) {
	if user, ok := u[id]; ok {
		return user, nil
	}
	return nil, sql.ErrNoRows
}

type brokenUsers struct{}

func (brokenUsers) GetUser(int64) (*models.User, error) {
	return nil, errors.New("database is locked")
}

func TestAuthMiddlewareWithUserLookup(t *testing.T) {
	route := func(users UserLookup) *gin.Engine {
		router := setupTestRouter()
		router.Use(AuthMiddleware(testCfg, users))
		router.GET("/me", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"role": Actor(c).Role})
		})
		return router
	}
	users := userTable{7: {ID: 7, Username: "carol", Role: models.RoleBiomedical}}

	t.Run("Role comes from the stored account", func(t *testing.T) {
		w := serve(route(users), "/me", bearer(t, "carol", models.RoleSterilisation, time.Hour, testCfg.JWT.Secret))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"role":"biomedical"}`, w.Body.String())
	})

	t.Run("Deleted account", func(t *testing.T) {
		w := serve(route(userTable{}), "/me", bearer(t, "carol", models.RoleSterilisation, time.Hour, testCfg.JWT.Secret))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "account no longer exists")
	})

	t.Run("Id reused by another account", func(t *testing.T) {
		w := serve(route(users), "/me", bearer(t, "bob", models.RoleAdmin, time.Hour, testCfg.JWT.Secret))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("Lookup failure", func(t *testing.T) {
		w := serve(route(brokenUsers{}), "/me", bearer(t, "carol", models.RoleSterilisation, time.Hour, testCfg.JWT.Secret))
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.NotContains(t, w.Body.String(), "locked")
	})
}

func TestActorWithoutAuth(t *testing.T) {
	router := setupTestRouter()
	router.GET("/open", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"authenticated": Actor(c).Authenticated()})
	})

	w := serve(router, "/open", "")
	assert.JSONEq(t, `{"authenticated":false}`, w.Body.String())
}

func TestRequireRole(t *testing.T) {
	router := setupTestRouter()
	router.Use(AuthMiddleware(testCfg, nil))
	router.GET("/users", RequireRole(models.RoleAdmin), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "admin access granted"})
	})
	router.GET("/inventory", RequireRole(models.RoleBiomedical), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "inventory access granted"})
	})

	tests := []struct {
		name string
		path string
		role string
		want int
	}{
		{"admin on admin route", "/users", models.RoleAdmin, http.StatusOK},
		{"biomedical on admin route", "/users", models.RoleBiomedical, http.StatusForbidden},
		{"admin on biomedical route", "/inventory", models.RoleAdmin, http.StatusOK},
		{"biomedical on biomedical route", "/inventory", models.RoleBiomedical, http.StatusOK},
		{"sterilisation on biomedical route", "/inventory", models.RoleSterilisation, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(router, tt.path, bearer(t, "someone", tt.role, time.Hour, testCfg.JWT.Secret))
			assert.Equal(t, tt.want, w.Code)
			if tt.want == http.StatusForbidden {
				assert.Contains(t, w.Body.String(), "insufficient permissions")
			}
		})
	}

	t.Run("Missing role in context", func(t *testing.T) {
		bare := setupTestRouter()
		bare.GET("/users", RequireRole(models.RoleAdmin), func(c *gin.Context) {
			c.Status(http.StatusOK)
		})

		w := serve(bare, "/users", "")
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Contains(t, w.Body.String(), "no role in context")
	})
}
