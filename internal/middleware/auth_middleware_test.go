package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"equilibra/internal/auth"
	"equilibra/internal/middleware"
)

func setupRouter(issuer *auth.TokenIssuer) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	protected := r.Group("/protected")
	protected.Use(middleware.JWTAuthMiddleware(issuer))
	protected.GET("/resource", func(c *gin.Context) {
		userID, ok := middleware.CurrentUserID(c)
		if !ok {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "user id missing from context"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"user_id": userID})
	})

	return r
}

func TestJWTAuthMiddleware_ValidToken(t *testing.T) {
	issuer := auth.NewTokenIssuer("test-secret-key", 24)
	router := setupRouter(issuer)

	token, err := issuer.Generate(123456789)
	require.NoError(t, err)

	req, _ := http.NewRequest("GET", "/protected/resource", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), "123456789")
}

func TestJWTAuthMiddleware_SessionCookie(t *testing.T) {
	issuer := auth.NewTokenIssuer("test-secret-key", 24)
	router := setupRouter(issuer)

	token, err := issuer.Generate(42)
	require.NoError(t, err)

	req, _ := http.NewRequest("GET", "/protected/resource", nil)
	req.AddCookie(&http.Cookie{Name: middleware.SessionCookie, Value: token})

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	assert.Equal(t, http.StatusOK, resp.Code)
}

func TestJWTAuthMiddleware_MissingToken(t *testing.T) {
	issuer := auth.NewTokenIssuer("test-secret-key", 24)
	router := setupRouter(issuer)

	req, _ := http.NewRequest("GET", "/protected/resource", nil)

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestJWTAuthMiddleware_InvalidToken(t *testing.T) {
	issuer := auth.NewTokenIssuer("test-secret-key", 24)
	router := setupRouter(issuer)

	req, _ := http.NewRequest("GET", "/protected/resource", nil)
	req.Header.Set("Authorization", "Bearer not-a-real-token")

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestJWTAuthMiddleware_WrongScheme(t *testing.T) {
	issuer := auth.NewTokenIssuer("test-secret-key", 24)
	router := setupRouter(issuer)

	token, err := issuer.Generate(1)
	require.NoError(t, err)

	req, _ := http.NewRequest("GET", "/protected/resource", nil)
	req.Header.Set("Authorization", "Token "+token)

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}
