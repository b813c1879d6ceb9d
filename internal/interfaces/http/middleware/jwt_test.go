package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/erp/posting/internal/infrastructure/auth"
	"github.com/erp/posting/internal/infrastructure/config"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestJWTService() *auth.JWTService {
	return auth.NewJWTService(config.JWTConfig{
		Secret:                   "test-secret-key-at-least-32-chars",
		Issuer:                   "test-issuer",
		ControlAccountPermission: "accounting:control_accounts:post",
	})
}

func newTestToken(t *testing.T, svc *auth.JWTService, tokenType auth.TokenType, ttl time.Duration, perms ...string) (string, auth.GenerateTokenInput) {
	t.Helper()
	input := auth.GenerateTokenInput{
		TenantID:    uuid.New(),
		UserID:      uuid.New(),
		Username:    "controller",
		Permissions: perms,
		TokenType:   tokenType,
		TTL:         ttl,
	}
	token, _, err := svc.GenerateToken(input)
	require.NoError(t, err)
	return token, input
}

// signExpiredToken signs an access token that expired an hour ago with the test secret
func signExpiredToken(t *testing.T) string {
	t.Helper()
	issued := time.Now().Add(-2 * time.Hour)
	claims := &auth.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Issuer:    "test-issuer",
			ExpiresAt: jwt.NewNumericDate(issued.Add(time.Hour)),
			NotBefore: jwt.NewNumericDate(issued),
			IssuedAt:  jwt.NewNumericDate(issued),
		},
		TenantID:  uuid.New().String(),
		UserID:    uuid.New().String(),
		TokenType: auth.TokenTypeAccess,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret-key-at-least-32-chars"))
	require.NoError(t, err)
	return token
}

func serveWithToken(router *gin.Engine, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestJWTAuthMiddleware_ValidToken(t *testing.T) {
	svc := newTestJWTService()
	token, input := newTestToken(t, svc, auth.TokenTypeAccess, time.Minute, "journal:read")

	router := gin.New()
	router.Use(JWTAuthMiddleware(svc))
	router.GET("/test", func(c *gin.Context) {
		claims := GetJWTClaims(c)
		require.NotNil(t, claims)
		assert.Equal(t, input.UserID.String(), GetJWTUserID(c))
		assert.Equal(t, input.TenantID.String(), GetJWTTenantID(c))
		assert.Equal(t, []string{"journal:read"}, GetJWTPermissions(c))
		c.Status(http.StatusOK)
	})

	assert.Equal(t, http.StatusOK, serveWithToken(router, "/test", token).Code)
}

func TestJWTAuthMiddleware_Rejections(t *testing.T) {
	svc := newTestJWTService()
	refresh, _ := newTestToken(t, svc, auth.TokenTypeRefresh, time.Minute)
	expired := signExpiredToken(t)

	router := gin.New()
	router.Use(JWTAuthMiddleware(svc))
	router.GET("/test", func(c *gin.Context) { c.Status(http.StatusOK) })

	tests := []struct {
		name     string
		token    string
		wantCode string
	}{
		{"missing header", "", "ERR_UNAUTHORIZED"},
		{"garbage token", "not-a-jwt", "ERR_UNAUTHORIZED"},
		{"refresh token", refresh, "ERR_TOKEN_INVALID"},
		{"expired token", expired, "ERR_TOKEN_EXPIRED"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serveWithToken(router, "/test", tt.token)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.wantCode)
		})
	}
}

func TestJWTAuthMiddleware_SkipPaths(t *testing.T) {
	router := gin.New()
	router.Use(JWTAuthMiddleware(newTestJWTService()))
	router.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/swagger/index.html", func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusOK, serveWithToken(router, "/health", "").Code)
	assert.Equal(t, http.StatusOK, serveWithToken(router, "/swagger/index.html", "").Code)
}

func TestRequireTokenType(t *testing.T) {
	svc := newTestJWTService()
	access, _ := newTestToken(t, svc, auth.TokenTypeAccess, time.Minute)
	service, _ := newTestToken(t, svc, auth.TokenTypeService, time.Minute)

	router := gin.New()
	router.Use(JWTAuthMiddleware(svc))
	router.GET("/events", RequireTokenType(auth.TokenTypeService), func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/admin", RequireTokenType(auth.TokenTypeAccess), func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusOK, serveWithToken(router, "/events", service).Code)
	assert.Equal(t, http.StatusForbidden, serveWithToken(router, "/events", access).Code)
	assert.Equal(t, http.StatusOK, serveWithToken(router, "/admin", access).Code)
	assert.Equal(t, http.StatusForbidden, serveWithToken(router, "/admin", service).Code)
}
