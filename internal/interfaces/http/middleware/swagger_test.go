package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestSwaggerProtection(t *testing.T) {
	denyAuth := func(c *gin.Context) { c.AbortWithStatus(http.StatusUnauthorized) }

	tests := []struct {
		name       string
		cfg        SwaggerConfig
		remoteAddr string
		wantStatus int
	}{
		{"disabled", SwaggerConfig{Enabled: false}, "10.0.0.1:1234", http.StatusNotFound},
		{"open", SwaggerConfig{Enabled: true}, "10.0.0.1:1234", http.StatusOK},
		{"ip allowed", SwaggerConfig{Enabled: true, AllowedIPs: []string{"10.0.0.1"}}, "10.0.0.1:1234", http.StatusOK},
		{"cidr allowed", SwaggerConfig{Enabled: true, AllowedIPs: []string{"192.168.0.0/16"}}, "192.168.4.20:1234", http.StatusOK},
		{"ip rejected", SwaggerConfig{Enabled: true, AllowedIPs: []string{"10.0.0.0/24", "bogus"}}, "10.0.1.5:1234", http.StatusForbidden},
		{"auth required", SwaggerConfig{Enabled: true, RequireAuth: true}, "10.0.0.1:1234", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := gin.New()
			router.GET("/swagger/*any", SwaggerProtection(tt.cfg, denyAuth), func(c *gin.Context) {
				c.Status(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, "/swagger/index.html", nil)
			req.RemoteAddr = tt.remoteAddr
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func TestIPAllowed(t *testing.T) {
	prefixes := parseAllowList([]string{"127.0.0.1", "fd00::/8"})

	assert.True(t, ipAllowed("127.0.0.1", prefixes))
	assert.True(t, ipAllowed("::ffff:127.0.0.1", prefixes))
	assert.True(t, ipAllowed("fd12::1", prefixes))
	assert.False(t, ipAllowed("127.0.0.2", prefixes))
	assert.False(t, ipAllowed("not-an-ip", prefixes))
}
