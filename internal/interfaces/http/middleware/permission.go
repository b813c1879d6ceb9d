package middleware

import (
	"net/http"

	"github.com/erp/posting/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Permissions checked by the ledger API
const (
	PermJournalRead    = "journal:read"
	PermJournalPost    = "journal:post"
	PermJournalVoid    = "journal:void"
	PermAccountRead    = "account:read"
	PermAccountManage  = "account:manage"
	PermSettingsRead   = "settings:read"
	PermSettingsManage = "settings:manage"
	PermMappingManage  = "mapping:manage"
	PermEventIngest    = "event:ingest"
	PermEventReplay    = "event:replay"
	PermDeadLetterRead = "dead_letter:read"
	PermDeadLetterFix  = "dead_letter:manage"
	PermOutboxManage   = "outbox:manage"
)

// PermissionConfig holds configuration for permission middleware
type PermissionConfig struct {
	Logger *zap.Logger
	// OnDenied is called when permission is denied (optional)
	OnDenied func(c *gin.Context, requiredPerms []string)
}

// RequirePermission creates middleware that requires a specific permission
func RequirePermission(permission string) gin.HandlerFunc {
	return RequireAnyPermission(permission)
}

// RequireAnyPermission creates middleware that requires any of the specified permissions
func RequireAnyPermission(permissions ...string) gin.HandlerFunc {
	return RequireAnyPermissionWithConfig(PermissionConfig{}, permissions...)
}

// RequireAnyPermissionWithConfig is RequireAnyPermission with custom config
func RequireAnyPermissionWithConfig(cfg PermissionConfig, permissions ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := GetJWTClaims(c)
		if claims == nil {
			handlePermissionDenied(c, cfg, permissions, "No authentication claims found")
			return
		}

		if !claims.HasAnyPermission(permissions...) {
			handlePermissionDenied(c, cfg, permissions, "User lacks required permission")
			return
		}

		c.Next()
	}
}

func handlePermissionDenied(c *gin.Context, cfg PermissionConfig, requiredPerms []string, reason string) {
	if cfg.Logger != nil {
		cfg.Logger.Warn("Permission denied",
			zap.String("user_id", GetJWTUserID(c)),
			zap.String("path", c.Request.URL.Path),
			zap.String("method", c.Request.Method),
			zap.Strings("required", requiredPerms),
			zap.String("reason", reason),
		)
	}

	if cfg.OnDenied != nil {
		cfg.OnDenied(c, requiredPerms)
		c.Abort()
		return
	}

	c.AbortWithStatusJSON(http.StatusForbidden, dto.NewErrorResponseWithRequestID(
		dto.ErrCodeForbidden,
		"Insufficient permissions",
		c.GetString(RequestIDKey),
	))
}

// HasPermission reports whether the caller holds permission
func HasPermission(c *gin.Context, permission string) bool {
	claims := GetJWTClaims(c)
	return claims != nil && claims.HasPermission(permission)
}
