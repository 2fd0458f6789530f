package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/snapq/snapq-go/internal/apperror"
	"github.com/snapq/snapq-go/internal/auth"
)

// RequireAuth verifies the bearer token and stashes the claims on the
// context for downstream handlers and RequireRole.
func RequireAuth(authService *auth.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			apperror.Abort(c, apperror.Auth("missing or malformed authorization header"))
			return
		}

		claims, err := authService.ValidateToken(parts[1])
		if err != nil {
			apperror.Abort(c, apperror.Auth("invalid or expired token"))
			return
		}

		c.Set("claims", claims)
		c.Next()
	}
}

// RequireRole gates a route group to a fixed set of roles. It must run
// after RequireAuth. A caller with valid credentials but none of the
// allowed roles gets 403, not 401 — RequireAuth already settled whether
// they're who they say they are.
func RequireRole(roles ...string) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}

	return func(c *gin.Context) {
		claims, ok := c.MustGet("claims").(*auth.Claims)
		if !ok {
			apperror.Abort(c, apperror.Auth("authentication required"))
			return
		}
		if _, ok := allowed[claims.Role]; !ok {
			apperror.Abort(c, apperror.Forbidden(forbiddenMessage(roles)))
			return
		}
		c.Next()
	}
}

func forbiddenMessage(roles []string) string {
	if len(roles) == 1 && roles[0] == "admin" {
		return "Admin access required"
	}
	return "insufficient role"
}
