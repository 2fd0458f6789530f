package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/snapq/snapq-go/internal/config"
)

// CORS middleware reflects the request's Origin and applies the configured
// allow-lists of methods and headers. cfg.CORS.AllowedOrigins is not
// consulted: every origin is reflected.
func CORS(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")

		c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		c.Writer.Header().Set("Access-Control-Allow-Credentials", boolString(cfg.CORS.AllowCredentials))
		c.Writer.Header().Set("Access-Control-Allow-Headers", strings.Join(cfg.CORS.AllowedHeaders, ", "))
		c.Writer.Header().Set("Access-Control-Allow-Methods", strings.Join(cfg.CORS.AllowedMethods, ", "))

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
