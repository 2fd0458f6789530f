package middleware

import (
	"github.com/gin-gonic/gin"
)

// SecurityHeadersConfig holds configuration for security headers
type SecurityHeadersConfig struct {
	// Content Security Policy
	CSP string

	// X-Frame-Options (DENY, SAMEORIGIN, ALLOW-FROM)
	FrameOptions string

	// Referrer-Policy
	ReferrerPolicy string

	// Permissions-Policy (formerly Feature-Policy)
	PermissionsPolicy string

	// X-Content-Type-Options
	ContentTypeOptions string

	// X-XSS-Protection
	XSSProtection string

	// Strict-Transport-Security (HSTS)
	HSTS string

	// Expect-CT
	ExpectCT string

	// Additional custom headers
	CustomHeaders map[string]string

	// Whether to remove server identification headers
	RemoveServerHeaders bool
}

// DefaultSecurityHeadersConfig returns default security headers configuration
func DefaultSecurityHeadersConfig() *SecurityHeadersConfig {
	return &SecurityHeadersConfig{
		CSP: "default-src 'self'; script-src 'self' 'unsafe-inline' 'unsafe-eval'; style-src 'self' 'unsafe-inline'; img-src 'self' data: https:; connect-src 'self' wss: ws:; font-src 'self' data:; object-src 'none'; base-uri 'self'; form-action 'self'; frame-ancestors 'none';",
		FrameOptions:        "DENY",
		ReferrerPolicy:      "strict-origin-when-cross-origin",
		PermissionsPolicy:   "geolocation=(), microphone=(), camera=(), payment=(), usb=(), magnetometer=(), gyroscope=(), speaker=(), vibrate=(), fullscreen=(self)",
		ContentTypeOptions:  "nosniff",
		XSSProtection:       "1; mode=block",
		HSTS:                "max-age=31536000; includeSubDomains; preload",
		ExpectCT:            "max-age=86400, enforce",
		RemoveServerHeaders: true,
		CustomHeaders:       make(map[string]string),
	}
}

// SecurityHeaders creates middleware that adds security headers to responses
func SecurityHeaders(config *SecurityHeadersConfig) gin.HandlerFunc {
	if config == nil {
		config = DefaultSecurityHeadersConfig()
	}

	return func(c *gin.Context) {
		// Remove server identification headers if configured
		if config.RemoveServerHeaders {
			c.Header("Server", "")
			c.Header("X-Powered-By", "")
			c.Header("X-AspNet-Version", "")
			c.Header("X-AspNetMvc-Version", "")
		}

		// Content Security Policy
		if config.CSP != "" {
			c.Header("Content-Security-Policy", config.CSP)
		}

		// X-Frame-Options
		if config.FrameOptions != "" {
			c.Header("X-Frame-Options", config.FrameOptions)
		}

		// Referrer Policy
		if config.ReferrerPolicy != "" {
			c.Header("Referrer-Policy", config.ReferrerPolicy)
		}

		// Permissions Policy
		if config.PermissionsPolicy != "" {
			c.Header("Permissions-Policy", config.PermissionsPolicy)
		}

		// X-Content-Type-Options
		if config.ContentTypeOptions != "" {
			c.Header("X-Content-Type-Options", config.ContentTypeOptions)
		}

		// X-XSS-Protection
		if config.XSSProtection != "" {
			c.Header("X-XSS-Protection", config.XSSProtection)
		}

		// Strict-Transport-Security (HSTS)
		if config.HSTS != "" && c.Request.TLS != nil {
			c.Header("Strict-Transport-Security", config.HSTS)
		}

		// Expect-CT
		if config.ExpectCT != "" && c.Request.TLS != nil {
			c.Header("Expect-CT", config.ExpectCT)
		}

		// Add custom headers
		for key, value := range config.CustomHeaders {
			c.Header(key, value)
		}

		c.Next()
	}
}

// SecurityHeadersForEnvironment returns security headers configuration based on environment
func SecurityHeadersForEnvironment(environment string, isHTTPS bool) *SecurityHeadersConfig {
	config := DefaultSecurityHeadersConfig()

	switch environment {
	case "development":
		// Relaxed headers for development
		config.CSP = "default-src 'self' 'unsafe-inline' 'unsafe-eval'; connect-src 'self' ws: wss:;"
		config.HSTS = "" // Disable HSTS in development
		config.ExpectCT = ""

	case "staging":
		// Moderate security for staging
		config.CSP = "default-src 'self'; script-src 'self' 'unsafe-inline'; style-src 'self' 'unsafe-inline'; connect-src 'self' wss:;"
		if !isHTTPS {
			config.HSTS = ""
			config.ExpectCT = ""
		}

	case "production":
		// Strict security for production
		config.CSP = "default-src 'self'; script-src 'self'; style-src 'self'; img-src 'self' data: https:; connect-src 'self' wss:; object-src 'none';"
		if !isHTTPS {
			config.HSTS = ""
			config.ExpectCT = ""
		}
	}

	// HSTS is sent in production only.
	if environment != "production" {
		config.HSTS = ""
	}

	return config
}
