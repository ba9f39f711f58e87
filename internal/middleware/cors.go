package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"airdrop-backend/internal/config"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const (
	corsAllowMethods = "GET, POST, DELETE, OPTIONS"
	corsAllowHeaders = "Origin, Content-Type, Content-Length, Accept-Encoding, Cache-Control, Accept"
)

// OriginPolicy the CORS origin whitelist, shared with websocket upgrades
type OriginPolicy struct {
	allowed  []string
	allowAll bool
}

// NewOriginPolicy builds the policy. An empty list or a single "*" allows every origin.
func NewOriginPolicy(cfg config.CORSConfig) OriginPolicy {
	allowed := make([]string, 0, len(cfg.AllowedOrigins))
	for _, o := range cfg.AllowedOrigins {
		if o = strings.TrimSpace(o); o != "" {
			allowed = append(allowed, o)
		}
	}
	return OriginPolicy{
		allowed:  allowed,
		allowAll: len(allowed) == 0 || (len(allowed) == 1 && allowed[0] == "*"),
	}
}

// AllowAll reports whether every origin is accepted
func (p OriginPolicy) AllowAll() bool {
	return p.allowAll
}

// Allowed reports whether origin may call the API
func (p OriginPolicy) Allowed(origin string) bool {
	if p.allowAll {
		return true
	}
	for _, allowed := range p.allowed {
		if allowed == origin {
			return true
		}
	}
	return false
}

// CORS middleware. An empty origin list allows every origin.
func CORS(cfg config.CORSConfig) gin.HandlerFunc {
	policy := NewOriginPolicy(cfg)
	allowAll := policy.AllowAll()
	maxAge := cfg.MaxAge
	if maxAge <= 0 {
		maxAge = 3600
	}

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")

		switch {
		case allowAll:
			c.Header("Access-Control-Allow-Origin", "*")
		case origin == "":
			// same-origin or direct access
		case policy.Allowed(origin):
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Vary", "Origin")
		default:
			logrus.WithFields(logrus.Fields{
				"request_origin":  origin,
				"allowed_origins": policy.allowed,
				"path":            c.Request.URL.Path,
				"method":          c.Request.Method,
				"remote_addr":     c.ClientIP(),
			}).Warn("🚫 CORS: Request blocked - Origin not in whitelist")
		}

		c.Header("Access-Control-Allow-Methods", corsAllowMethods)
		c.Header("Access-Control-Allow-Headers", corsAllowHeaders)
		if cfg.AllowCredentials && !allowAll {
			c.Header("Access-Control-Allow-Credentials", "true")
		}
		c.Header("Access-Control-Max-Age", strconv.Itoa(maxAge))

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Header("Access-Control-Expose-Headers", "Content-Length, Content-Type, Content-Disposition")
		c.Next()
	}
}
