package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/fleet-backend/internal/http/response"
	"github.com/yungbote/fleet-backend/internal/platform/ctxutil"
	"github.com/yungbote/fleet-backend/internal/platform/logger"
	"github.com/yungbote/fleet-backend/internal/services"
)

var errMissingIdentity = errors.New("missing or invalid token")

// IdentityMiddleware turns bearer tokens into per-request identity claims.
// A nil verifier disables it: every request is anonymous and RequireIdentity
// lets it through.
type IdentityMiddleware struct {
	log      *logger.Logger
	verifier services.IdentityVerifier
}

func NewIdentityMiddleware(log *logger.Logger, verifier services.IdentityVerifier) *IdentityMiddleware {
	return &IdentityMiddleware{log: log.With("middleware", "IdentityMiddleware"), verifier: verifier}
}

// AttachIdentity verifies the bearer token when one is sent. No header means
// anonymous; a token that fails verification is rejected with 401.
func (m *IdentityMiddleware) AttachIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		if m.verifier == nil {
			c.Next()
			return
		}
		token := bearerToken(c)
		if token == "" {
			c.Next()
			return
		}
		id, err := m.verifier.Verify(c.Request.Context(), token)
		if err != nil {
			m.log.Debug("token rejected", "request_id", ctxutil.RequestID(c.Request.Context()), "error", err)
			response.AbortError(c, http.StatusUnauthorized, "unauthorized", services.ErrInvalidToken)
			return
		}
		c.Request = c.Request.WithContext(ctxutil.WithIdentity(c.Request.Context(), id))
		c.Next()
	}
}

// RequireIdentity rejects anonymous requests with 401.
func (m *IdentityMiddleware) RequireIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		if m.verifier == nil {
			c.Next()
			return
		}
		if id := ctxutil.GetIdentity(c.Request.Context()); id == nil || id.Subject == "" {
			response.AbortError(c, http.StatusUnauthorized, "unauthorized", errMissingIdentity)
			return
		}
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "Bearer ") {
		return strings.TrimSpace(authHeader[7:])
	}
	return ""
}
