package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/fleet-backend/internal/platform/ctxutil"
	"github.com/yungbote/fleet-backend/internal/platform/logger"
)

type stubVerifier struct {
	tokens map[string]string
}

func (v stubVerifier) Verify(_ context.Context, token string) (*ctxutil.Identity, error) {
	if sub, ok := v.tokens[token]; ok {
		return &ctxutil.Identity{Subject: sub}, nil
	}
	return nil, errors.New("unknown token")
}

func serve(r *gin.Engine, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestAttachTraceContext(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var seen string
	r := gin.New()
	r.Use(AttachTraceContext())
	r.GET("/x", func(c *gin.Context) {
		seen = ctxutil.RequestID(c.Request.Context())
		c.Status(http.StatusOK)
	})

	rec := serve(r, nil)
	if seen == "" || rec.Header().Get(headerRequestID) != seen {
		t.Fatalf("generated request id: ctx=%q header=%q", seen, rec.Header().Get(headerRequestID))
	}
	if rec.Header().Get(headerTraceID) == "" {
		t.Fatalf("missing trace id header")
	}

	rec = serve(r, map[string]string{headerRequestID: "req-123"})
	if seen != "req-123" || rec.Header().Get(headerRequestID) != "req-123" {
		t.Fatalf("client request id not kept: %q", seen)
	}
}

func identityRouter(verifier stubVerifier, require bool) (*gin.Engine, *string) {
	gin.SetMode(gin.TestMode)
	m := NewIdentityMiddleware(logger.Nop(), verifier)
	subject := new(string)
	r := gin.New()
	r.Use(m.AttachIdentity())
	handlers := []gin.HandlerFunc{}
	if require {
		handlers = append(handlers, m.RequireIdentity())
	}
	handlers = append(handlers, func(c *gin.Context) {
		*subject = ""
		if id := ctxutil.GetIdentity(c.Request.Context()); id != nil {
			*subject = id.Subject
		}
		c.Status(http.StatusOK)
	})
	r.GET("/x", handlers...)
	return r, subject
}

func TestAttachIdentity(t *testing.T) {
	r, subject := identityRouter(stubVerifier{tokens: map[string]string{"good": "auth0|1"}}, false)

	if rec := serve(r, nil); rec.Code != http.StatusOK || *subject != "" {
		t.Fatalf("anonymous: code=%d subject=%q", rec.Code, *subject)
	}
	if rec := serve(r, map[string]string{"Authorization": "Bearer good"}); rec.Code != http.StatusOK || *subject != "auth0|1" {
		t.Fatalf("valid token: code=%d subject=%q", rec.Code, *subject)
	}
	if rec := serve(r, map[string]string{"Authorization": "Bearer bad"}); rec.Code != http.StatusUnauthorized {
		t.Fatalf("invalid token: want=401 got=%d", rec.Code)
	}
	if rec := serve(r, map[string]string{"Authorization": "Basic Zm9vOmJhcg=="}); rec.Code != http.StatusOK || *subject != "" {
		t.Fatalf("non-bearer auth: code=%d subject=%q", rec.Code, *subject)
	}
}

func TestRequireIdentity(t *testing.T) {
	r, _ := identityRouter(stubVerifier{tokens: map[string]string{"good": "auth0|1"}}, true)
	if rec := serve(r, nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous: want=401 got=%d", rec.Code)
	}
	if rec := serve(r, map[string]string{"Authorization": "Bearer good"}); rec.Code != http.StatusOK {
		t.Fatalf("valid token: want=200 got=%d", rec.Code)
	}
}

func TestIdentityDisabledWithoutVerifier(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := NewIdentityMiddleware(logger.Nop(), nil)
	r := gin.New()
	r.Use(m.AttachIdentity())
	r.GET("/x", m.RequireIdentity(), func(c *gin.Context) { c.Status(http.StatusOK) })

	if rec := serve(r, map[string]string{"Authorization": "Bearer anything"}); rec.Code != http.StatusOK {
		t.Fatalf("want=200 got=%d", rec.Code)
	}
}
