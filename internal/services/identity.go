package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/yungbote/fleet-backend/internal/platform/ctxutil"
)

var ErrInvalidToken = errors.New("invalid or expired token")

// IdentityVerifier turns a bearer token into verified caller claims.
type IdentityVerifier interface {
	Verify(ctx context.Context, token string) (*ctxutil.Identity, error)
}

type IdentityClaims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

type jwtVerifier struct {
	secret []byte
	opts   []jwt.ParserOption
}

// NewJWTVerifier verifies HS256 tokens signed with secret. Issuer and audience
// are checked only when non-empty.
func NewJWTVerifier(secret, issuer, audience string) (IdentityVerifier, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, fmt.Errorf("JWT secret is required")
	}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(30 * time.Second),
	}
	if issuer = strings.TrimSpace(issuer); issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}
	if audience = strings.TrimSpace(audience); audience != "" {
		opts = append(opts, jwt.WithAudience(audience))
	}
	return &jwtVerifier{secret: []byte(secret), opts: opts}, nil
}

func (v *jwtVerifier) Verify(_ context.Context, token string) (*ctxutil.Identity, error) {
	parsed, err := jwt.ParseWithClaims(token, &IdentityClaims{}, func(*jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, v.opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	claims, ok := parsed.Claims.(*IdentityClaims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return &ctxutil.Identity{Subject: claims.Subject, Email: claims.Email}, nil
}

// SignIdentityToken issues an HS256 token for subject. Used by local tooling
// and tests; production tokens come from the identity provider.
func SignIdentityToken(secret, subject, email string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := IdentityClaims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}
