// Package auth verifies bearer tokens and exposes the caller identity to handlers.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/robalyx/imagegate/internal/setup/config"
	"github.com/uptrace/bunrouter"
	"go.uber.org/zap"
)

var (
	ErrMissingToken  = errors.New("missing bearer token")
	ErrInvalidToken  = errors.New("invalid token")
	ErrMissingSecret = errors.New("jwt secret is not configured")
)

type identityCtxKey struct{}

// Claims are the token claims issued by the identity provider.
type Claims struct {
	Email         string `json:"email,omitempty"`
	EmailVerified bool   `json:"email_verified,omitempty"`
	Role          string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Identity is the verified caller of a request.
type Identity struct {
	UserID        string
	Email         string
	EmailVerified bool
	Moderator     bool
}

// Verified reports whether the caller may act as a known user.
func (i *Identity) Verified() bool {
	return i != nil && i.UserID != "" && i.EmailVerified
}

// FromContext returns the identity attached by the middleware, or nil for anonymous calls.
func FromContext(ctx context.Context) *Identity {
	if id, ok := ctx.Value(identityCtxKey{}).(*Identity); ok {
		return id
	}
	return nil
}

// WithIdentity attaches an identity to the context.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityCtxKey{}, id)
}

// Middleware parses HS256 bearer tokens.
type Middleware struct {
	secret        []byte
	issuer        string
	moderatorRole string
	logger        *zap.Logger
}

// New creates a new auth middleware.
func New(cfg *config.Auth, logger *zap.Logger) (*Middleware, error) {
	if cfg.JWTSecret == "" {
		return nil, ErrMissingSecret
	}

	return &Middleware{
		secret:        []byte(cfg.JWTSecret),
		issuer:        cfg.Issuer,
		moderatorRole: cfg.ModeratorRole,
		logger:        logger.Named("auth_middleware"),
	}, nil
}

// ValidateToken parses a token string and returns the identity it carries.
func (m *Middleware) ValidateToken(tokenString string) (*Identity, error) {
	opts := []jwt.ParserOption{jwt.WithExpirationRequired()}
	if m.issuer != "" {
		opts = append(opts, jwt.WithIssuer(m.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("%w: unexpected signing method %v", ErrInvalidToken, token.Header["alg"])
		}
		return m.secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}

	return &Identity{
		UserID:        claims.Subject,
		Email:         claims.Email,
		EmailVerified: claims.EmailVerified,
		Moderator:     m.moderatorRole != "" && claims.Role == m.moderatorRole,
	}, nil
}

// Optional attaches the identity when a valid token is present. A malformed
// token is rejected; a missing one leaves the request anonymous.
func (m *Middleware) Optional(next bunrouter.HandlerFunc) bunrouter.HandlerFunc {
	return func(w http.ResponseWriter, req bunrouter.Request) error {
		tokenString, ok := bearerToken(req.Request)
		if !ok {
			return next(w, req)
		}

		id, err := m.ValidateToken(tokenString)
		if err != nil {
			m.logger.Debug("Rejected token", zap.Error(err))
			return unauthorized(w, "invalid token")
		}

		return next(w, req.WithContext(WithIdentity(req.Context(), id)))
	}
}

// RequireUser rejects callers without a verified identity.
func (m *Middleware) RequireUser(next bunrouter.HandlerFunc) bunrouter.HandlerFunc {
	return m.Optional(func(w http.ResponseWriter, req bunrouter.Request) error {
		id := FromContext(req.Context())
		if id == nil {
			return unauthorized(w, "authentication required")
		}
		if !id.Verified() {
			return forbidden(w, "email address is not verified")
		}
		return next(w, req)
	})
}

// RequireModerator rejects callers without the moderator role.
func (m *Middleware) RequireModerator(next bunrouter.HandlerFunc) bunrouter.HandlerFunc {
	return m.RequireUser(func(w http.ResponseWriter, req bunrouter.Request) error {
		if !FromContext(req.Context()).Moderator {
			return forbidden(w, "moderator role required")
		}
		return next(w, req)
	})
}

// bearerToken extracts the token from the Authorization header.
func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false
	}
	token, _ := strings.CutPrefix(header, "Bearer ")
	return strings.TrimSpace(token), true
}

func unauthorized(w http.ResponseWriter, msg string) error {
	w.Header().Set("WWW-Authenticate", "Bearer")
	return writeError(w, http.StatusUnauthorized, msg, "unauthorized")
}

func forbidden(w http.ResponseWriter, msg string) error {
	return writeError(w, http.StatusForbidden, msg, "forbidden")
}

func writeError(w http.ResponseWriter, status int, msg, code string) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return bunrouter.JSON(w, map[string]string{"error": msg, "code": code})
}
