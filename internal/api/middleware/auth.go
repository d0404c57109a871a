package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/dvloznov/finance-assistant/internal/config"
	"github.com/dvloznov/finance-assistant/internal/logger"
)

// ProtectedPrefix is the path prefix that requires a bearer token.
const ProtectedPrefix = "/api/"

var errNoToken = errors.New("missing bearer token")

// Authenticator verifies identity-provider tokens and attaches the subject as
// the user id. With no key configured every protected request is rejected.
type Authenticator struct {
	key     any
	methods []string
	issuer  string
}

// NewAuthenticator builds an Authenticator from cfg. An RSA public key takes
// precedence over the shared secret.
func NewAuthenticator(cfg config.AuthConfig) (*Authenticator, error) {
	a := &Authenticator{issuer: cfg.Issuer}

	switch {
	case cfg.JWTPublicKey != "":
		key, err := jwt.ParseRSAPublicKeyFromPEM([]byte(cfg.JWTPublicKey))
		if err != nil {
			return nil, fmt.Errorf("NewAuthenticator: parse public key: %w", err)
		}
		a.key = key
		a.methods = []string{"RS256", "RS384", "RS512"}
	case cfg.JWTSecret != "":
		a.key = []byte(cfg.JWTSecret)
		a.methods = []string{"HS256", "HS384", "HS512"}
	}

	return a, nil
}

// Configured reports whether any verification key is set.
func (a *Authenticator) Configured() bool {
	return a.key != nil
}

// Middleware rejects requests under ProtectedPrefix without a valid token.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, ProtectedPrefix) {
			next.ServeHTTP(w, r)
			return
		}

		userID, err := a.authenticate(r)
		if err != nil {
			log := logger.FromContext(r.Context())
			log.Debug().Err(err).Str("path", r.URL.Path).Msg("request rejected")
			WriteError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		log := logger.FromContext(r.Context()).With().Str("user_id", userID).Logger()
		ctx := WithUserID(r.Context(), userID)
		ctx = logger.WithContext(ctx, log)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (a *Authenticator) authenticate(r *http.Request) (string, error) {
	if a.key == nil {
		return "", errors.New("authentication not configured")
	}

	h := r.Header.Get("Authorization")
	if !strings.HasPrefix(h, "Bearer ") {
		return "", errNoToken
	}
	tokenStr := strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	if tokenStr == "" {
		return "", errNoToken
	}

	opts := []jwt.ParserOption{jwt.WithValidMethods(a.methods)}
	if a.issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.issuer))
	}

	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(*jwt.Token) (any, error) {
		return a.key, nil
	}, opts...)
	if err != nil {
		return "", err
	}
	if !token.Valid {
		return "", errors.New("invalid token")
	}
	if claims.Subject == "" {
		return "", errors.New("token has no subject")
	}
	return claims.Subject, nil
}

// WithUserID returns ctx carrying the authenticated user id.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// UserIDFromContext returns the authenticated user id attached by Auth.
func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey).(string)
	return id, ok && id != ""
}
