package handlers

import (
	"context"
	"net/http"
	"strings"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// ══════════════════════════════════════════════════════════════════════════════
// BEARER TOKEN AUTHENTICATION
// ══════════════════════════════════════════════════════════════════════════════

// Tokens have the form "<user_id>:<secret>". Only bcrypt hashes of the
// secret are kept in memory, so a config dump never leaks usable credentials.

// ContextKey is a type for context keys.
type ContextKey string

// ContextKeyUserID is the context key holding the authenticated user ID.
const ContextKeyUserID ContextKey = "user_id"

// TokenAuth authenticates bearer tokens against bcrypt-hashed secrets.
type TokenAuth struct {
	mu sync.RWMutex

	// hashes maps user ID to the bcrypt hash of that user's secret.
	hashes map[string][]byte
}

// NewTokenAuth creates an authenticator from userID -> bcrypt-hash pairs.
func NewTokenAuth(credentials map[string]string) *TokenAuth {
	hashes := make(map[string][]byte, len(credentials))
	for userID, hash := range credentials {
		if userID != "" && hash != "" {
			hashes[userID] = []byte(hash)
		}
	}
	return &TokenAuth{hashes: hashes}
}

// HashSecret produces the bcrypt hash to store for a secret. Used by
// provisioning tooling, never at request time.
func HashSecret(secret string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// SetCredential adds or replaces a user's hashed secret.
func (a *TokenAuth) SetCredential(userID, hash string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.hashes[userID] = []byte(hash)
}

// RemoveCredential revokes a user's access.
func (a *TokenAuth) RemoveCredential(userID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.hashes, userID)
}

// Authenticate validates a raw token and returns the user ID it carries.
func (a *TokenAuth) Authenticate(token string) (string, bool) {
	userID, secret, found := strings.Cut(token, ":")
	if !found || userID == "" || secret == "" {
		return "", false
	}

	a.mu.RLock()
	hash, ok := a.hashes[userID]
	a.mu.RUnlock()
	if !ok {
		return "", false
	}

	if err := bcrypt.CompareHashAndPassword(hash, []byte(secret)); err != nil {
		return "", false
	}
	return userID, true
}

// Middleware returns an HTTP middleware that requires a valid bearer token
// and injects the authenticated user ID into the request context.
func (a *TokenAuth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			writeAuthError(w, "missing_token", "Bearer token is required")
			return
		}

		userID, ok := a.Authenticate(token)
		if !ok {
			writeAuthError(w, "invalid_token", "Invalid bearer token")
			return
		}

		ctx := context.WithValue(r.Context(), ContextKeyUserID, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// UserIDFromContext extracts the authenticated user ID, if any.
func UserIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(ContextKeyUserID).(string); ok {
		return id
	}
	return ""
}

// bearerToken pulls the token from the Authorization header.
func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return ""
}

func writeAuthError(w http.ResponseWriter, code, message string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"success":false,"error":{"code":"` + code + `","message":"` + message + `"}}`))
}

// ══════════════════════════════════════════════════════════════════════════════
// MIDDLEWARE CHAIN BUILDER
// ══════════════════════════════════════════════════════════════════════════════

// MiddlewareFunc is a function that wraps an http.Handler.
type MiddlewareFunc func(http.Handler) http.Handler

// Chain chains multiple middleware functions.
func Chain(middlewares ...MiddlewareFunc) MiddlewareFunc {
	return func(final http.Handler) http.Handler {
		for i := len(middlewares) - 1; i >= 0; i-- {
			final = middlewares[i](final)
		}
		return final
	}
}
