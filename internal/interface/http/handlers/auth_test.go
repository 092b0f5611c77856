package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuthWithSecret(t *testing.T, userID, secret string) *TokenAuth {
	t.Helper()
	hash, err := HashSecret(secret)
	require.NoError(t, err)
	return NewTokenAuth(map[string]string{userID: hash})
}

func TestTokenAuth_Authenticate(t *testing.T) {
	auth := newAuthWithSecret(t, "user-1", "s3cret")

	userID, ok := auth.Authenticate("user-1:s3cret")
	assert.True(t, ok)
	assert.Equal(t, "user-1", userID)

	_, ok = auth.Authenticate("user-1:wrong")
	assert.False(t, ok)

	_, ok = auth.Authenticate("unknown:s3cret")
	assert.False(t, ok)

	// Malformed tokens never authenticate.
	_, ok = auth.Authenticate("no-separator")
	assert.False(t, ok)
	_, ok = auth.Authenticate(":s3cret")
	assert.False(t, ok)
	_, ok = auth.Authenticate("user-1:")
	assert.False(t, ok)
}

func TestTokenAuth_CredentialLifecycle(t *testing.T) {
	auth := newAuthWithSecret(t, "user-1", "old")

	hash, err := HashSecret("new")
	require.NoError(t, err)
	auth.SetCredential("user-1", hash)

	_, ok := auth.Authenticate("user-1:old")
	assert.False(t, ok)
	_, ok = auth.Authenticate("user-1:new")
	assert.True(t, ok)

	auth.RemoveCredential("user-1")
	_, ok = auth.Authenticate("user-1:new")
	assert.False(t, ok)
}

func TestTokenAuth_Middleware(t *testing.T) {
	auth := newAuthWithSecret(t, "user-1", "s3cret")

	var gotUserID string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserID = UserIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	handler := auth.Middleware(next)

	// Valid token passes and injects the user ID.
	req := httptest.NewRequest(http.MethodGet, "/api/v1/habits", nil)
	req.Header.Set("Authorization", "Bearer user-1:s3cret")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "user-1", gotUserID)

	// Missing header is rejected before the handler runs.
	gotUserID = ""
	req = httptest.NewRequest(http.MethodGet, "/api/v1/habits", nil)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, gotUserID)

	// Invalid token is rejected too.
	req = httptest.NewRequest(http.MethodGet, "/api/v1/habits", nil)
	req.Header.Set("Authorization", "Bearer user-1:nope")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestUserIDFromContext_Empty(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Empty(t, UserIDFromContext(req.Context()))
}
