package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hms-service/internal/auth"
	"hms-service/internal/domain/users"
	"hms-service/internal/http/middleware"
)

const testSecret = "test-secret"

// fakeUserSource serves accounts from a fixed map.
type fakeUserSource map[string]*users.User

func (s fakeUserSource) LoadUser(_ context.Context, username string) (*users.User, error) {
	return s[username], nil
}

func newTestRouter(src UserSource) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewHandler(nil, nil, nil, nil, nil, src, nil, zerolog.Nop())
	r := gin.New()
	h.Register(r, middleware.Identify(auth.NewParser(testSecret)))
	return r
}

func signToken(t *testing.T, username string) string {
	t.Helper()
	claims := &auth.Claims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return token
}

func TestUploadPhotoRejectsAnonymous(t *testing.T) {
	r := newTestRouter(fakeUserSource{})

	// No token at all.
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/reports/5a0b0a64-1111-4a2b-9c3d-0e5f6a7b8c9d/photos", nil)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// A malformed token is treated as anonymous, not as a caller.
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/v1/reports/5a0b0a64-1111-4a2b-9c3d-0e5f6a7b8c9d/photos", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAdminRoutesRejectNonSuperusers(t *testing.T) {
	src := fakeUserSource{
		"scout1": {
			Username: "scout1",
			Scout:    &users.ScoutProfile{Mode: users.ModeAssignedTo},
		},
		"legacy": {Username: "legacy"},
	}
	r := newTestRouter(src)

	paths := []string{
		"/api/v1/areas/5a0b0a64-1111-4a2b-9c3d-0e5f6a7b8c9d/join",
		"/api/v1/resources/5a0b0a64-1111-4a2b-9c3d-0e5f6a7b8c9d/spatial-join",
		"/api/v1/resources/5a0b0a64-1111-4a2b-9c3d-0e5f6a7b8c9d/reindex",
	}

	for _, path := range paths {
		// Anonymous callers stop at the auth gate.
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, path, nil)
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)

		// An authenticated scout holds a valid token but no admin
		// rights.
		w = httptest.NewRecorder()
		req = httptest.NewRequest(http.MethodPost, path, nil)
		req.Header.Set("Authorization", "Bearer "+signToken(t, "scout1"))
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusForbidden, w.Code, path)

		// Same for a profile-less account.
		w = httptest.NewRecorder()
		req = httptest.NewRequest(http.MethodPost, path, nil)
		req.Header.Set("Authorization", "Bearer "+signToken(t, "legacy"))
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusForbidden, w.Code, path)
	}
}
