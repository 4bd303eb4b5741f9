package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"dispensary-queue/config"
	"dispensary-queue/internal/domain/entity"
	"dispensary-queue/pkg/jwt"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAuth(t *testing.T) (*AuthMiddleware, *jwt.JWTService, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	jwtService := jwt.NewJWTService(config.JWTConfig{Secret: "test-secret", AccessExpiry: time.Minute})
	return NewAuthMiddleware(jwtService, client), jwtService, mr
}

// echoIdentity checks the user id the middleware stored in context.
func echoIdentity(t *testing.T, wantUser uuid.UUID) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := GetUserIDFromContext(r.Context())
		assert.True(t, ok)
		assert.Equal(t, wantUser, userID)

		identity, ok := GetIdentityFromContext(r.Context())
		assert.True(t, ok)
		assert.Equal(t, entity.RoleName(identity.RoleID), identity.Role)
		w.WriteHeader(http.StatusNoContent)
	})
}

func serveWithToken(handler http.Handler, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestAuthenticate(t *testing.T) {
	auth, jwtService, mr := newTestAuth(t)
	userID := uuid.New()

	token, tokenID, err := jwtService.GenerateAccessToken(userID, "patient@example.com", entity.RoleIDPatient)
	require.NoError(t, err)

	handler := auth.Authenticate(RequirePatient(echoIdentity(t, userID)))

	t.Run("missing header", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("malformed header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Token "+token)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("revoked token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("live token", func(t *testing.T) {
		require.NoError(t, mr.Set(AccessTokenKey(userID, tokenID), "1"))

		rec := serveWithToken(handler, token)
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})

	t.Run("lowercase scheme", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "bearer "+token)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})

	t.Run("expired session message", func(t *testing.T) {
		rec := serveWithToken(handler, token+"tampered")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Body.String(), "sign in again")
	})
}

func TestAuthenticate_UnknownRoleIsForbidden(t *testing.T) {
	auth, jwtService, mr := newTestAuth(t)
	userID := uuid.New()

	token, tokenID, err := jwtService.GenerateAccessToken(userID, "someone@example.com", 99)
	require.NoError(t, err)
	require.NoError(t, mr.Set(AccessTokenKey(userID, tokenID), "1"))

	rec := serveWithToken(auth.Authenticate(echoIdentity(t, userID)), token)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAuthenticate_SessionStoreDown(t *testing.T) {
	auth, jwtService, mr := newTestAuth(t)
	userID := uuid.New()

	token, _, err := jwtService.GenerateAccessToken(userID, "staff@example.com", entity.RoleIDStaff)
	require.NoError(t, err)
	mr.Close()

	rec := serveWithToken(auth.Authenticate(echoIdentity(t, userID)), token)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
}

func TestRequireAdminOrStaff(t *testing.T) {
	auth, jwtService, mr := newTestAuth(t)

	tests := []struct {
		roleID int
		want   int
	}{
		{entity.RoleIDAdmin, http.StatusNoContent},
		{entity.RoleIDStaff, http.StatusNoContent},
		{entity.RoleIDPatient, http.StatusForbidden},
		{entity.RoleIDDoctor, http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(entity.RoleName(tt.roleID), func(t *testing.T) {
			userID := uuid.New()
			token, tokenID, err := jwtService.GenerateAccessToken(userID, "user@example.com", tt.roleID)
			require.NoError(t, err)
			require.NoError(t, mr.Set(AccessTokenKey(userID, tokenID), "1"))

			req := httptest.NewRequest(http.MethodPost, "/", nil)
			req.Header.Set("Authorization", "Bearer "+token)
			rec := httptest.NewRecorder()
			auth.Authenticate(RequireAdminOrStaff(echoIdentity(t, userID))).ServeHTTP(rec, req)

			assert.Equal(t, tt.want, rec.Code)
		})
	}
}
