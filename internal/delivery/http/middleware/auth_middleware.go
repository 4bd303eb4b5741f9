package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"dispensary-queue/internal/domain/entity"
	"dispensary-queue/pkg/jwt"
	"dispensary-queue/pkg/response"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

type contextKey string

const identityKey contextKey = "identity"

// sessionStoreRetryAfterSeconds is the Retry-After hint when the shared session store is down.
const sessionStoreRetryAfterSeconds = 1

// Identity is the caller as seen by the booking API: a patient booking for themselves,
// dispensary staff at the counter, an admin managing schedules, or a doctor.
type Identity struct {
	UserID  uuid.UUID
	Email   string
	RoleID  int
	Role    string
	TokenID string
}

// IsCounterStaff reports whether the caller may book walk-ins and read session lists.
func (i Identity) IsCounterStaff() bool {
	return i.RoleID == entity.RoleIDAdmin || i.RoleID == entity.RoleIDStaff
}

// AuthMiddleware verifies bearer tokens issued by the identity service. A token is accepted
// only while its access_token:{user}:{token} key is alive in the shared Redis and its role
// is one the dispensary knows.
type AuthMiddleware struct {
	jwtService  *jwt.JWTService
	redisClient *redis.Client
}

func NewAuthMiddleware(jwtService *jwt.JWTService, redisClient *redis.Client) *AuthMiddleware {
	return &AuthMiddleware{
		jwtService:  jwtService,
		redisClient: redisClient,
	}
}

func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString, ok := bearerToken(r)
		if !ok {
			response.Unauthorized(w, "Sign in to use the booking service")
			return
		}

		claims, err := m.jwtService.ValidateToken(tokenString)
		if err != nil {
			response.Unauthorized(w, "Session expired, please sign in again")
			return
		}

		// Refresh tokens only ever go back to the identity service.
		if claims.TokenType != jwt.AccessToken {
			response.Unauthorized(w, "Refresh tokens cannot be used for bookings")
			return
		}

		role := entity.RoleName(claims.RoleID)
		if role == "" {
			response.Forbidden(w, "Your account has no dispensary role")
			return
		}

		exists, err := m.redisClient.Exists(r.Context(), AccessTokenKey(claims.UserID, claims.TokenID)).Result()
		if err != nil {
			response.ServiceUnavailable(w, "Unable to verify your session, please retry", sessionStoreRetryAfterSeconds)
			return
		}
		if exists == 0 {
			response.Unauthorized(w, "You have been signed out, please sign in again")
			return
		}

		identity := Identity{
			UserID:  claims.UserID,
			Email:   claims.Email,
			RoleID:  claims.RoleID,
			Role:    role,
			TokenID: claims.TokenID,
		}
		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
	})
}

// bearerToken extracts the token from "Authorization: Bearer <token>". The scheme is case-insensitive.
func bearerToken(r *http.Request) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(r.Header.Get("Authorization")), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// AccessTokenKey is the Redis key marking an access token as live.
func AccessTokenKey(userID uuid.UUID, tokenID string) string {
	return fmt.Sprintf("access_token:%s:%s", userID.String(), tokenID)
}

// WithIdentity stores the authenticated caller in ctx.
func WithIdentity(ctx context.Context, identity Identity) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}

// GetIdentityFromContext returns the caller stored by Authenticate.
func GetIdentityFromContext(ctx context.Context) (Identity, bool) {
	identity, ok := ctx.Value(identityKey).(Identity)
	return identity, ok
}

// GetUserIDFromContext extracts user ID from context
func GetUserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	identity, ok := GetIdentityFromContext(ctx)
	return identity.UserID, ok
}

// GetRoleIDFromContext extracts role ID from context
func GetRoleIDFromContext(ctx context.Context) (int, bool) {
	identity, ok := GetIdentityFromContext(ctx)
	return identity.RoleID, ok
}
