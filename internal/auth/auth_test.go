package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ms-attractions/internal/apperr"
	"ms-attractions/internal/logger"
)

const testSecret = "test-secret"

func newGateway(t *testing.T) *JWTGateway {
	t.Helper()
	gw, err := NewJWTGateway(testSecret, "ADMIN")
	require.NoError(t, err)
	return gw
}

func TestJWTGatewayAcceptsValidToken(t *testing.T) {
	gw := newGateway(t)
	token, err := IssueToken(testSecret, "user-1", "USER", time.Hour)
	require.NoError(t, err)

	id, err := gw.Authenticate(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", id.UserID)
	assert.Equal(t, "USER", id.Role)
	assert.False(t, id.HasRole("ADMIN"))
	assert.WithinDuration(t, time.Now().Add(time.Hour), id.ExpiresAt, 5*time.Second)
}

func TestJWTGatewayRejections(t *testing.T) {
	gw := newGateway(t)

	expired, err := IssueToken(testSecret, "user-1", "USER", -time.Minute)
	require.NoError(t, err)
	wrongKey, err := IssueToken("other-secret", "user-1", "USER", time.Hour)
	require.NoError(t, err)
	noSub, err := IssueToken(testSecret, "", "USER", time.Hour)
	require.NoError(t, err)
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"sub": "user-1",
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	for name, token := range map[string]string{
		"expired":   expired,
		"wrong key": wrongKey,
		"no sub":    noSub,
		"alg none":  unsigned,
		"garbage":   "not.a.jwt",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := gw.Authenticate(context.Background(), token)
			assert.ErrorIs(t, err, ErrInvalidToken)
			assert.Equal(t, apperr.KindAuth, apperr.KindOf(err))
		})
	}
}

func TestJWTGatewayReadsRoleArrays(t *testing.T) {
	gw := newGateway(t)
	claims := jwt.MapClaims{
		"sub":          "admin-1",
		"exp":          time.Now().Add(time.Hour).Unix(),
		"realm_access": map[string]interface{}{"roles": []string{"offline_access", "ADMIN"}},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)

	id, err := gw.Authenticate(context.Background(), token)
	require.NoError(t, err)
	assert.True(t, id.HasRole("ADMIN"))
}

func TestNewJWTGatewayRequiresSecret(t *testing.T) {
	_, err := NewJWTGateway("", "ADMIN")
	assert.Error(t, err)
}

func TestExtractTokenFromRequest(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	_, err := ExtractTokenFromRequest(r)
	assert.ErrorIs(t, err, ErrMissingToken)

	r.Header.Set("Authorization", "Token abc")
	_, err = ExtractTokenFromRequest(r)
	assert.ErrorIs(t, err, ErrMalformed)

	r.Header.Set("Authorization", "bearer abc")
	token, err := ExtractTokenFromRequest(r)
	require.NoError(t, err)
	assert.Equal(t, "abc", token)
}

func TestMiddlewareAndRequireRole(t *testing.T) {
	gw := newGateway(t)
	log := logger.Nop()

	var seen Identity
	final := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = FromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})
	h := Middleware(gw, log)(RequireRole("ADMIN", log)(final))

	userToken, err := IssueToken(testSecret, "user-1", "USER", time.Hour)
	require.NoError(t, err)
	adminToken, err := IssueToken(testSecret, "admin-1", "ADMIN", time.Hour)
	require.NoError(t, err)

	cases := []struct {
		name   string
		header string
		want   int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"malformed", "Basic abc", http.StatusUnauthorized},
		{"invalid token", "Bearer nope", http.StatusUnauthorized},
		{"not admin", "Bearer " + userToken, http.StatusForbidden},
		{"admin", "Bearer " + adminToken, http.StatusNoContent},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/attractions", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tc.want, rec.Code)
		})
	}
	assert.Equal(t, "admin-1", seen.UserID)
}

type countingGateway struct {
	calls int
	id    Identity
}

func (c *countingGateway) Authenticate(context.Context, string) (Identity, error) {
	c.calls++
	return c.id, nil
}

func TestCachedGatewayServesFromRedis(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	inner := &countingGateway{id: Identity{UserID: "user-1", Role: "USER", ExpiresAt: time.Now().Add(time.Hour)}}
	gw := NewCachedGateway(inner, client, time.Minute, nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		id, err := gw.Authenticate(ctx, "raw-token")
		require.NoError(t, err)
		assert.Equal(t, "user-1", id.UserID)
	}
	assert.Equal(t, 1, inner.calls)
	assert.True(t, mr.Exists(cacheKey("raw-token")))

	mr.FastForward(2 * time.Minute)
	_, err = gw.Authenticate(ctx, "raw-token")
	require.NoError(t, err)
	assert.Equal(t, 2, inner.calls)
}

func TestCachedGatewaySkipsNearlyExpiredTokens(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	inner := &countingGateway{id: Identity{UserID: "user-1", ExpiresAt: time.Now().Add(TokenExpiryBuffer / 2)}}
	gw := NewCachedGateway(inner, client, time.Minute, nil)

	_, err = gw.Authenticate(context.Background(), "short-lived")
	require.NoError(t, err)
	assert.False(t, mr.Exists(cacheKey("short-lived")))
}
