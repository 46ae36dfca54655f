package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type hmacClaims struct {
	jwt.RegisteredClaims
	Role        string   `json:"role,omitempty"`
	Roles       []string `json:"roles,omitempty"`
	RealmAccess struct {
		Roles []string `json:"roles,omitempty"`
	} `json:"realm_access,omitempty"`
}

// JWTGateway verifies HS256 tokens signed with a shared secret.
type JWTGateway struct {
	secret    []byte
	adminRole string
	parser    *jwt.Parser
}

func NewJWTGateway(secret, adminRole string) (*JWTGateway, error) {
	if secret == "" {
		return nil, errors.New("JWT_SECRET is required when AUTH_MODE=jwt")
	}
	return &JWTGateway{
		secret:    []byte(secret),
		adminRole: adminRole,
		parser:    jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired()),
	}, nil
}

func (g *JWTGateway) Authenticate(_ context.Context, rawToken string) (Identity, error) {
	var claims hmacClaims
	_, err := g.parser.ParseWithClaims(rawToken, &claims, func(*jwt.Token) (interface{}, error) {
		return g.secret, nil
	})
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return Identity{}, fmt.Errorf("%w: subject claim not found in token", ErrInvalidToken)
	}

	c := Claims{Subject: claims.Subject, Role: claims.Role, Roles: claims.Roles}
	c.RealmAccess.Roles = claims.RealmAccess.Roles

	id := Identity{UserID: claims.Subject, Role: c.resolveRole(g.adminRole)}
	if claims.ExpiresAt != nil {
		id.ExpiresAt = claims.ExpiresAt.Time
	}
	return id, nil
}

// IssueToken signs an HS256 token for userID that NewJWTGateway accepts.
func IssueToken(secret, userID, role string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := hmacClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Role: role,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}
