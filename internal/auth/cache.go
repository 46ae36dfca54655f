package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"ms-attractions/internal/logger"
)

const (
	// TokenCachePrefix namespaces verified identities in redis.
	TokenCachePrefix = "auth_identity:"
	// TokenExpiryBuffer is how long before token expiry a cached identity stops being served.
	TokenExpiryBuffer = 10 * time.Second
)

// CachedGateway remembers verified identities in redis so repeated requests
// with the same token skip signature and provider checks.
type CachedGateway struct {
	Inner  Gateway
	Client *redis.Client
	TTL    time.Duration
	Logger *logger.Logger
}

func NewCachedGateway(inner Gateway, client *redis.Client, ttl time.Duration, log *logger.Logger) *CachedGateway {
	if log == nil {
		log = logger.Nop()
	}
	return &CachedGateway{Inner: inner, Client: client, TTL: ttl, Logger: log}
}

func cacheKey(rawToken string) string {
	sum := sha256.Sum256([]byte(rawToken))
	return TokenCachePrefix + hex.EncodeToString(sum[:])
}

func (c *CachedGateway) Authenticate(ctx context.Context, rawToken string) (Identity, error) {
	key := cacheKey(rawToken)

	if cached, err := c.Client.Get(ctx, key).Result(); err == nil {
		var id Identity
		if json.Unmarshal([]byte(cached), &id) == nil && id.UserID != "" && stillValid(id) {
			return id, nil
		}
	} else if err != redis.Nil {
		c.Logger.Warn("AUTH", fmt.Sprintf("Token cache read failed: %v", err))
	}

	id, err := c.Inner.Authenticate(ctx, rawToken)
	if err != nil {
		return Identity{}, err
	}

	ttl := c.TTL
	if !id.ExpiresAt.IsZero() {
		if remaining := time.Until(id.ExpiresAt) - TokenExpiryBuffer; remaining < ttl {
			ttl = remaining
		}
	}
	if ttl > 0 {
		payload, _ := json.Marshal(id)
		if err := c.Client.Set(ctx, key, payload, ttl).Err(); err != nil {
			c.Logger.Warn("AUTH", fmt.Sprintf("Token cache write failed: %v", err))
		}
	}
	return id, nil
}

func stillValid(id Identity) bool {
	return id.ExpiresAt.IsZero() || time.Now().Add(TokenExpiryBuffer).Before(id.ExpiresAt)
}
