package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"github.com/hashscope/hashscope/internal/apikey"
)

const apiKeyHeader = "X-API-Key"

// APIKeyAuth authenticates data-plane requests using the X-API-Key header.
// The header value carries the public key id and the secret joined by a dot.
func APIKeyAuth(keys *apikey.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw := strings.TrimSpace(c.Get(apiKeyHeader))
		if raw == "" {
			return fiber.NewError(http.StatusUnauthorized, "missing API key")
		}
		keyID, secret, found := strings.Cut(raw, ".")
		if !found || keyID == "" || secret == "" {
			return fiber.NewError(http.StatusUnauthorized, "malformed API key")
		}

		key, user, err := keys.Authenticate(c.UserContext(), keyID, secret)
		if err != nil {
			return fiber.NewError(http.StatusUnauthorized, "invalid API key")
		}

		c.Locals("api_key_id", key.KeyID)
		c.Locals("api_key_rate_limit", key.RateLimitPerMin)
		c.Locals("api_user_id", user.ID)
		c.Locals("api_user_wallet", user.WalletAddress)
		return c.Next()
	}
}

// KeyRateLimit throttles per API key using Redis if available. The per-key
// budget is the one stored on the key record by APIKeyAuth.
func KeyRateLimit(cache *redis.Client, fallbackPerMin int) fiber.Handler {
	if fallbackPerMin <= 0 {
		fallbackPerMin = 60
	}
	return func(c *fiber.Ctx) error {
		if cache == nil {
			return c.Next() // no-op without Redis
		}
		keyID, _ := c.Locals("api_key_id").(string)
		if keyID == "" {
			return c.Next()
		}
		limit, _ := c.Locals("api_key_rate_limit").(int)
		if limit <= 0 {
			limit = fallbackPerMin
		}
		rlKey := "rl:key:" + keyID
		cnt, err := cache.Incr(c.UserContext(), rlKey).Result()
		if err == nil && cnt == 1 {
			cache.Expire(c.UserContext(), rlKey, time.Minute)
		}
		if err != nil {
			return c.Next() // fail-open on cache errors
		}
		if cnt > int64(limit) {
			return fiber.NewError(http.StatusTooManyRequests, "rate limit exceeded, try again later")
		}
		return c.Next()
	}
}
