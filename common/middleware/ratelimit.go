package middleware

import (
	"net/http"
	"os"
	"time"

	"github.com/labstack/echo/v4"

	rediscommon "github.com/arthaus/editions/common/redis"
)

// isInternalRequest checks if the request is from an internal service
// Internal services set X-Internal-Service header to bypass rate limits
func isInternalRequest(c echo.Context) bool {
	internalHeader := c.Request().Header.Get("X-Internal-Service")
	if internalHeader == "" {
		return false
	}

	// Verify against shared secret (prevents spoofing)
	expectedSecret := os.Getenv("INTERNAL_SERVICE_SECRET")
	if expectedSecret == "" {
		return false
	}

	return internalHeader == expectedSecret
}

// WebhookRateLimitMiddleware throttles the order-sync webhook with a
// per-caller fixed window in Redis. The upstream platform retries
// delivery, so a rejected call is only deferred, never lost.
func WebhookRateLimitMiddleware(redis *rediscommon.Client, limit int) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			// Skip rate limiting for internal service calls
			if isInternalRequest(c) {
				return next(c)
			}

			key := "editions:ratelimit:webhook:" + c.RealIP() + ":" + time.Now().UTC().Format("200601021504")
			count, err := redis.IncrWithWindow(c.Request().Context(), key, time.Minute)
			if err != nil {
				// On error, allow request (fail open for availability)
				return next(c)
			}

			if count > int64(limit) {
				return c.JSON(http.StatusTooManyRequests, map[string]interface{}{
					"error":   "webhook_rate_limit_exceeded",
					"message": "Too many sync deliveries. Please retry later.",
					"details": map[string]interface{}{
						"limit":  limit,
						"window": "60 seconds",
					},
				})
			}

			return next(c)
		}
	}
}
