package middleware

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// Limits configures the booking rate limiter
type Limits struct {
	PerSecond int
	PerDay    int
}

// DefaultLimits allows short bursts while keeping one caller from
// draining a train's inventory by brute force.
var DefaultLimits = Limits{
	PerSecond: 5,
	PerDay:    500,
}

// BookingRateLimit limits booking attempts per caller, keyed by the
// X-User-ID header and falling back to the client IP. Counters live in
// Redis so the limit holds across replicas; Redis errors fail open.
func BookingRateLimit(rdb *redis.Client, limits Limits) fiber.Handler {
	return func(c *fiber.Ctx) error {
		caller := c.Get("X-User-ID")
		if caller == "" {
			caller = c.IP()
		}

		ctx := context.Background()
		now := time.Now()

		keySecond := fmt.Sprintf("rl:booking:%s:second:%d", caller, now.Unix())
		keyDay := fmt.Sprintf("rl:booking:%s:day:%s", caller, now.Format("2006-01-02"))

		if limits.PerSecond > 0 {
			count, err := rdb.Incr(ctx, keySecond).Result()
			if err == nil {
				rdb.Expire(ctx, keySecond, 2*time.Second)

				if count > int64(limits.PerSecond) {
					c.Set("X-RateLimit-Limit-Second", strconv.Itoa(limits.PerSecond))
					c.Set("Retry-After", "1")

					return c.Status(429).JSON(fiber.Map{
						"error":       "rate_limit_exceeded",
						"message":     "Too many booking attempts per second",
						"retry_after": 1,
					})
				}
			}
		}

		if limits.PerDay > 0 {
			count, err := rdb.Incr(ctx, keyDay).Result()
			if err == nil {
				rdb.Expire(ctx, keyDay, 25*time.Hour)

				if count > int64(limits.PerDay) {
					tomorrow := now.AddDate(0, 0, 1)
					midnight := time.Date(tomorrow.Year(), tomorrow.Month(), tomorrow.Day(), 0, 0, 0, 0, tomorrow.Location())
					retryAfter := int64(midnight.Sub(now).Seconds())

					c.Set("X-RateLimit-Limit-Day", strconv.Itoa(limits.PerDay))
					c.Set("Retry-After", strconv.FormatInt(retryAfter, 10))

					return c.Status(429).JSON(fiber.Map{
						"error":       "daily_quota_exceeded",
						"message":     "Daily booking quota exceeded",
						"retry_after": retryAfter,
						"reset_at":    midnight.Format(time.RFC3339),
					})
				}

				c.Set("X-RateLimit-Remaining-Day", strconv.FormatInt(int64(limits.PerDay)-count, 10))
			}
		}

		return c.Next()
	}
}
