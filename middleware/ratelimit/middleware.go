package ratelimit

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
)

type Config struct {
	Store        *Store
	Rate         int
	Period       time.Duration
	RouteClass   string
	KeyGenerator func(c echo.Context) string
}

// Middleware throttles a route class per client IP. It sits in front of
// the durable cooldowns as cheap early rejection, never as the sole
// enforcement of anything security-sensitive.
func Middleware(cfg *Config) echo.MiddlewareFunc {
	if cfg.Store == nil {
		cfg.Store = NewStore(time.Minute)
	}
	if cfg.Rate <= 0 {
		cfg.Rate = 10
	}
	if cfg.Period <= 0 {
		cfg.Period = time.Minute
	}
	if cfg.KeyGenerator == nil {
		cfg.KeyGenerator = func(c echo.Context) string {
			ip := c.RealIP()
			if ip == "" {
				ip = "unknown"
			}
			return cfg.RouteClass + ":" + ip
		}
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			result := cfg.Store.Check(cfg.KeyGenerator(c), cfg.Period, cfg.Rate)

			c.Response().Header().Set("X-RateLimit-Limit", strconv.Itoa(cfg.Rate))
			c.Response().Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
			c.Response().Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))

			if !result.Allowed {
				return echo.NewHTTPError(http.StatusTooManyRequests, "Too Many Requests")
			}

			return next(c)
		}
	}
}
