package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// CachingMiddleware sets a default Cache-Control on GET responses. Replay
// state changes every second, so API responses are never cached; the
// static page and route files are.
func CachingMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()

		if c.Method() != fiber.MethodGet {
			return err
		}
		if len(c.Response().Header.Peek(fiber.HeaderCacheControl)) > 0 {
			return err
		}

		path := c.Path()
		var ttl string
		switch {
		case path == "/metrics", strings.HasPrefix(path, "/v1/replay"):
			ttl = "no-cache"
		case path == "/v1/health" || path == "/v1/ready":
			ttl = "public, max-age=10"
		case path == "/v1/route":
			ttl = "private, max-age=0, must-revalidate"
		case strings.HasPrefix(path, "/v1/"):
			ttl = "no-store"
		case strings.HasSuffix(path, ".json"), strings.HasSuffix(path, ".gpx"):
			ttl = "public, max-age=60"
		case path == "/" || strings.HasSuffix(path, ".html"):
			ttl = "public, max-age=300"
		}

		if ttl != "" {
			c.Set(fiber.HeaderCacheControl, ttl)
		}
		return err
	}
}
