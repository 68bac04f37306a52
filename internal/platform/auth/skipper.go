package auth

import (
	"github.com/labstack/echo/v4"
)

// publicPaths bypass authentication and the per-request database connection.
var publicPaths = map[string]bool{
	"/health":       true,
	"/health/db":    true,
	"/metrics":      true,
	"/openapi.json": true,
}

// AuthSkipper reports whether the matched route is public. Use it as the
// Skipper of JWTConfig and of the principal middleware.
func AuthSkipper(c echo.Context) bool {
	return publicPaths[c.Path()]
}

func IsPublicPath(path string) bool {
	return publicPaths[path]
}
