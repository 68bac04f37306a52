package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/Alkashi1618/projet8-clinique-securisee/internal/platform/auth"
)

// Audit logs one structured record per /api request: who did what to which
// record and how it ended. The resource and operation labels come from the
// gateway guard. Denied attempts are recorded too.
func Audit(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if !strings.HasPrefix(req.URL.Path, "/api/") {
				return next(c)
			}

			err := next(c)

			status := responseStatus(c, err)
			evt := logger.Info()
			if status == http.StatusForbidden || status == http.StatusUnauthorized {
				evt = logger.Warn()
			}

			if p := auth.PrincipalFromContext(req.Context()); p != nil {
				evt = evt.
					Str("user_id", p.ID.String()).
					Str("username", p.Username).
					Strs("roles", p.RoleNames())
			}

			rid, _ := c.Get("request_id").(string)
			resource, _ := c.Get("resource").(string)
			operation, _ := c.Get("operation").(string)
			target, ok := c.Get("target_id").(string)
			if !ok {
				target = c.Param("id")
			}
			if operation == "" {
				operation = methodToOperation(req.Method)
			}

			evt.
				Str("type", "audit").
				Str("request_id", rid).
				Str("resource", resource).
				Str("operation", operation).
				Str("target_id", target).
				Str("method", req.Method).
				Str("path", req.URL.Path).
				Str("remote_ip", c.RealIP()).
				Int("status", status).
				Msg("access")

			return err
		}
	}
}

func methodToOperation(method string) string {
	switch method {
	case http.MethodPost:
		return "create"
	case http.MethodPut:
		return "update"
	case http.MethodPatch:
		return "partial_update"
	case http.MethodDelete:
		return "delete"
	default:
		return "read"
	}
}
