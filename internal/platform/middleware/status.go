package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/Alkashi1618/projet8-clinique-securisee/internal/platform/gateway"
)

// responseStatus is the status the client will see. Errors are rendered by
// the error handler after the middleware chain unwinds, so the recorded
// response status is not yet final when err is non-nil.
func responseStatus(c echo.Context, err error) int {
	if err == nil || c.Response().Committed {
		return c.Response().Status
	}
	status, _, _ := gateway.Translate(err)
	return status
}
