// Package gateway holds the request-level policy shared by every domain
// handler: which operations a principal may perform, how request input is
// decoded, and how errors become HTTP responses.
package gateway

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Alkashi1618/projet8-clinique-securisee/internal/platform/apperr"
	"github.com/Alkashi1618/projet8-clinique-securisee/internal/platform/auth"
)

type Operation string

const (
	OpList          Operation = "list"
	OpGet           Operation = "get"
	OpCreate        Operation = "create"
	OpUpdate        Operation = "update"
	OpPartialUpdate Operation = "partial_update"
	OpUpdateStatus  Operation = "update_status"
	OpDelete        Operation = "delete"
)

// IsWrite reports whether op mutates state.
func (op Operation) IsWrite() bool {
	switch op {
	case OpCreate, OpUpdate, OpPartialUpdate, OpUpdateStatus, OpDelete:
		return true
	}
	return false
}

type Resource string

const (
	ResourcePatient     Resource = "patient"
	ResourceAppointment Resource = "rendezvous"
	ResourcePhysician   Resource = "medecin"
	ResourceSelf        Resource = "me"
)

// readOnly resources expose no write operation at all.
var readOnly = map[Resource]bool{
	ResourcePhysician: true,
	ResourceSelf:      true,
}

const deniedMessage = "Permission refusée"

// Authorize decides whether p may perform op on res. Reads need any
// authenticated principal; writes need Administrateur or Secretaire.
func Authorize(p *auth.Principal, res Resource, op Operation) error {
	if !auth.CanRead(p) {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentification requise")
	}
	if !op.IsWrite() {
		return nil
	}
	if readOnly[res] || !auth.CanWrite(p) {
		return apperr.PermissionDenied(deniedMessage)
	}
	return nil
}

// Guard checks the operation before the handler runs. A denied request
// never reaches the domain service.
func Guard(res Resource, op Operation) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set("resource", string(res))
			c.Set("operation", string(op))
			if err := Authorize(auth.PrincipalFromContext(c.Request().Context()), res, op); err != nil {
				return err
			}
			return next(c)
		}
	}
}
