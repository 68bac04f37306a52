package auth

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// Principal is the authenticated caller with the role set resolved once for
// the request.
type Principal struct {
	ID        uuid.UUID
	Username  string
	Email     string
	FirstName string
	LastName  string
	Roles     []Role
}

// RoleNames returns the roles as strings, never nil.
func (p *Principal) RoleNames() []string {
	out := make([]string, 0, len(p.Roles))
	for _, r := range p.Roles {
		out = append(out, string(r))
	}
	return out
}

// ErrUnknownPrincipal is returned by resolvers when the token subject does
// not match a stored user.
var ErrUnknownPrincipal = errors.New("unknown principal")

// PrincipalResolver loads a user and its role memberships by token subject.
type PrincipalResolver interface {
	ResolvePrincipal(ctx context.Context, subject string) (*Principal, error)
}

// PrincipalMiddleware turns the verified token subject into a Principal.
// It must run after JWTMiddleware.
func PrincipalMiddleware(resolver PrincipalResolver, skipper middleware.Skipper) echo.MiddlewareFunc {
	if skipper == nil {
		skipper = middleware.DefaultSkipper
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if skipper(c) {
				return next(c)
			}

			ctx := c.Request().Context()
			sub := SubjectFromContext(ctx)
			if sub == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "authentification requise")
			}

			p, err := resolver.ResolvePrincipal(ctx, sub)
			if errors.Is(err, ErrUnknownPrincipal) {
				return echo.NewHTTPError(http.StatusUnauthorized, "utilisateur inconnu")
			}
			if err != nil {
				return err
			}

			c.Set("user_id", p.ID.String())
			c.SetRequest(c.Request().WithContext(WithPrincipal(ctx, p)))
			return next(c)
		}
	}
}

func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, PrincipalKey, p)
}

// PrincipalFromContext returns the request principal, or nil.
func PrincipalFromContext(ctx context.Context) *Principal {
	p, _ := ctx.Value(PrincipalKey).(*Principal)
	return p
}
