package staff

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Alkashi1618/projet8-clinique-securisee/internal/platform/auth"
	"github.com/Alkashi1618/projet8-clinique-securisee/internal/platform/gateway"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/me", h.Me, gateway.Guard(gateway.ResourceSelf, gateway.OpGet))
	api.GET("/medecins", h.ListPhysicians, gateway.Guard(gateway.ResourcePhysician, gateway.OpList))
}

func (h *Handler) Me(c echo.Context) error {
	p := auth.PrincipalFromContext(c.Request().Context())
	if p == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentification requise")
	}
	return c.JSON(http.StatusOK, h.svc.WhoAmI(p))
}

func (h *Handler) ListPhysicians(c echo.Context) error {
	physicians, err := h.svc.ListPhysicians(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, physicians)
}
