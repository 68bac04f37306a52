package patient

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Alkashi1618/projet8-clinique-securisee/internal/platform/gateway"
	"github.com/Alkashi1618/projet8-clinique-securisee/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func guard(op gateway.Operation) echo.MiddlewareFunc {
	return gateway.Guard(gateway.ResourcePatient, op)
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/patients")
	g.GET("", h.List, guard(gateway.OpList))
	g.POST("", h.Create, guard(gateway.OpCreate))
	g.GET("/:id", h.Get, guard(gateway.OpGet))
	g.PUT("/:id", h.Update, guard(gateway.OpUpdate))
	g.PATCH("/:id", h.PartialUpdate, guard(gateway.OpPartialUpdate))
	g.DELETE("/:id", h.Delete, guard(gateway.OpDelete))
}

func (h *Handler) List(c echo.Context) error {
	medecin, err := gateway.ParseOptionalID("medecin", c.QueryParam("medecin"))
	if err != nil {
		return err
	}
	page, err := pagination.FromContext(c)
	if err != nil {
		return err
	}
	patients, err := h.svc.List(c.Request().Context(), Filter{Q: c.QueryParam("q"), Medecin: medecin})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.Window(c, page, patients))
}

func (h *Handler) Create(c echo.Context) error {
	var in Input
	if err := gateway.DecodeBody(c, &in); err != nil {
		return err
	}
	p, err := h.svc.Create(c.Request().Context(), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := gateway.ParseID(c, "id")
	if err != nil {
		return err
	}
	p, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) Update(c echo.Context) error {
	return h.update(c, false)
}

func (h *Handler) PartialUpdate(c echo.Context) error {
	return h.update(c, true)
}

func (h *Handler) update(c echo.Context, partial bool) error {
	id, err := gateway.ParseID(c, "id")
	if err != nil {
		return err
	}
	var in Input
	if err := gateway.DecodeBody(c, &in); err != nil {
		return err
	}
	p, err := h.svc.Update(c.Request().Context(), id, in, partial)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) Delete(c echo.Context) error {
	id, err := gateway.ParseID(c, "id")
	if err != nil {
		return err
	}
	if err := h.svc.Delete(c.Request().Context(), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
