package scheduling

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Alkashi1618/projet8-clinique-securisee/internal/platform/apperr"
	"github.com/Alkashi1618/projet8-clinique-securisee/internal/platform/gateway"
	"github.com/Alkashi1618/projet8-clinique-securisee/internal/platform/validation"
	"github.com/Alkashi1618/projet8-clinique-securisee/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func guard(op gateway.Operation) echo.MiddlewareFunc {
	return gateway.Guard(gateway.ResourceAppointment, op)
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/rendezvous")
	g.GET("", h.List, guard(gateway.OpList))
	g.POST("", h.Create, guard(gateway.OpCreate))
	g.PATCH("", h.UpdateStatusByBody, guard(gateway.OpUpdateStatus))
	g.GET("/:id", h.Get, guard(gateway.OpGet))
	g.PUT("/:id", h.Update, guard(gateway.OpUpdate))
	g.PATCH("/:id", h.PartialUpdate, guard(gateway.OpPartialUpdate))
	g.PATCH("/:id/statut", h.UpdateStatus, guard(gateway.OpUpdateStatus))
	g.DELETE("/:id", h.Delete, guard(gateway.OpDelete))
}

func (h *Handler) List(c echo.Context) error {
	f, err := filterFromQuery(c)
	if err != nil {
		return err
	}
	page, err := pagination.FromContext(c)
	if err != nil {
		return err
	}
	appointments, err := h.svc.List(c.Request().Context(), f)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.Window(c, page, appointments))
}

func filterFromQuery(c echo.Context) (Filter, error) {
	var f Filter
	if s := strings.TrimSpace(c.QueryParam("statut")); s != "" {
		f.Statut = Status(s)
		if !f.Statut.Valid() {
			return f, apperr.InvalidField("statut", fmt.Sprintf("%q n'est pas un choix valide.", s))
		}
	}
	if d := strings.TrimSpace(c.QueryParam("date")); d != "" {
		if _, err := validation.ParseDate(d); err != nil {
			return f, apperr.InvalidField("date", "Format de date invalide. Utilisez AAAA-MM-JJ.")
		}
		f.Date = d
	}
	var err error
	if f.Medecin, err = gateway.ParseOptionalID("medecin", c.QueryParam("medecin")); err != nil {
		return f, err
	}
	if f.Patient, err = gateway.ParseOptionalID("patient", c.QueryParam("patient")); err != nil {
		return f, err
	}
	return f, nil
}

func (h *Handler) Create(c echo.Context) error {
	var in Input
	if err := gateway.DecodeBody(c, &in); err != nil {
		return err
	}
	a, err := h.svc.Create(c.Request().Context(), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, a)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := gateway.ParseID(c, "id")
	if err != nil {
		return err
	}
	a, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, a)
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
	a, err := h.svc.Update(c.Request().Context(), id, in, partial)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, a)
}

// UpdateStatus serves PATCH /rendezvous/:id/statut.
func (h *Handler) UpdateStatus(c echo.Context) error {
	id, err := gateway.ParseID(c, "id")
	if err != nil {
		return err
	}
	var in StatusInput
	if err := gateway.DecodeBody(c, &in); err != nil {
		return err
	}
	a, err := h.svc.UpdateStatus(c.Request().Context(), id, in.Statut)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, a)
}

// UpdateStatusByBody serves PATCH /rendezvous, where the id travels in the
// body next to the status.
func (h *Handler) UpdateStatusByBody(c echo.Context) error {
	var in StatusInput
	if err := gateway.DecodeBody(c, &in); err != nil {
		return err
	}
	if in.ID == nil || strings.TrimSpace(*in.ID) == "" {
		return apperr.InvalidField("id", "Ce champ est obligatoire.")
	}
	id, err := uuid.Parse(strings.TrimSpace(*in.ID))
	if err != nil {
		return apperr.InvalidField("id", "Identifiant invalide.")
	}
	c.Set("target_id", id.String())
	a, err := h.svc.UpdateStatus(c.Request().Context(), id, in.Statut)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, a)
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
