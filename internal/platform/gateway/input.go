package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Alkashi1618/projet8-clinique-securisee/internal/platform/apperr"
)

// DecodeBody binds the JSON request body into v. An empty body, malformed
// JSON and values of the wrong type are validation errors. A body declared
// with another content type keeps echo's 415.
func DecodeBody(c echo.Context, v any) error {
	if c.Request().ContentLength == 0 {
		return apperr.Validation(msgEmptyBody, nil)
	}
	err := c.Bind(v)
	if err == nil {
		return nil
	}
	if errors.Is(err, echo.ErrUnsupportedMediaType) {
		return err
	}
	if errors.Is(err, io.EOF) {
		return apperr.Validation(msgEmptyBody, nil)
	}
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		return apperr.InvalidField(jsonField(typeErr.Field), "Type de valeur invalide.")
	}
	return &apperr.Error{Kind: apperr.KindValidation, Message: "JSON invalide", Err: err}
}

const msgEmptyBody = "corps de requête vide"

func jsonField(path string) string {
	if i := strings.LastIndex(path, "."); i >= 0 {
		return path[i+1:]
	}
	return path
}

// ParseID parses a path parameter as a UUID.
func ParseID(c echo.Context, param string) (uuid.UUID, error) {
	raw := c.Param(param)
	if raw == "" {
		return uuid.Nil, apperr.InvalidField(param, "Ce champ est obligatoire.")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, apperr.InvalidField(param, "Identifiant invalide.")
	}
	return id, nil
}

// ParseOptionalID parses s as a UUID when non-empty. field names the
// offending input in the error.
func ParseOptionalID(field, s string) (*uuid.UUID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return nil, apperr.InvalidField(field, fmt.Sprintf("%q n'est pas un identifiant valide.", s))
	}
	return &id, nil
}
