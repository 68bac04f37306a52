package gateway

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/Alkashi1618/projet8-clinique-securisee/internal/platform/apperr"
)

// ErrorBody is the JSON envelope of every error response.
type ErrorBody struct {
	Detail string            `json:"detail"`
	Code   string            `json:"code"`
	Errors map[string]string `json:"errors,omitempty"`
}

const internalMessage = "erreur interne"

var transportCodes = map[int]string{
	http.StatusBadRequest:            string(apperr.KindValidation),
	http.StatusUnauthorized:          "unauthenticated",
	http.StatusForbidden:             string(apperr.KindPermissionDenied),
	http.StatusNotFound:              string(apperr.KindNotFound),
	http.StatusMethodNotAllowed:      "method_not_allowed",
	http.StatusConflict:              string(apperr.KindConflict),
	http.StatusRequestEntityTooLarge: "payload_too_large",
	http.StatusTooManyRequests:       "rate_limited",
	http.StatusServiceUnavailable:    "unavailable",
}

var transportMessages = map[int]string{
	http.StatusNotFound:              "ressource introuvable",
	http.StatusMethodNotAllowed:      "méthode non autorisée",
	http.StatusRequestEntityTooLarge: "requête trop volumineuse",
	http.StatusTooManyRequests:       "trop de requêtes",
}

// Translate maps err to a status code and envelope. The second return is
// false when err is an unexpected fault that should be logged.
func Translate(err error) (int, ErrorBody, bool) {
	var ae *apperr.Error
	if errors.As(err, &ae) {
		msg := ae.Message
		if msg == "" {
			msg = string(ae.Kind)
		}
		return apperr.HTTPStatus(ae.Kind), ErrorBody{Detail: msg, Code: string(ae.Kind), Errors: ae.Fields}, true
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		code, ok := transportCodes[he.Code]
		if !ok {
			if he.Code >= http.StatusInternalServerError {
				return he.Code, ErrorBody{Detail: internalMessage, Code: string(apperr.KindInternal)}, false
			}
			code = "error"
		}
		msg := fmt.Sprint(he.Message)
		if msg == http.StatusText(he.Code) {
			if fr, ok := transportMessages[he.Code]; ok {
				msg = fr
			}
		}
		return he.Code, ErrorBody{Detail: msg, Code: code}, true
	}

	return http.StatusInternalServerError, ErrorBody{Detail: internalMessage, Code: string(apperr.KindInternal)}, false
}

// ErrorHandler renders every error returned by handlers and middleware as
// an ErrorBody. Unexpected errors are logged and never exposed.
func ErrorHandler(logger zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status, body, expected := Translate(err)
		if !expected {
			reqID, _ := c.Get("request_id").(string)
			logger.Error().
				Err(err).
				Str("request_id", reqID).
				Str("method", c.Request().Method).
				Str("path", c.Request().URL.Path).
				Msg("unhandled error")
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(status)
		} else {
			err = c.JSON(status, body)
		}
		if err != nil {
			logger.Error().Err(err).Msg("failed to write error response")
		}
	}
}
