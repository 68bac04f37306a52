// Package pagination reads optional limit/offset query parameters and windows
// list results. Lists stay complete when neither parameter is supplied.
package pagination

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
)

const (
	MaxLimit = 500

	// TotalCountHeader carries the size of the unwindowed result.
	TotalCountHeader = "X-Total-Count"
)

// Params holds pagination parameters extracted from a request.
type Params struct {
	Limit   int
	Offset  int
	Enabled bool
}

// FromContext extracts pagination parameters from the echo context. A
// missing limit with an offset present means "everything after offset".
func FromContext(c echo.Context) (Params, error) {
	rawLimit, rawOffset := c.QueryParam("limit"), c.QueryParam("offset")
	if rawLimit == "" && rawOffset == "" {
		return Params{}, nil
	}

	p := Params{Enabled: true, Limit: MaxLimit}
	if rawLimit != "" {
		n, err := strconv.Atoi(rawLimit)
		if err != nil || n <= 0 {
			return Params{}, echo.NewHTTPError(http.StatusBadRequest, "limit doit être un entier positif.")
		}
		if n > MaxLimit {
			n = MaxLimit
		}
		p.Limit = n
	}
	if rawOffset != "" {
		n, err := strconv.Atoi(rawOffset)
		if err != nil || n < 0 {
			return Params{}, echo.NewHTTPError(http.StatusBadRequest, "offset doit être un entier positif ou nul.")
		}
		p.Offset = n
	}
	return p, nil
}

// Window returns the page of items selected by p and records the total in
// the response headers. It returns items untouched when p is not enabled.
func Window[T any](c echo.Context, p Params, items []T) []T {
	if !p.Enabled {
		return items
	}
	c.Response().Header().Set(TotalCountHeader, strconv.Itoa(len(items)))
	if p.Offset >= len(items) {
		return []T{}
	}
	end := p.Offset + p.Limit
	if end > len(items) {
		end = len(items)
	}
	return items[p.Offset:end]
}

// HasNext returns true if there are more results after the current page.
func (p Params) HasNext(total int) bool {
	return p.Enabled && p.Offset+p.Limit < total
}

// NextOffset returns the offset for the next page.
func (p Params) NextOffset() int {
	return p.Offset + p.Limit
}
