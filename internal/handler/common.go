// Package handler contains the Echo handlers of the API.  Handlers decode
// requests, call a service and encode its result; errors are returned to
// Echo and rendered by ErrorHandler.
package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/contact-book/internal/apperr"
)

// requestTimeout bounds the store and cache calls of one request.
const requestTimeout = 5 * time.Second

func requestContext(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), requestTimeout)
}

type errorBody struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func writeError(c echo.Context, status int, kind, msg string) error {
	return c.JSON(status, echo.Map{"error": errorBody{Kind: kind, Message: msg}})
}

// respondError renders err as {"error": {"kind", "message"}}.  Only the
// client-facing message of an *apperr.Error is exposed.
func respondError(c echo.Context, err error) error {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		msg := http.StatusText(he.Code)
		if s, ok := he.Message.(string); ok && s != "" {
			msg = s
		}
		return writeError(c, he.Code, kindForStatus(he.Code), msg)
	}
	kind := apperr.KindOf(err)
	return writeError(c, apperr.HTTPStatus(kind), string(kind), apperr.Message(err))
}

func kindForStatus(status int) string {
	switch status {
	case http.StatusNotFound:
		return string(apperr.KindNotFound)
	case http.StatusUnauthorized:
		return string(apperr.KindUnauthenticated)
	case http.StatusBadRequest:
		return string(apperr.KindBadRequest)
	case http.StatusMethodNotAllowed:
		return "method_not_allowed"
	case http.StatusRequestEntityTooLarge:
		return "too_large"
	}
	if status >= 500 {
		return string(apperr.KindInternal)
	}
	return "error"
}

// ErrorHandler is the Echo HTTP error handler of the API.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	if c.Request().Method == http.MethodHead {
		var he *echo.HTTPError
		status := apperr.HTTPStatus(apperr.KindOf(err))
		if errors.As(err, &he) {
			status = he.Code
		}
		_ = c.NoContent(status)
		return
	}
	_ = respondError(c, err)
}

// bind decodes the request body into v.
func bind(c echo.Context, v any) error {
	if err := c.Bind(v); err != nil {
		return apperr.BadRequest("invalid request body")
	}
	return nil
}

// parseID reads a positive integer path parameter.
func parseID(c echo.Context, name string) (uint64, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, apperr.Validation(fmt.Sprintf("%s must be a positive integer", name))
	}
	return id, nil
}
