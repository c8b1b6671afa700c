// Package middleware contains the Echo middleware of the API.
package middleware

import (
	"context"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/contact-book/internal/apperr"
	"github.com/iliyamo/contact-book/internal/model"
)

// PrincipalResolver maps an access token to its user.
type PrincipalResolver interface {
	ResolvePrincipal(ctx context.Context, accessToken string) (*model.User, error)
}

// BearerToken returns the token of an "Authorization: Bearer <token>"
// header, or "" when the header is missing or uses another scheme.
func BearerToken(c echo.Context) string {
	h := c.Request().Header.Get(echo.HeaderAuthorization)
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// Authenticate resolves the bearer access token of the request and stores
// the user on the context.  Requests without a valid token end with an
// Unauthenticated error for the HTTP error handler to render.
func Authenticate(r PrincipalResolver) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := BearerToken(c)
			if raw == "" {
				return apperr.Unauthenticated("Not authenticated", nil)
			}
			u, err := r.ResolvePrincipal(c.Request().Context(), raw)
			if err != nil {
				return err
			}
			SetUser(c, u)
			return next(c)
		}
	}
}
