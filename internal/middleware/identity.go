package middleware

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/contact-book/internal/model"
)

const userKey = "user"

// SetUser stores the authenticated user on the request context.
func SetUser(c echo.Context, u *model.User) { c.Set(userKey, u) }

// CurrentUser returns the user stored by Authenticate, or nil on public
// routes.
func CurrentUser(c echo.Context) *model.User {
	u, _ := c.Get(userKey).(*model.User)
	return u
}

// userID returns the id of the current user for rate limit keys, "anon"
// when nobody is authenticated.
func userID(c echo.Context) string {
	if u := CurrentUser(c); u != nil {
		return strconv.FormatUint(u.ID, 10)
	}
	return "anon"
}
