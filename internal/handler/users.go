package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/contact-book/internal/apperr"
	"github.com/iliyamo/contact-book/internal/middleware"
	"github.com/iliyamo/contact-book/internal/service"
)

// maxAvatarBytes caps an uploaded avatar.
const maxAvatarBytes = 5 << 20

// UserHandler serves the profile of the authenticated user.
type UserHandler struct {
	Users *service.UserService
}

func NewUserHandler(u *service.UserService) *UserHandler {
	return &UserHandler{Users: u}
}

// Me returns the current user.
func (h *UserHandler) Me(c echo.Context) error {
	u := middleware.CurrentUser(c)
	if u == nil {
		return apperr.Unauthenticated("Not authenticated", nil)
	}
	return c.JSON(http.StatusOK, toUserResp(u))
}

// UpdateAvatar stores the multipart "file" part as the profile picture.
func (h *UserHandler) UpdateAvatar(c echo.Context) error {
	u := middleware.CurrentUser(c)
	if u == nil {
		return apperr.Unauthenticated("Not authenticated", nil)
	}
	fh, err := c.FormFile("file")
	if err != nil {
		return apperr.Validation("file is required")
	}
	if fh.Size > maxAvatarBytes {
		return apperr.Validation("file is too large")
	}
	f, err := fh.Open()
	if err != nil {
		return apperr.BadRequest("could not read file")
	}
	defer f.Close()

	// uploads are not bound by requestTimeout
	ctx := c.Request().Context()
	updated, err := h.Users.UpdateAvatar(ctx, u, fh.Header.Get(echo.HeaderContentType), f, fh.Size)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toUserResp(updated))
}
