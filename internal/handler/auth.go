package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/contact-book/internal/apperr"
	"github.com/iliyamo/contact-book/internal/middleware"
	"github.com/iliyamo/contact-book/internal/model"
	"github.com/iliyamo/contact-book/internal/service"
)

// AuthHandler serves the /api/auth endpoints.
type AuthHandler struct {
	Auth *service.AuthService
}

func NewAuthHandler(a *service.AuthService) *AuthHandler {
	return &AuthHandler{Auth: a}
}

// ----- DTOs -----

type signupReq struct {
	Username string `json:"username" form:"username"`
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

// loginReq accepts the OAuth2 password form too, where the email travels in
// the username field.
type loginReq struct {
	Email    string `json:"email" form:"email"`
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
}

type emailReq struct {
	Email string `json:"email" form:"email"`
}

type resetConfirmReq struct {
	Token       string `json:"token" form:"token"`
	NewPassword string `json:"new_password" form:"new_password"`
}

type userResp struct {
	ID        uint64    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Avatar    string    `json:"avatar"`
	Confirmed bool      `json:"confirmed"`
	CreatedAt time.Time `json:"created_at"`
}

func toUserResp(u *model.User) userResp {
	return userResp{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		Avatar:    u.AvatarURL,
		Confirmed: u.Confirmed,
		CreatedAt: u.CreatedAt,
	}
}

type signupResp struct {
	User   userResp `json:"user"`
	Detail string   `json:"detail"`
}

type tokenResp struct {
	AccessToken      string    `json:"access_token"`
	RefreshToken     string    `json:"refresh_token"`
	TokenType        string    `json:"token_type"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}

func toTokenResp(p service.TokenPair) tokenResp {
	return tokenResp{
		AccessToken:      p.Access.Value,
		RefreshToken:     p.Refresh.Value,
		TokenType:        "bearer",
		AccessExpiresAt:  p.Access.ExpiresAt,
		RefreshExpiresAt: p.Refresh.ExpiresAt,
	}
}

type messageResp struct {
	Message string `json:"message"`
}

// Signup registers an unconfirmed user and queues the verification mail.
func (h *AuthHandler) Signup(c echo.Context) error {
	var req signupReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	u, err := h.Auth.Register(ctx, service.SignupInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, signupResp{
		User:   toUserResp(u),
		Detail: "User successfully created. " + service.MsgCheckEmailConfirm,
	})
}

// Login exchanges credentials for an access and refresh token pair.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := bind(c, &req); err != nil {
		return err
	}
	email := strings.TrimSpace(req.Email)
	if email == "" {
		email = strings.TrimSpace(req.Username)
	}
	if email == "" || req.Password == "" {
		return apperr.Validation("email and password are required")
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	pair, err := h.Auth.Login(ctx, email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toTokenResp(pair))
}

// RefreshToken rotates the pair.  The refresh token travels as a bearer
// credential.
func (h *AuthHandler) RefreshToken(c echo.Context) error {
	raw := middleware.BearerToken(c)
	if raw == "" {
		return apperr.Unauthenticated("Not authenticated", nil)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	pair, err := h.Auth.Refresh(ctx, raw)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toTokenResp(pair))
}

// Logout revokes the refresh token of the current user.
func (h *AuthHandler) Logout(c echo.Context) error {
	u := middleware.CurrentUser(c)
	if u == nil {
		return apperr.Unauthenticated("Not authenticated", nil)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.Auth.Logout(ctx, u); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// ConfirmEmail is the target of the verification link.
func (h *AuthHandler) ConfirmEmail(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	msg, err := h.Auth.ConfirmEmail(ctx, c.Param("token"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResp{Message: msg})
}

// RequestEmail sends a new verification mail.
func (h *AuthHandler) RequestEmail(c echo.Context) error {
	var req emailReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	msg, err := h.Auth.RequestEmail(ctx, req.Email)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResp{Message: msg})
}

// RequestPasswordReset sends a reset mail.
func (h *AuthHandler) RequestPasswordReset(c echo.Context) error {
	var req emailReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	msg, err := h.Auth.RequestPasswordReset(ctx, req.Email)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResp{Message: msg})
}

// ConfirmPasswordReset sets the new password carried with a reset token.
func (h *AuthHandler) ConfirmPasswordReset(c echo.Context) error {
	var req resetConfirmReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	msg, err := h.Auth.ResetPassword(ctx, req.Token, req.NewPassword)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResp{Message: msg})
}
