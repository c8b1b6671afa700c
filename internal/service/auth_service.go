// Package service holds the use cases of the API.  Services depend on small
// interfaces satisfied by the repositories, the principal resolver and the
// mail publisher, and return *apperr.Error values that handlers map to HTTP.
package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/iliyamo/contact-book/internal/apperr"
	"github.com/iliyamo/contact-book/internal/auth"
	"github.com/iliyamo/contact-book/internal/model"
	"github.com/iliyamo/contact-book/internal/queue"
	"github.com/iliyamo/contact-book/internal/repository"
	"github.com/iliyamo/contact-book/internal/utils"
)

// UserStore is the authoritative user storage.
type UserStore interface {
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	Create(ctx context.Context, nu model.NewUser) (*model.User, error)
	SetRefreshTokenHash(ctx context.Context, userID uint64, hash string) error
	Confirm(ctx context.Context, email string) error
	SetPassword(ctx context.Context, userID uint64, passwordHash string) error
	SetAvatar(ctx context.Context, userID uint64, url string) error
}

// PrincipalEvictor drops cached user snapshots after a change in the store.
type PrincipalEvictor interface {
	Forget(ctx context.Context, email string)
}

// SignupInput is the payload of a registration.
type SignupInput struct {
	Username string
	Email    string
	Password string
}

// TokenPair is returned by login and refresh.
type TokenPair struct {
	Access  auth.Token
	Refresh auth.Token
}

// Messages returned by the email flows.
const (
	MsgEmailConfirmed        = "Email confirmed"
	MsgEmailAlreadyConfirmed = "Your email is already confirmed"
	MsgCheckEmailConfirm     = "Check your email for confirmation."
	MsgCheckEmailReset       = "Check your email to reset your password."
	MsgPasswordReset         = "Password has been reset"
)

// AuthService implements signup, login, the refresh token lifecycle and the
// email verification and password reset flows.
type AuthService struct {
	users      UserStore
	tokens     *auth.Manager
	principals PrincipalEvictor
	notifier   Notifier
	bcryptCost int
	baseURL    string
	log        *zap.Logger
}

// AuthDeps groups the collaborators of AuthService.
type AuthDeps struct {
	Users      UserStore
	Tokens     *auth.Manager
	Principals PrincipalEvictor
	Notifier   Notifier
	BcryptCost int
	BaseURL    string
	Log        *zap.Logger
}

func NewAuthService(d AuthDeps) *AuthService {
	log := d.Log
	if log == nil {
		log = zap.NewNop()
	}
	return &AuthService{
		users:      d.Users,
		tokens:     d.Tokens,
		principals: d.Principals,
		notifier:   d.Notifier,
		bcryptCost: d.BcryptCost,
		baseURL:    d.BaseURL,
		log:        log.Named("auth"),
	}
}

func (s *AuthService) forget(ctx context.Context, email string) {
	if s.principals != nil {
		s.principals.Forget(ctx, email)
	}
}

func (s *AuthService) findUser(ctx context.Context, email string) (*model.User, error) {
	u, err := s.users.FindByEmail(ctx, repository.NormalizeEmail(email))
	if err != nil {
		return nil, apperr.Internal("could not load user", err)
	}
	return u, nil
}

// sendMail mints an email token and publishes the mail.  Failures are logged
// and never fail the calling request.
func (s *AuthService) sendMail(ctx context.Context, u *model.User, kind queue.MailKind) {
	if s.notifier == nil {
		return
	}
	tok, err := s.tokens.IssueEmailToken(u.Email, auth.Scope(kind))
	if err != nil {
		s.log.Warn("issue email token failed", zap.String("email", u.Email), zap.Error(err))
		return
	}
	ev := queue.MailEvent{Kind: kind, Email: u.Email, Username: u.Username, Token: tok.Value, BaseURL: s.baseURL}
	if err := s.notifier.Notify(ctx, ev); err != nil {
		s.log.Warn("mail notification failed", zap.String("kind", string(kind)), zap.String("email", u.Email), zap.Error(err))
	}
}

// Register creates an unconfirmed user with a Gravatar avatar and queues a
// verification mail.
func (s *AuthService) Register(ctx context.Context, in SignupInput) (*model.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = repository.NormalizeEmail(in.Email)
	if err := validateSignup(in); err != nil {
		return nil, err
	}
	hash, err := utils.HashPassword(in.Password, s.bcryptCost)
	if err != nil {
		return nil, apperr.Internal("could not hash password", err)
	}
	u, err := s.users.Create(ctx, model.NewUser{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
		AvatarURL:    utils.GravatarURL(in.Email),
	})
	if errors.Is(err, repository.ErrEmailExists) {
		return nil, apperr.Conflict("Account already exists")
	}
	if err != nil {
		return nil, apperr.Internal("could not create user", err)
	}
	s.sendMail(ctx, u, queue.MailEmailVerify)
	return u, nil
}

// issuePair mints a token pair and stores the hash of the refresh token,
// replacing any earlier one.
func (s *AuthService) issuePair(ctx context.Context, u *model.User) (TokenPair, error) {
	access, err := s.tokens.IssueAccessToken(u.Email)
	if err != nil {
		return TokenPair{}, apperr.Internal("could not issue access token", err)
	}
	refresh, err := s.tokens.IssueRefreshToken(u.Email)
	if err != nil {
		return TokenPair{}, apperr.Internal("could not issue refresh token", err)
	}
	if err := s.users.SetRefreshTokenHash(ctx, u.ID, utils.HashToken(refresh.Value)); err != nil {
		return TokenPair{}, apperr.Internal("could not store refresh token", err)
	}
	return TokenPair{Access: access, Refresh: refresh}, nil
}

// Login checks the credentials of a confirmed user and starts a session.
func (s *AuthService) Login(ctx context.Context, email, password string) (TokenPair, error) {
	u, err := s.findUser(ctx, email)
	if err != nil {
		return TokenPair{}, err
	}
	if u == nil {
		return TokenPair{}, apperr.Unauthenticated("Invalid email", nil)
	}
	if !u.Confirmed {
		return TokenPair{}, apperr.Unauthenticated("Email not confirmed", nil)
	}
	if !utils.VerifyPassword(u.PasswordHash, password) {
		return TokenPair{}, apperr.Unauthenticated("Invalid password", nil)
	}
	return s.issuePair(ctx, u)
}

// Refresh exchanges the active refresh token for a new pair.  A token that
// is validly signed but is not the stored one revokes the session: the
// stored hash is cleared and the owner has to log in again.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	email, err := s.tokens.DecodeRefreshSubject(refreshToken)
	if err != nil {
		return TokenPair{}, err
	}
	u, err := s.findUser(ctx, email)
	if err != nil {
		return TokenPair{}, err
	}
	if u == nil {
		return TokenPair{}, apperr.Unauthenticated("could not validate credentials", nil)
	}
	if u.RefreshTokenHash == "" || u.RefreshTokenHash != utils.HashToken(refreshToken) {
		if u.RefreshTokenHash != "" {
			if err := s.users.SetRefreshTokenHash(ctx, u.ID, ""); err != nil {
				return TokenPair{}, apperr.Internal("could not revoke refresh token", err)
			}
			s.forget(ctx, u.Email)
			s.log.Warn("refresh token reuse, session revoked", zap.String("email", u.Email))
		}
		return TokenPair{}, apperr.Unauthenticated("Invalid refresh token", nil)
	}
	return s.issuePair(ctx, u)
}

// Logout revokes the refresh token of u.
func (s *AuthService) Logout(ctx context.Context, u *model.User) error {
	if err := s.users.SetRefreshTokenHash(ctx, u.ID, ""); err != nil {
		return apperr.Internal("could not revoke refresh token", err)
	}
	s.forget(ctx, u.Email)
	return nil
}

// ConfirmEmail marks the owner of a verification token as confirmed.
func (s *AuthService) ConfirmEmail(ctx context.Context, token string) (string, error) {
	email, err := s.tokens.EmailFromToken(token, auth.ScopeEmailVerify)
	if err != nil {
		return "", err
	}
	u, err := s.findUser(ctx, email)
	if err != nil {
		return "", err
	}
	if u == nil {
		return "", apperr.BadRequest("Verification error")
	}
	if u.Confirmed {
		return MsgEmailAlreadyConfirmed, nil
	}
	if err := s.users.Confirm(ctx, u.Email); err != nil {
		return "", apperr.Internal("could not confirm email", err)
	}
	s.forget(ctx, u.Email)
	return MsgEmailConfirmed, nil
}

// RequestEmail sends a new verification mail to an unconfirmed user.
func (s *AuthService) RequestEmail(ctx context.Context, email string) (string, error) {
	u, err := s.findUser(ctx, email)
	if err != nil {
		return "", err
	}
	if u == nil {
		return "", apperr.NotFound("User not found")
	}
	if u.Confirmed {
		return MsgEmailAlreadyConfirmed, nil
	}
	s.sendMail(ctx, u, queue.MailEmailVerify)
	return MsgCheckEmailConfirm, nil
}

// RequestPasswordReset sends a password reset mail.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) (string, error) {
	u, err := s.findUser(ctx, email)
	if err != nil {
		return "", err
	}
	if u == nil {
		return "", apperr.NotFound("User not found")
	}
	s.sendMail(ctx, u, queue.MailPasswordReset)
	return MsgCheckEmailReset, nil
}

// ResetPassword sets a new password for the owner of a reset token.  The
// refresh token is revoked so every session has to log in again.
func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string) (string, error) {
	if err := checkPassword(newPassword); err != nil {
		return "", err
	}
	email, err := s.tokens.EmailFromToken(token, auth.ScopePasswordReset)
	if err != nil {
		return "", err
	}
	u, err := s.findUser(ctx, email)
	if err != nil {
		return "", err
	}
	if u == nil {
		return "", apperr.NotFound("User not found")
	}
	hash, err := utils.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return "", apperr.Internal("could not hash password", err)
	}
	if err := s.users.SetPassword(ctx, u.ID, hash); err != nil {
		return "", apperr.Internal("could not update password", err)
	}
	s.forget(ctx, u.Email)
	return MsgPasswordReset, nil
}
