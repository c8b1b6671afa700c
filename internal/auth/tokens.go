// Package auth issues and validates the signed tokens used by the API and
// resolves the user behind an access token.
//
// Every token carries a scope claim and is only accepted by the operation
// family it was minted for: an access token cannot be used to refresh a
// session and a verification link cannot reset a password.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/iliyamo/contact-book/internal/apperr"
)

// Scope discriminates token families.
type Scope string

const (
	ScopeAccess        Scope = "access_token"
	ScopeRefresh       Scope = "refresh_token"
	ScopeEmailVerify   Scope = "email_verify"
	ScopePasswordReset Scope = "password_reset"
)

const (
	DefaultAccessTTL  = 15 * time.Minute
	DefaultRefreshTTL = 7 * 24 * time.Hour
	DefaultEmailTTL   = 7 * 24 * time.Hour
)

// TokenConfig is the signing configuration.  Algorithm must name an HMAC
// method (HS256, HS384 or HS512); zero TTLs fall back to the defaults.
type TokenConfig struct {
	Secret     string
	Algorithm  string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	EmailTTL   time.Duration
}

// Claims is the claim set of every token.  The subject is the user's email.
type Claims struct {
	Scope Scope `json:"scope"`
	jwt.RegisteredClaims
}

// Token is a signed token together with its expiry.
type Token struct {
	Value     string
	ExpiresAt time.Time
}

// Manager mints and decodes tokens.  It holds no mutable state and is safe
// for concurrent use.
type Manager struct {
	secret     []byte
	method     jwt.SigningMethod
	accessTTL  time.Duration
	refreshTTL time.Duration
	emailTTL   time.Duration
	now        func() time.Time
}

// NewManager validates cfg and returns a Manager.
func NewManager(cfg TokenConfig) (*Manager, error) {
	if cfg.Secret == "" {
		return nil, errors.New("auth: empty signing secret")
	}
	alg := cfg.Algorithm
	if alg == "" {
		alg = jwt.SigningMethodHS256.Alg()
	}
	method, ok := jwt.GetSigningMethod(alg).(*jwt.SigningMethodHMAC)
	if !ok {
		return nil, fmt.Errorf("auth: unsupported signing algorithm %q", alg)
	}
	m := &Manager{
		secret:     []byte(cfg.Secret),
		method:     method,
		accessTTL:  orDefault(cfg.AccessTTL, DefaultAccessTTL),
		refreshTTL: orDefault(cfg.RefreshTTL, DefaultRefreshTTL),
		emailTTL:   orDefault(cfg.EmailTTL, DefaultEmailTTL),
		now:        time.Now,
	}
	return m, nil
}

func orDefault(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}

// IssueAccessToken returns a short-lived token for calling protected endpoints.
func (m *Manager) IssueAccessToken(subject string) (Token, error) {
	return m.issue(subject, ScopeAccess, m.accessTTL)
}

// IssueRefreshToken returns a long-lived token that can be exchanged for a
// new token pair.
func (m *Manager) IssueRefreshToken(subject string) (Token, error) {
	return m.issue(subject, ScopeRefresh, m.refreshTTL)
}

// IssueEmailToken returns a token to be sent by mail.  scope must be
// ScopeEmailVerify or ScopePasswordReset.
func (m *Manager) IssueEmailToken(subject string, scope Scope) (Token, error) {
	if scope != ScopeEmailVerify && scope != ScopePasswordReset {
		return Token{}, fmt.Errorf("auth: %q is not an email token scope", scope)
	}
	return m.issue(subject, scope, m.emailTTL)
}

func (m *Manager) issue(subject string, scope Scope, ttl time.Duration) (Token, error) {
	if subject == "" {
		return Token{}, errors.New("auth: empty token subject")
	}
	now := m.now().UTC()
	exp := now.Add(ttl)
	claims := Claims{
		Scope: scope,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
			// two tokens minted in the same second must still differ
			ID: uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(m.method, claims).SignedString(m.secret)
	if err != nil {
		return Token{}, fmt.Errorf("auth: sign %s: %w", scope, err)
	}
	return Token{Value: signed, ExpiresAt: exp.Truncate(time.Second)}, nil
}

// Decode verifies the signature, algorithm and expiry of raw and checks that
// it was minted for scope.  Every failure is an Unauthenticated error.
func (m *Manager) Decode(raw string, scope Scope) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims,
		func(*jwt.Token) (any, error) { return m.secret, nil },
		jwt.WithValidMethods([]string{m.method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, apperr.Unauthenticated("token expired", err)
		}
		return nil, apperr.Unauthenticated("could not validate credentials", err)
	}
	if claims.Scope != scope {
		return nil, apperr.Unauthenticated("invalid scope for token", nil)
	}
	if claims.Subject == "" {
		return nil, apperr.Unauthenticated("could not validate credentials", nil)
	}
	return claims, nil
}

// DecodeRefreshSubject returns the email carried by a refresh token.
func (m *Manager) DecodeRefreshSubject(raw string) (string, error) {
	claims, err := m.Decode(raw, ScopeRefresh)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

// EmailFromToken returns the email carried by a verification or password
// reset token.
func (m *Manager) EmailFromToken(raw string, scope Scope) (string, error) {
	claims, err := m.Decode(raw, scope)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}
