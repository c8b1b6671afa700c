package auth

import (
	"context"

	"go.uber.org/zap"

	"github.com/iliyamo/contact-book/internal/apperr"
	"github.com/iliyamo/contact-book/internal/model"
)

// UserFinder is the authoritative user store.  FindByEmail returns nil and
// no error when the user does not exist.
type UserFinder interface {
	FindByEmail(ctx context.Context, email string) (*model.User, error)
}

// PrincipalCache holds user snapshots keyed by email.  Get returns nil and
// no error on a miss.
type PrincipalCache interface {
	Get(ctx context.Context, email string) (*model.User, error)
	Set(ctx context.Context, u *model.User) error
	Delete(ctx context.Context, email string) error
}

// Resolver turns an access token into the user it was issued for.
type Resolver struct {
	tokens *Manager
	users  UserFinder
	cache  PrincipalCache
	log    *zap.Logger
}

// NewResolver builds a Resolver.  cache may be nil, in which case every
// call reads the store.
func NewResolver(tokens *Manager, users UserFinder, cache PrincipalCache, log *zap.Logger) *Resolver {
	if log == nil {
		log = zap.NewNop()
	}
	return &Resolver{tokens: tokens, users: users, cache: cache, log: log}
}

// ResolvePrincipal validates an access token and loads its user through the
// read-through cache.  A cache error counts as a miss and a failed cache
// write is only logged; the store stays the source of truth.
func (r *Resolver) ResolvePrincipal(ctx context.Context, accessToken string) (*model.User, error) {
	claims, err := r.tokens.Decode(accessToken, ScopeAccess)
	if err != nil {
		return nil, err
	}
	email := claims.Subject

	if r.cache != nil {
		u, err := r.cache.Get(ctx, email)
		switch {
		case err != nil:
			r.log.Warn("principal cache read failed", zap.String("email", email), zap.Error(err))
		case u != nil:
			return u, nil
		}
	}

	u, err := r.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, apperr.Internal("could not load user", err)
	}
	if u == nil {
		return nil, apperr.Unauthenticated("could not validate credentials", nil)
	}

	if r.cache != nil {
		if err := r.cache.Set(ctx, u); err != nil {
			r.log.Warn("principal cache write failed", zap.String("email", email), zap.Error(err))
		}
	}
	return u, nil
}

// Forget evicts the cached snapshot of email.  Failures are logged only;
// a stale snapshot expires on its own.
func (r *Resolver) Forget(ctx context.Context, email string) {
	if r.cache == nil {
		return
	}
	if err := r.cache.Delete(ctx, email); err != nil {
		r.log.Warn("principal cache eviction failed", zap.String("email", email), zap.Error(err))
	}
}
