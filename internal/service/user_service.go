package service

import (
	"context"
	"io"
	"strings"

	"github.com/iliyamo/contact-book/internal/apperr"
	"github.com/iliyamo/contact-book/internal/model"
)

// AvatarUploader stores an avatar image and returns its public URL.
type AvatarUploader interface {
	UploadAvatar(ctx context.Context, userID uint64, contentType string, body io.Reader, size int64) (string, error)
}

// UserService manages the profile of the current user.
type UserService struct {
	users      UserStore
	avatars    AvatarUploader
	principals PrincipalEvictor
}

// NewUserService builds a UserService.  avatars may be nil when no bucket
// is configured; uploads then fail as UpstreamUnavailable.
func NewUserService(users UserStore, avatars AvatarUploader, principals PrincipalEvictor) *UserService {
	return &UserService{users: users, avatars: avatars, principals: principals}
}

// UpdateAvatar uploads a new avatar for u and returns the updated profile.
func (s *UserService) UpdateAvatar(ctx context.Context, u *model.User, contentType string, body io.Reader, size int64) (*model.User, error) {
	if !strings.HasPrefix(contentType, "image/") {
		return nil, apperr.Validation("avatar must be an image")
	}
	if s.avatars == nil {
		return nil, apperr.Upstream("avatar storage is not configured", nil)
	}
	url, err := s.avatars.UploadAvatar(ctx, u.ID, contentType, body, size)
	if err != nil {
		return nil, apperr.Upstream("avatar storage unavailable", err)
	}
	if err := s.users.SetAvatar(ctx, u.ID, url); err != nil {
		return nil, apperr.Internal("could not update avatar", err)
	}
	if s.principals != nil {
		s.principals.Forget(ctx, u.Email)
	}
	updated := *u
	updated.AvatarURL = url
	return &updated, nil
}
