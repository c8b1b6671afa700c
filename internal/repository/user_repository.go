package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/iliyamo/contact-book/internal/model"
)

const userColumns = `id, username, email, password_hash, confirmed, refresh_token_hash, avatar_url, created_at, updated_at`

// UserRepo persists users.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

// NormalizeEmail is the form in which emails are stored and looked up.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func scanUser(row interface{ Scan(...any) error }) (*model.User, error) {
	var (
		u       model.User
		refresh sql.NullString
		avatar  sql.NullString
	)
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Confirmed,
		&refresh, &avatar, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	u.RefreshTokenHash = refresh.String
	u.AvatarURL = avatar.String
	return &u, nil
}

// FindByEmail fetches a user by normalized email.  It returns nil, nil when
// no user has that email.
func (r *UserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", NormalizeEmail(email))
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find user by email: %w", err)
	}
	return u, nil
}

// Create inserts a user and returns the stored row.  It returns
// ErrEmailExists when the email is taken.
func (r *UserRepo) Create(ctx context.Context, nu model.NewUser) (*model.User, error) {
	email := NormalizeEmail(nu.Email)
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (username, email, password_hash, avatar_url) VALUES (?,?,?,?)",
		nu.Username, email, nu.PasswordHash, nullString(nu.AvatarURL))
	if err != nil {
		if isDuplicate(err) {
			return nil, ErrEmailExists
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}
	u, err := r.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, fmt.Errorf("insert user: row %s vanished", email)
	}
	return u, nil
}

// SetRefreshTokenHash stores the hash of the active refresh token.  An empty
// hash revokes it.
func (r *UserRepo) SetRefreshTokenHash(ctx context.Context, userID uint64, hash string) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET refresh_token_hash=? WHERE id=?", nullString(hash), userID)
	if err != nil {
		return fmt.Errorf("set refresh token: %w", err)
	}
	return nil
}

// Confirm marks the email of a user as verified.
func (r *UserRepo) Confirm(ctx context.Context, email string) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET confirmed=1 WHERE email=?", NormalizeEmail(email))
	if err != nil {
		return fmt.Errorf("confirm email: %w", err)
	}
	return nil
}

// SetPassword replaces the password hash and revokes the refresh token in
// the same statement.
func (r *UserRepo) SetPassword(ctx context.Context, userID uint64, passwordHash string) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET password_hash=?, refresh_token_hash=NULL WHERE id=?", passwordHash, userID)
	if err != nil {
		return fmt.Errorf("set password: %w", err)
	}
	return nil
}

// SetAvatar stores the avatar URL of a user.
func (r *UserRepo) SetAvatar(ctx context.Context, userID uint64, url string) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET avatar_url=? WHERE id=?", nullString(url), userID)
	if err != nil {
		return fmt.Errorf("set avatar: %w", err)
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
