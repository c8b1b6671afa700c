package model

import "time"

// User represents an application user record as stored in the `users`
// table.  The json tags define the snapshot format kept in the principal
// cache.  The password and refresh hashes are never serialized, so a
// cached snapshot carries neither; code that needs them reads the store.
//
// Fields:
//
//	ID               – primary key identifier of the user.
//	Username         – optional display name.
//	Email            – unique, lower-cased login key.
//	PasswordHash     – bcrypt hashed password.
//	Confirmed        – whether the email address was verified; gates login.
//	RefreshTokenHash – SHA‑256 of the single active refresh token, empty when revoked.
//	AvatarURL        – URL of the profile picture, empty when unset.
//	CreatedAt        – timestamp of creation.
//	UpdatedAt        – timestamp of last update.
type User struct {
	ID               uint64    `json:"id"`         // users.id
	Username         string    `json:"username"`   // users.username
	Email            string    `json:"email"`      // users.email
	PasswordHash     string    `json:"-"`          // users.password_hash
	Confirmed        bool      `json:"confirmed"`  // users.confirmed
	RefreshTokenHash string    `json:"-"`          // users.refresh_token_hash (nullable)
	AvatarURL        string    `json:"avatar_url"` // users.avatar_url (nullable)
	CreatedAt        time.Time `json:"created_at"` // users.created_at
	UpdatedAt        time.Time `json:"updated_at"` // users.updated_at
}

// NewUser carries the fields required to insert a user.
type NewUser struct {
	Username     string
	Email        string
	PasswordHash string
	AvatarURL    string
}
