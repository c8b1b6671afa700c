package utils

import (
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// HashToken returns the hex SHA-256 of a raw token.  Refresh tokens are
// stored in this form only.
func HashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// GravatarURL returns the identicon Gravatar URL of an email address.
func GravatarURL(email string) string {
	sum := md5.Sum([]byte(strings.ToLower(strings.TrimSpace(email))))
	return "https://www.gravatar.com/avatar/" + hex.EncodeToString(sum[:]) + "?d=identicon"
}
