package auth

import (
	"golang.org/x/crypto/bcrypt"
)

// AdminGate checks the admin key presented on maintenance routes against a
// bcrypt hash.
type AdminGate struct {
	hash []byte
}

// NewAdminGate returns nil when hash is empty, which disables admin access.
func NewAdminGate(hash string) *AdminGate {
	if hash == "" {
		return nil
	}
	return &AdminGate{hash: []byte(hash)}
}

// Allow reports whether key matches. A nil gate allows nothing.
func (g *AdminGate) Allow(key string) bool {
	if g == nil || key == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword(g.hash, []byte(key)) == nil
}

// HashAdminKey produces the value to put in ADMIN_KEY_HASH.
func HashAdminKey(key string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}
