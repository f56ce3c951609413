// Package auth issues the session tokens that prove which player a request
// speaks for, and guards the admin routes.
package auth

import (
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken covers every malformed, expired or foreign token.
var ErrInvalidToken = errors.New("invalid session token")

// Claims identify a player within one party.
type Claims struct {
	PartyID string `json:"pid"`
	IsHost  bool   `json:"host,omitempty"`
	jwt.RegisteredClaims
}

// PlayerID is the subject of the token.
func (c *Claims) PlayerID() string { return c.Subject }

// Issuer signs and verifies HS256 session tokens.
type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewIssuer creates an Issuer. An empty secret is replaced by a random one,
// which invalidates all sessions on restart.
func NewIssuer(secret string, ttl time.Duration) (*Issuer, error) {
	key := []byte(secret)
	if len(key) == 0 {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("generate session secret: %w", err)
		}
	}
	return &Issuer{secret: key, ttl: ttl, now: time.Now}, nil
}

// Issue returns a token for playerID in partyID.
func (i *Issuer) Issue(partyID, playerID string, isHost bool) (string, error) {
	now := i.now()
	claims := Claims{
		PartyID: partyID,
		IsHost:  isHost,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  playerID,
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	if i.ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(i.ttl))
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("sign session: %w", err)
	}
	return signed, nil
}

// Parse verifies token and returns its claims.
func (i *Issuer) Parse(token string) (*Claims, error) {
	var claims Claims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil || !parsed.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" || claims.PartyID == "" {
		return nil, fmt.Errorf("%w: missing subject or party", ErrInvalidToken)
	}
	return &claims, nil
}
