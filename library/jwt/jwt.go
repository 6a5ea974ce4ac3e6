// Package jwt signs and verifies admin session tokens.
package jwt

import (
	"time"

	"github.com/Laisky/errors/v2"
	"github.com/golang-jwt/jwt/v5"
)

const issuer = "institute-cms"

// Signer issues HS256 tokens for admin users.
type Signer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSigner creates a signer, secret must not be empty.
func NewSigner(secret []byte, ttl time.Duration) (*Signer, error) {
	if len(secret) == 0 {
		return nil, errors.New("jwt secret is empty")
	}
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}

	return &Signer{
		secret: secret,
		ttl:    ttl,
		now:    time.Now,
	}, nil
}

// Sign returns a signed token for username.
func (s *Signer) Sign(username string) (token string, expireAt time.Time, err error) {
	if username == "" {
		return "", time.Time{}, errors.New("username is empty")
	}

	now := s.now().UTC()
	expireAt = now.Add(s.ttl)
	claims := &AdminClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expireAt),
		},
		Username: username,
	}

	token, err = jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, errors.Wrap(err, "sign token")
	}

	return token, expireAt, nil
}

// Parse verifies token and returns its claims.
func (s *Signer) Parse(token string) (*AdminClaims, error) {
	claims := new(AdminClaims)
	if _, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	); err != nil {
		return nil, errors.Wrap(err, "parse token")
	}

	if claims.Username == "" {
		return nil, errors.New("token has no username")
	}

	return claims, nil
}
