package jwt

import (
	"github.com/golang-jwt/jwt/v5"
)

// AdminClaims identifies an authenticated CMS administrator.
type AdminClaims struct {
	jwt.RegisteredClaims
	Username string `json:"username"`
}
