// Package auth checks admin credentials and guards admin routes.
package auth

import (
	"net/http"
	"strings"
	"sync"

	"github.com/Laisky/errors/v2"
	gmw "github.com/Laisky/gin-middlewares/v7"
	gconfig "github.com/Laisky/go-config/v2"
	"github.com/Laisky/zap"
	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"github.com/Laisky/institute-cms/library/jwt"
)

const ctxKeyAdmin = "cms_admin"

// ErrInvalidCredentials is returned when the username or password does not match.
var ErrInvalidCredentials = errors.New("invalid username or password")

// Authenticator verifies admin passwords and session tokens.
type Authenticator struct {
	signer *jwt.Signer
	// admins maps username to bcrypt hash
	admins map[string][]byte
}

// New creates an authenticator from username to bcrypt hash pairs.
func New(signer *jwt.Signer, admins map[string]string) (*Authenticator, error) {
	if signer == nil {
		return nil, errors.New("signer is nil")
	}

	a := &Authenticator{
		signer: signer,
		admins: make(map[string][]byte, len(admins)),
	}
	for user, hash := range admins {
		user = strings.TrimSpace(user)
		if user == "" || hash == "" {
			continue
		}
		if _, err := bcrypt.Cost([]byte(hash)); err != nil {
			return nil, errors.Wrapf(err, "admin %q has an invalid bcrypt hash", user)
		}
		a.admins[user] = []byte(hash)
	}

	return a, nil
}

// LoadAdminsFromConfig reads settings.admins.
func LoadAdminsFromConfig() map[string]string {
	return gconfig.Shared.GetStringMapString("settings.admins")
}

// Login checks the password and issues a session token.
func (a *Authenticator) Login(username, password string) (token string, claims *jwt.AdminClaims, err error) {
	hash, ok := a.admins[username]
	if !ok {
		// keep timing comparable with the known-user path
		_ = bcrypt.CompareHashAndPassword(dummyHash(), []byte(password))
		return "", nil, ErrInvalidCredentials
	}
	if err = bcrypt.CompareHashAndPassword(hash, []byte(password)); err != nil {
		return "", nil, ErrInvalidCredentials
	}

	token, _, err = a.signer.Sign(username)
	if err != nil {
		return "", nil, errors.Wrap(err, "sign token")
	}
	if claims, err = a.signer.Parse(token); err != nil {
		return "", nil, errors.Wrap(err, "parse issued token")
	}

	return token, claims, nil
}

// Middleware rejects requests without a valid bearer token.
func (a *Authenticator) Middleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		token := bearerToken(ctx.GetHeader("Authorization"))
		if token == "" {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}

		claims, err := a.signer.Parse(token)
		if err != nil {
			gmw.GetLogger(ctx).Debug("reject admin token", zap.Error(err))
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		ctx.Set(ctxKeyAdmin, claims.Username)
		ctx.Next()
	}
}

// Username returns the admin set by Middleware, or empty.
func Username(ctx *gin.Context) string {
	return ctx.GetString(ctxKeyAdmin)
}

func bearerToken(header string) string {
	header = strings.TrimSpace(header)
	if len(header) < len("bearer ") || !strings.EqualFold(header[:len("bearer ")], "bearer ") {
		return ""
	}

	return strings.TrimSpace(header[len("bearer "):])
}

var dummyHash = sync.OnceValue(func() []byte {
	hash, _ := bcrypt.GenerateFromPassword([]byte("institute-cms"), bcrypt.DefaultCost)
	return hash
})
