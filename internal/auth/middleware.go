// Package auth verifies the upstream signing collaborator's bearer tokens
// and resolves the caller address for mutating requests.  The ledger trusts
// that a valid token means the operation was committed upstream.
package auth

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"carbon-exchange/marketplace-backend/pkg/addresses"
)

const callerContextKey = "caller_address"

// Claims is the token payload issued by the signing collaborator.  Subject
// holds the caller address in its base58check rendering.
type Claims struct {
	jwt.RegisteredClaims
}

// Middleware validates the Authorization bearer token and stores the caller
// address in the request context.
func Middleware(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		raw := strings.TrimPrefix(header, "Bearer ")

		claims := &Claims{}
		token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return secret, nil
		})
		if err != nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		caller, err := addresses.Decode(claims.Subject)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid caller address"})
			return
		}

		c.Set(callerContextKey, caller)
		c.Next()
	}
}

// CallerAddress returns the address the middleware resolved for this request.
func CallerAddress(c *gin.Context) (addresses.Address, bool) {
	v, ok := c.Get(callerContextKey)
	if !ok {
		return addresses.Address{}, false
	}
	addr, ok := v.(addresses.Address)
	return addr, ok
}

// IssueToken mints a token for the given caller.  Used by the dev harness
// and tests; production tokens come from the signing collaborator.
func IssueToken(secret []byte, caller addresses.Address, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   caller.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}
