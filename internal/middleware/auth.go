package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// UserIDKey is the gin context key holding the resolved principal.
const UserIDKey = "userID"

// AccessTokenCookie is read when no Authorization header is sent.
const AccessTokenCookie = "accessToken"

// Claims is the access token payload issued by the auth service.
type Claims struct {
	UserID string   `json:"_id"`
	Roles  []string `json:"roles,omitempty"`
	jwt.RegisteredClaims
}

// Principal returns the user id carried by the claims, falling back to sub.
func (c *Claims) Principal() string {
	if c.UserID != "" {
		return c.UserID
	}
	return c.Subject
}

// VerifyToken parses an HS256 access token.
func VerifyToken(tokenString string, secret []byte) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	if !token.Valid || claims.Principal() == "" {
		return nil, errors.New("token carries no principal")
	}
	return claims, nil
}

// AuthMiddleware resolves the principal from a bearer token or the access token cookie.
func AuthMiddleware(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization"})
			return
		}

		claims, err := VerifyToken(token, secret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set(UserIDKey, claims.Principal())
		c.Next()
	}
}

func bearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	if header == "" {
		cookie, err := c.Cookie(AccessTokenCookie)
		return cookie, err == nil && cookie != ""
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}
