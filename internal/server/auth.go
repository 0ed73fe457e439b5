package server

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// defaultTokenExpiry is how long issued API tokens stay valid. Tokens
// identify trusted dashboards, not users, so a long lifetime is fine.
const defaultTokenExpiry = 30 * 24 * time.Hour

// Claims is the JWT claims structure for API tokens.
type Claims struct {
	// Client labels the consumer the token was issued to.
	Client string `json:"client,omitempty"`
	jwt.RegisteredClaims
}

// Authenticator issues and verifies HMAC-signed API tokens.
type Authenticator struct {
	secret []byte
	expiry time.Duration
}

// NewAuthenticator creates an authenticator around a shared secret.
func NewAuthenticator(secret string) *Authenticator {
	return &Authenticator{
		secret: []byte(secret),
		expiry: defaultTokenExpiry,
	}
}

// GenerateToken creates a signed token for the named client.
func (a *Authenticator) GenerateToken(clientName string) (string, error) {
	now := time.Now()
	claims := Claims{
		Client: clientName,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(a.expiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    "netgauge",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.secret)
}

// ValidateToken verifies and parses an API token.
func (a *Authenticator) ValidateToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	return claims, nil
}

// Middleware rejects requests that do not carry a valid token in the
// Authorization header or the token query parameter.
func (a *Authenticator) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := requestToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			return
		}

		claims, err := a.ValidateToken(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set("client", claims.Client)
		c.Next()
	}
}

// requestToken extracts the API token, preferring the Authorization
// header over the query parameter.
func requestToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return c.Query("token")
}
