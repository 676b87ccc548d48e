package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/voicemint/billing/pkg/config"
	"github.com/voicemint/billing/pkg/response"
)

var jwtSigningMethod = jwt.SigningMethodHS256

// AccessClaims is the typed JWT issued by the account service.
type AccessClaims struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// ParseAccessToken validates the JWT string and returns typed claims.
func ParseAccessToken(secret, tokenString string) (*AccessClaims, error) {
	if secret == "" {
		return nil, fmt.Errorf("jwt secret is required")
	}

	claims := &AccessClaims{}
	_, err := jwt.ParseWithClaims(
		tokenString,
		claims,
		func(token *jwt.Token) (interface{}, error) {
			if token.Method != jwtSigningMethod {
				return nil, fmt.Errorf("unexpected signing method %s", token.Header["alg"])
			}
			return []byte(secret), nil
		},
		jwt.WithValidMethods([]string{jwtSigningMethod.Alg()}),
	)
	if err != nil {
		return nil, err
	}
	if claims.UserID == "" {
		return nil, fmt.Errorf("token missing user_id")
	}
	return claims, nil
}

// AuthMiddleware requires a valid bearer token and stores user_id and role in
// both gin.Context and the request's context.Context.
func AuthMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		tokenString, found := strings.CutPrefix(header, "Bearer ")
		if !found || tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				response.ErrorT(response.APIResponseCodeBadRequest, "missing bearer token"))
			return
		}

		claims, err := ParseAccessToken(cfg.Auth.JWTSecret, tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				response.ErrorT(response.APIResponseCodeBadRequest, "invalid token"))
			return
		}

		c.Set("user_id", claims.UserID)
		c.Set("role", claims.Role)
		ctx := context.WithValue(c.Request.Context(), "user_id", claims.UserID)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// AdminMiddleware allows only tokens carrying the admin role. It must run
// after AuthMiddleware.
func AdminMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString("role") != "admin" {
			c.AbortWithStatusJSON(http.StatusForbidden,
				response.ErrorT(response.APIResponseCodeBadRequest, "admin role required"))
			return
		}
		c.Next()
	}
}
