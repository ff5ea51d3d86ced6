package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/carelink/visit-api/internal/handler"
	"github.com/carelink/visit-api/internal/model"
	"github.com/carelink/visit-api/pkg/auth"
)

const contextIdentityKey = "caller_identity"

type AuthMiddleware struct {
	validator *auth.Validator
}

func NewAuthMiddleware(validator *auth.Validator) *AuthMiddleware {
	return &AuthMiddleware{validator: validator}
}

// Authenticate verifies the bearer token and stores the caller identity
// for handlers; handlers pass it on explicitly from there.
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("missing authorization header"))
			c.Abort()
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("invalid authorization format"))
			c.Abort()
			return
		}

		identity, err := m.validator.Validate(parts[1])
		if err != nil {
			c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("invalid token"))
			c.Abort()
			return
		}

		identity.Origin = c.ClientIP()
		c.Set(contextIdentityKey, identity)
		c.Next()
	}
}

// IdentityFromContext returns the identity Authenticate stored.
func IdentityFromContext(c *gin.Context) (model.CallerIdentity, bool) {
	v, ok := c.Get(contextIdentityKey)
	if !ok {
		return model.CallerIdentity{}, false
	}
	identity, ok := v.(model.CallerIdentity)
	return identity, ok
}
