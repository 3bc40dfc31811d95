package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/edunova-api/internal/models"
	appErrors "github.com/noah-isme/edunova-api/pkg/errors"
	"github.com/noah-isme/edunova-api/pkg/response"
)

// RequireUserTypes lets through only tokens carrying one of the given user types.
// It must run after JWT.
func RequireUserTypes(allowed ...models.UserType) gin.HandlerFunc {
	set := make(map[models.UserType]struct{}, len(allowed))
	for _, t := range allowed {
		set[t] = struct{}{}
	}
	return func(c *gin.Context) {
		claimsValue, exists := c.Get(ContextUserKey)
		if !exists {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		claims, ok := claimsValue.(*models.JWTClaims)
		if !ok {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}

		if _, ok := set[claims.UserType]; ok {
			c.Next()
			return
		}

		response.Error(c, appErrors.ErrForbidden)
		c.Abort()
	}
}
