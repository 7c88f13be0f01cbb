package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/tutorhub-api/internal/models"
	appErrors "github.com/noah-isme/tutorhub-api/pkg/errors"
	"github.com/noah-isme/tutorhub-api/pkg/response"
)

// RequireRoles admits callers whose token role is one of roles. It must run after JWT.
// Ownership (which teacher, which student) is checked by the services, not here.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	allowed := make(map[models.UserRole]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(c *gin.Context) {
		claims := CurrentUser(c)
		switch {
		case claims == nil:
			response.Error(c, appErrors.ErrUnauthorized)
		case !allowed[claims.Role]:
			response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "role "+string(claims.Role)+" may not access this resource"))
		default:
			c.Next()
			return
		}
		c.Abort()
	}
}

// RequireSelfOrRoles admits the caller whose id equals the named path parameter, or any of
// roles.
func RequireSelfOrRoles(param string, roles ...models.UserRole) gin.HandlerFunc {
	byRole := RequireRoles(roles...)
	return func(c *gin.Context) {
		if claims := CurrentUser(c); claims != nil && claims.UserID != "" && claims.UserID == c.Param(param) {
			c.Next()
			return
		}
		byRole(c)
	}
}
