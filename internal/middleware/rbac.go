package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/siga-ar/siga-api/internal/models"
	appErrors "github.com/siga-ar/siga-api/pkg/errors"
	"github.com/siga-ar/siga-api/pkg/response"
)

// RequireRoles enforces role-based access control for routes.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	allowed := make(map[models.UserRole]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}

	return func(c *gin.Context) {
		claims := Claims(c)
		if claims == nil {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}

		if _, ok := allowed[claims.Role]; !ok {
			response.Error(c, appErrors.ErrForbidden)
			c.Abort()
			return
		}

		c.Next()
	}
}

// IsStaffRole reports whether the role may act on behalf of students.
func IsStaffRole(role models.UserRole) bool {
	switch role {
	case models.RoleAdmin, models.RoleRegistrar, models.RoleStaff:
		return true
	default:
		return false
	}
}
