package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	tenantKey = "tenant_id"
	roleKey   = "role"
)

func setTenant(c *gin.Context, id uuid.UUID) {
	c.Set(tenantKey, id)
}

// TenantID returns the authenticated tenant, or uuid.Nil outside AuthRequired.
func TenantID(c *gin.Context) uuid.UUID {
	if v, ok := c.Get(tenantKey); ok {
		if id, ok := v.(uuid.UUID); ok {
			return id
		}
	}
	return uuid.Nil
}

func IsAdmin(c *gin.Context) bool {
	return c.GetString(roleKey) == RoleAdmin
}
