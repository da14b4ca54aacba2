package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/leozw/domain-guardian/internal/api/middleware"
)

// ListAlerts returns the caller's unresolved alerts; admins see every tenant.
func (h *Handler) ListAlerts(c *gin.Context) {
	tenant := middleware.TenantID(c)
	if middleware.IsAdmin(c) && c.Query("scope") == "all" {
		tenant = uuid.Nil
	}
	list, err := h.alerts.ListUnresolved(c.Request.Context(), tenant)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"alerts": list, "total": len(list)})
}

func (h *Handler) ResolveAlert(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	a, err := h.alerts.Resolve(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"alert": a})
}
