package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   h.now().Unix(),
	})
}

func (h *Handler) Ready(c *gin.Context) {
	if err := h.store.Ping(c.Request.Context()); err != nil {
		h.logger.Warn("Readiness check failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not ready",
			"error":  "database connection failed",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   h.now().Unix(),
	})
}

func (h *Handler) GetDomainHealth(c *gin.Context) {
	d, ok := h.tenantDomain(c)
	if !ok {
		return
	}
	health, err := h.monitor.GetDomainHealth(c.Request.Context(), d.ID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, health)
}

func (h *Handler) ListHealthChecks(c *gin.Context) {
	d, ok := h.tenantDomain(c)
	if !ok {
		return
	}
	from, ok := parseTimeQuery(c, "from", h.now().UTC().Add(-24*time.Hour))
	if !ok {
		return
	}
	to, ok := parseTimeQuery(c, "to", h.now().UTC())
	if !ok {
		return
	}
	checks, err := h.store.ListHealthChecksInPeriod(c.Request.Context(), d.ID, from, to)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"checks": checks, "total": len(checks)})
}

// CheckDomain runs an on-demand probe and returns the stored result.
func (h *Handler) CheckDomain(c *gin.Context) {
	d, ok := h.tenantDomain(c)
	if !ok {
		return
	}
	result, err := h.monitor.CheckDomain(c.Request.Context(), d.ID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
