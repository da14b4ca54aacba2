package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/leozw/domain-guardian/internal/api/middleware"
	"github.com/leozw/domain-guardian/internal/core"
	"go.uber.org/zap"
)

type CreateDomainRequest struct {
	Hostname   string          `json:"hostname" binding:"required,max=253"`
	DomainType core.DomainType `json:"domain_type" binding:"omitempty,oneof=custom subdomain"`
}

func (h *Handler) ListDomains(c *gin.Context) {
	domains, err := h.registry.ListDomains(c.Request.Context(), middleware.TenantID(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"domains": domains, "total": len(domains)})
}

// CreateDomain answers 201 once the provider accepted the hostname and 202
// when the domain was stored but registration must be retried.
func (h *Handler) CreateDomain(c *gin.Context) {
	var req CreateDomainRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	d, err := h.registry.AddDomain(c.Request.Context(), middleware.TenantID(c), req.Hostname, req.DomainType)
	if err != nil {
		if d == nil {
			h.respondError(c, err)
			return
		}
		h.logger.Warn("Domain stored, provider registration pending",
			zap.String("hostname", d.Hostname),
			zap.Error(err),
		)
		c.JSON(http.StatusAccepted, gin.H{"domain": d, "error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"domain": d})
}

func (h *Handler) GetDomain(c *gin.Context) {
	d, ok := h.tenantDomain(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"domain": d})
}

func (h *Handler) RegisterDomain(c *gin.Context) {
	d, ok := h.tenantDomain(c)
	if !ok {
		return
	}
	d, err := h.registry.RegisterDomain(c.Request.Context(), d.ID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.monitor.InvalidateHealth(c.Request.Context(), d.ID)
	c.JSON(http.StatusOK, gin.H{"domain": d})
}

func (h *Handler) VerifyDomain(c *gin.Context) {
	d, ok := h.tenantDomain(c)
	if !ok {
		return
	}
	v, err := h.registry.VerifyDomain(c.Request.Context(), d.ID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.monitor.InvalidateHealth(c.Request.Context(), d.ID)
	c.JSON(http.StatusOK, v)
}

func (h *Handler) ProvisionSSL(c *gin.Context) {
	d, ok := h.tenantDomain(c)
	if !ok {
		return
	}
	d, err := h.registry.ProvisionSSL(c.Request.Context(), d.ID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.monitor.InvalidateHealth(c.Request.Context(), d.ID)
	c.JSON(http.StatusOK, gin.H{"domain": d})
}

// ListExpiringSSL lists the tenant's active certificates expiring within ?days (default 30).
func (h *Handler) ListExpiringSSL(c *gin.Context) {
	days := 30
	if raw := c.Query("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > 365 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "days must be between 1 and 365"})
			return
		}
		days = n
	}

	var tenant *uuid.UUID
	if !middleware.IsAdmin(c) {
		id := middleware.TenantID(c)
		tenant = &id
	}
	cutoff := h.now().UTC().Add(time.Duration(days) * 24 * time.Hour)
	domains, err := h.store.ListDomainsWithSSLExpiringBefore(c.Request.Context(), tenant, cutoff)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"domains": domains, "days": days, "total": len(domains)})
}

func (h *Handler) SuspendDomain(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	d, err := h.registry.SuspendDomain(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.monitor.InvalidateHealth(c.Request.Context(), d.ID)
	c.JSON(http.StatusOK, gin.H{"domain": d})
}

func (h *Handler) ReactivateDomain(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	d, err := h.registry.ReactivateDomain(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.monitor.InvalidateHealth(c.Request.Context(), d.ID)
	c.JSON(http.StatusOK, gin.H{"domain": d})
}
