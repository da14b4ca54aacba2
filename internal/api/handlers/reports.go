package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/leozw/domain-guardian/internal/sla"
)

// GetSLA reports the current calendar month unless from or to is given.
func (h *Handler) GetSLA(c *gin.Context) {
	d, ok := h.tenantDomain(c)
	if !ok {
		return
	}

	target := sla.DefaultTargetUptime
	if raw := c.Query("target"); raw != "" {
		t, err := strconv.ParseFloat(raw, 64)
		if err != nil || t <= 0 || t > 100 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "target must be a percentage in (0, 100]"})
			return
		}
		target = t
	}

	if c.Query("from") == "" && c.Query("to") == "" {
		report, err := h.sla.CurrentMonthSLA(c.Request.Context(), d.ID, target)
		if err != nil {
			h.respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, report)
		return
	}

	now := h.now().UTC()
	from, ok := parseTimeQuery(c, "from", time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC))
	if !ok {
		return
	}
	to, ok := parseTimeQuery(c, "to", now)
	if !ok {
		return
	}
	if !from.Before(to) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "from must be before to"})
		return
	}

	report, err := h.sla.CalculateSLA(c.Request.Context(), d.ID, from, to, target)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// ListAnalytics defaults to the last 30 days.
func (h *Handler) ListAnalytics(c *gin.Context) {
	d, ok := h.tenantDomain(c)
	if !ok {
		return
	}

	today := h.now().UTC().Truncate(24 * time.Hour)
	from, ok := parseTimeQuery(c, "from", today.AddDate(0, 0, -30))
	if !ok {
		return
	}
	to, ok := parseTimeQuery(c, "to", today)
	if !ok {
		return
	}

	rows, err := h.store.ListAnalytics(c.Request.Context(), d.ID, from, to)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"analytics": rows, "total": len(rows)})
}
