package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/leozw/domain-guardian/internal/core"
)

type DNSRecordInput struct {
	Type     string `json:"record_type" binding:"required"`
	Name     string `json:"name" binding:"required,max=255"`
	Value    string `json:"value" binding:"required"`
	TTL      int    `json:"ttl" binding:"omitempty,min=1,max=86400"`
	Priority *int   `json:"priority" binding:"omitempty,min=0,max=65535"`
	Proxied  bool   `json:"proxied"`
}

type ReconcileRequest struct {
	Records []DNSRecordInput `json:"records" binding:"required,min=1,dive"`
}

func (h *Handler) ListDNSRecords(c *gin.Context) {
	d, ok := h.tenantDomain(c)
	if !ok {
		return
	}
	records, err := h.reconciler.ListRecords(c.Request.Context(), d.ID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": records, "total": len(records)})
}

// ReconcileDNS answers 200 even when some records failed; each result carries
// its own outcome.
func (h *Handler) ReconcileDNS(c *gin.Context) {
	d, ok := h.tenantDomain(c)
	if !ok {
		return
	}

	var req ReconcileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	desired := make([]core.DNSRecord, 0, len(req.Records))
	for _, in := range req.Records {
		desired = append(desired, core.DNSRecord{
			RecordType: in.Type,
			Name:       in.Name,
			Value:      in.Value,
			TTL:        in.TTL,
			Priority:   in.Priority,
			Proxied:    in.Proxied,
		})
	}

	results, err := h.reconciler.Reconcile(c.Request.Context(), d.ID, desired)
	if err != nil {
		h.respondError(c, err)
		return
	}

	failed := 0
	for _, r := range results {
		if !r.Success {
			failed++
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"results":   results,
		"succeeded": len(results) - failed,
		"failed":    failed,
	})
}
