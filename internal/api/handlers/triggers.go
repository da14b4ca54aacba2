package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/leozw/domain-guardian/internal/queue"
	"go.uber.org/zap"
)

type TriggerRequest struct {
	DomainID string `json:"domain_id"`
}

var sweepJobs = map[string]string{
	"health":     queue.JobHealthSweep,
	"ssl-expiry": queue.JobSSLExpirySweep,
	"analytics":  queue.JobAnalyticsCollection,
}

// TriggerSweep serves POST /internal/sweeps/:sweep. An empty body runs the
// sweep, queued when a queue is configured and inline otherwise. A domain_id
// on the health trigger runs one manual check the same way.
func (h *Handler) TriggerSweep(c *gin.Context) {
	sweep := c.Param("sweep")
	jobType, ok := sweepJobs[sweep]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Unknown sweep " + sweep})
		return
	}

	var req TriggerRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.DomainID != "" {
		h.triggerDomainCheck(c, sweep, req.DomainID)
		return
	}

	if h.queue != nil {
		job := queue.NewJob(jobType)
		if err := h.queue.Push(c.Request.Context(), job); err != nil {
			h.respondError(c, err)
			return
		}
		h.logger.Info("Sweep enqueued", zap.String("sweep", sweep), zap.String("job_id", job.ID))
		c.JSON(http.StatusAccepted, gin.H{"job_id": job.ID, "type": job.Type})
		return
	}

	summary, err := h.runInline(c, jobType)
	if err != nil && summary == nil {
		h.respondError(c, err)
		return
	}
	body := gin.H{"sweep": sweep, "summary": summary}
	if err != nil {
		body["error"] = err.Error()
	}
	c.JSON(http.StatusOK, body)
}

func (h *Handler) runInline(c *gin.Context, jobType string) (interface{}, error) {
	ctx := c.Request.Context()
	switch jobType {
	case queue.JobHealthSweep:
		s, err := h.monitor.RunHealthSweep(ctx)
		if s == nil {
			return nil, err
		}
		return s, err
	case queue.JobSSLExpirySweep:
		s, err := h.monitor.RunSSLExpirySweep(ctx)
		if s == nil {
			return nil, err
		}
		return s, err
	default:
		s, err := h.monitor.RunAnalyticsCollection(ctx)
		if s == nil {
			return nil, err
		}
		return s, err
	}
}

func (h *Handler) triggerDomainCheck(c *gin.Context, sweep, rawID string) {
	if sweep != "health" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "domain_id is only accepted by the health trigger"})
		return
	}
	id, err := uuid.Parse(rawID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid domain_id"})
		return
	}
	if h.queue != nil {
		if _, err := h.store.GetDomain(c.Request.Context(), id); err != nil {
			h.respondError(c, err)
			return
		}
		job := queue.NewDomainCheckJob(id)
		if err := h.queue.Push(c.Request.Context(), job); err != nil {
			h.respondError(c, err)
			return
		}
		h.logger.Info("Domain check enqueued", zap.String("domain_id", job.DomainID), zap.String("job_id", job.ID))
		c.JSON(http.StatusAccepted, gin.H{"job_id": job.ID, "type": job.Type, "domain_id": job.DomainID})
		return
	}

	result, err := h.monitor.CheckDomain(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sweep": sweep, "result": result})
}
