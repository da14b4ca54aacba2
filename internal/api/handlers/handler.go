package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/leozw/domain-guardian/internal/alerts"
	"github.com/leozw/domain-guardian/internal/api/middleware"
	"github.com/leozw/domain-guardian/internal/core"
	"github.com/leozw/domain-guardian/internal/monitor"
	"github.com/leozw/domain-guardian/internal/provider"
	"github.com/leozw/domain-guardian/internal/reconciler"
	"github.com/leozw/domain-guardian/internal/registry"
	"github.com/leozw/domain-guardian/internal/scheduler"
	"github.com/leozw/domain-guardian/internal/sla"
	"github.com/leozw/domain-guardian/internal/storage"
	"go.uber.org/zap"
)

type Deps struct {
	Store      storage.Store
	Registry   *registry.Service
	Reconciler *reconciler.Reconciler
	Monitor    *monitor.Service
	Alerts     *alerts.Emitter
	SLA        *sla.Calculator
	// Queue is optional. Without it sweep triggers run inline.
	Queue scheduler.JobQueue
}

type Handler struct {
	store      storage.Store
	registry   *registry.Service
	reconciler *reconciler.Reconciler
	monitor    *monitor.Service
	alerts     *alerts.Emitter
	sla        *sla.Calculator
	queue      scheduler.JobQueue
	logger     *zap.Logger
	now        func() time.Time
}

func NewHandler(deps Deps, logger *zap.Logger) *Handler {
	return &Handler{
		store:      deps.Store,
		registry:   deps.Registry,
		reconciler: deps.Reconciler,
		monitor:    deps.Monitor,
		alerts:     deps.Alerts,
		sla:        deps.SLA,
		queue:      deps.Queue,
		logger:     logger,
		now:        time.Now,
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrNotFound), errors.Is(err, provider.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrConflict), errors.Is(err, core.ErrNotProvisioned):
		return http.StatusConflict
	case errors.Is(err, core.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, provider.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, provider.ErrUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, provider.ErrRejected):
		return http.StatusUnprocessableEntity
	case errors.Is(err, provider.ErrUnauthenticated), errors.Is(err, provider.ErrUnknown):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) respondError(c *gin.Context, err error) {
	status := statusFor(err)
	_ = c.Error(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("Request failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(status, gin.H{"error": "Internal server error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func parseUUIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + name})
		return uuid.Nil, false
	}
	return id, true
}

// tenantDomain loads :id and enforces ownership. Admin routes pass through
// because their tenant scope is uuid.Nil.
func (h *Handler) tenantDomain(c *gin.Context) (*core.Domain, bool) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return nil, false
	}
	tenant := middleware.TenantID(c)
	if middleware.IsAdmin(c) {
		tenant = uuid.Nil
	}
	d, err := h.registry.GetDomain(c.Request.Context(), tenant, id)
	if err != nil {
		h.respondError(c, err)
		return nil, false
	}
	return d, true
}

// parseTimeQuery accepts RFC3339 or a bare date.
func parseTimeQuery(c *gin.Context, key string, def time.Time) (time.Time, bool) {
	raw := c.Query(key)
	if raw == "" {
		return def, true
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), true
		}
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + key + ", expected RFC3339 or YYYY-MM-DD"})
	return time.Time{}, false
}
