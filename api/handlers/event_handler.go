package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yeti47/camkit/ccc/logging"
	"github.com/yeti47/camkit/events"
)

const maxEventLimit = 1000

// EventHandler serves the persisted camera event log
type EventHandler struct {
	logger logging.Logger
	repo   events.EventRepository
}

// NewEventHandler creates a new event handler
func NewEventHandler(logger logging.Logger, repo events.EventRepository) *EventHandler {
	if logger == nil {
		logger = logging.NopLogger
	}

	return &EventHandler{
		logger: logger,
		repo:   repo,
	}
}

// GetEvents handles GET /api/events?kind=<kind>&limit=<n>
func (h *EventHandler) GetEvents(c *gin.Context) {
	limit := 100
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit"})
			return
		}
		limit = min(parsed, maxEventLimit)
	}
	kind := events.Kind(c.Query("kind"))

	list, err := h.repo.GetRecent(c.Request.Context(), kind, limit)
	if err != nil {
		h.logger.Error("Failed to load events", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load events"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"events": list})
}

// GetEvent handles GET /api/events/:id
func (h *EventHandler) GetEvent(c *gin.Context) {
	event, err := h.repo.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.logger.Error("Failed to load event", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load event"})
		return
	}
	if event == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Event not found"})
		return
	}

	c.JSON(http.StatusOK, event)
}

// GetEventCounts handles GET /api/events/counts and reports how many failures of each kind were logged
func (h *EventHandler) GetEventCounts(c *gin.Context) {
	kinds := []events.Kind{
		events.KindError,
		events.KindCapabilityGap,
		events.KindDeviceRejected,
		events.KindUnsupportedFocus,
		events.KindTransientError,
	}

	counts := make(map[events.Kind]int, len(kinds))
	for _, kind := range kinds {
		count, err := h.repo.CountByKind(c.Request.Context(), kind)
		if err != nil {
			h.logger.Error("Failed to count events", "kind", kind, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count events"})
			return
		}
		counts[kind] = count
	}

	c.JSON(http.StatusOK, counts)
}
