//go:build gcloud

package handler

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mediware/smart-health-backend/internal/domain"
	"github.com/mediware/smart-health-backend/internal/service/dispatch"
)

// DispatchHandler receives the HTTP callbacks Cloud Tasks delivers when a
// scheduled task comes due. A non-2xx response makes Cloud Tasks retry the
// task per the queue's retry policy.
type DispatchHandler struct {
	dispatcher *dispatch.Dispatcher
}

func NewDispatchHandler(dispatcher *dispatch.Dispatcher) *DispatchHandler {
	return &DispatchHandler{dispatcher: dispatcher}
}

func (h *DispatchHandler) HandleDispatch(c *gin.Context) {
	ctx := c.Request.Context()

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		respondError(c, http.StatusBadRequest, "failed to read request body")
		return
	}

	var event domain.ScheduledEvent
	if err := json.Unmarshal(body, &event); err != nil {
		slog.WarnContext(ctx, "malformed dispatch payload",
			slog.String("event", "dispatch.payload.malformed"),
			slog.String("error", err.Error()),
		)
		// 200 on purpose: a payload that never parses will never parse on
		// retry either.
		c.JSON(http.StatusOK, gin.H{"status": "discarded"})
		return
	}

	if err := h.dispatcher.HandleJob(ctx, event); err != nil {
		slog.ErrorContext(ctx, "dispatch failed",
			slog.String("event", "dispatch.failed"),
			slog.String("job_id", event.ID),
			slog.String("error", err.Error()),
		)
		respondError(c, http.StatusInternalServerError, "delivery failed")
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "dispatched"})
}
