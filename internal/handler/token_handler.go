package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mediware/smart-health-backend/internal/domain"
	"github.com/mediware/smart-health-backend/internal/observability/metrics"
	"github.com/mediware/smart-health-backend/internal/registry"
)

type TokenHandler struct {
	registry        *registry.Registry
	dispatchMetrics *metrics.DispatchMetrics
}

func NewTokenHandler(reg *registry.Registry, dispatchMetrics *metrics.DispatchMetrics) *TokenHandler {
	return &TokenHandler{
		registry:        reg,
		dispatchMetrics: dispatchMetrics,
	}
}

type registerTokenRequest struct {
	Token string `json:"token"`
}

// HandleRegisterToken records a device token so future reminders reach the
// device. Re-registering the same token is a success.
func (h *TokenHandler) HandleRegisterToken(c *gin.Context) {
	ctx := c.Request.Context()

	var req registerTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "no token provided")
		return
	}

	if err := h.registry.Register(req.Token); err != nil {
		if errors.Is(err, domain.ErrNoToken) {
			respondError(c, http.StatusBadRequest, "no token provided")
			return
		}
		slog.ErrorContext(ctx, "failed to register token",
			slog.String("event", "token.register.failed"),
			slog.String("error", err.Error()),
		)
		respondError(c, http.StatusInternalServerError, "failed to register token")
		return
	}

	if h.dispatchMetrics != nil {
		h.dispatchMetrics.RecordTokenRegistered(ctx)
	}

	slog.InfoContext(ctx, "device token registered",
		slog.String("event", "token.registered"),
		slog.Int("registered_tokens", h.registry.Len()),
	)

	c.JSON(http.StatusOK, gin.H{"message": "Token registered successfully"})
}

func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"error": message})
}
