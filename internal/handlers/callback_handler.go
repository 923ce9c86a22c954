package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/akylbek/payment-system/momo-gateway/internal/service"
	"github.com/akylbek/payment-system/momo-gateway/internal/telemetry"
)

const maxCallbackBody = 1 << 20

type CallbackReconciler interface {
	HandleCallback(ctx context.Context, referenceID string, raw []byte) (*service.CallbackResult, error)
}

type CallbackHandler struct {
	reconciler CallbackReconciler
}

func NewCallbackHandler(reconciler CallbackReconciler) *CallbackHandler {
	return &CallbackHandler{reconciler: reconciler}
}

// PaymentCallback acknowledges every delivery it could match to a
// transaction, even when parts of the fan-out failed.
func (h *CallbackHandler) PaymentCallback(c *gin.Context) {
	referenceID := strings.TrimSpace(c.GetHeader("X-Reference-Id"))
	if referenceID == "" {
		telemetry.Logger.Warn("Missing X-Reference-Id header")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing reference ID"})
		return
	}

	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, maxCallbackBody))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid callback payload"})
		return
	}

	res, err := h.reconciler.HandleCallback(c.Request.Context(), referenceID, raw)
	switch {
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Transaction not found", "referenceId": referenceID})
		return
	case errors.Is(err, service.ErrInvalidPayload):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid callback payload"})
		return
	case err != nil:
		var persistenceErr *service.PersistenceError
		if errors.As(err, &persistenceErr) {
			telemetry.Logger.Error("Failed to apply callback",
				zap.String("reference_id", referenceID),
				zap.Error(err),
			)
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":   "Failed to update transaction",
				"details": persistenceErr.Err.Error(),
			})
			return
		}
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"referenceId": res.ReferenceID,
		"status":      res.Status,
	})
}
