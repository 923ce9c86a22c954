package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/akylbek/payment-system/momo-gateway/internal/config"
	"github.com/akylbek/payment-system/momo-gateway/internal/momo"
	"github.com/akylbek/payment-system/momo-gateway/internal/service"
	"github.com/akylbek/payment-system/momo-gateway/internal/telemetry"
)

var requiredInitiateFields = []string{"order_id", "phone", "amount", "user_id"}

// writeError maps the service error taxonomy onto HTTP answers.
func writeError(c *gin.Context, err error) {
	var (
		validationErr  *service.ValidationError
		configErr      *config.ConfigError
		authErr        *momo.AuthError
		providerErr    *service.ProviderError
		persistenceErr *service.PersistenceError
	)

	switch {
	case errors.As(err, &validationErr):
		switch {
		case errors.Is(err, service.ErrMissingFields):
			c.JSON(http.StatusBadRequest, gin.H{
				"error":    "Missing required fields",
				"required": requiredInitiateFields,
				"missing":  validationErr.Fields,
			})
		case errors.Is(err, service.ErrInvalidPhoneFormat):
			c.JSON(http.StatusBadRequest, gin.H{
				"error":    "Invalid phone number format",
				"expected": "MTN Rwanda format (+250XXXXXXXXX)",
			})
		case errors.Is(err, service.ErrInvalidAmount):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Amount must be greater than 0"})
		case errors.Is(err, service.ErrAmountPrecision):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Amount must have at most 2 decimal places"})
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		}

	case errors.As(err, &configErr):
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Configuration error",
			"details": configErr.Details(),
		})

	case errors.As(err, &providerErr):
		if providerErr.StillPending {
			c.JSON(providerErr.StatusCode, gin.H{
				"error":        "Payment provider did not confirm the request",
				"reference_id": providerErr.ReferenceID,
				"status":       "pending",
				"message":      "The payment may still complete. Check the payment status before retrying.",
			})
			return
		}
		c.JSON(providerErr.StatusCode, gin.H{
			"error":        "Payment request failed",
			"reference_id": providerErr.ReferenceID,
			"status":       providerErr.StatusCode,
			"details":      providerErr.Body,
		})

	case errors.As(err, &authErr):
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to get access token",
			"details": authErr.Body,
		})

	case errors.As(err, &persistenceErr):
		telemetry.Logger.Error("Persistence failure", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to " + persistenceErr.Op,
			"details": persistenceErr.Err.Error(),
		})

	default:
		telemetry.Logger.Error("Unhandled request error", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Internal server error",
			"message": err.Error(),
		})
	}
}
