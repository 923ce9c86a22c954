package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/akylbek/payment-system/momo-gateway/internal/models"
	"github.com/akylbek/payment-system/momo-gateway/internal/notification"
	"github.com/akylbek/payment-system/momo-gateway/internal/telemetry"
)

type EmailSender interface {
	SendOrderEmail(ctx context.Context, orderID string, emailType models.EmailType) (*notification.Result, error)
}

type EmailHandler struct {
	emails EmailSender
}

func NewEmailHandler(emails EmailSender) *EmailHandler {
	return &EmailHandler{emails: emails}
}

type sendEmailBody struct {
	OrderID string           `json:"order_id"`
	Type    models.EmailType `json:"type"`
}

func (h *EmailHandler) SendEmail(c *gin.Context) {
	var body sendEmailBody
	_ = c.ShouldBindJSON(&body)
	if strings.TrimSpace(body.OrderID) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing order_id"})
		return
	}
	switch body.Type {
	case "", models.EmailOrderConfirmation, models.EmailPaymentFailed, models.EmailOrderCancelled:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown email type", "type": body.Type})
		return
	}

	res, err := h.emails.SendOrderEmail(c.Request.Context(), body.OrderID, body.Type)
	if err != nil {
		telemetry.Logger.Error("Error in send-email", zap.String("order_id", body.OrderID), zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to send email", "message": err.Error()})
		return
	}

	switch res.Reason {
	case notification.ReasonOrderNotFound:
		c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
	case notification.ReasonEmailNotFound:
		c.JSON(http.StatusNotFound, gin.H{"error": "User email not found"})
	case notification.ReasonNoProvider:
		c.JSON(http.StatusOK, gin.H{
			"success":   true,
			"sent":      false,
			"reason":    res.Reason,
			"message":   "Email logged (no email service configured)",
			"recipient": res.Recipient,
		})
	default:
		c.JSON(http.StatusOK, gin.H{
			"success":   true,
			"sent":      res.Sent,
			"email_id":  res.EmailID,
			"message":   "Email sent successfully",
			"recipient": res.Recipient,
		})
	}
}
