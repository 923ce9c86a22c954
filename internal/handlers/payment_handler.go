package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/akylbek/payment-system/momo-gateway/internal/service"
	"github.com/akylbek/payment-system/momo-gateway/internal/telemetry"
)

type Initiator interface {
	Initiate(ctx context.Context, req service.InitiateRequest) (*service.InitiateResult, error)
}

type StatusReader interface {
	GetStatus(ctx context.Context, referenceID string) (*service.StatusResult, error)
}

type PaymentHandler struct {
	payments Initiator
	status   StatusReader
}

func NewPaymentHandler(payments Initiator, status StatusReader) *PaymentHandler {
	return &PaymentHandler{payments: payments, status: status}
}

type requestToPayBody struct {
	OrderID string              `json:"order_id"`
	Phone   string              `json:"phone"`
	Amount  decimal.NullDecimal `json:"amount"`
	UserID  string              `json:"user_id"`
}

func (h *PaymentHandler) RequestToPay(c *gin.Context) {
	var body requestToPayBody
	if err := c.ShouldBindJSON(&body); err != nil {
		telemetry.Logger.Warn("Error decoding request-to-pay body", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	res, err := h.payments.Initiate(c.Request.Context(), service.InitiateRequest{
		OrderID: body.OrderID,
		Phone:   body.Phone,
		Amount:  body.Amount,
		UserID:  body.UserID,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"success":        true,
		"reference_id":   res.ReferenceID,
		"transaction_id": res.TransactionID,
		"status":         res.Status,
		"message":        "Payment request sent. Please check your phone to confirm.",
	})
}

// PaymentStatus reads reference_id from the query string, falling back to a
// JSON body.
func (h *PaymentHandler) PaymentStatus(c *gin.Context) {
	referenceID := strings.TrimSpace(c.Query("reference_id"))
	if referenceID == "" && c.Request.Method == http.MethodPost {
		var body struct {
			ReferenceID string `json:"reference_id"`
		}
		_ = c.ShouldBindJSON(&body)
		referenceID = strings.TrimSpace(body.ReferenceID)
	}
	if referenceID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing reference_id parameter"})
		return
	}

	res, err := h.status.GetStatus(c.Request.Context(), referenceID)
	if errors.Is(err, service.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Transaction not found", "reference_id": referenceID})
		return
	}
	if err != nil {
		writeError(c, err)
		return
	}

	resp := gin.H{
		"reference_id": res.ReferenceID,
		"status":       res.Status,
		"amount":       res.Amount,
		"currency":     res.Currency,
		"paid_at":      res.PaidAt,
		"source":       res.Source,
	}
	if res.FinancialTransactionID != "" {
		resp["financial_transaction_id"] = res.FinancialTransactionID
	}
	if res.Note != "" {
		resp["note"] = res.Note
	}
	c.JSON(http.StatusOK, resp)
}
