package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/akylbek/payment-system/momo-gateway/internal/handlers"
	"github.com/akylbek/payment-system/momo-gateway/internal/telemetry"
)

type Handlers struct {
	Auth     *handlers.AuthHandler
	Payment  *handlers.PaymentHandler
	Callback *handlers.CallbackHandler
	Email    *handlers.EmailHandler
}

func NewRouter(h Handlers) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(telemetry.TracingMiddleware())
	r.Use(CORS())

	// Prometheus metrics
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "momo-gateway"})
	})

	r.POST("/auth/token", h.Auth.Token)
	r.POST("/request-to-pay", h.Payment.RequestToPay)
	r.POST("/payment-callback", h.Callback.PaymentCallback)
	r.GET("/payment-status", h.Payment.PaymentStatus)
	r.POST("/payment-status", h.Payment.PaymentStatus)
	r.POST("/send-email", h.Email.SendEmail)

	// OPTIONS requests match no route and are answered by CORS on the way here.
	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	})

	return r
}
