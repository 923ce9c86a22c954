package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/akylbek/payment-system/momo-gateway/internal/config"
	"github.com/akylbek/payment-system/momo-gateway/internal/interfaces"
	"github.com/akylbek/payment-system/momo-gateway/internal/momo"
)

type AuthHandler struct {
	cfg    config.MoMoConfig
	tokens interfaces.TokenProvider
}

func NewAuthHandler(cfg config.MoMoConfig, tokens interfaces.TokenProvider) *AuthHandler {
	return &AuthHandler{cfg: cfg, tokens: tokens}
}

func (h *AuthHandler) Token(c *gin.Context) {
	if err := h.cfg.Validate(); err != nil {
		writeError(c, err)
		return
	}

	token, err := h.tokens.GetAccessToken(c.Request.Context())
	var authErr *momo.AuthError
	if errors.As(err, &authErr) {
		c.JSON(authErr.StatusCode, gin.H{
			"error":   "Failed to get access token",
			"status":  authErr.StatusCode,
			"details": authErr.Body,
		})
		return
	}
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"access_token": token.AccessToken,
		"expires_in":   token.ExpiresIn,
		"token_type":   token.TokenType,
	})
}
