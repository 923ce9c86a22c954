package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/akylbek/payment-system/momo-gateway/internal/config"
	"github.com/akylbek/payment-system/momo-gateway/internal/handlers"
)

func testRouter() http.Handler {
	return NewRouter(Handlers{
		Auth:     handlers.NewAuthHandler(config.MoMoConfig{}, nil),
		Payment:  handlers.NewPaymentHandler(nil, nil),
		Callback: handlers.NewCallbackHandler(nil),
		Email:    handlers.NewEmailHandler(nil),
	})
}

func TestRouter_Preflight(t *testing.T) {
	for _, path := range []string{"/request-to-pay", "/payment-callback", "/payment-status", "/auth/token", "/send-email"} {
		t.Run(path, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodOptions, path, nil)
			w := httptest.NewRecorder()
			testRouter().ServeHTTP(w, req)

			require.Equal(t, http.StatusOK, w.Code)
			require.Equal(t, "ok", w.Body.String())
			require.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
			require.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), "authorization, x-client-info, apikey, content-type")
		})
	}
}

func TestRouter_Health(t *testing.T) {
	w := httptest.NewRecorder()
	testRouter().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"status":"ok","service":"momo-gateway"}`, w.Body.String())
	require.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRouter_AuthTokenWithoutConfig(t *testing.T) {
	w := httptest.NewRecorder()
	testRouter().ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/auth/token", nil))
	require.Equal(t, http.StatusInternalServerError, w.Code)
	require.Contains(t, w.Body.String(), "Configuration error")
}

func TestRouter_Metrics(t *testing.T) {
	w := httptest.NewRecorder()
	testRouter().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
}
