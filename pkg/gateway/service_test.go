package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"pagebridge/pkg/config"
	"pagebridge/pkg/conversation"
	"pagebridge/pkg/logger"
	"pagebridge/pkg/messenger"
	"pagebridge/pkg/router"

	"github.com/stretchr/testify/require"
)

type staticConversation struct{}

func (staticConversation) Forward(context.Context, string, string) conversation.Result {
	return conversation.Result{}
}

type nopDispatcher struct{}

func (nopDispatcher) Deliver(context.Context, messenger.OutboundPayload) bool { return true }

func newTestService(t *testing.T, cfg *config.Config) *Service {
	t.Helper()

	webhook, err := router.New(cfg, staticConversation{}, nopDispatcher{}, logger.Discard())
	require.NoError(t, err)

	svc, err := NewService(cfg, webhook, logger.Discard())
	require.NoError(t, err)
	return svc
}

func TestNewServiceValidates(t *testing.T) {
	_, err := NewService(nil, nil, nil)
	require.Error(t, err)

	_, err = NewService(&config.Config{}, nil, nil)
	require.Error(t, err)
}

func TestIsReady(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, &config.Config{Messenger: config.MessengerConfig{VerifyToken: "x"}})
	if svc.isReady() {
		t.Fatal("expected not ready before listening")
	}

	svc.setListening(true)
	if !svc.isReady() {
		t.Fatal("expected ready while listening")
	}
}

func TestHandlerRoutes(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{Messenger: config.MessengerConfig{VerifyToken: "tok", WebhookPath: "hooks/page"}}
	svc := newTestService(t, cfg)
	handler := svc.Handler()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/hooks/page?hub.mode=subscribe&hub.verify_token=tok&hub.challenge=abc", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "abc", rec.Body.String())

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var status statusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	require.Equal(t, "ok", status.Status)
	require.Equal(t, "/hooks/page", status.WebhookPath)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestListenAddrDefaults(t *testing.T) {
	t.Parallel()

	svc := &Service{cfg: &config.Config{}}
	require.Equal(t, "0.0.0.0:8080", svc.listenAddr())

	svc.cfg.Gateway = config.GatewayConfig{Host: "127.0.0.1", Port: 9000}
	require.Equal(t, "127.0.0.1:9000", svc.listenAddr())
}
