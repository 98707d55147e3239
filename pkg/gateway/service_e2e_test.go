package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"pagebridge/pkg/config"
	"pagebridge/pkg/conversation"
	"pagebridge/pkg/logger"
	"pagebridge/pkg/messenger"
	"pagebridge/pkg/router"

	"github.com/stretchr/testify/require"
)

type scriptedBackend struct {
	mu       sync.Mutex
	sessions []string
	replies  map[string]conversation.Result
	failOn   string
}

func (b *scriptedBackend) DetectIntent(_ context.Context, session string, text string) (conversation.Result, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sessions = append(b.sessions, session)
	if text == b.failOn {
		return conversation.Result{}, errors.New("backend unavailable")
	}
	return b.replies[text], nil
}

func (b *scriptedBackend) snapshot() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.sessions...)
}

type graphRecorder struct {
	mu     sync.Mutex
	bodies []map[string]any
	tokens []string
}

func (g *graphRecorder) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	var decoded map[string]any
	_ = json.Unmarshal(body, &decoded)

	g.mu.Lock()
	g.bodies = append(g.bodies, decoded)
	g.tokens = append(g.tokens, r.URL.Query().Get("access_token"))
	g.mu.Unlock()

	if recipient, _ := decoded["recipient"].(map[string]any); recipient["id"] == "BLOCKED" {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":{"message":"user blocked the page"}}`))
		return
	}
	_, _ = w.Write([]byte(`{"message_id":"mid"}`))
}

func (g *graphRecorder) snapshot() ([]map[string]any, []string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]map[string]any(nil), g.bodies...), append([]string(nil), g.tokens...)
}

func TestGatewayServiceRunE2E(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	graph := &graphRecorder{}
	graphServer := httptest.NewServer(graph)
	defer graphServer.Close()

	cfg := &config.Config{
		Messenger: config.MessengerConfig{
			VerifyToken:     "my-secret-token",
			PageAccessToken: "page-token",
			GraphAPIBase:    graphServer.URL,
		},
		Dialogflow: config.DialogflowConfig{ProjectID: "proj", AgentID: "agent-1"},
		Gateway:    config.GatewayConfig{Host: "127.0.0.1", Port: freeTCPPort(t)},
	}
	cfg.ApplyDefaults()

	backend := &scriptedBackend{
		failOn: "fail",
		replies: map[string]conversation.Result{
			"hi": {Texts: []string{"Hello!"}},
			"menu": {Payloads: []map[string]any{{
				"contentType": "selector",
				"choices": []any{
					map[string]any{"title": "Pizza", "value": "ORDER_PIZZA"},
					map[string]any{"title": "Burger", "value": "ORDER_BURGER"},
					map[string]any{"title": "Salad", "value": "ORDER_SALAD"},
					map[string]any{"title": "Soup", "value": "ORDER_SOUP"},
				},
			}}},
		},
	}

	log := logger.Discard()
	conv, err := conversation.NewClient(conversation.AgentFromConfig(cfg.Dialogflow), backend, log)
	require.NoError(t, err)
	sender, err := messenger.NewClient(cfg.Messenger, log)
	require.NoError(t, err)
	webhook, err := router.New(cfg, conv, sender, log)
	require.NoError(t, err)
	svc, err := NewService(cfg, webhook, log)
	require.NoError(t, err)

	errCh := make(chan error, 1)
	go func() {
		errCh <- svc.Run(ctx)
	}()

	baseURL := "http://" + net.JoinHostPort(cfg.Gateway.Host, strconv.Itoa(cfg.Gateway.Port))
	waitReady(t, baseURL)

	resp, err := http.Get(baseURL + "/webhook?hub.mode=subscribe&hub.verify_token=my-secret-token&hub.challenge=123")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "123", string(body))

	batch := `{"object":"page","entry":[
		{"messaging":[{"sender":{"id":"U1"},"message":{"text":"hi"}}]},
		{"messaging":[{"sender":{"id":"U2"},"message":{"text":"fail"}}]},
		{"messaging":[{"sender":{"id":"U3"},"postback":{"payload":"menu"}}]},
		{"messaging":[{"sender":{"id":"BLOCKED"},"message":{"text":"hi"}}]}
	]}`
	resp, err = http.Post(baseURL+"/webhook", "application/json", strings.NewReader(batch))
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, router.AckBody, string(body))

	require.ElementsMatch(t, []string{
		"projects/proj/locations/global/agents/agent-1/sessions/U1",
		"projects/proj/locations/global/agents/agent-1/sessions/U2",
		"projects/proj/locations/global/agents/agent-1/sessions/U3",
		"projects/proj/locations/global/agents/agent-1/sessions/BLOCKED",
	}, backend.snapshot())

	bodies, tokens := graph.snapshot()
	require.Len(t, bodies, 3, "U2 backend failure must not produce a reply")
	for _, token := range tokens {
		require.Equal(t, "page-token", token)
	}

	byRecipient := map[string]map[string]any{}
	for _, sent := range bodies {
		recipient := sent["recipient"].(map[string]any)
		byRecipient[recipient["id"].(string)] = sent["message"].(map[string]any)
	}
	require.Equal(t, "Hello!", byRecipient["U1"]["text"])
	template := byRecipient["U3"]["attachment"].(map[string]any)["payload"].(map[string]any)
	require.Equal(t, "Please choose:", template["text"])
	require.Len(t, template["buttons"], 3)

	resp, err = http.Post(baseURL+"/webhook", "application/json", strings.NewReader(`{"object":"instagram","entry":[]}`))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, err = http.Get(baseURL + "/readyz")
	require.NoError(t, err)
	var status statusResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&status))
	resp.Body.Close()
	require.Equal(t, "ready", status.Status)
	require.Equal(t, int64(1), status.Router.Batches)
	require.Equal(t, int64(2), status.Router.Delivered)
	require.Equal(t, int64(1), status.Router.DeliveryFailed)
	require.Equal(t, int64(1), status.Router.NoReply)
	require.Equal(t, int64(1), status.Router.ConversationFailures)

	cancel()

	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for service run to exit")
	}
}

func waitReady(t *testing.T, baseURL string) {
	t.Helper()

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		resp, err := http.Get(baseURL + "/readyz")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("gateway did not become ready")
}

func freeTCPPort(t *testing.T) int {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer listener.Close()

	addr, ok := listener.Addr().(*net.TCPAddr)
	require.True(t, ok)
	return addr.Port
}
