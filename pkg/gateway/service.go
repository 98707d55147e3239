package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"pagebridge/pkg/config"
	"pagebridge/pkg/router"
)

const (
	defaultHost = "0.0.0.0"
	defaultPort = 8080
)

// Service serves the webhook plus health and readiness endpoints.
type Service struct {
	cfg    *config.Config
	log    *slog.Logger
	router *router.Router

	mu        sync.RWMutex
	startedAt time.Time
	listening bool
	addr      string
}

type statusResponse struct {
	Status        string               `json:"status"`
	UptimeSeconds int64                `json:"uptime_seconds"`
	WebhookPath   string               `json:"webhook_path"`
	Router        router.StatsSnapshot `json:"router"`
}

func NewService(cfg *config.Config, webhook *router.Router, log *slog.Logger) (*Service, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if webhook == nil {
		return nil, errors.New("router is required")
	}
	if log == nil {
		log = slog.Default()
	}

	return &Service{
		cfg:    cfg,
		log:    log.With("component", "gateway.service"),
		router: webhook,
	}, nil
}

// Handler returns the HTTP routes served by Run.
func (s *Service) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle(s.webhookPath(), s.router)
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)
	return mux
}

// Addr returns the bound listen address once Run is serving.
func (s *Service) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.addr
}

// Run serves until ctx is cancelled, then shuts the server down gracefully.
func (s *Service) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	listener, err := net.Listen("tcp", s.listenAddr())
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	server := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	s.mu.Lock()
	s.startedAt = time.Now().UTC()
	s.listening = true
	s.addr = listener.Addr().String()
	s.mu.Unlock()

	serverErrors := make(chan error, 1)
	go func() {
		s.log.Info("Gateway started", "address", listener.Addr().String(), "webhook", s.webhookPath())
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- fmt.Errorf("serve: %w", err)
		}
		close(serverErrors)
	}()

	select {
	case <-ctx.Done():
		s.setListening(false)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		s.log.Info("Gateway stopped")
		return nil
	case err := <-serverErrors:
		s.setListening(false)
		return err
	}
}

func (s *Service) listenAddr() string {
	host := strings.TrimSpace(s.cfg.Gateway.Host)
	if host == "" {
		host = defaultHost
	}

	port := s.cfg.Gateway.Port
	if port <= 0 {
		port = defaultPort
	}

	return net.JoinHostPort(host, strconv.Itoa(port))
}

func (s *Service) webhookPath() string {
	path := strings.TrimSpace(s.cfg.Messenger.WebhookPath)
	if path == "" {
		return config.DefaultWebhookPath
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return path
}

func (s *Service) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.respondStatus(w, http.StatusOK, "ok")
}

func (s *Service) handleReady(w http.ResponseWriter, _ *http.Request) {
	statusCode := http.StatusOK
	status := "ready"
	if !s.isReady() {
		statusCode = http.StatusServiceUnavailable
		status = "not_ready"
	}

	s.respondStatus(w, statusCode, status)
}

func (s *Service) respondStatus(w http.ResponseWriter, statusCode int, status string) {
	payload := s.currentStatus(status)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log.Error("Failed to write status response", "error", err)
	}
}

func (s *Service) currentStatus(status string) statusResponse {
	s.mu.RLock()
	defer s.mu.RUnlock()

	uptime := int64(0)
	if !s.startedAt.IsZero() {
		uptime = int64(time.Since(s.startedAt).Seconds())
	}

	return statusResponse{
		Status:        status,
		UptimeSeconds: uptime,
		WebhookPath:   s.webhookPath(),
		Router:        s.router.Stats(),
	}
}

func (s *Service) isReady() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listening
}

func (s *Service) setListening(listening bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listening = listening
}
