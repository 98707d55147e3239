// Package router drives webhook batches through the conversation pipeline.
package router

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"pagebridge/pkg/bus"
	"pagebridge/pkg/config"
	"pagebridge/pkg/conversation"
	"pagebridge/pkg/logger"
	"pagebridge/pkg/messenger"
	"pagebridge/pkg/reply"
)

const (
	// AckBody is written with 200 once every event of a batch was attempted.
	AckBody = "EVENT_RECEIVED"

	maxBodyBytes = 1 << 20
)

// Conversation runs one turn for a sender and never fails; failures come back empty.
type Conversation interface {
	Forward(ctx context.Context, senderID string, text string) conversation.Result
}

// conversationStats is implemented by conversation clients that count backend failures.
type conversationStats interface {
	Stats() conversation.ClientStats
}

// Dispatcher delivers one reply and reports whether the platform accepted it.
type Dispatcher interface {
	Deliver(ctx context.Context, payload messenger.OutboundPayload) bool
}

type outcome int

const (
	outcomeNoReply outcome = iota
	outcomeDelivered
	outcomeDeliveryFailed
	outcomePanicked
)

// Router answers the webhook handshake and processes event batches.
type Router struct {
	verifyToken    string
	appSecret      string
	maxConcurrency int
	conversation   Conversation
	dispatcher     Dispatcher
	log            *slog.Logger
	stats          Stats
}

// New builds a router from the messenger and router config sections.
func New(cfg *config.Config, conv Conversation, dispatcher Dispatcher, log *slog.Logger) (*Router, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if conv == nil {
		return nil, errors.New("conversation client is required")
	}
	if dispatcher == nil {
		return nil, errors.New("dispatcher is required")
	}
	if strings.TrimSpace(cfg.Messenger.VerifyToken) == "" {
		return nil, errors.New("messenger.verify_token is required")
	}
	if log == nil {
		log = slog.Default()
	}

	maxConcurrency := cfg.Router.MaxConcurrency
	if maxConcurrency <= 0 {
		maxConcurrency = config.DefaultMaxConcurrency
	}

	return &Router{
		verifyToken:    cfg.Messenger.VerifyToken,
		appSecret:      strings.TrimSpace(cfg.Messenger.AppSecret),
		maxConcurrency: maxConcurrency,
		conversation:   conv,
		dispatcher:     dispatcher,
		log:            log.With("component", "router"),
	}, nil
}

// Stats returns counters accumulated across all handled batches.
func (r *Router) Stats() StatsSnapshot {
	snapshot := r.stats.Snapshot()
	if counted, ok := r.conversation.(conversationStats); ok {
		snapshot.ConversationFailures = counted.Stats().Failures
	}
	return snapshot
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	switch req.Method {
	case http.MethodGet:
		r.handleVerification(w, req)
	case http.MethodPost:
		r.handleEvents(w, req)
	default:
		w.Header().Set("Allow", "GET, POST")
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	}
}

func (r *Router) handleVerification(w http.ResponseWriter, req *http.Request) {
	query := req.URL.Query()
	challenge, ok := messenger.Verify(
		query.Get(messenger.QueryMode),
		query.Get(messenger.QueryVerifyToken),
		query.Get(messenger.QueryChallenge),
		r.verifyToken,
	)
	if !ok {
		r.log.Warn("Webhook verification rejected")
		w.WriteHeader(http.StatusForbidden)
		return
	}

	r.log.Info("Webhook verified")
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, challenge)
}

func (r *Router) handleEvents(w http.ResponseWriter, req *http.Request) {
	defer func() {
		if recovered := recover(); recovered != nil {
			r.log.Error("Unexpected batch failure", "panic", fmt.Sprint(recovered))
			w.WriteHeader(http.StatusInternalServerError)
		}
	}()

	body, err := io.ReadAll(io.LimitReader(req.Body, maxBodyBytes))
	if err != nil {
		r.log.Warn("Failed to read webhook body", "error", err)
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if r.appSecret != "" {
		if err := messenger.VerifySignature(body, req.Header.Get(messenger.SignatureHeader), r.appSecret); err != nil {
			r.log.Warn("Webhook signature rejected")
			w.WriteHeader(http.StatusForbidden)
			return
		}
	}

	var batch messenger.InboundBatch
	if err := json.Unmarshal(body, &batch); err != nil {
		r.log.Warn("Invalid webhook body", "error", err)
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	// Events are attempted to completion even if the platform hangs up.
	ctx := context.WithoutCancel(req.Context())
	if _, err := r.HandleBatch(ctx, batch); err != nil {
		if errors.Is(err, messenger.ErrUnsupportedObject) {
			r.log.Warn("Dropping batch", "error", err)
			w.WriteHeader(http.StatusNotFound)
			return
		}
		r.log.Error("Unexpected batch failure", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, AckBody)
}

// lane holds one sender's events in batch order.
type lane struct {
	senderID string
	messages []bus.InboundMessage
}

// HandleBatch normalizes batch and runs every actionable event through
// conversation, transform and dispatch. Events from one sender run in entry
// order; distinct senders run concurrently up to the configured limit. It
// returns only after every event was attempted. Per-event failures are
// absorbed into the summary; only an unsupported object is an error.
func (r *Router) HandleBatch(ctx context.Context, batch messenger.InboundBatch) (Summary, error) {
	events, err := messenger.Normalize(batch)
	if err != nil {
		return Summary{}, err
	}

	summary := Summary{BatchID: uuid.NewString()}
	log := r.log.With("batch_id", summary.BatchID)
	log.Debug("Batch received", "entries", len(batch.Entry))

	var lanes []*lane
	bySender := make(map[string]*lane)
	for msg, err := range events {
		summary.Events++
		if err != nil {
			summary.Malformed++
			log.Warn("Skipping malformed event", "error", err)
			continue
		}
		if !msg.Actionable() {
			summary.Skipped++
			log.Debug("Skipping event without text or postback", "sender_id", msg.SenderID)
			continue
		}

		l, ok := bySender[msg.SenderID]
		if !ok {
			l = &lane{senderID: msg.SenderID}
			bySender[msg.SenderID] = l
			lanes = append(lanes, l)
		}
		l.messages = append(l.messages, msg)
	}

	var delivered, noReply, deliveryFailed, panicked atomic.Int64
	g := new(errgroup.Group)
	g.SetLimit(r.maxConcurrency)
	for _, l := range lanes {
		g.Go(func() error {
			for _, msg := range l.messages {
				switch r.processEvent(ctx, log, msg) {
				case outcomeDelivered:
					delivered.Add(1)
				case outcomeDeliveryFailed:
					deliveryFailed.Add(1)
				case outcomePanicked:
					panicked.Add(1)
				default:
					noReply.Add(1)
				}
			}
			return nil
		})
	}
	_ = g.Wait()

	summary.Delivered = delivered.Load()
	summary.NoReply = noReply.Load()
	summary.DeliveryFailed = deliveryFailed.Load()
	summary.Panicked = panicked.Load()
	r.stats.record(summary, time.Now())

	log.Info("Batch acknowledged",
		"events", summary.Events,
		"delivered", summary.Delivered,
		"no_reply", summary.NoReply,
		"delivery_failed", summary.DeliveryFailed,
		"malformed", summary.Malformed,
		"skipped", summary.Skipped,
		"panicked", summary.Panicked,
	)

	return summary, nil
}

// processEvent is the per-event isolation boundary.
func (r *Router) processEvent(ctx context.Context, log *slog.Logger, msg bus.InboundMessage) (result outcome) {
	log = log.With("sender_id", msg.SenderID, "kind", string(msg.Kind))
	defer func() {
		if recovered := recover(); recovered != nil {
			log.Error("Event processing panicked", "panic", fmt.Sprint(recovered))
			result = outcomePanicked
		}
	}()

	log.Info("Received message", "content", logger.Preview(msg.Content))

	turn := r.conversation.Forward(ctx, msg.SenderID, msg.Content)
	payload := reply.Transform(turn, msg.SenderID)
	if payload == nil {
		log.Debug("No reply for event")
		return outcomeNoReply
	}

	if !r.dispatcher.Deliver(ctx, *payload) {
		return outcomeDeliveryFailed
	}

	log.Info("Sent reply", "button_template", payload.IsButtonTemplate())
	return outcomeDelivered
}
