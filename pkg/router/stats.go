package router

import (
	"sync/atomic"
	"time"
)

// Summary is the outcome of one batch.
type Summary struct {
	BatchID        string `json:"batch_id"`
	Events         int64  `json:"events"`
	Malformed      int64  `json:"malformed"`
	Skipped        int64  `json:"skipped"`
	Delivered      int64  `json:"delivered"`
	NoReply        int64  `json:"no_reply"`
	DeliveryFailed int64  `json:"delivery_failed"`
	Panicked       int64  `json:"panicked"`
}

// Stats accumulates counters across batches.
type Stats struct {
	batches        atomic.Int64
	events         atomic.Int64
	malformed      atomic.Int64
	skipped        atomic.Int64
	delivered      atomic.Int64
	noReply        atomic.Int64
	deliveryFailed atomic.Int64
	panicked       atomic.Int64
	lastBatchAt    atomic.Int64
}

// StatsSnapshot is a point-in-time copy of Stats.
type StatsSnapshot struct {
	Batches              int64     `json:"batches"`
	Events               int64     `json:"events"`
	Malformed            int64     `json:"malformed"`
	Skipped              int64     `json:"skipped"`
	Delivered            int64     `json:"delivered"`
	NoReply              int64     `json:"no_reply"`
	DeliveryFailed       int64     `json:"delivery_failed"`
	Panicked             int64     `json:"panicked"`
	// ConversationFailures counts backend turns that failed; they also land in NoReply.
	ConversationFailures int64     `json:"conversation_failures"`
	LastBatchAt          time.Time `json:"last_batch_at,omitzero"`
}

func (s *Stats) record(summary Summary, at time.Time) {
	s.batches.Add(1)
	s.events.Add(summary.Events)
	s.malformed.Add(summary.Malformed)
	s.skipped.Add(summary.Skipped)
	s.delivered.Add(summary.Delivered)
	s.noReply.Add(summary.NoReply)
	s.deliveryFailed.Add(summary.DeliveryFailed)
	s.panicked.Add(summary.Panicked)
	s.lastBatchAt.Store(at.UnixNano())
}

func (s *Stats) Snapshot() StatsSnapshot {
	snapshot := StatsSnapshot{
		Batches:        s.batches.Load(),
		Events:         s.events.Load(),
		Malformed:      s.malformed.Load(),
		Skipped:        s.skipped.Load(),
		Delivered:      s.delivered.Load(),
		NoReply:        s.noReply.Load(),
		DeliveryFailed: s.deliveryFailed.Load(),
		Panicked:       s.panicked.Load(),
	}
	if nanos := s.lastBatchAt.Load(); nanos != 0 {
		snapshot.LastBatchAt = time.Unix(0, nanos).UTC()
	}
	return snapshot
}
