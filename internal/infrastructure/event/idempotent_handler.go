package event

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/stocklink/pos/internal/domain/shared"
)

// DefaultIdempotencyTTL is how long a handled event key is remembered
const DefaultIdempotencyTTL = 24 * time.Hour

// IdempotencyMetrics tracks idempotency-related statistics
type IdempotencyMetrics struct {
	EventsProcessed atomic.Int64
	EventsDuplicate atomic.Int64
	EventsFailed    atomic.Int64
}

// IdempotencyStats is a snapshot of idempotency metrics
type IdempotencyStats struct {
	EventsProcessed int64 `json:"events_processed"`
	EventsDuplicate int64 `json:"events_duplicate"`
	EventsFailed    int64 `json:"events_failed"`
}

// Stats returns a snapshot of the current metrics
func (m *IdempotencyMetrics) Stats() IdempotencyStats {
	return IdempotencyStats{
		EventsProcessed: m.EventsProcessed.Load(),
		EventsDuplicate: m.EventsDuplicate.Load(),
		EventsFailed:    m.EventsFailed.Load(),
	}
}

// KeyFunc derives the idempotency key of an event
type KeyFunc func(shared.DomainEvent) string

// EventIDKey keys events by their id
func EventIDKey(e shared.DomainEvent) string {
	return e.EventType() + ":" + e.EventID().String()
}

// IdempotentHandler wraps an EventHandler so each key is handled at most
// once while the key is remembered. A failed attempt releases the key so
// a retry can run.
type IdempotentHandler struct {
	handler shared.EventHandler
	store   shared.IdempotencyStore
	logger  *zap.Logger
	ttl     time.Duration
	key     KeyFunc
	metrics *IdempotencyMetrics
}

// IdempotentHandlerOption is a functional option for IdempotentHandler
type IdempotentHandlerOption func(*IdempotentHandler)

// WithIdempotencyTTL sets how long keys are remembered
func WithIdempotencyTTL(ttl time.Duration) IdempotentHandlerOption {
	return func(h *IdempotentHandler) {
		if ttl > 0 {
			h.ttl = ttl
		}
	}
}

// WithKeyFunc sets how keys are derived
func WithKeyFunc(fn KeyFunc) IdempotentHandlerOption {
	return func(h *IdempotentHandler) {
		if fn != nil {
			h.key = fn
		}
	}
}

// WithIdempotencyMetrics sets the metrics collector
func WithIdempotencyMetrics(metrics *IdempotencyMetrics) IdempotentHandlerOption {
	return func(h *IdempotentHandler) {
		h.metrics = metrics
	}
}

// NewIdempotentHandler creates a new idempotent handler wrapper
func NewIdempotentHandler(
	handler shared.EventHandler,
	store shared.IdempotencyStore,
	logger *zap.Logger,
	opts ...IdempotentHandlerOption,
) *IdempotentHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &IdempotentHandler{
		handler: handler,
		store:   store,
		logger:  logger,
		ttl:     DefaultIdempotencyTTL,
		key:     EventIDKey,
		metrics: &IdempotencyMetrics{},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// EventTypes returns the event types of the wrapped handler
func (h *IdempotentHandler) EventTypes() []string {
	return h.handler.EventTypes()
}

// Handle runs the wrapped handler unless the event key was already claimed
func (h *IdempotentHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	key := h.key(event)

	isNew, err := h.store.MarkProcessed(ctx, key, h.ttl)
	if err != nil {
		// a store outage must not drop receipts
		h.logger.Warn("failed to check idempotency, processing anyway",
			zap.String("key", key),
			zap.Error(err),
		)
	} else if !isNew {
		h.metrics.EventsDuplicate.Add(1)
		h.logger.Debug("duplicate event detected, skipping", zap.String("key", key))
		return nil
	}

	if err := h.handler.Handle(ctx, event); err != nil {
		h.metrics.EventsFailed.Add(1)
		if ferr := h.store.Forget(context.WithoutCancel(ctx), key); ferr != nil {
			h.logger.Warn("failed to release idempotency key",
				zap.String("key", key),
				zap.Error(ferr),
			)
		}
		return err
	}

	h.metrics.EventsProcessed.Add(1)
	return nil
}

// Metrics returns the metrics for this handler
func (h *IdempotentHandler) Metrics() *IdempotencyMetrics {
	return h.metrics
}

var _ shared.EventHandler = (*IdempotentHandler)(nil)
