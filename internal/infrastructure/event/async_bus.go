package event

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/stocklink/pos/internal/domain/shared"
	"github.com/stocklink/pos/internal/infrastructure/logger"
)

// Queue errors
var (
	ErrQueueFull    = errors.New("event queue is full")
	ErrQueueStopped = errors.New("event queue is not running")
)

// QueueConfig sizes the worker pool behind AsyncEventBus
type QueueConfig struct {
	Workers      int
	QueueSize    int
	MaxAttempts  int
	RetryBackoff time.Duration
	JobTimeout   time.Duration
}

// DefaultQueueConfig returns the settings used when nothing is configured
func DefaultQueueConfig() QueueConfig {
	return QueueConfig{
		Workers:      2,
		QueueSize:    256,
		MaxAttempts:  3,
		RetryBackoff: 2 * time.Second,
		JobTimeout:   time.Minute,
	}
}

func (c QueueConfig) withDefaults() QueueConfig {
	d := DefaultQueueConfig()
	if c.Workers <= 0 {
		c.Workers = d.Workers
	}
	if c.QueueSize <= 0 {
		c.QueueSize = d.QueueSize
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 1
	}
	if c.RetryBackoff < 0 {
		c.RetryBackoff = 0
	}
	if c.JobTimeout <= 0 {
		c.JobTimeout = d.JobTimeout
	}
	return c
}

// QueueStats is a snapshot of the queue counters
type QueueStats struct {
	Published int64 `json:"published"`
	Processed int64 `json:"processed"`
	Failed    int64 `json:"failed"`
	Retried   int64 `json:"retried"`
	Dropped   int64 `json:"dropped"`
	Depth     int   `json:"depth"`
}

// job is one event bound for one handler
type job struct {
	event     shared.DomainEvent
	handler   shared.EventHandler
	logger    *zap.Logger
	requestID string
	cashier   string
	span      trace.SpanContext
}

// AsyncEventBus implements EventBus on a bounded channel drained by a fixed
// pool of workers. Publish never waits for handlers. A failed handler is
// retried with linear backoff until MaxAttempts unless it returns an error
// marked with shared.Permanent.
type AsyncEventBus struct {
	registry *HandlerRegistry
	logger   *zap.Logger
	cfg      QueueConfig

	mu      sync.RWMutex
	running bool
	jobs    chan job
	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	published atomic.Int64
	processed atomic.Int64
	failed    atomic.Int64
	retried   atomic.Int64
	dropped   atomic.Int64
}

// NewAsyncEventBus creates a stopped bus. Call Start before publishing.
func NewAsyncEventBus(cfg QueueConfig, log *zap.Logger) *AsyncEventBus {
	if log == nil {
		log = zap.NewNop()
	}
	return &AsyncEventBus{
		registry: NewHandlerRegistry(),
		logger:   log,
		cfg:      cfg.withDefaults(),
	}
}

// Subscribe registers a handler. Without explicit types the handler's own
// EventTypes are used.
func (b *AsyncEventBus) Subscribe(handler shared.EventHandler, eventTypes ...string) {
	if len(eventTypes) == 0 {
		eventTypes = handler.EventTypes()
	}
	b.registry.Register(handler, eventTypes...)
	b.logger.Debug("handler subscribed", zap.Strings("event_types", eventTypes))
}

// Unsubscribe removes a handler
func (b *AsyncEventBus) Unsubscribe(handler shared.EventHandler) {
	b.registry.Unregister(handler)
}

// Publish enqueues one job per subscribed handler for each event. It fails
// with ErrQueueStopped when the bus is not running and ErrQueueFull when
// the buffer has no room; jobs enqueued before the failure still run.
func (b *AsyncEventBus) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.running {
		return ErrQueueStopped
	}

	for _, evt := range events {
		handlers := b.registry.GetHandlers(evt.EventType())
		if len(handlers) == 0 {
			b.logger.Debug("no handlers for event", zap.String("event_type", evt.EventType()))
			continue
		}
		for _, h := range handlers {
			j := job{
				event:     evt,
				handler:   h,
				logger:    logger.FromContext(ctx),
				requestID: logger.RequestID(ctx),
				cashier:   logger.Cashier(ctx),
				span:      trace.SpanContextFromContext(ctx),
			}
			select {
			case b.jobs <- j:
				b.published.Add(1)
			default:
				b.dropped.Add(1)
				return fmt.Errorf("%w: %s %s", ErrQueueFull, evt.EventType(), evt.EventID())
			}
		}
	}
	return nil
}

// Start launches the workers
func (b *AsyncEventBus) Start(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.running {
		return nil
	}
	b.jobs = make(chan job, b.cfg.QueueSize)
	b.baseCtx, b.cancel = context.WithCancel(context.WithoutCancel(ctx))
	b.running = true

	for i := 0; i < b.cfg.Workers; i++ {
		b.wg.Add(1)
		go b.worker(i)
	}
	b.logger.Info("event queue started",
		zap.Int("workers", b.cfg.Workers),
		zap.Int("queue_size", b.cfg.QueueSize),
	)
	return nil
}

// Stop refuses new events and waits for queued jobs to finish. When ctx
// expires first, in-flight jobs are cancelled, the rest are dropped and
// ctx.Err is returned.
func (b *AsyncEventBus) Stop(ctx context.Context) error {
	b.mu.Lock()
	if !b.running {
		b.mu.Unlock()
		return nil
	}
	b.running = false
	close(b.jobs)
	b.mu.Unlock()

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		b.cancel()
		b.logger.Info("event queue stopped")
		return nil
	case <-ctx.Done():
		b.cancel()
		<-done
		b.logger.Warn("event queue stopped before draining", zap.Error(ctx.Err()))
		return ctx.Err()
	}
}

// Stats returns the current counters
func (b *AsyncEventBus) Stats() QueueStats {
	b.mu.RLock()
	depth := 0
	if b.jobs != nil {
		depth = len(b.jobs)
	}
	b.mu.RUnlock()

	return QueueStats{
		Published: b.published.Load(),
		Processed: b.processed.Load(),
		Failed:    b.failed.Load(),
		Retried:   b.retried.Load(),
		Dropped:   b.dropped.Load(),
		Depth:     depth,
	}
}

// Running reports whether the bus accepts events
func (b *AsyncEventBus) Running() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.running
}

func (b *AsyncEventBus) worker(id int) {
	defer b.wg.Done()

	for j := range b.jobs {
		if b.baseCtx.Err() != nil {
			b.dropped.Add(1)
			b.logger.Warn("dropping queued event on shutdown",
				zap.Int("worker", id),
				zap.String("event_type", j.event.EventType()),
				zap.String("event_id", j.event.EventID().String()),
			)
			continue
		}
		b.run(j)
	}
}

// run dispatches j until it succeeds, fails permanently or runs out of attempts
func (b *AsyncEventBus) run(j job) {
	log := j.logger.With(
		zap.String("event_type", j.event.EventType()),
		zap.String("event_id", j.event.EventID().String()),
	)

	for attempt := 1; ; attempt++ {
		err := b.dispatch(j)
		if err == nil {
			b.processed.Add(1)
			return
		}

		if shared.IsPermanent(err) || attempt >= b.cfg.MaxAttempts {
			b.failed.Add(1)
			log.Error("event handler failed",
				zap.Int("attempts", attempt),
				zap.Bool("permanent", shared.IsPermanent(err)),
				zap.Error(err),
			)
			return
		}

		b.retried.Add(1)
		wait := b.cfg.RetryBackoff * time.Duration(attempt)
		log.Warn("event handler failed, retrying",
			zap.Int("attempt", attempt),
			zap.Duration("backoff", wait),
			zap.Error(err),
		)

		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
		case <-b.baseCtx.Done():
			timer.Stop()
			b.failed.Add(1)
			log.Warn("retry abandoned on shutdown", zap.Int("attempts", attempt))
			return
		}
	}
}

// dispatch runs one attempt with panic recovery
func (b *AsyncEventBus) dispatch(j job) (err error) {
	ctx := logger.WithContext(b.baseCtx, j.logger)
	if j.requestID != "" {
		ctx = logger.WithRequestID(ctx, j.requestID)
	}
	if j.cashier != "" {
		ctx = logger.WithCashier(ctx, j.cashier)
	}
	if j.span.IsValid() {
		ctx = trace.ContextWithRemoteSpanContext(ctx, j.span)
	}
	ctx, cancel := context.WithTimeout(ctx, b.cfg.JobTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("handler panicked",
				zap.String("event_type", j.event.EventType()),
				zap.Any("panic", r),
			)
			err = shared.Permanent(fmt.Errorf("handler panicked: %v", r))
		}
	}()

	return j.handler.Handle(ctx, j.event)
}

var _ shared.EventBus = (*AsyncEventBus)(nil)
