package event

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/stocklink/pos/internal/domain/shared"
	"github.com/stocklink/pos/internal/infrastructure/logger"
)

type testEvent struct {
	shared.BaseDomainEvent
}

func newTestEvent(eventType string) *testEvent {
	return &testEvent{BaseDomainEvent: shared.NewBaseDomainEvent(eventType, "Test", "1")}
}

// testHandler records events and returns errs in order, then nil
type testHandler struct {
	eventTypes []string
	mu         sync.Mutex
	handled    []shared.DomainEvent
	errs       []error
	calls      atomic.Int32
	fn         func(ctx context.Context) error
}

func newTestHandler(eventTypes ...string) *testHandler {
	return &testHandler{eventTypes: eventTypes}
}

func (h *testHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	n := int(h.calls.Add(1))
	h.mu.Lock()
	h.handled = append(h.handled, event)
	var err error
	if n <= len(h.errs) {
		err = h.errs[n-1]
	}
	fn := h.fn
	h.mu.Unlock()
	if fn != nil {
		if ferr := fn(ctx); ferr != nil {
			return ferr
		}
	}
	return err
}

func (h *testHandler) EventTypes() []string { return h.eventTypes }

func (h *testHandler) getHandled() []shared.DomainEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]shared.DomainEvent(nil), h.handled...)
}

func fastConfig() QueueConfig {
	return QueueConfig{
		Workers:      2,
		QueueSize:    16,
		MaxAttempts:  3,
		RetryBackoff: time.Millisecond,
		JobTimeout:   time.Second,
	}
}

func startBus(t *testing.T, cfg QueueConfig) *AsyncEventBus {
	t.Helper()
	bus := NewAsyncEventBus(cfg, zap.NewNop())
	require.NoError(t, bus.Start(context.Background()))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = bus.Stop(ctx)
	})
	return bus
}

func TestAsyncEventBus_PublishBeforeStart(t *testing.T) {
	bus := NewAsyncEventBus(fastConfig(), nil)
	bus.Subscribe(newTestHandler("SaleCommitted"))

	err := bus.Publish(context.Background(), newTestEvent("SaleCommitted"))
	assert.ErrorIs(t, err, ErrQueueStopped)
}

func TestAsyncEventBus_DeliversAsynchronously(t *testing.T) {
	bus := startBus(t, fastConfig())
	handler := newTestHandler("SaleCommitted")
	other := newTestHandler("Other")
	bus.Subscribe(handler)
	bus.Subscribe(other)

	evt := newTestEvent("SaleCommitted")
	require.NoError(t, bus.Publish(context.Background(), evt))

	require.Eventually(t, func() bool { return len(handler.getHandled()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, evt, handler.getHandled()[0])
	assert.Empty(t, other.getHandled())
}

func TestAsyncEventBus_RetriesUntilSuccess(t *testing.T) {
	bus := startBus(t, fastConfig())
	handler := newTestHandler("SaleCommitted")
	handler.errs = []error{errors.New("smtp timeout"), errors.New("smtp timeout")}
	bus.Subscribe(handler)

	require.NoError(t, bus.Publish(context.Background(), newTestEvent("SaleCommitted")))

	require.Eventually(t, func() bool { return bus.Stats().Processed == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(3), handler.calls.Load())
	assert.Equal(t, int64(2), bus.Stats().Retried)
}

func TestAsyncEventBus_GivesUpAfterMaxAttempts(t *testing.T) {
	bus := startBus(t, fastConfig())
	handler := newTestHandler("SaleCommitted")
	fail := errors.New("down")
	handler.errs = []error{fail, fail, fail, fail}
	bus.Subscribe(handler)

	require.NoError(t, bus.Publish(context.Background(), newTestEvent("SaleCommitted")))

	require.Eventually(t, func() bool { return bus.Stats().Failed == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(3), handler.calls.Load())
}

func TestAsyncEventBus_PermanentErrorsAreNotRetried(t *testing.T) {
	bus := startBus(t, fastConfig())
	handler := newTestHandler("SaleCommitted")
	handler.errs = []error{shared.Permanent(errors.New("printer offline"))}
	bus.Subscribe(handler)

	require.NoError(t, bus.Publish(context.Background(), newTestEvent("SaleCommitted")))

	require.Eventually(t, func() bool { return bus.Stats().Failed == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(1), handler.calls.Load())
	assert.Zero(t, bus.Stats().Retried)
}

func TestAsyncEventBus_RecoversFromPanics(t *testing.T) {
	bus := startBus(t, fastConfig())
	handler := newTestHandler("SaleCommitted")
	var once sync.Once
	handler.fn = func(context.Context) error {
		once.Do(func() { panic("boom") })
		return nil
	}
	bus.Subscribe(handler)

	require.NoError(t, bus.Publish(context.Background(), newTestEvent("SaleCommitted")))
	require.NoError(t, bus.Publish(context.Background(), newTestEvent("SaleCommitted")))

	require.Eventually(t, func() bool {
		s := bus.Stats()
		return s.Failed == 1 && s.Processed == 1
	}, time.Second, 5*time.Millisecond)
}

func TestAsyncEventBus_QueueFull(t *testing.T) {
	cfg := fastConfig()
	cfg.Workers = 1
	cfg.QueueSize = 1
	bus := startBus(t, cfg)

	started := make(chan struct{}, 1)
	release := make(chan struct{})
	handler := newTestHandler("SaleCommitted")
	handler.fn = func(context.Context) error {
		select {
		case started <- struct{}{}:
		default:
		}
		<-release
		return nil
	}
	bus.Subscribe(handler)
	defer close(release)

	require.NoError(t, bus.Publish(context.Background(), newTestEvent("SaleCommitted")))
	<-started
	require.NoError(t, bus.Publish(context.Background(), newTestEvent("SaleCommitted")))

	err := bus.Publish(context.Background(), newTestEvent("SaleCommitted"))
	assert.ErrorIs(t, err, ErrQueueFull)
	assert.Equal(t, int64(1), bus.Stats().Dropped)
}

func TestAsyncEventBus_StopDrainsQueue(t *testing.T) {
	cfg := fastConfig()
	cfg.Workers = 1
	bus := NewAsyncEventBus(cfg, zap.NewNop())
	require.NoError(t, bus.Start(context.Background()))

	handler := newTestHandler("SaleCommitted")
	handler.fn = func(context.Context) error {
		time.Sleep(2 * time.Millisecond)
		return nil
	}
	bus.Subscribe(handler)

	for range 5 {
		require.NoError(t, bus.Publish(context.Background(), newTestEvent("SaleCommitted")))
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, bus.Stop(ctx))

	assert.Len(t, handler.getHandled(), 5)
	assert.False(t, bus.Running())
	assert.ErrorIs(t, bus.Publish(context.Background(), newTestEvent("SaleCommitted")), ErrQueueStopped)
}

func TestAsyncEventBus_StopTimeoutCancelsJobs(t *testing.T) {
	cfg := fastConfig()
	cfg.Workers = 1
	bus := NewAsyncEventBus(cfg, zap.NewNop())
	require.NoError(t, bus.Start(context.Background()))

	started := make(chan struct{})
	var cancelled atomic.Bool
	handler := newTestHandler("SaleCommitted")
	handler.fn = func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		cancelled.Store(true)
		return ctx.Err()
	}
	bus.Subscribe(handler)

	require.NoError(t, bus.Publish(context.Background(), newTestEvent("SaleCommitted")))
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := bus.Stop(ctx)

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.True(t, cancelled.Load())
}

func TestAsyncEventBus_CarriesRequestContext(t *testing.T) {
	bus := startBus(t, fastConfig())

	got := make(chan [2]string, 1)
	handler := newTestHandler("SaleCommitted")
	handler.fn = func(ctx context.Context) error {
		got <- [2]string{logger.RequestID(ctx), logger.Cashier(ctx)}
		return nil
	}
	bus.Subscribe(handler)

	ctx := logger.WithRequestID(context.Background(), "req-42")
	ctx = logger.WithCashier(ctx, "Welt Admin")
	require.NoError(t, bus.Publish(ctx, newTestEvent("SaleCommitted")))

	select {
	case v := <-got:
		assert.Equal(t, [2]string{"req-42", "Welt Admin"}, v)
	case <-time.After(time.Second):
		t.Fatal("handler not called")
	}
}

func TestAsyncEventBus_StartTwice(t *testing.T) {
	bus := startBus(t, fastConfig())
	require.NoError(t, bus.Start(context.Background()))
	assert.True(t, bus.Running())
}
