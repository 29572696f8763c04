package dispatcher

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/karl-run/spesialist/internal/domain/event"
)

type mockLogger struct {
	mu     sync.Mutex
	infos  []string
	errors []string
}

func (m *mockLogger) Info(msg string, keysAndValues ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.infos = append(m.infos, msg)
}

func (m *mockLogger) Error(msg string, keysAndValues ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors = append(m.errors, msg)
}

func (m *mockLogger) errorCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.errors)
}

func testEvent(t event.Type) event.Event {
	return event.New(t, uuid.New(), "12345678910", nil)
}

func TestDispatch_RunsHandlersInOrder(t *testing.T) {
	d := NewDispatcher()
	defer d.Close()

	var order []string
	d.SubscribeNamed(event.TypeOppgaveOpprettet, "first", func(ctx context.Context, evt event.Event) error {
		order = append(order, "first")
		return nil
	})
	d.SubscribeNamed(event.TypeOppgaveOpprettet, "second", func(ctx context.Context, evt event.Event) error {
		order = append(order, "second")
		return nil
	})

	if err := d.Dispatch(context.Background(), testEvent(event.TypeOppgaveOpprettet)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(order) != 2 || order[0] != "first" || order[1] != "second" {
		t.Fatalf("unexpected handler order: %v", order)
	}
}

func TestDispatch_StopsOnFirstError(t *testing.T) {
	d := NewDispatcher(WithLogger(&mockLogger{}))
	defer d.Close()

	wantErr := errors.New("boom")
	var secondRan bool
	d.SubscribeNamed(event.TypeVarselEndret, "failing", func(ctx context.Context, evt event.Event) error {
		return wantErr
	})
	d.SubscribeNamed(event.TypeVarselEndret, "after", func(ctx context.Context, evt event.Event) error {
		secondRan = true
		return nil
	})

	err := d.Dispatch(context.Background(), testEvent(event.TypeVarselEndret))
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected wrapped handler error, got %v", err)
	}
	if secondRan {
		t.Fatal("handler after the failing one should not run")
	}
}

func TestDispatch_RecoversHandlerPanic(t *testing.T) {
	logger := &mockLogger{}
	d := NewDispatcher(WithLogger(logger))
	defer d.Close()

	d.SubscribeNamed(event.TypeGenerasjonEndret, "panicking", func(ctx context.Context, evt event.Event) error {
		panic("oops")
	})

	err := d.Dispatch(context.Background(), testEvent(event.TypeGenerasjonEndret))
	if err == nil {
		t.Fatal("expected error from recovered panic")
	}
	if logger.errorCount() == 0 {
		t.Fatal("expected panic to be logged")
	}
}

func TestDispatch_NoHandlersIsNoop(t *testing.T) {
	d := NewDispatcher()
	defer d.Close()

	if err := d.Dispatch(context.Background(), testEvent(event.TypeVedtaksperiodeGodkjent)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestDispatchAsync_CloseWaitsForHandlers(t *testing.T) {
	d := NewDispatcher()

	var done atomic.Bool
	d.Subscribe(event.TypeOppgaveOppdatert, func(ctx context.Context, evt event.Event) error {
		time.Sleep(20 * time.Millisecond)
		done.Store(true)
		return nil
	})

	d.DispatchAsync(context.Background(), testEvent(event.TypeOppgaveOppdatert))
	if err := d.Close(); err != nil {
		t.Fatalf("unexpected close error: %v", err)
	}
	if !done.Load() {
		t.Fatal("Close should wait for in-flight async handlers")
	}
}

func TestDispatch_AfterCloseFails(t *testing.T) {
	d := NewDispatcher()
	if err := d.Close(); err != nil {
		t.Fatalf("unexpected close error: %v", err)
	}
	if err := d.Dispatch(context.Background(), testEvent(event.TypeOppgaveOpprettet)); err == nil {
		t.Fatal("expected error dispatching on closed dispatcher")
	}
	if err := d.Close(); err == nil {
		t.Fatal("expected error on double close")
	}
}
