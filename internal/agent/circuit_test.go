package agent

import (
	"context"
	"errors"
	"testing"
	"time"
)

type failingModel struct {
	calls int
	err   error
}

func (m *failingModel) Generate(ctx context.Context, req Request) (*Response, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return &Response{Text: "ok"}, nil
}

func TestCircuitOpensAfterFailures(t *testing.T) {
	breaker := NewCircuitBreaker(DefaultCircuitConfig())
	now := time.Now()
	breaker.now = func() time.Time { return now }

	inner := &failingModel{err: errors.New("503")}
	model := NewGuardedModel(inner, breaker)

	for i := 0; i < 5; i++ {
		model.Generate(context.Background(), Request{})
	}
	if breaker.State() != CircuitOpen {
		t.Fatalf("expected open, got %s", breaker.State())
	}

	_, err := model.Generate(context.Background(), Request{})
	if !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected ErrCircuitOpen, got %v", err)
	}
	if inner.calls != 5 {
		t.Errorf("open breaker should not call the model, calls=%d", inner.calls)
	}

	now = now.Add(31 * time.Second)
	inner.err = nil
	if _, err := model.Generate(context.Background(), Request{}); err != nil {
		t.Fatalf("half-open probe: %v", err)
	}
	if breaker.State() != CircuitClosed {
		t.Errorf("expected closed after successful probe, got %s", breaker.State())
	}
}

func TestCircuitHalfOpenFailureReopens(t *testing.T) {
	breaker := NewCircuitBreaker(CircuitConfig{FailureThreshold: 1, SuccessThreshold: 1, OpenTimeout: time.Second, HalfOpenMaxCalls: 1})
	now := time.Now()
	breaker.now = func() time.Time { return now }

	breaker.RecordFailure()
	now = now.Add(2 * time.Second)

	if !breaker.Allow() {
		t.Fatal("expected probe to be allowed")
	}
	if breaker.Allow() {
		t.Error("only one half-open call should be allowed")
	}
	breaker.RecordFailure()
	if breaker.State() != CircuitOpen {
		t.Errorf("expected open, got %s", breaker.State())
	}
}

func TestCancelledCallsDoNotTrip(t *testing.T) {
	breaker := NewCircuitBreaker(CircuitConfig{FailureThreshold: 1, SuccessThreshold: 1, OpenTimeout: time.Second, HalfOpenMaxCalls: 1})
	model := NewGuardedModel(&failingModel{err: context.Canceled}, breaker)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	model.Generate(ctx, Request{})

	if breaker.State() != CircuitClosed {
		t.Errorf("expected closed, got %s", breaker.State())
	}
}
