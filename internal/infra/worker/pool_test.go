package worker_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"docgen-progress/internal/domain"
	"docgen-progress/internal/infra/worker"

	"github.com/rs/zerolog"
)

func newPool(t *testing.T, workers, queueSize int) *worker.Pool {
	t.Helper()
	logger := zerolog.Nop()
	p := worker.NewPool(workers, queueSize, &logger)
	ctx, cancel := context.WithCancel(context.Background())
	p.Start(ctx)
	t.Cleanup(func() {
		p.Stop()
		cancel()
	})
	return p
}

func TestPoolRunsTasks(t *testing.T) {
	p := newPool(t, 2, 8)

	var ran int32
	done := make(chan struct{})
	for i := 0; i < 5; i++ {
		err := p.Submit(func(ctx context.Context) error {
			if atomic.AddInt32(&ran, 1) == 5 {
				close(done)
			}
			return nil
		})
		if err != nil {
			t.Fatalf("submit: %v", err)
		}
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("only %d of 5 tasks ran", atomic.LoadInt32(&ran))
	}
}

func TestPoolRejectsNilTask(t *testing.T) {
	p := newPool(t, 1, 1)
	if err := p.Submit(nil); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Errorf("err = %v, want ErrInvalidArgument", err)
	}
}

func TestPoolQueueFull(t *testing.T) {
	logger := zerolog.Nop()
	// Not started: nothing drains the queue, so it fills deterministically.
	p := worker.NewPool(1, 2, &logger)

	block := func(ctx context.Context) error { return nil }
	if err := p.Submit(block); err != nil {
		t.Fatalf("first submit: %v", err)
	}
	if err := p.Submit(block); err != nil {
		t.Fatalf("second submit: %v", err)
	}
	if err := p.Submit(block); !errors.Is(err, domain.ErrQueueFull) {
		t.Errorf("err = %v, want ErrQueueFull", err)
	}
}

func TestPoolTaskErrorDoesNotStopWorker(t *testing.T) {
	p := newPool(t, 1, 4)

	done := make(chan struct{})
	if err := p.Submit(func(ctx context.Context) error { return errors.New("boom") }); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if err := p.Submit(func(ctx context.Context) error { close(done); return nil }); err != nil {
		t.Fatalf("submit: %v", err)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not survive a failing task")
	}
}
