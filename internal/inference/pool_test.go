package inference

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// fakeBackend answers every request after an optional delay
type fakeBackend struct {
	delay    time.Duration
	err      error
	inflight int32
	peak     int32
}

func (f *fakeBackend) Complete(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	n := atomic.AddInt32(&f.inflight, 1)
	defer atomic.AddInt32(&f.inflight, -1)
	for {
		p := atomic.LoadInt32(&f.peak)
		if n <= p || atomic.CompareAndSwapInt32(&f.peak, p, n) {
			break
		}
	}

	select {
	case <-time.After(f.delay):
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if f.err != nil {
		return nil, f.err
	}
	return &ChatResponse{Message: ChatMessage{Role: RoleAssistant, Content: "ok"}}, nil
}

// TestPoolCreation tests pool initialization
func TestPoolCreation(t *testing.T) {
	pool := NewPool(&fakeBackend{}, &PoolConfig{Workers: 3, QueueSize: 10, MaxConcurrent: 2})
	if pool == nil {
		t.Fatal("Expected pool to be created")
	}

	if pool.workers != 3 {
		t.Errorf("Expected 3 workers, got %d", pool.workers)
	}

	if err := pool.Shutdown(5 * time.Second); err != nil {
		t.Errorf("Shutdown failed: %v", err)
	}
}

// TestPoolComplete tests a single round through the pool
func TestPoolComplete(t *testing.T) {
	pool := NewPool(&fakeBackend{}, nil)
	defer pool.Shutdown(5 * time.Second)

	resp, err := pool.Complete(context.Background(), &ChatRequest{})
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if resp.Message.Content != "ok" {
		t.Errorf("Unexpected content %q", resp.Message.Content)
	}

	metrics := pool.GetMetrics()
	if metrics.TotalRequests != 1 || metrics.CompletedOK != 1 {
		t.Errorf("Unexpected metrics: %+v", &metrics)
	}
}

// TestPoolConcurrencyLimit tests that MaxConcurrent bounds in-flight rounds
func TestPoolConcurrencyLimit(t *testing.T) {
	backend := &fakeBackend{delay: 20 * time.Millisecond}
	pool := NewPool(backend, &PoolConfig{Workers: 8, QueueSize: 100, MaxConcurrent: 2})
	defer pool.Shutdown(5 * time.Second)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := pool.Complete(context.Background(), &ChatRequest{}); err != nil {
				t.Errorf("Complete failed: %v", err)
			}
		}()
	}
	wg.Wait()

	if peak := atomic.LoadInt32(&backend.peak); peak > 2 {
		t.Errorf("Expected at most 2 concurrent rounds, saw %d", peak)
	}
	if got := pool.GetMetrics().CompletedOK; got != 10 {
		t.Errorf("Expected 10 completed rounds, got %d", got)
	}
}

// TestPoolErrorsAndCancellation tests error propagation and context cancellation
func TestPoolErrorsAndCancellation(t *testing.T) {
	boom := errors.New("backend down")
	pool := NewPool(&fakeBackend{err: boom}, nil)

	if _, err := pool.Complete(context.Background(), &ChatRequest{}); !errors.Is(err, boom) {
		t.Errorf("Expected backend error, got %v", err)
	}
	if got := pool.GetMetrics().CompletedError; got != 1 {
		t.Errorf("Expected 1 failed round, got %d", got)
	}
	pool.Shutdown(time.Second)

	slow := NewPool(&fakeBackend{delay: time.Second}, nil)
	defer slow.Shutdown(5 * time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := slow.Complete(ctx, &ChatRequest{}); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected deadline exceeded, got %v", err)
	}
}

// TestPoolRejectsAfterShutdown tests that a stopped pool refuses work
func TestPoolRejectsAfterShutdown(t *testing.T) {
	pool := NewPool(&fakeBackend{}, nil)
	if err := pool.Shutdown(time.Second); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}
	if _, err := pool.Complete(context.Background(), &ChatRequest{}); err == nil {
		t.Error("Expected error after shutdown")
	}
}

// BenchmarkPoolThroughput benchmarks pool overhead with an instant backend
func BenchmarkPoolThroughput(b *testing.B) {
	pool := NewPool(&fakeBackend{}, DefaultPoolConfig())
	defer pool.Shutdown(30 * time.Second)

	ctx := context.Background()

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			if _, err := pool.Complete(ctx, &ChatRequest{}); err != nil {
				b.Logf("Error: %v", err)
			}
		}
	})
}
