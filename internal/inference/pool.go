package inference

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"
)

// job is one queued chat round
type job struct {
	ctx    context.Context
	req    *ChatRequest
	result chan jobResult
}

type jobResult struct {
	resp *ChatResponse
	err  error
}

// Pool bounds the number of concurrent oracle rounds across all sessions
type Pool struct {
	backend   Completer
	workers   int
	queue     chan *job
	wg        sync.WaitGroup
	ctx       context.Context
	cancel    context.CancelFunc
	semaphore chan struct{} // Limits concurrent requests
	metrics   *PoolMetrics
}

// PoolMetrics tracks pool performance
type PoolMetrics struct {
	TotalRequests   int64
	CompletedOK     int64
	CompletedError  int64
	AverageLatency  time.Duration
	TotalLatency    time.Duration
	CurrentInflight int
	mu              sync.RWMutex
}

// PoolConfig holds pool configuration
type PoolConfig struct {
	Workers       int // Number of worker goroutines
	QueueSize     int // Size of request queue
	MaxConcurrent int // Maximum concurrent requests
}

// DefaultPoolConfig returns default pool configuration
func DefaultPoolConfig() *PoolConfig {
	return &PoolConfig{
		Workers:       runtime.NumCPU() * 2,
		QueueSize:     1000,
		MaxConcurrent: 4, // Match typical Ollama defaults
	}
}

// NewPool creates a pool in front of backend and starts its workers
func NewPool(backend Completer, config *PoolConfig) *Pool {
	if config == nil {
		config = DefaultPoolConfig()
	}
	if config.Workers < 1 {
		config.Workers = 1
	}
	if config.MaxConcurrent < 1 {
		config.MaxConcurrent = 1
	}

	ctx, cancel := context.WithCancel(context.Background())

	pool := &Pool{
		backend:   backend,
		workers:   config.Workers,
		queue:     make(chan *job, config.QueueSize),
		ctx:       ctx,
		cancel:    cancel,
		semaphore: make(chan struct{}, config.MaxConcurrent),
		metrics:   &PoolMetrics{},
	}

	for i := 0; i < pool.workers; i++ {
		pool.wg.Add(1)
		go pool.worker()
	}

	return pool
}

// worker processes jobs from the queue
func (p *Pool) worker() {
	defer p.wg.Done()

	for {
		select {
		case <-p.ctx.Done():
			return
		case j, ok := <-p.queue:
			if !ok {
				return
			}
			p.process(j)
		}
	}
}

// process handles a single chat round
func (p *Pool) process(j *job) {
	select {
	case p.semaphore <- struct{}{}:
		defer func() { <-p.semaphore }()
	case <-j.ctx.Done():
		// cancelled while waiting for a slot
		j.result <- jobResult{err: j.ctx.Err()}
		return
	}

	p.metrics.mu.Lock()
	p.metrics.CurrentInflight++
	p.metrics.mu.Unlock()

	defer func() {
		p.metrics.mu.Lock()
		p.metrics.CurrentInflight--
		p.metrics.mu.Unlock()
	}()

	startTime := time.Now()
	resp, err := p.backend.Complete(j.ctx, j.req)
	p.updateMetrics(time.Since(startTime), err == nil)

	j.result <- jobResult{resp: resp, err: err}
}

// updateMetrics updates pool metrics
func (p *Pool) updateMetrics(latency time.Duration, success bool) {
	p.metrics.mu.Lock()
	defer p.metrics.mu.Unlock()

	p.metrics.TotalRequests++
	if success {
		p.metrics.CompletedOK++
	} else {
		p.metrics.CompletedError++
	}

	p.metrics.TotalLatency += latency
	if p.metrics.CompletedOK > 0 {
		p.metrics.AverageLatency = p.metrics.TotalLatency / time.Duration(p.metrics.CompletedOK)
	}
}

// Complete queues the request and waits for its result
func (p *Pool) Complete(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	j := &job{ctx: ctx, req: req, result: make(chan jobResult, 1)}

	select {
	case <-p.ctx.Done():
		return nil, fmt.Errorf("pool is shut down")
	default:
	}

	select {
	case p.queue <- j:
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
		return nil, fmt.Errorf("queue full")
	}

	select {
	case r := <-j.result:
		return r.resp, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-p.ctx.Done():
		return nil, fmt.Errorf("pool is shut down")
	}
}

// GetMetrics returns current pool metrics
func (p *Pool) GetMetrics() PoolMetrics {
	p.metrics.mu.RLock()
	defer p.metrics.mu.RUnlock()

	return PoolMetrics{
		TotalRequests:   p.metrics.TotalRequests,
		CompletedOK:     p.metrics.CompletedOK,
		CompletedError:  p.metrics.CompletedError,
		AverageLatency:  p.metrics.AverageLatency,
		TotalLatency:    p.metrics.TotalLatency,
		CurrentInflight: p.metrics.CurrentInflight,
	}
}

// QueueLength returns the current queue length
func (p *Pool) QueueLength() int {
	return len(p.queue)
}

// Shutdown stops the workers, waiting up to timeout for queued jobs
func (p *Pool) Shutdown(timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	done := make(chan struct{})
	go func() {
		p.cancel()
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("shutdown timeout exceeded")
	}
}
