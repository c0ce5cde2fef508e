package spotter

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/multierr"

	"github.com/Tutortoise/live-spotter/detections"
)

const (
	DefaultPoolSize = 1
	AcquireTimeout  = 5 * time.Second
)

var ErrPoolClosed = errors.New("engine pool is closed")

// EngineFactory builds one inference engine. Engines are not shared between
// goroutines, so the pool holds one per concurrent inference.
type EngineFactory func() (detections.Engine, error)

type EnginePool struct {
	engines        chan detections.Engine
	size           int
	acquireTimeout time.Duration
	mu             sync.Mutex
	closed         bool
	metrics        *PoolMetrics
}

type PoolMetrics struct {
	mu              sync.RWMutex
	inUse           int
	totalAcquired   int64
	totalReleased   int64
	acquireFailures int64
	waitTime        time.Duration
}

// PoolStats is a point-in-time copy of the pool metrics.
type PoolStats struct {
	Size            int           `json:"pool_size"`
	InUse           int           `json:"engines_in_use"`
	TotalAcquired   int64         `json:"total_acquired"`
	TotalReleased   int64         `json:"total_released"`
	AcquireFailures int64         `json:"acquire_failures"`
	WaitTime        time.Duration `json:"wait_time_ns"`
}

func NewEnginePool(size int, factory EngineFactory) (*EnginePool, error) {
	if size <= 0 {
		size = DefaultPoolSize
	}
	if factory == nil {
		return nil, errors.New("engine pool requires a factory")
	}

	pool := &EnginePool{
		engines:        make(chan detections.Engine, size),
		size:           size,
		acquireTimeout: AcquireTimeout,
		metrics:        &PoolMetrics{},
	}

	for i := 0; i < size; i++ {
		engine, err := factory()
		if err != nil {
			return nil, multierr.Combine(
				fmt.Errorf("failed to initialize engine %d: %w", i, err),
				pool.Destroy(),
			)
		}
		pool.engines <- engine
	}

	return pool, nil
}

func (p *EnginePool) Size() int {
	return p.size
}

// Acquire takes an idle engine, waiting at most AcquireTimeout.
func (p *EnginePool) Acquire(ctx context.Context) (detections.Engine, error) {
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		return nil, ErrPoolClosed
	}

	start := time.Now()
	defer func() {
		p.metrics.mu.Lock()
		p.metrics.waitTime += time.Since(start)
		p.metrics.mu.Unlock()
	}()

	timer := time.NewTimer(p.acquireTimeout)
	defer timer.Stop()

	select {
	case engine, ok := <-p.engines:
		if !ok {
			return nil, ErrPoolClosed
		}
		p.metrics.mu.Lock()
		p.metrics.inUse++
		p.metrics.totalAcquired++
		p.metrics.mu.Unlock()
		return engine, nil
	case <-timer.C:
		p.metrics.mu.Lock()
		p.metrics.acquireFailures++
		p.metrics.mu.Unlock()
		return nil, fmt.Errorf("timeout waiting for available engine")
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Release hands engine back. Engines released after Destroy are closed.
func (p *EnginePool) Release(engine detections.Engine) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.metrics.mu.Lock()
	p.metrics.inUse--
	p.metrics.totalReleased++
	p.metrics.mu.Unlock()

	if p.closed {
		engine.Close()
		return
	}
	p.engines <- engine
}

// Destroy closes every idle engine. Engines still in use are closed on Release.
func (p *EnginePool) Destroy() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}

	p.closed = true
	close(p.engines)

	var err error
	for engine := range p.engines {
		err = multierr.Append(err, engine.Close())
	}
	return err
}

func (p *EnginePool) GetMetrics() PoolStats {
	p.metrics.mu.RLock()
	defer p.metrics.mu.RUnlock()
	return PoolStats{
		Size:            p.size,
		InUse:           p.metrics.inUse,
		TotalAcquired:   p.metrics.totalAcquired,
		TotalReleased:   p.metrics.totalReleased,
		AcquireFailures: p.metrics.acquireFailures,
		WaitTime:        p.metrics.waitTime,
	}
}
