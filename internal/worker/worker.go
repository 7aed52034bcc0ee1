package worker

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/williampepple1/proxy-trends/internal/config"
	"github.com/williampepple1/proxy-trends/internal/run"
)

// ErrStopped is reported to callers that submit to a stopped pool
var ErrStopped = errors.New("worker: pool stopped")

// Runner performs one run
type Runner interface {
	Trigger(ctx context.Context) run.Outcome
}

type job struct {
	ctx    context.Context
	result chan run.Outcome
}

// Pool executes submitted runs one at a time on a single worker
// goroutine, spacing successive runs by the configured rate limit
type Pool struct {
	Runner  Runner
	Limiter *rate.Limiter

	jobs      chan job
	quit      chan struct{}
	waitGroup sync.WaitGroup
	startOnce sync.Once
	stopOnce  sync.Once
	log       *zap.Logger
}

// NewPool creates a new run queue. A nil logger uses zap.L().
func NewPool(runner Runner, cfg *config.ScraperConfig, logger *zap.Logger) *Pool {
	if logger == nil {
		logger = zap.L()
	}
	limit := rate.Inf
	if cfg != nil && cfg.RateLimit > 0 {
		limit = rate.Every(cfg.RateLimit)
	}

	return &Pool{
		Runner:  runner,
		Limiter: rate.NewLimiter(limit, 1),
		jobs:    make(chan job),
		quit:    make(chan struct{}),
		log:     logger,
	}
}

// Start starts the worker
func (p *Pool) Start() {
	p.startOnce.Do(func() {
		p.waitGroup.Add(1)
		go p.worker()
	})
}

// worker processes jobs until the pool is stopped
func (p *Pool) worker() {
	defer p.waitGroup.Done()

	for {
		select {
		case <-p.quit:
			return
		case j := <-p.jobs:
			j.result <- p.process(j.ctx)
		}
	}
}

func (p *Pool) process(ctx context.Context) run.Outcome {
	if err := p.Limiter.Wait(ctx); err != nil {
		return run.Failure(err)
	}
	p.log.Info("worker: run started")
	out := p.Runner.Trigger(ctx)
	p.log.Info("worker: run finished", zap.Bool("ok", out.OK()))
	return out
}

// Submit queues one run and waits for its outcome. A caller whose ctx
// ends first receives an error outcome.
func (p *Pool) Submit(ctx context.Context) run.Outcome {
	j := job{ctx: ctx, result: make(chan run.Outcome, 1)}

	select {
	case p.jobs <- j:
	case <-p.quit:
		return run.Failure(ErrStopped)
	case <-ctx.Done():
		return run.Failure(ctx.Err())
	}

	select {
	case out := <-j.result:
		return out
	case <-ctx.Done():
		return run.Failure(ctx.Err())
	}
}

// Stop stops accepting runs and waits for the current one to finish
func (p *Pool) Stop() {
	p.stopOnce.Do(func() { close(p.quit) })
	p.waitGroup.Wait()
}
