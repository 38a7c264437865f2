// internal/scheduler/scheduler.go

// Package scheduler serializes pagination work onto a single goroutine.
// Triggers are debounced by replacement: a new trigger supersedes whatever
// is pending, so a typing burst collapses into one tick against the final
// document state. Ticks never run while IME composition is active, and the
// single loop goroutine is the reentrancy guard, so a tick can never start
// while another is applying.
package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/rowanlabs/gridpager/internal/doc"
)

// Request identifies what a tick should look at first. An empty CellPath
// widens the scope to the whole document.
type Request struct {
	CellPath  doc.Path
	TablePath doc.Path
	// Active marks a trigger caused by direct editing, which makes the
	// caret follow any content the tick moves.
	Active bool
}

// TickFunc runs one pagination tick. It executes on the scheduler's loop
// goroutine.
type TickFunc func(ctx context.Context, req Request)

// Config tunes the scheduler.
type Config struct {
	// Debounce is the quiet period after the last trigger before a tick
	// fires.
	Debounce time.Duration
	// ScanInterval throttles whole-document scans; at most one is allowed
	// per interval regardless of how often ticks fire.
	ScanInterval time.Duration
}

// Scheduler owns the debounce timer and the loop goroutine.
type Scheduler struct {
	cfg     Config
	tick    TickFunc
	limiter *rate.Limiter
	logger  *zap.Logger

	triggers  chan Request
	stop      chan struct{}
	done      chan struct{}
	composing atomic.Bool
	startOnce sync.Once
	stopOnce  sync.Once
}

// New builds a stopped scheduler. Call Start before triggering.
func New(cfg Config, tick TickFunc, logger *zap.Logger) *Scheduler {
	if cfg.Debounce <= 0 {
		cfg.Debounce = 16 * time.Millisecond
	}
	if cfg.ScanInterval <= 0 {
		cfg.ScanInterval = time.Second
	}
	return &Scheduler{
		cfg:      cfg,
		tick:     tick,
		limiter:  rate.NewLimiter(rate.Every(cfg.ScanInterval), 1),
		logger:   logger.With(zap.String("component", "scheduler")),
		triggers: make(chan Request, 1),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start launches the loop goroutine. Subsequent calls are no-ops.
func (s *Scheduler) Start(ctx context.Context) {
	s.startOnce.Do(func() {
		go s.run(ctx)
	})
}

// Stop shuts the loop down and waits for it to exit. A pending debounced
// tick is dropped, not flushed.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		close(s.stop)
	})
	<-s.done
}

// Trigger schedules a tick for req after the debounce window. It replaces
// any pending request and never blocks, so it is safe to call from inside a
// running tick.
func (s *Scheduler) Trigger(req Request) {
	for {
		select {
		case s.triggers <- req:
			return
		case <-s.stop:
			return
		default:
		}
		// Channel full: displace the stale request.
		select {
		case <-s.triggers:
		default:
		}
	}
}

// SetComposing toggles the IME composition guard. While set, debounced
// ticks are deferred, not dropped; the pending request fires once
// composition ends and the debounce window elapses again.
func (s *Scheduler) SetComposing(active bool) {
	s.composing.Store(active)
}

// AllowFullScan reports whether a whole-document scan may run this tick.
func (s *Scheduler) AllowFullScan() bool {
	return s.limiter.Allow()
}

func (s *Scheduler) run(ctx context.Context) {
	defer close(s.done)
	timer := time.NewTimer(time.Hour)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	var pending *Request
	for {
		select {
		case req := <-s.triggers:
			pending = &req
			resetTimer(timer, s.cfg.Debounce)
		case <-timer.C:
			if pending == nil {
				continue
			}
			if s.composing.Load() {
				resetTimer(timer, s.cfg.Debounce)
				continue
			}
			req := *pending
			pending = nil
			s.fire(ctx, req)
		case <-ctx.Done():
			return
		case <-s.stop:
			return
		}
	}
}

func (s *Scheduler) fire(ctx context.Context, req Request) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("tick panicked", zap.Any("panic", r))
		}
	}()
	start := time.Now()
	s.tick(ctx, req)
	s.logger.Debug("tick finished",
		zap.Duration("elapsed", time.Since(start)),
		zap.Bool("active", req.Active))
}

func resetTimer(t *time.Timer, d time.Duration) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
	t.Reset(d)
}
