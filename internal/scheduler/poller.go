package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"lighterdash/internal/logger"
)

// Task is one polling run. Its error is logged, never fatal.
type Task func(ctx context.Context) error

// Poller runs Task every Interval until ctx ends. A tick that arrives while the
// previous run is still in flight is skipped. Start returns only after the
// in-flight run has finished.
type Poller struct {
	Name           string
	Interval       time.Duration
	RunImmediately bool

	running atomic.Bool
	wg      sync.WaitGroup
	skipped atomic.Int64
	runs    atomic.Int64
}

func NewPoller(name string, interval time.Duration, runImmediately bool) *Poller {
	return &Poller{Name: name, Interval: interval, RunImmediately: runImmediately}
}

func (p *Poller) Runs() int64    { return p.runs.Load() }
func (p *Poller) Skipped() int64 { return p.skipped.Load() }

func (p *Poller) Start(ctx context.Context, task Task) error {
	prefix := "Poller"
	if p.Name != "" {
		prefix += "[" + p.Name + "]"
	}
	if task == nil {
		logger.Warnf("%s: task is nil, exit", prefix)
		return nil
	}
	if p.Interval <= 0 {
		logger.Warnf("%s: invalid interval=%s, exit", prefix, p.Interval)
		return nil
	}
	logger.Infof("%s: started interval=%s run_immediately=%v", prefix, p.Interval, p.RunImmediately)

	if p.RunImmediately {
		p.trigger(ctx, prefix, task)
	}
	ticker := time.NewTicker(p.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			p.wg.Wait()
			logger.Infof("%s: ctx done, exit", prefix)
			return nil
		case <-ticker.C:
			p.trigger(ctx, prefix, task)
		}
	}
}

func (p *Poller) trigger(ctx context.Context, prefix string, task Task) {
	if !p.running.CompareAndSwap(false, true) {
		p.skipped.Add(1)
		logger.Debugf("%s: previous run still in flight, tick skipped", prefix)
		return
	}
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer p.running.Store(false)
		defer func() {
			if r := recover(); r != nil {
				logger.Errorf("%s: task panic: %v", prefix, r)
			}
		}()
		p.runs.Add(1)
		if err := task(ctx); err != nil && ctx.Err() == nil {
			logger.Debugf("%s: run failed: %v", prefix, err)
		}
	}()
}
