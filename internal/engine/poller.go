package engine

import (
	"context"
	"sync"
	"time"

	"spotwatch/pkg/logger"
)

// Poller drives the engine with a single rearming timer. Each tick runs to
// completion, including awaited fetches, before the next delay is armed,
// so ticks never overlap. Interval changes take effect immediately: the
// pending timer is cancelled and a new one armed with the new delay.
type Poller struct {
	engine *Engine
	log    *logger.Logger
	rearm  chan time.Duration
	wg     sync.WaitGroup
}

func NewPoller(e *Engine, log *logger.Logger) *Poller {
	p := &Poller{
		engine: e,
		log:    log,
		rearm:  make(chan time.Duration, 1),
	}
	e.onRearm = p.SetInterval
	return p
}

// Start launches the polling loop. It stops when ctx is cancelled.
func (p *Poller) Start(ctx context.Context) {
	p.wg.Add(1)
	go p.loop(ctx)
	p.log.Info("poller started", logger.Duration("interval_ms", p.engine.Interval()))
}

// Wait blocks until the polling loop has exited.
func (p *Poller) Wait() {
	p.wg.Wait()
}

// SetInterval cancels the pending timer and arms a new one with d. Safe to
// call from any goroutine; only the newest pending interval is kept.
func (p *Poller) SetInterval(d time.Duration) {
	for {
		select {
		case p.rearm <- d:
			return
		default:
			select {
			case <-p.rearm:
			default:
			}
		}
	}
}

func (p *Poller) loop(ctx context.Context) {
	defer p.wg.Done()

	timer := time.NewTimer(p.engine.Interval())
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case d := <-p.rearm:
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(d)
		case <-timer.C:
			p.engine.Tick(ctx)
			timer.Reset(p.engine.Interval())
		}
	}
}
