package session

import (
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorhill/cronexpr"
)

// Sweeper removes expired sessions and reports how many went.
type Sweeper interface {
	Sweep(now time.Time) int
}

// Janitor runs Sweep on a cron schedule until stopped.
type Janitor struct {
	store  Sweeper
	expr   *cronexpr.Expression
	logger *log.Logger
	now    func() time.Time

	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
	started  atomic.Bool
}

func NewJanitor(store Sweeper, schedule string, logger *log.Logger) (*Janitor, error) {
	expr, err := cronexpr.Parse(schedule)
	if err != nil {
		return nil, fmt.Errorf("session.sweep_schedule %q: %w", schedule, err)
	}
	return &Janitor{
		store:  store,
		expr:   expr,
		logger: logger,
		now:    time.Now,
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}, nil
}

func (j *Janitor) Start() {
	if !j.started.CompareAndSwap(false, true) {
		return
	}
	go func() {
		defer close(j.done)
		for {
			now := j.now()
			next := j.expr.Next(now)
			if next.IsZero() {
				return
			}
			timer := time.NewTimer(next.Sub(now))
			select {
			case <-j.stop:
				timer.Stop()
				return
			case <-timer.C:
				j.tick()
			}
		}
	}()
}

func (j *Janitor) tick() {
	if n := j.store.Sweep(j.now()); n > 0 && j.logger != nil {
		j.logger.Printf("janitor evicted %d idle sessions", n)
	}
}

// Stop ends the loop and waits for a running sweep to finish. Safe to call twice.
func (j *Janitor) Stop() {
	j.stopOnce.Do(func() { close(j.stop) })
	if j.started.Load() {
		<-j.done
	}
}
