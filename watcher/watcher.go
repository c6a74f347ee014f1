// Package watcher debounces single-page-app navigations into extraction
// runs.
package watcher

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/use-agent/ingestor/models"
)

// DefaultDelay lets a client-side navigation finish rendering before the
// page is extracted.
const DefaultDelay = 5000 * time.Millisecond

// RunFunc performs one extraction. address is the address that armed the
// timer; the run itself may read a newer one.
type RunFunc func(ctx context.Context, address string)

// Watcher owns the last seen address and the pending timer. Only the
// goroutine running Watch mutates them.
type Watcher struct {
	delay time.Duration
	run   RunFunc

	mu    sync.Mutex
	state models.NavigationState
}

// New creates a Watcher. A non-positive delay selects DefaultDelay.
func New(delay time.Duration, run RunFunc) *Watcher {
	if delay <= 0 {
		delay = DefaultDelay
	}
	return &Watcher{
		delay: delay,
		run:   run,
		state: models.NavigationState{Phase: models.NavIdle},
	}
}

// Delay returns the debounce interval.
func (w *Watcher) Delay() time.Duration { return w.delay }

// State returns the current navigation state.
func (w *Watcher) State() models.NavigationState {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Watch schedules a run for initial and then one debounced run per burst
// of address changes read from mutations, each carrying the address at
// the time of a DOM mutation batch. It returns nil when mutations is
// closed and ctx.Err() when ctx is cancelled, after in-flight runs finish.
func (w *Watcher) Watch(ctx context.Context, initial string, mutations <-chan string) error {
	var wg sync.WaitGroup
	defer wg.Wait()

	last := initial
	timer := time.NewTimer(w.delay)
	defer timer.Stop()
	armed := true
	w.schedule(last)

	for {
		var fire <-chan time.Time
		if armed {
			fire = timer.C
		}

		select {
		case <-ctx.Done():
			w.idle(false)
			return ctx.Err()

		case addr, ok := <-mutations:
			if !ok {
				w.idle(false)
				return nil
			}
			if addr == last {
				continue
			}
			slog.Debug("navigation detected", "from", last, "to", addr)
			last = addr
			timer.Reset(w.delay)
			armed = true
			w.schedule(last)

		case <-fire:
			armed = false
			w.idle(true)
			address := last
			wg.Add(1)
			go func() {
				defer wg.Done()
				w.run(ctx, address)
			}()
		}
	}
}

func (w *Watcher) schedule(address string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.state.Phase = models.NavPending
	w.state.Address = address
	w.state.ScheduledAt = time.Now().Add(w.delay)
}

func (w *Watcher) idle(fired bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.state.Phase = models.NavIdle
	w.state.ScheduledAt = time.Time{}
	if fired {
		w.state.Runs++
	}
}
