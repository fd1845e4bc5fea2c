package playback

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"guildq/internal/metrics"
	"guildq/internal/registry"
)

// ErrDispatcherClosed is returned by Shutdown when called twice.
var ErrDispatcherClosed = errors.New("dispatcher is closed")

// Dispatcher runs one drain worker per guild with queued items.
// A worker exits as soon as its guild's queue is empty; Wake starts it again.
type Dispatcher struct {
	registry    *registry.Registry
	preparer    Preparer
	speaker     Speaker
	itemTimeout time.Duration
	logger      *slog.Logger

	mu      sync.Mutex
	workers map[uint64]*worker
	closed  bool
	wg      sync.WaitGroup
}

// worker is a guild's entry in the worker table. A stopped worker keeps its
// entry until its goroutine exits, so a guild never has two goroutines.
type worker struct {
	cancel context.CancelFunc

	// stopping is set once the worker has been cancelled.
	stopping bool

	// restart is set by a Wake that arrived while stopping.
	restart bool
}

// NewDispatcher creates a dispatcher. A nil preparer speaks items as
// queued. itemTimeout <= 0 disables the per-item deadline.
func NewDispatcher(reg *registry.Registry, preparer Preparer, speaker Speaker, itemTimeout time.Duration, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		registry:    reg,
		preparer:    preparer,
		speaker:     speaker,
		itemTimeout: itemTimeout,
		logger:      logger,
		workers:     make(map[uint64]*worker),
	}
}

// Wake makes sure a worker is draining the guild's queue.
// Call it after every enqueue.
func (d *Dispatcher) Wake(guildID uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return
	}
	if w, exists := d.workers[guildID]; exists {
		if w.stopping {
			w.restart = true
		}
		return
	}
	d.startLocked(guildID)
}

func (d *Dispatcher) startLocked(guildID uint64) {
	ctx, cancel := context.WithCancel(context.Background())
	w := &worker{cancel: cancel}
	d.workers[guildID] = w
	metrics.ActiveWorkers.Set(float64(len(d.workers)))

	d.wg.Add(1)
	go d.run(ctx, guildID, w)
}

// Stop cancels the guild's worker, interrupting the item being spoken.
// Items still queued stay queued; a later Wake starts a fresh worker once
// the cancelled one has exited.
func (d *Dispatcher) Stop(guildID uint64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.stopLocked(guildID)
}

func (d *Dispatcher) stopLocked(guildID uint64) bool {
	w, exists := d.workers[guildID]
	if !exists || w.stopping {
		return false
	}
	w.stopping = true
	w.cancel()
	return true
}

// Skip clears the guild's queue and interrupts the item being spoken.
func (d *Dispatcher) Skip(guildID uint64) {
	d.Clear(guildID, "skip")
}

// Clear drops the guild's queue and stops its worker. reason labels the
// clear in metrics. Items enqueued after Clear returns are kept and are
// picked up by the next Wake.
func (d *Dispatcher) Clear(guildID uint64, reason string) {
	d.mu.Lock()
	d.registry.Clear(guildID)
	stopped := d.stopLocked(guildID)
	d.mu.Unlock()

	metrics.QueueClearsTotal.WithLabelValues(reason).Inc()
	metrics.QueueDepth.Set(float64(d.registry.Total()))
	metrics.QueuedGuilds.Set(float64(len(d.registry.Guilds())))

	d.logger.Debug("guild queue cleared",
		"guild_id", guildID,
		"reason", reason,
		"worker_stopped", stopped,
	)
}

// Running reports whether the guild has a worker that is not stopping.
func (d *Dispatcher) Running(guildID uint64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	w, exists := d.workers[guildID]
	return exists && !w.stopping
}

// Active returns the number of worker goroutines, stopping ones included.
func (d *Dispatcher) Active() int {
	d.mu.Lock()
	defer d.mu.Unlock()

	return len(d.workers)
}

// Shutdown cancels every worker and waits for them to exit or ctx to expire.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return ErrDispatcherClosed
	}
	d.closed = true
	for _, w := range d.workers {
		w.stopping = true
		w.cancel()
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) run(ctx context.Context, guildID uint64, w *worker) {
	defer d.wg.Done()
	defer w.cancel()

	d.logger.Debug("playback worker started", "guild_id", guildID)

	for {
		item, ok := d.next(ctx, guildID, w)
		if !ok {
			return
		}

		metrics.ItemsDequeuedTotal.WithLabelValues("playback").Inc()
		metrics.QueueDepth.Set(float64(d.registry.Total()))

		d.speak(ctx, guildID, item)
	}
}

// next dequeues the guild's next item while w still owns the guild. When
// w is stopping or the queue is empty it removes w from the table and
// returns false. Both happen under d.mu, so a concurrent Wake either sees
// w and its item gets dequeued here, or sees no entry and starts a new
// worker.
func (d *Dispatcher) next(ctx context.Context, guildID uint64, w *worker) (registry.Item, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	stopped := w.stopping || ctx.Err() != nil || d.workers[guildID] != w
	if !stopped {
		if item, ok := d.registry.Dequeue(guildID); ok {
			return item, true
		}
	}

	if d.workers[guildID] == w {
		delete(d.workers, guildID)
		if w.restart && !d.closed {
			d.startLocked(guildID)
		}
		metrics.ActiveWorkers.Set(float64(len(d.workers)))
	}

	if stopped {
		d.logger.Debug("playback worker stopped", "guild_id", guildID, "restarted", w.restart && !d.closed)
	} else {
		d.logger.Debug("playback worker drained", "guild_id", guildID)
	}
	return registry.Item{}, false
}

func (d *Dispatcher) speak(ctx context.Context, guildID uint64, item registry.Item) {
	speakCtx := ctx
	if d.itemTimeout > 0 {
		var cancel context.CancelFunc
		speakCtx, cancel = context.WithTimeout(ctx, d.itemTimeout)
		defer cancel()
	}

	start := time.Now()
	u := d.prepare(speakCtx, guildID, item)
	err := d.speaker.Speak(speakCtx, guildID, u)
	metrics.SpeakLatency.Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.ItemsSpokenTotal.WithLabelValues("failure").Inc()
		if ctx.Err() != nil {
			// stopped by skip or shutdown
			return
		}
		d.logger.Error("failed to speak item",
			"guild_id", guildID,
			"speaker_id", u.SpeakerID,
			"error", err,
		)
		return
	}
	metrics.ItemsSpokenTotal.WithLabelValues("success").Inc()
}

// prepare falls back to the item as queued when settings cannot be loaded.
func (d *Dispatcher) prepare(ctx context.Context, guildID uint64, item registry.Item) Utterance {
	if d.preparer == nil {
		return plainUtterance(item)
	}
	u, err := d.preparer.Prepare(ctx, guildID, item)
	if err != nil {
		d.logger.Warn("failed to prepare item, speaking it unmodified",
			"guild_id", guildID,
			"error", err,
		)
		return plainUtterance(item)
	}
	return u
}
