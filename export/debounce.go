package export

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Scheduler coalesces bursts of definition touches into a single promotion
// per definition after a quiet period.
//
// Push marks the definition scheduled (persisted immediately), then starts
// the quiet-period wait. A second Push for the same identity restarts the
// wait; at most one wait is ever pending per identity. When the wait elapses
// uncancelled, the identity is promoted to the run executor.
//
// Pause policy: queue-and-fire-on-resume. While paused, pushes still record
// intent and their timers run; a wait that elapses while paused is retained
// as ripe and promoted immediately on Resume. Pause and Resume are
// idempotent.
type Scheduler struct {
	delay   time.Duration
	defs    *Store
	promote func(id string)
	logger  *zap.SugaredLogger

	mu      sync.Mutex
	pending map[string]*debounceEntry
	ripe    map[string]bool
	paused  bool
}

type debounceEntry struct {
	timer     *time.Timer
	cancelled bool
}

// NewScheduler creates a debounce scheduler. promote is invoked outside the
// scheduler's lock once a quiet period elapses; it must be safe for
// concurrent calls with distinct identities.
func NewScheduler(delay time.Duration, defs *Store, promote func(id string), logger *zap.SugaredLogger) *Scheduler {
	return &Scheduler{
		delay:   delay,
		defs:    defs,
		promote: promote,
		logger:  logger,
		pending: make(map[string]*debounceEntry),
		ripe:    make(map[string]bool),
	}
}

// Push schedules (or reschedules) a quiet-period wait for the identity.
// The definition's status is set to scheduled and persisted before the wait
// starts so external observers see the pending work.
func (s *Scheduler) Push(id string) error {
	if err := s.defs.MarkStatus(id, StatusScheduled); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.pending[id]; ok {
		// Restart, not enqueue-twice: the stale wait is cancelled
		existing.cancelled = true
		existing.timer.Stop()
	}
	delete(s.ripe, id)

	entry := &debounceEntry{}
	entry.timer = time.AfterFunc(s.delay, func() {
		s.fire(id, entry)
	})
	s.pending[id] = entry

	s.logger.Debugw("Debounce wait started", "definition_id", id, "delay", s.delay)
	return nil
}

// fire runs when an entry's quiet period elapses.
func (s *Scheduler) fire(id string, entry *debounceEntry) {
	s.mu.Lock()
	if entry.cancelled || s.pending[id] != entry {
		// Cancelled, or superseded by a newer push
		s.mu.Unlock()
		return
	}
	delete(s.pending, id)

	if s.paused {
		// Retain intent; Resume promotes ripe entries
		s.ripe[id] = true
		s.mu.Unlock()
		s.logger.Debugw("Debounce elapsed while paused, retained", "definition_id", id)
		return
	}
	s.mu.Unlock()

	s.logger.Debugw("Debounce elapsed, promoting", "definition_id", id)
	s.promote(id)
}

// Cancel aborts any pending wait for the identity. The definition's status
// is left as last set. Cancelling an identity with no pending wait is a
// no-op.
func (s *Scheduler) Cancel(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry, ok := s.pending[id]; ok {
		entry.cancelled = true
		entry.timer.Stop()
		delete(s.pending, id)
		s.logger.Debugw("Debounce wait cancelled", "definition_id", id)
	}
	delete(s.ripe, id)
}

// Pause stops promotions. Idempotent.
func (s *Scheduler) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.paused {
		return
	}
	s.paused = true
	s.logger.Infow("Scheduler paused")
}

// Resume re-enables promotions and immediately promotes every wait that
// elapsed while paused. Idempotent.
func (s *Scheduler) Resume() {
	s.mu.Lock()
	if !s.paused {
		s.mu.Unlock()
		return
	}
	s.paused = false
	ripe := make([]string, 0, len(s.ripe))
	for id := range s.ripe {
		ripe = append(ripe, id)
	}
	s.ripe = make(map[string]bool)
	s.mu.Unlock()

	s.logger.Infow("Scheduler resumed", "ripe", len(ripe))
	for _, id := range ripe {
		s.promote(id)
	}
}

// Paused reports whether promotions are currently gated.
func (s *Scheduler) Paused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.paused
}

// PendingCount returns the number of live waits. Primarily for tests.
func (s *Scheduler) PendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Shutdown cancels every pending wait.
func (s *Scheduler) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, entry := range s.pending {
		entry.cancelled = true
		entry.timer.Stop()
		delete(s.pending, id)
	}
	s.ripe = make(map[string]bool)
}
