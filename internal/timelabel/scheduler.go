package timelabel

import (
	"sync"
	"time"

	klog "kasa/internal/log"
)

// Scheduler drives a self-perpetuating single-timer refresh loop. Each tick
// calls refresh and then schedules the next tick at the earliest instant a
// visible label changes, as computed by NextRefresh.
type Scheduler struct {
	clock      Clock
	timestamps func() []time.Time
	refresh    func(now time.Time)
	log        *klog.Logger

	mu      sync.Mutex
	running bool
	paused  bool
	timer   Timer
	gen     uint64
	nextAt  time.Time
}

// NewScheduler creates a stopped scheduler. timestamps reports the currently
// visible notification timestamps; refresh re-renders labels at now.
func NewScheduler(clock Clock, timestamps func() []time.Time, refresh func(now time.Time)) *Scheduler {
	if clock == nil {
		clock = SystemClock()
	}
	if timestamps == nil {
		timestamps = func() []time.Time { return nil }
	}
	if refresh == nil {
		refresh = func(time.Time) {}
	}
	return &Scheduler{
		clock:      clock,
		timestamps: timestamps,
		refresh:    refresh,
		log:        klog.For(klog.ComponentScheduler),
	}
}

// Start begins the loop with an immediate evaluation. Starting a running scheduler is a no-op.
func (s *Scheduler) Start() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.paused = false
	gen := s.bumpLocked()
	s.mu.Unlock()

	s.log.Debug("Label scheduler started")
	s.tick(gen)
}

// Stop cancels any pending tick unconditionally.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = false
	s.paused = false
	s.bumpLocked()
	s.log.Debug("Label scheduler stopped")
}

// Pause cancels the pending tick while keeping the scheduler started,
// used when the page is hidden.
func (s *Scheduler) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running || s.paused {
		return
	}
	s.paused = true
	s.bumpLocked()
}

// Resume re-evaluates immediately and reschedules after a Pause.
func (s *Scheduler) Resume() {
	s.mu.Lock()
	if !s.running || !s.paused {
		s.mu.Unlock()
		return
	}
	s.paused = false
	gen := s.bumpLocked()
	s.mu.Unlock()
	s.tick(gen)
}

// Reschedule forces an immediate re-evaluation, for example after new
// notifications arrived. It does nothing while stopped or paused.
func (s *Scheduler) Reschedule() {
	s.mu.Lock()
	if !s.running || s.paused {
		s.mu.Unlock()
		return
	}
	gen := s.bumpLocked()
	s.mu.Unlock()
	s.tick(gen)
}

func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Scheduler) Paused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.paused
}

// NextAt returns when the pending tick fires, if one is pending.
func (s *Scheduler) NextAt() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer == nil {
		return time.Time{}, false
	}
	return s.nextAt, true
}

// bumpLocked cancels the pending timer and invalidates ticks already in flight.
func (s *Scheduler) bumpLocked() uint64 {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.gen++
	return s.gen
}

func (s *Scheduler) current(gen uint64) bool {
	return s.running && !s.paused && s.gen == gen
}

func (s *Scheduler) tick(gen uint64) {
	s.mu.Lock()
	if !s.current(gen) {
		s.mu.Unlock()
		return
	}
	s.timer = nil
	s.mu.Unlock()

	now := s.clock.Now()
	s.refresh(now)
	wait := NextRefresh(now, s.timestamps())

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.current(gen) {
		return
	}
	s.nextAt = now.Add(wait)
	s.timer = s.clock.AfterFunc(wait, func() { s.tick(gen) })
}
