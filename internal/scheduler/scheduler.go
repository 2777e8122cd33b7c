package scheduler

import (
	"fmt"
	"sync"
	"time"
)

// CycleFunc runs one trade cycle for a pair. The scheduler guarantees at
// most one armed timer per pair; overlap protection comes from arming only
// after the previous cycle completes (plus the cycle's own defensive
// pre-arm).
type CycleFunc func(pair string)

// Scheduler fires trade cycles at requested instants, one timer per pair.
type Scheduler struct {
	run CycleFunc
	now func() time.Time

	mu      sync.Mutex
	running bool
	timers  map[string]*time.Timer
}

func New(run CycleFunc) *Scheduler {
	return &Scheduler{
		run:    run,
		now:    time.Now,
		timers: make(map[string]*time.Timer),
	}
}

func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		fmt.Println("[SCHEDULER] Already running")
		return
	}
	s.running = true
	fmt.Println("[SCHEDULER] Started")
}

// Stop cancels every armed timer. Cycles already in flight run to completion.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	for pair, timer := range s.timers {
		timer.Stop()
		delete(s.timers, pair)
	}
	s.running = false
	fmt.Println("[SCHEDULER] Stopped")
}

func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// ArmAt schedules a cycle for the pair at or after the given instant,
// replacing any timer already armed for it.
func (s *Scheduler) ArmAt(pair string, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	if timer, ok := s.timers[pair]; ok {
		timer.Stop()
	}

	delay := at.Sub(s.now())
	if delay < 0 {
		delay = 0
	}
	s.timers[pair] = time.AfterFunc(delay, func() {
		s.fire(pair)
	})
	fmt.Printf("[SCHEDULER] %s armed for %s (in %s)\n",
		pair, at.UTC().Format(time.RFC3339), delay.Round(time.Second))
}

// Cancel disarms the pair's timer, if any. A cycle already started is not
// interrupted.
func (s *Scheduler) Cancel(pair string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if timer, ok := s.timers[pair]; ok {
		timer.Stop()
		delete(s.timers, pair)
		fmt.Printf("[SCHEDULER] %s disarmed\n", pair)
	}
}

// Armed reports whether a timer is outstanding for the pair.
func (s *Scheduler) Armed(pair string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.timers[pair]
	return ok
}

func (s *Scheduler) fire(pair string) {
	s.mu.Lock()
	delete(s.timers, pair)
	running := s.running
	s.mu.Unlock()
	if !running {
		return
	}
	s.run(pair)
}
