package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/andreashuber69/smart-trade-sub000/internal/models"
)

// Service owns the engines for all configured pairs and implements the
// enable/disable control. Cycle dispatch goes through here so the REST API
// and the scheduler share one entry point.
type Service struct {
	store    StateStore
	armer    Armer
	grace    time.Duration
	minRetry time.Duration
	now      func() time.Time

	mu      sync.Mutex
	engines map[string]*Engine
}

func NewService(store StateStore, armer Armer, grace, minRetry time.Duration) *Service {
	return &Service{
		store:    store,
		armer:    armer,
		grace:    grace,
		minRetry: minRetry,
		now:      time.Now,
		engines:  make(map[string]*Engine),
	}
}

func (s *Service) Register(e *Engine) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.engines[e.Pair()] = e
}

// Pairs lists the registered pair symbols.
func (s *Service) Pairs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.engines))
	for pair := range s.engines {
		out = append(out, pair)
	}
	return out
}

// RunCycle dispatches one cycle for the pair. The returned error is non-nil
// only for unexpected failures; the pair has already been disabled by then.
func (s *Service) RunCycle(ctx context.Context, pair string) error {
	s.mu.Lock()
	e, ok := s.engines[pair]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("no engine registered for pair %q", pair)
	}
	return e.RunCycle(ctx)
}

// Enable turns trading on for the pair. Re-enabling mid-period starts a
// fresh section at the current instant rather than waiting for a new
// deposit; the first cycle runs after a short grace so the caller's own
// request completes first.
func (s *Service) Enable(ctx context.Context, pair string) error {
	s.mu.Lock()
	_, registered := s.engines[pair]
	s.mu.Unlock()
	if !registered {
		return fmt.Errorf("no engine registered for pair %q", pair)
	}

	state, err := s.store.Get(ctx, pair)
	if err != nil {
		return fmt.Errorf("load state for %s: %w", pair, err)
	}
	if state == nil {
		state = &models.TradeState{Pair: pair}
	}
	if state.Enabled() {
		return nil
	}

	now := s.now()
	if state.Period.IsSet() && state.Period.PeriodEnd.After(now) {
		state.Period.SectionStart = now
	}
	state.RetryIntervalMs = s.minRetry.Milliseconds()
	state.NextTradeTime = now.Add(s.grace)
	state.LastStatus = "enabled"
	state.UpdatedAt = now

	if err := s.store.Save(ctx, state); err != nil {
		return fmt.Errorf("persist state for %s: %w", pair, err)
	}
	s.armer.ArmAt(pair, state.NextTradeTime)
	fmt.Printf("[SERVICE] %s enabled, first cycle at %s\n", pair, state.NextTradeTime.UTC().Format(time.RFC3339))
	return nil
}

// Disable cancels future cycles for the pair. Everything else in the
// persisted state stays put so a later re-enable resumes mid-period. A cycle
// already running is not interrupted.
func (s *Service) Disable(ctx context.Context, pair string) error {
	s.armer.Cancel(pair)

	state, err := s.store.Get(ctx, pair)
	if err != nil {
		return fmt.Errorf("load state for %s: %w", pair, err)
	}
	if state == nil || !state.Enabled() {
		return nil
	}
	state.NextTradeTime = time.Time{}
	state.LastStatus = "disabled"
	state.UpdatedAt = s.now()
	if err := s.store.Save(ctx, state); err != nil {
		return fmt.Errorf("persist state for %s: %w", pair, err)
	}
	fmt.Printf("[SERVICE] %s disabled\n", pair)
	return nil
}

// State returns the persisted state for one pair, nil when the pair has
// never traded.
func (s *Service) State(ctx context.Context, pair string) (*models.TradeState, error) {
	s.mu.Lock()
	_, registered := s.engines[pair]
	s.mu.Unlock()
	if !registered {
		return nil, fmt.Errorf("no engine registered for pair %q", pair)
	}
	return s.store.Get(ctx, pair)
}

// Restore re-arms every enabled pair after a restart. Pairs whose wake-up
// already passed while the process was down fire after the grace delay.
func (s *Service) Restore(ctx context.Context) error {
	states, err := s.store.List(ctx)
	if err != nil {
		return fmt.Errorf("list trade states: %w", err)
	}

	earliest := s.now().Add(s.grace)
	restored := 0
	for _, state := range states {
		if !state.Enabled() {
			continue
		}
		s.mu.Lock()
		_, registered := s.engines[state.Pair]
		s.mu.Unlock()
		if !registered {
			fmt.Printf("[SERVICE] %s enabled in storage but not configured, leaving untouched\n", state.Pair)
			continue
		}
		at := state.NextTradeTime
		if at.Before(earliest) {
			at = earliest
		}
		s.armer.ArmAt(state.Pair, at)
		restored++
	}
	fmt.Printf("[SERVICE] Restored %d enabled pair(s)\n", restored)
	return nil
}
