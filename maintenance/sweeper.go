// Package maintenance closes out sessions the user abandoned mid-flow.
// The sweeper finds paused sessions past the pause timeout, summarises
// them, and moves them to auto-summarised; sessions whose summarisation
// keeps failing park in pending-auto-summary and are retried every pass.
package maintenance

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"time"

	"github.com/aeobrien/colloquy/sessionstate"
	"github.com/aeobrien/colloquy/storage"
	"github.com/aeobrien/colloquy/summary"
)

// Default sweeper configuration values
const (
	DefaultPauseTimeout  = 24 * time.Hour
	DefaultMaxAttempts   = 3
	DefaultSweepInterval = 1 * time.Hour
)

// SummaryGenerator produces and persists a session summary.
// *summary.Generator satisfies it.
type SummaryGenerator interface {
	Generate(ctx context.Context, session *storage.Session, status storage.CompletionStatus) (*storage.Summary, error)
}

// SweeperConfig holds configuration for the sweeper.
type SweeperConfig struct {
	// PauseTimeout is how long a paused session may sit idle before it is
	// swept. Default: 24 hours
	PauseTimeout time.Duration

	// MaxAttempts is how many summarisation attempts one pass makes per
	// session before parking it for the next pass. Default: 3
	MaxAttempts int

	// Interval is how often the background loop sweeps, when Start is
	// used. Default: 1 hour
	Interval time.Duration

	// OnSessionSummarised is called for each session the sweep closed.
	OnSessionSummarised func(sessionID string)

	// OnError is called for each failure during a sweep.
	OnError func(err error)
}

// DefaultSweeperConfig returns the default sweeper configuration.
func DefaultSweeperConfig() *SweeperConfig {
	return &SweeperConfig{
		PauseTimeout: DefaultPauseTimeout,
		MaxAttempts:  DefaultMaxAttempts,
		Interval:     DefaultSweepInterval,
	}
}

// SweepResult holds the results of one sweep pass.
type SweepResult struct {
	// Eligible is the number of sessions the pass considered.
	Eligible int

	// Summarised is the number of sessions closed as auto-summarised.
	Summarised int

	// Parked is the number of sessions left in pending-auto-summary for
	// the next pass.
	Parked int

	// Errors contains the failures encountered during the pass.
	Errors []error
}

// MarshalJSON reports errors as their messages; error values otherwise
// marshal as empty objects.
func (r *SweepResult) MarshalJSON() ([]byte, error) {
	msgs := make([]string, len(r.Errors))
	for i, err := range r.Errors {
		msgs[i] = err.Error()
	}
	return json.Marshal(struct {
		Eligible   int      `json:"eligible"`
		Summarised int      `json:"summarised"`
		Parked     int      `json:"parked"`
		Errors     []string `json:"errors,omitempty"`
	}{r.Eligible, r.Summarised, r.Parked, msgs})
}

// Sweeper performs auto-summarisation passes. Each pass is independent;
// scheduling is the caller's policy, either by calling Sweep directly or
// through the optional Start loop.
type Sweeper struct {
	store     storage.Store
	generator SummaryGenerator
	config    *SweeperConfig

	started atomic.Bool
	done    chan struct{}
	cancel  context.CancelFunc
}

// NewSweeper creates a new sweeper.
func NewSweeper(store storage.Store, generator SummaryGenerator, config *SweeperConfig) *Sweeper {
	if config == nil {
		config = DefaultSweeperConfig()
	} else {
		if config.PauseTimeout == 0 {
			config.PauseTimeout = DefaultPauseTimeout
		}
		if config.MaxAttempts == 0 {
			config.MaxAttempts = DefaultMaxAttempts
		}
		if config.Interval == 0 {
			config.Interval = DefaultSweepInterval
		}
	}

	return &Sweeper{
		store:     store,
		generator: generator,
		config:    config,
	}
}

// Sweep performs one pass. Eligible sessions are paused sessions idle
// longer than the pause timeout, plus everything already parked in
// pending-auto-summary regardless of age. A pass with nothing eligible
// performs no writes.
func (s *Sweeper) Sweep(ctx context.Context) *SweepResult {
	result := &SweepResult{}

	timedOut, err := s.store.SessionsPausedBefore(ctx, time.Now().Add(-s.config.PauseTimeout))
	if err != nil {
		result.Errors = append(result.Errors, err)
		s.reportErrors(result)
		return result
	}
	parked, err := s.store.SessionsByStatus(ctx, sessionstate.StatusPendingAutoSummary)
	if err != nil {
		result.Errors = append(result.Errors, err)
		s.reportErrors(result)
		return result
	}

	eligible := append(timedOut, parked...)
	result.Eligible = len(eligible)

	for _, session := range eligible {
		if err := s.sweepSession(ctx, session, result); err != nil {
			result.Errors = append(result.Errors, err)
		}
	}

	s.reportErrors(result)
	return result
}

// sweepSession tries to close one session, retrying summarisation up to
// MaxAttempts before parking it.
func (s *Sweeper) sweepSession(ctx context.Context, session *storage.Session, result *SweepResult) error {
	var lastErr error
	for attempt := 0; attempt < s.config.MaxAttempts; attempt++ {
		_, lastErr = s.generator.Generate(ctx, session, storage.CompletionAutoSummarised)
		if lastErr == nil {
			break
		}
		// An empty transcript cannot become summarisable by retrying.
		if errors.Is(lastErr, summary.ErrNoMessages) {
			break
		}
	}

	if lastErr != nil {
		if err := s.park(ctx, session); err != nil {
			return err
		}
		result.Parked++
		return lastErr
	}

	session.Status = sessionstate.StatusAutoSummarised
	now := time.Now()
	session.CompletedAt = &now
	if err := s.store.UpdateSession(ctx, session); err != nil {
		return err
	}
	result.Summarised++
	if s.config.OnSessionSummarised != nil {
		s.config.OnSessionSummarised(session.ID)
	}
	return nil
}

// park moves a session to pending-auto-summary. Idempotent: a session
// already parked is left untouched.
func (s *Sweeper) park(ctx context.Context, session *storage.Session) error {
	if session.Status == sessionstate.StatusPendingAutoSummary {
		return nil
	}
	session.Status = sessionstate.StatusPendingAutoSummary
	return s.store.UpdateSession(ctx, session)
}

func (s *Sweeper) reportErrors(result *SweepResult) {
	if s.config.OnError == nil {
		return
	}
	for _, err := range result.Errors {
		s.config.OnError(err)
	}
}

// Start begins the background sweep loop.
// It returns immediately and sweeps on the configured interval.
func (s *Sweeper) Start(ctx context.Context) error {
	if !s.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}

	s.done = make(chan struct{})
	ctx, s.cancel = context.WithCancel(ctx)
	go s.run(ctx)

	return nil
}

// Stop stops the sweep loop.
func (s *Sweeper) Stop(ctx context.Context) error {
	if !s.started.Load() {
		return ErrNotStarted
	}

	s.cancel()
	<-s.done

	s.started.Store(false)
	return nil
}

// IsRunning returns true if the background loop is active.
func (s *Sweeper) IsRunning() bool {
	return s.started.Load()
}

// run is the main sweep loop.
func (s *Sweeper) run(ctx context.Context) {
	defer close(s.done)

	// Sweep immediately on start
	s.Sweep(ctx)

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}
