// Package scheduler triggers acquisition cycles on an interval,
// serializes them, and guards each provider behind a circuit breaker
// and a per-provider timeout.
package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/niananto/online-news-scrapers/internal/domain"
)

// ErrCycleInProgress is returned by TriggerNow while a cycle is
// already running. Interval ticks arriving in that state are ignored
// silently.
var ErrCycleInProgress = errors.New("acquisition cycle already in progress")

// Ingestor runs one provider's acquisition and reports its stats.
type Ingestor interface {
	Providers() []string
	IngestProvider(ctx context.Context, name string) (domain.ProviderStats, error)
}

// RunStore persists completed cycles.
type RunStore interface {
	Insert(ctx context.Context, run *domain.RunRecord) error
}

type Config struct {
	Interval         time.Duration
	Jitter           time.Duration
	ProviderTimeout  time.Duration
	BreakerThreshold int
	BreakerCoolDown  time.Duration
}

type Scheduler struct {
	ingestor Ingestor
	runs     RunStore
	breaker  *Breaker
	cfg      Config
	logger   *slog.Logger

	running atomic.Bool

	mu      sync.Mutex
	lastRun *domain.RunRecord
}

func NewScheduler(ingestor Ingestor, runs RunStore, cfg Config, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		ingestor: ingestor,
		runs:     runs,
		breaker:  NewBreaker(cfg.BreakerThreshold, cfg.BreakerCoolDown),
		cfg:      cfg,
		logger:   logger,
	}
}

// Run blocks until ctx is cancelled, firing one cycle immediately and
// then one per interval tick. A tick that arrives while a cycle is
// still running is dropped; missed ticks coalesce into at most one
// pending cycle.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info("scheduler started",
		"interval", s.cfg.Interval,
		"providers", len(s.ingestor.Providers()),
	)

	s.tryCycle(ctx, "interval")

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return ctx.Err()
		case <-ticker.C:
			s.tryCycle(ctx, "interval")
		}
	}
}

// TriggerNow runs a cycle on the caller's behalf, unless one is
// already running.
func (s *Scheduler) TriggerNow(ctx context.Context) (*domain.RunRecord, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, ErrCycleInProgress
	}
	defer s.running.Store(false)
	return s.runCycle(ctx, "manual"), nil
}

// LastRun returns the most recently completed cycle, or nil.
func (s *Scheduler) LastRun() *domain.RunRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRun
}

// BreakerStatuses exposes circuit state for the control surface.
func (s *Scheduler) BreakerStatuses() []BreakerStatus {
	return s.breaker.Statuses()
}

// ResetBreakers closes all circuits.
func (s *Scheduler) ResetBreakers() {
	s.breaker.Reset()
	s.logger.Info("circuit breakers reset")
}

func (s *Scheduler) tryCycle(ctx context.Context, trigger string) {
	if !s.running.CompareAndSwap(false, true) {
		s.logger.Warn("previous cycle still running, skipping trigger", "trigger", trigger)
		return
	}
	defer s.running.Store(false)
	s.runCycle(ctx, trigger)
}

// runCycle iterates providers sequentially. Cancellation stops the
// cycle between providers; the in-flight provider finishes or hits its
// own timeout rather than being cut off mid-write.
func (s *Scheduler) runCycle(ctx context.Context, trigger string) *domain.RunRecord {
	run := &domain.RunRecord{
		Trigger:     trigger,
		TriggeredAt: time.Now().UTC(),
	}

	s.logger.Info("starting acquisition cycle", "trigger", trigger)

	for _, name := range s.ingestor.Providers() {
		if ctx.Err() != nil {
			s.logger.Warn("cycle aborted", "reason", ctx.Err())
			break
		}

		if !s.breaker.Allow(name) {
			s.logger.Warn("circuit open, skipping provider", "provider", name)
			run.Providers = append(run.Providers, domain.ProviderStats{
				Provider: name,
				Skipped:  true,
				Err:      domain.ErrCircuitOpen.Error(),
			})
			continue
		}

		if s.cfg.Jitter > 0 {
			delay := rand.N(s.cfg.Jitter)
			select {
			case <-ctx.Done():
			case <-time.After(delay):
			}
			// Cancellation during the stagger wait must not start the
			// provider on the detached context below.
			if ctx.Err() != nil {
				s.logger.Warn("cycle aborted", "reason", ctx.Err())
				break
			}
		}

		providerCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.ProviderTimeout)
		stats, err := s.ingestor.IngestProvider(providerCtx, name)
		cancel()

		if err != nil {
			s.breaker.Failure(name)
			s.logger.Error("provider cycle failed", "provider", name, "error", err)
		} else {
			s.breaker.Success(name)
		}

		run.Providers = append(run.Providers, stats)
	}

	run.CompletedAt = time.Now().UTC()

	if s.runs != nil {
		storeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		if err := s.runs.Insert(storeCtx, run); err != nil {
			s.logger.Error("failed to persist run record", "error", err)
		}
		cancel()
	}

	s.mu.Lock()
	s.lastRun = run
	s.mu.Unlock()

	totals := run.Totals()
	s.logger.Info("acquisition cycle complete",
		"trigger", trigger,
		"providers", len(run.Providers),
		"fetched", totals.Fetched,
		"inserted", totals.Inserted,
		"duplicates", totals.Duplicates,
		"errors", totals.Errors,
		"duration", run.CompletedAt.Sub(run.TriggeredAt),
	)

	return run
}
