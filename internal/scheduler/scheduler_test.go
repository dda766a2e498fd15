package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/niananto/online-news-scrapers/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

// fakeIngestor counts invocations per provider and fails the ones
// listed in failing.
type fakeIngestor struct {
	mu        sync.Mutex
	providers []string
	calls     map[string]int
	failing   map[string]bool
	block     chan struct{} // when set, IngestProvider waits on it
}

func newFakeIngestor(providers ...string) *fakeIngestor {
	return &fakeIngestor{
		providers: providers,
		calls:     make(map[string]int),
		failing:   make(map[string]bool),
	}
}

func (f *fakeIngestor) Providers() []string { return f.providers }

func (f *fakeIngestor) IngestProvider(_ context.Context, name string) (domain.ProviderStats, error) {
	f.mu.Lock()
	f.calls[name]++
	failing := f.failing[name]
	block := f.block
	f.mu.Unlock()

	if block != nil {
		<-block
	}
	if failing {
		return domain.ProviderStats{Provider: name, Errors: 1}, errors.New("provider down")
	}
	return domain.ProviderStats{Provider: name, Fetched: 2, Inserted: 2}, nil
}

func (f *fakeIngestor) callCount(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

type memRunStore struct {
	mu   sync.Mutex
	runs []*domain.RunRecord
}

func (m *memRunStore) Insert(_ context.Context, run *domain.RunRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs = append(m.runs, run)
	return nil
}

func testConfig(threshold int) Config {
	return Config{
		Interval:         time.Hour,
		Jitter:           0,
		ProviderTimeout:  time.Second,
		BreakerThreshold: threshold,
		BreakerCoolDown:  0, // manual reset only in tests
	}
}

func TestTriggerNow_RunsAllProviders(t *testing.T) {
	ingestor := newFakeIngestor("alpha", "beta")
	runs := &memRunStore{}
	s := NewScheduler(ingestor, runs, testConfig(5), testLogger())

	run, err := s.TriggerNow(context.Background())
	require.NoError(t, err)
	require.NotNil(t, run)

	assert.Equal(t, 1, ingestor.callCount("alpha"))
	assert.Equal(t, 1, ingestor.callCount("beta"))
	assert.Equal(t, "manual", run.Trigger)
	assert.Len(t, run.Providers, 2)
	assert.Equal(t, 4, run.Totals().Inserted)
	assert.Len(t, runs.runs, 1)
	assert.Same(t, run, s.LastRun())
}

func TestTriggerNow_RejectedWhileRunning(t *testing.T) {
	ingestor := newFakeIngestor("alpha")
	ingestor.block = make(chan struct{})
	s := NewScheduler(ingestor, &memRunStore{}, testConfig(5), testLogger())

	done := make(chan struct{})
	go func() {
		_, _ = s.TriggerNow(context.Background())
		close(done)
	}()

	// Wait until the first cycle is inside the provider call.
	require.Eventually(t, func() bool {
		return ingestor.callCount("alpha") == 1
	}, time.Second, time.Millisecond)

	_, err := s.TriggerNow(context.Background())
	assert.ErrorIs(t, err, ErrCycleInProgress)

	close(ingestor.block)
	<-done
}

func TestScheduler_CircuitOpenSkipsProviderWithoutCalls(t *testing.T) {
	const threshold = 5
	ingestor := newFakeIngestor("flaky", "steady")
	ingestor.failing["flaky"] = true
	s := NewScheduler(ingestor, &memRunStore{}, testConfig(threshold), testLogger())

	for i := 0; i < threshold; i++ {
		_, err := s.TriggerNow(context.Background())
		require.NoError(t, err)
	}
	require.Equal(t, threshold, ingestor.callCount("flaky"))

	// The next cycle must not touch the provider at all.
	run, err := s.TriggerNow(context.Background())
	require.NoError(t, err)
	assert.Equal(t, threshold, ingestor.callCount("flaky"), "no attempt while open")
	assert.Equal(t, threshold+1, ingestor.callCount("steady"))

	var flakyStats *domain.ProviderStats
	for i := range run.Providers {
		if run.Providers[i].Provider == "flaky" {
			flakyStats = &run.Providers[i]
		}
	}
	require.NotNil(t, flakyStats)
	assert.True(t, flakyStats.Skipped)

	statuses := s.BreakerStatuses()
	require.Len(t, statuses, 1)
	assert.True(t, statuses[0].Open)
	assert.Equal(t, threshold, statuses[0].Failures)
}

func TestScheduler_SuccessClosesCircuit(t *testing.T) {
	ingestor := newFakeIngestor("flaky")
	ingestor.failing["flaky"] = true
	s := NewScheduler(ingestor, &memRunStore{}, testConfig(2), testLogger())

	_, _ = s.TriggerNow(context.Background())
	_, _ = s.TriggerNow(context.Background())
	require.False(t, s.breaker.Allow("flaky"))

	s.ResetBreakers()

	ingestor.mu.Lock()
	ingestor.failing["flaky"] = false
	ingestor.mu.Unlock()

	_, err := s.TriggerNow(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, ingestor.callCount("flaky"))
	assert.Empty(t, s.BreakerStatuses())
}

func TestRunCycle_CancelSkipsRemainingProviders(t *testing.T) {
	ingestor := newFakeIngestor("alpha", "beta")
	ingestor.block = make(chan struct{})
	cfg := testConfig(5)
	cfg.Jitter = time.Microsecond
	s := NewScheduler(ingestor, &memRunStore{}, cfg, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan *domain.RunRecord, 1)
	go func() {
		run, _ := s.TriggerNow(ctx)
		done <- run
	}()

	require.Eventually(t, func() bool {
		return ingestor.callCount("alpha") == 1
	}, time.Second, time.Millisecond)

	// Abort while alpha is in flight: it may finish, beta must not start.
	cancel()
	close(ingestor.block)

	run := <-done
	require.NotNil(t, run)
	assert.Equal(t, 0, ingestor.callCount("beta"))
	assert.Len(t, run.Providers, 1)
	assert.Equal(t, "alpha", run.Providers[0].Provider)
}

func TestRun_TicksAndStopsOnCancel(t *testing.T) {
	ingestor := newFakeIngestor("alpha")
	s := NewScheduler(ingestor, &memRunStore{}, Config{
		Interval:         20 * time.Millisecond,
		ProviderTimeout:  time.Second,
		BreakerThreshold: 5,
	}, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- s.Run(ctx) }()

	require.Eventually(t, func() bool {
		return ingestor.callCount("alpha") >= 2
	}, time.Second, time.Millisecond, "initial cycle plus at least one tick")

	cancel()
	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop")
	}
}
