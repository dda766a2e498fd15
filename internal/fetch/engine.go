// Package fetch drives paginated acquisition from one provider until a
// requested item limit is met or the provider runs out of results.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/niananto/online-news-scrapers/internal/credential"
	"github.com/niananto/online-news-scrapers/internal/domain"
	"github.com/niananto/online-news-scrapers/internal/provider"
)

// CredentialPool supplies credentials for quota-metered providers.
type CredentialPool interface {
	Acquire(cost int) (*credential.Credential, error)
	ReportUsage(c *credential.Credential, cost int)
	ReportFailure(c *credential.Credential, err error)
}

type Config struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

type Engine struct {
	pool           CredentialPool
	maxAttempts    int
	initialBackoff time.Duration
	maxBackoff     time.Duration
	logger         *slog.Logger
}

func NewEngine(cfg Config, pool CredentialPool, logger *slog.Logger) *Engine {
	return &Engine{
		pool:           pool,
		maxAttempts:    cfg.MaxAttempts,
		initialBackoff: cfg.InitialBackoff,
		maxBackoff:     cfg.MaxBackoff,
		logger:         logger,
	}
}

// FetchAll requests successive pages from the adapter until limit
// records accumulate, a page comes back short (end of results), or the
// provider's page budget runs out. On a page-level failure that
// survives retries it returns the records gathered so far together
// with the error; the caller decides what to do with the partial set.
func (e *Engine) FetchAll(ctx context.Context, adapter provider.Adapter, cfg domain.ProviderConfig, limit int) ([]domain.ContentRecord, error) {
	logger := e.logger.With("provider", cfg.Name)
	var records []domain.ContentRecord

	for page := 1; page <= cfg.MaxPages && len(records) < limit; page++ {
		size := limit - len(records)
		if size > cfg.PageSize {
			size = cfg.PageSize
		}

		pageRecords, err := e.fetchPage(ctx, adapter, cfg, page, size)
		if err != nil {
			var parseErr *domain.ParseError
			if errors.As(err, &parseErr) {
				// A malformed page is dropped, the rest of the cycle
				// proceeds with whatever the next pages yield.
				logger.Warn("skipping unparseable page", "page", page, "error", err)
				continue
			}
			return records, fmt.Errorf("fetch page %d: %w", page, err)
		}

		records = append(records, pageRecords...)

		logger.Debug("fetched page",
			"page", page,
			"records", len(pageRecords),
			"total", len(records),
		)

		if len(pageRecords) < size {
			break
		}
	}

	if len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

// fetchPage wraps one page request in bounded exponential backoff.
// Quota violations are not retried against the same credential; the
// pool is told, and the next attempt rotates to another one, at most
// once per credential.
func (e *Engine) fetchPage(ctx context.Context, adapter provider.Adapter, cfg domain.ProviderConfig, page, size int) ([]domain.ContentRecord, error) {
	req := provider.PageRequest{
		Query:    cfg.Query,
		Page:     page,
		PageSize: size,
	}

	var lastErr error
	for attempt := 1; attempt <= e.maxAttempts; attempt++ {
		records, err := e.fetchOnce(ctx, adapter, cfg, req)
		if err == nil {
			return records, nil
		}

		var parseErr *domain.ParseError
		if errors.As(err, &parseErr) {
			return nil, err
		}
		if errors.Is(err, domain.ErrQuotaExhausted) {
			return nil, err
		}
		lastErr = err

		if attempt == e.maxAttempts {
			break
		}

		backoff := e.calculateBackoff(attempt)
		e.logger.Warn("page fetch failed, retrying",
			"provider", cfg.Name,
			"page", page,
			"attempt", attempt,
			"backoff", backoff,
			"error", err,
		)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}

	return nil, fmt.Errorf("after %d attempts: %w", e.maxAttempts, lastErr)
}

// fetchOnce performs a single request, acquiring and settling a
// credential when the provider is metered. A quota violation rotates
// through the remaining credentials before giving up.
func (e *Engine) fetchOnce(ctx context.Context, adapter provider.Adapter, cfg domain.ProviderConfig, req provider.PageRequest) ([]domain.ContentRecord, error) {
	if cfg.QuotaClass != domain.QuotaMetered {
		return adapter.FetchPage(ctx, req)
	}

	var lastErr error
	// One extra pass per credential: a provider-side quota signal on
	// one key should not fail the page while another key has headroom.
	for {
		cred, err := e.pool.Acquire(cfg.CostPerPage)
		if err != nil {
			if lastErr != nil {
				return nil, fmt.Errorf("%w (last provider error: %v)", err, lastErr)
			}
			return nil, err
		}

		req.Credential = cred.Key
		records, err := adapter.FetchPage(ctx, req)
		if err == nil {
			e.pool.ReportUsage(cred, cfg.CostPerPage)
			return records, nil
		}

		e.pool.ReportFailure(cred, err)
		if !domain.IsQuotaViolation(err) {
			return nil, err
		}
		lastErr = err
		// Credential is now exhausted in the pool; the next Acquire
		// either rotates or reports ErrQuotaExhausted, which bounds
		// this loop at pool size.
	}
}

func (e *Engine) calculateBackoff(attempt int) time.Duration {
	backoff := e.initialBackoff
	for i := 1; i < attempt; i++ {
		backoff *= 2
	}
	if backoff > e.maxBackoff {
		backoff = e.maxBackoff
	}
	return backoff
}
