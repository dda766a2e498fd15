package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/niananto/online-news-scrapers/internal/domain"
	"github.com/niananto/online-news-scrapers/internal/provider"
)

// IngestService runs one provider's acquisition: fetch, dedupe,
// persist, publish. Failures stay inside the provider boundary; the
// caller gets per-record outcomes aggregated into ProviderStats.
type IngestService struct {
	registry  *provider.Registry
	fetcher   Fetcher
	store     ContentStore
	publisher Publisher
	configs   map[string]domain.ProviderConfig
	order     []string
	logger    *slog.Logger
}

func NewIngestService(
	registry *provider.Registry,
	fetcher Fetcher,
	store ContentStore,
	publisher Publisher,
	providers []domain.ProviderConfig,
	logger *slog.Logger,
) *IngestService {
	configs := make(map[string]domain.ProviderConfig, len(providers))
	order := make([]string, 0, len(providers))
	for _, p := range providers {
		configs[p.Name] = p
		order = append(order, p.Name)
	}

	return &IngestService{
		registry:  registry,
		fetcher:   fetcher,
		store:     store,
		publisher: publisher,
		configs:   configs,
		order:     order,
		logger:    logger,
	}
}

// Providers returns provider names in configured order.
func (s *IngestService) Providers() []string {
	return s.order
}

// IngestProvider fetches up to the provider's limit, filters records
// already seen in this invocation, and persists the survivors one by
// one. Partial results from a failed fetch are still persisted; the
// fetch error is reported alongside the stats.
func (s *IngestService) IngestProvider(ctx context.Context, name string) (domain.ProviderStats, error) {
	stats := domain.ProviderStats{Provider: name}
	logger := s.logger.With("provider", name)

	cfg, ok := s.configs[name]
	if !ok {
		err := fmt.Errorf("provider %q not configured", name)
		stats.Err = err.Error()
		return stats, err
	}

	adapter, err := s.registry.Get(name)
	if err != nil {
		stats.Err = err.Error()
		return stats, err
	}

	records, fetchErr := s.fetcher.FetchAll(ctx, adapter, cfg, cfg.Limit)
	stats.Fetched = len(records)

	// The seen set is a per-invocation performance cache; the store's
	// uniqueness constraint is the authoritative guard across cycles.
	seen := make(map[string]struct{}, len(records))
	for i := range records {
		rec := &records[i]
		if _, dup := seen[rec.IdentityKey]; dup {
			stats.Duplicates++
			continue
		}
		seen[rec.IdentityKey] = struct{}{}

		outcome, err := s.store.Insert(ctx, rec)
		switch outcome {
		case domain.OutcomeInserted:
			stats.Inserted++
		case domain.OutcomeDuplicate:
			stats.Duplicates++
			continue
		default:
			stats.Errors++
			logger.Error("failed to persist record",
				"identity_key", rec.IdentityKey,
				"error", err,
			)
			continue
		}

		// Publishing is best effort and tracked separately: Errors counts
		// records that failed to persist, so Inserted+Duplicates+Errors
		// stays equal to the per-record attempts. A failed publish shows
		// up as Published falling short of Inserted.
		if s.publisher != nil {
			if err := s.publisher.Publish(ctx, rec); err != nil {
				logger.Error("failed to publish record",
					"identity_key", rec.IdentityKey,
					"error", err,
				)
			} else {
				stats.Published++
			}
		}
	}

	logger.Info("provider ingest complete",
		"fetched", stats.Fetched,
		"inserted", stats.Inserted,
		"duplicates", stats.Duplicates,
		"errors", stats.Errors,
	)

	if fetchErr != nil {
		stats.Err = fetchErr.Error()
		return stats, fmt.Errorf("fetch %s: %w", name, fetchErr)
	}
	return stats, nil
}
