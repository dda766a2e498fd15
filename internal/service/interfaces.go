package service

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

import (
	"context"

	"github.com/niananto/online-news-scrapers/internal/domain"
	"github.com/niananto/online-news-scrapers/internal/provider"
)

type Fetcher interface {
	FetchAll(ctx context.Context, adapter provider.Adapter, cfg domain.ProviderConfig, limit int) ([]domain.ContentRecord, error)
}

type ContentStore interface {
	Insert(ctx context.Context, rec *domain.ContentRecord) (domain.Outcome, error)
}

type Publisher interface {
	Publish(ctx context.Context, rec *domain.ContentRecord) error
	Close() error
}
