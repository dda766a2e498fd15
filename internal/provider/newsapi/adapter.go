// Package newsapi adapts JSON search endpoints of news outlets that
// expose page/pageSize style pagination.
package newsapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/niananto/online-news-scrapers/internal/domain"
	"github.com/niananto/online-news-scrapers/internal/provider"
)

type Config struct {
	Name    string
	BaseURL string
	Timeout time.Duration
}

type Adapter struct {
	httpClient *http.Client
	name       string
	baseURL    string
	logger     *slog.Logger
}

func New(cfg Config, logger *slog.Logger) *Adapter {
	return &Adapter{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		name:       cfg.Name,
		baseURL:    cfg.BaseURL,
		logger:     logger.With("provider", cfg.Name),
	}
}

func (a *Adapter) Name() string {
	return a.name
}

func (a *Adapter) FetchPage(ctx context.Context, req provider.PageRequest) ([]domain.ContentRecord, error) {
	endpoint := fmt.Sprintf("%s?q=%s&page=%d&pageSize=%d",
		a.baseURL, url.QueryEscape(req.Query), req.Page, req.PageSize)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", "OnlineNewsScrapers/1.0")

	resp, err := a.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var apiResp searchResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return nil, &domain.ParseError{Provider: a.name, Page: req.Page, Err: err}
	}

	return a.transform(apiResp.Articles, req.Page), nil
}

func (a *Adapter) transform(items []json.RawMessage, page int) []domain.ContentRecord {
	records := make([]domain.ContentRecord, 0, len(items))

	for _, raw := range items {
		var it article
		if err := json.Unmarshal(raw, &it); err != nil {
			a.logger.Warn("skipping malformed article", "page", page, "error", err)
			continue
		}
		if it.URL == "" {
			a.logger.Warn("skipping article without url", "page", page, "title", it.Title)
			continue
		}

		var publishedAt *time.Time
		if ts, err := time.Parse(time.RFC3339, it.PublishedAt); err == nil {
			publishedAt = &ts
		} else {
			a.logger.Warn("failed to parse date", "url", it.URL, "date", it.PublishedAt)
		}

		rec := domain.ContentRecord{
			IdentityKey: it.URL,
			Title:       it.Title,
			URL:         it.URL,
			Body:        it.Content,
			Summary:     it.Summary,
			Author:      it.Author,
			ImageURL:    it.ImageURL,
			PublishedAt: publishedAt,
			Tags:        it.Tags,
			Provider:    a.name,
			Raw:         raw,
		}
		records = append(records, rec)
	}

	return records
}
