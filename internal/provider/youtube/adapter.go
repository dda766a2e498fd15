// Package youtube adapts the YouTube Data API v3 search endpoint.
// Search calls are quota metered, so every request carries an API key
// handed down from the credential pool.
package youtube

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/niananto/online-news-scrapers/internal/domain"
	"github.com/niananto/online-news-scrapers/internal/provider"
)

type Config struct {
	Name    string
	BaseURL string
	Timeout time.Duration
}

// Adapter translates page numbers into the API's page-token pagination.
// Tokens returned by page N are remembered so page N+1 of the same
// query can resume; pages of one query are fetched sequentially, the
// map only needs protection against future concurrent providers.
type Adapter struct {
	httpClient *http.Client
	name       string
	baseURL    string
	logger     *slog.Logger

	mu         sync.Mutex
	nextTokens map[string]string // query -> token for the next page
}

func New(cfg Config, logger *slog.Logger) *Adapter {
	return &Adapter{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		name:       cfg.Name,
		baseURL:    cfg.BaseURL,
		logger:     logger.With("provider", cfg.Name),
		nextTokens: make(map[string]string),
	}
}

func (a *Adapter) Name() string {
	return a.name
}

func (a *Adapter) FetchPage(ctx context.Context, req provider.PageRequest) ([]domain.ContentRecord, error) {
	params := url.Values{}
	params.Set("part", "snippet")
	params.Set("type", "video")
	params.Set("order", "date")
	params.Set("q", req.Query)
	params.Set("maxResults", fmt.Sprintf("%d", req.PageSize))
	params.Set("key", req.Credential)

	a.mu.Lock()
	if req.Page == 1 {
		delete(a.nextTokens, req.Query)
	} else if token := a.nextTokens[req.Query]; token != "" {
		params.Set("pageToken", token)
	}
	a.mu.Unlock()

	endpoint := fmt.Sprintf("%s/search?%s", a.baseURL, params.Encode())

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")

	resp, err := a.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusForbidden {
		return nil, fmt.Errorf("%w: status 403: %s", domain.ErrQuotaViolation, truncate(body, 200))
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	var apiResp searchResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return nil, &domain.ParseError{Provider: a.name, Page: req.Page, Err: err}
	}

	a.mu.Lock()
	a.nextTokens[req.Query] = apiResp.NextPageToken
	a.mu.Unlock()

	return a.transform(apiResp.Items), nil
}

func (a *Adapter) transform(items []json.RawMessage) []domain.ContentRecord {
	records := make([]domain.ContentRecord, 0, len(items))

	for _, raw := range items {
		var it searchItem
		if err := json.Unmarshal(raw, &it); err != nil {
			a.logger.Warn("skipping malformed search item", "error", err)
			continue
		}
		if it.ID.VideoID == "" {
			continue
		}

		var publishedAt *time.Time
		if ts, err := time.Parse(time.RFC3339, it.Snippet.PublishedAt); err == nil {
			publishedAt = &ts
		} else {
			a.logger.Warn("failed to parse date",
				"video_id", it.ID.VideoID,
				"date", it.Snippet.PublishedAt,
			)
		}

		rec := domain.ContentRecord{
			IdentityKey: it.ID.VideoID,
			Title:       it.Snippet.Title,
			URL:         "https://www.youtube.com/watch?v=" + it.ID.VideoID,
			PublishedAt: publishedAt,
			Provider:    a.name,
			Raw:         raw,
		}
		if it.Snippet.Description != "" {
			desc := it.Snippet.Description
			rec.Summary = &desc
		}
		if it.Snippet.ChannelTitle != "" {
			author := it.Snippet.ChannelTitle
			rec.Author = &author
		}
		if u := it.Snippet.Thumbnails.High.URL; u != "" {
			rec.ImageURL = &u
		}

		records = append(records, rec)
	}

	return records
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n])
}
