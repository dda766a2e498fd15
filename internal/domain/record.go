package domain

import (
	"encoding/json"
	"time"
)

// QuotaClass describes how a provider charges for requests.
type QuotaClass string

const (
	// QuotaNone marks providers without request accounting.
	QuotaNone QuotaClass = "none"
	// QuotaMetered marks providers that charge quota units per request
	// against a daily credential ceiling.
	QuotaMetered QuotaClass = "metered"
)

// ContentRecord is the normalized shape every provider adapter produces.
// Records are immutable once created; Raw always holds the provider's
// payload verbatim.
type ContentRecord struct {
	// IdentityKey is the record's natural unique key: the canonical URL
	// for news articles, the platform-native id for video content.
	IdentityKey string          `json:"identity_key"`
	Title       string          `json:"title"`
	URL         string          `json:"url"`
	Body        *string         `json:"body,omitempty"`
	Summary     *string         `json:"summary,omitempty"`
	Author      *string         `json:"author,omitempty"`
	ImageURL    *string         `json:"image_url,omitempty"`
	PublishedAt *time.Time      `json:"published_at,omitempty"`
	Tags        []string        `json:"tags,omitempty"`
	Provider    string          `json:"provider"`
	Raw         json.RawMessage `json:"raw,omitempty"`
}

// Fields returns the record's attributes keyed by target column name.
// The persistence layer intersects these with the relation's writable
// columns; anything without a matching column is dropped silently.
func (r *ContentRecord) Fields() map[string]any {
	return map[string]any{
		"title":        r.Title,
		"url":          r.URL,
		"content_text": r.Body,
		"summary":      r.Summary,
		"author_name":  r.Author,
		"image_url":    r.ImageURL,
		"published_at": r.PublishedAt,
		"tags":         r.Tags,
		"platform":     r.Provider,
	}
}

// ProviderConfig describes one external content source. Loaded at startup,
// static for the process lifetime.
type ProviderConfig struct {
	Name        string     `yaml:"name"`
	Adapter     string     `yaml:"adapter"`
	BaseURL     string     `yaml:"base_url"`
	Query       string     `yaml:"query"`
	PageSize    int        `yaml:"page_size"`
	MaxPages    int        `yaml:"max_pages"`
	Limit       int        `yaml:"limit"`
	QuotaClass  QuotaClass `yaml:"quota_class"`
	CostPerPage int        `yaml:"cost_per_page"`
}
