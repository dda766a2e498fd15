package postgres

import (
	"context"
	"log/slog"
	"net/url"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/niananto/online-news-scrapers/internal/domain"
)

// SourceRef is one row of the read-only reference relation of known
// providers.
type SourceRef struct {
	ID  string `db:"id"`
	URL string `db:"url"`
}

type SourceStore struct {
	db *sqlx.DB
}

func NewSourceStore(db *sqlx.DB) *SourceStore {
	return &SourceStore{db: db}
}

func (s *SourceStore) List(ctx context.Context) ([]SourceRef, error) {
	var refs []SourceRef
	err := s.db.SelectContext(ctx, &refs, "SELECT id, url FROM sources WHERE url <> ''")
	return refs, err
}

// defaultDomains maps provider names to their primary domain, used
// when a record's own URL does not match any reference row.
var defaultDomains = map[string]string{
	"hindustan_times":   "hindustantimes.com",
	"business_standard": "business-standard.com",
	"economic_times":    "economictimes.indiatimes.com",
	"times_of_india":    "timesofindia.indiatimes.com",
	"india_today":       "indiatoday.in",
	"ndtv":              "ndtv.com",
	"firstpost":         "firstpost.com",
	"news18":            "news18.com",
	"the_hindu":         "thehindu.com",
	"bbc":               "bbc.com",
	"cnn":               "cnn.com",
	"aljazeera":         "aljazeera.com",
	"reuters":           "reuters.com",
	"youtube":           "youtube.com",
}

// SourceResolver maps a record to the reference relation's id by the
// network location of its canonical URL. Built once at startup;
// read-only afterwards.
type SourceResolver struct {
	byDomain map[string]string
	fallback map[string]string
	logger   *slog.Logger
}

func NewSourceResolver(refs []SourceRef, logger *slog.Logger) *SourceResolver {
	byDomain := make(map[string]string, len(refs))
	for _, ref := range refs {
		if d := hostOf(ref.URL); d != "" {
			byDomain[d] = ref.ID
		}
	}

	logger.Info("built source domain map", "domains", len(byDomain))

	return &SourceResolver{
		byDomain: byDomain,
		fallback: defaultDomains,
		logger:   logger,
	}
}

// Resolve returns the reference id for the record's domain, trying the
// record URL first, then the static provider-name table. Unresolved is
// not an error; the column stays unset.
func (r *SourceResolver) Resolve(rec *domain.ContentRecord) *string {
	if d := hostOf(rec.URL); d != "" {
		if id, ok := r.byDomain[d]; ok {
			return &id
		}
	}

	if d, ok := r.fallback[rec.Provider]; ok {
		if id, ok := r.byDomain[d]; ok {
			return &id
		}
	}

	r.logger.Warn("unresolved source for record",
		"provider", rec.Provider,
		"url", rec.URL,
	)
	return nil
}

func hostOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Host), "www.")
}
