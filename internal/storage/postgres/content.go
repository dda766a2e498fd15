package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/lib/pq"

	"github.com/niananto/online-news-scrapers/internal/domain"
)

// rawColumn is the catch-all jsonb column; when the relation has it,
// the verbatim provider payload always lands there so store-computed
// columns can derive from it independently.
const rawColumn = "raw_data"

const sourceColumn = "source_id"

// ContentStore writes normalized records into the target relation
// using only its writable columns. Record attributes map onto columns
// by exact name; unmatched attributes are dropped, unmatched columns
// stay at their defaults.
type ContentStore struct {
	db       *sqlx.DB
	schema   *Schema
	resolver *SourceResolver
	logger   *slog.Logger
}

// NewContentStore introspects the relation once. An introspection
// failure is returned as-is and is fatal to the caller.
func NewContentStore(ctx context.Context, db *sqlx.DB, table string, resolver *SourceResolver, logger *slog.Logger) (*ContentStore, error) {
	schema, err := IntrospectSchema(ctx, db, table)
	if err != nil {
		return nil, err
	}

	logger.Info("introspected target relation",
		"table", table,
		"writable", len(schema.WritableColumns()),
		"computed", schema.ComputedColumns(),
	)

	return &ContentStore{
		db:       db,
		schema:   schema,
		resolver: resolver,
		logger:   logger,
	}, nil
}

// Schema exposes the cached column partition.
func (s *ContentStore) Schema() *Schema {
	return s.schema
}

// Insert writes one record, skipping on conflict with the relation's
// uniqueness constraint. Never upserts: the store constraint is the
// authoritative duplicate guard across cycles and restarts.
func (s *ContentStore) Insert(ctx context.Context, rec *domain.ContentRecord) (domain.Outcome, error) {
	values := make(map[string]any)
	for name, v := range rec.Fields() {
		if !s.schema.Writable(name) {
			continue
		}
		if tags, ok := v.([]string); ok {
			v = pq.Array(tags)
		}
		values[name] = v
	}

	if s.schema.Writable(rawColumn) && len(rec.Raw) > 0 {
		values[rawColumn] = types.JSONText(rec.Raw)
	}

	if s.schema.Writable(sourceColumn) && s.resolver != nil {
		if id := s.resolver.Resolve(rec); id != nil {
			values[sourceColumn] = *id
		}
	}

	if len(values) == 0 {
		return domain.OutcomeError, fmt.Errorf("no writable columns matched for %q", rec.IdentityKey)
	}

	columns := make([]string, 0, len(values))
	for name := range values {
		columns = append(columns, name)
	}
	sort.Strings(columns)

	placeholders := make([]string, len(columns))
	args := make([]any, len(columns))
	for i, name := range columns {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = values[name]
	}

	query := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s) ON CONFLICT DO NOTHING",
		s.schema.Table,
		strings.Join(columns, ", "),
		strings.Join(placeholders, ", "),
	)

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return domain.OutcomeError, fmt.Errorf("insert %q: %w", rec.IdentityKey, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return domain.OutcomeError, err
	}
	if affected == 0 {
		return domain.OutcomeDuplicate, nil
	}
	return domain.OutcomeInserted, nil
}
