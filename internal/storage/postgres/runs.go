package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"

	"github.com/niananto/online-news-scrapers/internal/domain"
)

// RunStore persists completed acquisition cycles.
type RunStore struct {
	db *sqlx.DB
}

func NewRunStore(db *sqlx.DB) *RunStore {
	return &RunStore{db: db}
}

func (s *RunStore) Insert(ctx context.Context, run *domain.RunRecord) error {
	stats, err := json.Marshal(run.Providers)
	if err != nil {
		return fmt.Errorf("marshal run stats: %w", err)
	}

	query := `
		INSERT INTO ingest_runs (trigger_kind, triggered_at, completed_at, stats)
		VALUES ($1, $2, $3, $4)
		RETURNING id`

	err = s.db.QueryRowContext(ctx, query,
		run.Trigger,
		run.TriggeredAt,
		run.CompletedAt,
		types.JSONText(stats),
	).Scan(&run.ID)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

type runRow struct {
	ID          int64          `db:"id"`
	TriggerKind string         `db:"trigger_kind"`
	TriggeredAt time.Time      `db:"triggered_at"`
	CompletedAt time.Time      `db:"completed_at"`
	Stats       types.JSONText `db:"stats"`
}

// Last returns the most recent run, or nil when none exist yet.
func (s *RunStore) Last(ctx context.Context) (*domain.RunRecord, error) {
	query := `
		SELECT id, trigger_kind, triggered_at, completed_at, stats
		FROM ingest_runs
		ORDER BY triggered_at DESC
		LIMIT 1`

	var row runRow
	if err := s.db.GetContext(ctx, &row, query); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	run := &domain.RunRecord{
		ID:          row.ID,
		Trigger:     row.TriggerKind,
		TriggeredAt: row.TriggeredAt,
		CompletedAt: row.CompletedAt,
	}
	if err := json.Unmarshal(row.Stats, &run.Providers); err != nil {
		return nil, fmt.Errorf("unmarshal run stats: %w", err)
	}
	return run, nil
}
