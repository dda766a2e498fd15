package domain

import "time"

// Outcome classifies the fate of a single record at the store.
type Outcome string

const (
	OutcomeInserted  Outcome = "inserted"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeError     Outcome = "error"
)

// ProviderStats aggregates per-record outcomes for one provider within
// one acquisition cycle.
type ProviderStats struct {
	Provider   string `json:"provider"`
	Fetched    int    `json:"fetched"`
	Inserted   int    `json:"inserted"`
	Duplicates int    `json:"duplicates"`
	Errors     int    `json:"errors"`
	Published  int    `json:"published"`
	Skipped    bool   `json:"skipped,omitempty"` // circuit open, no attempt made
	Err        string `json:"error,omitempty"`
}

// RunRecord captures one scheduled or manually triggered acquisition
// cycle. Immutable once the cycle completes.
type RunRecord struct {
	ID          int64           `json:"id"`
	Trigger     string          `json:"trigger"` // "interval" or "manual"
	TriggeredAt time.Time       `json:"triggered_at"`
	CompletedAt time.Time       `json:"completed_at"`
	Providers   []ProviderStats `json:"providers"`
}

// Totals sums per-provider counts across the run.
func (r *RunRecord) Totals() ProviderStats {
	var t ProviderStats
	for _, p := range r.Providers {
		t.Fetched += p.Fetched
		t.Inserted += p.Inserted
		t.Duplicates += p.Duplicates
		t.Errors += p.Errors
		t.Published += p.Published
	}
	return t
}
