package postgres

import (
	"context"
	"fmt"
	"sort"

	"github.com/jmoiron/sqlx"
)

// Schema is the writable/store-computed partition of a relation's
// columns. Built once at startup from the metadata catalog; read-only
// afterwards. The process cannot persist safely without it.
type Schema struct {
	Table    string
	writable map[string]struct{}
	computed []string
}

type columnMeta struct {
	Name        string `db:"column_name"`
	IsGenerated string `db:"is_generated"`
	IsIdentity  string `db:"is_identity"`
}

// IntrospectSchema partitions the relation's columns into externally
// writable and store-computed (generated or identity) ones.
func IntrospectSchema(ctx context.Context, db *sqlx.DB, table string) (*Schema, error) {
	query := `
		SELECT column_name, is_generated, is_identity
		FROM information_schema.columns
		WHERE table_name = $1
		ORDER BY ordinal_position`

	var cols []columnMeta
	if err := db.SelectContext(ctx, &cols, query, table); err != nil {
		return nil, fmt.Errorf("introspect %s: %w", table, err)
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("introspect %s: relation has no columns", table)
	}

	s := &Schema{
		Table:    table,
		writable: make(map[string]struct{}, len(cols)),
	}
	for _, c := range cols {
		if c.IsGenerated == "ALWAYS" || c.IsIdentity == "YES" {
			s.computed = append(s.computed, c.Name)
			continue
		}
		s.writable[c.Name] = struct{}{}
	}

	return s, nil
}

// Writable reports whether the column accepts externally supplied
// values.
func (s *Schema) Writable(column string) bool {
	_, ok := s.writable[column]
	return ok
}

// WritableColumns returns the writable column names in stable order.
func (s *Schema) WritableColumns() []string {
	out := make([]string, 0, len(s.writable))
	for c := range s.writable {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// ComputedColumns returns the store-computed column names.
func (s *Schema) ComputedColumns() []string {
	return s.computed
}
