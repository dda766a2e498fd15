// Package provider defines the adapter contract every external content
// source implements, and the registry the scheduler selects them from.
package provider

import (
	"context"
	"fmt"
	"sort"

	"github.com/niananto/online-news-scrapers/internal/domain"
)

// PageRequest carries the query and pagination parameters for one page
// fetch. Credential is empty for providers without quota accounting.
type PageRequest struct {
	Query      string
	Page       int
	PageSize   int
	Credential string
}

// Adapter converts one provider's wire format into normalized records.
// Implementations own the request/response shape entirely; the engine
// only supplies pagination parameters and receives records or an error.
type Adapter interface {
	Name() string
	FetchPage(ctx context.Context, req PageRequest) ([]domain.ContentRecord, error)
}

// Registry maps provider names to adapters. Populated once at startup,
// read-only afterwards.
type Registry struct {
	adapters map[string]Adapter
}

func NewRegistry() *Registry {
	return &Registry{adapters: make(map[string]Adapter)}
}

func (r *Registry) Register(a Adapter) error {
	if _, dup := r.adapters[a.Name()]; dup {
		return fmt.Errorf("adapter %q already registered", a.Name())
	}
	r.adapters[a.Name()] = a
	return nil
}

func (r *Registry) Get(name string) (Adapter, error) {
	a, ok := r.adapters[name]
	if !ok {
		return nil, fmt.Errorf("unknown provider %q", name)
	}
	return a, nil
}

func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.adapters))
	for name := range r.adapters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
