// Package memory holds period inputs and results in process memory. It backs
// the CLI when no database is configured and serves as the reference Sink in
// tests.
package memory

import (
	"context"
	"slices"
	"sort"
	"sync"

	"shelfaudit/internal/compliance/models"
	"shelfaudit/internal/compliance/ports"
	"shelfaudit/pkg/platform/sentinel"
)

type Store struct {
	mu      sync.RWMutex
	inputs  map[models.Period]ports.Input
	results map[models.Period]map[string]stored
}

// stored is a result together with the run that wrote it.
type stored struct {
	runID  string
	result models.CustomerResult
}

func New() *Store {
	return &Store{
		inputs:  make(map[models.Period]ports.Input),
		results: make(map[models.Period]map[string]stored),
	}
}

// Seed replaces the input held for a period.
func (s *Store) Seed(period models.Period, in ports.Input) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inputs[period] = ports.Input{
		Registrations: slices.Clone(in.Registrations),
		Rules:         slices.Clone(in.Rules),
		Audits:        slices.Clone(in.Audits),
	}
}

func (s *Store) Load(_ context.Context, period models.Period) (*ports.Input, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	in, ok := s.inputs[period]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &ports.Input{
		Registrations: slices.Clone(in.Registrations),
		Rules:         slices.Clone(in.Rules),
		Audits:        slices.Clone(in.Audits),
	}, nil
}

// Write replaces each customer's result for the period and tags it with the
// run id carried by ctx.
func (s *Store) Write(ctx context.Context, period models.Period, results []models.CustomerResult) error {
	runID := ports.RunIDFromContext(ctx)
	s.mu.Lock()
	defer s.mu.Unlock()
	byCustomer, ok := s.results[period]
	if !ok {
		byCustomer = make(map[string]stored)
		s.results[period] = byCustomer
	}
	for _, r := range results {
		byCustomer[r.Customer.CustomerID] = stored{runID: runID, result: clone(r)}
	}
	return nil
}

// Prune drops the period's results written by any run other than runID.
func (s *Store) Prune(_ context.Context, period models.Period, runID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, st := range s.results[period] {
		if st.runID != runID {
			delete(s.results[period], id)
		}
	}
	return nil
}

func (s *Store) CustomerResult(_ context.Context, period models.Period, customerID string) (*models.CustomerResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.results[period][customerID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	out := clone(st.result)
	return &out, nil
}

// Results returns every stored result of a period ordered by customer id.
func (s *Store) Results(period models.Period) []models.CustomerResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	byCustomer := s.results[period]
	out := make([]models.CustomerResult, 0, len(byCustomer))
	for _, st := range byCustomer {
		out = append(out, clone(st.result))
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Customer.CustomerID < out[j].Customer.CustomerID
	})
	return out
}

func clone(r models.CustomerResult) models.CustomerResult {
	r.Customer.Failures = slices.Clone(r.Customer.Failures)
	r.Groups = slices.Clone(r.Groups)
	r.Programs = slices.Clone(r.Programs)
	return r
}
