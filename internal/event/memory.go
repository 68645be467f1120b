package event

import (
	"context"
	"sort"
	"sync"
)

// OwnerLookup resolves an owning user for the review and report joins.
// The second return is false when the reference is dangling.
type OwnerLookup func(ctx context.Context, userID string) (OwnerSummary, bool)

// InMemory implements Store with in-process concurrency safety. Used by
// handler tests and local development; production runs on Postgres.
type InMemory struct {
	mu     sync.RWMutex
	byID   map[string]*Observation
	order  []string // insertion order == submission order
	owners OwnerLookup
}

var _ Store = (*InMemory)(nil)

// NewInMemory creates an empty store. owners may be nil, in which case
// every owner reference resolves as dangling.
func NewInMemory(owners OwnerLookup) *InMemory {
	return &InMemory{
		byID:   make(map[string]*Observation),
		owners: owners,
	}
}

func (s *InMemory) Insert(ctx context.Context, o *Observation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *o
	s.byID[o.ID] = &cp
	s.order = append(s.order, o.ID)
	return nil
}

func (s *InMemory) Find(ctx context.Context, id string) (*Observation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (s *InMemory) ListByUser(ctx context.Context, userID string) ([]Observation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var res []Observation
	for _, id := range s.order {
		o := s.byID[id]
		if o.UserID == userID {
			res = append(res, *o)
		}
	}
	// newest first
	sort.SliceStable(res, func(i, j int) bool {
		return res[i].SubmittedAt.After(res[j].SubmittedAt)
	})
	return res, nil
}

func (s *InMemory) ListForReview(ctx context.Context, f ReviewFilter) ([]ReviewItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var res []ReviewItem
	for _, id := range s.order {
		o := s.byID[id]
		if !matchFilter(*o, f) {
			continue
		}
		res = append(res, s.joinOwner(ctx, *o))
	}
	sort.SliceStable(res, func(i, j int) bool {
		return res[i].SubmittedAt.After(res[j].SubmittedAt)
	})
	return res, nil
}

func (s *InMemory) ApplyDecision(ctx context.Context, id string, decision bool, score int, notes string) (*Observation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	if o.IsVerified != nil && *o.IsVerified != decision {
		return nil, ErrAlreadyDecided
	}
	d := decision
	o.IsVerified = &d
	o.Score = score
	o.AdminNotes = notes
	cp := *o
	return &cp, nil
}

func (s *InMemory) VerifiedWithOwners(ctx context.Context) ([]ReviewItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var res []ReviewItem
	for _, id := range s.order {
		o := s.byID[id]
		if o.IsVerified == nil || !*o.IsVerified {
			continue
		}
		res = append(res, s.joinOwner(ctx, *o))
	}
	sort.SliceStable(res, func(i, j int) bool {
		return res[i].SubmittedAt.Before(res[j].SubmittedAt)
	})
	return res, nil
}

func (s *InMemory) Count(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.byID)), nil
}

func (s *InMemory) joinOwner(ctx context.Context, o Observation) ReviewItem {
	item := ReviewItem{Observation: o}
	if s.owners != nil {
		if owner, ok := s.owners(ctx, o.UserID); ok {
			item.Owner = &owner
		}
	}
	return item
}

func matchFilter(o Observation, f ReviewFilter) bool {
	if f.Category != "" && CategoryOf(o.EventHeading) != f.Category {
		return false
	}
	if f.Status != StatusAny && o.State() != f.Status {
		return false
	}
	if !f.From.IsZero() && o.SubmittedAt.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && o.SubmittedAt.After(f.To) {
		return false
	}
	return true
}
