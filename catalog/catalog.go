// Package catalog holds the in-memory candidate store assembled during
// ingestion. The store is concurrency-safe while it is being filled; once a
// run starts, components read stable snapshots and never mutate entries.
package catalog

import (
	"fmt"
	"sort"
	"sync"

	"github.com/signalsfoundry/satpool/model"
)

// Catalog is a thread-safe store of candidates keyed by ID, with a
// per-constellation index.
type Catalog struct {
	mu sync.RWMutex

	candidates      map[string]*model.Candidate
	byConstellation map[model.Constellation][]string
}

// New constructs an empty catalog.
func New() *Catalog {
	return &Catalog{
		candidates:      make(map[string]*model.Candidate),
		byConstellation: make(map[model.Constellation][]string),
	}
}

// Add inserts a candidate. It returns an error on an empty ID or a duplicate.
func (c *Catalog) Add(cand *model.Candidate) error {
	if cand == nil || cand.ID == "" {
		return fmt.Errorf("nil or empty candidate")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.candidates[cand.ID]; exists {
		return fmt.Errorf("candidate %q already exists", cand.ID)
	}
	c.candidates[cand.ID] = cand
	c.byConstellation[cand.Constellation] = append(c.byConstellation[cand.Constellation], cand.ID)
	return nil
}

// Get returns the candidate with the given ID, or nil if not found.
func (c *Catalog) Get(id string) *model.Candidate {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.candidates[id]
}

// Len returns the total number of candidates in the store.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.candidates)
}

// LenConstellation returns the number of candidates tagged with the given
// constellation.
func (c *Catalog) LenConstellation(tag model.Constellation) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.byConstellation[tag])
}

// Constellations lists the constellation tags present, sorted.
func (c *Catalog) Constellations() []model.Constellation {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]model.Constellation, 0, len(c.byConstellation))
	for tag := range c.byConstellation {
		out = append(out, tag)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Snapshot returns the candidates of one constellation ordered by ID. The
// ordering is what gives every candidate its stable integer index for the
// duration of a run; callers must treat the returned candidates as read-only.
func (c *Catalog) Snapshot(tag model.Constellation) []*model.Candidate {
	c.mu.RLock()
	defer c.mu.RUnlock()

	ids := append([]string(nil), c.byConstellation[tag]...)
	sort.Strings(ids)

	out := make([]*model.Candidate, 0, len(ids))
	for _, id := range ids {
		out = append(out, c.candidates[id])
	}
	return out
}
