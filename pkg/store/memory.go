package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/affinitylabs/matchengine/internal/matching"
)

// Memory is an in-process Adapter backed by a guarded struct field. It is
// the default for local runs and tests (single process, so the lock is
// just a mutex) — cmd/matchengined falls back to it when both DB_HOST
// and DB_PASSWORD are unset.
type Memory struct {
	mu     sync.Mutex
	state  matching.EngineState
	locked bool
}

// NewMemory returns a Memory adapter seeded with the given state.
func NewMemory(initial matching.EngineState) *Memory {
	return &Memory{state: initial}
}

func (m *Memory) Load(ctx context.Context) (matching.EngineState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state, nil
}

func (m *Memory) Save(ctx context.Context, state matching.EngineState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = state
	return nil
}

func (m *Memory) Lock(ctx context.Context) (func(context.Context) error, error) {
	m.mu.Lock()
	if m.locked {
		m.mu.Unlock()
		return nil, ErrLockHeld
	}
	m.locked = true
	m.mu.Unlock()

	release := func(context.Context) error {
		m.mu.Lock()
		m.locked = false
		m.mu.Unlock()
		return nil
	}
	return release, nil
}

func (m *Memory) Close() error {
	return nil
}

// SyncPersonasFromUsers is a no-op: Memory has no external user directory
// to sync from (spec §6.2 host contract, not modeled in this repo).
func (m *Memory) SyncPersonasFromUsers(ctx context.Context) error {
	return nil
}

func (m *Memory) ListPriorityPersonaIds(ctx context.Context, windowHours int) ([]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cutoff := time.Now().Add(-time.Duration(windowHours) * time.Hour)
	type ranked struct {
		id      int
		boost   int
		updated time.Time
	}
	var rows []ranked
	for _, p := range m.state.Personas {
		if p.PriorityBoost == nil {
			continue
		}
		if !p.LastUpdated.IsZero() && p.LastUpdated.Before(cutoff) {
			continue
		}
		rows = append(rows, ranked{id: p.ID, boost: *p.PriorityBoost, updated: p.LastUpdated})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].boost != rows[j].boost {
			return rows[i].boost > rows[j].boost
		}
		return rows[i].updated.After(rows[j].updated)
	})
	ids := make([]int, len(rows))
	for i, r := range rows {
		ids[i] = r.id
	}
	return ids, nil
}

// ListPrioritySchedulePersonaIds reuses the priority-boost predicate:
// this reference implementation does not model a separate scheduling
// queue, so any persona eligible for priority treatment is also eligible
// for forced auto-scheduling.
func (m *Memory) ListPrioritySchedulePersonaIds(ctx context.Context, windowHours int) ([]int, error) {
	return m.ListPriorityPersonaIds(ctx, windowHours)
}

// ListFilterPersonaIds returns personas with no match recorded within the
// window, a reasonable proxy for "needs re-evaluation with relaxed
// constraints" (spec §4.2).
func (m *Memory) ListFilterPersonaIds(ctx context.Context, windowHours int) ([]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cutoff := time.Now().Add(-time.Duration(windowHours) * time.Hour)
	recentlyMatched := make(map[int]bool)
	for _, rec := range m.state.Matches {
		if rec.CreatedAt.After(cutoff) {
			recentlyMatched[rec.PersonaA] = true
			recentlyMatched[rec.PersonaB] = true
		}
	}
	var ids []int
	for _, p := range m.state.Personas {
		if p.Status != matching.StatusActive {
			continue
		}
		if !recentlyMatched[p.ID] {
			ids = append(ids, p.ID)
		}
	}
	sort.Ints(ids)
	return ids, nil
}
