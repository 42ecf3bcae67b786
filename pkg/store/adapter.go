// Package store persists internal/matching.EngineState across ticks. The
// engine itself is a pure function; something has to load a state, hand it
// to RunEngineTick, and save the result — that's this package's job.
package store

import (
	"context"
	"errors"

	"github.com/affinitylabs/matchengine/internal/matching"
)

// ErrLockHeld is returned by Lock when another process already holds the
// engine lock.
var ErrLockHeld = errors.New("store: engine lock held by another process")

// Adapter loads and saves engine state and provides the cross-process lock
// that keeps two hosts from running a tick against the same state at once
// (internal/matching.tickLock only protects a single process).
type Adapter interface {
	// Load returns the current EngineState. Implementations may assemble
	// it from several tables; callers treat it as a single snapshot.
	Load(ctx context.Context) (matching.EngineState, error)

	// Save persists the state returned by RunEngineTick, replacing
	// whatever Load last returned.
	Save(ctx context.Context, state matching.EngineState) error

	// Lock acquires the cross-process engine lock, returning a release
	// function. Returns ErrLockHeld if another process holds it.
	Lock(ctx context.Context) (release func(context.Context) error, err error)

	// SyncPersonasFromUsers refreshes the personas table from whatever
	// external user directory the host maintains (spec §6.2). Out of
	// scope for this reference implementation: no external user system
	// is modeled, so both implementations treat this as a no-op that
	// always succeeds.
	SyncPersonasFromUsers(ctx context.Context) error

	// ListPriorityPersonaIds returns ids whose PriorityBoost is set,
	// ordered by boost descending then recency, restricted to activity
	// within the last windowHours (spec §4.10). "Paid a credit" from the
	// spec's host-contract wording has no modeled equivalent here (no
	// billing/credits system; EngineState.Credits is an opaque host
	// extension point) so only the PriorityBoost half of the predicate is
	// implemented.
	ListPriorityPersonaIds(ctx context.Context, windowHours int) ([]int, error)

	// ListPrioritySchedulePersonaIds returns ids due for forced
	// auto-scheduling this tick (spec §4.2, §4.10).
	ListPrioritySchedulePersonaIds(ctx context.Context, windowHours int) ([]int, error)

	// ListFilterPersonaIds returns ids the host wants re-evaluated with
	// relaxed city/interest constraints this tick (spec §4.2, §4.10).
	ListFilterPersonaIds(ctx context.Context, windowHours int) ([]int, error)

	Close() error
}
