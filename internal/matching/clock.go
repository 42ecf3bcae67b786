package matching

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Clock is the injected time source (spec §2 "Clock & IDs"). Default is
// the wall clock; deterministic clocks are used in tests to make ticks
// reproducible (spec P6).
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// FixedClock is a deterministic Clock for tests, grounded on the teacher's
// pattern of injecting collaborators through a dependencies struct
// (pkg/agent/context.go's ExecutionContext) rather than reaching for
// time.Now() directly inside domain logic.
type FixedClock struct {
	At time.Time
}

func (c FixedClock) Now() time.Time { return c.At }

// IDFactory mints ids for matches and meetings (spec §4.7 step 2,
// "fresh matchId (from deps.idFactory or default ULID-style generator)").
type IDFactory interface {
	NewMatchID() string
	NewMeetingID() string
}

// defaultIDFactory produces lexicographically sortable, unique ids: a
// millisecond timestamp prefix (so ids sort roughly by creation order, the
// "ULID-style" property spec §4.7 asks for) followed by a random suffix
// from google/uuid to guarantee uniqueness without a dedicated ULID
// dependency — the teacher's own id generation (uuid.New().String(),
// e.g. pkg/events/manager.go) uses the same library for the "unique
// opaque string id" role.
type defaultIDFactory struct{}

func (defaultIDFactory) NewMatchID() string {
	return sortableID("match")
}

func (defaultIDFactory) NewMeetingID() string {
	return sortableID("meeting")
}

func sortableID(prefix string) string {
	return fmt.Sprintf("%s_%013d_%s", prefix, time.Now().UTC().UnixMilli(), uuid.New().String()[:8])
}

// SequentialIDFactory is a deterministic IDFactory for tests: it hands out
// match_0001, match_0002, ... in call order so two ticks against the same
// state and options are byte-for-byte identical (spec P6).
type SequentialIDFactory struct {
	matchN   int
	meetingN int
}

func (f *SequentialIDFactory) NewMatchID() string {
	f.matchN++
	return fmt.Sprintf("match_%04d", f.matchN)
}

func (f *SequentialIDFactory) NewMeetingID() string {
	f.meetingN++
	return fmt.Sprintf("meeting_%04d", f.meetingN)
}
