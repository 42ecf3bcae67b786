package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/field"
)

// EngineLock is a single-row table that records the engine lock's state
// (held, acquired_at) and the persisted cursor. Mutual exclusion comes only
// from pg_try_advisory_lock in pkg/store/postgres.go; no compare-and-swap
// on this row is performed, so it does not act as a lock on its own.
type EngineLock struct {
	ent.Schema
}

// Fields of the EngineLock.
func (EngineLock) Fields() []ent.Field {
	return []ent.Field{
		field.Int("lock_key").
			Unique().
			Immutable(),
		field.Bool("held").
			Default(false),
		field.String("holder").
			Optional(),
		field.Time("acquired_at").
			Optional().
			Nillable(),
		field.Time("expires_at").
			Optional().
			Nillable(),
		field.Int("cursor").
			Default(0).
			Comment("persisted EngineState.Cursor"),
		field.Time("updated_at").
			Default(time.Now).
			UpdateDefault(time.Now),
	}
}
