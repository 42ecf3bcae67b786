package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// FeedbackEntryEntity is the durable row behind
// internal/matching.FeedbackEntry.
type FeedbackEntryEntity struct {
	ent.Schema
}

// Fields of the FeedbackEntryEntity.
func (FeedbackEntryEntity) Fields() []ent.Field {
	return []ent.Field{
		field.String("entry_id").
			Unique().
			Immutable(),
		field.Int("from_persona_id"),
		field.Int("to_persona_id"),
		field.String("meeting_id").
			Optional().
			Nillable(),
		field.Int("rating"),
		field.String("sentiment"),
		field.JSON("issues", []interface{}{}).
			Optional(),
		field.JSON("red_flags", []string{}).
			Optional(),
		field.Text("notes").
			Optional(),
		field.Time("created_at").
			Default(time.Now).
			Immutable(),
		field.Bool("processed").
			Default(false),
		field.Time("processed_at").
			Optional().
			Nillable(),
		field.String("source"),
	}
}

// Indexes of the FeedbackEntryEntity.
func (FeedbackEntryEntity) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("processed", "created_at"),
		index.Fields("to_persona_id"),
	}
}
