package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// MatchRecordEntity is the durable row behind internal/matching.MatchRecord.
type MatchRecordEntity struct {
	ent.Schema
}

// Fields of the MatchRecordEntity.
func (MatchRecordEntity) Fields() []ent.Field {
	return []ent.Field{
		field.String("match_id").
			Unique().
			Immutable(),
		field.String("domain"),
		field.Int("persona_a"),
		field.Int("persona_b"),
		field.Time("created_at").
			Default(time.Now).
			Immutable(),
		field.String("status"),
		field.JSON("assessment", map[string]interface{}{}),
		field.JSON("reasoning", []string{}).
			Optional(),
		field.String("scheduled_meeting_id").
			Optional().
			Nillable(),
	}
}

// Indexes of the MatchRecordEntity.
func (MatchRecordEntity) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("persona_a"),
		index.Fields("persona_b"),
		index.Fields("domain", "created_at"),
	}
}
