package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// MatchGraphEdge is the durable row behind one internal/matching.GraphEdge.
type MatchGraphEdge struct {
	ent.Schema
}

// Fields of the MatchGraphEdge.
func (MatchGraphEdge) Fields() []ent.Field {
	return []ent.Field{
		field.Int("from_persona_id"),
		field.Int("to_persona_id"),
		field.Float("weight"),
		field.String("edge_type"),
		field.Time("created_at").
			Default(time.Now).
			Immutable(),
	}
}

// Indexes of the MatchGraphEdge.
func (MatchGraphEdge) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("from_persona_id"),
		index.Fields("to_persona_id"),
	}
}
