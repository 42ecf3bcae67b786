package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/dialect/entsql"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// Persona holds the schema definition for the Persona entity: the durable
// row behind internal/matching.Persona. The engine itself never touches
// this package directly — pkg/store/postgres.go queries the
// equivalently-shaped personas table (pkg/store/migrations) over plain
// SQL rather than a generated ent client.
type Persona struct {
	ent.Schema
}

// Fields of the Persona.
func (Persona) Fields() []ent.Field {
	return []ent.Field{
		field.Int("persona_id").
			Unique().
			Immutable().
			Comment("matches internal/matching.Persona.ID"),
		field.String("status").
			Comment("active|paused|blocked|pending"),
		field.JSON("domains", []string{}),
		field.JSON("general", map[string]interface{}{}).
			Comment("GeneralProfile, marshaled"),
		field.JSON("profile", map[string]interface{}{}).
			Comment("Profile, marshaled"),
		field.JSON("domain_profiles", map[string]interface{}{}).
			Optional(),
		field.JSON("match_preferences", map[string]interface{}{}).
			Optional(),
		field.JSON("reliability", map[string]interface{}{}).
			Comment("Reliability, marshaled"),
		field.JSON("feedback_bias", map[string]interface{}{}).
			Optional(),
		field.JSON("facts", []interface{}{}).
			Optional(),
		field.Int("profile_revision").
			Default(0),
		field.Time("last_updated").
			Default(time.Now),
		field.Int("priority_boost").
			Optional().
			Nillable(),
	}
}

// Indexes of the Persona.
func (Persona) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("status"),
		index.Fields("persona_id").
			Annotations(entsql.IndexWhere("status = 'active'")),
	}
}
