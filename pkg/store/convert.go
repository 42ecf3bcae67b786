package store

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/affinitylabs/matchengine/internal/matching"
)

// unmarshalIfPresent decodes raw (a JSONB column's bytes, possibly NULL)
// into out, leaving out untouched when raw is empty — mirrors how the
// ent-generated JSON field accessors treat unset JSON columns as nil
// rather than erroring.
func unmarshalIfPresent(raw []byte, out any) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, out)
}

func insertPersona(ctx context.Context, tx *sql.Tx, p matching.Persona) error {
	domains := make([]string, 0, len(p.Domains))
	for _, d := range p.Domains {
		domains = append(domains, string(d))
	}
	var priorityBoost sql.NullInt64
	if p.PriorityBoost != nil {
		priorityBoost = sql.NullInt64{Int64: int64(*p.PriorityBoost), Valid: true}
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO personas (persona_id, status, domains, general, profile, domain_profiles,
		                       match_preferences, reliability, feedback_bias, facts,
		                       profile_revision, last_updated, priority_boost)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		p.ID, string(p.Status), mustJSON(domains), mustJSON(p.General), mustJSON(p.Profile),
		mustJSON(p.DomainProfiles), mustJSON(p.MatchPreferences), mustJSON(p.Reliability),
		mustJSON(p.FeedbackBias), mustJSON(p.Facts), p.ProfileRevision, p.LastUpdated, priorityBoost)
	return err
}

func insertMatch(ctx context.Context, tx *sql.Tx, m matching.MatchRecord) error {
	var scheduledMeetingID sql.NullString
	if m.ScheduledMeetingID != nil {
		scheduledMeetingID = sql.NullString{String: *m.ScheduledMeetingID, Valid: true}
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO match_record_entities (match_id, domain, persona_a, persona_b, created_at,
		                                    status, assessment, reasoning, scheduled_meeting_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		m.MatchID, string(m.Domain), m.PersonaA, m.PersonaB, m.CreatedAt,
		string(m.Status), mustJSON(m.Assessment), mustJSON(m.Reasoning), scheduledMeetingID)
	return err
}

func insertFeedback(ctx context.Context, tx *sql.Tx, f matching.FeedbackEntry) error {
	var meetingID sql.NullString
	if f.MeetingID != nil {
		meetingID = sql.NullString{String: *f.MeetingID, Valid: true}
	}
	var processedAt sql.NullTime
	if f.ProcessedAt != nil {
		processedAt = sql.NullTime{Time: *f.ProcessedAt, Valid: true}
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO feedback_entry_entities (entry_id, from_persona_id, to_persona_id, meeting_id,
		                                      rating, sentiment, issues, red_flags, notes,
		                                      created_at, processed, processed_at, source)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		f.ID, f.FromPersonaID, f.ToPersonaID, meetingID, f.Rating, string(f.Sentiment),
		mustJSON(f.Issues), mustJSON(f.RedFlags), f.Notes, f.CreatedAt, f.Processed,
		processedAt, string(f.Source))
	return err
}

func insertEdge(ctx context.Context, tx *sql.Tx, e matching.GraphEdge) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO match_graph_edges (from_persona_id, to_persona_id, weight, edge_type, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		e.From, e.To, e.Weight, string(e.Type), e.CreatedAt)
	return err
}

func upsertCursor(ctx context.Context, tx *sql.Tx, cursor int) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO engine_locks (lock_key, cursor, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (lock_key) DO UPDATE SET cursor = $2, updated_at = now()`,
		lockKey, cursor)
	return err
}

// mustJSON marshals v into a value the JSONB-typed columns accept.
// Marshal only fails for unsupported Go types (channels, funcs, cyclic
// maps), none of which appear in internal/matching's plain data structs,
// so a marshal failure here indicates a programming error, not bad input.
func mustJSON(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		panic("store: unmarshalable value passed to mustJSON: " + err.Error())
	}
	return b
}
