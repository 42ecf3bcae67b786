package store

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/affinitylabs/matchengine/internal/matching"
)

//go:embed migrations
var migrationsFS embed.FS

// lockKey is the single row in engine_locks and the pg_try_advisory_lock
// key used to serialize ticks across processes (spec §5 "the engine
// lock").
const lockKey = 727_001

// Config holds Postgres connection settings, mirroring the teacher's
// database.Config field-for-field.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// Postgres is a pgx-backed Adapter (spec §6.2 reference adapter).
//
// The ent/schema package documents this store's entity model (the same
// split the teacher uses between pkg/database and ent/schema), but no
// generated ent client is checked into this repository — generating one
// requires running entc's code generator, which this build process never
// invokes. Postgres instead queries the migrations/ tables in
// pkg/store/migrations directly through database/sql, field-for-field
// against the same schema ent/schema describes.
type Postgres struct {
	db *sql.DB
}

// NewPostgres opens a pooled connection and runs embedded migrations.
func NewPostgres(ctx context.Context, cfg Config) (*Postgres, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode,
	)

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := runMigrations(ctx, db, cfg.Database); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Postgres{db: db}, nil
}

func runMigrations(ctx context.Context, db *sql.DB, database string) error {
	entries, err := fs.ReadDir(migrationsFS, "migrations")
	if err != nil || len(entries) == 0 {
		return nil
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create postgres driver: %w", err)
	}
	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", sourceDriver, database, driver)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return sourceDriver.Close()
}

// Load reassembles an EngineState from the persona/match/feedback/edge
// tables and the lock row's persisted cursor.
func (p *Postgres) Load(ctx context.Context) (matching.EngineState, error) {
	var state matching.EngineState

	personas, err := p.loadPersonas(ctx)
	if err != nil {
		return state, fmt.Errorf("load personas: %w", err)
	}
	state.Personas = personas

	matches, err := p.loadMatches(ctx)
	if err != nil {
		return state, fmt.Errorf("load matches: %w", err)
	}
	state.Matches = matches

	feedback, err := p.loadFeedback(ctx)
	if err != nil {
		return state, fmt.Errorf("load feedback: %w", err)
	}
	state.FeedbackQueue = feedback

	edges, err := p.loadEdges(ctx)
	if err != nil {
		return state, fmt.Errorf("load graph edges: %w", err)
	}
	state.MatchGraph.Edges = edges

	var cursor sql.NullInt64
	row := p.db.QueryRowContext(ctx, `SELECT cursor FROM engine_locks WHERE lock_key = $1`, lockKey)
	if err := row.Scan(&cursor); err == nil && cursor.Valid {
		state.Cursor = int(cursor.Int64)
	}

	return state, nil
}

func (p *Postgres) loadPersonas(ctx context.Context) ([]matching.Persona, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT persona_id, status, domains, general, profile, domain_profiles,
		       match_preferences, reliability, feedback_bias, facts,
		       profile_revision, last_updated, priority_boost
		FROM personas`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []matching.Persona
	for rows.Next() {
		var persona matching.Persona
		var domainsRaw, generalRaw, profileRaw, domainProfilesRaw, matchPrefsRaw, reliabilityRaw, feedbackBiasRaw, factsRaw []byte
		var priorityBoost sql.NullInt64
		var status string
		if err := rows.Scan(&persona.ID, &status, &domainsRaw, &generalRaw,
			&profileRaw, &domainProfilesRaw, &matchPrefsRaw, &reliabilityRaw,
			&feedbackBiasRaw, &factsRaw, &persona.ProfileRevision, &persona.LastUpdated, &priorityBoost); err != nil {
			return nil, err
		}
		persona.Status = matching.PersonaStatus(status)
		var domains []string
		if err := json.Unmarshal(domainsRaw, &domains); err != nil {
			return nil, fmt.Errorf("persona %d domains: %w", persona.ID, err)
		}
		for _, d := range domains {
			persona.Domains = append(persona.Domains, matching.Domain(d))
		}
		if err := json.Unmarshal(generalRaw, &persona.General); err != nil {
			return nil, fmt.Errorf("persona %d general: %w", persona.ID, err)
		}
		if err := json.Unmarshal(profileRaw, &persona.Profile); err != nil {
			return nil, fmt.Errorf("persona %d profile: %w", persona.ID, err)
		}
		if err := unmarshalIfPresent(domainProfilesRaw, &persona.DomainProfiles); err != nil {
			return nil, fmt.Errorf("persona %d domain_profiles: %w", persona.ID, err)
		}
		if err := unmarshalIfPresent(matchPrefsRaw, &persona.MatchPreferences); err != nil {
			return nil, fmt.Errorf("persona %d match_preferences: %w", persona.ID, err)
		}
		if err := unmarshalIfPresent(reliabilityRaw, &persona.Reliability); err != nil {
			return nil, fmt.Errorf("persona %d reliability: %w", persona.ID, err)
		}
		if err := unmarshalIfPresent(feedbackBiasRaw, &persona.FeedbackBias); err != nil {
			return nil, fmt.Errorf("persona %d feedback_bias: %w", persona.ID, err)
		}
		if err := unmarshalIfPresent(factsRaw, &persona.Facts); err != nil {
			return nil, fmt.Errorf("persona %d facts: %w", persona.ID, err)
		}
		if priorityBoost.Valid {
			v := int(priorityBoost.Int64)
			persona.PriorityBoost = &v
		}
		out = append(out, persona)
	}
	return out, rows.Err()
}

func (p *Postgres) loadMatches(ctx context.Context) ([]matching.MatchRecord, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT match_id, domain, persona_a, persona_b, created_at, status,
		       assessment, reasoning, scheduled_meeting_id
		FROM match_record_entities`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []matching.MatchRecord
	for rows.Next() {
		var rec matching.MatchRecord
		var domain, status string
		var assessmentRaw, reasoningRaw []byte
		var scheduledMeetingID sql.NullString
		if err := rows.Scan(&rec.MatchID, &domain, &rec.PersonaA, &rec.PersonaB, &rec.CreatedAt,
			&status, &assessmentRaw, &reasoningRaw, &scheduledMeetingID); err != nil {
			return nil, err
		}
		rec.Domain = matching.Domain(domain)
		rec.Status = matching.MatchStatus(status)
		if err := unmarshalIfPresent(assessmentRaw, &rec.Assessment); err != nil {
			return nil, fmt.Errorf("match %s assessment: %w", rec.MatchID, err)
		}
		if err := unmarshalIfPresent(reasoningRaw, &rec.Reasoning); err != nil {
			return nil, fmt.Errorf("match %s reasoning: %w", rec.MatchID, err)
		}
		if scheduledMeetingID.Valid {
			v := scheduledMeetingID.String
			rec.ScheduledMeetingID = &v
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (p *Postgres) loadFeedback(ctx context.Context) ([]matching.FeedbackEntry, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT entry_id, from_persona_id, to_persona_id, meeting_id, rating,
		       sentiment, issues, red_flags, notes, created_at, processed,
		       processed_at, source
		FROM feedback_entry_entities`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []matching.FeedbackEntry
	for rows.Next() {
		var entry matching.FeedbackEntry
		var meetingID sql.NullString
		var sentiment, source string
		var issuesRaw, redFlagsRaw []byte
		var processedAt sql.NullTime
		if err := rows.Scan(&entry.ID, &entry.FromPersonaID, &entry.ToPersonaID, &meetingID,
			&entry.Rating, &sentiment, &issuesRaw, &redFlagsRaw, &entry.Notes, &entry.CreatedAt,
			&entry.Processed, &processedAt, &source); err != nil {
			return nil, err
		}
		entry.Sentiment = matching.Sentiment(sentiment)
		entry.Source = matching.FeedbackSource(source)
		if err := unmarshalIfPresent(issuesRaw, &entry.Issues); err != nil {
			return nil, fmt.Errorf("feedback %s issues: %w", entry.ID, err)
		}
		if err := unmarshalIfPresent(redFlagsRaw, &entry.RedFlags); err != nil {
			return nil, fmt.Errorf("feedback %s red_flags: %w", entry.ID, err)
		}
		if meetingID.Valid {
			v := meetingID.String
			entry.MeetingID = &v
		}
		if processedAt.Valid {
			v := processedAt.Time
			entry.ProcessedAt = &v
		}
		out = append(out, entry)
	}
	return out, rows.Err()
}

func (p *Postgres) loadEdges(ctx context.Context) ([]matching.GraphEdge, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT from_persona_id, to_persona_id, weight, edge_type, created_at
		FROM match_graph_edges`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []matching.GraphEdge
	for rows.Next() {
		var e matching.GraphEdge
		var typ string
		if err := rows.Scan(&e.From, &e.To, &e.Weight, &typ, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Type = matching.EdgeType(typ)
		out = append(out, e)
	}
	return out, rows.Err()
}

// Save replaces every row with the given state's contents inside a single
// transaction — simplest correct approach for a reference adapter; a
// production deployment would diff instead of rewrite.
func (p *Postgres) Save(ctx context.Context, state matching.EngineState) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM personas`); err != nil {
		return rollback(tx, err)
	}
	for _, persona := range state.Personas {
		if err := insertPersona(ctx, tx, persona); err != nil {
			return rollback(tx, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM match_record_entities`); err != nil {
		return rollback(tx, err)
	}
	for _, m := range state.Matches {
		if err := insertMatch(ctx, tx, m); err != nil {
			return rollback(tx, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM feedback_entry_entities`); err != nil {
		return rollback(tx, err)
	}
	for _, f := range state.FeedbackQueue {
		if err := insertFeedback(ctx, tx, f); err != nil {
			return rollback(tx, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM match_graph_edges`); err != nil {
		return rollback(tx, err)
	}
	for _, e := range state.MatchGraph.Edges {
		if err := insertEdge(ctx, tx, e); err != nil {
			return rollback(tx, err)
		}
	}

	if err := upsertCursor(ctx, tx, state.Cursor); err != nil {
		return rollback(tx, err)
	}

	return tx.Commit()
}

// Lock acquires the Postgres session-level advisory lock, which is
// automatically released if the process dies without calling release —
// unlike the engine_locks row, which release() also clears for
// observability.
func (p *Postgres) Lock(ctx context.Context) (func(context.Context) error, error) {
	var got bool
	row := p.db.QueryRowContext(ctx, "SELECT pg_try_advisory_lock($1)", lockKey)
	if err := row.Scan(&got); err != nil {
		return nil, fmt.Errorf("acquire advisory lock: %w", err)
	}
	if !got {
		return nil, ErrLockHeld
	}

	now := time.Now().UTC()
	_, _ = p.db.ExecContext(ctx, `
		INSERT INTO engine_locks (lock_key, held, acquired_at, cursor, updated_at)
		VALUES ($1, true, $2, 0, $2)
		ON CONFLICT (lock_key) DO UPDATE SET held = true, acquired_at = $2, updated_at = $2`,
		lockKey, now)

	release := func(ctx context.Context) error {
		_, err := p.db.ExecContext(ctx, "SELECT pg_advisory_unlock($1)", lockKey)
		_, _ = p.db.ExecContext(ctx, `UPDATE engine_locks SET held = false, updated_at = $2 WHERE lock_key = $1`, lockKey, time.Now().UTC())
		return err
	}
	return release, nil
}

// SyncPersonasFromUsers is a no-op: this reference adapter has no
// external user directory to sync from (spec §6.2 host contract, not
// modeled in this repo).
func (p *Postgres) SyncPersonasFromUsers(ctx context.Context) error {
	return nil
}

func (p *Postgres) ListPriorityPersonaIds(ctx context.Context, windowHours int) ([]int, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT persona_id FROM personas
		WHERE priority_boost IS NOT NULL
		  AND last_updated > now() - ($1 || ' hours')::interval
		ORDER BY priority_boost DESC, last_updated DESC`, windowHours)
	if err != nil {
		return nil, err
	}
	return scanIDs(rows)
}

// ListPrioritySchedulePersonaIds reuses the priority-boost predicate:
// this reference implementation does not model a separate scheduling
// queue, so any persona eligible for priority treatment is also eligible
// for forced auto-scheduling.
func (p *Postgres) ListPrioritySchedulePersonaIds(ctx context.Context, windowHours int) ([]int, error) {
	return p.ListPriorityPersonaIds(ctx, windowHours)
}

// ListFilterPersonaIds returns active personas with no match recorded
// within the window, a reasonable proxy for "needs re-evaluation with
// relaxed constraints" (spec §4.2).
func (p *Postgres) ListFilterPersonaIds(ctx context.Context, windowHours int) ([]int, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT persona_id FROM personas p
		WHERE p.status = 'active'
		  AND NOT EXISTS (
		    SELECT 1 FROM match_record_entities m
		    WHERE (m.persona_a = p.persona_id OR m.persona_b = p.persona_id)
		      AND m.created_at > now() - ($1 || ' hours')::interval
		  )
		ORDER BY p.persona_id`, windowHours)
	if err != nil {
		return nil, err
	}
	return scanIDs(rows)
}

func scanIDs(rows *sql.Rows) ([]int, error) {
	defer rows.Close()
	var ids []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (p *Postgres) Close() error {
	return p.db.Close()
}

func rollback(tx *sql.Tx, err error) error {
	if rerr := tx.Rollback(); rerr != nil {
		return fmt.Errorf("%w (rollback also failed: %v)", err, rerr)
	}
	return err
}
