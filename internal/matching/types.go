// Package matching implements the core of the multi-domain matching engine:
// a pure function from a state snapshot plus options to a new state snapshot
// plus the deltas produced by a single tick (created matches, processed
// feedback, updated personas).
package matching

import "time"

// Domain is a matching context. Each persona opts into a subset of domains.
type Domain string

const (
	DomainGeneral    Domain = "general"
	DomainBusiness   Domain = "business"
	DomainDating     Domain = "dating"
	DomainFriendship Domain = "friendship"
)

// PersonaStatus is the lifecycle state of a persona. Only Active personas
// participate in matching.
type PersonaStatus string

const (
	StatusActive  PersonaStatus = "active"
	StatusPaused  PersonaStatus = "paused"
	StatusBlocked PersonaStatus = "blocked"
	StatusPending PersonaStatus = "pending"
)

// MatchStatus is the lifecycle state of a MatchRecord.
type MatchStatus string

const (
	MatchProposed  MatchStatus = "proposed"
	MatchAccepted  MatchStatus = "accepted"
	MatchScheduled MatchStatus = "scheduled"
	MatchCompleted MatchStatus = "completed"
	MatchCanceled  MatchStatus = "canceled"
	MatchExpired   MatchStatus = "expired"
)

// Sentiment classifies a feedback entry or a derived adjusted rating.
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNeutral  Sentiment = "neutral"
	SentimentNegative Sentiment = "negative"
)

// FeedbackSource identifies where a FeedbackEntry originated.
type FeedbackSource string

const (
	SourceMeeting      FeedbackSource = "meeting"
	SourceGroupEvent   FeedbackSource = "group_event"
	SourceConversation FeedbackSource = "conversation"
	SourceAdmin        FeedbackSource = "admin"
)

// FactStatus is the lifecycle of a typed fact in a persona's fact log.
type FactStatus string

const (
	FactActive     FactStatus = "active"
	FactSuperseded FactStatus = "superseded"
	FactRetracted  FactStatus = "retracted"
)

// EdgeType classifies a MatchGraph edge.
type EdgeType string

const (
	EdgeMatch            EdgeType = "match"
	EdgeFeedbackPositive EdgeType = "feedback_positive"
	EdgeFeedbackNegative EdgeType = "feedback_negative"
	EdgeMet              EdgeType = "met"
)

// Location describes where a persona is based.
type Location struct {
	City     string   `json:"city"`
	Country  string   `json:"country"`
	TimeZone string   `json:"time_zone"`
	Geo      *GeoCoord `json:"geo,omitempty"`
}

// GeoCoord is an optional lat/lng pair.
type GeoCoord struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// AvailabilityWindow is a recurring weekly window, e.g. Monday 18:00-21:00
// in the owning persona's time zone.
type AvailabilityWindow struct {
	Weekday   time.Weekday `json:"weekday"`
	StartMin  int          `json:"start_min"` // minutes after midnight, local
	EndMin    int          `json:"end_min"`
}

// AvailabilityException overrides the recurring windows for a single date
// (ISO date, "2006-01-02") — either blocking it out or adding extra time.
type AvailabilityException struct {
	Date      string               `json:"date"`
	Blackout  bool                 `json:"blackout"`
	Windows   []AvailabilityWindow `json:"windows,omitempty"`
}

// Availability is a persona's weekly schedule plus date-specific exceptions.
type Availability struct {
	Weekly     []AvailabilityWindow     `json:"weekly"`
	Exceptions []AvailabilityException  `json:"exceptions,omitempty"`
}

// GeneralProfile holds domain-agnostic identity fields.
type GeneralProfile struct {
	Name           string   `json:"name"`
	Age            int      `json:"age"`
	GenderIdentity string   `json:"gender_identity"`
	Pronouns       string   `json:"pronouns"`
	Location       Location `json:"location"`
	Values         []string `json:"values"`
	Bio            string   `json:"bio"`
}

// FeedbackSummary is the ratee-facing rollup maintained by the feedback
// processor (spec §4.8 step 4).
type FeedbackSummary struct {
	SentimentScore float64  `json:"sentiment_score"`
	PositiveCount  int      `json:"positive_count"`
	NeutralCount   int      `json:"neutral_count"`
	NegativeCount  int      `json:"negative_count"`
	IssueTags      []string `json:"issue_tags,omitempty"`
	RedFlagTags    []string `json:"red_flag_tags,omitempty"`
}

// Profile holds domain-agnostic matching preferences.
type Profile struct {
	Availability    Availability    `json:"availability"`
	Interests       []string        `json:"interests"`
	MeetingCadence  string          `json:"meeting_cadence,omitempty"`
	ConnectionGoals []string        `json:"connection_goals,omitempty"`
	FeedbackSummary FeedbackSummary `json:"feedback_summary"`
}

// DatingProfile holds dating-specific preferences and self-description.
type DatingProfile struct {
	PreferredGenders       []string `json:"preferred_genders,omitempty"`
	Orientation            string   `json:"orientation,omitempty"`
	MinAge                 int      `json:"min_age,omitempty"`
	MaxAge                 int      `json:"max_age,omitempty"`
	Dealbreakers           []string `json:"dealbreakers,omitempty"`
	PreferredBuilds        []string `json:"preferred_builds,omitempty"`
	Build                  string   `json:"build,omitempty"`
	RelationshipGoal       string   `json:"relationship_goal,omitempty"`
	AttractivenessScore    float64  `json:"attractiveness_score,omitempty"`
	AttractivenessImportance int    `json:"attractiveness_importance,omitempty"` // 0-10
}

// BusinessProfile holds business/networking-specific fields.
type BusinessProfile struct {
	Roles          []string `json:"roles,omitempty"`
	SeekingRoles   []string `json:"seeking_roles,omitempty"`
	Skills         []string `json:"skills,omitempty"`
	CompanyStage   string   `json:"company_stage,omitempty"`
	Commitment     string   `json:"commitment,omitempty"`
}

// FriendshipProfile holds friendship-specific fields.
type FriendshipProfile struct {
	Vibe      string   `json:"vibe,omitempty"`
	Energy    string   `json:"energy,omitempty"`
	Interests []string `json:"interests,omitempty"`
}

// DomainProfiles bundles the optional per-domain sub-profiles (spec §3).
type DomainProfiles struct {
	Dating     *DatingProfile     `json:"dating,omitempty"`
	Business   *BusinessProfile   `json:"business,omitempty"`
	Friendship *FriendshipProfile `json:"friendship,omitempty"`
}

// MatchPreferences holds cross-domain exclusion and threshold preferences.
type MatchPreferences struct {
	BlockedPersonaIds     []int    `json:"blocked_persona_ids,omitempty"`
	ExcludedPersonaIds    []int    `json:"excluded_persona_ids,omitempty"`
	MinAge                *int     `json:"min_age,omitempty"`
	MaxAge                *int     `json:"max_age,omitempty"`
	PreferredGenders      []string `json:"preferred_genders,omitempty"`
	PreferredBuilds       []string `json:"preferred_builds,omitempty"`
	ReliabilityMinScore   *float64 `json:"reliability_min_score,omitempty"`
}

// ReliabilityEvent is one append-only entry in a persona's reliability
// history (spec §4.8 step 5).
type ReliabilityEvent struct {
	Type      string    `json:"type"` // ghost|no_show|late_cancel|attended|on_time
	Impact    float64   `json:"impact"`
	CreatedAt time.Time `json:"created_at"`
}

// Reliability tracks how consistently a persona shows up and behaves.
type Reliability struct {
	Score            float64            `json:"score"`
	AttendedCount    int                `json:"attended_count"`
	LateCancelCount  int                `json:"late_cancel_count"`
	NoShowCount      int                `json:"no_show_count"`
	GhostCount       int                `json:"ghost_count"`
	GhostedByOthers  int                `json:"ghosted_by_others_count"`
	History          []ReliabilityEvent `json:"history,omitempty"`
}

// RaterStats are the rolling statistics a rater's bias recompute uses (spec
// §4.8 step 8).
type RaterStats struct {
	RatingsGiven  int     `json:"ratings_given"`
	AverageRating float64 `json:"average_rating"`
	NegativeRate  float64 `json:"negative_rate"`
	RedFlagRate   float64 `json:"red_flag_rate"`
}

// FeedbackBias characterizes how a rater's ratings skew vs. the population.
type FeedbackBias struct {
	HarshnessScore   float64    `json:"harshness_score"`
	PositivityBias   float64    `json:"positivity_bias"`
	RedFlagFrequency float64    `json:"red_flag_frequency"`
	Stats            RaterStats `json:"stats"`
}

// Fact is one typed key/value observation about a persona.
type Fact struct {
	Key        string     `json:"key"`
	Value      string     `json:"value"`
	Confidence float64    `json:"confidence"`
	Status     FactStatus `json:"status"`
	CreatedAt  time.Time  `json:"created_at"`
}

// Persona is the subject/object of matching (spec §3).
type Persona struct {
	ID       int           `json:"id"`
	Status   PersonaStatus `json:"status"`
	Domains  []Domain      `json:"domains"`

	General        GeneralProfile   `json:"general"`
	Profile        Profile          `json:"profile"`
	DomainProfiles DomainProfiles   `json:"domain_profiles"`
	MatchPreferences MatchPreferences `json:"match_preferences"`
	Reliability    Reliability      `json:"reliability"`
	FeedbackBias   FeedbackBias     `json:"feedback_bias"`
	Facts          []Fact           `json:"facts,omitempty"`

	ProfileRevision int       `json:"profile_revision"`
	LastUpdated     time.Time `json:"last_updated"`
	PriorityBoost   *int      `json:"priority_boost,omitempty"`
}

// HasDomain reports whether the persona participates in the given domain.
func (p *Persona) HasDomain(d Domain) bool {
	for _, pd := range p.Domains {
		if pd == d {
			return true
		}
	}
	return false
}

// touch bumps the revision counter and timestamp. Call exactly once per
// logical mutation batch (spec P1).
func (p *Persona) touch(now time.Time) {
	p.ProfileRevision++
	p.LastUpdated = now
}

// Assessment is the outcome of the large-pass per-pair scoring (spec §3,
// §4.5).
type Assessment struct {
	Score            float64  `json:"score"` // [-100, 100]
	SmallPassScore   *float64 `json:"small_pass_score,omitempty"`
	LargePassScore   *float64 `json:"large_pass_score,omitempty"`
	PositiveReasons  []string `json:"positive_reasons,omitempty"`
	NegativeReasons  []string `json:"negative_reasons,omitempty"`
	RedFlags         []string `json:"red_flags,omitempty"`
}

// MatchRecord is a created match between two personas (spec §3).
type MatchRecord struct {
	MatchID             string      `json:"match_id"`
	Domain              Domain      `json:"domain"`
	PersonaA            int         `json:"persona_a"`
	PersonaB            int         `json:"persona_b"`
	CreatedAt           time.Time   `json:"created_at"`
	Status              MatchStatus `json:"status"`
	Assessment          Assessment  `json:"assessment"`
	Reasoning           []string    `json:"reasoning"`
	ScheduledMeetingID  *string     `json:"scheduled_meeting_id,omitempty"`
}

// involves reports whether the match record is between exactly this pair,
// in either order.
func (m *MatchRecord) involves(a, b int) bool {
	return (m.PersonaA == a && m.PersonaB == b) || (m.PersonaA == b && m.PersonaB == a)
}

// GraphEdge is one entry of the undirected weighted match graph (spec §3).
type GraphEdge struct {
	From      int       `json:"from"`
	To        int       `json:"to"`
	Weight    float64   `json:"weight"`
	Type      EdgeType  `json:"type"`
	CreatedAt time.Time `json:"created_at"`
}

// MatchGraph is the undirected weighted multigraph of personas.
type MatchGraph struct {
	Edges []GraphEdge `json:"edges"`
}

// Issue is one reported problem attached to a FeedbackEntry.
type Issue struct {
	Code     string `json:"code"`
	Severity int    `json:"severity"`
	Notes    string `json:"notes,omitempty"`
	RedFlag  bool   `json:"red_flag"`
}

// FeedbackEntry is one rater->ratee observation (spec §3).
type FeedbackEntry struct {
	ID             string         `json:"id"`
	FromPersonaID  int            `json:"from_persona_id"`
	ToPersonaID    int            `json:"to_persona_id"`
	MeetingID      *string        `json:"meeting_id,omitempty"`
	Rating         int            `json:"rating"` // 1-5
	Sentiment      Sentiment      `json:"sentiment"`
	Issues         []Issue        `json:"issues,omitempty"`
	RedFlags       []string       `json:"red_flags,omitempty"`
	Notes          string         `json:"notes,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	Processed      bool           `json:"processed"`
	ProcessedAt    *time.Time     `json:"processed_at,omitempty"`
	Source         FeedbackSource `json:"source"`
}

// Meeting is a minimal scheduling placeholder created when
// options.AutoScheduleMatches is set (spec §4.7 step 4).
type Meeting struct {
	ID        string    `json:"id"`
	MatchID   string    `json:"match_id"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	Location  string    `json:"location,omitempty"`
	StartsAt  *time.Time `json:"starts_at,omitempty"`
}

// EngineState is the full aggregate the tick consumes and returns (spec
// §3). Callers must treat the value passed to RunEngineTick as consumed;
// only the state returned by RunEngineTick is authoritative afterwards.
type EngineState struct {
	Personas       []Persona       `json:"personas"`
	Matches        []MatchRecord   `json:"matches"`
	Meetings       []Meeting       `json:"meetings"`
	FeedbackQueue  []FeedbackEntry `json:"feedback_queue"`
	SafetyReports  []any           `json:"safety_reports,omitempty"`
	Communities    []any           `json:"communities,omitempty"`
	Credits        []any           `json:"credits,omitempty"`
	Messages       []any           `json:"messages,omitempty"`
	MatchGraph     MatchGraph      `json:"match_graph"`

	// Cursor is the persistent batch-selection index (spec §4.2). Owned by
	// the orchestrator; hosts persist it alongside the rest of the state.
	Cursor int `json:"cursor"`
}

// clone returns a deep-enough copy of the state for copy-on-write tick
// semantics: slices are copied so appends inside the tick never alias the
// caller's backing arrays, and personas are copied by value into a fresh
// slice so in-place field mutation never touches the caller's Persona
// structs (spec §3 "Ownership").
func (s EngineState) clone() EngineState {
	out := s
	out.Personas = append([]Persona(nil), s.Personas...)
	out.Matches = append([]MatchRecord(nil), s.Matches...)
	out.Meetings = append([]Meeting(nil), s.Meetings...)
	out.FeedbackQueue = append([]FeedbackEntry(nil), s.FeedbackQueue...)
	out.MatchGraph.Edges = append([]GraphEdge(nil), s.MatchGraph.Edges...)
	return out
}

// personaIndex builds an id->slice-index lookup for O(1) access during a
// tick. Rebuilt once per tick since the slice is append-only within it
// except for in-place persona field mutation (which doesn't move indices).
func personaIndex(personas []Persona) map[int]int {
	idx := make(map[int]int, len(personas))
	for i, p := range personas {
		idx[p.ID] = i
	}
	return idx
}
