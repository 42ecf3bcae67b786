package matching

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func poolIDs(state *EngineState, personaIdx int, domain Domain, opts EngineOptions) []int {
	dist := newGraphDistanceCache(state.MatchGraph, opts.GraphHops)
	return buildCandidatePool(state, personaIdx, domain, opts, dist)
}

func TestBuildCandidatePool_DatingGenderMismatch(t *testing.T) {
	// Scenario 1: mutually exclusive orientation excludes the candidate.
	a := newPersona(1, DomainDating)
	a.General.GenderIdentity = "man"
	a.DomainProfiles.Dating = &DatingProfile{PreferredGenders: []string{"woman"}, Orientation: "straight"}

	b := newPersona(2, DomainDating)
	b.General.GenderIdentity = "man"
	b.DomainProfiles.Dating = &DatingProfile{PreferredGenders: []string{"woman"}, Orientation: "gay"}

	state := &EngineState{Personas: []Persona{a, b}}
	opts := baseOptions(DomainDating)

	assert.Empty(t, poolIDs(state, 0, DomainDating, opts))
	assert.Empty(t, poolIDs(state, 1, DomainDating, opts))
}

func TestBuildCandidatePool_BusinessComplementarity(t *testing.T) {
	// Scenario 2: A seeks product/design, B offers product and seeks technical.
	a := newPersona(1, DomainBusiness)
	a.DomainProfiles.Business = &BusinessProfile{Roles: []string{"technical"}, SeekingRoles: []string{"product", "design"}}

	b := newPersona(2, DomainBusiness)
	b.DomainProfiles.Business = &BusinessProfile{Roles: []string{"product"}, SeekingRoles: []string{"technical"}}

	state := &EngineState{Personas: []Persona{a, b}}
	opts := baseOptions(DomainBusiness)
	opts.RequireSameCity = boolPtr(false)

	pool := poolIDs(state, 0, DomainBusiness, opts)
	assert.Contains(t, pool, 2)
}

func TestBuildCandidatePool_FriendshipInterestFloor(t *testing.T) {
	// Scenario 3: disjoint interests exclude the candidate when the floor
	// is enforced, but not when it's relaxed.
	a := newPersona(1, DomainFriendship)
	a.Profile.Interests = []string{"unique_a"}
	a.DomainProfiles.Friendship = &FriendshipProfile{Interests: []string{"unique_a"}}

	b := newPersona(2, DomainFriendship)
	b.Profile.Interests = []string{"unique_b"}
	b.DomainProfiles.Friendship = &FriendshipProfile{Interests: []string{"unique_b"}}

	state := &EngineState{Personas: []Persona{a, b}}

	strict := baseOptions(DomainFriendship)
	assert.Empty(t, poolIDs(state, 0, DomainFriendship, strict))

	relaxed := baseOptions(DomainFriendship)
	relaxed.RequireSharedInterests = boolPtr(false)
	assert.Contains(t, poolIDs(state, 0, DomainFriendship, relaxed), 2)
}

func TestBuildCandidatePool_CooldownEnforcement(t *testing.T) {
	// Scenario 4: a 10-day-old match blocks re-matching under a 30-day
	// cooldown but not under a 1-day cooldown.
	a := newPersona(1, DomainGeneral)
	b := newPersona(2, DomainGeneral)
	state := &EngineState{
		Personas: []Persona{a, b},
		Matches: []MatchRecord{
			{MatchID: "m1", PersonaA: 1, PersonaB: 2, CreatedAt: mondayNoon.AddDate(0, 0, -10), Status: MatchCompleted},
		},
	}

	strict := baseOptions(DomainGeneral)
	strict.MatchCooldownDays = 30
	assert.Empty(t, poolIDs(state, 0, DomainGeneral, strict))

	loose := baseOptions(DomainGeneral)
	loose.MatchCooldownDays = 1
	assert.Contains(t, poolIDs(state, 0, DomainGeneral, loose), 2)
}

func TestBuildCandidatePool_NegativeFeedbackCooldown(t *testing.T) {
	// Scenario 5: an unprocessed negative feedback entry within the window
	// excludes the other party, regardless of domain or direction.
	a := newPersona(1, DomainGeneral)
	b := newPersona(2, DomainGeneral)
	state := &EngineState{
		Personas: []Persona{a, b},
		FeedbackQueue: []FeedbackEntry{
			{ID: "f1", FromPersonaID: 1, ToPersonaID: 2, Sentiment: SentimentNegative, CreatedAt: mondayNoon.AddDate(0, 0, -30)},
		},
	}

	opts := baseOptions(DomainGeneral)
	days := 180
	opts.NegativeFeedbackCooldownDays = &days
	assert.Empty(t, poolIDs(state, 0, DomainGeneral, opts))
	assert.Empty(t, poolIDs(state, 1, DomainGeneral, opts))
}

func TestBuildCandidatePool_ExcludesBlockedAndSelf(t *testing.T) {
	a := newPersona(1, DomainGeneral)
	a.MatchPreferences.BlockedPersonaIds = []int{2}
	b := newPersona(2, DomainGeneral)
	c := newPersona(3, DomainGeneral)

	state := &EngineState{Personas: []Persona{a, b, c}}
	opts := baseOptions(DomainGeneral)

	pool := poolIDs(state, 0, DomainGeneral, opts)
	assert.NotContains(t, pool, 1) // never itself
	assert.NotContains(t, pool, 2) // blocked
	assert.Contains(t, pool, 3)
}

func TestBuildCandidatePool_SymmetricBlock(t *testing.T) {
	a := newPersona(1, DomainGeneral)
	b := newPersona(2, DomainGeneral)
	b.MatchPreferences.BlockedPersonaIds = []int{1}

	state := &EngineState{Personas: []Persona{a, b}}
	opts := baseOptions(DomainGeneral)
	assert.Empty(t, poolIDs(state, 0, DomainGeneral, opts))
}

func TestBuildCandidatePool_ReliabilityFloor(t *testing.T) {
	a := newPersona(1, DomainGeneral)
	floor := 0.5
	a.MatchPreferences.ReliabilityMinScore = &floor
	b := newPersona(2, DomainGeneral)
	b.Reliability.Score = 0.2
	c := newPersona(3, DomainGeneral)
	c.Reliability.Score = 0.8

	state := &EngineState{Personas: []Persona{a, b, c}}
	opts := baseOptions(DomainGeneral)
	pool := poolIDs(state, 0, DomainGeneral, opts)
	assert.NotContains(t, pool, 2)
	assert.Contains(t, pool, 3)
}

func TestBuildCandidatePool_AvailabilityFloor(t *testing.T) {
	a := newPersona(1, DomainGeneral)
	b := newPersona(2, DomainGeneral)
	b.Profile.Availability = Availability{} // no availability at all

	state := &EngineState{Personas: []Persona{a, b}}
	opts := baseOptions(DomainGeneral)
	opts.MinAvailabilityMinutes = intPtr(1)
	assert.Empty(t, poolIDs(state, 0, DomainGeneral, opts))
}

func TestBuildCandidatePool_GraphProximityOrdering(t *testing.T) {
	// Candidate 2 is one hop away via an existing edge; candidate 3 is
	// unconnected. Both survive filtering, but 2 should sort first.
	a := newPersona(1, DomainGeneral)
	b := newPersona(2, DomainGeneral)
	b.Reliability.Score = 0.1
	c := newPersona(3, DomainGeneral)
	c.Reliability.Score = 0.1

	state := &EngineState{
		Personas: []Persona{a, b, c},
		MatchGraph: MatchGraph{
			Edges: []GraphEdge{{From: 1, To: 2, Weight: 1, Type: EdgeMatch, CreatedAt: time.Now()}},
		},
	}
	opts := baseOptions(DomainGeneral)
	pool := poolIDs(state, 0, DomainGeneral, opts)
	if assert.Len(t, pool, 2) {
		assert.Equal(t, 2, pool[0])
	}
}

func TestBuildCandidatePool_MaxCandidatesTruncates(t *testing.T) {
	personas := []Persona{newPersona(1, DomainGeneral)}
	for i := 2; i <= 6; i++ {
		personas = append(personas, newPersona(i, DomainGeneral))
	}
	state := &EngineState{Personas: personas}
	opts := baseOptions(DomainGeneral)
	opts.MaxCandidates = 2
	assert.Len(t, poolIDs(state, 0, DomainGeneral, opts), 2)
}
