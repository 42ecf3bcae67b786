package matching

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordMatch_CreatesRecordAndEdge(t *testing.T) {
	a := newPersona(1, DomainGeneral)
	b := newPersona(2, DomainGeneral)
	state := &EngineState{Personas: []Persona{a, b}}
	idx := personaIndex(state.Personas)
	opts := baseOptions(DomainGeneral)
	deps := &Dependencies{IDFactory: &SequentialIDFactory{}, Clock: FixedClock{At: mondayNoon}}
	counter := newMatchCounter()

	sp := ScoredPair{Candidate: &state.Personas[1], Result: LargePassResult{Score: 80, PositiveReasons: []string{"shared interests"}}}
	matchID, err := recordMatch(context.Background(), state, idx, 1, 2, DomainGeneral, sp, 5, llmNotConfigured, opts, deps, counter)

	require.NoError(t, err)
	assert.Equal(t, "match_0001", matchID)
	if assert.Len(t, state.Matches, 1) {
		m := state.Matches[0]
		assert.Equal(t, 1, m.PersonaA)
		assert.Equal(t, 2, m.PersonaB)
		assert.Equal(t, MatchProposed, m.Status)
		assert.InDelta(t, 0.8, m.Assessment.Score/100, 0.0001)
	}
	if assert.Len(t, state.MatchGraph.Edges, 1) {
		assert.Equal(t, EdgeMatch, state.MatchGraph.Edges[0].Type)
		assert.InDelta(t, 0.8, state.MatchGraph.Edges[0].Weight, 0.0001)
	}
	assert.Equal(t, 1, state.Personas[0].ProfileRevision)
	assert.Equal(t, 1, state.Personas[1].ProfileRevision)
}

func TestRecordMatch_RespectsPerPersonaDomainCap(t *testing.T) {
	a := newPersona(1, DomainGeneral)
	b := newPersona(2, DomainGeneral)
	c := newPersona(3, DomainGeneral)
	state := &EngineState{Personas: []Persona{a, b, c}}
	idx := personaIndex(state.Personas)
	opts := baseOptions(DomainGeneral)
	deps := &Dependencies{IDFactory: &SequentialIDFactory{}, Clock: FixedClock{At: mondayNoon}}
	counter := newMatchCounter()

	sp := ScoredPair{Candidate: &state.Personas[1], Result: LargePassResult{Score: 50}}
	id1, err := recordMatch(context.Background(), state, idx, 1, 2, DomainGeneral, sp, 1, llmNotConfigured, opts, deps, counter)
	require.NoError(t, err)
	assert.NotEmpty(t, id1)

	sp2 := ScoredPair{Candidate: &state.Personas[2], Result: LargePassResult{Score: 50}}
	id2, err := recordMatch(context.Background(), state, idx, 1, 3, DomainGeneral, sp2, 1, llmNotConfigured, opts, deps, counter)
	require.NoError(t, err)
	assert.Empty(t, id2, "persona 1 already matched in this domain this tick")
}

func TestRecordMatch_BlockedCandidateIsSkipped(t *testing.T) {
	a := newPersona(1, DomainGeneral)
	a.MatchPreferences.BlockedPersonaIds = []int{2}
	b := newPersona(2, DomainGeneral)
	state := &EngineState{Personas: []Persona{a, b}}
	idx := personaIndex(state.Personas)
	opts := baseOptions(DomainGeneral)
	deps := &Dependencies{IDFactory: &SequentialIDFactory{}, Clock: FixedClock{At: mondayNoon}}
	counter := newMatchCounter()

	sp := ScoredPair{Candidate: &state.Personas[1], Result: LargePassResult{Score: 50}}
	matchID, err := recordMatch(context.Background(), state, idx, 1, 2, DomainGeneral, sp, 1, llmNotConfigured, opts, deps, counter)

	require.NoError(t, err)
	assert.Empty(t, matchID)
	assert.Empty(t, state.Matches)
}

func TestRecordMatch_ReasoningAnnotatesLLMOutcome(t *testing.T) {
	cases := []struct {
		name    string
		outcome llmOutcome
		want    string
	}{
		{"not configured", llmNotConfigured, "scored by heuristic fallback"},
		{"llm succeeded", llmSucceeded, "scored by llm provider"},
		{"llm fell back", llmFellBack, "llm:fallback"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			a := newPersona(1, DomainGeneral)
			b := newPersona(2, DomainGeneral)
			state := &EngineState{Personas: []Persona{a, b}}
			idx := personaIndex(state.Personas)
			opts := baseOptions(DomainGeneral)
			deps := &Dependencies{IDFactory: &SequentialIDFactory{}, Clock: FixedClock{At: mondayNoon}}
			counter := newMatchCounter()

			sp := ScoredPair{Candidate: &state.Personas[1], Result: LargePassResult{Score: 50}}
			_, err := recordMatch(context.Background(), state, idx, 1, 2, DomainGeneral, sp, 1, tc.outcome, opts, deps, counter)
			require.NoError(t, err)
			require.Len(t, state.Matches, 1)
			assert.Contains(t, state.Matches[0].Reasoning, tc.want)
		})
	}
}

func TestWeightFromScore(t *testing.T) {
	assert.Equal(t, 0.0, weightFromScore(-50))
	assert.Equal(t, 1.0, weightFromScore(150))
	assert.InDelta(t, 0.5, weightFromScore(50), 0.0001)
}
