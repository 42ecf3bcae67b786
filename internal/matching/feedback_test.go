package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyFeedbackEntry_PositiveRatingRaisesReliability(t *testing.T) {
	state := &EngineState{Personas: []Persona{newPersona(1), newPersona(2)}}
	idx := personaIndex(state.Personas)
	state.Personas[1].Reliability.Score = 0.5

	entry := &FeedbackEntry{ID: "f1", FromPersonaID: 1, ToPersonaID: 2, Rating: 5, CreatedAt: mondayNoon}
	applyFeedbackEntry(state, idx, entry, mondayNoon)

	assert.True(t, entry.Processed)
	require.NotNil(t, entry.ProcessedAt)
	assert.Greater(t, state.Personas[1].Reliability.Score, 0.5)
	assert.Equal(t, 1, state.Personas[1].Profile.FeedbackSummary.PositiveCount)
	assert.Len(t, state.Personas[1].Reliability.History, 1)
}

func TestApplyFeedbackEntry_NegativeRatingLowersReliability(t *testing.T) {
	state := &EngineState{Personas: []Persona{newPersona(1), newPersona(2)}}
	idx := personaIndex(state.Personas)
	state.Personas[1].Reliability.Score = 0.5

	entry := &FeedbackEntry{ID: "f1", FromPersonaID: 1, ToPersonaID: 2, Rating: 1, CreatedAt: mondayNoon}
	applyFeedbackEntry(state, idx, entry, mondayNoon)

	assert.Less(t, state.Personas[1].Reliability.Score, 0.5)
	assert.Equal(t, 1, state.Personas[1].Profile.FeedbackSummary.NegativeCount)
}

func TestApplyFeedbackEntry_GhostIssueReverseBoostsRater(t *testing.T) {
	// Step 5 + step 7: a "ghost" issue drops the ratee's reliability hard
	// and raises the rater's reliability plus their minimum-reliability
	// floor for future candidate pools.
	state := &EngineState{Personas: []Persona{newPersona(1), newPersona(2)}}
	idx := personaIndex(state.Personas)
	state.Personas[0].Reliability.Score = 0.5
	state.Personas[1].Reliability.Score = 0.5

	entry := &FeedbackEntry{
		ID: "f1", FromPersonaID: 1, ToPersonaID: 2, Rating: 1, CreatedAt: mondayNoon,
		Issues: []Issue{{Code: "ghost", Severity: 5, RedFlag: true}},
	}
	applyFeedbackEntry(state, idx, entry, mondayNoon)

	ratee := state.Personas[1]
	rater := state.Personas[0]

	// Zero feedback bias clamps biasWeight to 0.6: (-0.06 - 0.25) * 0.6 = -0.186.
	assert.InDelta(t, 0.314, ratee.Reliability.Score, 0.0001)
	assert.Equal(t, 1, ratee.Reliability.GhostCount)
	assert.Contains(t, ratee.Profile.FeedbackSummary.RedFlagTags, "ghost")

	assert.Greater(t, rater.Reliability.Score, 0.5)
	require.NotNil(t, rater.MatchPreferences.ReliabilityMinScore)
	assert.Greater(t, *rater.MatchPreferences.ReliabilityMinScore, 0.5)

	found := false
	for _, f := range rater.Facts {
		if f.Key == "feedback_experience:ghosted" {
			found = true
		}
	}
	assert.True(t, found, "expected a feedback_experience:ghosted fact on the rater")
}

func TestApplyFeedbackEntry_UnknownPersonaSkipsButMarksProcessed(t *testing.T) {
	state := &EngineState{Personas: []Persona{newPersona(1)}}
	idx := personaIndex(state.Personas)

	entry := &FeedbackEntry{ID: "f1", FromPersonaID: 1, ToPersonaID: 999, Rating: 5, CreatedAt: mondayNoon}
	applyFeedbackEntry(state, idx, entry, mondayNoon)

	assert.True(t, entry.Processed)
	require.NotNil(t, entry.ProcessedAt)
}

func TestProcessFeedback_RespectsLimitAndSkipsAlreadyProcessed(t *testing.T) {
	processedAt := mondayNoon.AddDate(0, 0, -1)
	state := &EngineState{
		Personas: []Persona{newPersona(1), newPersona(2)},
		FeedbackQueue: []FeedbackEntry{
			{ID: "f0", FromPersonaID: 1, ToPersonaID: 2, Rating: 5, Processed: true, ProcessedAt: &processedAt},
			{ID: "f1", FromPersonaID: 1, ToPersonaID: 2, Rating: 5, CreatedAt: mondayNoon},
			{ID: "f2", FromPersonaID: 2, ToPersonaID: 1, Rating: 3, CreatedAt: mondayNoon},
		},
	}
	idx := personaIndex(state.Personas)
	opts := baseOptions(DomainGeneral)
	opts.ProcessFeedbackLimit = 1

	processed := processFeedback(state, idx, opts)

	assert.Equal(t, 1, processed)
	assert.True(t, state.FeedbackQueue[1].Processed)
	assert.False(t, state.FeedbackQueue[2].Processed)
}

func TestRecomputeRaterBias_HarshRaterBecomesHarsher(t *testing.T) {
	rater := newPersona(1)
	entry := &FeedbackEntry{Sentiment: SentimentNegative, RedFlags: []string{"rude"}}
	recomputeRaterBias(&rater, entry, 1)

	assert.Equal(t, 1, rater.FeedbackBias.Stats.RatingsGiven)
	assert.InDelta(t, 1.0, rater.FeedbackBias.Stats.AverageRating, 0.0001)
	assert.Greater(t, rater.FeedbackBias.HarshnessScore, 0.5)
	assert.Equal(t, 1.0, rater.FeedbackBias.RedFlagFrequency)
}

func TestSentimentFromRating(t *testing.T) {
	assert.Equal(t, SentimentPositive, sentimentFromRating(4))
	assert.Equal(t, SentimentPositive, sentimentFromRating(5))
	assert.Equal(t, SentimentNeutral, sentimentFromRating(3))
	assert.Equal(t, SentimentNegative, sentimentFromRating(2))
	assert.Equal(t, SentimentNegative, sentimentFromRating(1))
}
