package llmprovider

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/affinitylabs/matchengine/internal/matching"
)

func TestSmallPassPromptIncludesCandidateIDs(t *testing.T) {
	in := matching.SmallPassInput{
		Persona:    &matching.Persona{ID: 1},
		Candidates: []*matching.Persona{{ID: 2}, {ID: 3}},
		Domain:     matching.DomainGeneral,
	}
	prompt, err := smallPassPrompt(in)
	require.NoError(t, err)
	assert.Contains(t, prompt, `"id":2`)
	assert.Contains(t, prompt, `"id":3`)
}

func TestLargePassPromptIncludesBothPersonas(t *testing.T) {
	in := matching.LargePassInput{
		Persona:   &matching.Persona{ID: 1},
		Candidate: &matching.Persona{ID: 2},
		Domain:    matching.DomainDating,
	}
	prompt, err := largePassPrompt(in)
	require.NoError(t, err)
	assert.Contains(t, prompt, `"id":1`)
	assert.Contains(t, prompt, `"id":2`)
	assert.Contains(t, prompt, `"dating"`)
}

func TestHeuristicDelegatesToEngineMath(t *testing.T) {
	var h Heuristic
	persona := &matching.Persona{ID: 1, Profile: matching.Profile{Interests: []string{"hiking", "chess"}}}
	candidates := []*matching.Persona{
		{ID: 2, Profile: matching.Profile{Interests: []string{"hiking"}}},
		{ID: 3, Profile: matching.Profile{Interests: []string{"knitting"}}},
	}
	res, err := h.SmallPass(context.Background(), matching.SmallPassInput{
		Persona: persona, Candidates: candidates, Domain: matching.DomainGeneral,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, res.RankedIDs)

	lp, err := h.LargePass(context.Background(), matching.LargePassInput{
		Persona: persona, Candidate: candidates[0], Domain: matching.DomainGeneral,
	})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, lp.Score, -100.0)
	assert.LessOrEqual(t, lp.Score, 100.0)
}
