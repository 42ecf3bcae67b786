package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPrioritizedUniverse_PriorityIdsFirst(t *testing.T) {
	state := &EngineState{Personas: []Persona{newPersona(1), newPersona(2), newPersona(3)}}
	universe := prioritizedUniverse(state, []int{3}, nil)
	assert.Equal(t, []int{3, 1, 2}, universe)
}

func TestPrioritizedUniverse_ExcludesInactivePersonas(t *testing.T) {
	a := newPersona(1)
	a.Status = StatusPaused
	state := &EngineState{Personas: []Persona{a, newPersona(2)}}
	universe := prioritizedUniverse(state, nil, nil)
	assert.Equal(t, []int{2}, universe)
}

func TestPrioritizedUniverse_TargetIdsRestrictUniverse(t *testing.T) {
	state := &EngineState{Personas: []Persona{newPersona(1), newPersona(2), newPersona(3)}}
	universe := prioritizedUniverse(state, nil, []int{2})
	assert.Equal(t, []int{2}, universe)
}

func TestSelectCursorBatch_AdvancesAndWraps(t *testing.T) {
	state := &EngineState{Cursor: 0}
	universe := []int{1, 2, 3, 4, 5}

	batch := selectCursorBatch(state, universe, 2)
	assert.Equal(t, []int{1, 2}, batch)
	assert.Equal(t, 2, state.Cursor)

	batch = selectCursorBatch(state, universe, 2)
	assert.Equal(t, []int{3, 4}, batch)
	assert.Equal(t, 4, state.Cursor)

	batch = selectCursorBatch(state, universe, 2)
	assert.Equal(t, []int{5, 1}, batch)
	assert.Equal(t, 1, state.Cursor)
}

func TestSelectCursorBatch_EmptyUniverseReturnsNil(t *testing.T) {
	state := &EngineState{}
	assert.Nil(t, selectCursorBatch(state, nil, 10))
}

func TestDedupInts(t *testing.T) {
	assert.Equal(t, []int{1, 2, 3}, dedupInts([]int{1, 2, 1, 3, 2}))
}
