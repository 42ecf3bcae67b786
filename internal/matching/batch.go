package matching

import "sort"

// prioritizedUniverse builds the cursor-sweep universe for the main batch
// loop (spec §4.2): `priorityIds ∩ activeIds` in priority order, followed
// by the rest of the active ids in ascending order. When targetIds is
// non-empty (options.TargetPersonaIds), the universe is further restricted
// to that set (spec §6.1 "targetPersonaIds: Restrict this tick to a set").
func prioritizedUniverse(state *EngineState, priorityIds, targetIds []int) []int {
	activeIds := activePersonaIDs(state)
	if len(targetIds) > 0 {
		targetSet := toIntSet(targetIds)
		filtered := make([]int, 0, len(activeIds))
		for _, id := range activeIds {
			if targetSet[id] {
				filtered = append(filtered, id)
			}
		}
		activeIds = filtered
	}
	activeSet := toIntSet(activeIds)

	out := make([]int, 0, len(activeIds))
	seen := make(map[int]bool, len(activeIds))
	for _, id := range priorityIds {
		if activeSet[id] && !seen[id] {
			out = append(out, id)
			seen[id] = true
		}
	}
	for _, id := range activeIds {
		if !seen[id] {
			out = append(out, id)
			seen[id] = true
		}
	}
	return out
}

// activePersonaIDs returns the ids of all active personas, ascending.
func activePersonaIDs(state *EngineState) []int {
	out := make([]int, 0, len(state.Personas))
	for i := range state.Personas {
		if state.Personas[i].Status == StatusActive {
			out = append(out, state.Personas[i].ID)
		}
	}
	sort.Ints(out)
	return out
}

// selectCursorBatch returns up to batchSize ids from universe, starting at
// state.Cursor and wrapping to 0 at the end (spec §4.2 "Cursor: persistent
// integer index into prioritized"). Advances state.Cursor past whatever was
// consumed; the next call picks up where this one left off.
func selectCursorBatch(state *EngineState, universe []int, batchSize int) []int {
	if batchSize <= 0 {
		batchSize = 25
	}
	n := len(universe)
	if n == 0 {
		return nil
	}
	cursor := state.Cursor
	if cursor < 0 || cursor >= n {
		cursor = 0
	}
	size := batchSize
	if size > n {
		size = n
	}
	batch := make([]int, 0, size)
	for i := 0; i < size; i++ {
		batch = append(batch, universe[cursor])
		cursor = (cursor + 1) % n
	}
	state.Cursor = cursor
	return batch
}

// dedupInts returns xs with duplicates removed, preserving first-seen
// order. Used for the host-supplied schedule/filter sweep lists, which are
// opaque id lists the engine does not otherwise validate (spec §4.10).
func dedupInts(xs []int) []int {
	seen := make(map[int]bool, len(xs))
	out := make([]int, 0, len(xs))
	for _, x := range xs {
		if !seen[x] {
			seen[x] = true
			out = append(out, x)
		}
	}
	return out
}
