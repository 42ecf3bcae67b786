package matching

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// tickLock prevents two ticks from running concurrently against the same
// process (spec §5 "Reentrancy: calling runEngineTick recursively is
// forbidden"). Hosts that run multiple processes still need the
// store-level advisory lock (pkg/store); this one only protects a single
// binary's goroutines.
var tickLock sync.Mutex

// TickResult summarizes the effects of one RunEngineTick call (spec §4.1
// return shape: "{state, matchesCreated, personasUpdated,
// feedbackProcessed}").
type TickResult struct {
	Ticks             int
	FeedbackProcessed int
	MatchesCreated    []string
	PersonasUpdated   []int
	TimedOut          bool
}

// RunEngineTick is the pure tick function (spec §4.1): it consumes state
// (the caller must treat it as moved) and returns a new state plus a
// summary of what happened.
//
// Orchestration follows spec §4.2 exactly: feedback is drained once, then
// the cursor-based sweep runs for up to opts.MaxTicks sub-ticks (or until
// opts.MaxRunMs elapses), then one additional sweep runs for
// opts.PrioritySchedulePersonaIds with AutoScheduleMatches forced true,
// then one final sweep runs for opts.FilterPersonaIds with the city/shared-
// interest requirements relaxed. Each phase still respects the wall
// budget; once it's exceeded, remaining phases are skipped and
// TimedOut=true (spec §7 "PartialRun").
func RunEngineTick(ctx context.Context, state EngineState, opts EngineOptions, deps *Dependencies) (EngineState, TickResult, error) {
	if err := opts.validate(); err != nil {
		return state, TickResult{}, err
	}
	if !tickLock.TryLock() {
		return state, TickResult{}, ErrReentrant
	}
	defer tickLock.Unlock()

	opts = opts.applyDefaults()
	clock := deps.clock()
	if opts.Now.IsZero() {
		opts.Now = clock.Now()
	}

	tickID := uuid.New().String()
	logger := slog.With("tick_id", tickID, "domains", opts.MatchDomains)
	logger.Info("tick started", "personas", len(state.Personas), "feedback_queue", len(state.FeedbackQueue))

	next := state.clone()
	result := TickResult{}
	deadline := time.Now().Add(time.Duration(opts.MaxRunMs) * time.Millisecond)

	budgetExceeded := func() bool {
		return time.Now().After(deadline) || ctx.Err() != nil
	}

	// Step 1 (spec §4.1): drain the feedback queue before any matching
	// happens this tick.
	idx := personaIndex(next.Personas)
	result.FeedbackProcessed += processFeedback(&next, idx, opts)

	// One matchCounter is shared across every sweep below (the main cursor
	// sweep's sub-ticks, the schedule sweep, and the filter sweep) so the
	// per-tick-per-persona caps of spec §4.7 step 5 ("cap created matches
	// at largePassTopK"; "do not create more than one match per domain")
	// hold across the whole RunEngineTick call, not just within a single
	// runBatch invocation — the cursor can revisit a persona across
	// sub-ticks, and the schedule/filter sweeps can retarget a persona the
	// cursor sweep already matched this same tick.
	counter := newMatchCounter()

	// Main cursor sweep (spec §4.2): up to opts.MaxTicks sub-ticks over the
	// prioritized universe.
	universe := prioritizedUniverse(&next, opts.PriorityIds, opts.TargetPersonaIds)
	for tick := 0; tick < opts.MaxTicks; tick++ {
		if budgetExceeded() {
			result.TimedOut = true
			break
		}
		batch := selectCursorBatch(&next, universe, opts.BatchSize)
		if len(batch) == 0 {
			break
		}
		created := runBatch(ctx, &next, batch, opts, deps, counter)
		result.MatchesCreated = append(result.MatchesCreated, created...)
		result.Ticks++
	}

	// Schedule sweep (spec §4.2): forces AutoScheduleMatches=true for
	// personas due for auto-scheduling.
	if len(opts.PrioritySchedulePersonaIds) > 0 {
		if budgetExceeded() {
			result.TimedOut = true
		} else {
			scheduleOpts := opts
			scheduleOpts.AutoScheduleMatches = true
			batch := dedupInts(opts.PrioritySchedulePersonaIds)
			created := runBatch(ctx, &next, batch, scheduleOpts, deps, counter)
			result.MatchesCreated = append(result.MatchesCreated, created...)
		}
	}

	// Filter sweep (spec §4.2): relaxes city/interest requirements to
	// re-evaluate personas the host flagged for a broader look.
	if len(opts.FilterPersonaIds) > 0 {
		if budgetExceeded() {
			result.TimedOut = true
		} else {
			relaxed := opts
			falseVal := false
			relaxed.RequireSameCity = &falseVal
			relaxed.RequireSharedInterests = &falseVal
			batch := dedupInts(opts.FilterPersonaIds)
			created := runBatch(ctx, &next, batch, relaxed, deps, counter)
			result.MatchesCreated = append(result.MatchesCreated, created...)
		}
	}

	for i := range next.Personas {
		if next.Personas[i].ProfileRevision != personaRevision(state.Personas, next.Personas[i].ID) {
			result.PersonasUpdated = append(result.PersonasUpdated, next.Personas[i].ID)
		}
	}

	logger.Info("tick finished",
		"sub_ticks", result.Ticks,
		"matches_created", len(result.MatchesCreated),
		"feedback_processed", result.FeedbackProcessed,
		"personas_updated", len(result.PersonasUpdated),
		"timed_out", result.TimedOut)

	return next, result, nil
}

// personaRevision looks up a persona's ProfileRevision in the pre-tick
// snapshot, returning -1 if the persona didn't exist before (so it always
// counts as updated).
func personaRevision(before []Persona, id int) int {
	for i := range before {
		if before[i].ID == id {
			return before[i].ProfileRevision
		}
	}
	return -1
}

// runBatch runs the small-pass/large-pass/match-creation pipeline for
// every persona in `batch`, in ascending id order, across every domain in
// opts.MatchDomains the persona participates in, in the order given (spec
// §5 "Ordering guarantees"). Per-persona and per-pair failures are
// contained: a candidate pool, small pass, or match-recording problem for
// one persona/domain never aborts the rest of the batch (spec §7
// "PartialRun"/"Fatal" never propagate out of the tick).
func runBatch(ctx context.Context, state *EngineState, batch []int, opts EngineOptions, deps *Dependencies, counter *matchCounter) []string {
	ids := append([]int(nil), batch...)
	sortInts(ids)

	var created []string
	idx := personaIndex(state.Personas)
	for _, personaID := range ids {
		pi, ok := idx[personaID]
		if !ok {
			continue
		}
		if state.Personas[pi].Status != StatusActive {
			continue
		}
		for _, domain := range opts.MatchDomains {
			if domain != DomainGeneral && !state.Personas[pi].HasDomain(domain) {
				continue
			}
			matchIDs := runPersonaDomain(ctx, state, idx, personaID, domain, opts, deps, counter)
			created = append(created, matchIDs...)
		}
	}
	return created
}

func sortInts(xs []int) {
	for i := 1; i < len(xs); i++ {
		j := i
		for j > 0 && xs[j] < xs[j-1] {
			xs[j], xs[j-1] = xs[j-1], xs[j]
			j--
		}
	}
}

// runPersonaDomain runs the candidate pool / small pass / large pass /
// match-creation pipeline for one persona in one domain and returns the
// match ids created (spec §4.1 steps 2a-2d).
func runPersonaDomain(ctx context.Context, state *EngineState, idx map[int]int, personaID int, domain Domain, opts EngineOptions, deps *Dependencies, counter *matchCounter) []string {
	pi := idx[personaID]
	persona := &state.Personas[pi]

	dist := newGraphDistanceCache(state.MatchGraph, opts.GraphHops)
	pool := buildCandidatePool(state, pi, domain, opts, dist)
	if len(pool) == 0 {
		return nil
	}
	candidates := make([]*Persona, 0, len(pool))
	for _, cid := range pool {
		if ci, ok := idx[cid]; ok {
			candidates = append(candidates, &state.Personas[ci])
		}
	}
	if len(candidates) == 0 {
		return nil
	}

	smallResult, smallOutcome := smallPassWithFallback(ctx, deps.llm(), persona, candidates, domain, opts, dist)

	survivors := make([]*Persona, 0, len(smallResult.RankedIDs))
	byID := make(map[int]*Persona, len(candidates))
	for _, c := range candidates {
		byID[c.ID] = c
	}
	for _, id := range smallResult.RankedIDs {
		if c, ok := byID[id]; ok {
			survivors = append(survivors, c)
		}
	}
	if len(survivors) == 0 {
		return nil
	}

	scored := largePassFanOut(ctx, deps.llm(), persona, survivors, domain, opts, dist)

	var created []string
	for _, sp := range scored {
		// "llm:fallback" is owed to the reasoning trail if either pass was
		// configured with an LLM that then failed for this call (spec §7
		// TransientDependency); an LLM success on either pass means the
		// match was, at least partly, LLM-scored.
		outcome := combineOutcomes(smallOutcome, sp.outcome)
		matchID, err := recordMatch(ctx, state, idx, personaID, sp.Candidate.ID, domain, sp.ScoredPair, smallScoreFor(sp.Candidate.ID, smallResult), outcome, opts, deps, counter)
		if err != nil || matchID == "" {
			continue
		}
		created = append(created, matchID)
	}
	return created
}

// combineOutcomes picks the single outcome that governs a match's
// reasoning annotation when the small pass and large pass each report
// their own llmOutcome: a fallback on either pass takes priority (it's
// the condition spec §7 requires "llm:fallback" for), then an LLM
// success on either pass, and only "not configured" when neither pass
// ever had an LLM to call.
func combineOutcomes(a, b llmOutcome) llmOutcome {
	if a == llmFellBack || b == llmFellBack {
		return llmFellBack
	}
	if a == llmSucceeded || b == llmSucceeded {
		return llmSucceeded
	}
	return llmNotConfigured
}

// largePassFanOut scores every small-pass survivor concurrently, bounded by
// min(opts.SmallPassTopK, 8) in-flight calls (spec §5 "bounded parallelism:
// at most min(smallPassTopK, 8) in flight per persona"), then sorts and
// truncates exactly as runLargePass does. Results are collected into a
// slice indexed by input position so the subsequent apply-in-id-order step
// (recordMatch, called by the caller afterward, single-threaded) never
// depends on goroutine completion order (spec §5).
func largePassFanOut(ctx context.Context, llm LLMProvider, persona *Persona, survivors []*Persona, domain Domain, opts EngineOptions, dist *graphDistanceCache) []scoredPairWithProvenance {
	limit := opts.SmallPassTopK
	if limit <= 0 || limit > 8 {
		limit = 8
	}
	sem := make(chan struct{}, limit)
	var wg sync.WaitGroup
	out := make([]scoredPairWithProvenance, len(survivors))

	for i, c := range survivors {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, c *Persona) {
			defer wg.Done()
			defer func() { <-sem }()
			res, outcome := largePassWithFallback(ctx, llm, persona, c, domain, opts, dist)
			out[i] = scoredPairWithProvenance{ScoredPair: ScoredPair{Candidate: c, Result: res}, outcome: outcome}
		}(i, c)
	}
	wg.Wait()

	sortScoredPairs(out)
	k := opts.LargePassTopK
	if k <= 0 || k > len(out) {
		k = len(out)
	}
	return out[:k]
}

// scoredPairWithProvenance pairs a ScoredPair with how the large pass
// reached it, so the match recorder can annotate its reasoning trail
// (spec §7 "llm:fallback").
type scoredPairWithProvenance struct {
	ScoredPair
	outcome llmOutcome
}

func sortScoredPairs(out []scoredPairWithProvenance) {
	// Insertion sort is fine here: len(out) is bounded by SmallPassTopK,
	// already small by construction.
	for i := 1; i < len(out); i++ {
		j := i
		for j > 0 && less(out[j], out[j-1]) {
			out[j], out[j-1] = out[j-1], out[j]
			j--
		}
	}
}

func less(a, b scoredPairWithProvenance) bool {
	if a.Result.Score != b.Result.Score {
		return a.Result.Score > b.Result.Score
	}
	return a.Candidate.ID < b.Candidate.ID
}

func smallScoreFor(candidateID int, small SmallPassResult) float64 {
	for rank, id := range small.RankedIDs {
		if id == candidateID {
			return float64(len(small.RankedIDs) - rank)
		}
	}
	return 0
}
