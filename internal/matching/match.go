package matching

import (
	"context"
	"log/slog"
)

// matchCounter tracks how many matches a persona has received this tick,
// per domain and in total, so the per-tick caps of spec §4.7 step 5 can be
// enforced across the whole pipeline rather than per-candidate.
type matchCounter struct {
	total  map[int]int
	domain map[int]map[Domain]int
}

func newMatchCounter() *matchCounter {
	return &matchCounter{total: map[int]int{}, domain: map[int]map[Domain]int{}}
}

func (c *matchCounter) count(persona int, domain Domain) int {
	return c.domain[persona][domain]
}

func (c *matchCounter) record(a, b int, domain Domain) {
	c.total[a]++
	c.total[b]++
	for _, id := range []int{a, b} {
		if c.domain[id] == nil {
			c.domain[id] = map[Domain]int{}
		}
		c.domain[id][domain]++
	}
}

// recordMatch creates a MatchRecord for one accepted pair (spec §4.7):
// it re-checks eligibility against the tick-local state (personas may have
// been touched by an earlier pair in the same tick), mints an id, appends a
// graph edge, and optionally auto-schedules a meeting. Returns the created
// MatchRecord id, or "" if the pair was skipped (already matched this tick,
// cap reached, or no longer eligible).
func recordMatch(ctx context.Context, state *EngineState, idx map[int]int, personaID, candidateID int, domain Domain, result ScoredPair, smallScore float64, outcome llmOutcome, opts EngineOptions, deps *Dependencies, counter *matchCounter) (string, error) {
	pi, ok1 := idx[personaID]
	ci, ok2 := idx[candidateID]
	if !ok1 || !ok2 {
		return "", nil
	}
	persona := &state.Personas[pi]
	candidate := &state.Personas[ci]

	if persona.Status != StatusActive || candidate.Status != StatusActive {
		return "", nil
	}
	if !domainEligible(domain, persona, candidate, opts.requireSharedInterests(domain)) {
		return "", nil
	}
	for _, id := range persona.MatchPreferences.BlockedPersonaIds {
		if id == candidateID {
			return "", nil
		}
	}
	for _, id := range candidate.MatchPreferences.BlockedPersonaIds {
		if id == personaID {
			return "", nil
		}
	}

	// Re-check cooldown / recent-window eligibility against the tick-local
	// state, which already includes any matches recorded earlier in this
	// same tick (spec §4.7 step 1).
	if withinCooldown(state.Matches, personaID, candidateID, opts.Now, opts.MatchCooldownDays) {
		return "", nil
	}
	if opts.RecentMatchWindow != nil && exceedsRecentWindow(state.Matches, personaID, candidateID, opts.Now, opts.MatchCooldownDays, *opts.RecentMatchWindow) {
		return "", nil
	}

	// Per-tick cap: at most LargePassTopK matches per persona, and at most
	// one match per domain per persona; no option lifts the per-domain cap
	// (spec §4.7 step 5).
	matchCap := opts.LargePassTopK
	if matchCap <= 0 {
		matchCap = 1
	}
	if counter.total[personaID] >= matchCap || counter.total[candidateID] >= matchCap {
		return "", nil
	}
	if counter.count(personaID, domain) >= 1 || counter.count(candidateID, domain) >= 1 {
		return "", nil
	}

	score := result.Result.Score
	ss := smallScore
	as := Assessment{
		Score:           score,
		SmallPassScore:  &ss,
		LargePassScore:  &score,
		PositiveReasons: result.Result.PositiveReasons,
		NegativeReasons: result.Result.NegativeReasons,
		RedFlags:        result.Result.RedFlags,
	}

	reasoning := append([]string{}, result.Result.PositiveReasons...)
	reasoning = append(reasoning, result.Result.NegativeReasons...)
	switch outcome {
	case llmFellBack:
		// spec §7 TransientDependency: an LLM was configured but this pair
		// failed its call, so the heuristic answered instead.
		reasoning = append(reasoning, "llm:fallback")
	case llmSucceeded:
		reasoning = append(reasoning, "scored by llm provider")
	default:
		reasoning = append(reasoning, "scored by heuristic fallback")
	}

	matchID := deps.idFactory().NewMatchID()
	now := opts.Now
	record := MatchRecord{
		MatchID:   matchID,
		Domain:    domain,
		PersonaA:  personaID,
		PersonaB:  candidateID,
		CreatedAt: now,
		Status:    MatchProposed,
		Assessment: as,
		Reasoning:  reasoning,
	}

	if opts.AutoScheduleMatches {
		if lp := deps.locationProvider(); lp != nil {
			if loc, startsAt, err := lp.ResolveMeeting(ctx, matchID, persona, candidate); err == nil {
				meetingID := deps.idFactory().NewMeetingID()
				state.Meetings = append(state.Meetings, Meeting{
					ID:        meetingID,
					MatchID:   matchID,
					Status:    "scheduled",
					CreatedAt: now,
					Location:  loc,
					StartsAt:  startsAt,
				})
				record.Status = MatchScheduled
				record.ScheduledMeetingID = &meetingID
			} else if err != nil {
				// A LocationProvider failure is tolerated: the match still
				// records as proposed (spec §4.7 step 4).
				slog.Warn("location provider failed, match recorded without a scheduled meeting",
					"match_id", matchID, "persona_a", personaID, "persona_b", candidateID, "error", err)
			}
		}
	}

	state.Matches = append(state.Matches, record)
	appendEdge(&state.MatchGraph, personaID, candidateID, weightFromScore(score), EdgeMatch, now)
	counter.record(personaID, candidateID, domain)

	persona.touch(now)
	candidate.touch(now)

	return matchID, nil
}

// weightFromScore maps an assessment score in [-100,100] to a graph edge
// weight (spec §4.7 step 3: "weight = max(0, score/100)").
func weightFromScore(score float64) float64 {
	w := score / 100
	if w < 0 {
		return 0
	}
	if w > 1 {
		return 1
	}
	return w
}
