package matching

import (
	"sort"
	"time"
)

// buildCandidatePool returns the filtered, capped candidate list for one
// persona/domain/options combination (spec §4.3).
func buildCandidatePool(state *EngineState, personaIdx int, domain Domain, opts EngineOptions, dist *graphDistanceCache) []int {
	persona := &state.Personas[personaIdx]
	requireSameCity := opts.requireSameCity(domain)
	requireSharedInterests := opts.requireSharedInterests(domain)
	minAvailMin := opts.minAvailabilityMinutes()

	blocked := toIntSet(persona.MatchPreferences.BlockedPersonaIds)
	excluded := toIntSet(persona.MatchPreferences.ExcludedPersonaIds)

	type scored struct {
		id   int
		hops int
		reachable bool
		reliability float64
	}
	var pool []scored

	for i := range state.Personas {
		candidate := &state.Personas[i]
		if candidate.ID == persona.ID {
			continue
		}
		if candidate.Status != StatusActive {
			continue
		}
		if !candidateParticipates(candidate, domain) {
			continue
		}
		if blocked[candidate.ID] || excluded[candidate.ID] {
			continue
		}
		candBlocked := toIntSet(candidate.MatchPreferences.BlockedPersonaIds)
		candExcluded := toIntSet(candidate.MatchPreferences.ExcludedPersonaIds)
		if candBlocked[persona.ID] || candExcluded[persona.ID] {
			continue
		}

		if withinCooldown(state.Matches, persona.ID, candidate.ID, opts.Now, opts.MatchCooldownDays) {
			continue
		}
		if opts.RecentMatchWindow != nil && exceedsRecentWindow(state.Matches, persona.ID, candidate.ID, opts.Now, opts.MatchCooldownDays, *opts.RecentMatchWindow) {
			continue
		}
		if opts.NegativeFeedbackCooldownDays != nil && hasRecentNegativeFeedback(state.FeedbackQueue, persona.ID, candidate.ID, opts.Now, *opts.NegativeFeedbackCooldownDays) {
			continue
		}

		overlap := availabilityOverlapMinutes(
			persona.Profile.Availability, persona.General.Location.TimeZone,
			candidate.Profile.Availability, candidate.General.Location.TimeZone,
			opts.Now)
		if overlap < minAvailMin {
			continue
		}

		if persona.MatchPreferences.ReliabilityMinScore != nil && candidate.Reliability.Score < *persona.MatchPreferences.ReliabilityMinScore {
			continue
		}

		if !domainEligible(domain, persona, candidate, requireSharedInterests) {
			continue
		}
		if requireSameCity && persona.General.Location.City != candidate.General.Location.City {
			continue
		}
		if requireSharedInterests && domain != DomainFriendship && jaccard(persona.Profile.Interests, candidate.Profile.Interests) == 0 {
			continue
		}

		hops, reachable := dist.distance(persona.ID, candidate.ID)
		pool = append(pool, scored{id: candidate.ID, hops: hops, reachable: reachable, reliability: candidate.Reliability.Score})
	}

	// Near tier (reachable within opts.GraphHops) sorts before the far tier;
	// within a tier, ties break by descending reliability only (spec §4.3:
	// no secondary key on hop count).
	sort.SliceStable(pool, func(i, j int) bool {
		a, b := pool[i], pool[j]
		ar := a.reachable && a.hops <= opts.GraphHops
		br := b.reachable && b.hops <= opts.GraphHops
		if ar != br {
			return ar
		}
		return a.reliability > b.reliability
	})

	max := opts.MaxCandidates
	if max <= 0 || max > len(pool) {
		max = len(pool)
	}
	ids := make([]int, 0, max)
	for _, p := range pool[:max] {
		ids = append(ids, p.id)
	}
	return ids
}

func candidateParticipates(p *Persona, domain Domain) bool {
	if domain == DomainGeneral {
		return true
	}
	return p.HasDomain(domain)
}

func toIntSet(xs []int) map[int]bool {
	set := make(map[int]bool, len(xs))
	for _, x := range xs {
		set[x] = true
	}
	return set
}

// withinCooldown reports whether any MatchRecord between the pair (any
// domain) falls within matchCooldownDays of options.Now (spec §4.3 rule 4).
func withinCooldown(matches []MatchRecord, a, b int, now time.Time, cooldownDays int) bool {
	cutoff := now.AddDate(0, 0, -cooldownDays)
	for i := range matches {
		m := &matches[i]
		if m.involves(a, b) && !m.CreatedAt.Before(cutoff) {
			return true
		}
	}
	return false
}

// exceedsRecentWindow implements spec §4.3 rule 5: if persona has at
// least `window` matches in the last cooldownDays days, any candidate
// already matched with persona in that window is excluded.
func exceedsRecentWindow(matches []MatchRecord, persona, candidate int, now time.Time, cooldownDays, window int) bool {
	cutoff := now.AddDate(0, 0, -cooldownDays)
	count := 0
	matchedCandidate := false
	for i := range matches {
		m := &matches[i]
		if m.CreatedAt.Before(cutoff) {
			continue
		}
		if m.PersonaA == persona || m.PersonaB == persona {
			count++
			if m.involves(persona, candidate) {
				matchedCandidate = true
			}
		}
	}
	return count >= window && matchedCandidate
}

// hasRecentNegativeFeedback implements spec §4.3 rule 6.
func hasRecentNegativeFeedback(queue []FeedbackEntry, a, b int, now time.Time, windowDays int) bool {
	cutoff := now.AddDate(0, 0, -windowDays)
	for i := range queue {
		f := &queue[i]
		if f.Sentiment != SentimentNegative {
			continue
		}
		if f.CreatedAt.Before(cutoff) {
			continue
		}
		if (f.FromPersonaID == a && f.ToPersonaID == b) || (f.FromPersonaID == b && f.ToPersonaID == a) {
			return true
		}
	}
	return false
}
