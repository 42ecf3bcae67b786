package matching

import "sort"

// SmallPassInput is the payload handed to an LLMProvider's SmallPass call
// (spec §4.6).
type SmallPassInput struct {
	Persona    *Persona
	Candidates []*Persona
	Domain     Domain
	Notes      string
}

// SmallPassResult is the small-pass outcome: an ordered prefix of candidate
// ids plus free-form notes (spec §4.4).
type SmallPassResult struct {
	RankedIDs []int
	Notes     string
}

// runSmallPass scores each candidate with the default heuristic (spec
// §4.4) and returns the top K ids in descending order.
func runSmallPass(persona *Persona, candidates []*Persona, domain Domain, opts EngineOptions, dist *graphDistanceCache) SmallPassResult {
	type scored struct {
		id    int
		score float64
	}
	out := make([]scored, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, scored{id: c.ID, score: smallPassScore(persona, c, domain, opts, dist)})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].score != out[j].score {
			return out[i].score > out[j].score
		}
		return out[i].id < out[j].id
	})
	k := opts.SmallPassTopK
	if k <= 0 || k > len(out) {
		k = len(out)
	}
	ids := make([]int, 0, k)
	for _, s := range out[:k] {
		ids = append(ids, s.id)
	}
	return SmallPassResult{RankedIDs: ids, Notes: "heuristic small pass"}
}

// smallPassScore computes the weighted heuristic sum of spec §4.4's
// component table. Each component is normalized to roughly [-1, 1] before
// its contribution weight is applied.
func smallPassScore(persona, candidate *Persona, domain Domain, opts EngineOptions, dist *graphDistanceCache) float64 {
	score := 0.0

	score += 0.25 * jaccard(persona.Profile.Interests, candidate.Profile.Interests)

	sameCity := persona.General.Location.City == candidate.General.Location.City
	requireSameCity := opts.requireSameCity(domain)
	if sameCity || !requireSameCity {
		score += 0.15
	}

	overlap := availabilityOverlapMinutes(
		persona.Profile.Availability, persona.General.Location.TimeZone,
		candidate.Profile.Availability, candidate.General.Location.TimeZone,
		opts.Now)
	avail := float64(overlap) / 480.0
	if avail > 1 {
		avail = 1
	}
	score += 0.15 * avail

	score += 0.10 * opts.ReliabilityWeight * candidate.Reliability.Score

	if hops, reachable := dist.distance(persona.ID, candidate.ID); reachable && hops <= opts.GraphHops {
		score += 0.10 * (1.0 / float64(1+hops))
	}

	score += 0.10 * jaccard(persona.Profile.ConnectionGoals, candidate.Profile.ConnectionGoals)

	if len(candidate.Profile.FeedbackSummary.RedFlagTags) > 0 {
		score -= 0.15
	}

	return score
}

// filterValidIDs keeps only ids present in the candidate set, in the order
// given — used to sanitize an LLM-provided ranking (spec §4.4: "invalid
// ids are filtered out").
func filterValidIDs(ids []int, candidates []*Persona) []int {
	valid := make(map[int]bool, len(candidates))
	for _, c := range candidates {
		valid[c.ID] = true
	}
	out := make([]int, 0, len(ids))
	for _, id := range ids {
		if valid[id] {
			out = append(out, id)
		}
	}
	return out
}
