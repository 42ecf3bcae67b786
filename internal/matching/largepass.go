package matching

import (
	"fmt"
	"sort"
	"strings"
)

// LargePassInput is the payload handed to an LLMProvider's LargePass call
// (spec §4.6).
type LargePassInput struct {
	Persona   *Persona
	Candidate *Persona
	Domain    Domain
	Notes     string
}

// LargePassResult is one pair assessment (spec §4.5, mirrors Assessment
// minus the score bounds already applied).
type LargePassResult struct {
	Score           float64
	PositiveReasons []string
	NegativeReasons []string
	RedFlags        []string
	Notes           string
}

// ScoredPair pairs a candidate with its large-pass assessment.
type ScoredPair struct {
	Candidate *Persona
	Result    LargePassResult
}

// runLargePass computes the full per-pair assessment for each small-pass
// survivor and returns the top `largePassTopK` in descending score order
// (spec §4.5).
func runLargePass(persona *Persona, candidates []*Persona, domain Domain, opts EngineOptions, dist *graphDistanceCache) []ScoredPair {
	out := make([]ScoredPair, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, ScoredPair{Candidate: c, Result: largePassAssess(persona, c, domain, opts, dist)})
	}

	// Sort by score desc; ties by ascending candidate id (spec §5
	// ordering guarantee for match creation; applied here too so ranking
	// and creation order agree).
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Result.Score != out[j].Result.Score {
			return out[i].Result.Score > out[j].Result.Score
		}
		return out[i].Candidate.ID < out[j].Candidate.ID
	})

	k := opts.LargePassTopK
	if k <= 0 || k > len(out) {
		k = len(out)
	}
	return out[:k]
}

// largePassAssess computes the signed, clamped [-100,100] score plus
// human-readable reasons for one pair (spec §4.5).
func largePassAssess(persona, candidate *Persona, domain Domain, opts EngineOptions, dist *graphDistanceCache) LargePassResult {
	var pos, neg, redFlags []string
	components := make([]float64, 0, 8)

	valuesOverlap := jaccard(persona.General.Values, candidate.Profile.ConnectionGoals)
	if valuesOverlap == 0 {
		valuesOverlap = jaccard(persona.Profile.ConnectionGoals, candidate.General.Values)
	}
	components = append(components, valuesOverlap)
	if valuesOverlap > 0.3 {
		pos = append(pos, "shared values and connection goals")
	}

	commStyle := communicationCompatibility(persona, candidate)
	components = append(components, commStyle)
	if commStyle > 0 {
		pos = append(pos, "compatible communication styles")
	} else if commStyle < 0 {
		neg = append(neg, "communication styles may clash")
	}

	overlapMin := availabilityOverlapMinutes(
		persona.Profile.Availability, persona.General.Location.TimeZone,
		candidate.Profile.Availability, candidate.General.Location.TimeZone,
		opts.Now)
	availComponent := float64(overlapMin) / 480.0
	if availComponent > 1 {
		availComponent = 1
	}
	components = append(components, availComponent)
	if availComponent > 0.5 {
		pos = append(pos, "strongly overlapping availability")
	}

	components = append(components, opts.ReliabilityWeight*candidate.Reliability.Score)

	redFlagPenalty := 0.0
	if len(candidate.Profile.FeedbackSummary.RedFlagTags) > 0 {
		redFlagPenalty = -0.25 * float64(len(candidate.Profile.FeedbackSummary.RedFlagTags))
		if redFlagPenalty < -0.75 {
			redFlagPenalty = -0.75
		}
		for _, rf := range candidate.Profile.FeedbackSummary.RedFlagTags {
			redFlags = append(redFlags, fmt.Sprintf("reported red flag: %s", rf))
		}
	}
	components = append(components, redFlagPenalty)

	switch domain {
	case DomainDating:
		components = append(components, datingComponents(persona, candidate, &pos, &neg, &redFlags)...)
	case DomainBusiness:
		components = append(components, businessComponents(persona, candidate, &pos, &neg)...)
	case DomainFriendship:
		components = append(components, friendshipComponents(persona, candidate, &pos, &neg)...)
	}

	sum := 0.0
	for _, c := range components {
		sum += c
	}
	avg := sum / float64(len(components))

	if candidate.Reliability.Score >= 0.8 {
		avg += 0.10
		pos = append(pos, "highly reliable match history")
	} else if candidate.Reliability.Score <= 0.25 {
		avg -= 0.15
		neg = append(neg, "inconsistent reliability history")
	}

	score := clamp(avg*100, -100, 100)
	return LargePassResult{
		Score:           score,
		PositiveReasons: pos,
		NegativeReasons: neg,
		RedFlags:        redFlags,
		Notes:           "heuristic large pass",
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// communicationCompatibility is a small symmetric compatibility table over
// declared values (spec §4.5 "simple compatibility table"). Values are
// free-form strings; we recognize a couple of well-known opposing pairs.
func communicationCompatibility(persona, candidate *Persona) float64 {
	pVals := toSet(persona.General.Values)
	cVals := toSet(candidate.General.Values)
	opposites := [][2]string{{"direct", "conflict-avoidant"}, {"blunt", "reserved"}}
	for _, pair := range opposites {
		if (pVals[pair[0]] && cVals[pair[1]]) || (pVals[pair[1]] && cVals[pair[0]]) {
			return -0.5
		}
	}
	if hasAny(persona.General.Values, candidate.General.Values) {
		return 0.5
	}
	return 0
}

func datingComponents(persona, candidate *Persona, pos, neg, redFlags *[]string) []float64 {
	var out []float64
	pd, cd := persona.DomainProfiles.Dating, candidate.DomainProfiles.Dating
	if pd == nil || cd == nil {
		return out
	}

	gap := pd.AttractivenessScore - cd.AttractivenessScore
	if gap < 0 {
		gap = -gap
	}
	importance := pd.AttractivenessImportance
	if gap >= 3 {
		penalty := -0.1 * float64(importance) / 10.0
		out = append(out, penalty)
		if importance >= 7 {
			*neg = append(*neg, "attractiveness expectations may not align")
		}
	} else {
		out = append(out, 0)
	}

	if len(pd.PreferredBuilds) > 0 {
		if containsStr(pd.PreferredBuilds, cd.Build) {
			out = append(out, 0.3)
			*pos = append(*pos, "matches preferred build")
		} else {
			out = append(out, -0.2)
			*neg = append(*neg, "does not match preferred build")
		}
	}

	if pd.RelationshipGoal != "" && cd.RelationshipGoal != "" {
		if strings.EqualFold(pd.RelationshipGoal, cd.RelationshipGoal) {
			out = append(out, 0.4)
			*pos = append(*pos, "aligned relationship goals")
		} else {
			out = append(out, -0.4)
			*neg = append(*neg, "differing relationship goals")
		}
	}

	for _, kw := range append(append([]string{}, pd.Dealbreakers...), cd.Dealbreakers...) {
		if kw == "" {
			continue
		}
		if containsFold(persona.General.Bio, kw) || containsFold(candidate.General.Bio, kw) {
			out = append(out, -0.3)
			*redFlags = append(*redFlags, "dealbreaker keyword proximity: "+kw)
		}
	}

	return out
}

func businessComponents(persona, candidate *Persona, pos, neg *[]string) []float64 {
	var out []float64
	pb, cb := persona.DomainProfiles.Business, candidate.DomainProfiles.Business
	if pb == nil || cb == nil {
		return out
	}

	complementary := roleSubset(pb.Roles, cb.SeekingRoles) || roleSubset(cb.Roles, pb.SeekingRoles)
	if complementary {
		out = append(out, 0.5)
		*pos = append(*pos, "complementary roles")
	} else {
		out = append(out, 0)
	}

	if pb.CompanyStage != "" && cb.CompanyStage != "" {
		if strings.EqualFold(pb.CompanyStage, cb.CompanyStage) {
			out = append(out, 0.2)
			*pos = append(*pos, "aligned company stage")
		} else {
			out = append(out, -0.1)
			*neg = append(*neg, "differing company stage")
		}
	}
	if pb.Commitment != "" && cb.Commitment != "" {
		if strings.EqualFold(pb.Commitment, cb.Commitment) {
			out = append(out, 0.2)
		} else {
			out = append(out, -0.1)
			*neg = append(*neg, "differing commitment level")
		}
	}
	return out
}

func roleSubset(a, b []string) bool {
	if len(a) == 0 {
		return false
	}
	setB := toSet(b)
	for _, x := range a {
		if !setB[strings.ToLower(x)] {
			return false
		}
	}
	return true
}

func friendshipComponents(persona, candidate *Persona, pos, neg *[]string) []float64 {
	var out []float64
	pf, cf := persona.DomainProfiles.Friendship, candidate.DomainProfiles.Friendship
	if pf != nil && cf != nil {
		vibe := vibeCompatibility(pf.Vibe, cf.Vibe) + vibeCompatibility(pf.Energy, cf.Energy)
		out = append(out, vibe/2)
		if vibe > 0 {
			*pos = append(*pos, "compatible social vibe")
		} else if vibe < 0 {
			*neg = append(*neg, "mismatched social energy")
		}
	}

	interestOverlap := jaccard(persona.Profile.Interests, candidate.Profile.Interests)
	out = append(out, interestOverlap*1.5)
	if interestOverlap > 0.2 {
		*pos = append(*pos, "strong shared interests")
	}
	return out
}

func vibeCompatibility(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	if strings.EqualFold(a, b) {
		return 0.5
	}
	opposites := [][2]string{{"high-energy", "low-key"}, {"extroverted", "introverted"}}
	for _, pair := range opposites {
		if (strings.EqualFold(a, pair[0]) && strings.EqualFold(b, pair[1])) ||
			(strings.EqualFold(a, pair[1]) && strings.EqualFold(b, pair[0])) {
			return -0.5
		}
	}
	return 0
}
