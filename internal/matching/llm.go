package matching

import (
	"context"
	"log/slog"
)

// LLMProvider is the optional polymorphic replacement for the small/large
// pass heuristics (spec §4.6). Implementations must be pure from the
// engine's point of view: no observable side effects on EngineState.
//
// Mirrors the teacher's Agent interface shape (pkg/agent/agent.go):
// context-first, a typed result, and a clear split between "the call
// failed" (error return, recovered by the caller) and "the call
// completed but found nothing" (empty result).
type LLMProvider interface {
	SmallPass(ctx context.Context, in SmallPassInput) (SmallPassResult, error)
	LargePass(ctx context.Context, in LargePassInput) (LargePassResult, error)
}

// llmOutcome records, for one small/large pass call, which of the three
// spec-relevant states applied: no LLM was configured at all (the spec
// default, not a failure), an LLM was configured and answered, or an LLM
// was configured but this particular call failed and fell back to the
// heuristic (spec §7 "TransientDependency ... annotate the match's
// reasoning with 'llm:fallback'"). The three states need to stay
// distinguishable all the way to recordMatch, which only writes
// "llm:fallback" for the last one.
type llmOutcome int

const (
	llmNotConfigured llmOutcome = iota
	llmFellBack
	llmSucceeded
)

// smallPassWithFallback calls deps.LLM.SmallPass if present, falling back
// to the heuristic on error or absence (spec §4.6 "failures are caught and
// the default heuristic is used as a fallback for that call only").
func smallPassWithFallback(ctx context.Context, llm LLMProvider, persona *Persona, candidates []*Persona, domain Domain, opts EngineOptions, dist *graphDistanceCache) (SmallPassResult, llmOutcome) {
	if llm == nil {
		return runSmallPass(persona, candidates, domain, opts, dist), llmNotConfigured
	}
	res, err := llm.SmallPass(ctx, SmallPassInput{Persona: persona, Candidates: candidates, Domain: domain})
	if err != nil {
		slog.Warn("small pass llm call failed, falling back to heuristic",
			"persona_id", persona.ID, "domain", domain, "error", (&transientError{Op: "small_pass", Err: err}).Error())
		return runSmallPass(persona, candidates, domain, opts, dist), llmFellBack
	}
	res.RankedIDs = filterValidIDs(res.RankedIDs, candidates)
	if len(res.RankedIDs) > opts.SmallPassTopK && opts.SmallPassTopK > 0 {
		res.RankedIDs = res.RankedIDs[:opts.SmallPassTopK]
	}
	return res, llmSucceeded
}

// largePassWithFallback mirrors smallPassWithFallback for the per-pair
// assessment call, clamping the LLM's score into [-100,100] and using its
// reasons verbatim on success (spec §4.5 "If deps.llm is present...").
func largePassWithFallback(ctx context.Context, llm LLMProvider, persona, candidate *Persona, domain Domain, opts EngineOptions, dist *graphDistanceCache) (LargePassResult, llmOutcome) {
	if llm == nil {
		return largePassAssess(persona, candidate, domain, opts, dist), llmNotConfigured
	}
	res, err := llm.LargePass(ctx, LargePassInput{Persona: persona, Candidate: candidate, Domain: domain})
	if err != nil {
		slog.Warn("large pass llm call failed, falling back to heuristic",
			"persona_id", persona.ID, "candidate_id", candidate.ID, "domain", domain,
			"error", (&transientError{Op: "large_pass", Err: err}).Error())
		return largePassAssess(persona, candidate, domain, opts, dist), llmFellBack
	}
	res.Score = clamp(res.Score, -100, 100)
	return res, llmSucceeded
}

// HeuristicSmallPass exposes the default small-pass heuristic (spec §4.4)
// to out-of-package LLMProvider implementations, so a "heuristic" provider
// mode can be wired as a real, selectable LLMProvider rather than only
// being reachable via a nil Dependencies.LLM. Graph is optional; an empty
// MatchGraph disables the graph-hop component rather than erroring.
func HeuristicSmallPass(persona *Persona, candidates []*Persona, domain Domain, opts EngineOptions, graph MatchGraph) SmallPassResult {
	opts = opts.applyDefaults()
	dist := newGraphDistanceCache(graph, opts.GraphHops)
	return runSmallPass(persona, candidates, domain, opts, dist)
}

// HeuristicLargePass exposes the default large-pass heuristic (spec §4.5)
// the same way HeuristicSmallPass does for the per-pair assessment call.
func HeuristicLargePass(persona, candidate *Persona, domain Domain, opts EngineOptions, graph MatchGraph) LargePassResult {
	opts = opts.applyDefaults()
	dist := newGraphDistanceCache(graph, opts.GraphHops)
	return largePassAssess(persona, candidate, domain, opts, dist)
}
