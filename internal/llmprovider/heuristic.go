// Package llmprovider implements internal/matching.LLMProvider over real
// model backends. It mirrors the teacher's pkg/agent split between a
// thin interface (agent.LLMClient) and concrete transports (the gRPC
// sidecar client, the native SDK client).
package llmprovider

import (
	"context"

	"github.com/affinitylabs/matchengine/internal/matching"
)

// Heuristic wraps the engine's own default small/large-pass math
// (matching.HeuristicSmallPass/HeuristicLargePass) behind the
// LLMProvider interface, so MATCHING_LLM_MODE=heuristic is a real,
// selectable mode instead of only being reachable by leaving
// Dependencies.LLM nil.
//
// The LLMProvider interface doesn't carry EngineOptions or the match
// graph, so Heuristic uses package-default options and an empty graph
// (no graph-hop bonus) — callers that need the exact in-tick heuristic,
// options and all, get it automatically by leaving Dependencies.LLM nil
// instead of constructing a Heuristic.
type Heuristic struct{}

func (Heuristic) SmallPass(ctx context.Context, in matching.SmallPassInput) (matching.SmallPassResult, error) {
	return matching.HeuristicSmallPass(in.Persona, in.Candidates, in.Domain, matching.EngineOptions{}, matching.MatchGraph{}), nil
}

func (Heuristic) LargePass(ctx context.Context, in matching.LargePassInput) (matching.LargePassResult, error) {
	return matching.HeuristicLargePass(in.Persona, in.Candidate, in.Domain, matching.EngineOptions{}, matching.MatchGraph{}), nil
}
