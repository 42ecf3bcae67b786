package llmprovider

import (
	"context"
	"encoding/json"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/encoding"

	"github.com/affinitylabs/matchengine/internal/matching"
)

// GRPC implements matching.LLMProvider by calling an internal scoring
// service, the same transport shape as the teacher's bespoke LLM sidecar
// client (pkg/agent/llm_grpc.go): a plaintext grpc.ClientConn dialed once
// at startup, one RPC per call.
//
// Unlike the teacher's client, the scoring service here has no generated
// protobuf contract to compile against (no .proto toolchain is run as
// part of building this repository), so requests/responses travel as
// JSON over the same grpc.ClientConn transport via the jsonCodec
// registered in init. The RPC method names and semantics mirror a real
// unary protobuf service; only the wire encoding differs.
type GRPC struct {
	conn *grpc.ClientConn
}

const (
	smallPassMethod = "/matchengine.scoring.Scorer/SmallPass"
	largePassMethod = "/matchengine.scoring.Scorer/LargePass"
)

// NewGRPC dials the scoring service at addr. Uses insecure (plaintext)
// transport, matching the teacher's assumption that this service runs as
// a sidecar or on localhost.
func NewGRPC(addr string) (*GRPC, error) {
	conn, err := grpc.NewClient(addr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(jsonCodecName)),
	)
	if err != nil {
		return nil, fmt.Errorf("llmprovider: failed to create scoring client for %s: %w", addr, err)
	}
	return &GRPC{conn: conn}, nil
}

// Close releases the gRPC connection.
func (g *GRPC) Close() error {
	return g.conn.Close()
}

type grpcSmallPassRequest struct {
	Persona    *matching.Persona   `json:"persona"`
	Candidates []*matching.Persona `json:"candidates"`
	Domain     matching.Domain     `json:"domain"`
}

type grpcSmallPassResponse struct {
	RankedIDs []int  `json:"ranked_ids"`
	Notes     string `json:"notes"`
}

func (g *GRPC) SmallPass(ctx context.Context, in matching.SmallPassInput) (matching.SmallPassResult, error) {
	req := &grpcSmallPassRequest{Persona: in.Persona, Candidates: in.Candidates, Domain: in.Domain}
	resp := &grpcSmallPassResponse{}
	if err := g.conn.Invoke(ctx, smallPassMethod, req, resp); err != nil {
		return matching.SmallPassResult{}, fmt.Errorf("llmprovider: SmallPass RPC: %w", err)
	}
	return matching.SmallPassResult{RankedIDs: resp.RankedIDs, Notes: resp.Notes}, nil
}

type grpcLargePassRequest struct {
	Persona   *matching.Persona `json:"persona"`
	Candidate *matching.Persona `json:"candidate"`
	Domain    matching.Domain   `json:"domain"`
}

type grpcLargePassResponse struct {
	Score           float64  `json:"score"`
	PositiveReasons []string `json:"positive_reasons"`
	NegativeReasons []string `json:"negative_reasons"`
	RedFlags        []string `json:"red_flags"`
	Notes           string   `json:"notes"`
}

func (g *GRPC) LargePass(ctx context.Context, in matching.LargePassInput) (matching.LargePassResult, error) {
	req := &grpcLargePassRequest{Persona: in.Persona, Candidate: in.Candidate, Domain: in.Domain}
	resp := &grpcLargePassResponse{}
	if err := g.conn.Invoke(ctx, largePassMethod, req, resp); err != nil {
		return matching.LargePassResult{}, fmt.Errorf("llmprovider: LargePass RPC: %w", err)
	}
	return matching.LargePassResult{
		Score:           resp.Score,
		PositiveReasons: resp.PositiveReasons,
		NegativeReasons: resp.NegativeReasons,
		RedFlags:        resp.RedFlags,
		Notes:           resp.Notes,
	}, nil
}

// jsonCodecName is registered as a grpc content-subtype so grpc.Invoke
// marshals requests/responses with encoding/json instead of requiring
// generated protobuf message types.
const jsonCodecName = "json"

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error) { return json.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }
func (jsonCodec) Name() string { return jsonCodecName }
