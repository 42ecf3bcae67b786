package llmprovider

import (
	"context"
	"encoding/json"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"github.com/affinitylabs/matchengine/internal/matching"
)

// OpenAI implements matching.LLMProvider against the OpenAI chat
// completions API, asking the model for strict JSON so the response maps
// directly onto SmallPassResult/LargePassResult (spec §4.6 "deps.llm").
//
// Grounded on the teacher's transport split (pkg/agent.LLMClient is the
// interface, concrete clients live alongside it) but talks to the
// hosted API directly instead of a local gRPC sidecar, since the
// matching engine's per-pair calls are single-shot and need no
// streaming.
type OpenAI struct {
	client *openai.Client
	model  string
}

// NewOpenAI builds an OpenAI provider. model defaults to "gpt-4o-mini"
// when empty.
func NewOpenAI(apiKey, model string) *OpenAI {
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &OpenAI{client: openai.NewClient(apiKey), model: model}
}

type smallPassJSON struct {
	RankedIDs []int  `json:"ranked_ids"`
	Notes     string `json:"notes"`
}

func (o *OpenAI) SmallPass(ctx context.Context, in matching.SmallPassInput) (matching.SmallPassResult, error) {
	prompt, err := smallPassPrompt(in)
	if err != nil {
		return matching.SmallPassResult{}, err
	}
	raw, err := o.complete(ctx, smallPassSystemPrompt, prompt)
	if err != nil {
		return matching.SmallPassResult{}, err
	}
	var parsed smallPassJSON
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return matching.SmallPassResult{}, fmt.Errorf("llmprovider: small pass response: %w", err)
	}
	return matching.SmallPassResult{RankedIDs: parsed.RankedIDs, Notes: parsed.Notes}, nil
}

type largePassJSON struct {
	Score           float64  `json:"score"`
	PositiveReasons []string `json:"positive_reasons"`
	NegativeReasons []string `json:"negative_reasons"`
	RedFlags        []string `json:"red_flags"`
	Notes           string   `json:"notes"`
}

func (o *OpenAI) LargePass(ctx context.Context, in matching.LargePassInput) (matching.LargePassResult, error) {
	prompt, err := largePassPrompt(in)
	if err != nil {
		return matching.LargePassResult{}, err
	}
	raw, err := o.complete(ctx, largePassSystemPrompt, prompt)
	if err != nil {
		return matching.LargePassResult{}, err
	}
	var parsed largePassJSON
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return matching.LargePassResult{}, fmt.Errorf("llmprovider: large pass response: %w", err)
	}
	return matching.LargePassResult{
		Score:           parsed.Score,
		PositiveReasons: parsed.PositiveReasons,
		NegativeReasons: parsed.NegativeReasons,
		RedFlags:        parsed.RedFlags,
		Notes:           parsed.Notes,
	}, nil
}

const smallPassSystemPrompt = `You rank candidates for a single persona in a social matching system.
Respond with JSON only: {"ranked_ids": [int, ...], "notes": "string"}.
ranked_ids must be a subset of the candidate ids given, most promising first.`

const largePassSystemPrompt = `You assess one persona pair for a social matching system.
Respond with JSON only: {"score": number from -100 to 100, "positive_reasons": [string,...],
"negative_reasons": [string,...], "red_flags": [string,...], "notes": "string"}.`

func smallPassPrompt(in matching.SmallPassInput) (string, error) {
	payload := struct {
		Persona    *matching.Persona   `json:"persona"`
		Candidates []*matching.Persona `json:"candidates"`
		Domain     matching.Domain     `json:"domain"`
	}{in.Persona, in.Candidates, in.Domain}
	b, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func largePassPrompt(in matching.LargePassInput) (string, error) {
	payload := struct {
		Persona   *matching.Persona `json:"persona"`
		Candidate *matching.Persona `json:"candidate"`
		Domain    matching.Domain   `json:"domain"`
	}{in.Persona, in.Candidate, in.Domain}
	b, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (o *OpenAI) complete(ctx context.Context, system, user string) (string, error) {
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: 0.2,
	})
	if err != nil {
		return "", fmt.Errorf("llmprovider: chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("llmprovider: empty completion response")
	}
	return resp.Choices[0].Message.Content, nil
}
