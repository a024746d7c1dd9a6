package codeframe

import (
	"context"
	"fmt"
	"time"

	"codeframe-be/internal/apperr"
	"codeframe-be/pkg/llm"
	"codeframe-be/pkg/utils"
)

// Generator turns a cluster's exemplars into a hierarchy proposal through the
// LLM provider. Each cluster costs at most two calls: the initial ask plus
// one stricter re-ask when the response does not parse.
type Generator struct {
	provider    llm.LLMProvider
	exemplarCap int
	callTimeout time.Duration
}

type Usage struct {
	Tokens int
}

func NewGenerator(provider llm.LLMProvider, exemplarCap int, callTimeout time.Duration) *Generator {
	if exemplarCap <= 0 {
		exemplarCap = 12
	}
	if callTimeout <= 0 {
		callTimeout = 120 * time.Second
	}
	return &Generator{
		provider:    provider,
		exemplarCap: exemplarCap,
		callTimeout: callTimeout,
	}
}

// Generate builds the bounded prompt and parses the response strictly. On a
// parse failure it re-asks once with the failure quoted; a second failure
// returns ErrGenerationParse for the orchestrator to record on the cluster.
func (g *Generator) Generate(ctx context.Context, in PromptInput) (*Proposal, Usage, error) {
	if len(in.Exemplars) > g.exemplarCap {
		in.Exemplars = in.Exemplars[:g.exemplarCap]
	}
	if in.MaxDepth < 2 {
		in.MaxDepth = 2
	}
	if in.MaxDepth > 3 {
		in.MaxDepth = 3
	}

	var usage Usage

	prompt := BuildPrompt(in)
	raw, err := g.call(ctx, prompt)
	usage.Tokens += utils.EstimateTokens(prompt) + utils.EstimateTokens(raw)
	if err != nil {
		return nil, usage, err
	}

	proposal, parseErr := ParseProposal(raw, in.MaxDepth)
	if parseErr == nil {
		return proposal, usage, nil
	}

	retryPrompt := BuildRetryPrompt(in, parseErr)
	raw, err = g.call(ctx, retryPrompt)
	usage.Tokens += utils.EstimateTokens(retryPrompt) + utils.EstimateTokens(raw)
	if err != nil {
		return nil, usage, err
	}

	proposal, parseErr = ParseProposal(raw, in.MaxDepth)
	if parseErr != nil {
		return nil, usage, fmt.Errorf("%w: %v", apperr.ErrGenerationParse, parseErr)
	}
	return proposal, usage, nil
}

func (g *Generator) call(ctx context.Context, prompt string) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, g.callTimeout)
	defer cancel()

	return g.provider.Chat(callCtx, []llm.Message{
		{Role: "system", Content: systemInstruction},
		{Role: "user", Content: prompt},
	}, llm.WithTemperature(0.2))
}
