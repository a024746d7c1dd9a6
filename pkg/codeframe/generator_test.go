package codeframe

import (
	"context"
	"errors"
	"testing"
	"time"

	"codeframe-be/internal/apperr"
	"codeframe-be/pkg/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedLLM returns canned responses in order and records how often it was
// called.
type scriptedLLM struct {
	responses []string
	calls     int
}

func (s *scriptedLLM) Chat(ctx context.Context, history []llm.Message, opts ...llm.Option) (string, error) {
	idx := s.calls
	s.calls++
	if idx >= len(s.responses) {
		return "", errors.New("no more scripted responses")
	}
	return s.responses[idx], nil
}

func (s *scriptedLLM) Generate(ctx context.Context, prompt string, opts ...llm.Option) (string, error) {
	return s.Chat(ctx, []llm.Message{{Role: "user", Content: prompt}}, opts...)
}

const validResponse = `{"theme": {"name": "Taste", "confidence": 0.8}, "codes": [{"name": "Too sweet", "confidence": 0.8}]}`

func input() PromptInput {
	return PromptInput{
		CategoryName: "Why did you stop buying the product?",
		Exemplars:    []string{"too sugary", "way too sweet for me"},
		MaxDepth:     3,
		Language:     "en",
	}
}

func TestGenerateParsesFirstTry(t *testing.T) {
	fake := &scriptedLLM{responses: []string{validResponse}}
	g := NewGenerator(fake, 12, time.Minute)

	p, usage, err := g.Generate(context.Background(), input())
	require.NoError(t, err)

	assert.Equal(t, "Taste", p.Theme.Name)
	assert.Equal(t, 1, fake.calls)
	assert.Greater(t, usage.Tokens, 0)
}

func TestGenerateRetriesOnceOnParseFailure(t *testing.T) {
	fake := &scriptedLLM{responses: []string{"not json at all", validResponse}}
	g := NewGenerator(fake, 12, time.Minute)

	p, _, err := g.Generate(context.Background(), input())
	require.NoError(t, err)

	assert.Equal(t, "Taste", p.Theme.Name)
	assert.Equal(t, 2, fake.calls)
}

func TestGenerateFailsAfterSecondParseFailure(t *testing.T) {
	fake := &scriptedLLM{responses: []string{"nope", "still nope"}}
	g := NewGenerator(fake, 12, time.Minute)

	_, _, err := g.Generate(context.Background(), input())

	assert.ErrorIs(t, err, apperr.ErrGenerationParse)
	assert.Equal(t, 2, fake.calls) // never a third attempt
}

func TestGenerateCapsExemplars(t *testing.T) {
	fake := &scriptedLLM{responses: []string{validResponse}}
	g := NewGenerator(fake, 3, time.Minute)

	in := input()
	in.Exemplars = []string{"a", "b", "c", "d", "e", "f"}

	_, usage, err := g.Generate(context.Background(), in)
	require.NoError(t, err)

	// prompt with 3 exemplars is shorter than one with 6 would be; compare
	// against an uncapped generator to pin the cap down
	fakeAll := &scriptedLLM{responses: []string{validResponse}}
	gAll := NewGenerator(fakeAll, 12, time.Minute)
	_, usageAll, err := gAll.Generate(context.Background(), in)
	require.NoError(t, err)

	assert.Less(t, usage.Tokens, usageAll.Tokens)
}

func TestGenerateProviderErrorPassesThrough(t *testing.T) {
	fake := &scriptedLLM{} // zero responses: first call errors
	g := NewGenerator(fake, 12, time.Minute)

	_, _, err := g.Generate(context.Background(), input())

	assert.Error(t, err)
	assert.NotErrorIs(t, err, apperr.ErrGenerationParse)
}
