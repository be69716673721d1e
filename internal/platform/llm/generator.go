package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// Generator is the injected text-generation capability used by the criteria
// pipeline. Implementations are swappable: a model-backed client in
// production, a canned stub in tests.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// OpenAI is a Generator backed by an OpenAI-compatible chat model.
type OpenAI struct {
	client *openai.LLM
}

// NewOpenAI constructs a model-backed generator. The API key is read from the
// standard OPENAI_API_KEY environment variable by the underlying client;
// passing it explicitly overrides that.
func NewOpenAI(model, apiKey string) (*OpenAI, error) {
	opts := []openai.Option{openai.WithModel(model)}
	if apiKey != "" {
		opts = append(opts, openai.WithToken(apiKey))
	}
	client, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("create openai client: %w", err)
	}
	return &OpenAI{client: client}, nil
}

func (o *OpenAI) Generate(ctx context.Context, prompt string) (string, error) {
	out, err := llms.GenerateFromSinglePrompt(ctx, o.client, prompt)
	if err != nil {
		return "", fmt.Errorf("generate completion: %w", err)
	}
	return out, nil
}

// ErrDisabled is returned when no model-backed generator is configured.
var ErrDisabled = errors.New("llm generation is not configured")

// Disabled is a Generator that always fails. It stands in when no API key is
// configured so that deterministic endpoints keep working and LLM-backed ones
// fail with a clear error.
type Disabled struct{}

func (Disabled) Generate(context.Context, string) (string, error) {
	return "", ErrDisabled
}

// Static is a scripted Generator for tests: it returns its queued responses
// in order and fails when the script is exhausted.
type Static struct {
	Responses []string
	next      int
}

func (s *Static) Generate(context.Context, string) (string, error) {
	if s.next >= len(s.Responses) {
		return "", errors.New("static generator: no responses left")
	}
	out := s.Responses[s.next]
	s.next++
	return out, nil
}
