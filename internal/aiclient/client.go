// Package aiclient is the boundary to AI providers. It normalizes every
// provider's response shape into a fixed {text, usage} value and every
// provider failure into the typed errors the orchestrator retries on, so
// nothing past this package branches on provider-specific formats.
package aiclient

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/googleai"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
	"golang.org/x/time/rate"

	"github.com/reviewpass/pkg/models"
)

// Response is the normalized provider reply. Usage is nil when the provider
// does not report token accounting.
type Response struct {
	Text  string
	Usage *models.TokenUsage
}

// ExecutionClient sends one prompt and returns the normalized response.
// Implementations surface failures as the typed errors in reviewerr.
type ExecutionClient interface {
	Send(ctx context.Context, promptText string) (Response, error)
}

// Options configures a langchain-backed client.
type Options struct {
	APIKey            string
	BaseURL           string
	Temperature       float64
	RequestsPerMinute int // client-side rate limit; 0 disables
}

// Client is the langchain-backed ExecutionClient covering the builtin
// providers.
type Client struct {
	provider string
	model    string
	llm      llms.Model
	limiter  *rate.Limiter
	temp     float64
	logger   zerolog.Logger
}

// New builds a client for the profile's provider. Unsupported providers are
// rejected here rather than at send time.
func New(ctx context.Context, profile models.ModelProfile, opts Options, logger zerolog.Logger) (*Client, error) {
	var llm llms.Model
	var err error

	switch profile.Provider {
	case "openai":
		llmOpts := []openai.Option{
			openai.WithModel(profile.Model),
			openai.WithToken(opts.APIKey),
		}
		if opts.BaseURL != "" {
			llmOpts = append(llmOpts, openai.WithBaseURL(opts.BaseURL))
		}
		llm, err = openai.New(llmOpts...)
	case "anthropic":
		llm, err = anthropic.New(
			anthropic.WithToken(opts.APIKey),
			anthropic.WithModel(profile.Model),
		)
	case "gemini":
		llm, err = googleai.New(ctx,
			googleai.WithAPIKey(opts.APIKey),
			googleai.WithDefaultModel(profile.Model),
		)
	case "ollama":
		llmOpts := []ollama.Option{ollama.WithModel(profile.Model)}
		if opts.BaseURL != "" {
			llmOpts = append(llmOpts, ollama.WithServerURL(opts.BaseURL))
		}
		llm, err = ollama.New(llmOpts...)
	default:
		return nil, fmt.Errorf("unsupported provider: %s", profile.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create %s client: %w", profile.Provider, err)
	}

	var limiter *rate.Limiter
	if opts.RequestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Limit(float64(opts.RequestsPerMinute)/60.0), 1)
	}

	return &Client{
		provider: profile.Provider,
		model:    profile.Model,
		llm:      llm,
		limiter:  limiter,
		temp:     opts.Temperature,
		logger:   logger.With().Str("provider", profile.Provider).Str("model", profile.Model).Logger(),
	}, nil
}

// Send performs one generation request. The context is honored throughout,
// including while waiting on the rate limiter, so mid-pass cancellation can
// abort an in-flight call.
func (c *Client) Send(ctx context.Context, promptText string) (Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return Response{}, classify(c.provider, err)
		}
	}

	start := time.Now()
	c.logger.Debug().Int("prompt_bytes", len(promptText)).Msg("Sending prompt")

	content := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeHuman, promptText),
	}
	callOpts := []llms.CallOption{}
	if c.temp > 0 {
		callOpts = append(callOpts, llms.WithTemperature(c.temp))
	}

	resp, err := c.llm.GenerateContent(ctx, content, callOpts...)
	if err != nil {
		c.logger.Warn().Err(err).Dur("elapsed", time.Since(start)).Msg("Generation failed")
		return Response{}, classify(c.provider, err)
	}
	if len(resp.Choices) == 0 {
		return Response{}, classify(c.provider, fmt.Errorf("empty response from provider"))
	}

	choice := resp.Choices[0]
	out := Response{
		Text:  choice.Content,
		Usage: usageFromGenerationInfo(choice.GenerationInfo),
	}

	c.logger.Debug().
		Dur("elapsed", time.Since(start)).
		Int("response_bytes", len(out.Text)).
		Bool("usage_reported", out.Usage != nil).
		Msg("Generation complete")

	return out, nil
}

// usageFromGenerationInfo digs provider-reported token counts out of the
// generation metadata. Key names differ per provider; all known spellings
// are checked.
func usageFromGenerationInfo(info map[string]any) *models.TokenUsage {
	if len(info) == 0 {
		return nil
	}

	lookup := func(keys ...string) (int, bool) {
		for _, k := range keys {
			v, ok := info[k]
			if !ok {
				continue
			}
			switch n := v.(type) {
			case int:
				return n, true
			case int64:
				return int(n), true
			case float64:
				return int(n), true
			}
		}
		return 0, false
	}

	input, okIn := lookup("PromptTokens", "prompt_tokens", "input_tokens", "InputTokens")
	output, okOut := lookup("CompletionTokens", "completion_tokens", "output_tokens", "OutputTokens")
	if !okIn && !okOut {
		return nil
	}
	return &models.TokenUsage{InputTokens: input, OutputTokens: output}
}
