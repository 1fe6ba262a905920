package assistant

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const groqBaseURL = "https://api.groq.com/openai/v1"

// SupportedModels is the fixed fallback chain for completions. The primary
// model is tried first; on a decommissioned/not-found error the next one is
// tried, in order.
var SupportedModels = []string{
	"llama-3.1-8b-instant",
	"llama-3.1-70b-versatile",
	"gemma2-9b-it",
}

// Completer produces a completion for a system prompt and user message with a
// selectable model. Implementations distinguish model-unavailable errors from
// other failures via IsModelUnavailable.
type Completer interface {
	Complete(ctx context.Context, model, systemPrompt, userMessage string, temperature float64) (string, error)
}

// GroqCompleter calls the Groq chat completions API through its
// OpenAI-compatible endpoint.
type GroqCompleter struct {
	client *openai.Client
}

// NewGroqCompleter builds a completer from the GROQ_API_KEY environment
// variable. Returns nil with no error when the key is unset, so callers can
// serve the configuration-error fallback instead of failing startup.
func NewGroqCompleter() *GroqCompleter {
	apiKey := os.Getenv("GROQ_API_KEY")
	if apiKey == "" {
		return nil
	}
	client := openai.NewClient(
		option.WithAPIKey(apiKey),
		option.WithBaseURL(groqBaseURL),
	)
	return &GroqCompleter{client: &client}
}

// Complete runs a single chat completion against the given model.
func (c *GroqCompleter) Complete(ctx context.Context, model, systemPrompt, userMessage string, temperature float64) (string, error) {
	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(userMessage),
		},
		Model:       model,
		Temperature: openai.Float(temperature),
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// IsModelUnavailable reports whether the error means the requested model was
// decommissioned or does not exist. Only these error classes advance the
// fallback chain; anything else aborts immediately.
func IsModelUnavailable(err error) bool {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		if apiErr.Code == "model_decommissioned" || apiErr.Code == "model_not_found" {
			return true
		}
	}
	return false
}

// providerMessage extracts a user-presentable message from a completion
// error, preferring the provider's own message.
func providerMessage(err error) string {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	if err != nil {
		return err.Error()
	}
	return ""
}
