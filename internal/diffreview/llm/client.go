// Package llm wraps the OpenAI chat-completions client with the retry,
// fallback-model, and token-accounting behavior the review engine needs,
// narrowed to a single Complete call rather than the teacher's full ADK
// model.LLM surface.
package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/shared"

	"github.com/miracodeai/mira/internal/diffreview/prompt"
	"github.com/miracodeai/mira/internal/types"
)

// Client is the narrow surface the review engine depends on, satisfied by
// *Chat and easily faked in tests.
type Client interface {
	Complete(ctx context.Context, messages []prompt.Message, jsonMode bool, temperature float64) (string, error)
	Usage() (promptTokens, completionTokens, totalTokens int64)
}

// Chat is the production Client, backed by the OpenAI-compatible
// chat-completions API. A fallback model is retried once if the primary
// model's request fails with a retryable error.
type Chat struct {
	client        *openai.Client
	model         string
	fallbackModel string
	maxRetries    int
	backoff       time.Duration

	promptTokens     atomic.Int64
	completionTokens atomic.Int64
	totalTokens      atomic.Int64
}

// maxBackoff caps the exponential wait between retries.
const maxBackoff = 30 * time.Second

// NewChat returns a Chat client for model, retrying transient failures up
// to maxRetries times with exponential backoff starting at backoff and
// capped at maxBackoff, and falling back to fallbackModel (if non-empty)
// after retries on the primary model are exhausted.
func NewChat(client *openai.Client, model, fallbackModel string, maxRetries int, backoff time.Duration) *Chat {
	return &Chat{
		client:        client,
		model:         model,
		fallbackModel: fallbackModel,
		maxRetries:    maxRetries,
		backoff:       backoff,
	}
}

// Complete sends messages to the LLM and returns the first choice's text
// content. jsonMode requests a JSON-object response format, used for every
// prompt shape except the conversational follow-up.
func (c *Chat) Complete(ctx context.Context, messages []prompt.Message, jsonMode bool, temperature float64) (string, error) {
	content, err := c.completeWithModel(ctx, c.model, messages, jsonMode, temperature)
	if err == nil {
		return content, nil
	}

	var retryable *types.RetryableError
	if c.fallbackModel != "" && errors.As(err, &retryable) {
		slog.Warn("llm primary model failed, trying fallback", "model", c.model, "fallback", c.fallbackModel, "error", err)
		return c.completeWithModel(ctx, c.fallbackModel, messages, jsonMode, temperature)
	}

	return "", err
}

func (c *Chat) completeWithModel(ctx context.Context, model string, messages []prompt.Message, jsonMode bool, temperature float64) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model:       shared.ChatModel(model),
		Messages:    toOpenAIMessages(messages),
		Temperature: openai.Float(temperature),
	}
	if jsonMode {
		val := shared.NewResponseFormatJSONObjectParam()
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{OfJSONObject: &val}
	}

	var lastErr error
	wait := c.backoff

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(wait):
			}
			wait *= 2
			if wait > maxBackoff {
				wait = maxBackoff
			}
		}

		resp, err := c.client.Chat.Completions.New(ctx, params)
		if err != nil {
			lastErr = c.wrapError(err)
			if !isRetryable(lastErr) {
				return "", lastErr
			}
			continue
		}

		if len(resp.Choices) == 0 {
			lastErr = fmt.Errorf("llm returned no choices")
			continue
		}

		c.recordUsage(resp.Usage)
		return resp.Choices[0].Message.Content, nil
	}

	return "", fmt.Errorf("llm request exhausted %d retries: %w", c.maxRetries, lastErr)
}

func (c *Chat) recordUsage(usage openai.CompletionUsage) {
	c.promptTokens.Add(usage.PromptTokens)
	c.completionTokens.Add(usage.CompletionTokens)
	c.totalTokens.Add(usage.TotalTokens)
}

// Usage returns the cumulative token counts across every Complete call
// made through this client.
func (c *Chat) Usage() (promptTokens, completionTokens, totalTokens int64) {
	return c.promptTokens.Load(), c.completionTokens.Load(), c.totalTokens.Load()
}

func (c *Chat) wrapError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode == 429 || (apiErr.StatusCode >= 500 && apiErr.StatusCode < 600) {
			return types.NewRetryableError(err)
		}
	}
	return err
}

func isRetryable(err error) bool {
	var retryable *types.RetryableError
	return errors.As(err, &retryable)
}

func toOpenAIMessages(messages []prompt.Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, len(messages))
	for i, m := range messages {
		switch m.Role {
		case "system":
			out[i] = openai.SystemMessage(m.Content)
		case "assistant":
			out[i] = openai.AssistantMessage(m.Content)
		default:
			out[i] = openai.UserMessage(m.Content)
		}
	}
	return out
}
