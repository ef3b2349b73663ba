package bitbucket

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/tidwall/gjson"

	"github.com/miracodeai/mira/internal/config"
	"github.com/miracodeai/mira/internal/diffreview/llm"
	"github.com/miracodeai/mira/internal/diffreview/prompt"
	filterbb "github.com/miracodeai/mira/internal/filter/bitbucket"
)

// payloadFilter prunes webhook noise (HATEOAS links, reviewer lists, redundant
// actor/author duplication) before a payload is sent to the L2 extraction
// prompt, keeping the truncation budget for signal instead of boilerplate.
var payloadFilter = filterbb.NewPayloadFilter()

// WebhookEvent identifies the pull request a Bitbucket webhook delivery is
// about, extracted from the raw JSON body.
type WebhookEvent struct {
	ProjectKey    string
	RepoSlug      string
	PullRequestID int
	Title         string
	Author        string
}

// IsValid reports whether enough fields were populated to look up the PR.
func (e *WebhookEvent) IsValid() bool {
	return e != nil && e.ProjectKey != "" && e.RepoSlug != "" && e.PullRequestID != 0
}

// PRURL builds the identity string bitbucket.Provider.GetPRInfo expects.
func (e *WebhookEvent) PRURL() string {
	return fmt.Sprintf("/projects/%s/repos/%s/pull-requests/%d", e.ProjectKey, e.RepoSlug, e.PullRequestID)
}

// gjson path candidates for each field, prioritized left to right across the
// several Bitbucket Server/Cloud webhook payload shapes seen in practice.
var (
	pathsProjectKey = []string{
		"pullRequest.toRef.repository.project.key",
		"repository.project.key",
		"pullRequest.fromRef.repository.project.key",
		"project.key",
	}
	pathsRepoSlug = []string{
		"pullRequest.toRef.repository.slug",
		"repository.slug",
		"repository.name",
		"pullRequest.fromRef.repository.slug",
	}
	pathsID = []string{
		"pullRequest.id",
		"id",
	}
	pathsTitle = []string{
		"pullRequest.title",
		"title",
	}
	pathsAuthor = []string{
		"pullRequest.author.user.displayName",
		"pullRequest.author.user.name",
		"pullRequest.author.displayName",
		"pullRequest.author.name",
		"actor.displayName",
		"actor.name",
	}
)

// EventParser extracts a WebhookEvent from a raw webhook body. It tries a
// fast gjson-based probe (L1) first, and only falls back to an LLM-assisted
// extraction (L2) when the payload shape doesn't match any known pattern.
type EventParser struct {
	cfg config.WebhookConfig
	llm llm.Client
}

// NewEventParser constructs an EventParser. llmClient may be nil, in which
// case payloads that fail L1 probing are rejected outright.
func NewEventParser(cfg config.WebhookConfig, llmClient llm.Client) *EventParser {
	return &EventParser{cfg: cfg, llm: llmClient}
}

// Parse extracts a WebhookEvent from body, trying L1 first and falling back
// to L2 only if L1 didn't produce a usable result.
func (p *EventParser) Parse(ctx context.Context, body []byte) (*WebhookEvent, error) {
	event := p.probe(body)
	if event.IsValid() {
		return event, nil
	}

	if p.llm == nil {
		return nil, fmt.Errorf("bitbucket: payload did not match any known shape and no LLM fallback is configured")
	}

	slog.Warn("webhook L1 probing failed, attempting L2 LLM fallback")
	return p.askLLMToExtract(ctx, body)
}

func (p *EventParser) probe(body []byte) *WebhookEvent {
	if !gjson.ValidBytes(body) {
		return &WebhookEvent{}
	}

	idStr := probe(body, pathsID).String()
	var prID int
	fmt.Sscanf(idStr, "%d", &prID)

	return &WebhookEvent{
		ProjectKey:    probe(body, pathsProjectKey).String(),
		RepoSlug:      probe(body, pathsRepoSlug).String(),
		PullRequestID: prID,
		Title:         probe(body, pathsTitle).String(),
		Author:        probe(body, pathsAuthor).String(),
	}
}

func probe(body []byte, paths []string) gjson.Result {
	for _, path := range paths {
		res := gjson.GetBytes(body, path)
		if res.Exists() && res.Value() != nil {
			return res
		}
	}
	return gjson.Result{}
}

const extractionSystemPrompt = `You are a JSON extraction assistant. Given the raw body of a Bitbucket webhook ` +
	`delivery, identify the pull request it concerns. Respond with a single JSON object with exactly these keys: ` +
	`"project_key", "repo_slug", "pull_request_id" (integer), "title", "author". Use empty string or 0 for any ` +
	`field you can't determine. Respond with JSON only, no commentary.`

func (p *EventParser) askLLMToExtract(ctx context.Context, body []byte) (*WebhookEvent, error) {
	maxRetries := p.cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 2
	}

	truncated := payloadFilter.Filter(body)
	const maxLLMBodyBytes = 8000
	if len(truncated) > maxLLMBodyBytes {
		truncated = truncated[:maxLLMBodyBytes]
	}

	messages := []prompt.Message{
		{Role: "system", Content: extractionSystemPrompt},
		{Role: "user", Content: string(truncated)},
	}

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(time.Duration(attempt) * time.Second):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		raw, err := p.llm.Complete(ctx, messages, true, 0.0)
		if err != nil {
			lastErr = err
			slog.Warn("webhook L2 llm call failed", "attempt", attempt+1, "error", err)
			continue
		}

		var extracted struct {
			ProjectKey    string `json:"project_key"`
			RepoSlug      string `json:"repo_slug"`
			PullRequestID int    `json:"pull_request_id"`
			Title         string `json:"title"`
			Author        string `json:"author"`
		}
		if err := json.Unmarshal([]byte(raw), &extracted); err != nil {
			lastErr = fmt.Errorf("unmarshal llm response: %w", err)
			continue
		}
		return &WebhookEvent{
			ProjectKey: extracted.ProjectKey, RepoSlug: extracted.RepoSlug,
			PullRequestID: extracted.PullRequestID, Title: extracted.Title, Author: extracted.Author,
		}, nil
	}

	return nil, fmt.Errorf("bitbucket: l2 extraction failed: %w", lastErr)
}
