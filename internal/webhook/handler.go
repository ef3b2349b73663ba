// Package webhook exposes the HTTP surface that receives Bitbucket webhook
// deliveries and drives them through the review engine off the request
// goroutine, bounded by a worker pool.
package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/miracodeai/mira/internal/bitbucket"
	"github.com/miracodeai/mira/internal/diffreview/domain"
	"github.com/miracodeai/mira/internal/diffreview/engine"
	"github.com/miracodeai/mira/internal/metrics"
	"github.com/miracodeai/mira/internal/store"
	syncutil "github.com/miracodeai/mira/internal/sync"
)

// Handler receives Bitbucket webhook deliveries, verifies their signature,
// extracts the PR identity, and submits a review job to its worker pool.
type Handler struct {
	engine      *engine.Engine
	eventParser *bitbucket.EventParser
	reviewStore store.Store // nil disables persistence
	pool        *WorkerPool
	prLocks     *syncutil.KeyLock
	secret      string
	maxBodySize int64
}

// NewHandler constructs a Handler. reviewStore may be nil to skip
// persistence entirely.
func NewHandler(eng *engine.Engine, eventParser *bitbucket.EventParser, reviewStore store.Store, pool *WorkerPool, secret string, maxBodySize int64) *Handler {
	return &Handler{
		engine: eng, eventParser: eventParser, reviewStore: reviewStore,
		pool: pool, prLocks: syncutil.NewKeyLock(),
		secret: secret, maxBodySize: maxBodySize,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		metrics.WebhookRequests.WithLabelValues("invalid").Inc()
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, h.maxBodySize+1))
	if err != nil {
		metrics.WebhookRequests.WithLabelValues("invalid").Inc()
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}
	if int64(len(body)) > h.maxBodySize {
		metrics.WebhookRequests.WithLabelValues("dropped").Inc()
		http.Error(w, "payload too large", http.StatusRequestEntityTooLarge)
		return
	}

	if h.secret != "" && !h.verifySignature(r.Header.Get("X-Hub-Signature-256"), body) {
		metrics.WebhookRequests.WithLabelValues("invalid").Inc()
		http.Error(w, "invalid signature", http.StatusUnauthorized)
		return
	}

	event, err := h.eventParser.Parse(r.Context(), body)
	if err != nil {
		slog.Warn("webhook payload parse failed", "error", err)
		metrics.WebhookRequests.WithLabelValues("invalid").Inc()
		http.Error(w, "could not identify pull request", http.StatusBadRequest)
		return
	}

	job := func(ctx context.Context) error { return h.review(ctx, event) }
	if err := h.pool.Submit(job); err != nil {
		slog.Warn("webhook job queue full, dropping delivery", "pr_url", event.PRURL())
		metrics.WebhookRequests.WithLabelValues("dropped").Inc()
		http.Error(w, "too many in-flight reviews", http.StatusTooManyRequests)
		return
	}

	metrics.WebhookRequests.WithLabelValues("accepted").Inc()
	w.WriteHeader(http.StatusAccepted)
	w.Write([]byte("accepted"))
}

func (h *Handler) verifySignature(header string, body []byte) bool {
	const prefix = "sha256="
	if !strings.HasPrefix(header, prefix) {
		return false
	}
	mac := hmac.New(sha256.New, []byte(h.secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(strings.TrimPrefix(header, prefix)))
}

// review runs a single PR through the engine and persists the outcome. It
// never returns an error that would surface to the caller since it always
// runs asynchronously, off the worker pool; failures are logged and counted.
func (h *Handler) review(ctx context.Context, event *bitbucket.WebhookEvent) error {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("panic while reviewing pull request", "pr_url", event.PRURL(), "panic", r)
			metrics.PullRequestTotal.WithLabelValues("failed").Inc()
		}
	}()

	// Serialize concurrent deliveries for the same PR: two webhook events
	// firing back to back (e.g. a rapid-fire push and its follow-up) must
	// not race each other through the provider's comment APIs.
	prKey := event.PRURL()
	h.prLocks.Lock(prKey)
	defer h.prLocks.Unlock(prKey)

	start := time.Now()
	result, err := h.engine.ReviewPR(ctx, event.PRURL())
	duration := time.Since(start)

	status := "success"
	if err != nil {
		status = "failed"
		slog.Error("review failed", "pr_url", event.PRURL(), "error", err)
	}
	metrics.PullRequestTotal.WithLabelValues(status).Inc()
	metrics.ProcessingDuration.WithLabelValues(status).Observe(duration.Seconds())

	if err != nil || h.reviewStore == nil {
		return nil
	}

	record := &store.ReviewRecord{
		ID:         recordID(event),
		ProjectKey: event.ProjectKey,
		RepoSlug:   event.RepoSlug,
		PRNumber:   event.PullRequestID,
		Result:     withDefault(result),
		CreatedAt:  start.UTC(),
		DurationMs: duration.Milliseconds(),
		Status:     status,
	}
	if err := h.reviewStore.SaveReview(ctx, record); err != nil {
		slog.Warn("failed to persist review record", "pr_url", event.PRURL(), "error", err)
	}
	return nil
}

func withDefault(result *domain.ReviewResult) *domain.ReviewResult {
	if result != nil {
		return result
	}
	return &domain.ReviewResult{}
}

func recordID(event *bitbucket.WebhookEvent) string {
	return event.ProjectKey + "/" + event.RepoSlug + "/" + time.Now().UTC().Format("20060102T150405.000000000")
}
