package webhook

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/miracodeai/mira/internal/bitbucket"
	"github.com/miracodeai/mira/internal/config"
	"github.com/miracodeai/mira/internal/diffreview/chunker"
	"github.com/miracodeai/mira/internal/diffreview/engine"
	"github.com/miracodeai/mira/internal/diffreview/prompt"
)

type nopLLM struct{}

func (nopLLM) Complete(ctx context.Context, messages []prompt.Message, jsonMode bool, temperature float64) (string, error) {
	return `{"comments": [], "summary": ""}`, nil
}
func (nopLLM) Usage() (int64, int64, int64) { return 0, 0, 0 }

const payload = `{"pullRequest": {"id": 7, "toRef": {"repository": {"slug": "repo", "project": {"key": "PROJ"}}}}}`

func newTestHandler(t *testing.T) *Handler {
	t.Helper()
	// No provider configured: ReviewPR will fail fast with "provider required",
	// which is enough to exercise the handler's accept/submit/metrics path.
	eng := engine.New(config.DefaultFilterConfig(), config.DefaultReviewConfig(), 120_000,
		nopLLM{}, prompt.NewBuilder(""), chunker.CharRatioCounter{}, nil, nil, "mira", false)
	parser := bitbucket.NewEventParser(config.DefaultWebhookConfig(), nil)
	pool := NewWorkerPool(2, 4)
	pool.Start()
	t.Cleanup(pool.Stop)
	return NewHandler(eng, parser, nil, pool, "", 2*1024*1024)
}

func TestHandler_AcceptsValidPayload(t *testing.T) {
	h := newTestHandler(t)
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(payload))
	w := httptest.NewRecorder()

	h.ServeHTTP(w, req)

	if w.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", w.Code, w.Body.String())
	}
}

func TestHandler_RejectsUnidentifiablePayload(t *testing.T) {
	h := newTestHandler(t)
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(`{"nonsense": true}`))
	w := httptest.NewRecorder()

	h.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestHandler_RejectsBadSignature(t *testing.T) {
	eng := engine.New(config.DefaultFilterConfig(), config.DefaultReviewConfig(), 120_000,
		nopLLM{}, prompt.NewBuilder(""), chunker.CharRatioCounter{}, nil, nil, "mira", false)
	parser := bitbucket.NewEventParser(config.DefaultWebhookConfig(), nil)
	pool := NewWorkerPool(1, 1)
	pool.Start()
	defer pool.Stop()
	h := NewHandler(eng, parser, nil, pool, "topsecret", 2*1024*1024)

	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(payload))
	req.Header.Set("X-Hub-Signature-256", "sha256=deadbeef")
	w := httptest.NewRecorder()

	h.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestHandler_QueueFullReturns429(t *testing.T) {
	eng := engine.New(config.DefaultFilterConfig(), config.DefaultReviewConfig(), 120_000,
		nopLLM{}, prompt.NewBuilder(""), chunker.CharRatioCounter{}, nil, nil, "mira", false)
	parser := bitbucket.NewEventParser(config.DefaultWebhookConfig(), nil)

	// Zero workers, zero queue capacity: every submission overflows immediately.
	pool := NewWorkerPool(0, 0)
	h := NewHandler(eng, parser, nil, pool, "", 2*1024*1024)

	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(payload))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", w.Code)
	}
}

func TestWorkerPool_RunsSubmittedJobs(t *testing.T) {
	pool := NewWorkerPool(2, 4)
	pool.Start()

	var mu sync.Mutex
	ran := 0
	var wg sync.WaitGroup
	wg.Add(3)
	for i := 0; i < 3; i++ {
		err := pool.Submit(func(ctx context.Context) error {
			defer wg.Done()
			mu.Lock()
			ran++
			mu.Unlock()
			return nil
		})
		if err != nil {
			t.Fatalf("submit failed: %v", err)
		}
	}

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("jobs did not complete in time")
	}

	pool.Stop()
	mu.Lock()
	defer mu.Unlock()
	if ran != 3 {
		t.Errorf("expected 3 jobs to run, got %d", ran)
	}
}
