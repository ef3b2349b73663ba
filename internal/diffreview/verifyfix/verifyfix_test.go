package verifyfix

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/miracodeai/mira/internal/config"
	"github.com/miracodeai/mira/internal/diffreview/domain"
	"github.com/miracodeai/mira/internal/diffreview/prompt"
)

type fakeFetcher struct {
	content map[string]string
	errs    map[string]error
}

func (f *fakeFetcher) FetchFileContent(ctx context.Context, path string) (string, error) {
	if err, ok := f.errs[path]; ok {
		return "", err
	}
	return f.content[path], nil
}

type fakeClient struct {
	response string
	err      error
	lastMsgs []prompt.Message
}

func (c *fakeClient) Complete(ctx context.Context, messages []prompt.Message, jsonMode bool, temperature float64) (string, error) {
	c.lastMsgs = messages
	return c.response, c.err
}

func (c *fakeClient) Usage() (int64, int64, int64) { return 0, 0, 0 }

func testConfig() config.VerifyFixConfig {
	return config.VerifyFixConfig{
		Enabled:               true,
		MaxFullFileLines:      500,
		LargeFileContextLines: 50,
		MaxConcurrentFetches:  5,
	}
}

func TestRun_DisabledReturnsNil(t *testing.T) {
	cfg := testConfig()
	cfg.Enabled = false
	v := NewVerifier(&fakeClient{}, cfg)
	got := v.Run(context.Background(), []domain.UnresolvedThread{{ThreadID: "t1", Path: "a.go"}}, &fakeFetcher{})
	if got != nil {
		t.Errorf("expected nil, got %+v", got)
	}
}

func TestRun_EmptyThreadsReturnsNil(t *testing.T) {
	v := NewVerifier(&fakeClient{}, testConfig())
	got := v.Run(context.Background(), nil, &fakeFetcher{})
	if got != nil {
		t.Errorf("expected nil, got %+v", got)
	}
}

func TestRun_MarksConfirmedFixedThreads(t *testing.T) {
	client := &fakeClient{response: `{"results": [{"id": "t1", "fixed": true}, {"id": "t2", "fixed": false}]}`}
	v := NewVerifier(client, testConfig())
	fetcher := &fakeFetcher{content: map[string]string{"a.go": "line one\nline two\n"}}
	threads := []domain.UnresolvedThread{
		{ThreadID: "t1", Path: "a.go", Line: 1, Body: "issue one"},
		{ThreadID: "t2", Path: "a.go", Line: 2, Body: "issue two"},
	}
	got := v.Run(context.Background(), threads, fetcher)
	if len(got) != 2 {
		t.Fatalf("expected 2 decisions, got %d", len(got))
	}
	byID := map[string]bool{}
	for _, d := range got {
		byID[d.ThreadID] = d.Fixed
	}
	if !byID["t1"] || byID["t2"] {
		t.Errorf("expected t1 fixed and t2 unresolved, got %+v", byID)
	}
}

func TestRun_FetchFailureLeavesThreadsUnresolved(t *testing.T) {
	client := &fakeClient{response: `{"results": []}`}
	v := NewVerifier(client, testConfig())
	fetcher := &fakeFetcher{errs: map[string]error{"a.go": errors.New("fetch failed")}}
	threads := []domain.UnresolvedThread{{ThreadID: "t1", Path: "a.go", Line: 1, Body: "issue"}}
	got := v.Run(context.Background(), threads, fetcher)
	if len(got) != 1 || got[0].Fixed {
		t.Errorf("expected unresolved decision for fetch failure, got %+v", got)
	}
}

func TestRun_LLMErrorLeavesThreadsUnresolved(t *testing.T) {
	client := &fakeClient{err: errors.New("llm down")}
	v := NewVerifier(client, testConfig())
	fetcher := &fakeFetcher{content: map[string]string{"a.go": "content\n"}}
	threads := []domain.UnresolvedThread{{ThreadID: "t1", Path: "a.go", Line: 1, Body: "issue"}}
	got := v.Run(context.Background(), threads, fetcher)
	if len(got) != 1 || got[0].Fixed {
		t.Errorf("expected unresolved decision on LLM error, got %+v", got)
	}
}

func TestRenderFileContent_SmallFileNumbersInFull(t *testing.T) {
	content := "a\nb\nc"
	cfg := testConfig()
	out := renderFileContent(content, nil, cfg)
	if !strings.Contains(out, "1| a") || !strings.Contains(out, "3| c") {
		t.Errorf("expected full numbered file, got %q", out)
	}
}

func TestRenderFileContent_LargeFileWindowsAroundThreads(t *testing.T) {
	lines := make([]string, 600)
	for i := range lines {
		lines[i] = "x"
	}
	content := strings.Join(lines, "\n")
	cfg := testConfig()
	threads := []domain.UnresolvedThread{{Line: 10}, {Line: 400}}
	out := renderFileContent(content, threads, cfg)
	if !strings.Contains(out, "\n...\n") {
		t.Errorf("expected separate windows joined by ellipsis, got length %d", len(out))
	}
	if strings.Contains(out, "300| x") {
		t.Errorf("expected far-away line 300 excluded from windows")
	}
}

func TestRenderFileContent_LargeFileUnknownLineFallsBackToFull(t *testing.T) {
	lines := make([]string, 600)
	for i := range lines {
		lines[i] = "x"
	}
	content := strings.Join(lines, "\n")
	cfg := testConfig()
	threads := []domain.UnresolvedThread{{Line: 0}}
	out := renderFileContent(content, threads, cfg)
	if !strings.Contains(out, "600| x") {
		t.Errorf("expected full file fallback, got length %d", len(out))
	}
}

func TestParseFixedIDs_ValidJSON(t *testing.T) {
	got := ParseFixedIDs(`{"results": [{"id": "t1", "fixed": true}, {"id": "t2", "fixed": false}]}`)
	if !got["t1"] || got["t2"] {
		t.Errorf("expected only t1 fixed, got %+v", got)
	}
}

func TestParseFixedIDs_StripsCodeFence(t *testing.T) {
	got := ParseFixedIDs("```json\n{\"results\": [{\"id\": \"t1\", \"fixed\": true}]}\n```")
	if !got["t1"] {
		t.Errorf("expected t1 fixed after stripping fence, got %+v", got)
	}
}

func TestParseFixedIDs_InvalidJSONReturnsEmpty(t *testing.T) {
	got := ParseFixedIDs("not json at all")
	if len(got) != 0 {
		t.Errorf("expected empty map, got %+v", got)
	}
}
