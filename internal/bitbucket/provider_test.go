package bitbucket

import (
	"context"
	"testing"

	"github.com/miracodeai/mira/internal/diffreview/domain"
)

type call struct {
	server, tool string
	args         map[string]interface{}
}

type fakeCaller struct {
	calls     []call
	responses map[string]any
	errs      map[string]error
}

func (f *fakeCaller) CallTool(ctx context.Context, server, tool string, args map[string]interface{}) (any, error) {
	f.calls = append(f.calls, call{server: server, tool: tool, args: args})
	if err, ok := f.errs[tool]; ok {
		return nil, err
	}
	return f.responses[tool], nil
}

func testPR() *domain.PRInfo {
	return &domain.PRInfo{Owner: "PROJ", Repo: "repo", Number: 42}
}

func TestGetPRInfo_ParsesURLAndFields(t *testing.T) {
	caller := &fakeCaller{responses: map[string]any{
		"bitbucket_get_pull_request": map[string]interface{}{
			"title":       "Add widget",
			"description": "Does a thing",
			"toRef":       map[string]interface{}{"displayId": "main"},
			"fromRef":     map[string]interface{}{"displayId": "feature/widget"},
		},
	}}
	p := New(caller, "mira[bot]", 0)
	info, err := p.GetPRInfo(context.Background(), "https://bitbucket.example.com/projects/PROJ/repos/repo/pull-requests/42/overview")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if info.Title != "Add widget" || info.BaseBranch != "main" || info.HeadBranch != "feature/widget" {
		t.Errorf("unexpected PR info: %+v", info)
	}
	if info.Owner != "PROJ" || info.Repo != "repo" || info.Number != 42 {
		t.Errorf("unexpected identity: %+v", info)
	}
}

func TestGetPRInfo_InvalidURLReturnsError(t *testing.T) {
	p := New(&fakeCaller{}, "bot", 0)
	_, err := p.GetPRInfo(context.Background(), "https://example.com/not-a-pr-url")
	if err == nil {
		t.Fatal("expected error for unparseable URL")
	}
}

func TestGetPRDiff_ExtractsTextFromContentEnvelope(t *testing.T) {
	caller := &fakeCaller{responses: map[string]any{
		"bitbucket_get_pull_request_diff": map[string]interface{}{
			"content": []interface{}{map[string]interface{}{"text": "diff --git a/x b/x\n"}},
		},
	}}
	p := New(caller, "bot", 0)
	diff, err := p.GetPRDiff(context.Background(), testPR())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff != "diff --git a/x b/x\n" {
		t.Errorf("unexpected diff text: %q", diff)
	}
}

func TestGetFileContent_PassesPathAndRef(t *testing.T) {
	caller := &fakeCaller{responses: map[string]any{"bitbucket_get_file_content": "package main\n"}}
	p := New(caller, "bot", 0)
	content, err := p.GetFileContent(context.Background(), testPR(), "main.go", "feature/widget")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if content != "package main\n" {
		t.Errorf("unexpected content: %q", content)
	}
	if caller.calls[0].args["path"] != "main.go" || caller.calls[0].args["at"] != "feature/widget" {
		t.Errorf("unexpected args: %+v", caller.calls[0].args)
	}
}

func TestGetUnresolvedBotThreads_FiltersByAuthorAndResolvedState(t *testing.T) {
	caller := &fakeCaller{responses: map[string]any{
		"bitbucket_get_pull_request_comments": map[string]interface{}{
			"values": []interface{}{
				map[string]interface{}{
					"id":       "1",
					"author":   map[string]interface{}{"name": "mira[bot]"},
					"resolved": false,
					"anchor":   map[string]interface{}{"path": "a.go", "line": 10},
					"content":  map[string]interface{}{"raw": "issue one"},
				},
				map[string]interface{}{
					"id":       "2",
					"author":   map[string]interface{}{"name": "mira[bot]"},
					"resolved": true,
					"anchor":   map[string]interface{}{"path": "b.go", "line": 5},
					"content":  map[string]interface{}{"raw": "already resolved"},
				},
				map[string]interface{}{
					"id":       "3",
					"author":   map[string]interface{}{"name": "human-reviewer"},
					"resolved": false,
					"anchor":   map[string]interface{}{"path": "c.go", "line": 1},
					"content":  map[string]interface{}{"raw": "human comment"},
				},
			},
		},
	}}
	p := New(caller, "Mira[bot]", 0)
	threads, err := p.GetUnresolvedBotThreads(context.Background(), testPR(), "Mira[bot]")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(threads) != 1 || threads[0].ThreadID != "1" || threads[0].Path != "a.go" || threads[0].Line != 10 {
		t.Errorf("unexpected threads: %+v", threads)
	}
}

func TestResolveThreads_CountsSuccesses(t *testing.T) {
	caller := &fakeCaller{errs: map[string]error{}}
	p := New(caller, "bot", 2)
	n, err := p.ResolveThreads(context.Background(), testPR(), []string{"1", "2", "3"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 3 {
		t.Errorf("expected all 3 resolved, got %d", n)
	}
}

func TestFindBotComment_FindsByMarker(t *testing.T) {
	caller := &fakeCaller{responses: map[string]any{
		"bitbucket_get_pull_request_comments": map[string]interface{}{
			"values": []interface{}{
				map[string]interface{}{"id": "9", "content": map[string]interface{}{"raw": "hello <!-- mira-walkthrough --> world"}},
			},
		},
	}}
	p := New(caller, "bot", 0)
	id, found, err := p.FindBotComment(context.Background(), testPR(), "<!-- mira-walkthrough -->")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !found || id != "9" {
		t.Errorf("expected found id 9, got found=%v id=%q", found, id)
	}
}

func TestFindBotComment_NotFound(t *testing.T) {
	caller := &fakeCaller{responses: map[string]any{
		"bitbucket_get_pull_request_comments": map[string]interface{}{"values": []interface{}{}},
	}}
	p := New(caller, "bot", 0)
	_, found, err := p.FindBotComment(context.Background(), testPR(), "<!-- marker -->")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if found {
		t.Error("expected not found")
	}
}

func TestPostReview_PostsCommentsThenSummary(t *testing.T) {
	caller := &fakeCaller{responses: map[string]any{}}
	p := New(caller, "bot", 5)
	result := &domain.ReviewResult{
		Comments: []domain.ReviewComment{{Path: "a.go", Line: 1, Title: "t", Body: "b", Severity: domain.SeverityWarning}},
		Summary:  "Overall looks fine.",
	}
	if err := p.PostReview(context.Background(), testPR(), result); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	toolCalls := map[string]int{}
	for _, c := range caller.calls {
		toolCalls[c.tool]++
	}
	if toolCalls["bitbucket_add_pull_request_comment"] != 2 {
		t.Errorf("expected 2 add-comment calls (inline + summary), got %d", toolCalls["bitbucket_add_pull_request_comment"])
	}
}

func TestUpdateComment_PassesCommentIDAndBody(t *testing.T) {
	caller := &fakeCaller{}
	p := New(caller, "bot", 0)
	if err := p.UpdateComment(context.Background(), testPR(), "55", "new body"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if caller.calls[0].args["commentId"] != "55" || caller.calls[0].args["commentText"] != "new body" {
		t.Errorf("unexpected args: %+v", caller.calls[0].args)
	}
}
