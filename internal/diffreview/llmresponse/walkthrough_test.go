package llmresponse

import "testing"

func TestParseWalkthrough_ValidJSON(t *testing.T) {
	raw := `{"summary": "Adds a widget.", "effort": {"level": 2, "label": "moderate", "minutes": 20}, "file_changes": [{"path": "a.go", "change_type": "modified", "description": "tweak", "group": "Backend"}]}`
	resp, err := ParseWalkthrough(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Summary != "Adds a widget." || resp.Effort.Minutes != 20 || len(resp.FileChanges) != 1 {
		t.Errorf("unexpected parse result: %+v", resp)
	}
}

func TestParseWalkthrough_InvalidJSONReturnsParseError(t *testing.T) {
	_, err := ParseWalkthrough("not json")
	if _, ok := err.(*ResponseParseError); !ok {
		t.Fatalf("expected *ResponseParseError, got %T", err)
	}
}

func TestParseWalkthrough_NonObjectReturnsParseError(t *testing.T) {
	_, err := ParseWalkthrough(`["a", "b"]`)
	if _, ok := err.(*ResponseParseError); !ok {
		t.Fatalf("expected *ResponseParseError, got %T", err)
	}
}

func TestConvertToWalkthroughResult_MapsFields(t *testing.T) {
	resp := WalkthroughResponse{
		Summary: "summary text",
		Effort:  &walkthroughEffort{Level: 3, Label: "high", Minutes: 45},
		FileChanges: []walkthroughFileChange{
			{Path: "a.go", ChangeType: "added", Description: "new file", Group: "Core"},
		},
		SequenceDiagram: "A->>B: x",
	}
	result := ConvertToWalkthroughResult(resp)
	if result.Summary != "summary text" || result.Effort.Minutes != 45 {
		t.Errorf("unexpected result: %+v", result)
	}
	if len(result.FileChanges) != 1 || result.FileChanges[0].Path != "a.go" || string(result.FileChanges[0].ChangeType) != "added" {
		t.Errorf("unexpected file changes: %+v", result.FileChanges)
	}
	if result.SequenceDiagram != "A->>B: x" {
		t.Errorf("expected sequence diagram carried over")
	}
}
