package store

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/miracodeai/mira/internal/diffreview/domain"
)

func TestSQLiteStore_SaveAndListByPR(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "reviews.db")
	s, err := Open(dsn)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()

	ctx := context.Background()
	record := &ReviewRecord{
		ID:         "r1",
		ProjectKey: "PROJ",
		RepoSlug:   "repo",
		PRNumber:   42,
		Result:     &domain.ReviewResult{Summary: "looks fine", ReviewedFiles: 2},
		CreatedAt:  time.Now().UTC(),
		DurationMs: 1234,
		Status:     "success",
	}
	if err := s.SaveReview(ctx, record); err != nil {
		t.Fatalf("save: %v", err)
	}

	records, err := s.ListReviewsByPR(ctx, "PROJ", "repo", 42)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if records[0].Result.Summary != "looks fine" || records[0].Status != "success" {
		t.Errorf("unexpected record: %+v", records[0])
	}
}

func TestSQLiteStore_ListRecentReviews(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "reviews.db")
	s, err := Open(dsn)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		record := &ReviewRecord{
			ID: fmt.Sprintf("r%d", i), ProjectKey: "P", RepoSlug: "r", PRNumber: i,
			Result: &domain.ReviewResult{Summary: "s"}, CreatedAt: time.Now().UTC(), Status: "success",
		}
		if err := s.SaveReview(ctx, record); err != nil {
			t.Fatalf("save %d: %v", i, err)
		}
	}

	records, err := s.ListRecentReviews(ctx, 2)
	if err != nil {
		t.Fatalf("list recent: %v", err)
	}
	if len(records) != 2 {
		t.Errorf("expected 2 records, got %d", len(records))
	}
}
