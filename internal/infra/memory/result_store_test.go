package memory

import (
	"context"
	"testing"
	"time"

	"quiz-stats-service/internal/domain"
)

func TestResultStoreCRUD(t *testing.T) {
	ctx := context.Background()
	store := NewResultStore()
	base := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

	for i, id := range []string{"r2", "r1", "r3"} {
		quizID := "quiz-1"
		if id == "r3" {
			quizID = "quiz-2"
		}
		err := store.SaveResult(ctx, domain.Result{ID: id, QuizID: quizID, CompletedAt: base.Add(time.Duration(i) * time.Minute)})
		if err != nil {
			t.Fatalf("save %s: %v", id, err)
		}
	}

	list, err := store.ListResults(ctx, "quiz-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].ID != "r2" || list[1].ID != "r1" {
		t.Fatalf("expected r2, r1 in completion order, got %+v", list)
	}

	if err := store.DeleteResult(ctx, "r2"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.GetResult(ctx, "r2"); err != domain.ErrResultNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := store.DeleteResult(ctx, "r2"); err != domain.ErrResultNotFound {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
}

func TestResultStoreIsolatesAnswers(t *testing.T) {
	ctx := context.Background()
	store := NewResultStore()
	result := domain.Result{
		ID:     "r1",
		QuizID: "quiz-1",
		Submission: domain.Submission{Answers: []domain.SubmittedAnswer{
			{QuestionID: 1, ScoreInPoints: 1},
		}},
	}
	if err := store.SaveResult(ctx, result); err != nil {
		t.Fatalf("save: %v", err)
	}
	result.Submission.Answers[0].ScoreInPoints = 0

	got, err := store.GetResult(ctx, "r1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Submission.Answers[0].ScoreInPoints != 1 {
		t.Fatalf("expected stored answers to be copies")
	}
}
