package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"quiz-stats-service/internal/domain"
	"quiz-stats-service/internal/infra/memory"
)

func TestQuizRepositoryCachesInRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := newClient(mr)

	store := &countingStore{
		QuizStore: memory.NewStaticQuizStore(map[string]domain.Quiz{
			"quiz-1": sampleQuiz(),
		}),
	}
	repo := NewQuizRepository(client, store, time.Minute)

	quiz, err := repo.GetQuiz(context.Background(), "quiz-1")
	if err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	if store.calls != 1 {
		t.Fatalf("expected store called once, got %d", store.calls)
	}
	if !mr.Exists("quiz:quiz-1") {
		t.Fatalf("expected quiz cached under quiz:quiz-1")
	}

	// Second call should hit cache, store not incremented.
	cached, err := repo.GetQuiz(context.Background(), "quiz-1")
	if err != nil {
		t.Fatalf("get cached quiz: %v", err)
	}
	if store.calls != 1 {
		t.Fatalf("expected cache hit, store calls=%d", store.calls)
	}
	mc, ok := cached.Questions[0].Body.(domain.MultipleChoice)
	if !ok || len(mc.Options) != 2 || !mc.Options[1].IsCorrect {
		t.Fatalf("expected full question body from cache, got %+v", cached.Questions[0])
	}
	if cached.MaxTotalScore() != quiz.MaxTotalScore() {
		t.Fatalf("expected cached points %d, got %d", quiz.MaxTotalScore(), cached.MaxTotalScore())
	}
}

func TestQuizRepositorySaveInvalidates(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	ctx := context.Background()
	store := &countingStore{QuizStore: memory.NewStaticQuizStore(map[string]domain.Quiz{"quiz-1": sampleQuiz()})}
	repo := NewQuizRepository(newClient(mr), store, time.Minute)

	quiz, err := repo.GetQuiz(ctx, "quiz-1")
	if err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	quiz.Questions[0].Invalid = true
	if err := repo.SaveQuiz(ctx, quiz); err != nil {
		t.Fatalf("save quiz: %v", err)
	}
	if mr.Exists("quiz:quiz-1") {
		t.Fatalf("expected cache entry dropped")
	}

	reloaded, err := repo.GetQuiz(ctx, "quiz-1")
	if err != nil {
		t.Fatalf("reload quiz: %v", err)
	}
	if !reloaded.Questions[0].Invalid || store.calls != 2 {
		t.Fatalf("expected saved quiz reloaded from store, calls=%d", store.calls)
	}
}

type countingStore struct {
	memory.QuizStore
	calls int
}

func (l *countingStore) LoadQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	l.calls++
	return l.QuizStore.LoadQuiz(ctx, quizID)
}

func sampleQuiz() domain.Quiz {
	return domain.Quiz{
		ID:    "quiz-1",
		Title: "Arithmetic",
		Questions: []domain.Question{
			{
				ID:     1,
				Title:  "What is 2 + 2?",
				Points: 2,
				Body: domain.MultipleChoice{Options: []domain.AnswerOption{
					{ID: 11, Text: "3", IsCorrect: false},
					{ID: 12, Text: "4", IsCorrect: true},
				}},
			},
		},
	}
}

func newClient(mr *miniredis.Miniredis) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
}
