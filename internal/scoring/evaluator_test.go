package scoring

import (
	"testing"

	"quiz-stats-service/internal/domain"
)

func twoQuestionQuiz() domain.Quiz {
	return domain.Quiz{
		ID: "quiz-1",
		Questions: []domain.Question{
			{
				ID:          1,
				Points:      2,
				ScoringType: domain.ScoringProportionalWithoutPenalty,
				Body: domain.MultipleChoice{Options: []domain.AnswerOption{
					{ID: 11, IsCorrect: true},
					{ID: 12, IsCorrect: false},
				}},
			},
			{
				ID:     2,
				Points: 3,
				Body: domain.MultipleChoice{Options: []domain.AnswerOption{
					{ID: 21, IsCorrect: true},
					{ID: 22, IsCorrect: false},
				}},
			},
		},
	}
}

func TestEvaluateEndToEnd(t *testing.T) {
	quiz := twoQuestionQuiz()
	submission := domain.Submission{
		ID: "s1",
		Answers: []domain.SubmittedAnswer{
			// both options selected: one decision right, one wrong -> 1 of 2
			{QuestionID: 1, Body: domain.MultipleChoiceAnswer{SelectedOptionIDs: []int64{11, 12}}},
			{QuestionID: 2, Body: domain.MultipleChoiceAnswer{SelectedOptionIDs: []int64{21}}},
		},
	}

	eval := Evaluate(quiz, submission)
	if eval.ScoreInPoints != 4 {
		t.Fatalf("expected 4 points, got %v", eval.ScoreInPoints)
	}
	if eval.ScorePercent != 80 {
		t.Fatalf("expected 80 percent, got %d", eval.ScorePercent)
	}
	if eval.ResultString != "4 of 5 points" {
		t.Fatalf("unexpected result string %q", eval.ResultString)
	}

	eval.Apply(&submission)
	if submission.ScoreInPoints != 4 || submission.Answers[0].ScoreInPoints != 1 || submission.Answers[1].ScoreInPoints != 3 {
		t.Fatalf("expected per-answer points to be stored, got %+v", submission)
	}
}

func TestEvaluateSkipsUnansweredQuestions(t *testing.T) {
	quiz := twoQuestionQuiz()
	eval := Evaluate(quiz, domain.Submission{
		Answers: []domain.SubmittedAnswer{
			{QuestionID: 2, Body: domain.MultipleChoiceAnswer{SelectedOptionIDs: []int64{21}}},
		},
	})
	if eval.ScoreInPoints != 3 || eval.ScorePercent != 60 {
		t.Fatalf("expected 3 points / 60%%, got %v / %d", eval.ScoreInPoints, eval.ScorePercent)
	}
}

func TestEvaluateEmptyQuizDoesNotDivideByZero(t *testing.T) {
	eval := Evaluate(domain.Quiz{ID: "empty"}, domain.Submission{})
	if eval.ScorePercent != 0 {
		t.Fatalf("expected 0, got %d", eval.ScorePercent)
	}
	if eval.ResultString != "0 of 0 points" {
		t.Fatalf("unexpected result string %q", eval.ResultString)
	}
}

func TestScorePercentRoundsHalfUp(t *testing.T) {
	cases := []struct {
		points float64
		max    int
		want   int
	}{
		{1, 8, 13},   // 12.5
		{1, 3, 33},   // 33.33
		{2, 3, 67},   // 66.67
		{4, 5, 80},   // exact
		{0, 5, 0},    // nothing
		{7, 7, 100},  // full
		{1, 200, 1},  // 0.5
		{0.5, 0, 0},  // no points available
	}
	for _, tc := range cases {
		if got := ScorePercent(tc.points, tc.max); got != tc.want {
			t.Fatalf("ScorePercent(%v, %d) = %d, want %d", tc.points, tc.max, got, tc.want)
		}
	}
}

func TestFormatResultString(t *testing.T) {
	cases := []struct {
		points float64
		max    int
		want   string
	}{
		{4, 5, "4 of 5 points"},
		{2.5, 10, "2.5 of 10 points"},
		{2.56, 10, "2.5 of 10 points"},
		{1.99, 2, "1.9 of 2 points"},
		{0.3, 1, "0.3 of 1 points"},
		{1234.5, 2000, "1234.5 of 2000 points"},
	}
	for _, tc := range cases {
		if got := FormatResultString(tc.points, tc.max); got != tc.want {
			t.Fatalf("FormatResultString(%v, %d) = %q, want %q", tc.points, tc.max, got, tc.want)
		}
	}
}
