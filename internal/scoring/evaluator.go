package scoring

import (
	"math"

	"github.com/shopspring/decimal"

	"quiz-stats-service/internal/domain"
)

// Evaluation is the outcome of scoring one submission.
type Evaluation struct {
	ScoreInPoints float64
	// ScorePercent is the score on the 0..100 scale.
	ScorePercent int
	ResultString string
	// QuestionPoints holds the points earned per question id.
	QuestionPoints map[int64]float64
}

// Evaluate scores every question of the quiz against the submission. The
// submission is not modified; use Apply to store per-answer points on it.
func Evaluate(quiz domain.Quiz, submission domain.Submission) Evaluation {
	eval := Evaluation{QuestionPoints: make(map[int64]float64, len(quiz.Questions))}
	for _, q := range quiz.Questions {
		points := ScoreAnswer(q, submission.AnswerFor(q.ID))
		eval.QuestionPoints[q.ID] = points
		eval.ScoreInPoints += points
	}
	maxTotal := quiz.MaxTotalScore()
	eval.ScorePercent = ScorePercent(eval.ScoreInPoints, maxTotal)
	eval.ResultString = FormatResultString(eval.ScoreInPoints, maxTotal)
	return eval
}

// Apply writes the evaluation onto the submission's answers and total.
func (e Evaluation) Apply(submission *domain.Submission) {
	for i := range submission.Answers {
		submission.Answers[i].ScoreInPoints = e.QuestionPoints[submission.Answers[i].QuestionID]
	}
	submission.ScoreInPoints = e.ScoreInPoints
}

// ScorePercent maps points onto 0..100, rounding half up. A quiz without
// points scores 0.
func ScorePercent(points float64, maxTotal int) int {
	if maxTotal <= 0 {
		return 0
	}
	return int(math.Floor(100*points/float64(maxTotal) + 0.5))
}

// FormatResultString renders "<points> of <max> points" with the points
// truncated to one decimal and no trailing ".0".
func FormatResultString(points float64, maxTotal int) string {
	p := decimal.NewFromFloat(points).Truncate(1)
	return p.String() + " of " + decimal.NewFromInt(int64(maxTotal)).String() + " points"
}
