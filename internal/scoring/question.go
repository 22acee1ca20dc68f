package scoring

import (
	"strings"

	"quiz-stats-service/internal/domain"
)

// tally counts the per-element decisions of one answer.
type tally struct {
	total   int // valid and invalid elements taking part in scoring
	correct int // elements answered correctly (invalid ones always count here)
	wrong   int // elements answered, but not correctly
}

// policy turns a tally into the share of points earned.
type policy func(t tally, points float64) float64

func allOrNothing(t tally, points float64) float64 {
	if t.total > 0 && t.correct == t.total {
		return points
	}
	return 0
}

func proportionalWithPenalty(t tally, points float64) float64 {
	if t.total == 0 {
		return 0
	}
	return points * float64(t.correct-t.wrong) / float64(t.total)
}

func proportionalWithoutPenalty(t tally, points float64) float64 {
	if t.total == 0 {
		return 0
	}
	return points * float64(t.correct) / float64(t.total)
}

type policyKey struct {
	kind    domain.QuestionKind
	scoring domain.ScoringType
}

// policies is the strategy table. Kinds missing a scoring type use all-or-nothing.
var policies = map[policyKey]policy{
	{domain.KindMultipleChoice, domain.ScoringAllOrNothing}:               allOrNothing,
	{domain.KindMultipleChoice, domain.ScoringProportionalWithPenalty}:    proportionalWithPenalty,
	{domain.KindMultipleChoice, domain.ScoringProportionalWithoutPenalty}: proportionalWithoutPenalty,
	{domain.KindShortAnswer, domain.ScoringAllOrNothing}:                  allOrNothing,
	{domain.KindShortAnswer, domain.ScoringProportionalWithPenalty}:       proportionalWithPenalty,
	{domain.KindShortAnswer, domain.ScoringProportionalWithoutPenalty}:    proportionalWithoutPenalty,
	{domain.KindDragAndDrop, domain.ScoringAllOrNothing}:                  allOrNothing,
	{domain.KindDragAndDrop, domain.ScoringProportionalWithPenalty}:       proportionalWithPenalty,
	{domain.KindDragAndDrop, domain.ScoringProportionalWithoutPenalty}:    proportionalWithoutPenalty,
}

func policyFor(q domain.Question) policy {
	if p, ok := policies[policyKey{q.Kind(), q.Scoring()}]; ok {
		return p
	}
	return allOrNothing
}

// ScoreAnswer returns the points the answer earns on the question, between
// 0 and q.Points. A nil answer or one of another kind earns nothing.
// An invalid question credits its full points to everyone.
func ScoreAnswer(q domain.Question, answer *domain.SubmittedAnswer) float64 {
	points := float64(q.Points)
	if q.Invalid {
		return points
	}
	if answer == nil || answer.Body == nil || q.Body == nil {
		return 0
	}
	t, ok := tallyAnswer(q, answer.Body)
	if !ok {
		return 0
	}
	return clamp(policyFor(q)(t, points), 0, points)
}

// IsCorrect reports whether every element of the question was answered
// correctly, which is what earns full points under every policy.
func IsCorrect(q domain.Question, answer *domain.SubmittedAnswer) bool {
	if q.Invalid {
		return true
	}
	if answer == nil || answer.Body == nil || q.Body == nil {
		return false
	}
	t, ok := tallyAnswer(q, answer.Body)
	return ok && t.total > 0 && t.correct == t.total
}

// tallyAnswer evaluates every answer element of q. ok is false when the
// answer kind does not match the question kind.
func tallyAnswer(q domain.Question, answer domain.AnswerBody) (t tally, ok bool) {
	switch body := q.Body.(type) {
	case domain.MultipleChoice:
		a, match := answer.(domain.MultipleChoiceAnswer)
		if !match {
			return t, false
		}
		return tallyMultipleChoice(body, a), true
	case domain.ShortAnswer:
		a, match := answer.(domain.ShortAnswerAnswer)
		if !match {
			return t, false
		}
		return tallyShortAnswer(body, a), true
	case domain.DragAndDrop:
		a, match := answer.(domain.DragAndDropAnswer)
		if !match {
			return t, false
		}
		return tallyDragAndDrop(body, a), true
	}
	return t, false
}

func tallyMultipleChoice(q domain.MultipleChoice, a domain.MultipleChoiceAnswer) tally {
	var t tally
	for _, opt := range q.Options {
		t.total++
		switch {
		case opt.Invalid:
			t.correct++
		case a.Selected(opt.ID) == opt.IsCorrect:
			t.correct++
		default:
			t.wrong++
		}
	}
	return t
}

func tallyShortAnswer(q domain.ShortAnswer, a domain.ShortAnswerAnswer) tally {
	var t tally
	for _, spot := range q.Spots {
		t.total++
		if spot.Invalid {
			t.correct++
			continue
		}
		text, answered := a.TextFor(spot.ID)
		if !answered || strings.TrimSpace(text) == "" {
			continue
		}
		if SpotMatched(q, spot.ID, text) {
			t.correct++
		} else {
			t.wrong++
		}
	}
	return t
}

// SpotMatched compares text case-insensitively with every solution mapped to the spot.
func SpotMatched(q domain.ShortAnswer, spotID int64, text string) bool {
	text = strings.TrimSpace(text)
	for _, sol := range q.SolutionsFor(spotID) {
		if strings.EqualFold(strings.TrimSpace(sol.Text), text) {
			return true
		}
	}
	return false
}

func tallyDragAndDrop(q domain.DragAndDrop, a domain.DragAndDropAnswer) tally {
	var t tally
	for _, loc := range q.DropLocations {
		t.total++
		if loc.Invalid {
			t.correct++
			continue
		}
		item, placed := a.ItemAt(loc.ID)
		switch {
		case !placed && !q.HasMapping(loc.ID):
			// decoy location left empty
			t.correct++
		case !placed:
		case q.ItemFits(item, loc.ID):
			t.correct++
		default:
			t.wrong++
		}
	}
	return t
}

// LocationCorrect reports whether the answer placed a fitting item on the location.
func LocationCorrect(q domain.DragAndDrop, a domain.DragAndDropAnswer, locationID int64) bool {
	item, placed := a.ItemAt(locationID)
	return placed && q.ItemFits(item, locationID)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
