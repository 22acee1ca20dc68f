package domain

import "time"

// ScoringType selects how partially correct answers are scored.
type ScoringType string

const (
	ScoringAllOrNothing               ScoringType = "all_or_nothing"
	ScoringProportionalWithPenalty    ScoringType = "proportional_with_penalty"
	ScoringProportionalWithoutPenalty ScoringType = "proportional_without_penalty"
)

// QuestionKind discriminates the question and answer variants.
type QuestionKind string

const (
	KindMultipleChoice QuestionKind = "multiple_choice"
	KindShortAnswer    QuestionKind = "short_answer"
	KindDragAndDrop    QuestionKind = "drag_and_drop"
)

// Quiz is a published or draft quiz with its ordered questions.
type Quiz struct {
	ID          string        `json:"id" validate:"required"`
	Title       string        `json:"title"`
	Duration    time.Duration `json:"duration" validate:"gte=0"`
	ReleaseDate *time.Time    `json:"releaseDate,omitempty"`
	DueDate     *time.Time    `json:"dueDate,omitempty"`
	Questions   []Question    `json:"questions" validate:"dive"`
}

// MaxTotalScore is the sum of all question points.
func (q Quiz) MaxTotalScore() int {
	total := 0
	for _, question := range q.Questions {
		total += question.Points
	}
	return total
}

// QuestionByID returns the question with the given id.
func (q Quiz) QuestionByID(id int64) (Question, bool) {
	for _, question := range q.Questions {
		if question.ID == id {
			return question, true
		}
	}
	return Question{}, false
}

// Question is one quiz question. Body holds the kind-specific payload.
type Question struct {
	ID          int64        `json:"id" validate:"required"`
	Title       string       `json:"title"`
	Points      int          `json:"points" validate:"gte=0"`
	ScoringType ScoringType  `json:"scoringType" validate:"omitempty,oneof=all_or_nothing proportional_with_penalty proportional_without_penalty"`
	Invalid     bool         `json:"invalid"`
	Body        QuestionBody `json:"-" validate:"required"`
}

// Kind reports the variant of the question body.
func (q Question) Kind() QuestionKind {
	if q.Body == nil {
		return ""
	}
	return q.Body.Kind()
}

// Scoring returns the scoring type. Without one, multiple-choice questions are
// all-or-nothing and short-answer and drag-and-drop questions award each
// matched spot or location its share of the points.
func (q Question) Scoring() ScoringType {
	if q.ScoringType != "" {
		return q.ScoringType
	}
	switch q.Kind() {
	case KindShortAnswer, KindDragAndDrop:
		return ScoringProportionalWithoutPenalty
	default:
		return ScoringAllOrNothing
	}
}

// QuestionBody is implemented by MultipleChoice, ShortAnswer and DragAndDrop only.
type QuestionBody interface {
	Kind() QuestionKind
	// ElementIDs lists the ids that carry statistics counters.
	ElementIDs() []int64
	isQuestionBody()
}

// AnswerOption is a selectable option of a multiple-choice question.
type AnswerOption struct {
	ID        int64  `json:"id" validate:"required"`
	Text      string `json:"text"`
	IsCorrect bool   `json:"isCorrect"`
	Invalid   bool   `json:"invalid"`
}

type MultipleChoice struct {
	Options      []AnswerOption `json:"options" validate:"dive"`
	SingleChoice bool           `json:"singleChoice"`
}

func (MultipleChoice) Kind() QuestionKind { return KindMultipleChoice }
func (MultipleChoice) isQuestionBody()    {}

func (m MultipleChoice) ElementIDs() []int64 {
	ids := make([]int64, 0, len(m.Options))
	for _, o := range m.Options {
		ids = append(ids, o.ID)
	}
	return ids
}

// Spot is a gap in a short-answer text.
type Spot struct {
	ID      int64 `json:"id" validate:"required"`
	Nr      int   `json:"nr"`
	Invalid bool  `json:"invalid"`
}

// Solution is an accepted text for one or more spots.
type Solution struct {
	ID      int64  `json:"id" validate:"required"`
	Text    string `json:"text"`
	Invalid bool   `json:"invalid"`
}

// SpotMapping marks Solution as correct for Spot.
type SpotMapping struct {
	ID         int64 `json:"id"`
	SpotID     int64 `json:"spotId" validate:"required"`
	SolutionID int64 `json:"solutionId" validate:"required"`
	Invalid    bool  `json:"invalid"`
}

type ShortAnswer struct {
	Spots     []Spot        `json:"spots" validate:"dive"`
	Solutions []Solution    `json:"solutions" validate:"dive"`
	Mappings  []SpotMapping `json:"mappings" validate:"dive"`
}

func (ShortAnswer) Kind() QuestionKind { return KindShortAnswer }
func (ShortAnswer) isQuestionBody()    {}

func (s ShortAnswer) ElementIDs() []int64 {
	ids := make([]int64, 0, len(s.Spots))
	for _, spot := range s.Spots {
		ids = append(ids, spot.ID)
	}
	return ids
}

// SolutionsFor returns the valid solutions mapped to the spot.
func (s ShortAnswer) SolutionsFor(spotID int64) []Solution {
	var out []Solution
	for _, m := range s.Mappings {
		if m.SpotID != spotID || m.Invalid {
			continue
		}
		for _, sol := range s.Solutions {
			if sol.ID == m.SolutionID && !sol.Invalid {
				out = append(out, sol)
			}
		}
	}
	return out
}

type DragItem struct {
	ID      int64  `json:"id" validate:"required"`
	Text    string `json:"text"`
	Invalid bool   `json:"invalid"`
}

type DropLocation struct {
	ID      int64 `json:"id" validate:"required"`
	Invalid bool  `json:"invalid"`
}

// DropMapping marks DragItem as correct for DropLocation.
type DropMapping struct {
	ID             int64 `json:"id"`
	DragItemID     int64 `json:"dragItemId" validate:"required"`
	DropLocationID int64 `json:"dropLocationId" validate:"required"`
	Invalid        bool  `json:"invalid"`
}

type DragAndDrop struct {
	DragItems     []DragItem     `json:"dragItems" validate:"dive"`
	DropLocations []DropLocation `json:"dropLocations" validate:"dive"`
	Mappings      []DropMapping  `json:"mappings" validate:"dive"`
}

func (DragAndDrop) Kind() QuestionKind { return KindDragAndDrop }
func (DragAndDrop) isQuestionBody()    {}

func (d DragAndDrop) ElementIDs() []int64 {
	ids := make([]int64, 0, len(d.DropLocations))
	for _, loc := range d.DropLocations {
		ids = append(ids, loc.ID)
	}
	return ids
}

// ItemFits reports whether a valid mapping places item on location.
func (d DragAndDrop) ItemFits(itemID, locationID int64) bool {
	for _, m := range d.Mappings {
		if m.Invalid || m.DragItemID != itemID || m.DropLocationID != locationID {
			continue
		}
		for _, item := range d.DragItems {
			if item.ID == itemID {
				return !item.Invalid
			}
		}
	}
	return false
}

// HasMapping reports whether any valid mapping targets location.
func (d DragAndDrop) HasMapping(locationID int64) bool {
	for _, m := range d.Mappings {
		if !m.Invalid && m.DropLocationID == locationID {
			return true
		}
	}
	return false
}

// SubmittedAnswer is the part of a submission that answers one question.
type SubmittedAnswer struct {
	QuestionID    int64      `json:"questionId"`
	ScoreInPoints float64    `json:"scoreInPoints"`
	Body          AnswerBody `json:"-"`
}

// AnswerBody is implemented by the three answer variants only.
type AnswerBody interface {
	Kind() QuestionKind
	isAnswerBody()
}

type MultipleChoiceAnswer struct {
	SelectedOptionIDs []int64 `json:"selectedOptionIds"`
}

func (MultipleChoiceAnswer) Kind() QuestionKind { return KindMultipleChoice }
func (MultipleChoiceAnswer) isAnswerBody()      {}

// Selected reports whether the option was picked.
func (a MultipleChoiceAnswer) Selected(optionID int64) bool {
	for _, id := range a.SelectedOptionIDs {
		if id == optionID {
			return true
		}
	}
	return false
}

type SpotText struct {
	SpotID int64  `json:"spotId"`
	Text   string `json:"text"`
}

type ShortAnswerAnswer struct {
	Texts []SpotText `json:"texts"`
}

func (ShortAnswerAnswer) Kind() QuestionKind { return KindShortAnswer }
func (ShortAnswerAnswer) isAnswerBody()      {}

// TextFor returns the text typed into the spot.
func (a ShortAnswerAnswer) TextFor(spotID int64) (string, bool) {
	for _, t := range a.Texts {
		if t.SpotID == spotID {
			return t.Text, true
		}
	}
	return "", false
}

type Placement struct {
	DragItemID     int64 `json:"dragItemId"`
	DropLocationID int64 `json:"dropLocationId"`
}

type DragAndDropAnswer struct {
	Placements []Placement `json:"placements"`
}

func (DragAndDropAnswer) Kind() QuestionKind { return KindDragAndDrop }
func (DragAndDropAnswer) isAnswerBody()      {}

// ItemAt returns the item placed on the location.
func (a DragAndDropAnswer) ItemAt(locationID int64) (int64, bool) {
	for _, p := range a.Placements {
		if p.DropLocationID == locationID {
			return p.DragItemID, true
		}
	}
	return 0, false
}

// Submission is a participant's set of answers for one quiz.
type Submission struct {
	ID            string            `json:"id"`
	ParticipantID string            `json:"participantId"`
	Answers       []SubmittedAnswer `json:"answers"`
	ScoreInPoints float64           `json:"scoreInPoints"`
}

// AnswerFor returns the answer for the question, or nil.
func (s *Submission) AnswerFor(questionID int64) *SubmittedAnswer {
	if s == nil {
		return nil
	}
	for i := range s.Answers {
		if s.Answers[i].QuestionID == questionID {
			return &s.Answers[i]
		}
	}
	return nil
}

// Result is a graded submission.
type Result struct {
	ID            string     `json:"id"`
	QuizID        string     `json:"quizId"`
	Submission    Submission `json:"submission"`
	Score         int        `json:"score"`
	ScoreInPoints float64    `json:"scoreInPoints"`
	Rated         bool       `json:"rated"`
	ResultString  string     `json:"resultString"`
	CompletedAt   time.Time  `json:"completedAt"`
}
