package domain

import (
	"errors"
	"testing"
)

func validQuiz() Quiz {
	return Quiz{
		ID: "quiz-1",
		Questions: []Question{
			{ID: 1, Points: 1, Body: MultipleChoice{Options: []AnswerOption{{ID: 11, IsCorrect: true}, {ID: 12}}}},
			{ID: 2, Points: 2, Body: ShortAnswer{
				Spots:     []Spot{{ID: 21}},
				Solutions: []Solution{{ID: 31, Text: "Go"}},
				Mappings:  []SpotMapping{{ID: 41, SpotID: 21, SolutionID: 31}},
			}},
		},
	}
}

func TestValidate(t *testing.T) {
	if err := Validate(validQuiz()); err != nil {
		t.Fatalf("expected valid quiz, got %v", err)
	}

	cases := map[string]func(q *Quiz){
		"missing id":        func(q *Quiz) { q.ID = "" },
		"negative points":   func(q *Quiz) { q.Questions[0].Points = -1 },
		"duplicate id":      func(q *Quiz) { q.Questions[1].ID = 1 },
		"missing body":      func(q *Quiz) { q.Questions[0].Body = nil },
		"unknown scoring":   func(q *Quiz) { q.Questions[0].ScoringType = "generous" },
		"option without id": func(q *Quiz) { q.Questions[0].Body = MultipleChoice{Options: []AnswerOption{{Text: "x"}}} },
		"duplicate option":  func(q *Quiz) { q.Questions[0].Body = MultipleChoice{Options: []AnswerOption{{ID: 11}, {ID: 11}}} },
		"duplicate solution": func(q *Quiz) {
			sa := q.Questions[1].Body.(ShortAnswer)
			sa.Solutions = append(sa.Solutions, Solution{ID: 31, Text: "Golang"})
			q.Questions[1].Body = sa
		},
		"duplicate drop location": func(q *Quiz) {
			q.Questions[1].Body = DragAndDrop{
				DragItems:     []DragItem{{ID: 51}},
				DropLocations: []DropLocation{{ID: 61}, {ID: 61}},
			}
		},
	}
	for name, edit := range cases {
		t.Run(name, func(t *testing.T) {
			q := validQuiz()
			edit(&q)
			if err := Validate(q); !errors.Is(err, ErrInvalidQuiz) {
				t.Fatalf("expected invalid quiz, got %v", err)
			}
		})
	}
}

func TestValidateSubmission(t *testing.T) {
	quiz := validQuiz()

	ok := Submission{Answers: []SubmittedAnswer{
		{QuestionID: 1, Body: MultipleChoiceAnswer{SelectedOptionIDs: []int64{11}}},
		{QuestionID: 2},
	}}
	if err := ValidateSubmission(quiz, ok); err != nil {
		t.Fatalf("expected valid submission, got %v", err)
	}

	mismatch := Submission{Answers: []SubmittedAnswer{{QuestionID: 2, Body: MultipleChoiceAnswer{}}}}
	if err := ValidateSubmission(quiz, mismatch); !errors.Is(err, ErrQuestionKindMismatch) {
		t.Fatalf("expected kind mismatch, got %v", err)
	}

	unknown := Submission{Answers: []SubmittedAnswer{{QuestionID: 9}}}
	if err := ValidateSubmission(quiz, unknown); !errors.Is(err, ErrQuestionNotFound) {
		t.Fatalf("expected unknown question, got %v", err)
	}

	twice := Submission{Answers: []SubmittedAnswer{{QuestionID: 1}, {QuestionID: 1}}}
	if err := ValidateSubmission(quiz, twice); err == nil {
		t.Fatalf("expected duplicate answer to fail")
	}
}

func TestValidateSubmissionElements(t *testing.T) {
	quiz := validQuiz()
	quiz.Questions = append(quiz.Questions, Question{ID: 3, Points: 1, Body: DragAndDrop{
		DragItems:     []DragItem{{ID: 51}, {ID: 52}},
		DropLocations: []DropLocation{{ID: 61}, {ID: 62}},
		Mappings:      []DropMapping{{ID: 71, DragItemID: 51, DropLocationID: 61}},
	}})

	cases := map[string]SubmittedAnswer{
		"unknown option":   {QuestionID: 1, Body: MultipleChoiceAnswer{SelectedOptionIDs: []int64{19}}},
		"option twice":     {QuestionID: 1, Body: MultipleChoiceAnswer{SelectedOptionIDs: []int64{11, 11}}},
		"unknown spot":     {QuestionID: 2, Body: ShortAnswerAnswer{Texts: []SpotText{{SpotID: 29, Text: "Go"}}}},
		"spot twice":       {QuestionID: 2, Body: ShortAnswerAnswer{Texts: []SpotText{{SpotID: 21}, {SpotID: 21}}}},
		"unknown item":     {QuestionID: 3, Body: DragAndDropAnswer{Placements: []Placement{{DragItemID: 59, DropLocationID: 61}}}},
		"unknown location": {QuestionID: 3, Body: DragAndDropAnswer{Placements: []Placement{{DragItemID: 51, DropLocationID: 69}}}},
		"location twice": {QuestionID: 3, Body: DragAndDropAnswer{Placements: []Placement{
			{DragItemID: 51, DropLocationID: 61},
			{DragItemID: 52, DropLocationID: 61},
		}}},
	}
	for name, answer := range cases {
		t.Run(name, func(t *testing.T) {
			err := ValidateSubmission(quiz, Submission{Answers: []SubmittedAnswer{answer}})
			if !errors.Is(err, ErrUnknownElement) {
				t.Fatalf("expected unknown element, got %v", err)
			}
		})
	}

	placed := Submission{Answers: []SubmittedAnswer{{QuestionID: 3, Body: DragAndDropAnswer{Placements: []Placement{
		{DragItemID: 51, DropLocationID: 61},
		{DragItemID: 52, DropLocationID: 62},
	}}}}}
	if err := ValidateSubmission(quiz, placed); err != nil {
		t.Fatalf("expected valid placements, got %v", err)
	}
}

func TestCloneDoesNotAlias(t *testing.T) {
	q := validQuiz()
	c := q.Clone()
	c.Questions[0].Body.(MultipleChoice).Options[0].IsCorrect = false
	c.Questions[1].Points = 9

	if !q.Questions[0].Body.(MultipleChoice).Options[0].IsCorrect || q.Questions[1].Points != 2 {
		t.Fatalf("expected original untouched")
	}
}
