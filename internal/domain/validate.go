package domain

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks a quiz definition before it is handed to the engine.
func Validate(quiz Quiz) error {
	if err := validate.Struct(quiz); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidQuiz, err)
	}
	seen := make(map[int64]struct{}, len(quiz.Questions))
	for _, q := range quiz.Questions {
		if _, dup := seen[q.ID]; dup {
			return fmt.Errorf("%w: duplicate question id %d", ErrInvalidQuiz, q.ID)
		}
		seen[q.ID] = struct{}{}
		if err := validate.Struct(q.Body); err != nil {
			return fmt.Errorf("%w: question %d: %v", ErrInvalidQuiz, q.ID, err)
		}
		if err := uniqueElements(q.Body); err != nil {
			return fmt.Errorf("%w: question %d: %v", ErrInvalidQuiz, q.ID, err)
		}
	}
	return nil
}

func uniqueElements(body QuestionBody) error {
	lists := map[string][]int64{}
	switch b := body.(type) {
	case MultipleChoice:
		lists["option"] = b.ElementIDs()
	case ShortAnswer:
		lists["spot"] = b.ElementIDs()
		for _, sol := range b.Solutions {
			lists["solution"] = append(lists["solution"], sol.ID)
		}
	case DragAndDrop:
		lists["drop location"] = b.ElementIDs()
		for _, item := range b.DragItems {
			lists["drag item"] = append(lists["drag item"], item.ID)
		}
	}
	for name, ids := range lists {
		seen := make(map[int64]struct{}, len(ids))
		for _, id := range ids {
			if _, dup := seen[id]; dup {
				return fmt.Errorf("duplicate %s id %d", name, id)
			}
			seen[id] = struct{}{}
		}
	}
	return nil
}

// ValidateSubmission checks that every answer references a question of the
// same kind, that no question is answered twice and that answers only
// reference elements of their question, each once.
func ValidateSubmission(quiz Quiz, submission Submission) error {
	seen := make(map[int64]struct{}, len(submission.Answers))
	for _, a := range submission.Answers {
		if _, dup := seen[a.QuestionID]; dup {
			return fmt.Errorf("%w: question %d answered twice", ErrInvalidQuiz, a.QuestionID)
		}
		seen[a.QuestionID] = struct{}{}
		q, ok := quiz.QuestionByID(a.QuestionID)
		if !ok {
			return fmt.Errorf("%w: %d", ErrQuestionNotFound, a.QuestionID)
		}
		if a.Body != nil && a.Body.Kind() != q.Kind() {
			return fmt.Errorf("%w: question %d is %s, answer is %s", ErrQuestionKindMismatch, q.ID, q.Kind(), a.Body.Kind())
		}
		if err := knownElements(q, a.Body); err != nil {
			return err
		}
	}
	return nil
}

func knownElements(q Question, answer AnswerBody) error {
	switch a := answer.(type) {
	case MultipleChoiceAnswer:
		return checkRefs(q.ID, "option", a.SelectedOptionIDs, q.Body.ElementIDs())
	case ShortAnswerAnswer:
		spots := make([]int64, 0, len(a.Texts))
		for _, t := range a.Texts {
			spots = append(spots, t.SpotID)
		}
		return checkRefs(q.ID, "spot", spots, q.Body.ElementIDs())
	case DragAndDropAnswer:
		body, _ := q.Body.(DragAndDrop)
		items := make([]int64, 0, len(body.DragItems))
		for _, item := range body.DragItems {
			items = append(items, item.ID)
		}
		placedItems := make([]int64, 0, len(a.Placements))
		locations := make([]int64, 0, len(a.Placements))
		for _, p := range a.Placements {
			placedItems = append(placedItems, p.DragItemID)
			locations = append(locations, p.DropLocationID)
		}
		if err := checkRefs(q.ID, "drag item", placedItems, items); err != nil {
			return err
		}
		return checkRefs(q.ID, "drop location", locations, body.ElementIDs())
	}
	return nil
}

// checkRefs fails when refs holds an id missing from known, or one id twice.
func checkRefs(questionID int64, name string, refs, known []int64) error {
	allowed := make(map[int64]bool, len(known))
	for _, id := range known {
		allowed[id] = true
	}
	used := make(map[int64]struct{}, len(refs))
	for _, id := range refs {
		if !allowed[id] {
			return fmt.Errorf("%w: question %d has no %s %d", ErrUnknownElement, questionID, name, id)
		}
		if _, dup := used[id]; dup {
			return fmt.Errorf("%w: question %d references %s %d twice", ErrUnknownElement, questionID, name, id)
		}
		used[id] = struct{}{}
	}
	return nil
}
