package reevaluation

import (
	"fmt"
	"strings"
	"time"

	"quiz-stats-service/internal/domain"
)

// ChangeKind names an edit that is not allowed once a quiz is published.
type ChangeKind string

const (
	ChangeReleaseDate   ChangeKind = "release_date_changed"
	ChangeDueDate       ChangeKind = "due_date_changed"
	ChangePoints        ChangeKind = "points_changed"
	ChangeQuestionAdded ChangeKind = "question_added"
	ChangeQuestionKind  ChangeKind = "question_kind_changed"
	ChangeElementAdded  ChangeKind = "element_added"
	ChangeRevalidated   ChangeKind = "invalid_flag_cleared"
)

// Change is one disallowed edit. ElementID is zero for question-level changes.
type Change struct {
	Kind       ChangeKind `json:"kind"`
	QuestionID int64      `json:"questionId,omitempty"`
	ElementID  int64      `json:"elementId,omitempty"`
}

func (c Change) String() string {
	switch {
	case c.ElementID != 0:
		return fmt.Sprintf("%s (question %d, element %d)", c.Kind, c.QuestionID, c.ElementID)
	case c.QuestionID != 0:
		return fmt.Sprintf("%s (question %d)", c.Kind, c.QuestionID)
	}
	return string(c.Kind)
}

// DisallowedEditError lists the edits UndoUnallowedChanges would revert.
type DisallowedEditError struct {
	QuizID  string
	Changes []Change
}

func (e *DisallowedEditError) Error() string {
	parts := make([]string, len(e.Changes))
	for i, c := range e.Changes {
		parts[i] = c.String()
	}
	return fmt.Sprintf("quiz %s: disallowed edits after publication: %s", e.QuizID, strings.Join(parts, ", "))
}

// Diff lists every edit in edited that UndoUnallowedChanges would revert.
func Diff(edited, original domain.Quiz) []Change {
	var changes []Change
	if !sameTime(edited.ReleaseDate, original.ReleaseDate) {
		changes = append(changes, Change{Kind: ChangeReleaseDate})
	}
	if !sameTime(edited.DueDate, original.DueDate) {
		changes = append(changes, Change{Kind: ChangeDueDate})
	}
	for _, q := range edited.Questions {
		orig, ok := original.QuestionByID(q.ID)
		if !ok {
			changes = append(changes, Change{Kind: ChangeQuestionAdded, QuestionID: q.ID})
			continue
		}
		if q.Points != orig.Points {
			changes = append(changes, Change{Kind: ChangePoints, QuestionID: q.ID})
		}
		if orig.Invalid && !q.Invalid {
			changes = append(changes, Change{Kind: ChangeRevalidated, QuestionID: q.ID})
		}
		if q.Kind() != orig.Kind() {
			changes = append(changes, Change{Kind: ChangeQuestionKind, QuestionID: q.ID})
			continue
		}
		changes = append(changes, diffElements(q.ID, elementFlags(q.Body), elementFlags(orig.Body))...)
	}
	return changes
}

func diffElements(questionID int64, edited, original []elementFlag) []Change {
	prev := make(map[elementKey]bool, len(original))
	for _, f := range original {
		prev[f.key] = f.invalid
	}
	var changes []Change
	for _, f := range edited {
		invalid, ok := prev[f.key]
		switch {
		case !ok:
			changes = append(changes, Change{Kind: ChangeElementAdded, QuestionID: questionID, ElementID: f.id})
		case invalid && !f.invalid:
			changes = append(changes, Change{Kind: ChangeRevalidated, QuestionID: questionID, ElementID: f.id})
		}
	}
	return changes
}

type elementKey struct {
	role string
	a, b int64
}

type elementFlag struct {
	key     elementKey
	id      int64
	invalid bool
}

// elementFlags flattens a body into its answer elements. Mappings are keyed
// by the pair they connect.
func elementFlags(body domain.QuestionBody) []elementFlag {
	var out []elementFlag
	switch b := body.(type) {
	case domain.MultipleChoice:
		for _, o := range b.Options {
			out = append(out, elementFlag{elementKey{"option", o.ID, 0}, o.ID, o.Invalid})
		}
	case domain.ShortAnswer:
		for _, s := range b.Spots {
			out = append(out, elementFlag{elementKey{"spot", s.ID, 0}, s.ID, s.Invalid})
		}
		for _, s := range b.Solutions {
			out = append(out, elementFlag{elementKey{"solution", s.ID, 0}, s.ID, s.Invalid})
		}
		for _, m := range b.Mappings {
			out = append(out, elementFlag{elementKey{"spot_mapping", m.SpotID, m.SolutionID}, m.ID, m.Invalid})
		}
	case domain.DragAndDrop:
		for _, it := range b.DragItems {
			out = append(out, elementFlag{elementKey{"drag_item", it.ID, 0}, it.ID, it.Invalid})
		}
		for _, loc := range b.DropLocations {
			out = append(out, elementFlag{elementKey{"drop_location", loc.ID, 0}, loc.ID, loc.Invalid})
		}
		for _, m := range b.Mappings {
			out = append(out, elementFlag{elementKey{"drop_mapping", m.DragItemID, m.DropLocationID}, m.ID, m.Invalid})
		}
	}
	return out
}

func sameTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}
