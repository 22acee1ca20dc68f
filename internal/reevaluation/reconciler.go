package reevaluation

import (
	"time"

	"quiz-stats-service/internal/domain"
)

// UndoUnallowedChanges returns a copy of edited in which every change that is
// not allowed after publication is reverted against original: release and
// due dates and question points are restored, questions and answer elements
// that only exist in edited are removed, and invalid flags never go back
// from true to false. Edits to wording, correctness and scoring type survive.
func UndoUnallowedChanges(edited, original domain.Quiz) domain.Quiz {
	out := edited.Clone()
	out.ReleaseDate = cloneTime(original.ReleaseDate)
	out.DueDate = cloneTime(original.DueDate)

	kept := out.Questions[:0]
	for _, q := range out.Questions {
		orig, ok := original.QuestionByID(q.ID)
		if !ok {
			continue
		}
		q.Points = orig.Points
		q.Invalid = q.Invalid || orig.Invalid
		q.Body = undoBody(q.Body, orig.Body)
		kept = append(kept, q)
	}
	out.Questions = kept
	return out
}

func undoBody(edited, original domain.QuestionBody) domain.QuestionBody {
	if edited == nil || original == nil || edited.Kind() != original.Kind() {
		// the kind of a published question is fixed
		return domain.CloneBody(original)
	}
	switch e := edited.(type) {
	case domain.MultipleChoice:
		return undoMultipleChoice(e, original.(domain.MultipleChoice))
	case domain.ShortAnswer:
		return undoShortAnswer(e, original.(domain.ShortAnswer))
	case domain.DragAndDrop:
		return undoDragAndDrop(e, original.(domain.DragAndDrop))
	}
	return edited
}

func undoMultipleChoice(e, o domain.MultipleChoice) domain.MultipleChoice {
	orig := make(map[int64]domain.AnswerOption, len(o.Options))
	for _, opt := range o.Options {
		orig[opt.ID] = opt
	}
	options := make([]domain.AnswerOption, 0, len(e.Options))
	for _, opt := range e.Options {
		prev, ok := orig[opt.ID]
		if !ok {
			continue
		}
		opt.Invalid = opt.Invalid || prev.Invalid
		options = append(options, opt)
	}
	e.Options = options
	return e
}

type pair struct{ a, b int64 }

func undoShortAnswer(e, o domain.ShortAnswer) domain.ShortAnswer {
	origSpots := make(map[int64]domain.Spot, len(o.Spots))
	for _, s := range o.Spots {
		origSpots[s.ID] = s
	}
	origSolutions := make(map[int64]domain.Solution, len(o.Solutions))
	for _, s := range o.Solutions {
		origSolutions[s.ID] = s
	}
	origMappings := make(map[pair]domain.SpotMapping, len(o.Mappings))
	for _, m := range o.Mappings {
		origMappings[pair{m.SpotID, m.SolutionID}] = m
	}

	spots := make([]domain.Spot, 0, len(e.Spots))
	keptSpots := make(map[int64]bool, len(e.Spots))
	for _, s := range e.Spots {
		prev, ok := origSpots[s.ID]
		if !ok {
			continue
		}
		s.Invalid = s.Invalid || prev.Invalid
		spots = append(spots, s)
		keptSpots[s.ID] = true
	}
	solutions := make([]domain.Solution, 0, len(e.Solutions))
	keptSolutions := make(map[int64]bool, len(e.Solutions))
	for _, s := range e.Solutions {
		prev, ok := origSolutions[s.ID]
		if !ok {
			continue
		}
		s.Invalid = s.Invalid || prev.Invalid
		solutions = append(solutions, s)
		keptSolutions[s.ID] = true
	}
	mappings := make([]domain.SpotMapping, 0, len(e.Mappings))
	for _, m := range e.Mappings {
		prev, ok := origMappings[pair{m.SpotID, m.SolutionID}]
		if !ok || !keptSpots[m.SpotID] || !keptSolutions[m.SolutionID] {
			continue
		}
		m.Invalid = m.Invalid || prev.Invalid
		mappings = append(mappings, m)
	}
	return domain.ShortAnswer{Spots: spots, Solutions: solutions, Mappings: mappings}
}

func undoDragAndDrop(e, o domain.DragAndDrop) domain.DragAndDrop {
	origItems := make(map[int64]domain.DragItem, len(o.DragItems))
	for _, it := range o.DragItems {
		origItems[it.ID] = it
	}
	origLocations := make(map[int64]domain.DropLocation, len(o.DropLocations))
	for _, loc := range o.DropLocations {
		origLocations[loc.ID] = loc
	}
	origMappings := make(map[pair]domain.DropMapping, len(o.Mappings))
	for _, m := range o.Mappings {
		origMappings[pair{m.DragItemID, m.DropLocationID}] = m
	}

	items := make([]domain.DragItem, 0, len(e.DragItems))
	keptItems := make(map[int64]bool, len(e.DragItems))
	for _, it := range e.DragItems {
		prev, ok := origItems[it.ID]
		if !ok {
			continue
		}
		it.Invalid = it.Invalid || prev.Invalid
		items = append(items, it)
		keptItems[it.ID] = true
	}
	locations := make([]domain.DropLocation, 0, len(e.DropLocations))
	keptLocations := make(map[int64]bool, len(e.DropLocations))
	for _, loc := range e.DropLocations {
		prev, ok := origLocations[loc.ID]
		if !ok {
			continue
		}
		loc.Invalid = loc.Invalid || prev.Invalid
		locations = append(locations, loc)
		keptLocations[loc.ID] = true
	}
	mappings := make([]domain.DropMapping, 0, len(e.Mappings))
	for _, m := range e.Mappings {
		prev, ok := origMappings[pair{m.DragItemID, m.DropLocationID}]
		if !ok || !keptItems[m.DragItemID] || !keptLocations[m.DropLocationID] {
			continue
		}
		m.Invalid = m.Invalid || prev.Invalid
		mappings = append(mappings, m)
	}
	return domain.DragAndDrop{DragItems: items, DropLocations: locations, Mappings: mappings}
}

// IsRecalculationNecessary reports whether the edit changes how existing
// submissions score: a question or element newly invalidated, a changed
// scoring type or correctness, or a question or element deleted. It is meant
// to run on the output of UndoUnallowedChanges.
func IsRecalculationNecessary(edited, original domain.Quiz) bool {
	for _, orig := range original.Questions {
		q, ok := edited.QuestionByID(orig.ID)
		if !ok {
			return true
		}
		if q.Invalid && !orig.Invalid {
			return true
		}
		if q.Scoring() != orig.Scoring() {
			return true
		}
		if bodyNeedsRecalculation(q.Body, orig.Body) {
			return true
		}
	}
	return false
}

func bodyNeedsRecalculation(edited, original domain.QuestionBody) bool {
	if edited == nil || original == nil {
		return (edited == nil) != (original == nil)
	}
	if edited.Kind() != original.Kind() {
		return true
	}
	switch o := original.(type) {
	case domain.MultipleChoice:
		e := edited.(domain.MultipleChoice)
		for _, prev := range o.Options {
			opt, ok := findOption(e.Options, prev.ID)
			if !ok || opt.IsCorrect != prev.IsCorrect || opt.Invalid && !prev.Invalid {
				return true
			}
		}
	case domain.ShortAnswer:
		e := edited.(domain.ShortAnswer)
		for _, prev := range o.Spots {
			s, ok := findSpot(e.Spots, prev.ID)
			if !ok || s.Invalid && !prev.Invalid {
				return true
			}
		}
		for _, prev := range o.Solutions {
			s, ok := findSolution(e.Solutions, prev.ID)
			if !ok || s.Invalid && !prev.Invalid || s.Text != prev.Text {
				return true
			}
		}
		if spotMappingsChanged(e.Mappings, o.Mappings) {
			return true
		}
	case domain.DragAndDrop:
		e := edited.(domain.DragAndDrop)
		for _, prev := range o.DragItems {
			it, ok := findItem(e.DragItems, prev.ID)
			if !ok || it.Invalid && !prev.Invalid {
				return true
			}
		}
		for _, prev := range o.DropLocations {
			loc, ok := findLocation(e.DropLocations, prev.ID)
			if !ok || loc.Invalid && !prev.Invalid {
				return true
			}
		}
		if dropMappingsChanged(e.Mappings, o.Mappings) {
			return true
		}
	}
	return false
}

func spotMappingsChanged(edited, original []domain.SpotMapping) bool {
	if len(edited) != len(original) {
		return true
	}
	prev := make(map[pair]bool, len(original))
	for _, m := range original {
		prev[pair{m.SpotID, m.SolutionID}] = m.Invalid
	}
	for _, m := range edited {
		invalid, ok := prev[pair{m.SpotID, m.SolutionID}]
		if !ok || m.Invalid && !invalid {
			return true
		}
	}
	return false
}

func dropMappingsChanged(edited, original []domain.DropMapping) bool {
	if len(edited) != len(original) {
		return true
	}
	prev := make(map[pair]bool, len(original))
	for _, m := range original {
		prev[pair{m.DragItemID, m.DropLocationID}] = m.Invalid
	}
	for _, m := range edited {
		invalid, ok := prev[pair{m.DragItemID, m.DropLocationID}]
		if !ok || m.Invalid && !invalid {
			return true
		}
	}
	return false
}

func findOption(options []domain.AnswerOption, id int64) (domain.AnswerOption, bool) {
	for _, o := range options {
		if o.ID == id {
			return o, true
		}
	}
	return domain.AnswerOption{}, false
}

func findSpot(spots []domain.Spot, id int64) (domain.Spot, bool) {
	for _, s := range spots {
		if s.ID == id {
			return s, true
		}
	}
	return domain.Spot{}, false
}

func findSolution(solutions []domain.Solution, id int64) (domain.Solution, bool) {
	for _, s := range solutions {
		if s.ID == id {
			return s, true
		}
	}
	return domain.Solution{}, false
}

func findItem(items []domain.DragItem, id int64) (domain.DragItem, bool) {
	for _, it := range items {
		if it.ID == id {
			return it, true
		}
	}
	return domain.DragItem{}, false
}

func findLocation(locations []domain.DropLocation, id int64) (domain.DropLocation, bool) {
	for _, loc := range locations {
		if loc.ID == id {
			return loc, true
		}
	}
	return domain.DropLocation{}, false
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
