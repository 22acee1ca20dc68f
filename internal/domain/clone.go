package domain

// Clone returns a deep copy so edits never alias the published definition.
func (q Quiz) Clone() Quiz {
	out := q
	if q.ReleaseDate != nil {
		t := *q.ReleaseDate
		out.ReleaseDate = &t
	}
	if q.DueDate != nil {
		t := *q.DueDate
		out.DueDate = &t
	}
	out.Questions = make([]Question, len(q.Questions))
	for i, question := range q.Questions {
		out.Questions[i] = question
		out.Questions[i].Body = CloneBody(question.Body)
	}
	return out
}

// CloneBody copies the element slices of a question body.
func CloneBody(body QuestionBody) QuestionBody {
	switch b := body.(type) {
	case MultipleChoice:
		b.Options = append([]AnswerOption(nil), b.Options...)
		return b
	case ShortAnswer:
		b.Spots = append([]Spot(nil), b.Spots...)
		b.Solutions = append([]Solution(nil), b.Solutions...)
		b.Mappings = append([]SpotMapping(nil), b.Mappings...)
		return b
	case DragAndDrop:
		b.DragItems = append([]DragItem(nil), b.DragItems...)
		b.DropLocations = append([]DropLocation(nil), b.DropLocations...)
		b.Mappings = append([]DropMapping(nil), b.Mappings...)
		return b
	}
	return body
}
