package domain

import (
	"encoding/json"
	"fmt"
)

type questionAlias Question

type questionJSON struct {
	questionAlias
	Type QuestionKind    `json:"type"`
	Body json.RawMessage `json:"body"`
}

// MarshalJSON writes the body next to a "type" discriminator.
func (q Question) MarshalJSON() ([]byte, error) {
	body, err := json.Marshal(q.Body)
	if err != nil {
		return nil, err
	}
	return json.Marshal(questionJSON{questionAlias: questionAlias(q), Type: q.Kind(), Body: body})
}

func (q *Question) UnmarshalJSON(data []byte) error {
	var raw questionJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	body, err := decodeQuestionBody(raw.Type, raw.Body)
	if err != nil {
		return fmt.Errorf("question %d: %w", raw.ID, err)
	}
	*q = Question(raw.questionAlias)
	q.Body = body
	return nil
}

func decodeQuestionBody(kind QuestionKind, data json.RawMessage) (QuestionBody, error) {
	switch kind {
	case KindMultipleChoice:
		var b MultipleChoice
		if err := unmarshalBody(data, &b); err != nil {
			return nil, err
		}
		return b, nil
	case KindShortAnswer:
		var b ShortAnswer
		if err := unmarshalBody(data, &b); err != nil {
			return nil, err
		}
		return b, nil
	case KindDragAndDrop:
		var b DragAndDrop
		if err := unmarshalBody(data, &b); err != nil {
			return nil, err
		}
		return b, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownQuestionKind, kind)
}

type answerAlias SubmittedAnswer

type answerJSON struct {
	answerAlias
	Type QuestionKind    `json:"type"`
	Body json.RawMessage `json:"body"`
}

func (a SubmittedAnswer) MarshalJSON() ([]byte, error) {
	var kind QuestionKind
	if a.Body != nil {
		kind = a.Body.Kind()
	}
	body, err := json.Marshal(a.Body)
	if err != nil {
		return nil, err
	}
	return json.Marshal(answerJSON{answerAlias: answerAlias(a), Type: kind, Body: body})
}

// UnmarshalJSON accepts a missing type as an empty answer.
func (a *SubmittedAnswer) UnmarshalJSON(data []byte) error {
	var raw answerJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*a = SubmittedAnswer(raw.answerAlias)
	switch raw.Type {
	case "":
		a.Body = nil
	case KindMultipleChoice:
		var b MultipleChoiceAnswer
		if err := unmarshalBody(raw.Body, &b); err != nil {
			return err
		}
		a.Body = b
	case KindShortAnswer:
		var b ShortAnswerAnswer
		if err := unmarshalBody(raw.Body, &b); err != nil {
			return err
		}
		a.Body = b
	case KindDragAndDrop:
		var b DragAndDropAnswer
		if err := unmarshalBody(raw.Body, &b); err != nil {
			return err
		}
		a.Body = b
	default:
		return fmt.Errorf("answer for question %d: %w: %q", raw.QuestionID, ErrUnknownQuestionKind, raw.Type)
	}
	return nil
}

func unmarshalBody(data json.RawMessage, v any) error {
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	return json.Unmarshal(data, v)
}
