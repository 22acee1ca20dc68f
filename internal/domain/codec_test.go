package domain

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestQuestionJSONCarriesKind(t *testing.T) {
	q := Question{
		ID:     7,
		Points: 2,
		Body: DragAndDrop{
			DragItems:     []DragItem{{ID: 1}},
			DropLocations: []DropLocation{{ID: 2}, {ID: 3}},
			Mappings:      []DropMapping{{ID: 4, DragItemID: 1, DropLocationID: 2}},
		},
	}
	data, err := json.Marshal(q)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(data), `"type":"drag_and_drop"`) {
		t.Fatalf("expected type discriminator, got %s", data)
	}

	var got Question
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	dnd, ok := got.Body.(DragAndDrop)
	if !ok || !dnd.ItemFits(1, 2) || dnd.HasMapping(3) {
		t.Fatalf("unexpected body %+v", got.Body)
	}
}

func TestUnknownKindIsRejected(t *testing.T) {
	var q Question
	err := json.Unmarshal([]byte(`{"id":1,"type":"essay","body":{}}`), &q)
	if !errors.Is(err, ErrUnknownQuestionKind) {
		t.Fatalf("expected unknown kind, got %v", err)
	}

	var a SubmittedAnswer
	err = json.Unmarshal([]byte(`{"questionId":1,"type":"essay"}`), &a)
	if !errors.Is(err, ErrUnknownQuestionKind) {
		t.Fatalf("expected unknown kind for answer, got %v", err)
	}
}

func TestAnswerWithoutTypeIsEmpty(t *testing.T) {
	var a SubmittedAnswer
	if err := json.Unmarshal([]byte(`{"questionId":3}`), &a); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if a.QuestionID != 3 || a.Body != nil {
		t.Fatalf("expected empty answer for question 3, got %+v", a)
	}

	in := SubmittedAnswer{QuestionID: 4, Body: ShortAnswerAnswer{Texts: []SpotText{{SpotID: 9, Text: "Go"}}}}
	data, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var out SubmittedAnswer
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if text, ok := out.Body.(ShortAnswerAnswer).TextFor(9); !ok || text != "Go" {
		t.Fatalf("expected spot text to survive, got %+v", out.Body)
	}
}
