package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"quiz-stats-service/internal/domain"
	"quiz-stats-service/internal/statistics"
)

func TestReEvaluateEndpoint(t *testing.T) {
	service := newTestService()
	server := httptest.NewServer(newTestMux(service))
	defer server.Close()

	submission := domain.Submission{ParticipantID: "u1", Answers: []domain.SubmittedAnswer{
		{QuestionID: 1, Body: domain.MultipleChoiceAnswer{SelectedOptionIDs: []int64{11}}},
	}}
	if _, err := service.SubmitResult(context.Background(), "quiz-1", submission); err != nil {
		t.Fatalf("submit: %v", err)
	}

	edited := sampleQuiz()["quiz-1"]
	edited.Questions[0].Invalid = true
	body, err := json.Marshal(edited)
	if err != nil {
		t.Fatalf("marshal quiz: %v", err)
	}
	req, _ := http.NewRequest(http.MethodPut, server.URL+"/quizzes/quiz-1", bytes.NewReader(body))
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var run struct {
		Recalculated   bool `json:"recalculated"`
		ResultsUpdated int  `json:"resultsUpdated"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&run); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !run.Recalculated || run.ResultsUpdated != 1 {
		t.Fatalf("unexpected run %+v", run)
	}

	statsResp, err := http.Get(server.URL + "/quizzes/quiz-1/statistics")
	if err != nil {
		t.Fatalf("get statistics: %v", err)
	}
	defer statsResp.Body.Close()
	var snap statistics.Snapshot
	if err := json.NewDecoder(statsResp.Body).Decode(&snap); err != nil {
		t.Fatalf("decode statistics: %v", err)
	}
	if len(snap.Points) != 2 || snap.Points[1].Rated != 1 {
		t.Fatalf("expected the result credited with full points, got %+v", snap.Points)
	}
}

func TestEndpointsMapErrors(t *testing.T) {
	server := httptest.NewServer(newTestMux(newTestService()))
	defer server.Close()

	resp, err := http.Get(server.URL + "/quizzes/missing/statistics")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}

	req, _ := http.NewRequest(http.MethodDelete, server.URL+"/results/missing", nil)
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}

	req, _ = http.NewRequest(http.MethodPut, server.URL+"/quizzes/quiz-1", bytes.NewReader([]byte(`{"id":"other"}`)))
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}
