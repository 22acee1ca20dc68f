package http

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"quiz-stats-service/internal/app"
	"quiz-stats-service/internal/domain"
	"quiz-stats-service/internal/infra/memory"
)

func TestWebSocketSubmitFlow(t *testing.T) {
	server := httptest.NewServer(newTestMux(newTestService()))
	defer server.Close()

	u := "ws" + server.URL[len("http"):] + "/ws?quizId=quiz-1&participantId=u1"
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// Expect the initial statistics snapshot first.
	_, payload := readNext(conn, t, "statistics")
	if payload["quizId"] != "quiz-1" {
		t.Fatalf("expected statistics of quiz-1, got %v", payload)
	}

	submit := map[string]any{
		"type": "submit",
		"payload": map[string]any{
			"answers": []any{
				map[string]any{
					"questionId": 1,
					"type":       "multiple_choice",
					"body":       map[string]any{"selectedOptionIds": []int{12}},
				},
			},
		},
	}
	if err := conn.WriteJSON(submit); err != nil {
		t.Fatalf("write submit: %v", err)
	}

	// Expect result and an updated statistics snapshot, in either order.
	var result map[string]any
	statsSeen := false
	for i := 0; i < 4 && (result == nil || !statsSeen); i++ {
		typ, payload := readNext(conn, t, "")
		switch typ {
		case "result":
			result = payload
		case "statistics":
			if participants, ok := payload["participants"].(map[string]any); ok && participants["rated"] == float64(1) {
				statsSeen = true
			}
		}
	}
	if result == nil || !statsSeen {
		t.Fatalf("expected result and statistics, got result=%v statistics=%v", result, statsSeen)
	}
	if result["resultString"] != "1 of 1 points" || result["score"] != float64(100) || result["rated"] != true {
		t.Fatalf("unexpected result %v", result)
	}
}

func TestWebSocketWithoutParticipantIsReadOnly(t *testing.T) {
	server := httptest.NewServer(newTestMux(newTestService()))
	defer server.Close()

	u := "ws" + server.URL[len("http"):] + "/ws?quizId=quiz-1"
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	readNext(conn, t, "statistics")
	if err := conn.WriteJSON(map[string]any{"type": "submit", "payload": map[string]any{}}); err != nil {
		t.Fatalf("write submit: %v", err)
	}
	readNext(conn, t, "error")
}

func TestWebSocketRequiresQuizID(t *testing.T) {
	server := httptest.NewServer(newTestMux(newTestService()))
	defer server.Close()

	resp, err := http.Get(server.URL + "/ws")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func readNext(conn *websocket.Conn, t *testing.T, expect string) (string, map[string]any) {
	t.Helper()
	var msg struct {
		Type    string         `json:"type"`
		Payload map[string]any `json:"payload"`
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read json: %v", err)
	}
	if expect != "" && msg.Type != expect {
		t.Fatalf("expected type %s, got %s", expect, msg.Type)
	}
	return msg.Type, msg.Payload
}

func newTestService() *app.QuizService {
	quizRepo := memory.NewQuizRepository(memory.NewStaticQuizStore(sampleQuiz()), time.Minute)
	return app.NewQuizService(quizRepo, memory.NewResultStore(), memory.NewStatisticStore())
}

func newTestMux(service *app.QuizService) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", NewWSHandler(service).ServeWS)
	NewQuizHandler(service).Register(mux)
	return mux
}

func sampleQuiz() map[string]domain.Quiz {
	release := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	return map[string]domain.Quiz{
		"quiz-1": {
			ID:          "quiz-1",
			ReleaseDate: &release,
			Questions: []domain.Question{
				{
					ID:     1,
					Title:  "What is 2 + 2?",
					Points: 1,
					Body: domain.MultipleChoice{Options: []domain.AnswerOption{
						{ID: 11, Text: "3", IsCorrect: false},
						{ID: 12, Text: "4", IsCorrect: true},
						{ID: 13, Text: "5", IsCorrect: false},
					}},
				},
			},
		},
	}
}
