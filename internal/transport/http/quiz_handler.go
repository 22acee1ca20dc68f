package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"quiz-stats-service/internal/app"
	"quiz-stats-service/internal/domain"
	"quiz-stats-service/internal/reevaluation"
)

var errReadOnly = errors.New("connection has no participantId")

// QuizHandler serves quiz edits and statistics over plain JSON.
type QuizHandler struct {
	service *app.QuizService
}

func NewQuizHandler(service *app.QuizService) *QuizHandler {
	return &QuizHandler{service: service}
}

// Register mounts the handler's routes on mux.
func (h *QuizHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("PUT /quizzes/{id}", h.reEvaluate)
	mux.HandleFunc("POST /quizzes/{id}/recalculate", h.recalculate)
	mux.HandleFunc("GET /quizzes/{id}/statistics", h.statistics)
	mux.HandleFunc("DELETE /results/{id}", h.withdraw)
}

func (h *QuizHandler) reEvaluate(w http.ResponseWriter, r *http.Request) {
	var quiz domain.Quiz
	if err := json.NewDecoder(r.Body).Decode(&quiz); err != nil {
		writeJSON(w, http.StatusBadRequest, errorPayload{Message: "invalid quiz payload"})
		return
	}
	if quiz.ID == "" {
		quiz.ID = r.PathValue("id")
	}
	if quiz.ID != r.PathValue("id") {
		writeJSON(w, http.StatusBadRequest, errorPayload{Message: "quiz id does not match path"})
		return
	}

	run, err := h.service.ReEvaluate(r.Context(), quiz)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (h *QuizHandler) recalculate(w http.ResponseWriter, r *http.Request) {
	updated, err := h.service.Recalculate(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"resultsUpdated": updated})
}

func (h *QuizHandler) statistics(w http.ResponseWriter, r *http.Request) {
	snap, err := h.service.Statistics(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (h *QuizHandler) withdraw(w http.ResponseWriter, r *http.Request) {
	if err := h.service.WithdrawResult(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeError(w http.ResponseWriter, err error) {
	var disallowed *reevaluation.DisallowedEditError
	switch {
	case errors.As(err, &disallowed):
		writeJSON(w, http.StatusUnprocessableEntity, struct {
			errorPayload
			Changes []reevaluation.Change `json:"changes"`
		}{errorPayload{Message: err.Error()}, disallowed.Changes})
	case errors.Is(err, domain.ErrQuizNotFound), errors.Is(err, domain.ErrResultNotFound):
		writeJSON(w, http.StatusNotFound, errorPayload{Message: err.Error()})
	case errors.Is(err, domain.ErrReEvaluationInProgress):
		writeJSON(w, http.StatusConflict, errorPayload{Message: err.Error(), Retryable: true})
	case errors.Is(err, domain.ErrInvalidQuiz), errors.Is(err, domain.ErrQuestionNotFound),
		errors.Is(err, domain.ErrQuestionKindMismatch), errors.Is(err, domain.ErrUnknownQuestionKind),
		errors.Is(err, domain.ErrUnknownElement):
		writeJSON(w, http.StatusBadRequest, errorPayload{Message: err.Error()})
	default:
		log.Printf("request failed: %v", err)
		writeJSON(w, http.StatusInternalServerError, errorPayload{Message: "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("write response: %v", err)
	}
}

func errorMessage(err error) outboundMessage[any] {
	return outboundMessage[any]{Type: "error", Payload: errorPayload{
		Message:   err.Error(),
		Retryable: errors.Is(err, domain.ErrReEvaluationInProgress),
	}}
}
