package domain

import "errors"

var (
	// ErrQuizNotFound indicates the quiz content could not be loaded.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrResultNotFound is returned when a result id is unknown.
	ErrResultNotFound = errors.New("result not found")
	// ErrStatisticNotFound is returned when no statistic exists for a quiz yet.
	ErrStatisticNotFound = errors.New("quiz statistic not found")
	// ErrReEvaluationInProgress is retryable: the quiz statistic is being rebuilt.
	ErrReEvaluationInProgress = errors.New("quiz is being re-evaluated")
	// ErrUnknownQuestionKind indicates a question or answer with an unsupported type tag.
	ErrUnknownQuestionKind = errors.New("unknown question kind")
	// ErrQuestionKindMismatch indicates an answer whose kind differs from its question.
	ErrQuestionKindMismatch = errors.New("answer kind does not match question")
	// ErrInvalidQuiz wraps validation failures of a quiz definition.
	ErrInvalidQuiz = errors.New("invalid quiz definition")
	// ErrQuestionNotFound indicates a submitted answer references an unknown question.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrUnknownElement indicates an answer that references an element its question lacks, or one element twice.
	ErrUnknownElement = errors.New("answer references an unknown element")
)
