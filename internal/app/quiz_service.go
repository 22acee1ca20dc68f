package app

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"quiz-stats-service/internal/domain"
	"quiz-stats-service/internal/reevaluation"
	"quiz-stats-service/internal/scoring"
	"quiz-stats-service/internal/statistics"
)

// QuizRepository loads and stores quiz definitions (from cache/backing store).
type QuizRepository interface {
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
	SaveQuiz(ctx context.Context, quiz domain.Quiz) error
}

// ResultRepository stores graded results.
type ResultRepository interface {
	SaveResult(ctx context.Context, result domain.Result) error
	GetResult(ctx context.Context, resultID string) (domain.Result, error)
	DeleteResult(ctx context.Context, resultID string) error
	ListResults(ctx context.Context, quizID string) ([]domain.Result, error)
}

// StatisticRepository abstracts where live quiz statistics are kept (in-memory, Redis, etc).
type StatisticRepository interface {
	Get(quizID string) (*statistics.QuizStatistic, bool)
	LoadOrStore(stat *statistics.QuizStatistic) *statistics.QuizStatistic
	Delete(quizID string)
}

// SnapshotPublisher shares statistic snapshots outside the process.
type SnapshotPublisher interface {
	Publish(ctx context.Context, snapshot statistics.Snapshot) error
}

// ReEvaluation reports what an edit of a quiz did.
type ReEvaluation struct {
	RunID          string                `json:"runId"`
	Quiz           domain.Quiz           `json:"quiz"`
	Recalculated   bool                  `json:"recalculated"`
	ResultsUpdated int                   `json:"resultsUpdated"`
	Changes        []reevaluation.Change `json:"changes,omitempty"`
}

// Option configures a QuizService.
type Option func(*QuizService)

// WithWorkers bounds the number of results re-scored in parallel.
func WithWorkers(n int) Option {
	return func(s *QuizService) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithStrictEdits rejects disallowed edits of a published quiz instead of
// reverting them.
func WithStrictEdits(strict bool) Option {
	return func(s *QuizService) { s.strictEdits = strict }
}

func WithPublisher(p SnapshotPublisher) Option {
	return func(s *QuizService) { s.publisher = p }
}

// WithClock is test-only for deterministic timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *QuizService) { s.now = now }
}

// QuizService contains the scoring and statistics use cases.
type QuizService struct {
	quizzes   QuizRepository
	results   ResultRepository
	stats     StatisticRepository
	publisher SnapshotPublisher

	workers     int
	strictEdits bool
	now         func() time.Time

	warm        singleflight.Group
	gates       sync.Map // quiz id -> *sync.RWMutex
	resultLocks sync.Map // result id -> *sync.Mutex
}

func NewQuizService(quizzes QuizRepository, results ResultRepository, stats StatisticRepository, opts ...Option) *QuizService {
	s := &QuizService{
		quizzes: quizzes,
		results: results,
		stats:   stats,
		workers: 4,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SubmitResult grades a submission, counts it in the quiz statistic and stores it.
// The result is rated when it arrives while the quiz is live.
func (s *QuizService) SubmitResult(ctx context.Context, quizID string, submission domain.Submission) (domain.Result, error) {
	gate := s.gate(quizID)
	if !gate.TryRLock() {
		return domain.Result{}, domain.ErrReEvaluationInProgress
	}
	defer gate.RUnlock()

	quiz, err := s.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return domain.Result{}, err
	}
	if err := domain.ValidateSubmission(quiz, submission); err != nil {
		return domain.Result{}, err
	}
	stat, err := s.statistic(ctx, quizID)
	if err != nil {
		return domain.Result{}, err
	}

	now := s.now()
	result := grade(quiz, submission, live(quiz, now))
	result.ID = uuid.NewString()
	result.QuizID = quizID
	result.CompletedAt = now
	if result.Submission.ID == "" {
		result.Submission.ID = result.ID
	}

	entry := entryFor(result)
	if err := stat.AddResult(entry); err != nil {
		return domain.Result{}, err
	}
	if err := s.results.SaveResult(ctx, result); err != nil {
		if rerr := stat.RemoveOldResult(entry); rerr != nil {
			log.Printf("revert statistic of quiz %s: %v", quizID, rerr)
		}
		return domain.Result{}, err
	}
	s.publish(ctx, stat)
	return result, nil
}

// ReplaceResult re-grades a stored result with a new submission. The old
// contribution is removed and the new one added in a single step. A result of
// another participant is reported as not found.
func (s *QuizService) ReplaceResult(ctx context.Context, resultID string, submission domain.Submission) (domain.Result, error) {
	located, err := s.results.GetResult(ctx, resultID)
	if err != nil {
		return domain.Result{}, err
	}

	gate := s.gate(located.QuizID)
	if !gate.TryRLock() {
		return domain.Result{}, domain.ErrReEvaluationInProgress
	}
	defer gate.RUnlock()
	defer s.lockResult(resultID)()

	// a rebuild or another replace may have changed it since it was located
	old, err := s.results.GetResult(ctx, resultID)
	if err != nil {
		return domain.Result{}, err
	}
	if submission.ParticipantID != "" && submission.ParticipantID != old.Submission.ParticipantID {
		return domain.Result{}, domain.ErrResultNotFound
	}

	quiz, err := s.quizzes.GetQuiz(ctx, old.QuizID)
	if err != nil {
		return domain.Result{}, err
	}
	if err := domain.ValidateSubmission(quiz, submission); err != nil {
		return domain.Result{}, err
	}
	stat, err := s.statistic(ctx, old.QuizID)
	if err != nil {
		return domain.Result{}, err
	}

	now := s.now()
	result := grade(quiz, submission, live(quiz, now))
	result.ID = old.ID
	result.QuizID = old.QuizID
	result.CompletedAt = now
	if result.Submission.ID == "" {
		result.Submission.ID = old.Submission.ID
	}

	oldEntry, newEntry := entryFor(old), entryFor(result)
	if err := stat.Apply(statistics.Delta{Remove: &oldEntry, Add: &newEntry}); err != nil {
		return domain.Result{}, err
	}
	if err := s.results.SaveResult(ctx, result); err != nil {
		if rerr := stat.Apply(statistics.Delta{Remove: &newEntry, Add: &oldEntry}); rerr != nil {
			log.Printf("revert statistic of quiz %s: %v", old.QuizID, rerr)
		}
		return domain.Result{}, err
	}
	s.publish(ctx, stat)
	return result, nil
}

// WithdrawResult removes a stored result and its contribution to the statistic.
func (s *QuizService) WithdrawResult(ctx context.Context, resultID string) error {
	located, err := s.results.GetResult(ctx, resultID)
	if err != nil {
		return err
	}

	gate := s.gate(located.QuizID)
	if !gate.TryRLock() {
		return domain.ErrReEvaluationInProgress
	}
	defer gate.RUnlock()
	defer s.lockResult(resultID)()

	old, err := s.results.GetResult(ctx, resultID)
	if err != nil {
		return err
	}
	stat, err := s.statistic(ctx, old.QuizID)
	if err != nil {
		return err
	}
	entry := entryFor(old)
	if err := stat.RemoveOldResult(entry); err != nil {
		return err
	}
	if err := s.results.DeleteResult(ctx, resultID); err != nil {
		if rerr := stat.AddResult(entry); rerr != nil {
			log.Printf("revert statistic of quiz %s: %v", old.QuizID, rerr)
		}
		return err
	}
	s.resultLocks.Delete(resultID)
	s.publish(ctx, stat)
	return nil
}

// ReEvaluate accepts an edited quiz definition. For a published quiz the
// disallowed edits are reverted (or rejected in strict mode); when the
// remaining edits change how answers are graded, every stored result is
// re-scored and the statistic rebuilt from scratch.
func (s *QuizService) ReEvaluate(ctx context.Context, edited domain.Quiz) (ReEvaluation, error) {
	if err := domain.Validate(edited); err != nil {
		return ReEvaluation{}, err
	}

	gate := s.gate(edited.ID)
	gate.Lock()
	defer gate.Unlock()

	original, err := s.quizzes.GetQuiz(ctx, edited.ID)
	if err != nil {
		return ReEvaluation{}, err
	}

	published, err := s.published(ctx, original)
	if err != nil {
		return ReEvaluation{}, err
	}

	run := ReEvaluation{RunID: uuid.NewString(), Quiz: edited}
	if published {
		run.Changes = reevaluation.Diff(edited, original)
		if s.strictEdits && len(run.Changes) > 0 {
			return ReEvaluation{}, &reevaluation.DisallowedEditError{QuizID: edited.ID, Changes: run.Changes}
		}
		run.Quiz = reevaluation.UndoUnallowedChanges(edited, original)
		run.Recalculated = reevaluation.IsRecalculationNecessary(run.Quiz, original)
	} else {
		run.Recalculated = reevaluation.IsRecalculationNecessary(run.Quiz, original) ||
			run.Quiz.MaxTotalScore() != original.MaxTotalScore()
	}
	log.Printf("re-evaluation %s of quiz %s: %d reverted edits, recalculate=%v", run.RunID, edited.ID, len(run.Changes), run.Recalculated)

	if !run.Recalculated {
		if err := s.syncQuiz(ctx, run.Quiz, original); err != nil {
			return ReEvaluation{}, err
		}
		return run, nil
	}

	if err := s.quizzes.SaveQuiz(ctx, run.Quiz); err != nil {
		return ReEvaluation{}, err
	}
	updated, err := s.rebuild(ctx, run.Quiz)
	if err != nil {
		return ReEvaluation{}, fmt.Errorf("re-evaluation %s: %w", run.RunID, err)
	}
	run.ResultsUpdated = updated
	return run, nil
}

// Recalculate re-scores every stored result of a quiz against its current
// definition and rebuilds the statistic.
func (s *QuizService) Recalculate(ctx context.Context, quizID string) (int, error) {
	gate := s.gate(quizID)
	gate.Lock()
	defer gate.Unlock()

	quiz, err := s.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return 0, err
	}
	return s.rebuild(ctx, quiz)
}

// Statistics returns the current counts of a quiz.
func (s *QuizService) Statistics(ctx context.Context, quizID string) (statistics.Snapshot, error) {
	stat, err := s.statistic(ctx, quizID)
	if err != nil {
		return statistics.Snapshot{}, err
	}
	return stat.Snapshot(), nil
}

// Subscribe returns a channel that receives statistic snapshots for a quiz.
// The caller must invoke the returned cancel function to avoid leaks.
func (s *QuizService) Subscribe(ctx context.Context, quizID string) (<-chan statistics.Snapshot, func(), error) {
	stat, err := s.statistic(ctx, quizID)
	if err != nil {
		return nil, nil, err
	}
	ch, cancel := stat.Subscribe()
	return ch, cancel, nil
}

// rebuild re-scores all results of quiz and swaps in a statistic built from
// them. The caller holds the quiz gate exclusively.
func (s *QuizService) rebuild(ctx context.Context, quiz domain.Quiz) (int, error) {
	stat, err := s.statistic(ctx, quiz.ID)
	if err != nil {
		return 0, err
	}
	rb, err := stat.BeginRebuild()
	if err != nil {
		return 0, err
	}
	s.publish(ctx, stat)

	results, err := s.results.ListResults(ctx, quiz.ID)
	if err != nil {
		s.settle(ctx, stat, rb, quiz)
		return 0, err
	}

	changed := make([]bool, len(results))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i := range results {
		g.Go(func() error {
			rescored := grade(quiz, results[i].Submission, results[i].Rated)
			rescored.ID = results[i].ID
			rescored.QuizID = results[i].QuizID
			rescored.CompletedAt = results[i].CompletedAt
			if rescored.ScoreInPoints == results[i].ScoreInPoints && rescored.Score == results[i].Score {
				results[i] = rescored
				return nil
			}
			results[i] = rescored
			changed[i] = true
			return s.results.SaveResult(gctx, rescored)
		})
	}
	if err := g.Wait(); err != nil {
		s.settle(ctx, stat, rb, quiz)
		return 0, err
	}

	entries := make([]statistics.Entry, len(results))
	updated := 0
	for i, r := range results {
		entries[i] = entryFor(r)
		if changed[i] {
			updated++
		}
	}
	if err := rb.Commit(ctx, quiz, entries); err != nil {
		s.settle(ctx, stat, rb, quiz)
		return 0, err
	}
	s.publish(ctx, stat)
	return updated, nil
}

// settle ends a failed rebuild. Some results may already be stored with new
// scores, so the statistic is replayed from whatever the store holds now. If
// that fails too, the statistic is dropped and warmed up again on next use.
func (s *QuizService) settle(ctx context.Context, stat *statistics.QuizStatistic, rb *statistics.Rebuild, quiz domain.Quiz) {
	ctx = context.WithoutCancel(ctx)
	results, err := s.results.ListResults(ctx, quiz.ID)
	if err == nil {
		entries := make([]statistics.Entry, len(results))
		for i, r := range results {
			entries[i] = entryFor(r)
		}
		err = rb.Commit(ctx, quiz, entries)
	}
	if err != nil {
		rb.Abort()
		s.stats.Delete(quiz.ID)
		log.Printf("statistic of quiz %s dropped after failed rebuild: %v", quiz.ID, err)
		return
	}
	s.publish(ctx, stat)
}

// syncQuiz stores an edit that leaves existing results valid and lays the
// statistic out for it.
func (s *QuizService) syncQuiz(ctx context.Context, quiz, original domain.Quiz) error {
	stat, ok := s.stats.Get(quiz.ID)
	if ok {
		if err := stat.Sync(quiz); err != nil {
			return err
		}
	}
	if err := s.quizzes.SaveQuiz(ctx, quiz); err != nil {
		if ok {
			if rerr := stat.Sync(original); rerr != nil {
				log.Printf("revert statistic layout of quiz %s: %v", quiz.ID, rerr)
			}
		}
		return err
	}
	if ok {
		s.publish(ctx, stat)
	}
	return nil
}

// statistic returns the live statistic of a quiz, building it from the
// stored results when none exists yet (e.g., after a restart).
func (s *QuizService) statistic(ctx context.Context, quizID string) (*statistics.QuizStatistic, error) {
	if stat, ok := s.stats.Get(quizID); ok {
		return stat, nil
	}
	result, err, _ := s.warm.Do(quizID, func() (interface{}, error) {
		if stat, ok := s.stats.Get(quizID); ok {
			return stat, nil
		}
		quiz, err := s.quizzes.GetQuiz(ctx, quizID)
		if err != nil {
			return nil, err
		}
		results, err := s.results.ListResults(ctx, quizID)
		if err != nil {
			return nil, err
		}
		stat := statistics.New(quiz)
		for _, r := range results {
			if err := stat.AddResult(entryFor(r)); err != nil {
				return nil, err
			}
		}
		return s.stats.LoadOrStore(stat), nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*statistics.QuizStatistic), nil
}

func (s *QuizService) gate(quizID string) *sync.RWMutex {
	gate, _ := s.gates.LoadOrStore(quizID, &sync.RWMutex{})
	return gate.(*sync.RWMutex)
}

func (s *QuizService) lockResult(resultID string) (unlock func()) {
	mu, _ := s.resultLocks.LoadOrStore(resultID, &sync.Mutex{})
	m := mu.(*sync.Mutex)
	m.Lock()
	return m.Unlock
}

// published reports whether the quiz was released or already holds a rated
// result.
func (s *QuizService) published(ctx context.Context, quiz domain.Quiz) (bool, error) {
	if quiz.ReleaseDate != nil && !quiz.ReleaseDate.After(s.now()) {
		return true, nil
	}
	stat, err := s.statistic(ctx, quiz.ID)
	if err != nil {
		return false, err
	}
	return stat.Snapshot().Participants.Rated > 0, nil
}

// live reports whether a result completed at t counts as rated: after the
// release date and before the due date, where set.
func live(quiz domain.Quiz, t time.Time) bool {
	if quiz.ReleaseDate != nil && t.Before(*quiz.ReleaseDate) {
		return false
	}
	return quiz.DueDate == nil || !t.After(*quiz.DueDate)
}

func (s *QuizService) publish(ctx context.Context, stat *statistics.QuizStatistic) {
	if s.publisher == nil {
		return
	}
	// best-effort: the in-process statistic stays authoritative
	if err := s.publisher.Publish(ctx, stat.Snapshot()); err != nil {
		log.Printf("publish statistics of quiz %s: %v", stat.QuizID(), err)
	}
}

func grade(quiz domain.Quiz, submission domain.Submission, rated bool) domain.Result {
	submission.Answers = append([]domain.SubmittedAnswer(nil), submission.Answers...)
	eval := scoring.Evaluate(quiz, submission)
	eval.Apply(&submission)
	return domain.Result{
		Submission:    submission,
		Score:         eval.ScorePercent,
		ScoreInPoints: eval.ScoreInPoints,
		Rated:         rated,
		ResultString:  eval.ResultString,
	}
}

func entryFor(r domain.Result) statistics.Entry {
	submission := r.Submission
	return statistics.Entry{
		ScoreInPoints: r.ScoreInPoints,
		Rated:         r.Rated,
		Submission:    &submission,
	}
}
