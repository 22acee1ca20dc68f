package statistics

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"

	"quiz-stats-service/internal/domain"
	"quiz-stats-service/internal/scoring"
)

// Entry is a graded result as seen by the statistic.
type Entry struct {
	ScoreInPoints float64
	Rated         bool
	// Submission supplies the answers for the per-question counters. It may be nil.
	Submission *domain.Submission
}

// Delta changes the statistic by removing one entry and/or adding one.
// A score change is expressed as a single Delta with both set.
type Delta struct {
	Remove *Entry
	Add    *Entry
}

// QuizStatistic holds the live aggregate counters of one quiz: the points
// histogram and one counter set per question. Every mutation runs under mu so
// that a participant total and its point counter always move together.
type QuizStatistic struct {
	quizID string

	mu          sync.Mutex
	quiz        domain.Quiz
	state       *state
	rebuilding  bool
	version     uint64
	subscribers map[chan Snapshot]struct{}
}

// New creates an empty statistic laid out for the quiz.
func New(quiz domain.Quiz) *QuizStatistic {
	return &QuizStatistic{
		quizID:      quiz.ID,
		quiz:        quiz.Clone(),
		state:       newState(quiz),
		version:     uint64(time.Now().UnixMicro()), // keeps versions increasing across restarts
		subscribers: make(map[chan Snapshot]struct{}),
	}
}

// QuizID returns the id of the quiz the statistic belongs to.
func (s *QuizStatistic) QuizID() string {
	return s.quizID
}

// AddResult counts a result that entered the rated or unrated population.
func (s *QuizStatistic) AddResult(e Entry) error {
	return s.Apply(Delta{Add: &e})
}

// RemoveOldResult is the exact inverse of AddResult with the same entry.
func (s *QuizStatistic) RemoveOldResult(e Entry) error {
	return s.Apply(Delta{Remove: &e})
}

// Apply performs the delta atomically. It fails with
// domain.ErrReEvaluationInProgress while a rebuild owns the statistic.
func (s *QuizStatistic) Apply(d Delta) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rebuilding {
		return domain.ErrReEvaluationInProgress
	}
	if d.Remove != nil {
		s.state.apply(s.quiz, *d.Remove, -1)
	}
	if d.Add != nil {
		s.state.apply(s.quiz, *d.Add, 1)
	}
	s.broadcastLocked()
	return nil
}

// ResetStatistic zeroes every counter and participant total.
func (s *QuizStatistic) ResetStatistic() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rebuilding {
		return domain.ErrReEvaluationInProgress
	}
	s.state = newState(s.quiz)
	s.broadcastLocked()
	return nil
}

// Sync lays the counters out for an edited quiz definition without touching
// existing counts: counters of new questions and elements start at zero,
// counters of structurally deleted ones are dropped.
func (s *QuizStatistic) Sync(quiz domain.Quiz) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rebuilding {
		return domain.ErrReEvaluationInProgress
	}
	s.quiz = quiz.Clone()
	s.state.relayout(quiz)
	s.broadcastLocked()
	return nil
}

// Quiz returns the definition the counters are currently laid out for.
func (s *QuizStatistic) Quiz() domain.Quiz {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.quiz.Clone()
}

// Rebuild holds exclusive access to a statistic while its results are
// re-scored. New deltas are rejected until Commit or Abort.
type Rebuild struct {
	stat *QuizStatistic
	once sync.Once
	done bool
}

// errRebuildFinished is returned by Commit after Abort or a previous Commit.
var errRebuildFinished = errors.New("statistics: rebuild already finished")

// BeginRebuild reserves the statistic for a full recomputation.
func (s *QuizStatistic) BeginRebuild() (*Rebuild, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rebuilding {
		return nil, domain.ErrReEvaluationInProgress
	}
	s.rebuilding = true
	s.broadcastLocked()
	return &Rebuild{stat: s}, nil
}

// Commit replays the entries into a fresh shadow state for quiz and swaps it
// in. If ctx ends first the previous counters stay in place.
func (r *Rebuild) Commit(ctx context.Context, quiz domain.Quiz, entries []Entry) error {
	if r.done {
		return errRebuildFinished
	}
	shadow := newState(quiz)
	for i, e := range entries {
		if i%256 == 0 {
			if err := ctx.Err(); err != nil {
				r.Abort()
				return err
			}
		}
		shadow.apply(quiz, e, 1)
	}
	r.finish(func(s *QuizStatistic) {
		s.quiz = quiz.Clone()
		s.state = shadow
	})
	return nil
}

// Abort releases the statistic unchanged.
func (r *Rebuild) Abort() {
	r.finish(func(*QuizStatistic) {})
}

func (r *Rebuild) finish(swap func(*QuizStatistic)) {
	r.once.Do(func() {
		r.done = true
		s := r.stat
		s.mu.Lock()
		defer s.mu.Unlock()
		swap(s)
		s.rebuilding = false
		s.broadcastLocked()
	})
}

// Snapshot returns a copy of all counts.
func (s *QuizStatistic) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Subscribe returns a channel receiving a snapshot after every change. The
// caller must invoke cancel to release it.
func (s *QuizStatistic) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 8)

	s.mu.Lock()
	s.subscribers[ch] = struct{}{}
	initial := s.snapshotLocked()
	s.mu.Unlock()

	ch <- initial

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

// broadcastLocked follows every change: it bumps the version and fans the new
// snapshot out to subscribers.
func (s *QuizStatistic) broadcastLocked() {
	s.version++
	if len(s.subscribers) == 0 {
		return
	}
	snap := s.snapshotLocked()
	for ch := range s.subscribers {
		select {
		case ch <- snap:
		default:
			// drop the oldest pending snapshot; only the latest matters
			select {
			case <-ch:
			default:
			}
			ch <- snap
		}
	}
}

func (s *QuizStatistic) snapshotLocked() Snapshot {
	snap := s.state.snapshot()
	snap.QuizID = s.quizID
	snap.Rebuilding = s.rebuilding
	snap.Version = s.version
	return snap
}

// Counts is a rated/unrated pair.
type Counts struct {
	Rated   int `json:"rated"`
	Unrated int `json:"unrated"`
}

func (c *Counts) add(rated bool, n int) {
	if rated {
		c.Rated += n
	} else {
		c.Unrated += n
	}
}

// Total is rated plus unrated.
func (c Counts) Total() int {
	return c.Rated + c.Unrated
}

type questionState struct {
	participants Counts
	correct      Counts
	elements     map[int64]*Counts
	order        []int64
}

// state is indexed by point value and by question/element id.
type state struct {
	participants Counts
	points       []Counts
	questions    map[int64]*questionState
	order        []int64
}

func newState(quiz domain.Quiz) *state {
	st := &state{
		points:    make([]Counts, quiz.MaxTotalScore()+1),
		questions: make(map[int64]*questionState, len(quiz.Questions)),
	}
	for _, q := range quiz.Questions {
		st.questions[q.ID] = newQuestionState(q)
		st.order = append(st.order, q.ID)
	}
	return st
}

func newQuestionState(q domain.Question) *questionState {
	qs := &questionState{elements: make(map[int64]*Counts)}
	if q.Body != nil {
		for _, id := range q.Body.ElementIDs() {
			qs.elements[id] = &Counts{}
			qs.order = append(qs.order, id)
		}
	}
	return qs
}

// pointIndex maps stored points onto the histogram, rounding half up.
func pointIndex(points float64, maxIndex int) int {
	idx := int(math.Floor(points + 0.5))
	if idx < 0 {
		return 0
	}
	if idx > maxIndex {
		return maxIndex
	}
	return idx
}

func (st *state) apply(quiz domain.Quiz, e Entry, n int) {
	st.participants.add(e.Rated, n)
	st.points[pointIndex(e.ScoreInPoints, len(st.points)-1)].add(e.Rated, n)
	if e.Submission == nil {
		return
	}
	for _, q := range quiz.Questions {
		qs, ok := st.questions[q.ID]
		if !ok {
			continue
		}
		answer := e.Submission.AnswerFor(q.ID)
		if answer == nil || answer.Body == nil {
			continue
		}
		qs.participants.add(e.Rated, n)
		if scoring.IsCorrect(q, answer) {
			qs.correct.add(e.Rated, n)
		}
		for _, id := range countedElements(q, answer.Body) {
			if c, ok := qs.elements[id]; ok {
				c.add(e.Rated, n)
			}
		}
	}
}

// countedElements returns the element ids whose counter an answer increments:
// selected options, matched spots and correctly filled drop locations.
func countedElements(q domain.Question, answer domain.AnswerBody) []int64 {
	var ids []int64
	switch body := q.Body.(type) {
	case domain.MultipleChoice:
		a, ok := answer.(domain.MultipleChoiceAnswer)
		if !ok {
			return nil
		}
		for _, opt := range body.Options {
			if a.Selected(opt.ID) {
				ids = append(ids, opt.ID)
			}
		}
	case domain.ShortAnswer:
		a, ok := answer.(domain.ShortAnswerAnswer)
		if !ok {
			return nil
		}
		for _, spot := range body.Spots {
			if text, answered := a.TextFor(spot.ID); answered && scoring.SpotMatched(body, spot.ID, text) {
				ids = append(ids, spot.ID)
			}
		}
	case domain.DragAndDrop:
		a, ok := answer.(domain.DragAndDropAnswer)
		if !ok {
			return nil
		}
		for _, loc := range body.DropLocations {
			if scoring.LocationCorrect(body, a, loc.ID) {
				ids = append(ids, loc.ID)
			}
		}
	}
	return ids
}

func (st *state) relayout(quiz domain.Quiz) {
	size := quiz.MaxTotalScore() + 1
	if size != len(st.points) {
		points := make([]Counts, size)
		for i, c := range st.points {
			// counts above a lowered maximum fold into the top counter
			j := i
			if j >= size {
				j = size - 1
			}
			points[j].Rated += c.Rated
			points[j].Unrated += c.Unrated
		}
		st.points = points
	}

	questions := make(map[int64]*questionState, len(quiz.Questions))
	order := make([]int64, 0, len(quiz.Questions))
	for _, q := range quiz.Questions {
		order = append(order, q.ID)
		prev, ok := st.questions[q.ID]
		if !ok {
			questions[q.ID] = newQuestionState(q)
			continue
		}
		next := newQuestionState(q)
		next.participants = prev.participants
		next.correct = prev.correct
		for id, c := range next.elements {
			if old, ok := prev.elements[id]; ok {
				*c = *old
			}
		}
		questions[q.ID] = next
	}
	st.questions = questions
	st.order = order
}

func (st *state) snapshot() Snapshot {
	snap := Snapshot{
		Participants: st.participants,
		Points:       make([]PointCount, len(st.points)),
		Questions:    make([]QuestionSnapshot, 0, len(st.order)),
	}
	for i, c := range st.points {
		snap.Points[i] = PointCount{Points: i, Counts: c}
	}
	for _, id := range st.order {
		qs := st.questions[id]
		q := QuestionSnapshot{
			QuestionID:   id,
			Participants: qs.participants,
			Correct:      qs.correct,
			Elements:     make([]ElementCount, 0, len(qs.order)),
		}
		for _, el := range qs.order {
			q.Elements = append(q.Elements, ElementCount{ElementID: el, Counts: *qs.elements[el]})
		}
		snap.Questions = append(snap.Questions, q)
	}
	return snap
}
