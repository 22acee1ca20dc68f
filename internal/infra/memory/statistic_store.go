package memory

import (
	"sync"

	"quiz-stats-service/internal/statistics"
)

// StatisticStore is an in-memory implementation of app.StatisticRepository.
type StatisticStore struct {
	mu    sync.RWMutex
	stats map[string]*statistics.QuizStatistic
}

func NewStatisticStore() *StatisticStore {
	return &StatisticStore{
		stats: make(map[string]*statistics.QuizStatistic),
	}
}

func (s *StatisticStore) Get(quizID string) (*statistics.QuizStatistic, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stat, ok := s.stats[quizID]
	return stat, ok
}

// LoadOrStore keeps the first statistic stored for a quiz and returns it.
func (s *StatisticStore) LoadOrStore(stat *statistics.QuizStatistic) *statistics.QuizStatistic {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.stats[stat.QuizID()]; ok {
		return existing
	}
	s.stats[stat.QuizID()] = stat
	return stat
}

func (s *StatisticStore) Delete(quizID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.stats, quizID)
}
