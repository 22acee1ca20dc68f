package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"quiz-stats-service/internal/domain"
	"quiz-stats-service/internal/statistics"
)

// StatisticStore is a Redis-aware implementation of app.StatisticRepository.
// Notes:
//   - The live counters stay in a local map; they are mutated under the
//     statistic's own lock and cannot be shared across instances.
//   - Redis carries a liveness marker per quiz and the latest published
//     snapshot, which other instances and dashboards read with LoadSnapshot.
type StatisticStore struct {
	client *redis.Client
	ttl    time.Duration
	mu     sync.RWMutex
	stats  map[string]*statistics.QuizStatistic
}

func NewStatisticStore(client *redis.Client, ttl time.Duration) *StatisticStore {
	return &StatisticStore{
		client: client,
		ttl:    ttl,
		stats:  make(map[string]*statistics.QuizStatistic),
	}
}

func (s *StatisticStore) Get(quizID string) (*statistics.QuizStatistic, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stat, ok := s.stats[quizID]
	return stat, ok
}

func (s *StatisticStore) LoadOrStore(stat *statistics.QuizStatistic) *statistics.QuizStatistic {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.stats[stat.QuizID()]; ok {
		return existing
	}
	s.stats[stat.QuizID()] = stat
	// best-effort liveness marker
	_ = s.client.Set(context.Background(), s.liveKey(stat.QuizID()), "1", s.ttl).Err()
	return stat
}

func (s *StatisticStore) Delete(quizID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.stats, quizID)
	_ = s.client.Del(context.Background(), s.liveKey(quizID), s.snapshotKey(quizID)).Err()
}

// publishScript replaces the stored snapshot only with a newer version.
// KEYS: snapshot hash, liveness marker. ARGV: version, data, ttl in ms.
var publishScript = redis.NewScript(`
local current = redis.call('HGET', KEYS[1], 'version')
redis.call('SET', KEYS[2], '1', 'PX', ARGV[3])
if current and tonumber(current) >= tonumber(ARGV[1]) then
	return 0
end
redis.call('HSET', KEYS[1], 'version', ARGV[1], 'data', ARGV[2])
redis.call('PEXPIRE', KEYS[1], ARGV[3])
return 1
`)

// Publish stores the snapshot as the quiz's shared read model and refreshes
// the liveness marker. A snapshot older than the stored one is ignored.
func (s *StatisticStore) Publish(ctx context.Context, snapshot statistics.Snapshot) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	keys := []string{s.snapshotKey(snapshot.QuizID), s.liveKey(snapshot.QuizID)}
	if err := publishScript.Run(ctx, s.client, keys, snapshot.Version, data, s.ttl.Milliseconds()).Err(); err != nil {
		return fmt.Errorf("publish snapshot %s: %w", snapshot.QuizID, err)
	}
	return nil
}

// LoadSnapshot reads the last published snapshot of a quiz.
func (s *StatisticStore) LoadSnapshot(ctx context.Context, quizID string) (statistics.Snapshot, error) {
	data, err := s.client.HGet(ctx, s.snapshotKey(quizID), "data").Bytes()
	if errors.Is(err, redis.Nil) {
		return statistics.Snapshot{}, domain.ErrStatisticNotFound
	}
	if err != nil {
		return statistics.Snapshot{}, fmt.Errorf("load snapshot %s: %w", quizID, err)
	}
	var snapshot statistics.Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return statistics.Snapshot{}, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return snapshot, nil
}

func (s *StatisticStore) liveKey(quizID string) string {
	return "quiz:statistic:" + quizID
}

func (s *StatisticStore) snapshotKey(quizID string) string {
	return "quiz:" + quizID + ":statistics"
}
