package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"quiz-stats-service/internal/domain"
)

// ResultStore keeps graded results in Postgres. The full result is stored as
// JSONB; the scalar columns serve filtering and ordering.
type ResultStore struct {
	pool *pgxpool.Pool
}

func NewResultStore(pool *pgxpool.Pool) *ResultStore {
	return &ResultStore{pool: pool}
}

func (s *ResultStore) SaveResult(ctx context.Context, result domain.Result) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO results (id, quiz_id, rated, score_in_points, score, completed_at, data)
		 VALUES ($1, $2, $3, $4, $5, $6, $7::jsonb)
		 ON CONFLICT (id) DO UPDATE SET
		   rated=EXCLUDED.rated,
		   score_in_points=EXCLUDED.score_in_points,
		   score=EXCLUDED.score,
		   completed_at=EXCLUDED.completed_at,
		   data=EXCLUDED.data`,
		result.ID, result.QuizID, result.Rated, result.ScoreInPoints, result.Score, result.CompletedAt, string(data))
	if err != nil {
		return fmt.Errorf("save result: %w", err)
	}
	return nil
}

func (s *ResultStore) GetResult(ctx context.Context, resultID string) (domain.Result, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx, `SELECT data FROM results WHERE id=$1`, resultID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Result{}, domain.ErrResultNotFound
	}
	if err != nil {
		return domain.Result{}, fmt.Errorf("load result: %w", err)
	}
	return decodeResult(raw)
}

func (s *ResultStore) DeleteResult(ctx context.Context, resultID string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM results WHERE id=$1`, resultID)
	if err != nil {
		return fmt.Errorf("delete result: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrResultNotFound
	}
	return nil
}

func (s *ResultStore) ListResults(ctx context.Context, quizID string) ([]domain.Result, error) {
	rows, err := s.pool.Query(ctx, `SELECT data FROM results WHERE quiz_id=$1 ORDER BY completed_at, id`, quizID)
	if err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Result, 0)
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		result, err := decodeResult(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, result)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	return out, nil
}

func decodeResult(raw []byte) (domain.Result, error) {
	var result domain.Result
	if err := json.Unmarshal(raw, &result); err != nil {
		return domain.Result{}, fmt.Errorf("unmarshal result: %w", err)
	}
	return result, nil
}
