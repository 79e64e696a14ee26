package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quizquest/quizquest-go/internal/model"
)

// LevelRepository loads level content from PostgreSQL. Tasks are stored
// as a JSONB column so authoring a level is a single row insert.
type LevelRepository struct {
	pool *pgxpool.Pool
}

func NewLevelRepository(pool *pgxpool.Pool) *LevelRepository {
	return &LevelRepository{pool: pool}
}

// GetAll returns all levels ordered by sequence.
func (r *LevelRepository) GetAll(ctx context.Context) ([]model.Level, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, title, seq, tasks FROM levels ORDER BY seq ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var levels []model.Level
	for rows.Next() {
		var l model.Level
		var rawTasks []byte
		if err := rows.Scan(&l.ID, &l.Title, &l.Seq, &rawTasks); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(rawTasks, &l.Tasks); err != nil {
			return nil, fmt.Errorf("level %s: decode tasks: %w", l.ID, err)
		}
		levels = append(levels, l)
	}
	return levels, rows.Err()
}
