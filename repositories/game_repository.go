package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/courtside/matchplay/models"
)

// GameRepository создаёт игровую сессию при взаимном коммите двух заявок.
type GameRepository interface {
	CreateSession(ctx context.Context, exec SQLExecutor, session *models.GameSession) error
}

type postgresGameRepository struct {
	db *sql.DB
}

func NewPostgresGameRepository(db *sql.DB) GameRepository {
	return &postgresGameRepository{db: db}
}

func (r *postgresGameRepository) exec(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresGameRepository) CreateSession(ctx context.Context, exec SQLExecutor, session *models.GameSession) error {
	executor := r.exec(exec)

	query := `
		INSERT INTO game_sessions (public_code, format, created_by)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`

	err := executor.QueryRowContext(ctx, query,
		session.PublicCode,
		string(session.Format),
		session.CreatedBy,
	).Scan(&session.ID, &session.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create game session: %w", err)
	}

	stmt := `INSERT INTO game_players (game_id, user_id, team) VALUES ($1, $2, $3)`
	for _, userID := range session.Team1 {
		if _, err := executor.ExecContext(ctx, stmt, session.ID, userID, 1); err != nil {
			return fmt.Errorf("failed to add game player %d: %w", userID, err)
		}
	}
	for _, userID := range session.Team2 {
		if _, err := executor.ExecContext(ctx, stmt, session.ID, userID, 2); err != nil {
			return fmt.Errorf("failed to add game player %d: %w", userID, err)
		}
	}
	return nil
}
