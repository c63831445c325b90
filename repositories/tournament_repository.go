package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/courtside/matchplay/models"
)

var (
	ErrTournamentNotFound = errors.New("tournament not found")
	// ErrTournamentCapacity - guarded-инкремент не прошёл проверку
	// current_participants < max_participants.
	ErrTournamentCapacity = errors.New("tournament has no remaining capacity")
)

type TournamentRepository interface {
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Tournament, error)
	// IncrementParticipants увеличивает счётчик ровно на единицу, с защитой
	// от переполнения вместимости. Только внутри транзакции координатора.
	IncrementParticipants(ctx context.Context, exec SQLExecutor, id int) error
}

type postgresTournamentRepository struct {
	db *sql.DB
}

func NewPostgresTournamentRepository(db *sql.DB) TournamentRepository {
	return &postgresTournamentRepository{db: db}
}

func (r *postgresTournamentRepository) exec(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresTournamentRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Tournament, error) {
	query := `
		SELECT id, name, format, status, max_participants, current_participants, created_at
		FROM tournaments
		WHERE id = $1`

	var (
		t      models.Tournament
		format string
		status string
	)
	err := r.exec(exec).QueryRowContext(ctx, query, id).Scan(
		&t.ID,
		&t.Name,
		&format,
		&status,
		&t.MaxParticipants,
		&t.CurrentParticipants,
		&t.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}

	t.Format = models.GameFormat(format)
	t.Status = models.TournamentStatus(status)
	return &t, nil
}

func (r *postgresTournamentRepository) IncrementParticipants(ctx context.Context, exec SQLExecutor, id int) error {
	query := `
		UPDATE tournaments
		SET current_participants = current_participants + 1
		WHERE id = $1 AND current_participants < max_participants`

	result, err := r.exec(exec).ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrTournamentCapacity)
}
