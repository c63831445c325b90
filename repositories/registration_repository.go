package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/courtside/matchplay/models"
)

// RegistrationRepository пишет командные регистрации турнира и строки игроков.
// Все методы выполняются через SQLExecutor: вставки происходят только внутри
// транзакции координатора.
type RegistrationRepository interface {
	CreateTeam(ctx context.Context, exec SQLExecutor, reg *models.TeamRegistration) error
	AddPlayers(ctx context.Context, exec SQLExecutor, players []*models.RegistrationPlayer) error
	ListByTournament(ctx context.Context, tournamentID int) ([]*models.TeamRegistration, error)
}

type postgresRegistrationRepository struct {
	db *sql.DB
}

func NewPostgresRegistrationRepository(db *sql.DB) RegistrationRepository {
	return &postgresRegistrationRepository{db: db}
}

func (r *postgresRegistrationRepository) exec(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresRegistrationRepository) CreateTeam(ctx context.Context, exec SQLExecutor, reg *models.TeamRegistration) error {
	query := `
		INSERT INTO tournament_registrations (tournament_id, division_id, team_name)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`

	err := r.exec(exec).QueryRowContext(ctx, query,
		reg.TournamentID,
		reg.DivisionID,
		reg.TeamName,
	).Scan(&reg.ID, &reg.CreatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrTournamentNotFound
		}
		return fmt.Errorf("failed to create tournament registration: %w", err)
	}
	return nil
}

func (r *postgresRegistrationRepository) AddPlayers(ctx context.Context, exec SQLExecutor, players []*models.RegistrationPlayer) error {
	executor := r.exec(exec)

	stmt := `
		INSERT INTO registration_players (registration_id, user_id, rating_snapshot, is_captain)
		VALUES ($1, $2, $3, $4)
		RETURNING id`

	for _, p := range players {
		err := executor.QueryRowContext(ctx, stmt,
			p.RegistrationID,
			p.UserID,
			p.RatingSnapshot,
			p.IsCaptain,
		).Scan(&p.ID)
		if err != nil {
			return fmt.Errorf("failed to add registration player (registration %d, user %d): %w",
				p.RegistrationID, p.UserID, err)
		}
	}
	return nil
}

func (r *postgresRegistrationRepository) ListByTournament(ctx context.Context, tournamentID int) ([]*models.TeamRegistration, error) {
	query := `
		SELECT id, tournament_id, division_id, team_name, created_at
		FROM tournament_registrations
		WHERE tournament_id = $1
		ORDER BY created_at ASC`

	rows, err := r.db.QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	regs := make([]*models.TeamRegistration, 0)
	for rows.Next() {
		var reg models.TeamRegistration
		if scanErr := rows.Scan(&reg.ID, &reg.TournamentID, &reg.DivisionID, &reg.TeamName, &reg.CreatedAt); scanErr != nil {
			return nil, scanErr
		}
		regs = append(regs, &reg)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return regs, nil
}
