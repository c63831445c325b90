package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/courtside/matchplay/models"
)

var (
	ErrLeagueNotFound = errors.New("league not found")
	// ErrSeasonNotFound - у лиги нет текущего сезона, регистрация невозможна.
	ErrSeasonNotFound = errors.New("league has no current season")
)

type LeagueRepository interface {
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.League, error)
	GetCurrentSeason(ctx context.Context, exec SQLExecutor, leagueID int) (*models.LeagueSeason, error)
	CreateParticipant(ctx context.Context, exec SQLExecutor, p *models.LeagueParticipant) error
	AddMembers(ctx context.Context, exec SQLExecutor, members []*models.ParticipantMember) error
}

type postgresLeagueRepository struct {
	db *sql.DB
}

func NewPostgresLeagueRepository(db *sql.DB) LeagueRepository {
	return &postgresLeagueRepository{db: db}
}

func (r *postgresLeagueRepository) exec(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresLeagueRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.League, error) {
	query := `SELECT id, name, format, created_at FROM leagues WHERE id = $1`

	var (
		l      models.League
		format string
	)
	err := r.exec(exec).QueryRowContext(ctx, query, id).Scan(&l.ID, &l.Name, &format, &l.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrLeagueNotFound
		}
		return nil, err
	}
	l.Format = models.GameFormat(format)
	return &l, nil
}

func (r *postgresLeagueRepository) GetCurrentSeason(ctx context.Context, exec SQLExecutor, leagueID int) (*models.LeagueSeason, error) {
	query := `
		SELECT id, league_id, name, is_current, start_date, end_date
		FROM league_seasons
		WHERE league_id = $1 AND is_current = TRUE
		ORDER BY start_date DESC
		LIMIT 1`

	var s models.LeagueSeason
	err := r.exec(exec).QueryRowContext(ctx, query, leagueID).Scan(
		&s.ID, &s.LeagueID, &s.Name, &s.IsCurrent, &s.StartDate, &s.EndDate,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSeasonNotFound
		}
		return nil, err
	}
	return &s, nil
}

func (r *postgresLeagueRepository) CreateParticipant(ctx context.Context, exec SQLExecutor, p *models.LeagueParticipant) error {
	query := `
		INSERT INTO league_participants (league_id, season_id, team_name)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`

	err := r.exec(exec).QueryRowContext(ctx, query, p.LeagueID, p.SeasonID, p.TeamName).
		Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrLeagueNotFound
		}
		return fmt.Errorf("failed to create league participant: %w", err)
	}
	return nil
}

func (r *postgresLeagueRepository) AddMembers(ctx context.Context, exec SQLExecutor, members []*models.ParticipantMember) error {
	executor := r.exec(exec)

	stmt := `
		INSERT INTO participant_members (participant_id, user_id, rating_snapshot, is_captain)
		VALUES ($1, $2, $3, $4)
		RETURNING id`

	for _, m := range members {
		err := executor.QueryRowContext(ctx, stmt,
			m.ParticipantID,
			m.UserID,
			m.RatingSnapshot,
			m.IsCaptain,
		).Scan(&m.ID)
		if err != nil {
			return fmt.Errorf("failed to add participant member (participant %d, user %d): %w",
				m.ParticipantID, m.UserID, err)
		}
	}
	return nil
}
