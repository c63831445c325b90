package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/courtside/matchplay/models"
	"github.com/lib/pq"
)

var (
	ErrListingNotFound = errors.New("partner listing not found")

	// ErrListingDuplicate - частичный уникальный индекс: не больше одного
	// активного объявления на пару (user, event).
	ErrListingDuplicate      = errors.New("active listing already exists for this event")
	ErrListingStatusConflict = errors.New("listing is no longer active")
)

type ListingRepository interface {
	Create(ctx context.Context, listing *models.PartnerListing) error
	GetByID(ctx context.Context, id int) (*models.PartnerListing, error)
	// ListByEvent фильтрует активные объявления события; границы skill
	// опциональны и сужают выборку по уровню владельца объявления.
	ListByEvent(ctx context.Context, event models.EventRef, skillMin, skillMax *models.SkillLevel) ([]*models.PartnerListing, error)
	DeleteActive(ctx context.Context, id, userID int) error
	// MarkMatchedForUsers закрывает активные объявления обоих игроков по
	// событию; вызывается внутри транзакции принятия приглашения.
	MarkMatchedForUsers(ctx context.Context, exec SQLExecutor, event models.EventRef, userIDs []int) error
}

type postgresListingRepository struct {
	db *sql.DB
}

func NewPostgresListingRepository(db *sql.DB) ListingRepository {
	return &postgresListingRepository{db: db}
}

func (r *postgresListingRepository) exec(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const listingColumns = `l.id, l.user_id, l.tournament_id, l.league_id, l.division_id,
	l.skill_min, l.skill_max, l.message, l.status, l.created_at`

func scanListing(row interface{ Scan(...interface{}) error }) (*models.PartnerListing, error) {
	var (
		listing      models.PartnerListing
		tournamentID sql.NullInt64
		leagueID     sql.NullInt64
		divisionID   sql.NullInt64
		skillMin     sql.NullString
		skillMax     sql.NullString
		status       string
	)

	err := row.Scan(
		&listing.ID,
		&listing.UserID,
		&tournamentID,
		&leagueID,
		&divisionID,
		&skillMin,
		&skillMax,
		&listing.Message,
		&status,
		&listing.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	listing.Status = models.ListingStatus(status)
	switch {
	case tournamentID.Valid:
		listing.Event = models.TournamentRef(int(tournamentID.Int64))
	case leagueID.Valid:
		listing.Event = models.LeagueRef(int(leagueID.Int64))
	}
	if divisionID.Valid {
		d := int(divisionID.Int64)
		listing.Event.DivisionID = &d
	}
	if skillMin.Valid {
		lvl := models.SkillLevel(skillMin.String)
		listing.SkillMin = &lvl
	}
	if skillMax.Valid {
		lvl := models.SkillLevel(skillMax.String)
		listing.SkillMax = &lvl
	}

	return &listing, nil
}

func (r *postgresListingRepository) Create(ctx context.Context, listing *models.PartnerListing) error {
	tournamentID, leagueID := eventColumns(listing.Event)

	query := `
		INSERT INTO partner_listings (user_id, tournament_id, league_id, division_id,
			skill_min, skill_max, message, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 'active')
		RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query,
		listing.UserID,
		tournamentID,
		leagueID,
		listing.Event.DivisionID,
		skillValue(listing.SkillMin),
		skillValue(listing.SkillMax),
		listing.Message,
	).Scan(&listing.ID, &listing.CreatedAt)
	if err != nil {
		if isUniqueViolation(err, "partner_listings_active_unique_idx") {
			return ErrListingDuplicate
		}
		return fmt.Errorf("failed to create partner listing: %w", err)
	}

	listing.Status = models.ListingActive
	return nil
}

func (r *postgresListingRepository) GetByID(ctx context.Context, id int) (*models.PartnerListing, error) {
	query := `SELECT ` + listingColumns + ` FROM partner_listings l WHERE l.id = $1`

	listing, err := scanListing(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrListingNotFound
		}
		return nil, err
	}
	return listing, nil
}

func (r *postgresListingRepository) ListByEvent(ctx context.Context, event models.EventRef, skillMin, skillMax *models.SkillLevel) ([]*models.PartnerListing, error) {
	tournamentID, leagueID := eventColumns(event)

	// Фильтр по уровню сравнивает позицию уровня владельца объявления
	// (u.skill_level) с запрошенными границами.
	query := `
		SELECT ` + listingColumns + `
		FROM partner_listings l
		JOIN users u ON u.id = l.user_id
		WHERE l.status = 'active'
		  AND l.tournament_id IS NOT DISTINCT FROM $1
		  AND l.league_id IS NOT DISTINCT FROM $2
		  AND ($3::skill_level IS NULL OR u.skill_level >= $3)
		  AND ($4::skill_level IS NULL OR u.skill_level <= $4)
		ORDER BY l.created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, tournamentID, leagueID, skillValue(skillMin), skillValue(skillMax))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	listings := make([]*models.PartnerListing, 0)
	for rows.Next() {
		listing, scanErr := scanListing(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		listings = append(listings, listing)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return listings, nil
}

func (r *postgresListingRepository) DeleteActive(ctx context.Context, id, userID int) error {
	query := `DELETE FROM partner_listings WHERE id = $1 AND user_id = $2 AND status = 'active'`

	result, err := r.db.ExecContext(ctx, query, id, userID)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrListingStatusConflict)
}

func (r *postgresListingRepository) MarkMatchedForUsers(ctx context.Context, exec SQLExecutor, event models.EventRef, userIDs []int) error {
	tournamentID, leagueID := eventColumns(event)

	// Затронуть может 0..N строк, это не ошибка: объявления опциональны.
	query := `
		UPDATE partner_listings
		SET status = 'matched'
		WHERE status = 'active'
		  AND user_id = ANY($1)
		  AND tournament_id IS NOT DISTINCT FROM $2
		  AND league_id IS NOT DISTINCT FROM $3`

	_, err := r.exec(exec).ExecContext(ctx, query, pq.Array(userIDs), tournamentID, leagueID)
	return err
}
