package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/courtside/matchplay/models"
	"github.com/lib/pq"
)

var (
	ErrMatchRequestNotFound = errors.New("match request not found")
	// ErrMatchRequestStatusConflict - guarded-переход не сработал: заявка
	// уже не pending.
	ErrMatchRequestStatusConflict = errors.New("match request is no longer pending")
)

type MatchRequestRepository interface {
	Create(ctx context.Context, request *models.MatchRequest) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.MatchRequest, error)
	// FindActiveByRequester возвращает pending и непросроченную заявку
	// пользователя, либо ErrMatchRequestNotFound.
	FindActiveByRequester(ctx context.Context, requesterID int, now time.Time) (*models.MatchRequest, error)
	// ListOpen возвращает pending-заявки того же формата с неистёкшим сроком.
	ListOpen(ctx context.Context, format models.GameFormat, now time.Time) ([]*models.MatchRequest, error)

	MarkCancelled(ctx context.Context, id, requesterID int) error
	// MarkMatchedPair атомарно переводит обе заявки в matched с id созданной
	// игровой сессии. Обе строки обязаны быть pending, иначе
	// ErrMatchRequestStatusConflict и откат транзакции.
	MarkMatchedPair(ctx context.Context, exec SQLExecutor, idA, idB, gameID int) error

	ExpireDue(ctx context.Context, now time.Time) ([]*models.MatchRequest, error)
}

type postgresMatchRequestRepository struct {
	db *sql.DB
}

func NewPostgresMatchRequestRepository(db *sql.DB) MatchRequestRepository {
	return &postgresMatchRequestRepository{db: db}
}

func (r *postgresMatchRequestRepository) exec(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const matchRequestColumns = `id, requester_id, format, skill_min, skill_max,
	lat, lon, max_distance_km, status, matched_game_id, expires_at, created_at`

func scanMatchRequest(row interface{ Scan(...interface{}) error }) (*models.MatchRequest, error) {
	var (
		req           models.MatchRequest
		format        string
		skillMin      sql.NullString
		skillMax      sql.NullString
		lat           sql.NullFloat64
		lon           sql.NullFloat64
		maxDistance   sql.NullFloat64
		status        string
		matchedGameID sql.NullInt64
	)

	err := row.Scan(
		&req.ID,
		&req.RequesterID,
		&format,
		&skillMin,
		&skillMax,
		&lat,
		&lon,
		&maxDistance,
		&status,
		&matchedGameID,
		&req.ExpiresAt,
		&req.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	req.Format = models.GameFormat(format)
	req.Status = models.MatchRequestStatus(status)
	if skillMin.Valid {
		lvl := models.SkillLevel(skillMin.String)
		req.SkillMin = &lvl
	}
	if skillMax.Valid {
		lvl := models.SkillLevel(skillMax.String)
		req.SkillMax = &lvl
	}
	if lat.Valid && lon.Valid {
		req.Location = &models.GeoPoint{Lat: lat.Float64, Lon: lon.Float64}
	}
	if maxDistance.Valid {
		req.MaxDistanceKm = &maxDistance.Float64
	}
	if matchedGameID.Valid {
		id := int(matchedGameID.Int64)
		req.MatchedGameID = &id
	}

	return &req, nil
}

func (r *postgresMatchRequestRepository) Create(ctx context.Context, request *models.MatchRequest) error {
	var lat, lon interface{}
	if request.Location != nil {
		lat, lon = request.Location.Lat, request.Location.Lon
	}

	query := `
		INSERT INTO match_requests (requester_id, format, skill_min, skill_max,
			lat, lon, max_distance_km, status, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 'pending', $8)
		RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query,
		request.RequesterID,
		string(request.Format),
		skillValue(request.SkillMin),
		skillValue(request.SkillMax),
		lat,
		lon,
		request.MaxDistanceKm,
		request.ExpiresAt,
	).Scan(&request.ID, &request.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create match request: %w", err)
	}

	request.Status = models.MatchRequestPending
	return nil
}

func skillValue(s *models.SkillLevel) interface{} {
	if s == nil {
		return nil
	}
	return string(*s)
}

func (r *postgresMatchRequestRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.MatchRequest, error) {
	query := `SELECT ` + matchRequestColumns + ` FROM match_requests WHERE id = $1`

	req, err := scanMatchRequest(r.exec(exec).QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchRequestNotFound
		}
		return nil, err
	}
	return req, nil
}

func (r *postgresMatchRequestRepository) FindActiveByRequester(ctx context.Context, requesterID int, now time.Time) (*models.MatchRequest, error) {
	query := `
		SELECT ` + matchRequestColumns + `
		FROM match_requests
		WHERE requester_id = $1 AND status = 'pending' AND expires_at > $2
		ORDER BY created_at DESC
		LIMIT 1`

	req, err := scanMatchRequest(r.db.QueryRowContext(ctx, query, requesterID, now))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchRequestNotFound
		}
		return nil, err
	}
	return req, nil
}

func (r *postgresMatchRequestRepository) ListOpen(ctx context.Context, format models.GameFormat, now time.Time) ([]*models.MatchRequest, error) {
	query := `
		SELECT ` + matchRequestColumns + `
		FROM match_requests
		WHERE status = 'pending' AND format = $1 AND expires_at > $2
		ORDER BY created_at ASC`

	rows, err := r.db.QueryContext(ctx, query, string(format), now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	requests := make([]*models.MatchRequest, 0)
	for rows.Next() {
		req, scanErr := scanMatchRequest(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		requests = append(requests, req)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return requests, nil
}

func (r *postgresMatchRequestRepository) MarkCancelled(ctx context.Context, id, requesterID int) error {
	// requester_id в предикате: отменить заявку может только её владелец.
	query := `
		UPDATE match_requests
		SET status = 'cancelled'
		WHERE id = $1 AND requester_id = $2 AND status = 'pending'`

	result, err := r.db.ExecContext(ctx, query, id, requesterID)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrMatchRequestStatusConflict)
}

func (r *postgresMatchRequestRepository) MarkMatchedPair(ctx context.Context, exec SQLExecutor, idA, idB, gameID int) error {
	query := `
		UPDATE match_requests
		SET status = 'matched', matched_game_id = $2
		WHERE id = ANY($1) AND status = 'pending'`

	result, err := r.exec(exec).ExecContext(ctx, query, pq.Array([]int{idA, idB}), gameID)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows: %w", err)
	}
	if affected != 2 {
		// Одна из заявок успела уйти в терминал; транзакция откатится.
		return ErrMatchRequestStatusConflict
	}
	return nil
}

func (r *postgresMatchRequestRepository) ExpireDue(ctx context.Context, now time.Time) ([]*models.MatchRequest, error) {
	query := `
		UPDATE match_requests
		SET status = 'expired'
		WHERE status = 'pending' AND expires_at <= $1
		RETURNING ` + matchRequestColumns

	rows, err := r.db.QueryContext(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("failed to expire due match requests: %w", err)
	}
	defer rows.Close()

	expired := make([]*models.MatchRequest, 0)
	for rows.Next() {
		req, scanErr := scanMatchRequest(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		expired = append(expired, req)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return expired, nil
}
