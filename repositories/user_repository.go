package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/courtside/matchplay/models"
)

var ErrUserNotFound = errors.New("user not found")

// UserRepository - читающая граница к справочнику пользователей.
// Сам справочник (регистрация, сессии, профили) ведёт внешний сервис.
type UserRepository interface {
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	// RatingForFormat возвращает рейтинг пользователя по формату игры,
	// либо nil, если рейтинга нет (снапшот возьмёт значение по умолчанию).
	RatingForFormat(ctx context.Context, exec SQLExecutor, userID int, format models.GameFormat) (*float64, error)
}

type postgresUserRepository struct {
	db *sql.DB
}

func NewPostgresUserRepository(db *sql.DB) UserRepository {
	return &postgresUserRepository{db: db}
}

func (r *postgresUserRepository) exec(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const userColumns = `id, first_name, last_name, nickname, email, skill_level, rating, lat, lon, created_at`

func scanUser(row interface{ Scan(...interface{}) error }) (*models.User, error) {
	var (
		u          models.User
		skillLevel sql.NullString
		rating     sql.NullFloat64
		lat, lon   sql.NullFloat64
	)

	err := row.Scan(
		&u.ID,
		&u.FirstName,
		&u.LastName,
		&u.Nickname,
		&u.Email,
		&skillLevel,
		&rating,
		&lat,
		&lon,
		&u.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if skillLevel.Valid {
		lvl := models.SkillLevel(skillLevel.String)
		u.SkillLevel = &lvl
	}
	if rating.Valid {
		u.Rating = &rating.Float64
	}
	if lat.Valid && lon.Valid {
		u.Location = &models.GeoPoint{Lat: lat.Float64, Lon: lon.Float64}
	}
	return &u, nil
}

func (r *postgresUserRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	u, err := scanUser(r.exec(exec).QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return u, nil
}

func (r *postgresUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE lower(email) = lower($1)`

	u, err := scanUser(r.db.QueryRowContext(ctx, query, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return u, nil
}

func (r *postgresUserRepository) RatingForFormat(ctx context.Context, exec SQLExecutor, userID int, format models.GameFormat) (*float64, error) {
	query := `SELECT rating FROM user_format_ratings WHERE user_id = $1 AND format = $2`

	var rating float64
	err := r.exec(exec).QueryRowContext(ctx, query, userID, string(format)).Scan(&rating)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &rating, nil
}
