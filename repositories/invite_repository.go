package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/courtside/matchplay/models"
)

var (
	ErrInviteNotFound = errors.New("invite not found")
	// ErrInviteCodeConflict - столкновение по уникальному коду, сервис
	// перегенерирует код и повторяет вставку.
	ErrInviteCodeConflict = errors.New("invite code conflict")
	// ErrInvitePendingDuplicate - частичный уникальный индекс по pending-
	// приглашениям на ту же тройку (inviter, event, invitee).
	ErrInvitePendingDuplicate = errors.New("pending invite already exists for this invitee and event")
	// ErrInviteStatusConflict - guarded-переход не нашёл pending-строку:
	// приглашение уже в терминальном статусе.
	ErrInviteStatusConflict = errors.New("invite is no longer pending")
)

type InviteRepository interface {
	Create(ctx context.Context, exec SQLExecutor, invite *models.TeamInvite) error
	GetByCode(ctx context.Context, exec SQLExecutor, code string) (*models.TeamInvite, error)
	// GetByCodeForUpdate читает приглашение с блокировкой строки; вызывать
	// только внутри транзакции координатора.
	GetByCodeForUpdate(ctx context.Context, exec SQLExecutor, code string) (*models.TeamInvite, error)
	FindPending(ctx context.Context, inviterID int, event models.EventRef, invitee models.InviteeRef) (*models.TeamInvite, error)

	// Переходы pending→терминал. Все реализованы условным UPDATE со
	// status='pending' в WHERE; 0 затронутых строк - ErrInviteStatusConflict.
	MarkAccepted(ctx context.Context, exec SQLExecutor, id, resolvedUserID int) error
	MarkDeclined(ctx context.Context, exec SQLExecutor, id, resolvedUserID int) error
	MarkExpired(ctx context.Context, exec SQLExecutor, id int) error

	// DeletePending жёстко удаляет pending-приглашение (отмена инвайтером).
	DeletePending(ctx context.Context, exec SQLExecutor, id int) error

	ListByInviter(ctx context.Context, inviterID int) ([]*models.TeamInvite, error)
	ListForInvitee(ctx context.Context, userID int, email string) ([]*models.TeamInvite, error)

	// ExpireDue пакетно переводит просроченные pending-приглашения в expired
	// и возвращает затронутые строки для рассылки уведомлений.
	ExpireDue(ctx context.Context, now time.Time) ([]*models.TeamInvite, error)
}

type postgresInviteRepository struct {
	db *sql.DB
}

func NewPostgresInviteRepository(db *sql.DB) InviteRepository {
	return &postgresInviteRepository{db: db}
}

func (r *postgresInviteRepository) exec(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const inviteColumns = `id, tournament_id, league_id, division_id, inviter_id,
	invitee_user_id, invitee_email, resolved_user_id, code, team_name, message,
	status, expires_at, created_at`

func scanInvite(row interface{ Scan(...interface{}) error }) (*models.TeamInvite, error) {
	var (
		inv            models.TeamInvite
		tournamentID   sql.NullInt64
		leagueID       sql.NullInt64
		divisionID     sql.NullInt64
		inviteeUserID  sql.NullInt64
		inviteeEmail   sql.NullString
		resolvedUserID sql.NullInt64
		status         string
	)

	err := row.Scan(
		&inv.ID,
		&tournamentID,
		&leagueID,
		&divisionID,
		&inv.InviterID,
		&inviteeUserID,
		&inviteeEmail,
		&resolvedUserID,
		&inv.Code,
		&inv.TeamName,
		&inv.Message,
		&status,
		&inv.ExpiresAt,
		&inv.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	inv.Status = models.InviteStatus(status)

	switch {
	case tournamentID.Valid:
		inv.Event = models.TournamentRef(int(tournamentID.Int64))
	case leagueID.Valid:
		inv.Event = models.LeagueRef(int(leagueID.Int64))
	}
	if divisionID.Valid {
		d := int(divisionID.Int64)
		inv.Event.DivisionID = &d
	}

	switch {
	case inviteeUserID.Valid:
		inv.Invitee = models.InviteeUser(int(inviteeUserID.Int64))
	case inviteeEmail.Valid:
		inv.Invitee = models.InviteeEmail(inviteeEmail.String)
	}
	if resolvedUserID.Valid {
		u := int(resolvedUserID.Int64)
		inv.InviteeUserID = &u
	}

	return &inv, nil
}

// eventColumns раскладывает EventRef обратно в пару nullable-колонок.
func eventColumns(e models.EventRef) (tournamentID, leagueID interface{}) {
	switch e.Kind {
	case models.EventTournament:
		return e.ID, nil
	case models.EventLeague:
		return nil, e.ID
	}
	return nil, nil
}

func inviteeColumns(i models.InviteeRef) (userID, email interface{}) {
	switch i.Kind {
	case models.InviteeByUser:
		return i.UserID, nil
	case models.InviteeByEmail:
		return nil, i.Email
	}
	return nil, nil
}

func (r *postgresInviteRepository) Create(ctx context.Context, exec SQLExecutor, invite *models.TeamInvite) error {
	tournamentID, leagueID := eventColumns(invite.Event)
	inviteeUserID, inviteeEmail := inviteeColumns(invite.Invitee)

	query := `
		INSERT INTO invites (tournament_id, league_id, division_id, inviter_id,
			invitee_user_id, invitee_email, code, team_name, message, status, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 'pending', $10)
		RETURNING id, created_at`

	err := r.exec(exec).QueryRowContext(ctx, query,
		tournamentID,
		leagueID,
		invite.Event.DivisionID,
		invite.InviterID,
		inviteeUserID,
		inviteeEmail,
		invite.Code,
		invite.TeamName,
		invite.Message,
		invite.ExpiresAt,
	).Scan(&invite.ID, &invite.CreatedAt)

	if err != nil {
		if isUniqueViolation(err, "invites_code_key") {
			return ErrInviteCodeConflict
		}
		if isUniqueViolation(err, "invites_pending_unique_idx") {
			return ErrInvitePendingDuplicate
		}
		return err
	}

	invite.Status = models.InvitePending
	return nil
}

func (r *postgresInviteRepository) GetByCode(ctx context.Context, exec SQLExecutor, code string) (*models.TeamInvite, error) {
	query := `SELECT ` + inviteColumns + ` FROM invites WHERE code = $1`
	return r.getOne(ctx, exec, query, code)
}

func (r *postgresInviteRepository) GetByCodeForUpdate(ctx context.Context, exec SQLExecutor, code string) (*models.TeamInvite, error) {
	query := `SELECT ` + inviteColumns + ` FROM invites WHERE code = $1 FOR UPDATE`
	return r.getOne(ctx, exec, query, code)
}

func (r *postgresInviteRepository) getOne(ctx context.Context, exec SQLExecutor, query string, args ...interface{}) (*models.TeamInvite, error) {
	inv, err := scanInvite(r.exec(exec).QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrInviteNotFound
		}
		return nil, err
	}
	return inv, nil
}

func (r *postgresInviteRepository) FindPending(ctx context.Context, inviterID int, event models.EventRef, invitee models.InviteeRef) (*models.TeamInvite, error) {
	tournamentID, leagueID := eventColumns(event)
	inviteeUserID, inviteeEmail := inviteeColumns(invitee)

	query := `
		SELECT ` + inviteColumns + `
		FROM invites
		WHERE inviter_id = $1
		  AND status = 'pending'
		  AND tournament_id IS NOT DISTINCT FROM $2
		  AND league_id IS NOT DISTINCT FROM $3
		  AND invitee_user_id IS NOT DISTINCT FROM $4
		  AND invitee_email IS NOT DISTINCT FROM $5`

	return r.getOne(ctx, nil, query, inviterID, tournamentID, leagueID, inviteeUserID, inviteeEmail)
}

func (r *postgresInviteRepository) MarkAccepted(ctx context.Context, exec SQLExecutor, id, resolvedUserID int) error {
	query := `
		UPDATE invites
		SET status = 'accepted', resolved_user_id = $2
		WHERE id = $1 AND status = 'pending'`

	result, err := r.exec(exec).ExecContext(ctx, query, id, resolvedUserID)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrInviteStatusConflict)
}

func (r *postgresInviteRepository) MarkDeclined(ctx context.Context, exec SQLExecutor, id, resolvedUserID int) error {
	query := `
		UPDATE invites
		SET status = 'declined', resolved_user_id = $2
		WHERE id = $1 AND status = 'pending'`

	result, err := r.exec(exec).ExecContext(ctx, query, id, resolvedUserID)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrInviteStatusConflict)
}

func (r *postgresInviteRepository) MarkExpired(ctx context.Context, exec SQLExecutor, id int) error {
	query := `
		UPDATE invites
		SET status = 'expired'
		WHERE id = $1 AND status = 'pending'`

	result, err := r.exec(exec).ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrInviteStatusConflict)
}

func (r *postgresInviteRepository) DeletePending(ctx context.Context, exec SQLExecutor, id int) error {
	query := `DELETE FROM invites WHERE id = $1 AND status = 'pending'`

	result, err := r.exec(exec).ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrInviteStatusConflict)
}

func (r *postgresInviteRepository) ListByInviter(ctx context.Context, inviterID int) ([]*models.TeamInvite, error) {
	query := `
		SELECT ` + inviteColumns + `
		FROM invites
		WHERE inviter_id = $1
		ORDER BY created_at DESC`

	return r.list(ctx, query, inviterID)
}

func (r *postgresInviteRepository) ListForInvitee(ctx context.Context, userID int, email string) ([]*models.TeamInvite, error) {
	query := `
		SELECT ` + inviteColumns + `
		FROM invites
		WHERE invitee_user_id = $1 OR lower(invitee_email) = lower($2)
		ORDER BY created_at DESC`

	return r.list(ctx, query, userID, email)
}

func (r *postgresInviteRepository) list(ctx context.Context, query string, args ...interface{}) ([]*models.TeamInvite, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	invites := make([]*models.TeamInvite, 0)
	for rows.Next() {
		inv, scanErr := scanInvite(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		invites = append(invites, inv)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return invites, nil
}

func (r *postgresInviteRepository) ExpireDue(ctx context.Context, now time.Time) ([]*models.TeamInvite, error) {
	// Предикат включает status='pending': свип не может затереть строку,
	// которую параллельный accept/decline уже перевёл в терминал.
	query := `
		UPDATE invites
		SET status = 'expired'
		WHERE status = 'pending' AND expires_at <= $1
		RETURNING ` + inviteColumns

	rows, err := r.db.QueryContext(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("failed to expire due invites: %w", err)
	}
	defer rows.Close()

	expired := make([]*models.TeamInvite, 0)
	for rows.Next() {
		inv, scanErr := scanInvite(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		expired = append(expired, inv)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return expired, nil
}
