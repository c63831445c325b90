package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/courtside/matchplay/models"
)

type NotificationRepository interface {
	Create(ctx context.Context, n *models.Notification) error
	ListByUser(ctx context.Context, userID, limit int) ([]*models.Notification, error)
}

type postgresNotificationRepository struct {
	db *sql.DB
}

func NewPostgresNotificationRepository(db *sql.DB) NotificationRepository {
	return &postgresNotificationRepository{db: db}
}

func (r *postgresNotificationRepository) Create(ctx context.Context, n *models.Notification) error {
	query := `
		INSERT INTO notifications (user_id, type, title, message, action_ref)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query,
		n.UserID,
		string(n.Type),
		n.Title,
		n.Message,
		n.ActionRef,
	).Scan(&n.ID, &n.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}
	return nil
}

func (r *postgresNotificationRepository) ListByUser(ctx context.Context, userID, limit int) ([]*models.Notification, error) {
	query := `
		SELECT id, user_id, type, title, message, action_ref, read_at, created_at
		FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2`

	rows, err := r.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	notifications := make([]*models.Notification, 0)
	for rows.Next() {
		var (
			n   models.Notification
			typ string
		)
		if scanErr := rows.Scan(&n.ID, &n.UserID, &typ, &n.Title, &n.Message, &n.ActionRef, &n.ReadAt, &n.CreatedAt); scanErr != nil {
			return nil, scanErr
		}
		n.Type = models.NotificationType(typ)
		notifications = append(notifications, &n)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return notifications, nil
}
