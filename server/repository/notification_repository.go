package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"studyhub/server/domain"
)

type NotificationRepository struct {
	pool *pgxpool.Pool
}

func NewNotificationRepository(pool *pgxpool.Pool) *NotificationRepository {
	return &NotificationRepository{pool: pool}
}

func (r *NotificationRepository) CreateNotification(ctx context.Context, n domain.Notification) (domain.Notification, error) {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO notifications(user_id, title, body, kind, entity_id)
		VALUES($1, $2, $3, $4, $5)
		RETURNING notification_id, created_at`,
		n.UserID, n.Title, n.Body, n.Kind, n.EntityID).Scan(&n.ID, &n.CreatedAt)
	return n, err
}

func (r *NotificationRepository) ListNotificationsForUser(ctx context.Context, userID string, limit int) ([]domain.Notification, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT notification_id, user_id, title, body, kind, entity_id, read, created_at
		FROM notifications
		WHERE user_id=$1
		ORDER BY created_at DESC
		LIMIT $2`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.Notification, 0)
	for rows.Next() {
		var n domain.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Title, &n.Body, &n.Kind, &n.EntityID, &n.Read, &n.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, n)
	}
	return items, rows.Err()
}

func (r *NotificationRepository) MarkNotificationRead(ctx context.Context, notificationID, userID string) error {
	cmd, err := r.pool.Exec(ctx, `
		UPDATE notifications SET read=true
		WHERE notification_id=$1 AND user_id=$2`, notificationID, userID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
