package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"studyhub/server/domain"
)

type AnalyticsRepository struct {
	pool *pgxpool.Pool
}

func NewAnalyticsRepository(pool *pgxpool.Pool) *AnalyticsRepository {
	return &AnalyticsRepository{pool: pool}
}

// CreateEvent appends an event. Rows are never mutated afterwards except to
// attach derived insight text via SetInsight.
func (r *AnalyticsRepository) CreateEvent(ctx context.Context, e domain.AnalyticsEvent) (domain.AnalyticsEvent, error) {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO analytics_events(user_id, project_id, note_id, action, duration_seconds, insight)
		VALUES($1, $2, $3, $4, $5, $6)
		RETURNING event_id, created_at`,
		e.UserID, e.ProjectID, e.NoteID, e.Action, e.DurationSeconds, e.Insight).Scan(&e.ID, &e.CreatedAt)
	return e, err
}

func (r *AnalyticsRepository) ListEventsForUser(ctx context.Context, userID string, limit int) ([]domain.AnalyticsEvent, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT event_id, user_id, project_id, note_id, action, duration_seconds, insight, created_at
		FROM analytics_events
		WHERE user_id=$1
		ORDER BY created_at DESC
		LIMIT $2`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.AnalyticsEvent, 0)
	for rows.Next() {
		var e domain.AnalyticsEvent
		if err := rows.Scan(&e.ID, &e.UserID, &e.ProjectID, &e.NoteID, &e.Action, &e.DurationSeconds, &e.Insight, &e.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, e)
	}
	return items, rows.Err()
}

func (r *AnalyticsRepository) GetEvent(ctx context.Context, eventID string) (domain.AnalyticsEvent, error) {
	var e domain.AnalyticsEvent
	err := r.pool.QueryRow(ctx, `
		SELECT event_id, user_id, project_id, note_id, action, duration_seconds, insight, created_at
		FROM analytics_events WHERE event_id=$1`, eventID).
		Scan(&e.ID, &e.UserID, &e.ProjectID, &e.NoteID, &e.Action, &e.DurationSeconds, &e.Insight, &e.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.AnalyticsEvent{}, domain.ErrNotFound
	}
	return e, err
}

func (r *AnalyticsRepository) SetInsight(ctx context.Context, eventID, insight string) error {
	cmd, err := r.pool.Exec(ctx, `UPDATE analytics_events SET insight=$2 WHERE event_id=$1`, eventID, insight)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
