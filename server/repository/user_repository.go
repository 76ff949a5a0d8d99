package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"studyhub/server/domain"
)

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

const userColumns = `user_id, subject, email, name, avatar_url, push_token, watch_list, progress, created_at, updated_at`

func scanUser(row pgx.Row) (domain.User, error) {
	var u domain.User
	var watchList, progress []byte
	err := row.Scan(&u.ID, &u.Subject, &u.Email, &u.Name, &u.AvatarURL, &u.PushToken, &watchList, &progress, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, domain.ErrNotFound
		}
		return domain.User{}, err
	}
	u.WatchList = fromJSONB(watchList, []domain.WatchRef{})
	u.Progress = fromJSONB(progress, domain.Progress{})
	if u.Progress.CompletedNotes == nil {
		u.Progress.CompletedNotes = []string{}
	}
	if u.Progress.CompletedQuizzes == nil {
		u.Progress.CompletedQuizzes = []string{}
	}
	return u, nil
}

// EnsureUser creates the local record on first verified token presentation
// for an unknown email, and returns the existing record otherwise.
func (r *UserRepository) EnsureUser(ctx context.Context, subject, email, name string) (domain.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `
		INSERT INTO users(subject, email, name, watch_list, progress)
		VALUES($1, $2, $3, '[]'::jsonb, '{"completed_notes":[],"completed_quizzes":[],"study_seconds":0}'::jsonb)
		ON CONFLICT (email) DO UPDATE SET subject = EXCLUDED.subject
		RETURNING `+userColumns, subject, email, name))
}

func (r *UserRepository) GetUser(ctx context.Context, userID string) (domain.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE user_id=$1`, userID))
}

func (r *UserRepository) GetUsersByIDs(ctx context.Context, userIDs []string) (map[string]domain.User, error) {
	out := map[string]domain.User{}
	if len(userIDs) == 0 {
		return out, nil
	}
	rows, err := r.pool.Query(ctx, `SELECT `+userColumns+` FROM users WHERE user_id = ANY($1)`, userIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out[u.ID] = u
	}
	return out, rows.Err()
}

func (r *UserRepository) UpdateProfile(ctx context.Context, userID, name, avatarURL string) (domain.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `
		UPDATE users SET name=$2, avatar_url=$3, updated_at=NOW()
		WHERE user_id=$1
		RETURNING `+userColumns, userID, name, avatarURL))
}

func (r *UserRepository) SetPushToken(ctx context.Context, userID, token string) error {
	cmd, err := r.pool.Exec(ctx, `UPDATE users SET push_token=$2, updated_at=NOW() WHERE user_id=$1`, userID, token)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *UserRepository) Watch(ctx context.Context, userID string, ref domain.WatchRef) error {
	entry, err := toJSONB([]domain.WatchRef{ref})
	if err != nil {
		return err
	}
	cmd, err := r.pool.Exec(ctx, `
		UPDATE users
		SET watch_list = CASE WHEN watch_list @> $2::jsonb THEN watch_list ELSE watch_list || $2::jsonb END,
		    updated_at = NOW()
		WHERE user_id=$1`, userID, entry)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *UserRepository) Unwatch(ctx context.Context, userID string, ref domain.WatchRef) error {
	entry, err := toJSONB(ref)
	if err != nil {
		return err
	}
	cmd, err := r.pool.Exec(ctx, `
		UPDATE users
		SET watch_list = (
			SELECT COALESCE(jsonb_agg(w), '[]'::jsonb)
			FROM jsonb_array_elements(watch_list) w
			WHERE w <> $2::jsonb
		), updated_at = NOW()
		WHERE user_id=$1`, userID, entry)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ListWatchers returns every user whose watch list contains the entity ref.
func (r *UserRepository) ListWatchers(ctx context.Context, ref domain.WatchRef) ([]domain.User, error) {
	entry, err := toJSONB([]domain.WatchRef{ref})
	if err != nil {
		return nil, err
	}
	rows, err := r.pool.Query(ctx, `SELECT `+userColumns+` FROM users WHERE watch_list @> $1::jsonb`, entry)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, u)
	}
	return items, rows.Err()
}

func (r *UserRepository) MarkNoteCompleted(ctx context.Context, userID, noteID string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE users
		SET progress = CASE
			WHEN progress->'completed_notes' @> to_jsonb($2::text) THEN progress
			ELSE jsonb_set(progress, '{completed_notes}', progress->'completed_notes' || to_jsonb($2::text))
		END, updated_at = NOW()
		WHERE user_id=$1`, userID, noteID)
	return err
}

func (r *UserRepository) MarkQuizCompleted(ctx context.Context, userID, quizID string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE users
		SET progress = CASE
			WHEN progress->'completed_quizzes' @> to_jsonb($2::text) THEN progress
			ELSE jsonb_set(progress, '{completed_quizzes}', progress->'completed_quizzes' || to_jsonb($2::text))
		END, updated_at = NOW()
		WHERE user_id=$1`, userID, quizID)
	return err
}

func (r *UserRepository) AddStudySeconds(ctx context.Context, userID string, seconds int64) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE users
		SET progress = jsonb_set(progress, '{study_seconds}',
			to_jsonb(COALESCE((progress->>'study_seconds')::bigint, 0) + $2)),
		    updated_at = NOW()
		WHERE user_id=$1`, userID, seconds)
	return err
}
