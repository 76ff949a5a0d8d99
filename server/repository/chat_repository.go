package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"studyhub/server/domain"
)

type ChatRepository struct {
	pool *pgxpool.Pool
}

func NewChatRepository(pool *pgxpool.Pool) *ChatRepository {
	return &ChatRepository{pool: pool}
}

const messageColumns = `message_id, project_id, channel, sender_id, content, msg_type, attachments, files, reply_to, mentions, reactions, pinned, read_by, poll, created_at`

func scanMessage(row pgx.Row) (domain.ChatMessage, error) {
	var m domain.ChatMessage
	var attachments, files, mentions, reactions, readBy, poll []byte
	err := row.Scan(&m.ID, &m.ProjectID, &m.Channel, &m.SenderID, &m.Content, &m.Type,
		&attachments, &files, &m.ReplyTo, &mentions, &reactions, &m.Pinned, &readBy, &poll, &m.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ChatMessage{}, domain.ErrNotFound
		}
		return domain.ChatMessage{}, err
	}
	m.Attachments = fromJSONB(attachments, []string{})
	m.Files = fromJSONB(files, []domain.FileRef{})
	m.Mentions = fromJSONB(mentions, []string{})
	m.Reactions = fromJSONB(reactions, []domain.Reaction{})
	m.ReadBy = fromJSONB(readBy, []string{})
	if len(poll) > 0 && string(poll) != "null" {
		m.Poll = fromJSONB(poll, (*domain.Poll)(nil))
	}
	return m, nil
}

func (r *ChatRepository) CreateMessage(ctx context.Context, m domain.ChatMessage) (domain.ChatMessage, error) {
	if m.Attachments == nil {
		m.Attachments = []string{}
	}
	if m.Files == nil {
		m.Files = []domain.FileRef{}
	}
	if m.Mentions == nil {
		m.Mentions = []string{}
	}
	attachments, err := toJSONB(m.Attachments)
	if err != nil {
		return domain.ChatMessage{}, err
	}
	files, err := toJSONB(m.Files)
	if err != nil {
		return domain.ChatMessage{}, err
	}
	mentions, err := toJSONB(m.Mentions)
	if err != nil {
		return domain.ChatMessage{}, err
	}
	var poll any
	if m.Poll != nil {
		poll, err = toJSONB(m.Poll)
		if err != nil {
			return domain.ChatMessage{}, err
		}
	}
	return scanMessage(r.pool.QueryRow(ctx, `
		INSERT INTO chat_messages(project_id, channel, sender_id, content, msg_type, attachments, files, reply_to, mentions, reactions, pinned, read_by, poll)
		VALUES($1, $2, $3, $4, $5, $6, $7, $8, $9, '[]'::jsonb, $10, '[]'::jsonb, $11)
		RETURNING `+messageColumns,
		m.ProjectID, m.Channel, m.SenderID, m.Content, m.Type, attachments, files, m.ReplyTo, mentions, m.Pinned, poll))
}

func (r *ChatRepository) GetMessage(ctx context.Context, messageID string) (domain.ChatMessage, error) {
	return scanMessage(r.pool.QueryRow(ctx, `SELECT `+messageColumns+` FROM chat_messages WHERE message_id=$1`, messageID))
}

// ListMessages returns the (project, channel) history in ascending creation order.
func (r *ChatRepository) ListMessages(ctx context.Context, projectID, channel string) ([]domain.ChatMessage, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+messageColumns+`
		FROM chat_messages
		WHERE project_id=$1 AND channel=$2
		ORDER BY created_at ASC, message_id ASC`, projectID, channel)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.ChatMessage, 0)
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, m)
	}
	return items, rows.Err()
}

// UpdateMessage rewrites content and/or attachments. created_at is untouched;
// no edit history is kept.
func (r *ChatRepository) UpdateMessage(ctx context.Context, messageID string, content *string, attachments []string) (domain.ChatMessage, error) {
	var attachmentsJSON any
	if attachments != nil {
		b, err := toJSONB(attachments)
		if err != nil {
			return domain.ChatMessage{}, err
		}
		attachmentsJSON = b
	}
	return scanMessage(r.pool.QueryRow(ctx, `
		UPDATE chat_messages
		SET content = COALESCE($2, content),
		    attachments = COALESCE($3::jsonb, attachments)
		WHERE message_id=$1
		RETURNING `+messageColumns, messageID, content, attachmentsJSON))
}

func (r *ChatRepository) DeleteMessage(ctx context.Context, messageID string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM chat_messages WHERE message_id=$1`, messageID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ToggleReaction adds the (emoji, user) pair when absent and removes it when
// present, as one atomic update to avoid lost-update races between clients.
func (r *ChatRepository) ToggleReaction(ctx context.Context, messageID string, reaction domain.Reaction) (domain.ChatMessage, error) {
	entry, err := toJSONB(reaction)
	if err != nil {
		return domain.ChatMessage{}, err
	}
	arrayEntry, err := toJSONB([]domain.Reaction{reaction})
	if err != nil {
		return domain.ChatMessage{}, err
	}
	return scanMessage(r.pool.QueryRow(ctx, `
		UPDATE chat_messages
		SET reactions = CASE
			WHEN reactions @> $3::jsonb THEN (
				SELECT COALESCE(jsonb_agg(r), '[]'::jsonb)
				FROM jsonb_array_elements(reactions) r
				WHERE r <> $2::jsonb
			)
			ELSE reactions || $3::jsonb
		END
		WHERE message_id=$1
		RETURNING `+messageColumns, messageID, entry, arrayEntry))
}

func (r *ChatRepository) TogglePin(ctx context.Context, messageID string) (domain.ChatMessage, error) {
	return scanMessage(r.pool.QueryRow(ctx, `
		UPDATE chat_messages SET pinned = NOT pinned
		WHERE message_id=$1
		RETURNING `+messageColumns, messageID))
}

// SetRead idempotently adds or removes the user from the read-by set.
func (r *ChatRepository) SetRead(ctx context.Context, messageID, userID string, read bool) error {
	var cmdErr error
	if read {
		cmd, err := r.pool.Exec(ctx, `
			UPDATE chat_messages
			SET read_by = CASE WHEN read_by ? $2 THEN read_by ELSE read_by || to_jsonb($2::text) END
			WHERE message_id=$1`, messageID, userID)
		if err != nil {
			return err
		}
		if cmd.RowsAffected() == 0 {
			cmdErr = domain.ErrNotFound
		}
	} else {
		cmd, err := r.pool.Exec(ctx, `
			UPDATE chat_messages
			SET read_by = (
				SELECT COALESCE(jsonb_agg(u), '[]'::jsonb)
				FROM jsonb_array_elements_text(read_by) u
				WHERE u <> $2
			)
			WHERE message_id=$1`, messageID, userID)
		if err != nil {
			return err
		}
		if cmd.RowsAffected() == 0 {
			cmdErr = domain.ErrNotFound
		}
	}
	return cmdErr
}

// ReplacePollVote drops any prior vote by the user and appends the new one,
// atomically. The caller validates the option index and poll type first.
func (r *ChatRepository) ReplacePollVote(ctx context.Context, messageID string, vote domain.PollVote) (domain.ChatMessage, error) {
	entry, err := toJSONB([]domain.PollVote{vote})
	if err != nil {
		return domain.ChatMessage{}, err
	}
	return scanMessage(r.pool.QueryRow(ctx, `
		UPDATE chat_messages
		SET poll = jsonb_set(poll, '{votes}', (
			SELECT COALESCE(jsonb_agg(v), '[]'::jsonb)
			FROM jsonb_array_elements(poll->'votes') v
			WHERE v->>'user_id' <> $2
		) || $3::jsonb)
		WHERE message_id=$1 AND msg_type='poll' AND poll IS NOT NULL
		RETURNING `+messageColumns, messageID, vote.UserID, entry))
}
