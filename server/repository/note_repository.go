package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"studyhub/server/domain"
)

type NoteRepository struct {
	pool *pgxpool.Pool
}

func NewNoteRepository(pool *pgxpool.Pool) *NoteRepository {
	return &NoteRepository{pool: pool}
}

const noteColumns = `note_id, project_id, created_by, title, content, tags, summary, files, created_at, updated_at`

func scanNote(row pgx.Row) (domain.Note, error) {
	var n domain.Note
	var tags, files []byte
	err := row.Scan(&n.ID, &n.ProjectID, &n.CreatedBy, &n.Title, &n.Content, &tags, &n.Summary, &files, &n.CreatedAt, &n.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Note{}, domain.ErrNotFound
		}
		return domain.Note{}, err
	}
	n.Tags = fromJSONB(tags, []string{})
	n.Files = fromJSONB(files, []domain.FileRef{})
	return n, nil
}

func (r *NoteRepository) CreateNote(ctx context.Context, n domain.Note) (domain.Note, error) {
	tags, err := toJSONB(n.Tags)
	if err != nil {
		return domain.Note{}, err
	}
	// files is always an array, never null.
	if n.Files == nil {
		n.Files = []domain.FileRef{}
	}
	files, err := toJSONB(n.Files)
	if err != nil {
		return domain.Note{}, err
	}
	return scanNote(r.pool.QueryRow(ctx, `
		INSERT INTO notes(project_id, created_by, title, content, tags, summary, files)
		VALUES($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+noteColumns,
		n.ProjectID, n.CreatedBy, n.Title, n.Content, tags, n.Summary, files))
}

func (r *NoteRepository) GetNote(ctx context.Context, noteID string) (domain.Note, error) {
	return scanNote(r.pool.QueryRow(ctx, `SELECT `+noteColumns+` FROM notes WHERE note_id=$1`, noteID))
}

func (r *NoteRepository) ListNotesForUser(ctx context.Context, userID string) ([]domain.Note, error) {
	return r.listNotes(ctx, `SELECT `+noteColumns+` FROM notes WHERE created_by=$1 ORDER BY updated_at DESC`, userID)
}

func (r *NoteRepository) ListNotesForProject(ctx context.Context, projectID string) ([]domain.Note, error) {
	return r.listNotes(ctx, `SELECT `+noteColumns+` FROM notes WHERE project_id=$1 ORDER BY updated_at DESC`, projectID)
}

func (r *NoteRepository) listNotes(ctx context.Context, query string, args ...any) ([]domain.Note, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.Note, 0)
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, n)
	}
	return items, rows.Err()
}

func (r *NoteRepository) UpdateNote(ctx context.Context, n domain.Note) (domain.Note, error) {
	tags, err := toJSONB(n.Tags)
	if err != nil {
		return domain.Note{}, err
	}
	if n.Files == nil {
		n.Files = []domain.FileRef{}
	}
	files, err := toJSONB(n.Files)
	if err != nil {
		return domain.Note{}, err
	}
	return scanNote(r.pool.QueryRow(ctx, `
		UPDATE notes
		SET title=$2, content=$3, tags=$4, files=$5, updated_at=NOW()
		WHERE note_id=$1
		RETURNING `+noteColumns,
		n.ID, n.Title, n.Content, tags, files))
}

func (r *NoteRepository) SetSummary(ctx context.Context, noteID, summary string) error {
	cmd, err := r.pool.Exec(ctx, `UPDATE notes SET summary=$2, updated_at=NOW() WHERE note_id=$1`, noteID, summary)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *NoteRepository) AppendFile(ctx context.Context, noteID string, file domain.FileRef) (domain.Note, error) {
	entry, err := toJSONB([]domain.FileRef{file})
	if err != nil {
		return domain.Note{}, err
	}
	return scanNote(r.pool.QueryRow(ctx, `
		UPDATE notes
		SET files = COALESCE(files, '[]'::jsonb) || $2::jsonb, updated_at=NOW()
		WHERE note_id=$1
		RETURNING `+noteColumns, noteID, entry))
}

func (r *NoteRepository) DeleteNote(ctx context.Context, noteID string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM notes WHERE note_id=$1`, noteID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
