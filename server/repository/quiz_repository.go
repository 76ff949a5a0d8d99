package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"studyhub/server/domain"
)

type QuizRepository struct {
	pool *pgxpool.Pool
}

func NewQuizRepository(pool *pgxpool.Pool) *QuizRepository {
	return &QuizRepository{pool: pool}
}

func scanQuiz(row pgx.Row) (domain.Quiz, error) {
	var q domain.Quiz
	var questions []byte
	err := row.Scan(&q.ID, &q.NoteID, &q.CreatedBy, &questions, &q.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Quiz{}, domain.ErrNotFound
		}
		return domain.Quiz{}, err
	}
	q.Questions = fromJSONB(questions, []domain.QuizQuestion{})
	return q, nil
}

func (r *QuizRepository) CreateQuiz(ctx context.Context, q domain.Quiz) (domain.Quiz, error) {
	questions, err := toJSONB(q.Questions)
	if err != nil {
		return domain.Quiz{}, err
	}
	return scanQuiz(r.pool.QueryRow(ctx, `
		INSERT INTO quizzes(note_id, created_by, questions)
		VALUES($1, $2, $3)
		RETURNING quiz_id, note_id, created_by, questions, created_at`,
		q.NoteID, q.CreatedBy, questions))
}

func (r *QuizRepository) GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	return scanQuiz(r.pool.QueryRow(ctx, `
		SELECT quiz_id, note_id, created_by, questions, created_at
		FROM quizzes WHERE quiz_id=$1`, quizID))
}

func (r *QuizRepository) ListQuizzesForNote(ctx context.Context, noteID string) ([]domain.Quiz, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT quiz_id, note_id, created_by, questions, created_at
		FROM quizzes WHERE note_id=$1 ORDER BY created_at DESC`, noteID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.Quiz, 0)
	for rows.Next() {
		q, err := scanQuiz(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, q)
	}
	return items, rows.Err()
}

func (r *QuizRepository) CreateFlashcardSet(ctx context.Context, set domain.FlashcardSet) (domain.FlashcardSet, error) {
	cards, err := toJSONB(set.Cards)
	if err != nil {
		return domain.FlashcardSet{}, err
	}
	err = r.pool.QueryRow(ctx, `
		INSERT INTO flashcard_sets(note_id, created_by, cards)
		VALUES($1, $2, $3)
		RETURNING set_id, created_at`,
		set.NoteID, set.CreatedBy, cards).Scan(&set.ID, &set.CreatedAt)
	return set, err
}

func (r *QuizRepository) ListFlashcardSetsForNote(ctx context.Context, noteID string) ([]domain.FlashcardSet, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT set_id, note_id, created_by, cards, created_at
		FROM flashcard_sets WHERE note_id=$1 ORDER BY created_at DESC`, noteID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.FlashcardSet, 0)
	for rows.Next() {
		var set domain.FlashcardSet
		var cards []byte
		if err := rows.Scan(&set.ID, &set.NoteID, &set.CreatedBy, &cards, &set.CreatedAt); err != nil {
			return nil, err
		}
		set.Cards = fromJSONB(cards, []domain.Flashcard{})
		items = append(items, set)
	}
	return items, rows.Err()
}
