package service

import (
	"context"
	"fmt"

	commonlog "studyhub/server/common/log"
	"studyhub/server/domain"
)

type QuizRepo interface {
	CreateQuiz(ctx context.Context, q domain.Quiz) (domain.Quiz, error)
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
	ListQuizzesForNote(ctx context.Context, noteID string) ([]domain.Quiz, error)
	CreateFlashcardSet(ctx context.Context, set domain.FlashcardSet) (domain.FlashcardSet, error)
	ListFlashcardSetsForNote(ctx context.Context, noteID string) ([]domain.FlashcardSet, error)
}

type QuizGenerator interface {
	GenerateQuiz(ctx context.Context, content string, count int) ([]domain.QuizQuestion, error)
	GenerateFlashcards(ctx context.Context, content string, count int) ([]domain.Flashcard, error)
}

type ProgressStore interface {
	MarkQuizCompleted(ctx context.Context, userID, quizID string) error
}

type AnalyticsRecorder interface {
	Record(ctx context.Context, e domain.AnalyticsEvent) (domain.AnalyticsEvent, error)
}

type QuizService struct {
	quizzes   QuizRepo
	notes     *NoteService
	generator QuizGenerator
	progress  ProgressStore
	analytics AnalyticsRecorder
}

func NewQuizService(quizzes QuizRepo, notes *NoteService, generator QuizGenerator, progress ProgressStore, analytics AnalyticsRecorder) *QuizService {
	return &QuizService{quizzes: quizzes, notes: notes, generator: generator, progress: progress, analytics: analytics}
}

// Generate builds a quiz from the note content via the model. Unlike the
// best-effort AI features, generation failures surface to the caller.
func (s *QuizService) Generate(ctx context.Context, actorID, noteID string, count int) (domain.Quiz, error) {
	note, err := s.notes.Get(ctx, actorID, noteID)
	if err != nil {
		return domain.Quiz{}, err
	}
	if note.Content == "" {
		return domain.Quiz{}, fmt.Errorf("%w: note has no content", domain.ErrValidation)
	}
	questions, err := s.generator.GenerateQuiz(ctx, note.Content, count)
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("generate quiz for note %s: %w", noteID, err)
	}
	return s.quizzes.CreateQuiz(ctx, domain.Quiz{NoteID: noteID, CreatedBy: actorID, Questions: questions})
}

func (s *QuizService) CreateManual(ctx context.Context, actorID, noteID string, questions []domain.QuizQuestion) (domain.Quiz, error) {
	if _, err := s.notes.Get(ctx, actorID, noteID); err != nil {
		return domain.Quiz{}, err
	}
	if len(questions) == 0 {
		return domain.Quiz{}, fmt.Errorf("%w: questions are required", domain.ErrValidation)
	}
	return s.quizzes.CreateQuiz(ctx, domain.Quiz{NoteID: noteID, CreatedBy: actorID, Questions: questions})
}

func (s *QuizService) Get(ctx context.Context, actorID, quizID string) (domain.Quiz, error) {
	quiz, err := s.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return domain.Quiz{}, err
	}
	if _, err := s.notes.Get(ctx, actorID, quiz.NoteID); err != nil {
		return domain.Quiz{}, err
	}
	return quiz, nil
}

func (s *QuizService) ListForNote(ctx context.Context, actorID, noteID string) ([]domain.Quiz, error) {
	if _, err := s.notes.Get(ctx, actorID, noteID); err != nil {
		return nil, err
	}
	return s.quizzes.ListQuizzesForNote(ctx, noteID)
}

type QuizResult struct {
	QuizID  string `json:"quiz_id"`
	Total   int    `json:"total"`
	Correct int    `json:"correct"`
}

// Submit scores the answers, records quiz completion in the user's progress,
// and appends a quiz_submit analytics event. Progress and analytics are
// best-effort side effects.
func (s *QuizService) Submit(ctx context.Context, actorID, quizID string, answers []string, durationSeconds int64) (QuizResult, error) {
	quiz, err := s.Get(ctx, actorID, quizID)
	if err != nil {
		return QuizResult{}, err
	}
	if len(answers) != len(quiz.Questions) {
		return QuizResult{}, fmt.Errorf("%w: expected %d answers", domain.ErrValidation, len(quiz.Questions))
	}
	result := QuizResult{QuizID: quizID, Total: len(quiz.Questions)}
	for i, q := range quiz.Questions {
		if answers[i] == q.Answer {
			result.Correct++
		}
	}

	if err := s.progress.MarkQuizCompleted(ctx, actorID, quizID); err != nil {
		commonlog.Warnf("event=quiz_submit action=mark_completed status=failed quiz_id=%s user_id=%s error=%v", quizID, actorID, err)
	}
	noteID := quiz.NoteID
	if _, err := s.analytics.Record(ctx, domain.AnalyticsEvent{
		UserID:          actorID,
		NoteID:          &noteID,
		Action:          domain.ActionQuizSubmit,
		DurationSeconds: durationSeconds,
	}); err != nil {
		commonlog.Warnf("event=quiz_submit action=record_event status=failed quiz_id=%s user_id=%s error=%v", quizID, actorID, err)
	}
	return result, nil
}

func (s *QuizService) GenerateFlashcards(ctx context.Context, actorID, noteID string, count int) (domain.FlashcardSet, error) {
	note, err := s.notes.Get(ctx, actorID, noteID)
	if err != nil {
		return domain.FlashcardSet{}, err
	}
	if note.Content == "" {
		return domain.FlashcardSet{}, fmt.Errorf("%w: note has no content", domain.ErrValidation)
	}
	cards, err := s.generator.GenerateFlashcards(ctx, note.Content, count)
	if err != nil {
		return domain.FlashcardSet{}, fmt.Errorf("generate flashcards for note %s: %w", noteID, err)
	}
	return s.quizzes.CreateFlashcardSet(ctx, domain.FlashcardSet{NoteID: noteID, CreatedBy: actorID, Cards: cards})
}

func (s *QuizService) ListFlashcards(ctx context.Context, actorID, noteID string) ([]domain.FlashcardSet, error) {
	if _, err := s.notes.Get(ctx, actorID, noteID); err != nil {
		return nil, err
	}
	return s.quizzes.ListFlashcardSetsForNote(ctx, noteID)
}
