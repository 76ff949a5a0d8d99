package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"studyhub/server/domain"
)

type memQuizRepo struct {
	seq     int
	quizzes map[string]domain.Quiz
	sets    map[string]domain.FlashcardSet
}

func newMemQuizRepo() *memQuizRepo {
	return &memQuizRepo{quizzes: map[string]domain.Quiz{}, sets: map[string]domain.FlashcardSet{}}
}

func (r *memQuizRepo) CreateQuiz(ctx context.Context, q domain.Quiz) (domain.Quiz, error) {
	r.seq++
	q.ID = fmt.Sprintf("q%d", r.seq)
	r.quizzes[q.ID] = q
	return q, nil
}

func (r *memQuizRepo) GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	q, ok := r.quizzes[quizID]
	if !ok {
		return domain.Quiz{}, domain.ErrNotFound
	}
	return q, nil
}

func (r *memQuizRepo) ListQuizzesForNote(ctx context.Context, noteID string) ([]domain.Quiz, error) {
	out := []domain.Quiz{}
	for _, q := range r.quizzes {
		if q.NoteID == noteID {
			out = append(out, q)
		}
	}
	return out, nil
}

func (r *memQuizRepo) CreateFlashcardSet(ctx context.Context, set domain.FlashcardSet) (domain.FlashcardSet, error) {
	r.seq++
	set.ID = fmt.Sprintf("fs%d", r.seq)
	r.sets[set.ID] = set
	return set, nil
}

func (r *memQuizRepo) ListFlashcardSetsForNote(ctx context.Context, noteID string) ([]domain.FlashcardSet, error) {
	out := []domain.FlashcardSet{}
	for _, s := range r.sets {
		if s.NoteID == noteID {
			out = append(out, s)
		}
	}
	return out, nil
}

type stubGenerator struct {
	questions []domain.QuizQuestion
	cards     []domain.Flashcard
	err       error
}

func (g *stubGenerator) GenerateQuiz(ctx context.Context, content string, count int) ([]domain.QuizQuestion, error) {
	return g.questions, g.err
}

func (g *stubGenerator) GenerateFlashcards(ctx context.Context, content string, count int) ([]domain.Flashcard, error) {
	return g.cards, g.err
}

type recordingProgress struct {
	completed []string
	err       error
}

func (p *recordingProgress) MarkQuizCompleted(ctx context.Context, userID, quizID string) error {
	if p.err != nil {
		return p.err
	}
	p.completed = append(p.completed, quizID)
	return nil
}

type recordingAnalytics struct {
	events []domain.AnalyticsEvent
	err    error
}

func (a *recordingAnalytics) Record(ctx context.Context, e domain.AnalyticsEvent) (domain.AnalyticsEvent, error) {
	if a.err != nil {
		return domain.AnalyticsEvent{}, a.err
	}
	a.events = append(a.events, e)
	return e, nil
}

func newQuizFixture(t *testing.T) (*QuizService, string, *stubGenerator, *recordingProgress, *recordingAnalytics) {
	t.Helper()
	noteSvc, _, _, _, _ := newNoteFixture()
	note, err := noteSvc.Create(context.Background(), "alice", NoteInput{Title: "algebra", Content: "groups and rings"})
	if err != nil {
		t.Fatalf("create note: %v", err)
	}
	generator := &stubGenerator{
		questions: []domain.QuizQuestion{
			{Prompt: "2+2?", Options: []string{"3", "4"}, Answer: "4"},
			{Prompt: "3*3?", Options: []string{"6", "9"}, Answer: "9"},
		},
		cards: []domain.Flashcard{{Front: "group", Back: "set with operation"}},
	}
	progress := &recordingProgress{}
	analytics := &recordingAnalytics{}
	svc := NewQuizService(newMemQuizRepo(), noteSvc, generator, progress, analytics)
	return svc, note.ID, generator, progress, analytics
}

func TestGenerateQuizFromNote(t *testing.T) {
	svc, noteID, generator, _, _ := newQuizFixture(t)

	quiz, err := svc.Generate(context.Background(), "alice", noteID, 2)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(quiz.Questions) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(quiz.Questions))
	}

	// Model failures surface instead of producing an empty quiz.
	generator.err = errors.New("model down")
	if _, err := svc.Generate(context.Background(), "alice", noteID, 2); err == nil {
		t.Fatal("expected error when generation fails")
	}

	if _, err := svc.Generate(context.Background(), "mallory", noteID, 2); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected forbidden for non-owner, got %v", err)
	}
}

func TestSubmitScoresAndRecordsSideEffects(t *testing.T) {
	svc, noteID, _, progress, analytics := newQuizFixture(t)
	quiz, _ := svc.Generate(context.Background(), "alice", noteID, 2)

	if _, err := svc.Submit(context.Background(), "alice", quiz.ID, []string{"4"}, 30); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error for wrong answer count, got %v", err)
	}

	result, err := svc.Submit(context.Background(), "alice", quiz.ID, []string{"4", "6"}, 30)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if result.Total != 2 || result.Correct != 1 {
		t.Fatalf("unexpected score: %+v", result)
	}
	if len(progress.completed) != 1 || progress.completed[0] != quiz.ID {
		t.Fatalf("expected quiz marked complete, got %v", progress.completed)
	}
	if len(analytics.events) != 1 || analytics.events[0].Action != domain.ActionQuizSubmit {
		t.Fatalf("expected quiz_submit event, got %v", analytics.events)
	}
}

func TestSubmitSideEffectsAreBestEffort(t *testing.T) {
	svc, noteID, _, progress, analytics := newQuizFixture(t)
	quiz, _ := svc.Generate(context.Background(), "alice", noteID, 2)
	progress.err = errors.New("db down")
	analytics.err = errors.New("db down")

	result, err := svc.Submit(context.Background(), "alice", quiz.ID, []string{"4", "9"}, 10)
	if err != nil {
		t.Fatalf("side-effect failures must not fail the submit: %v", err)
	}
	if result.Correct != 2 {
		t.Fatalf("unexpected score: %+v", result)
	}
}

func TestGenerateFlashcards(t *testing.T) {
	svc, noteID, _, _, _ := newQuizFixture(t)

	set, err := svc.GenerateFlashcards(context.Background(), "alice", noteID, 1)
	if err != nil {
		t.Fatalf("generate flashcards: %v", err)
	}
	if len(set.Cards) != 1 {
		t.Fatalf("expected 1 card, got %d", len(set.Cards))
	}
	sets, err := svc.ListFlashcards(context.Background(), "alice", noteID)
	if err != nil || len(sets) != 1 {
		t.Fatalf("expected 1 set, got %v err %v", sets, err)
	}
}

func TestCreateManualQuizRequiresQuestions(t *testing.T) {
	svc, noteID, _, _, _ := newQuizFixture(t)

	if _, err := svc.CreateManual(context.Background(), "alice", noteID, nil); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	quiz, err := svc.CreateManual(context.Background(), "alice", noteID, []domain.QuizQuestion{{Prompt: "?", Answer: "!"}})
	if err != nil {
		t.Fatalf("create manual: %v", err)
	}
	got, err := svc.Get(context.Background(), "alice", quiz.ID)
	if err != nil || got.ID != quiz.ID {
		t.Fatalf("get: %v", err)
	}
}
