package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"studyhub/server/domain"
)

type memAnalyticsRepo struct {
	seq    int
	events map[string]*domain.AnalyticsEvent
}

func newMemAnalyticsRepo() *memAnalyticsRepo {
	return &memAnalyticsRepo{events: map[string]*domain.AnalyticsEvent{}}
}

func (r *memAnalyticsRepo) CreateEvent(ctx context.Context, e domain.AnalyticsEvent) (domain.AnalyticsEvent, error) {
	r.seq++
	e.ID = fmt.Sprintf("e%d", r.seq)
	stored := e
	r.events[e.ID] = &stored
	return e, nil
}

func (r *memAnalyticsRepo) ListEventsForUser(ctx context.Context, userID string, limit int) ([]domain.AnalyticsEvent, error) {
	out := []domain.AnalyticsEvent{}
	for _, e := range r.events {
		if e.UserID == userID && len(out) < limit {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (r *memAnalyticsRepo) GetEvent(ctx context.Context, eventID string) (domain.AnalyticsEvent, error) {
	e, ok := r.events[eventID]
	if !ok {
		return domain.AnalyticsEvent{}, domain.ErrNotFound
	}
	return *e, nil
}

func (r *memAnalyticsRepo) SetInsight(ctx context.Context, eventID, insight string) error {
	e, ok := r.events[eventID]
	if !ok {
		return domain.ErrNotFound
	}
	e.Insight = insight
	return nil
}

type recordingStudyTime struct {
	total int64
}

func (s *recordingStudyTime) AddStudySeconds(ctx context.Context, userID string, seconds int64) error {
	s.total += seconds
	return nil
}

type stubInsight struct {
	text string
	err  error
}

func (s *stubInsight) Insight(ctx context.Context, description string) (string, error) {
	return s.text, s.err
}

func TestRecordValidatesActionAndDuration(t *testing.T) {
	svc := NewAnalyticsService(newMemAnalyticsRepo(), &recordingStudyTime{}, &stubInsight{})

	_, err := svc.Record(context.Background(), domain.AnalyticsEvent{UserID: "alice", Action: "sleep"})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error for unknown action, got %v", err)
	}
	_, err = svc.Record(context.Background(), domain.AnalyticsEvent{UserID: "alice", Action: domain.ActionView, DurationSeconds: -5})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error for negative duration, got %v", err)
	}
}

func TestRecordAccumulatesStudyTime(t *testing.T) {
	studyTime := &recordingStudyTime{}
	svc := NewAnalyticsService(newMemAnalyticsRepo(), studyTime, &stubInsight{})

	if _, err := svc.Record(context.Background(), domain.AnalyticsEvent{UserID: "alice", Action: domain.ActionView, DurationSeconds: 120}); err != nil {
		t.Fatalf("record: %v", err)
	}
	// Zero-duration events do not touch the study clock.
	if _, err := svc.Record(context.Background(), domain.AnalyticsEvent{UserID: "alice", Action: domain.ActionEdit}); err != nil {
		t.Fatalf("record: %v", err)
	}
	if studyTime.total != 120 {
		t.Fatalf("study time = %d, want 120", studyTime.total)
	}
}

func TestGenerateInsightOwnerOnlyAndFailSoft(t *testing.T) {
	repo := newMemAnalyticsRepo()
	insight := &stubInsight{text: "Nice streak!"}
	svc := NewAnalyticsService(repo, &recordingStudyTime{}, insight)

	event, _ := svc.Record(context.Background(), domain.AnalyticsEvent{UserID: "alice", Action: domain.ActionComplete, DurationSeconds: 60})

	if _, err := svc.GenerateInsight(context.Background(), "bob", event.ID); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected forbidden for non-owner, got %v", err)
	}

	out, err := svc.GenerateInsight(context.Background(), "alice", event.ID)
	if err != nil {
		t.Fatalf("insight: %v", err)
	}
	if out.Insight != "Nice streak!" || repo.events[event.ID].Insight != "Nice streak!" {
		t.Fatal("insight not stored")
	}

	// A model outage leaves the event untouched instead of failing the call.
	insight.err = errors.New("model down")
	event2, _ := svc.Record(context.Background(), domain.AnalyticsEvent{UserID: "alice", Action: domain.ActionView})
	out, err = svc.GenerateInsight(context.Background(), "alice", event2.ID)
	if err != nil {
		t.Fatalf("expected fail-soft, got %v", err)
	}
	if out.Insight != "" {
		t.Fatalf("expected no insight, got %q", out.Insight)
	}
}
