package service

import (
	"context"
	"fmt"

	commonlog "studyhub/server/common/log"
	"studyhub/server/domain"
)

type AnalyticsRepo interface {
	CreateEvent(ctx context.Context, e domain.AnalyticsEvent) (domain.AnalyticsEvent, error)
	ListEventsForUser(ctx context.Context, userID string, limit int) ([]domain.AnalyticsEvent, error)
	GetEvent(ctx context.Context, eventID string) (domain.AnalyticsEvent, error)
	SetInsight(ctx context.Context, eventID, insight string) error
}

type StudyTimeStore interface {
	AddStudySeconds(ctx context.Context, userID string, seconds int64) error
}

type InsightGenerator interface {
	Insight(ctx context.Context, description string) (string, error)
}

type AnalyticsService struct {
	events    AnalyticsRepo
	studyTime StudyTimeStore
	insight   InsightGenerator
}

func NewAnalyticsService(events AnalyticsRepo, studyTime StudyTimeStore, insight InsightGenerator) *AnalyticsService {
	return &AnalyticsService{events: events, studyTime: studyTime, insight: insight}
}

func (s *AnalyticsService) Record(ctx context.Context, e domain.AnalyticsEvent) (domain.AnalyticsEvent, error) {
	switch e.Action {
	case domain.ActionView, domain.ActionEdit, domain.ActionComplete, domain.ActionQuizSubmit:
	default:
		return domain.AnalyticsEvent{}, fmt.Errorf("%w: unknown action %q", domain.ErrValidation, e.Action)
	}
	if e.DurationSeconds < 0 {
		return domain.AnalyticsEvent{}, fmt.Errorf("%w: duration cannot be negative", domain.ErrValidation)
	}
	created, err := s.events.CreateEvent(ctx, e)
	if err != nil {
		return domain.AnalyticsEvent{}, err
	}
	if e.DurationSeconds > 0 {
		if err := s.studyTime.AddStudySeconds(ctx, e.UserID, e.DurationSeconds); err != nil {
			commonlog.Warnf("event=analytics action=add_study_time status=failed user_id=%s error=%v", e.UserID, err)
		}
	}
	return created, nil
}

func (s *AnalyticsService) ListMine(ctx context.Context, userID string, limit int) ([]domain.AnalyticsEvent, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return s.events.ListEventsForUser(ctx, userID, limit)
}

// GenerateInsight attaches a model-written observation to one of the actor's
// events. Model failures are swallowed: the event stays insight-free.
func (s *AnalyticsService) GenerateInsight(ctx context.Context, actorID, eventID string) (domain.AnalyticsEvent, error) {
	event, err := s.events.GetEvent(ctx, eventID)
	if err != nil {
		return domain.AnalyticsEvent{}, err
	}
	if event.UserID != actorID {
		return domain.AnalyticsEvent{}, domain.ErrForbidden
	}
	description := fmt.Sprintf("A student performed a %q study action lasting %d seconds.", event.Action, event.DurationSeconds)
	insight, err := s.insight.Insight(ctx, description)
	if err != nil {
		commonlog.Warnf("event=analytics action=generate_insight status=failed event_id=%s error=%v", eventID, err)
		return event, nil
	}
	if err := s.events.SetInsight(ctx, eventID, insight); err != nil {
		return domain.AnalyticsEvent{}, err
	}
	event.Insight = insight
	return event, nil
}
