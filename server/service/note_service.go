package service

import (
	"context"
	"fmt"
	"strings"

	commonlog "studyhub/server/common/log"
	"studyhub/server/domain"
)

type NoteRepo interface {
	CreateNote(ctx context.Context, n domain.Note) (domain.Note, error)
	GetNote(ctx context.Context, noteID string) (domain.Note, error)
	ListNotesForUser(ctx context.Context, userID string) ([]domain.Note, error)
	ListNotesForProject(ctx context.Context, projectID string) ([]domain.Note, error)
	UpdateNote(ctx context.Context, n domain.Note) (domain.Note, error)
	SetSummary(ctx context.Context, noteID, summary string) error
	AppendFile(ctx context.Context, noteID string, file domain.FileRef) (domain.Note, error)
	DeleteNote(ctx context.Context, noteID string) error
}

type Summarizer interface {
	Summarize(ctx context.Context, content string) (string, error)
}

type NoteService struct {
	notes      NoteRepo
	projects   ProjectStore
	summarizer Summarizer
	notifier   *NotificationService
}

func NewNoteService(notes NoteRepo, projects ProjectStore, summarizer Summarizer, notifier *NotificationService) *NoteService {
	return &NoteService{notes: notes, projects: projects, summarizer: summarizer, notifier: notifier}
}

type NoteInput struct {
	ProjectID *string          `json:"project_id"`
	Title     string           `json:"title"`
	Content   string           `json:"content"`
	Tags      []string         `json:"tags"`
	Files     []domain.FileRef `json:"files"`
}

func (s *NoteService) Create(ctx context.Context, creatorID string, in NoteInput) (domain.Note, error) {
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return domain.Note{}, fmt.Errorf("%w: title is required", domain.ErrValidation)
	}
	if in.ProjectID != nil {
		project, err := s.projects.GetProject(ctx, *in.ProjectID)
		if err != nil {
			return domain.Note{}, err
		}
		if !project.IsMember(creatorID) {
			return domain.Note{}, domain.ErrForbidden
		}
	}
	if in.Tags == nil {
		in.Tags = []string{}
	}
	if in.Files == nil {
		in.Files = []domain.FileRef{}
	}
	return s.notes.CreateNote(ctx, domain.Note{
		ProjectID: in.ProjectID,
		CreatedBy: creatorID,
		Title:     in.Title,
		Content:   in.Content,
		Tags:      in.Tags,
		Files:     in.Files,
	})
}

// Get allows the owner always, and project members when the note is scoped
// to a project.
func (s *NoteService) Get(ctx context.Context, actorID, noteID string) (domain.Note, error) {
	note, err := s.notes.GetNote(ctx, noteID)
	if err != nil {
		return domain.Note{}, err
	}
	if err := s.checkAccess(ctx, actorID, note); err != nil {
		return domain.Note{}, err
	}
	return note, nil
}

func (s *NoteService) ListMine(ctx context.Context, actorID string) ([]domain.Note, error) {
	return s.notes.ListNotesForUser(ctx, actorID)
}

func (s *NoteService) ListForProject(ctx context.Context, actorID, projectID string) ([]domain.Note, error) {
	project, err := s.projects.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if !project.IsMember(actorID) {
		return nil, domain.ErrForbidden
	}
	return s.notes.ListNotesForProject(ctx, projectID)
}

func (s *NoteService) Update(ctx context.Context, actorID, noteID string, in NoteInput) (domain.Note, error) {
	note, err := s.notes.GetNote(ctx, noteID)
	if err != nil {
		return domain.Note{}, err
	}
	if note.CreatedBy != actorID {
		return domain.Note{}, domain.ErrForbidden
	}
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return domain.Note{}, fmt.Errorf("%w: title is required", domain.ErrValidation)
	}
	note.Title = in.Title
	note.Content = in.Content
	if in.Tags != nil {
		note.Tags = in.Tags
	}
	if in.Files != nil {
		note.Files = in.Files
	}
	updated, err := s.notes.UpdateNote(ctx, note)
	if err != nil {
		return domain.Note{}, err
	}
	s.notifier.NotifyWatchers(ctx, domain.WatchRef{EntityType: "note", EntityID: noteID},
		"Note updated", updated.Title, "note_update")
	return updated, nil
}

func (s *NoteService) Delete(ctx context.Context, actorID, noteID string) error {
	note, err := s.notes.GetNote(ctx, noteID)
	if err != nil {
		return err
	}
	if note.CreatedBy != actorID {
		return domain.ErrForbidden
	}
	return s.notes.DeleteNote(ctx, noteID)
}

// Summarize generates and stores the AI summary. The model call is bounded
// by the caller's context.
func (s *NoteService) Summarize(ctx context.Context, actorID, noteID string) (domain.Note, error) {
	note, err := s.notes.GetNote(ctx, noteID)
	if err != nil {
		return domain.Note{}, err
	}
	if err := s.checkAccess(ctx, actorID, note); err != nil {
		return domain.Note{}, err
	}
	if strings.TrimSpace(note.Content) == "" {
		return domain.Note{}, fmt.Errorf("%w: note has no content to summarize", domain.ErrValidation)
	}
	summary, err := s.summarizer.Summarize(ctx, note.Content)
	if err != nil {
		return domain.Note{}, fmt.Errorf("summarize note %s: %w", noteID, err)
	}
	if err := s.notes.SetSummary(ctx, noteID, summary); err != nil {
		return domain.Note{}, err
	}
	note.Summary = summary
	return note, nil
}

func (s *NoteService) AttachFile(ctx context.Context, actorID, noteID string, file domain.FileRef) (domain.Note, error) {
	note, err := s.notes.GetNote(ctx, noteID)
	if err != nil {
		return domain.Note{}, err
	}
	if note.CreatedBy != actorID {
		return domain.Note{}, domain.ErrForbidden
	}
	if strings.TrimSpace(file.URL) == "" || strings.TrimSpace(file.Name) == "" {
		return domain.Note{}, fmt.Errorf("%w: file url and name are required", domain.ErrValidation)
	}
	return s.notes.AppendFile(ctx, noteID, file)
}

func (s *NoteService) checkAccess(ctx context.Context, actorID string, note domain.Note) error {
	if note.CreatedBy == actorID {
		return nil
	}
	if note.ProjectID == nil {
		return domain.ErrForbidden
	}
	project, err := s.projects.GetProject(ctx, *note.ProjectID)
	if err != nil {
		commonlog.Warnf("event=note_access action=load_project status=failed note_id=%s error=%v", note.ID, err)
		return domain.ErrForbidden
	}
	if !project.IsMember(actorID) {
		return domain.ErrForbidden
	}
	return nil
}
