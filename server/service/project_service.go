package service

import (
	"context"
	"fmt"
	"strings"

	"studyhub/server/domain"
)

type ProjectRepo interface {
	CreateProject(ctx context.Context, p domain.Project) (domain.Project, error)
	GetProject(ctx context.Context, projectID string) (domain.Project, error)
	ListProjectsForUser(ctx context.Context, userID string) ([]domain.Project, error)
	ListPublicProjects(ctx context.Context, limit int) ([]domain.Project, error)
	UpdateProject(ctx context.Context, p domain.Project) (domain.Project, error)
	AddMember(ctx context.Context, projectID, userID string) error
	RemoveMember(ctx context.Context, projectID, userID string) error
	SetRole(ctx context.Context, projectID, userID string, role domain.ProjectRole) error
}

type ProjectService struct {
	projects ProjectRepo
}

func NewProjectService(projects ProjectRepo) *ProjectService {
	return &ProjectService{projects: projects}
}

type ProjectInput struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Subject     string   `json:"subject"`
	Tags        []string `json:"tags"`
	IsPublic    bool     `json:"is_public"`
}

func (s *ProjectService) Create(ctx context.Context, creatorID string, in ProjectInput) (domain.Project, error) {
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return domain.Project{}, fmt.Errorf("%w: title is required", domain.ErrValidation)
	}
	if in.Tags == nil {
		in.Tags = []string{}
	}
	return s.projects.CreateProject(ctx, domain.Project{
		Title:       in.Title,
		Description: in.Description,
		Subject:     in.Subject,
		Tags:        in.Tags,
		IsPublic:    in.IsPublic,
		CreatedBy:   creatorID,
	})
}

func (s *ProjectService) Get(ctx context.Context, actorID, projectID string) (domain.Project, error) {
	project, err := s.projects.GetProject(ctx, projectID)
	if err != nil {
		return domain.Project{}, err
	}
	if !project.IsPublic && !project.IsMember(actorID) {
		return domain.Project{}, domain.ErrForbidden
	}
	return project, nil
}

func (s *ProjectService) ListMine(ctx context.Context, actorID string) ([]domain.Project, error) {
	return s.projects.ListProjectsForUser(ctx, actorID)
}

func (s *ProjectService) ListPublic(ctx context.Context, limit int) ([]domain.Project, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.projects.ListPublicProjects(ctx, limit)
}

func (s *ProjectService) Update(ctx context.Context, actorID, projectID string, in ProjectInput) (domain.Project, error) {
	project, err := s.projects.GetProject(ctx, projectID)
	if err != nil {
		return domain.Project{}, err
	}
	role := project.RoleOf(actorID)
	if !project.IsMember(actorID) || (role != domain.RoleAdmin && role != domain.RoleModerator) {
		return domain.Project{}, domain.ErrForbidden
	}
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return domain.Project{}, fmt.Errorf("%w: title is required", domain.ErrValidation)
	}
	project.Title = in.Title
	project.Description = in.Description
	project.Subject = in.Subject
	if in.Tags != nil {
		project.Tags = in.Tags
	}
	project.IsPublic = in.IsPublic
	return s.projects.UpdateProject(ctx, project)
}

// Join lets anyone enter a public project. Private projects are invite-only
// via AddMember.
func (s *ProjectService) Join(ctx context.Context, actorID, projectID string) error {
	project, err := s.projects.GetProject(ctx, projectID)
	if err != nil {
		return err
	}
	if !project.IsPublic {
		return domain.ErrForbidden
	}
	return s.projects.AddMember(ctx, projectID, actorID)
}

func (s *ProjectService) AddMember(ctx context.Context, actorID, projectID, userID string) error {
	project, err := s.projects.GetProject(ctx, projectID)
	if err != nil {
		return err
	}
	if project.RoleOf(actorID) != domain.RoleAdmin || !project.IsMember(actorID) {
		return domain.ErrForbidden
	}
	return s.projects.AddMember(ctx, projectID, userID)
}

func (s *ProjectService) Leave(ctx context.Context, actorID, projectID string) error {
	project, err := s.projects.GetProject(ctx, projectID)
	if err != nil {
		return err
	}
	if !project.IsMember(actorID) {
		return domain.ErrForbidden
	}
	return s.projects.RemoveMember(ctx, projectID, actorID)
}

func (s *ProjectService) SetRole(ctx context.Context, actorID, projectID, userID string, role domain.ProjectRole) error {
	switch role {
	case domain.RoleAdmin, domain.RoleModerator, domain.RoleMember:
	default:
		return fmt.Errorf("%w: unknown role %q", domain.ErrValidation, role)
	}
	project, err := s.projects.GetProject(ctx, projectID)
	if err != nil {
		return err
	}
	if project.RoleOf(actorID) != domain.RoleAdmin || !project.IsMember(actorID) {
		return domain.ErrForbidden
	}
	return s.projects.SetRole(ctx, projectID, userID, role)
}
