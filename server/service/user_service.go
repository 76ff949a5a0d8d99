package service

import (
	"context"
	"fmt"
	"strings"

	"studyhub/server/domain"
)

type UserRepo interface {
	EnsureUser(ctx context.Context, subject, email, name string) (domain.User, error)
	GetUser(ctx context.Context, userID string) (domain.User, error)
	UpdateProfile(ctx context.Context, userID, name, avatarURL string) (domain.User, error)
	SetPushToken(ctx context.Context, userID, token string) error
	Watch(ctx context.Context, userID string, ref domain.WatchRef) error
	Unwatch(ctx context.Context, userID string, ref domain.WatchRef) error
	MarkNoteCompleted(ctx context.Context, userID, noteID string) error
}

type UserService struct {
	users UserRepo
}

func NewUserService(users UserRepo) *UserService {
	return &UserService{users: users}
}

// EnsureUser satisfies middleware.UserResolver: the local record is created
// lazily on the first verified token presentation for an unknown email.
func (s *UserService) EnsureUser(ctx context.Context, subject, email, name string) (domain.User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" {
		return domain.User{}, fmt.Errorf("%w: token carries no email", domain.ErrValidation)
	}
	if name == "" {
		name = email
	}
	return s.users.EnsureUser(ctx, subject, email, name)
}

func (s *UserService) Me(ctx context.Context, userID string) (domain.User, error) {
	return s.users.GetUser(ctx, userID)
}

func (s *UserService) UpdateProfile(ctx context.Context, userID, name, avatarURL string) (domain.User, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.User{}, fmt.Errorf("%w: name is required", domain.ErrValidation)
	}
	return s.users.UpdateProfile(ctx, userID, name, avatarURL)
}

func (s *UserService) RegisterPushToken(ctx context.Context, userID, token string) error {
	if strings.TrimSpace(token) == "" {
		return fmt.Errorf("%w: token is required", domain.ErrValidation)
	}
	return s.users.SetPushToken(ctx, userID, token)
}

func (s *UserService) Watch(ctx context.Context, userID string, ref domain.WatchRef) error {
	if ref.EntityType == "" || ref.EntityID == "" {
		return fmt.Errorf("%w: entity type and id are required", domain.ErrValidation)
	}
	return s.users.Watch(ctx, userID, ref)
}

func (s *UserService) Unwatch(ctx context.Context, userID string, ref domain.WatchRef) error {
	if ref.EntityType == "" || ref.EntityID == "" {
		return fmt.Errorf("%w: entity type and id are required", domain.ErrValidation)
	}
	return s.users.Unwatch(ctx, userID, ref)
}

func (s *UserService) CompleteNote(ctx context.Context, userID, noteID string) error {
	return s.users.MarkNoteCompleted(ctx, userID, noteID)
}
