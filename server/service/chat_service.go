package service

import (
	"context"
	"fmt"
	"strings"

	commonlog "studyhub/server/common/log"
	"studyhub/server/domain"
)

type ChatStore interface {
	CreateMessage(ctx context.Context, m domain.ChatMessage) (domain.ChatMessage, error)
	GetMessage(ctx context.Context, messageID string) (domain.ChatMessage, error)
	ListMessages(ctx context.Context, projectID, channel string) ([]domain.ChatMessage, error)
	UpdateMessage(ctx context.Context, messageID string, content *string, attachments []string) (domain.ChatMessage, error)
	DeleteMessage(ctx context.Context, messageID string) error
	ToggleReaction(ctx context.Context, messageID string, reaction domain.Reaction) (domain.ChatMessage, error)
	TogglePin(ctx context.Context, messageID string) (domain.ChatMessage, error)
	SetRead(ctx context.Context, messageID, userID string, read bool) error
	ReplacePollVote(ctx context.Context, messageID string, vote domain.PollVote) (domain.ChatMessage, error)
}

type ProjectStore interface {
	GetProject(ctx context.Context, projectID string) (domain.Project, error)
}

type UserStore interface {
	GetUser(ctx context.Context, userID string) (domain.User, error)
	GetUsersByIDs(ctx context.Context, userIDs []string) (map[string]domain.User, error)
}

// Moderator flags disallowed content. Collaborator failures are treated as
// "not flagged" so an external outage never blocks chat.
type Moderator interface {
	Moderate(ctx context.Context, text string) (bool, error)
}

// Notifier delivers a best-effort notification. Implementations log failures
// and never propagate them.
type Notifier interface {
	Notify(ctx context.Context, userID, title, body, kind, entityID string)
}

type ChatService struct {
	messages  ChatStore
	projects  ProjectStore
	users     UserStore
	moderator Moderator
	notifier  Notifier
	hub       *Hub
}

func NewChatService(messages ChatStore, projects ProjectStore, users UserStore, moderator Moderator, notifier Notifier, hub *Hub) *ChatService {
	return &ChatService{messages: messages, projects: projects, users: users, moderator: moderator, notifier: notifier, hub: hub}
}

type SendMessageInput struct {
	ProjectID   string             `json:"project_id"`
	Channel     string             `json:"channel"`
	Content     string             `json:"content"`
	Type        domain.MessageType `json:"type"`
	Attachments []string           `json:"attachments"`
	Files       []domain.FileRef   `json:"files"`
	ReplyTo     *string            `json:"reply_to"`
	Mentions    []string           `json:"mentions"`
	Pinned      bool               `json:"pinned"`
	PollOptions []string           `json:"poll_options"`
}

func (s *ChatService) SendMessage(ctx context.Context, senderID string, in SendMessageInput) (domain.ChatMessage, error) {
	in.Content = strings.TrimSpace(in.Content)
	if in.Content == "" && len(in.Attachments) == 0 && len(in.Files) == 0 {
		return domain.ChatMessage{}, fmt.Errorf("%w: content is required", domain.ErrValidation)
	}
	if in.Channel == "" {
		in.Channel = domain.DefaultChannel
	}
	if in.Type == "" {
		in.Type = domain.MessageTypeText
	}
	switch in.Type {
	case domain.MessageTypeText, domain.MessageTypeImage, domain.MessageTypeFile,
		domain.MessageTypeCode, domain.MessageTypePoll, domain.MessageTypeAI:
	default:
		return domain.ChatMessage{}, fmt.Errorf("%w: unknown message type %q", domain.ErrValidation, in.Type)
	}

	project, err := s.projects.GetProject(ctx, in.ProjectID)
	if err != nil {
		return domain.ChatMessage{}, err
	}
	if !project.IsMember(senderID) {
		return domain.ChatMessage{}, domain.ErrForbidden
	}

	if in.Content != "" {
		flagged, err := s.moderator.Moderate(ctx, in.Content)
		if err != nil {
			// Fail open: availability over strictness.
			commonlog.Warnf("event=chat_moderation status=failed project_id=%s user_id=%s error=%v", in.ProjectID, senderID, err)
			flagged = false
		}
		if flagged {
			return domain.ChatMessage{}, domain.ErrModerationRejected
		}
	}

	message := domain.ChatMessage{
		ProjectID:   in.ProjectID,
		Channel:     in.Channel,
		SenderID:    senderID,
		Content:     in.Content,
		Type:        in.Type,
		Attachments: in.Attachments,
		Files:       in.Files,
		ReplyTo:     in.ReplyTo,
		Mentions:    in.Mentions,
		Pinned:      in.Pinned,
	}
	if in.Type == domain.MessageTypePoll {
		if len(in.PollOptions) == 0 {
			return domain.ChatMessage{}, fmt.Errorf("%w: poll requires options", domain.ErrValidation)
		}
		message.Poll = &domain.Poll{Options: in.PollOptions, Votes: []domain.PollVote{}}
	}

	created, err := s.messages.CreateMessage(ctx, message)
	if err != nil {
		return domain.ChatMessage{}, fmt.Errorf("persist message: %w", err)
	}

	s.notifyMentions(ctx, senderID, created)
	s.hub.Broadcast(created.ProjectID, EventNewMessage, created)
	return created, nil
}

func (s *ChatService) notifyMentions(ctx context.Context, senderID string, m domain.ChatMessage) {
	if len(m.Mentions) == 0 {
		return
	}
	users, err := s.users.GetUsersByIDs(ctx, m.Mentions)
	if err != nil {
		commonlog.Warnf("event=chat_mention_notify status=failed message_id=%s error=%v", m.ID, err)
		return
	}
	sender, _ := s.users.GetUser(ctx, senderID)
	for _, mentioned := range users {
		if mentioned.ID == senderID || mentioned.PushToken == "" {
			continue
		}
		title := "You were mentioned"
		if sender.Name != "" {
			title = sender.Name + " mentioned you"
		}
		s.notifier.Notify(ctx, mentioned.ID, title, m.Content, "mention", m.ID)
	}
}

// EditMessage is restricted to the sender, who must still belong to the
// message's project.
func (s *ChatService) EditMessage(ctx context.Context, actorID, messageID string, content *string, attachments []string) (domain.ChatMessage, error) {
	existing, err := s.memberMessage(ctx, actorID, messageID)
	if err != nil {
		return domain.ChatMessage{}, err
	}
	if existing.SenderID != actorID {
		return domain.ChatMessage{}, domain.ErrForbidden
	}
	if content != nil && strings.TrimSpace(*content) == "" {
		return domain.ChatMessage{}, fmt.Errorf("%w: content cannot be empty", domain.ErrValidation)
	}
	updated, err := s.messages.UpdateMessage(ctx, messageID, content, attachments)
	if err != nil {
		return domain.ChatMessage{}, err
	}
	s.hub.Broadcast(updated.ProjectID, EventMessageEdited, updated)
	return updated, nil
}

func (s *ChatService) DeleteMessage(ctx context.Context, actorID, messageID string) error {
	existing, err := s.memberMessage(ctx, actorID, messageID)
	if err != nil {
		return err
	}
	if existing.SenderID != actorID {
		return domain.ErrForbidden
	}
	if err := s.messages.DeleteMessage(ctx, messageID); err != nil {
		return err
	}
	s.hub.Broadcast(existing.ProjectID, EventMessageDeleted, map[string]string{"id": messageID})
	return nil
}

// ReactToMessage toggles the (emoji, user) pair. A user may hold several
// distinct-emoji reactions on the same message.
func (s *ChatService) ReactToMessage(ctx context.Context, actorID, messageID, emoji string) (domain.ChatMessage, error) {
	if strings.TrimSpace(emoji) == "" {
		return domain.ChatMessage{}, fmt.Errorf("%w: emoji is required", domain.ErrValidation)
	}
	if _, err := s.memberMessage(ctx, actorID, messageID); err != nil {
		return domain.ChatMessage{}, err
	}
	updated, err := s.messages.ToggleReaction(ctx, messageID, domain.Reaction{Emoji: emoji, UserID: actorID})
	if err != nil {
		return domain.ChatMessage{}, err
	}
	s.hub.Broadcast(updated.ProjectID, EventReactionChanged, updated)
	return updated, nil
}

// PinMessage flips the pinned flag. Only admins and moderators of the
// message's project may pin.
func (s *ChatService) PinMessage(ctx context.Context, actorID, messageID string) (domain.ChatMessage, error) {
	existing, err := s.messages.GetMessage(ctx, messageID)
	if err != nil {
		return domain.ChatMessage{}, err
	}
	project, err := s.projects.GetProject(ctx, existing.ProjectID)
	if err != nil {
		return domain.ChatMessage{}, err
	}
	role := project.RoleOf(actorID)
	if !project.IsMember(actorID) || (role != domain.RoleAdmin && role != domain.RoleModerator) {
		return domain.ChatMessage{}, domain.ErrForbidden
	}
	updated, err := s.messages.TogglePin(ctx, messageID)
	if err != nil {
		return domain.ChatMessage{}, err
	}
	s.hub.Broadcast(updated.ProjectID, EventPinnedChanged, updated)
	return updated, nil
}

func (s *ChatService) MarkAsRead(ctx context.Context, actorID, messageID string) error {
	if _, err := s.memberMessage(ctx, actorID, messageID); err != nil {
		return err
	}
	return s.messages.SetRead(ctx, messageID, actorID, true)
}

func (s *ChatService) MarkAsUnread(ctx context.Context, actorID, messageID string) error {
	if _, err := s.memberMessage(ctx, actorID, messageID); err != nil {
		return err
	}
	return s.messages.SetRead(ctx, messageID, actorID, false)
}

// VotePoll replaces any prior vote by the actor; a poll holds at most one
// active vote per user.
func (s *ChatService) VotePoll(ctx context.Context, actorID, messageID string, optionIndex int) (domain.ChatMessage, error) {
	existing, err := s.memberMessage(ctx, actorID, messageID)
	if err != nil {
		return domain.ChatMessage{}, err
	}
	if existing.Type != domain.MessageTypePoll || existing.Poll == nil {
		return domain.ChatMessage{}, domain.ErrNotFound
	}
	if optionIndex < 0 || optionIndex >= len(existing.Poll.Options) {
		return domain.ChatMessage{}, fmt.Errorf("%w: option index out of range", domain.ErrValidation)
	}
	updated, err := s.messages.ReplacePollVote(ctx, messageID, domain.PollVote{UserID: actorID, OptionIndex: optionIndex})
	if err != nil {
		return domain.ChatMessage{}, err
	}
	s.hub.Broadcast(updated.ProjectID, EventPollVoted, updated)
	return updated, nil
}

// GetHistory returns the channel history in ascending creation order with
// sender and mention identities resolved to display names.
func (s *ChatService) GetHistory(ctx context.Context, actorID, projectID, channel string) ([]domain.ChatMessage, error) {
	if channel == "" {
		channel = domain.DefaultChannel
	}
	project, err := s.projects.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if !project.IsMember(actorID) {
		return nil, domain.ErrForbidden
	}
	items, err := s.messages.ListMessages(ctx, projectID, channel)
	if err != nil {
		return nil, err
	}
	s.resolveNames(ctx, items)
	return items, nil
}

func (s *ChatService) resolveNames(ctx context.Context, items []domain.ChatMessage) {
	idSet := map[string]struct{}{}
	for _, m := range items {
		idSet[m.SenderID] = struct{}{}
		for _, id := range m.Mentions {
			idSet[id] = struct{}{}
		}
	}
	ids := make([]string, 0, len(idSet))
	for id := range idSet {
		ids = append(ids, id)
	}
	users, err := s.users.GetUsersByIDs(ctx, ids)
	if err != nil {
		commonlog.Warnf("event=chat_history action=resolve_names status=failed error=%v", err)
		return
	}
	for i := range items {
		if u, ok := users[items[i].SenderID]; ok {
			items[i].SenderName = u.Name
		}
		if len(items[i].Mentions) > 0 {
			names := make([]string, 0, len(items[i].Mentions))
			for _, id := range items[i].Mentions {
				if u, ok := users[id]; ok {
					names = append(names, u.Name)
				} else {
					names = append(names, id)
				}
			}
			items[i].MentionNames = names
		}
	}
}

// memberMessage loads the message and checks the actor belongs to its project.
func (s *ChatService) memberMessage(ctx context.Context, actorID, messageID string) (domain.ChatMessage, error) {
	m, err := s.messages.GetMessage(ctx, messageID)
	if err != nil {
		return domain.ChatMessage{}, err
	}
	project, err := s.projects.GetProject(ctx, m.ProjectID)
	if err != nil {
		return domain.ChatMessage{}, err
	}
	if !project.IsMember(actorID) {
		return domain.ChatMessage{}, domain.ErrForbidden
	}
	return m, nil
}
