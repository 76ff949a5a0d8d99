package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"studyhub/server/domain"
)

type memChatStore struct {
	seq      int
	messages map[string]*domain.ChatMessage
}

func newMemChatStore() *memChatStore {
	return &memChatStore{messages: map[string]*domain.ChatMessage{}}
}

func (s *memChatStore) CreateMessage(ctx context.Context, m domain.ChatMessage) (domain.ChatMessage, error) {
	s.seq++
	m.ID = fmt.Sprintf("m%d", s.seq)
	if m.Reactions == nil {
		m.Reactions = []domain.Reaction{}
	}
	if m.ReadBy == nil {
		m.ReadBy = []string{}
	}
	m.CreatedAt = time.Now().UTC()
	stored := m
	s.messages[m.ID] = &stored
	return m, nil
}

func (s *memChatStore) GetMessage(ctx context.Context, messageID string) (domain.ChatMessage, error) {
	m, ok := s.messages[messageID]
	if !ok {
		return domain.ChatMessage{}, domain.ErrNotFound
	}
	return *m, nil
}

func (s *memChatStore) ListMessages(ctx context.Context, projectID, channel string) ([]domain.ChatMessage, error) {
	out := []domain.ChatMessage{}
	for i := 1; i <= s.seq; i++ {
		if m, ok := s.messages[fmt.Sprintf("m%d", i)]; ok && m.ProjectID == projectID && m.Channel == channel {
			out = append(out, *m)
		}
	}
	return out, nil
}

func (s *memChatStore) UpdateMessage(ctx context.Context, messageID string, content *string, attachments []string) (domain.ChatMessage, error) {
	m, ok := s.messages[messageID]
	if !ok {
		return domain.ChatMessage{}, domain.ErrNotFound
	}
	if content != nil {
		m.Content = *content
	}
	if attachments != nil {
		m.Attachments = attachments
	}
	return *m, nil
}

func (s *memChatStore) DeleteMessage(ctx context.Context, messageID string) error {
	if _, ok := s.messages[messageID]; !ok {
		return domain.ErrNotFound
	}
	delete(s.messages, messageID)
	return nil
}

func (s *memChatStore) ToggleReaction(ctx context.Context, messageID string, reaction domain.Reaction) (domain.ChatMessage, error) {
	m, ok := s.messages[messageID]
	if !ok {
		return domain.ChatMessage{}, domain.ErrNotFound
	}
	for i, r := range m.Reactions {
		if r == reaction {
			m.Reactions = append(m.Reactions[:i], m.Reactions[i+1:]...)
			return *m, nil
		}
	}
	m.Reactions = append(m.Reactions, reaction)
	return *m, nil
}

func (s *memChatStore) TogglePin(ctx context.Context, messageID string) (domain.ChatMessage, error) {
	m, ok := s.messages[messageID]
	if !ok {
		return domain.ChatMessage{}, domain.ErrNotFound
	}
	m.Pinned = !m.Pinned
	return *m, nil
}

func (s *memChatStore) SetRead(ctx context.Context, messageID, userID string, read bool) error {
	m, ok := s.messages[messageID]
	if !ok {
		return domain.ErrNotFound
	}
	for i, id := range m.ReadBy {
		if id == userID {
			if !read {
				m.ReadBy = append(m.ReadBy[:i], m.ReadBy[i+1:]...)
			}
			return nil
		}
	}
	if read {
		m.ReadBy = append(m.ReadBy, userID)
	}
	return nil
}

func (s *memChatStore) ReplacePollVote(ctx context.Context, messageID string, vote domain.PollVote) (domain.ChatMessage, error) {
	m, ok := s.messages[messageID]
	if !ok || m.Type != domain.MessageTypePoll || m.Poll == nil {
		return domain.ChatMessage{}, domain.ErrNotFound
	}
	votes := []domain.PollVote{}
	for _, v := range m.Poll.Votes {
		if v.UserID != vote.UserID {
			votes = append(votes, v)
		}
	}
	m.Poll.Votes = append(votes, vote)
	return *m, nil
}

type memProjectStore struct {
	projects map[string]domain.Project
}

func (s *memProjectStore) GetProject(ctx context.Context, projectID string) (domain.Project, error) {
	p, ok := s.projects[projectID]
	if !ok {
		return domain.Project{}, domain.ErrNotFound
	}
	return p, nil
}

type memUserStore struct {
	users map[string]domain.User
}

func (s *memUserStore) GetUser(ctx context.Context, userID string) (domain.User, error) {
	u, ok := s.users[userID]
	if !ok {
		return domain.User{}, domain.ErrNotFound
	}
	return u, nil
}

func (s *memUserStore) GetUsersByIDs(ctx context.Context, userIDs []string) (map[string]domain.User, error) {
	out := map[string]domain.User{}
	for _, id := range userIDs {
		if u, ok := s.users[id]; ok {
			out[id] = u
		}
	}
	return out, nil
}

type stubModerator struct {
	flagged bool
	err     error
}

func (m *stubModerator) Moderate(ctx context.Context, text string) (bool, error) {
	return m.flagged, m.err
}

type recordingNotifier struct {
	sent []string
}

func (n *recordingNotifier) Notify(ctx context.Context, userID, title, body, kind, entityID string) {
	n.sent = append(n.sent, userID)
}

func newChatFixture() (*ChatService, *memChatStore, *stubModerator, *recordingNotifier) {
	store := newMemChatStore()
	projects := &memProjectStore{projects: map[string]domain.Project{
		"p1": {
			ID:        "p1",
			MemberIDs: []string{"alice", "bob", "carol"},
			Roles:     map[string]domain.ProjectRole{"alice": domain.RoleAdmin},
		},
	}}
	users := &memUserStore{users: map[string]domain.User{
		"alice": {ID: "alice", Name: "Alice", PushToken: "tok-a"},
		"bob":   {ID: "bob", Name: "Bob", PushToken: "tok-b"},
		"carol": {ID: "carol", Name: "Carol"},
	}}
	moderator := &stubModerator{}
	notifier := &recordingNotifier{}
	svc := NewChatService(store, projects, users, moderator, notifier, NewHub())
	return svc, store, moderator, notifier
}

func TestSendMessageDefaults(t *testing.T) {
	svc, _, _, _ := newChatFixture()

	msg, err := svc.SendMessage(context.Background(), "alice", SendMessageInput{ProjectID: "p1", Content: "hello"})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if msg.Channel != domain.DefaultChannel {
		t.Fatalf("expected default channel, got %q", msg.Channel)
	}
	if msg.Type != domain.MessageTypeText {
		t.Fatalf("expected text type, got %q", msg.Type)
	}
	if msg.Reactions == nil || len(msg.Reactions) != 0 {
		t.Fatalf("expected empty reactions, got %v", msg.Reactions)
	}
	if msg.ReadBy == nil || len(msg.ReadBy) != 0 {
		t.Fatalf("expected empty read set, got %v", msg.ReadBy)
	}
	if msg.Pinned {
		t.Fatal("new messages must start unpinned")
	}
}

func TestSendMessageRejectsEmptyAndUnknownType(t *testing.T) {
	svc, _, _, _ := newChatFixture()

	_, err := svc.SendMessage(context.Background(), "alice", SendMessageInput{ProjectID: "p1", Content: "   "})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error for empty content, got %v", err)
	}
	_, err = svc.SendMessage(context.Background(), "alice", SendMessageInput{ProjectID: "p1", Content: "x", Type: "video"})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error for unknown type, got %v", err)
	}
}

func TestSendMessageRequiresMembership(t *testing.T) {
	svc, _, _, _ := newChatFixture()

	_, err := svc.SendMessage(context.Background(), "mallory", SendMessageInput{ProjectID: "p1", Content: "hi"})
	if !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestSendMessageModerationFailOpen(t *testing.T) {
	svc, _, moderator, _ := newChatFixture()
	moderator.err = errors.New("model timeout")

	if _, err := svc.SendMessage(context.Background(), "alice", SendMessageInput{ProjectID: "p1", Content: "hello"}); err != nil {
		t.Fatalf("moderation outage must not block send: %v", err)
	}

	moderator.err = nil
	moderator.flagged = true
	_, err := svc.SendMessage(context.Background(), "alice", SendMessageInput{ProjectID: "p1", Content: "bad"})
	if !errors.Is(err, domain.ErrModerationRejected) {
		t.Fatalf("expected moderation rejection, got %v", err)
	}
}

func TestSendMessageNotifiesMentions(t *testing.T) {
	svc, _, _, notifier := newChatFixture()

	_, err := svc.SendMessage(context.Background(), "alice", SendMessageInput{
		ProjectID: "p1",
		Content:   "ping",
		Mentions:  []string{"alice", "bob", "carol"},
	})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	// Self-mentions and users without a push token are skipped.
	if len(notifier.sent) != 1 || notifier.sent[0] != "bob" {
		t.Fatalf("expected only bob notified, got %v", notifier.sent)
	}
}

func TestEditMessageSenderOnlyAndPreservesCreatedAt(t *testing.T) {
	svc, store, _, _ := newChatFixture()
	msg, _ := svc.SendMessage(context.Background(), "alice", SendMessageInput{ProjectID: "p1", Content: "v1"})
	created := store.messages[msg.ID].CreatedAt

	content := "v2"
	if _, err := svc.EditMessage(context.Background(), "bob", msg.ID, &content, nil); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected forbidden for non-sender, got %v", err)
	}

	updated, err := svc.EditMessage(context.Background(), "alice", msg.ID, &content, nil)
	if err != nil {
		t.Fatalf("edit: %v", err)
	}
	if updated.Content != "v2" {
		t.Fatalf("content not updated: %q", updated.Content)
	}
	if !updated.CreatedAt.Equal(created) {
		t.Fatal("edit must not rewrite the creation timestamp")
	}

	empty := "  "
	if _, err := svc.EditMessage(context.Background(), "alice", msg.ID, &empty, nil); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error for blank content, got %v", err)
	}
}

func TestDeleteMessageSenderOnly(t *testing.T) {
	svc, store, _, _ := newChatFixture()
	msg, _ := svc.SendMessage(context.Background(), "alice", SendMessageInput{ProjectID: "p1", Content: "x"})

	if err := svc.DeleteMessage(context.Background(), "bob", msg.ID); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if err := svc.DeleteMessage(context.Background(), "alice", msg.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok := store.messages[msg.ID]; ok {
		t.Fatal("message should be gone")
	}
	if err := svc.DeleteMessage(context.Background(), "alice", msg.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found on repeat delete, got %v", err)
	}
}

func TestEditDeleteRequireCurrentMembership(t *testing.T) {
	svc, _, _, _ := newChatFixture()
	msg, _ := svc.SendMessage(context.Background(), "bob", SendMessageInput{ProjectID: "p1", Content: "x"})

	// Bob leaves the project; sending ownership alone no longer suffices.
	projects := svc.projects.(*memProjectStore)
	p := projects.projects["p1"]
	p.MemberIDs = []string{"alice", "carol"}
	projects.projects["p1"] = p

	content := "v2"
	if _, err := svc.EditMessage(context.Background(), "bob", msg.ID, &content, nil); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected forbidden after leaving, got %v", err)
	}
	if err := svc.DeleteMessage(context.Background(), "bob", msg.ID); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected forbidden after leaving, got %v", err)
	}
}

func TestReactionToggleIsSelfInverse(t *testing.T) {
	svc, _, _, _ := newChatFixture()
	msg, _ := svc.SendMessage(context.Background(), "alice", SendMessageInput{ProjectID: "p1", Content: "x"})

	after, err := svc.ReactToMessage(context.Background(), "bob", msg.ID, "👍")
	if err != nil {
		t.Fatalf("react: %v", err)
	}
	if len(after.Reactions) != 1 {
		t.Fatalf("expected 1 reaction, got %d", len(after.Reactions))
	}

	// Same user, different emoji coexists.
	after, _ = svc.ReactToMessage(context.Background(), "bob", msg.ID, "🎉")
	if len(after.Reactions) != 2 {
		t.Fatalf("expected 2 reactions, got %d", len(after.Reactions))
	}

	after, _ = svc.ReactToMessage(context.Background(), "bob", msg.ID, "👍")
	if len(after.Reactions) != 1 || after.Reactions[0].Emoji != "🎉" {
		t.Fatalf("expected toggle to remove only the matching pair, got %v", after.Reactions)
	}

	if _, err := svc.ReactToMessage(context.Background(), "bob", msg.ID, " "); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error for blank emoji, got %v", err)
	}
}

func TestPinRequiresElevatedRole(t *testing.T) {
	svc, _, _, _ := newChatFixture()
	msg, _ := svc.SendMessage(context.Background(), "bob", SendMessageInput{ProjectID: "p1", Content: "x"})

	if _, err := svc.PinMessage(context.Background(), "bob", msg.ID); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected forbidden for plain member, got %v", err)
	}

	after, err := svc.PinMessage(context.Background(), "alice", msg.ID)
	if err != nil {
		t.Fatalf("pin: %v", err)
	}
	if !after.Pinned {
		t.Fatal("expected pinned")
	}
	after, _ = svc.PinMessage(context.Background(), "alice", msg.ID)
	if after.Pinned {
		t.Fatal("second pin should unpin")
	}
}

func TestReadStateToggle(t *testing.T) {
	svc, store, _, _ := newChatFixture()
	msg, _ := svc.SendMessage(context.Background(), "alice", SendMessageInput{ProjectID: "p1", Content: "x"})

	if err := svc.MarkAsRead(context.Background(), "bob", msg.ID); err != nil {
		t.Fatalf("read: %v", err)
	}
	// Marking read twice keeps a single entry.
	_ = svc.MarkAsRead(context.Background(), "bob", msg.ID)
	if got := store.messages[msg.ID].ReadBy; len(got) != 1 || got[0] != "bob" {
		t.Fatalf("expected [bob], got %v", got)
	}

	if err := svc.MarkAsUnread(context.Background(), "bob", msg.ID); err != nil {
		t.Fatalf("unread: %v", err)
	}
	if got := store.messages[msg.ID].ReadBy; len(got) != 0 {
		t.Fatalf("expected empty read set, got %v", got)
	}
}

func TestVotePollReplacesPriorVote(t *testing.T) {
	svc, store, _, _ := newChatFixture()
	msg, err := svc.SendMessage(context.Background(), "alice", SendMessageInput{
		ProjectID:   "p1",
		Content:     "lunch?",
		Type:        domain.MessageTypePoll,
		PollOptions: []string{"pizza", "sushi"},
	})
	if err != nil {
		t.Fatalf("send poll: %v", err)
	}

	if _, err := svc.VotePoll(context.Background(), "bob", msg.ID, 0); err != nil {
		t.Fatalf("vote: %v", err)
	}
	if _, err := svc.VotePoll(context.Background(), "bob", msg.ID, 1); err != nil {
		t.Fatalf("revote: %v", err)
	}
	votes := store.messages[msg.ID].Poll.Votes
	if len(votes) != 1 || votes[0].OptionIndex != 1 {
		t.Fatalf("expected single replaced vote, got %v", votes)
	}

	if _, err := svc.VotePoll(context.Background(), "bob", msg.ID, 5); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error for out-of-range option, got %v", err)
	}

	text, _ := svc.SendMessage(context.Background(), "alice", SendMessageInput{ProjectID: "p1", Content: "not a poll"})
	if _, err := svc.VotePoll(context.Background(), "bob", text.ID, 0); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found when voting on a non-poll, got %v", err)
	}
}

func TestGetHistoryResolvesNamesAndGuardsMembership(t *testing.T) {
	svc, _, _, _ := newChatFixture()
	_, _ = svc.SendMessage(context.Background(), "alice", SendMessageInput{ProjectID: "p1", Content: "one", Mentions: []string{"bob"}})
	_, _ = svc.SendMessage(context.Background(), "bob", SendMessageInput{ProjectID: "p1", Content: "two"})

	if _, err := svc.GetHistory(context.Background(), "mallory", "p1", ""); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected forbidden for non-member, got %v", err)
	}

	items, err := svc.GetHistory(context.Background(), "carol", "p1", "")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(items))
	}
	if items[0].Content != "one" || items[1].Content != "two" {
		t.Fatalf("expected ascending order, got %q then %q", items[0].Content, items[1].Content)
	}
	if items[0].SenderName != "Alice" {
		t.Fatalf("expected resolved sender name, got %q", items[0].SenderName)
	}
	if len(items[0].MentionNames) != 1 || items[0].MentionNames[0] != "Bob" {
		t.Fatalf("expected resolved mention names, got %v", items[0].MentionNames)
	}
}
