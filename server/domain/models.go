package domain

import "time"

type ProjectRole string
type MessageType string
type AnalyticsAction string

const (
	RoleAdmin     ProjectRole = "admin"
	RoleModerator ProjectRole = "moderator"
	RoleMember    ProjectRole = "member"
)

const (
	MessageTypeText  MessageType = "text"
	MessageTypeImage MessageType = "image"
	MessageTypeFile  MessageType = "file"
	MessageTypeCode  MessageType = "code"
	MessageTypePoll  MessageType = "poll"
	MessageTypeAI    MessageType = "ai"
)

const (
	ActionView       AnalyticsAction = "view"
	ActionEdit       AnalyticsAction = "edit"
	ActionComplete   AnalyticsAction = "complete"
	ActionQuizSubmit AnalyticsAction = "quiz_submit"
)

const DefaultChannel = "general"

type User struct {
	ID        string     `json:"id"`
	Subject   string     `json:"subject"`
	Email     string     `json:"email"`
	Name      string     `json:"name"`
	AvatarURL string     `json:"avatar_url,omitempty"`
	PushToken string     `json:"push_token,omitempty"`
	WatchList []WatchRef `json:"watch_list"`
	Progress  Progress   `json:"progress"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

type WatchRef struct {
	EntityType string `json:"entity_type"`
	EntityID   string `json:"entity_id"`
}

type Progress struct {
	CompletedNotes   []string `json:"completed_notes"`
	CompletedQuizzes []string `json:"completed_quizzes"`
	StudySeconds     int64    `json:"study_seconds"`
}

type Project struct {
	ID          string                 `json:"id"`
	Title       string                 `json:"title"`
	Description string                 `json:"description"`
	Subject     string                 `json:"subject"`
	Tags        []string               `json:"tags"`
	IsPublic    bool                   `json:"is_public"`
	CreatedBy   string                 `json:"created_by"`
	MemberIDs   []string               `json:"member_ids"`
	Roles       map[string]ProjectRole `json:"roles"`
	CreatedAt   time.Time              `json:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at"`
}

// IsMember reports whether userID appears in the project's member set.
// Membership can change between calls, so callers re-check per operation.
func (p Project) IsMember(userID string) bool {
	for _, id := range p.MemberIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// RoleOf returns the mapped role, defaulting unmapped members to RoleMember.
func (p Project) RoleOf(userID string) ProjectRole {
	if role, ok := p.Roles[userID]; ok {
		switch role {
		case RoleAdmin, RoleModerator, RoleMember:
			return role
		}
	}
	return RoleMember
}

type FileRef struct {
	URL          string    `json:"url"`
	Name         string    `json:"name"`
	MimeType     string    `json:"mime_type"`
	Size         int64     `json:"size"`
	ThumbnailURL string    `json:"thumbnail_url,omitempty"`
	UploadedAt   time.Time `json:"uploaded_at"`
}

type Note struct {
	ID        string    `json:"id"`
	ProjectID *string   `json:"project_id,omitempty"`
	CreatedBy string    `json:"created_by"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Tags      []string  `json:"tags"`
	Summary   string    `json:"summary,omitempty"`
	Files     []FileRef `json:"files"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type QuizQuestion struct {
	Prompt      string   `json:"prompt"`
	Options     []string `json:"options"`
	Answer      string   `json:"answer"`
	Explanation string   `json:"explanation"`
}

type Quiz struct {
	ID        string         `json:"id"`
	NoteID    string         `json:"note_id"`
	CreatedBy string         `json:"created_by"`
	Questions []QuizQuestion `json:"questions"`
	CreatedAt time.Time      `json:"created_at"`
}

type Flashcard struct {
	Front string `json:"front"`
	Back  string `json:"back"`
}

type FlashcardSet struct {
	ID        string      `json:"id"`
	NoteID    string      `json:"note_id"`
	CreatedBy string      `json:"created_by"`
	Cards     []Flashcard `json:"cards"`
	CreatedAt time.Time   `json:"created_at"`
}

type Reaction struct {
	Emoji  string `json:"emoji"`
	UserID string `json:"user_id"`
}

type PollVote struct {
	UserID      string `json:"user_id"`
	OptionIndex int    `json:"option_index"`
}

type Poll struct {
	Options []string   `json:"options"`
	Votes   []PollVote `json:"votes"`
}

type ChatMessage struct {
	ID           string      `json:"id"`
	ProjectID    string      `json:"project_id"`
	Channel      string      `json:"channel"`
	SenderID     string      `json:"sender_id"`
	SenderName   string      `json:"sender_name,omitempty"`
	Content      string      `json:"content"`
	Type         MessageType `json:"type"`
	Attachments  []string    `json:"attachments"`
	Files        []FileRef   `json:"files"`
	ReplyTo      *string     `json:"reply_to,omitempty"`
	Mentions     []string    `json:"mentions"`
	MentionNames []string    `json:"mention_names,omitempty"`
	Reactions    []Reaction  `json:"reactions"`
	Pinned       bool        `json:"pinned"`
	ReadBy       []string    `json:"read_by"`
	Poll         *Poll       `json:"poll,omitempty"`
	CreatedAt    time.Time   `json:"created_at"`
}

type AnalyticsEvent struct {
	ID              string          `json:"id"`
	UserID          string          `json:"user_id"`
	ProjectID       *string         `json:"project_id,omitempty"`
	NoteID          *string         `json:"note_id,omitempty"`
	Action          AnalyticsAction `json:"action"`
	DurationSeconds int64           `json:"duration_seconds"`
	Insight         string          `json:"insight,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}

type Notification struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Kind      string    `json:"kind"`
	EntityID  string    `json:"entity_id,omitempty"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}
