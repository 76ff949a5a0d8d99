package service

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	commonlog "studyhub/server/common/log"
)

var upgrader = websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

// clientEnvelope is the client-to-server frame. Fields beyond event are
// event-specific; unknown or malformed frames are dropped without affecting
// the shared reader loop.
type clientEnvelope struct {
	Event     string          `json:"event"`
	ProjectID string          `json:"project_id"`
	MessageID string          `json:"message_id"`
	NoteID    string          `json:"note_id"`
	Emoji     string          `json:"emoji"`
	Content   string          `json:"content"`
	IsTyping  bool            `json:"is_typing"`
	Data      json.RawMessage `json:"data"`
}

type RealtimeService struct {
	hub      *Hub
	chat     *ChatService
	projects ProjectStore
}

func NewRealtimeService(hub *Hub, chat *ChatService, projects ProjectStore) *RealtimeService {
	return &RealtimeService{hub: hub, chat: chat, projects: projects}
}

// HandleWS runs the per-connection read loop. The request passes the auth
// middleware first, so auth_user_id is always present here.
func (s *RealtimeService) HandleWS(c *gin.Context) {
	rawUserID, _ := c.Get("auth_user_id")
	userID, _ := rawUserID.(string)
	if strings.TrimSpace(userID) == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	client := NewClient(userID, conn)
	defer s.hub.Disconnect(client)

	commonlog.Infof("event=realtime action=connect user_id=%s", userID)
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			commonlog.Infof("event=realtime action=disconnect user_id=%s", userID)
			return
		}
		var env clientEnvelope
		if err := json.Unmarshal(raw, &env); err != nil {
			continue
		}
		s.dispatch(c, client, userID, env)
	}
}

func (s *RealtimeService) dispatch(c *gin.Context, client *Client, userID string, env clientEnvelope) {
	ctx := c.Request.Context()
	switch env.Event {
	case "joinProject":
		if env.ProjectID == "" {
			return
		}
		project, err := s.projects.GetProject(ctx, env.ProjectID)
		if err != nil || !project.IsMember(userID) {
			writeWSError(client, "cannot join project")
			return
		}
		s.hub.Join(env.ProjectID, userID, client)
	case "leaveProject":
		if env.ProjectID == "" {
			return
		}
		s.hub.Leave(env.ProjectID, userID, client)
	case "typing":
		if env.ProjectID == "" {
			return
		}
		s.hub.SetTyping(env.ProjectID, userID, env.IsTyping)
	case "chat:send":
		var in SendMessageInput
		if err := json.Unmarshal(env.Data, &in); err != nil {
			return
		}
		if in.ProjectID == "" {
			in.ProjectID = env.ProjectID
		}
		if _, err := s.chat.SendMessage(ctx, userID, in); err != nil {
			writeWSError(client, err.Error())
		}
	case "chat:edit":
		var in struct {
			Content     *string  `json:"content"`
			Attachments []string `json:"attachments"`
		}
		if err := json.Unmarshal(env.Data, &in); err != nil {
			return
		}
		if _, err := s.chat.EditMessage(ctx, userID, env.MessageID, in.Content, in.Attachments); err != nil {
			writeWSError(client, err.Error())
		}
	case "chat:delete":
		if err := s.chat.DeleteMessage(ctx, userID, env.MessageID); err != nil {
			writeWSError(client, err.Error())
		}
	case "chat:reaction":
		if _, err := s.chat.ReactToMessage(ctx, userID, env.MessageID, env.Emoji); err != nil {
			writeWSError(client, err.Error())
		}
	case "chat:pin":
		if _, err := s.chat.PinMessage(ctx, userID, env.MessageID); err != nil {
			writeWSError(client, err.Error())
		}
	case "note:edit":
		// Live note edits echo to everyone in the room except the editor,
		// who already has the change locally.
		if env.ProjectID == "" || env.NoteID == "" {
			return
		}
		s.hub.BroadcastExcept(env.ProjectID, client, EventNoteEdit, map[string]any{
			"note_id":    env.NoteID,
			"project_id": env.ProjectID,
			"content":    env.Content,
			"user_id":    userID,
		})
	}
}

func writeWSError(client *Client, message string) {
	client.WriteJSON(Envelope{Event: "error", Data: map[string]string{"error": message, "at": time.Now().UTC().Format(time.RFC3339)}})
}
