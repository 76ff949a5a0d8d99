package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"studyhub/server/common/auth"
	"studyhub/server/common/middleware"
	"studyhub/server/service"
)

type Handler struct {
	auth          *auth.Service
	users         *service.UserService
	projects      *service.ProjectService
	notes         *service.NoteService
	quizzes       *service.QuizService
	chat          *service.ChatService
	analytics     *service.AnalyticsService
	notifications *service.NotificationService
	files         *service.FileService
	realtime      *service.RealtimeService
}

func NewHandler(
	authSvc *auth.Service,
	users *service.UserService,
	projects *service.ProjectService,
	notes *service.NoteService,
	quizzes *service.QuizService,
	chat *service.ChatService,
	analytics *service.AnalyticsService,
	notifications *service.NotificationService,
	files *service.FileService,
	realtime *service.RealtimeService,
) *Handler {
	return &Handler{
		auth:          authSvc,
		users:         users,
		projects:      projects,
		notes:         notes,
		quizzes:       quizzes,
		chat:          chat,
		analytics:     analytics,
		notifications: notifications,
		files:         files,
		realtime:      realtime,
	}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	authed := middleware.AuthRequired(h.auth, h.users)

	r.GET("/ws", authed, h.realtime.HandleWS)

	v1 := r.Group("/api/v1", authed)
	{
		v1.GET("/me", h.me)
		v1.PUT("/me", h.updateProfile)
		v1.POST("/me/push-token", h.registerPushToken)
		v1.POST("/me/watch", h.watch)
		v1.DELETE("/me/watch", h.unwatch)
		v1.POST("/me/completed-notes/:noteId", h.completeNote)

		v1.POST("/projects", h.createProject)
		v1.GET("/projects", h.listMyProjects)
		v1.GET("/projects/public", h.listPublicProjects)
		v1.GET("/projects/:projectId", h.getProject)
		v1.PUT("/projects/:projectId", h.updateProject)
		v1.POST("/projects/:projectId/join", h.joinProject)
		v1.POST("/projects/:projectId/leave", h.leaveProject)
		v1.POST("/projects/:projectId/members", h.addMember)
		v1.PUT("/projects/:projectId/members/role", h.setMemberRole)
		v1.GET("/projects/:projectId/notes", h.listProjectNotes)

		v1.POST("/notes", h.createNote)
		v1.GET("/notes", h.listMyNotes)
		v1.GET("/notes/:noteId", h.getNote)
		v1.PUT("/notes/:noteId", h.updateNote)
		v1.DELETE("/notes/:noteId", h.deleteNote)
		v1.POST("/notes/:noteId/summarize", h.summarizeNote)
		v1.POST("/notes/:noteId/files", h.attachNoteFile)
		v1.GET("/notes/:noteId/quizzes", h.listNoteQuizzes)
		v1.GET("/notes/:noteId/flashcards", h.listNoteFlashcards)

		v1.POST("/quizzes", h.createQuiz)
		v1.POST("/quizzes/generate", h.generateQuiz)
		v1.GET("/quizzes/:quizId", h.getQuiz)
		v1.POST("/quizzes/:quizId/submit", h.submitQuiz)
		v1.POST("/flashcards/generate", h.generateFlashcards)

		v1.POST("/chat", h.sendMessage)
		v1.GET("/chat", h.getMessages)
		v1.PUT("/chat/:messageId", h.editMessage)
		v1.DELETE("/chat/:messageId", h.deleteMessage)
		v1.POST("/chat/:messageId/react", h.reactToMessage)
		v1.POST("/chat/:messageId/pin", h.pinMessage)
		v1.POST("/chat/:messageId/read", h.markRead)
		v1.POST("/chat/:messageId/unread", h.markUnread)
		v1.POST("/chat/:messageId/vote", h.votePoll)

		v1.POST("/analytics", h.recordEvent)
		v1.GET("/analytics", h.listMyEvents)
		v1.POST("/analytics/:eventId/insight", h.generateInsight)

		v1.GET("/notifications", h.listNotifications)
		v1.POST("/notifications/:notificationId/read", h.markNotificationRead)

		v1.POST("/files/presign-upload", h.presignUpload)
		v1.GET("/files/presign-download", h.presignDownload)
	}
}
