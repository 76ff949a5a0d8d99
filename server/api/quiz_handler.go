package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"studyhub/server/common/transport/httpresp"
	"studyhub/server/domain"
)

type generateQuizRequest struct {
	NoteID string `json:"noteId" binding:"required"`
	Count  int    `json:"count"`
}

func (h *Handler) generateQuiz(c *gin.Context) {
	var req generateQuizRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpresp.NewErrorResponse(err.Error()))
		return
	}
	quiz, err := h.quizzes.Generate(c.Request.Context(), authUserID(c), req.NoteID, req.Count)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, quiz)
}

type createQuizRequest struct {
	NoteID    string                `json:"noteId" binding:"required"`
	Questions []domain.QuizQuestion `json:"questions" binding:"required"`
}

func (h *Handler) createQuiz(c *gin.Context) {
	var req createQuizRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpresp.NewErrorResponse(err.Error()))
		return
	}
	quiz, err := h.quizzes.CreateManual(c.Request.Context(), authUserID(c), req.NoteID, req.Questions)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, quiz)
}

func (h *Handler) getQuiz(c *gin.Context) {
	quiz, err := h.quizzes.Get(c.Request.Context(), authUserID(c), c.Param("quizId"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, quiz)
}

func (h *Handler) listNoteQuizzes(c *gin.Context) {
	items, err := h.quizzes.ListForNote(c.Request.Context(), authUserID(c), c.Param("noteId"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

type submitQuizRequest struct {
	Answers         []string `json:"answers" binding:"required"`
	DurationSeconds int64    `json:"durationSeconds"`
}

func (h *Handler) submitQuiz(c *gin.Context) {
	var req submitQuizRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpresp.NewErrorResponse(err.Error()))
		return
	}
	result, err := h.quizzes.Submit(c.Request.Context(), authUserID(c), c.Param("quizId"), req.Answers, req.DurationSeconds)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) generateFlashcards(c *gin.Context) {
	var req generateQuizRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpresp.NewErrorResponse(err.Error()))
		return
	}
	set, err := h.quizzes.GenerateFlashcards(c.Request.Context(), authUserID(c), req.NoteID, req.Count)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, set)
}

func (h *Handler) listNoteFlashcards(c *gin.Context) {
	items, err := h.quizzes.ListFlashcards(c.Request.Context(), authUserID(c), c.Param("noteId"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}
