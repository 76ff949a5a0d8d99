package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"studyhub/server/common/transport/httpresp"
	"studyhub/server/domain"
	"studyhub/server/service"
)

type sendMessageRequest struct {
	ProjectID   string           `json:"projectId" binding:"required"`
	Channel     string           `json:"channel"`
	Content     string           `json:"content"`
	Type        string           `json:"type"`
	Attachments []string         `json:"attachments"`
	Files       []domain.FileRef `json:"files"`
	ReplyTo     *string          `json:"replyTo"`
	Mentions    []string         `json:"mentions"`
	Pinned      bool             `json:"pinned"`
	PollOptions []string         `json:"pollOptions"`
}

func (h *Handler) sendMessage(c *gin.Context) {
	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpresp.NewErrorResponse(err.Error()))
		return
	}
	msg, err := h.chat.SendMessage(c.Request.Context(), authUserID(c), service.SendMessageInput{
		ProjectID:   req.ProjectID,
		Channel:     req.Channel,
		Content:     req.Content,
		Type:        domain.MessageType(req.Type),
		Attachments: req.Attachments,
		Files:       req.Files,
		ReplyTo:     req.ReplyTo,
		Mentions:    req.Mentions,
		Pinned:      req.Pinned,
		PollOptions: req.PollOptions,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, msg)
}

func (h *Handler) getMessages(c *gin.Context) {
	projectID := strings.TrimSpace(c.Query("projectId"))
	if projectID == "" {
		c.JSON(http.StatusBadRequest, httpresp.NewErrorResponse("projectId is required"))
		return
	}
	items, err := h.chat.GetHistory(c.Request.Context(), authUserID(c), projectID, c.Query("channel"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

type editMessageRequest struct {
	Content     *string  `json:"content"`
	Attachments []string `json:"attachments"`
}

func (h *Handler) editMessage(c *gin.Context) {
	var req editMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpresp.NewErrorResponse(err.Error()))
		return
	}
	msg, err := h.chat.EditMessage(c.Request.Context(), authUserID(c), c.Param("messageId"), req.Content, req.Attachments)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, msg)
}

func (h *Handler) deleteMessage(c *gin.Context) {
	if err := h.chat.DeleteMessage(c.Request.Context(), authUserID(c), c.Param("messageId")); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpresp.NewOKResponse())
}

type reactRequest struct {
	Emoji string `json:"emoji" binding:"required"`
}

func (h *Handler) reactToMessage(c *gin.Context) {
	var req reactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpresp.NewErrorResponse(err.Error()))
		return
	}
	msg, err := h.chat.ReactToMessage(c.Request.Context(), authUserID(c), c.Param("messageId"), req.Emoji)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, msg)
}

func (h *Handler) pinMessage(c *gin.Context) {
	msg, err := h.chat.PinMessage(c.Request.Context(), authUserID(c), c.Param("messageId"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, msg)
}

func (h *Handler) markRead(c *gin.Context) {
	if err := h.chat.MarkAsRead(c.Request.Context(), authUserID(c), c.Param("messageId")); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpresp.NewOKResponse())
}

func (h *Handler) markUnread(c *gin.Context) {
	if err := h.chat.MarkAsUnread(c.Request.Context(), authUserID(c), c.Param("messageId")); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpresp.NewOKResponse())
}

type voteRequest struct {
	OptionIndex int `json:"optionIndex"`
}

func (h *Handler) votePoll(c *gin.Context) {
	var req voteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpresp.NewErrorResponse(err.Error()))
		return
	}
	msg, err := h.chat.VotePoll(c.Request.Context(), authUserID(c), c.Param("messageId"), req.OptionIndex)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, msg)
}
