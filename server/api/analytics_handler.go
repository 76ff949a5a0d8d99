package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"studyhub/server/common/transport/httpresp"
	"studyhub/server/domain"
)

type recordEventRequest struct {
	ProjectID       *string `json:"projectId"`
	NoteID          *string `json:"noteId"`
	Action          string  `json:"action" binding:"required"`
	DurationSeconds int64   `json:"durationSeconds"`
}

func (h *Handler) recordEvent(c *gin.Context) {
	var req recordEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpresp.NewErrorResponse(err.Error()))
		return
	}
	event, err := h.analytics.Record(c.Request.Context(), domain.AnalyticsEvent{
		UserID:          authUserID(c),
		ProjectID:       req.ProjectID,
		NoteID:          req.NoteID,
		Action:          domain.AnalyticsAction(req.Action),
		DurationSeconds: req.DurationSeconds,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, event)
}

func (h *Handler) listMyEvents(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	items, err := h.analytics.ListMine(c.Request.Context(), authUserID(c), limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

func (h *Handler) generateInsight(c *gin.Context) {
	event, err := h.analytics.GenerateInsight(c.Request.Context(), authUserID(c), c.Param("eventId"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, event)
}
