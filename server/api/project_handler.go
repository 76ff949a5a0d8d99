package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"studyhub/server/common/transport/httpresp"
	"studyhub/server/domain"
	"studyhub/server/service"
)

func (h *Handler) createProject(c *gin.Context) {
	var req service.ProjectInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpresp.NewErrorResponse(err.Error()))
		return
	}
	project, err := h.projects.Create(c.Request.Context(), authUserID(c), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, project)
}

func (h *Handler) getProject(c *gin.Context) {
	project, err := h.projects.Get(c.Request.Context(), authUserID(c), c.Param("projectId"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, project)
}

func (h *Handler) listMyProjects(c *gin.Context) {
	items, err := h.projects.ListMine(c.Request.Context(), authUserID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

func (h *Handler) listPublicProjects(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	items, err := h.projects.ListPublic(c.Request.Context(), limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

func (h *Handler) updateProject(c *gin.Context) {
	var req service.ProjectInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpresp.NewErrorResponse(err.Error()))
		return
	}
	project, err := h.projects.Update(c.Request.Context(), authUserID(c), c.Param("projectId"), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, project)
}

func (h *Handler) joinProject(c *gin.Context) {
	if err := h.projects.Join(c.Request.Context(), authUserID(c), c.Param("projectId")); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpresp.NewOKResponse())
}

func (h *Handler) leaveProject(c *gin.Context) {
	if err := h.projects.Leave(c.Request.Context(), authUserID(c), c.Param("projectId")); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpresp.NewOKResponse())
}

type memberRequest struct {
	UserID string `json:"userId" binding:"required"`
	Role   string `json:"role"`
}

func (h *Handler) addMember(c *gin.Context) {
	var req memberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpresp.NewErrorResponse(err.Error()))
		return
	}
	if err := h.projects.AddMember(c.Request.Context(), authUserID(c), c.Param("projectId"), req.UserID); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpresp.NewOKResponse())
}

func (h *Handler) setMemberRole(c *gin.Context) {
	var req memberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpresp.NewErrorResponse(err.Error()))
		return
	}
	err := h.projects.SetRole(c.Request.Context(), authUserID(c), c.Param("projectId"), req.UserID, domain.ProjectRole(req.Role))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpresp.NewOKResponse())
}
