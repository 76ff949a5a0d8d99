package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"studyhub/server/common/transport/httpresp"
	"studyhub/server/domain"
	"studyhub/server/service"
)

func (h *Handler) createNote(c *gin.Context) {
	var req service.NoteInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpresp.NewErrorResponse(err.Error()))
		return
	}
	note, err := h.notes.Create(c.Request.Context(), authUserID(c), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, note)
}

func (h *Handler) getNote(c *gin.Context) {
	note, err := h.notes.Get(c.Request.Context(), authUserID(c), c.Param("noteId"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, note)
}

func (h *Handler) listMyNotes(c *gin.Context) {
	items, err := h.notes.ListMine(c.Request.Context(), authUserID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

func (h *Handler) listProjectNotes(c *gin.Context) {
	items, err := h.notes.ListForProject(c.Request.Context(), authUserID(c), c.Param("projectId"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

func (h *Handler) updateNote(c *gin.Context) {
	var req service.NoteInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpresp.NewErrorResponse(err.Error()))
		return
	}
	note, err := h.notes.Update(c.Request.Context(), authUserID(c), c.Param("noteId"), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, note)
}

func (h *Handler) deleteNote(c *gin.Context) {
	if err := h.notes.Delete(c.Request.Context(), authUserID(c), c.Param("noteId")); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpresp.NewOKResponse())
}

func (h *Handler) summarizeNote(c *gin.Context) {
	note, err := h.notes.Summarize(c.Request.Context(), authUserID(c), c.Param("noteId"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, note)
}

type attachFileRequest struct {
	Key      string `json:"key" binding:"required"`
	Name     string `json:"name" binding:"required"`
	MimeType string `json:"mimeType"`
	Size     int64  `json:"size"`
}

// attachNoteFile records an already uploaded object against a note. For
// image uploads the file service also produces a thumbnail reference.
func (h *Handler) attachNoteFile(c *gin.Context) {
	var req attachFileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpresp.NewErrorResponse(err.Error()))
		return
	}
	var ref domain.FileRef
	if h.files != nil {
		ref = h.files.DescribeUpload(c.Request.Context(), req.Key, req.Name, req.MimeType, req.Size)
	} else {
		ref = domain.FileRef{URL: req.Key, Name: req.Name, MimeType: req.MimeType, Size: req.Size}
	}
	note, err := h.notes.AttachFile(c.Request.Context(), authUserID(c), c.Param("noteId"), ref)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, note)
}
