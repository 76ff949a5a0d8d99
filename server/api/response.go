package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	commonlog "studyhub/server/common/log"
	"studyhub/server/common/transport/httpresp"
	"studyhub/server/domain"
)

// writeError maps domain errors onto HTTP statuses. Anything outside the
// known set is logged and reported as an internal error without leaking
// the underlying message.
func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, httpresp.NewErrorResponse(httpresp.ErrNotFound))
	case errors.Is(err, domain.ErrForbidden):
		c.JSON(http.StatusForbidden, httpresp.NewErrorResponse(httpresp.ErrForbidden))
	case errors.Is(err, domain.ErrModerationRejected):
		c.JSON(http.StatusBadRequest, httpresp.NewErrorResponse(err.Error()))
	case errors.Is(err, domain.ErrValidation):
		c.JSON(http.StatusBadRequest, httpresp.NewErrorResponse(err.Error()))
	default:
		commonlog.Errorf("event=api action=handle status=error error=%v path=%s", err, c.FullPath())
		c.JSON(http.StatusInternalServerError, httpresp.NewErrorResponse(httpresp.ErrInternal))
	}
}

func authUserID(c *gin.Context) string {
	raw, _ := c.Get("auth_user_id")
	id, _ := raw.(string)
	return id
}
