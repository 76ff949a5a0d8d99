package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"studyhub/server/common/auth"
	"studyhub/server/common/transport/httpresp"
	"studyhub/server/domain"
)

type tokenParser interface {
	ParseToken(token string) (*auth.Claims, error)
}

// UserResolver upserts the local user record on first verified token
// presentation and returns it on every subsequent call.
type UserResolver interface {
	EnsureUser(ctx context.Context, subject, email, name string) (domain.User, error)
}

func AuthRequired(parser tokenParser, users UserResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := ""
		header := c.GetHeader("Authorization")
		switch {
		case strings.HasPrefix(header, "Bearer "):
			token = strings.TrimPrefix(header, "Bearer ")
		case c.Query("token") != "":
			// WebSocket clients cannot set headers, so the token rides
			// in the query string there.
			token = c.Query("token")
		default:
			c.AbortWithStatusJSON(http.StatusUnauthorized, httpresp.NewErrorResponse(httpresp.ErrMissingBearerToken))
			return
		}
		claims, err := parser.ParseToken(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, httpresp.NewErrorResponse(httpresp.ErrInvalidToken))
			return
		}
		user, err := users.EnsureUser(c.Request.Context(), claims.Subject, claims.Email, claims.Name)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, httpresp.NewErrorResponse(httpresp.ErrUnauthorized))
			return
		}
		c.Set("auth_user_id", user.ID)
		c.Set("auth_email", user.Email)
		c.Set("auth_name", user.Name)
		c.Next()
	}
}
