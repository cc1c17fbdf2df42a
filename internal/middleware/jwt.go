package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/hmochat/internal/pkg/errcode"
	"github.com/xxxsen/hmochat/internal/pkg/jwt"
	"github.com/xxxsen/hmochat/internal/pkg/response"
)

const ContextSessionIDKey = "session_id"

// SessionAuth accepts a Bearer session token and puts its session id on
// the context.
func SessionAuth(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Abort(c, errcode.ErrUnauthorized, "missing authorization")
			return
		}
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			response.Abort(c, errcode.ErrUnauthorized, "invalid authorization")
			return
		}
		claims, err := jwt.ParseToken(strings.TrimSpace(parts[1]), secret)
		if err != nil {
			response.Abort(c, errcode.ErrUnauthorized, "invalid token")
			return
		}
		c.Set(ContextSessionIDKey, claims.SessionID)
		c.Next()
	}
}
