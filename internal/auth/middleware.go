package auth

import (
	"strings"

	"campusmarket/backend/internal/apperr"

	"github.com/gin-gonic/gin"
)

const userIDKey = "user_id"

// Middleware rejects requests without a valid token. The token is read from
// the Authorization header, or from the token query parameter for browsers
// opening a websocket.
func Middleware(issuer *Issuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearer(c.GetHeader("Authorization"))
		if token == "" {
			token = c.Query("token")
		}
		if token == "" {
			abort(c, apperr.ErrMissingIdentity)
			return
		}

		userID, err := issuer.Verify(token)
		if err != nil {
			abort(c, err)
			return
		}
		c.Set(userIDKey, userID)
		c.Next()
	}
}

// UserID returns the authenticated caller, or "" outside the middleware.
func UserID(c *gin.Context) string {
	return c.GetString(userIDKey)
}

func bearer(header string) string {
	const prefix = "Bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return strings.TrimSpace(header[len(prefix):])
	}
	return ""
}

func abort(c *gin.Context, err error) {
	c.AbortWithStatusJSON(apperr.HTTPStatus(err), gin.H{
		"error": gin.H{"code": apperr.CodeOf(err), "message": apperr.PublicMessage(err)},
	})
}
