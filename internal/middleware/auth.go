package middleware

import (
	"net/http"
	"time"

	"github.com/maikschneider/oauth2/internal/session"

	"github.com/gin-gonic/gin"
)

// ContextUserID is the gin context key carrying the authenticated
// user's uid.
const ContextUserID = "userID"

type AuthMiddleware struct {
	store session.Store
}

func NewAuthMiddleware(store session.Store) *AuthMiddleware {
	return &AuthMiddleware{store: store}
}

// RequireAuth rejects requests without a live session. Auth decisions
// are session-based and provider-agnostic.
func (a *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		cookie, err := c.Request.Cookie(session.CookieName)
		if err != nil || cookie.Value == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "unauthorized",
			})
			return
		}

		sess, err := a.store.Get(c.Request.Context(), cookie.Value)
		if err != nil || sess == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "unauthorized",
			})
			return
		}

		if time.Now().After(sess.ExpiresAt) {
			_ = a.store.Delete(c.Request.Context(), cookie.Value)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "unauthorized",
			})
			return
		}

		c.Set(ContextUserID, sess.UserID)
		c.Next()
	}
}
