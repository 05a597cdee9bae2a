package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Blu-Chips/Invoice-Extractor/internal/pkg/session"
)

const (
	// SessionContextKey is a gin context key for the resolved session.
	SessionContextKey = "session"
	// SessionCookieName carries the signed session token.
	SessionCookieName = "invoicer_session"
)

// SessionResolver turns a token into a session, opening one when needed.
type SessionResolver interface {
	Resolve(token string) (session.Session, error)
}

// Session attaches a session to every request and issues a cookie for new or
// renewed ones.
func Session(resolver SessionResolver, ttl time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, err := resolver.Resolve(extractToken(c))
		if err != nil {
			c.AbortWithStatus(http.StatusInternalServerError)
			return
		}
		if sess.Fresh || sess.Renewed {
			SetSessionCookie(c, sess.Token, ttl)
		}
		c.Set(SessionContextKey, sess)
		c.Next()
	}
}

func extractToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if strings.HasPrefix(strings.ToLower(authHeader), "bearer ") {
		return strings.TrimSpace(authHeader[7:])
	}
	if cookie, err := c.Cookie(SessionCookieName); err == nil {
		return cookie
	}
	return ""
}

// SetSessionCookie writes the session token cookie to the response.
func SetSessionCookie(c *gin.Context, token string, ttl time.Duration) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookieName, token, int(ttl.Seconds()), "/", "", false, true)
	c.Header("Authorization", "Bearer "+token)
}

// CurrentSession returns the session attached by Session.
func CurrentSession(c *gin.Context) (session.Session, bool) {
	val, ok := c.Get(SessionContextKey)
	if !ok {
		return session.Session{}, false
	}
	sess, ok := val.(session.Session)
	return sess, ok
}
