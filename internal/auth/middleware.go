package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"

	"clubhub/internal/apperr"
	"clubhub/internal/model"
	"clubhub/internal/policy"
)

// CookieName carries the session token for browser clients.
const CookieName = "clubhub_session"

const (
	userKey    = "user"
	sessionKey = "session_id"
)

// UserLoader fetches the account behind a session.
type UserLoader interface {
	GetUser(ctx context.Context, id int64) (model.User, error)
}

// RequireSession accepts a bearer token or the session cookie, loads the
// user and rejects inactive accounts.
func RequireSession(m *Manager, users UserLoader) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := tokenFrom(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication credentials were not provided"})
			return
		}
		s, err := m.Resolve(c.Request.Context(), token)
		if errors.Is(err, ErrNoSession) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired session"})
			return
		}
		if err != nil {
			abortInternal(c, errors.Wrap(err, "resolve session"))
			return
		}
		u, err := users.GetUser(c.Request.Context(), s.UserID)
		if err != nil && !apperr.Is(err, apperr.KindNotFound) {
			abortInternal(c, errors.Wrap(err, "load session user"))
			return
		}
		if err != nil || !u.IsActive {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "user inactive or deleted"})
			return
		}
		c.Set(userKey, u)
		c.Set(sessionKey, s.ID)
		c.Set("user_id", u.ID)
		c.Next()
	}
}

// abortInternal records err on the context for the request logger and hides
// it from the client.
func abortInternal(c *gin.Context, err error) {
	_ = c.Error(err)
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
}

func tokenFrom(c *gin.Context) string {
	if authz := c.GetHeader("Authorization"); authz != "" {
		if len(authz) > len("bearer ") && strings.EqualFold(authz[:len("bearer ")], "bearer ") {
			return strings.TrimSpace(authz[len("bearer "):])
		}
		return ""
	}
	if ck, err := c.Cookie(CookieName); err == nil {
		return ck
	}
	return ""
}

// CurrentUser returns the user stored by RequireSession.
func CurrentUser(c *gin.Context) model.User {
	if v, ok := c.Get(userKey); ok {
		if u, ok := v.(model.User); ok {
			return u
		}
	}
	return model.User{}
}

func CurrentActor(c *gin.Context) policy.Actor {
	return policy.ActorFor(CurrentUser(c))
}

func CurrentSession(c *gin.Context) string {
	return c.GetString(sessionKey)
}
