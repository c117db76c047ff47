package httpserver

import (
	"github.com/gin-gonic/gin"
	"github.com/gofrs/uuid/v5"
)

const (
	userIDKey   = "em.userID"
	rawTokenKey = "em.rawToken"
)

// setAuth stores the authenticated user ID and the presented token.
func setAuth(c *gin.Context, id uuid.UUID, rawToken string) {
	c.Set(userIDKey, id)
	c.Set(rawTokenKey, rawToken)
}

// userIDFrom fetches the authenticated user ID from the request context.
func userIDFrom(c *gin.Context) (uuid.UUID, bool) {
	v, ok := c.Get(userIDKey)
	if !ok {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok
}

// rawTokenFrom fetches the bearer token the request authenticated with.
func rawTokenFrom(c *gin.Context) (string, bool) {
	v, ok := c.Get(rawTokenKey)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}
