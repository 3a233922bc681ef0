package rest

import (
	"time"

	"github.com/dmitrijs2005/folio/internal/common"
	"github.com/dmitrijs2005/folio/internal/logging"
	"github.com/dmitrijs2005/folio/internal/server/auth"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	requestIDHeader = "X-Request-ID"
	identityKey     = "identity"
)

func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Header(requestIDHeader, id)
		c.Set(requestIDHeader, id)
		c.Next()
	}
}

// requestLogger logs one line per request. Headers and bodies are never
// logged since they carry tokens and passwords.
func requestLogger(l logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		args := []any{
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"latency", time.Since(start),
			"request_id", c.GetString(requestIDHeader),
		}
		if id, ok := identityOf(c); ok {
			args = append(args, "user_id", id.ID)
		}
		l.Info(c.Request.Context(), "request", args...)
	}
}

// requireGuard runs g on the Authorization header and aborts on rejection.
// On success the identity is stored on both the gin and request contexts.
func requireGuard(g Guard) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, identity, err := g.Check(c.Request.Context(), c.GetHeader(common.AuthorizationHeaderName))
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.Request = c.Request.WithContext(ctx)
		c.Set(identityKey, identity)
		c.Next()
	}
}

func identityOf(c *gin.Context) (auth.Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return auth.Identity{}, false
	}
	id, ok := v.(auth.Identity)
	return id, ok
}
