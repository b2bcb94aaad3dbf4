package middleware

import (
	"log/slog"
	"net/http"

	portsrepo "github.com/SscSPs/book_lending_app/internal/core/ports/repositories"
	"github.com/gin-gonic/gin"
)

// IdempotencyKeyHeader carries the client-chosen key of a retried write.
const IdempotencyKeyHeader = "Idempotency-Key"

// Idempotency rejects a second request carrying an already accepted Idempotency-Key.
// Keys are scoped to the authenticated caller. A request that fails releases its key.
// Requests without the header pass through.
func Idempotency(store portsrepo.IdempotencyStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader(IdempotencyKeyHeader)
		if key == "" {
			c.Next()
			return
		}

		logger := GetLoggerFromCtx(c.Request.Context())
		userID, _ := GetUserIDFromContext(c)
		scoped := userID + ":" + key

		claimed, err := store.SetIdempotency(c.Request.Context(), scoped)
		if err != nil {
			logger.Error("Failed to claim idempotency key", slog.String("error", err.Error()))
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "idempotency store unavailable"})
			return
		}
		if !claimed {
			logger.Warn("Duplicate request rejected", slog.String("idempotency_key", key))
			c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "duplicate request"})
			return
		}

		c.Next()

		if c.Writer.Status() >= http.StatusBadRequest {
			if err := store.ReleaseIdempotency(c.Request.Context(), scoped); err != nil {
				logger.Error("Failed to release idempotency key", slog.String("error", err.Error()))
			}
		}
	}
}
