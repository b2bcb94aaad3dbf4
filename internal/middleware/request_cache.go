package middleware

import (
	"github.com/SscSPs/book_lending_app/internal/utils/readcache"
	"github.com/gin-gonic/gin"
)

// RequestCache attaches a fresh read-through cache to every request.
func RequestCache() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request = c.Request.WithContext(readcache.WithCache(c.Request.Context(), readcache.New()))
		c.Next()
	}
}
