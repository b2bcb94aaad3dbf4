package middleware

import (
	"context"

	"github.com/SscSPs/book_lending_app/internal/core/domain"
	"github.com/gin-gonic/gin"
)

// userIDKey and roleKey store the authenticated borrower in the request context.
const (
	userIDKey = contextKey("userID")
	roleKey   = contextKey("role")
)

// WithIdentity returns a copy of ctx carrying the authenticated borrower.
func WithIdentity(ctx context.Context, userID string, role domain.BorrowerRole) context.Context {
	ctx = context.WithValue(ctx, userIDKey, userID)
	return context.WithValue(ctx, roleKey, role)
}

// GetUserIDFromContext retrieves the authenticated user ID from the request context.
// It returns the user ID and a boolean indicating if it was found.
func GetUserIDFromContext(c *gin.Context) (string, bool) {
	userID, ok := c.Request.Context().Value(userIDKey).(string)
	if !ok || userID == "" {
		return "", false
	}
	return userID, true
}

// GetRoleFromContext retrieves the authenticated role. Unauthenticated requests report RoleMember.
func GetRoleFromContext(c *gin.Context) domain.BorrowerRole {
	role, ok := c.Request.Context().Value(roleKey).(domain.BorrowerRole)
	if !ok {
		return domain.RoleMember
	}
	return role
}
