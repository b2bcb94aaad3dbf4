package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/SscSPs/book_lending_app/internal/apperrors"
	"github.com/SscSPs/book_lending_app/internal/middleware"
	"github.com/SscSPs/book_lending_app/internal/utils/readcache"
	"github.com/SscSPs/book_lending_app/internal/utils/retry"
	"github.com/gin-gonic/gin"
)

// ErrorResponse is the error body of every handler. Expected and Actual are set
// for rejected state transitions.
type ErrorResponse struct {
	Error    string   `json:"error"`
	Expected []string `json:"expected,omitempty"`
	Actual   string   `json:"actual,omitempty"`
}

// retrier re-runs service calls that failed with apperrors.ErrTransient.
type retrier struct {
	options []retry.Option
}

func newRetrier(maxAttempts int) retrier {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return retrier{options: []retry.Option{retry.WithMaxAttempts(maxAttempts)}}
}

// do gives every attempt its own read cache so nothing read by a failed
// attempt is reused.
func (r retrier) do(c *gin.Context, fn retry.Func) error {
	return retry.Do(c.Request.Context(), func(ctx context.Context) error {
		if readcache.FromContext(ctx) != nil {
			ctx = readcache.WithCache(ctx, readcache.New())
		}
		return fn(ctx)
	}, r.options...)
}

// respondError maps a service error onto an HTTP status. action names the
// operation in logs and in the 500 message.
func respondError(c *gin.Context, err error, action string) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context()).With(slog.String("action", action))

	var stateErr *apperrors.StateError
	switch {
	case errors.As(err, &stateErr):
		logger.Warn("Rejected state transition", slog.String("error", err.Error()))
		c.JSON(http.StatusConflict, ErrorResponse{Error: err.Error(), Expected: stateErr.Expected, Actual: stateErr.Actual})
	case errors.Is(err, apperrors.ErrValidation):
		logger.Warn("Validation error", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	case errors.Is(err, apperrors.ErrConflict):
		logger.Warn("Conflict", slog.String("error", err.Error()))
		c.JSON(http.StatusConflict, ErrorResponse{Error: apperrors.ErrConflict.Error()})
	case errors.Is(err, apperrors.ErrOutOfStock):
		logger.Warn("Out of stock", slog.String("error", err.Error()))
		c.JSON(http.StatusConflict, ErrorResponse{Error: apperrors.ErrOutOfStock.Error()})
	case errors.Is(err, apperrors.ErrNotFound):
		logger.Warn("Not found", slog.String("error", err.Error()))
		c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})
	case errors.Is(err, apperrors.ErrForbidden):
		logger.Warn("Forbidden", slog.String("error", err.Error()))
		c.JSON(http.StatusForbidden, ErrorResponse{Error: apperrors.ErrForbidden.Error()})
	case errors.Is(err, apperrors.ErrTransient), errors.Is(err, context.DeadlineExceeded):
		logger.Error("Transient failure after retries", slog.String("error", err.Error()))
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "temporarily unavailable, please retry"})
	default:
		logger.Error("Unexpected error", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to " + action})
	}
}

// bindError answers a malformed request body or query.
func bindError(c *gin.Context, err error, action string) {
	middleware.GetLoggerFromCtx(c.Request.Context()).Warn("Failed to bind request",
		slog.String("action", action), slog.String("error", err.Error()))
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request format: " + err.Error()})
}

// callerID returns the authenticated borrower or answers 401.
func callerID(c *gin.Context) (string, bool) {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		middleware.GetLoggerFromCtx(c.Request.Context()).Error("User ID not found in context")
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized"})
		return "", false
	}
	return userID, true
}
