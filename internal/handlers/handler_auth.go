package handlers

import (
	"log/slog"
	"net/http"
	"time"

	portssvc "github.com/SscSPs/book_lending_app/internal/core/ports/services"
	"github.com/SscSPs/book_lending_app/internal/dto"
	"github.com/SscSPs/book_lending_app/internal/middleware"
	"github.com/SscSPs/book_lending_app/internal/platform/config"
	"github.com/SscSPs/book_lending_app/internal/utils"
	"github.com/gin-gonic/gin"
)

// loginRateLimit bounds token requests per client IP.
const loginRateLimit = "5-M"

// AuthHandler issues tokens for directory users. There are no passwords; the
// route only exists outside production.
type AuthHandler struct {
	directory   portssvc.DirectorySvc
	jwtSecret   string
	jwtDuration time.Duration
	jwtIssuer   string
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(directory portssvc.DirectorySvc, cfg *config.Config) *AuthHandler {
	return &AuthHandler{
		directory:   directory,
		jwtSecret:   cfg.JWTSecret,
		jwtDuration: cfg.JWTExpiryDuration,
		jwtIssuer:   cfg.JWTIssuer,
	}
}

func registerAuthRoutes(r *gin.Engine, cfg *config.Config, directory portssvc.DirectorySvc) error {
	if cfg.IsProduction {
		return nil
	}
	h := NewAuthHandler(directory, cfg)

	ipLimiter, err := middleware.NewRateLimiter(loginRateLimit)
	if err != nil {
		return err
	}

	auth := r.Group("/api/v1/auth")
	auth.POST("/token", middleware.GinMiddlewarize(ipLimiter), middleware.RequestCache(), h.Token)
	return nil
}

// Token godoc
// @Summary Issue a token for a directory user
// @Description Development login: returns a JWT carrying the borrower's directory role.
// @Tags auth
// @Accept json
// @Produce json
// @Param login body dto.TokenRequest true "Borrower to log in as"
// @Success 200 {object} dto.LoginResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 429 {object} ErrorResponse
// @Router /auth/token [post]
func (h *AuthHandler) Token(c *gin.Context) {
	var req dto.TokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err, "issue token")
		return
	}

	borrower, err := h.directory.GetBorrower(c.Request.Context(), req.BorrowerID)
	if err != nil {
		respondError(c, err, "issue token")
		return
	}

	token, expiresAt, err := utils.GenerateJWT(borrower.BorrowerID, string(borrower.Role), h.jwtSecret, h.jwtDuration, h.jwtIssuer)
	if err != nil {
		respondError(c, err, "issue token")
		return
	}

	middleware.GetLoggerFromCtx(c.Request.Context()).Info("Issued token",
		slog.String("borrower_id", borrower.BorrowerID), slog.String("role", string(borrower.Role)))
	c.JSON(http.StatusOK, dto.LoginResponse{Token: token, Role: string(borrower.Role), ExpiresAt: expiresAt})
}
