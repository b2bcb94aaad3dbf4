package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/SscSPs/book_lending_app/internal/apperrors"
	"github.com/SscSPs/book_lending_app/internal/core/domain"
	portsrepo "github.com/SscSPs/book_lending_app/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/book_lending_app/internal/core/ports/services"
	"github.com/SscSPs/book_lending_app/internal/dto"
	"github.com/SscSPs/book_lending_app/internal/middleware"
	"github.com/gin-gonic/gin"
)

// borrowingHandler handles HTTP requests on the borrowing ledger.
type borrowingHandler struct {
	ledger portssvc.LedgerSvcFacade
	retry  retrier
	now    func() time.Time
}

func newBorrowingHandler(ledger portssvc.LedgerSvcFacade, r retrier) *borrowingHandler {
	return &borrowingHandler{ledger: ledger, retry: r, now: time.Now}
}

// RegisterBorrowingRoutes registers ledger routes. idempotency may be nil.
func RegisterBorrowingRoutes(rg *gin.RouterGroup, ledger portssvc.LedgerSvcFacade, idempotency portsrepo.IdempotencyStore, maxAttempts int) {
	h := newBorrowingHandler(ledger, newRetrier(maxAttempts))
	staff := middleware.RequireRole(domain.RoleStaff)

	create := []gin.HandlerFunc{h.createBorrowing}
	if idempotency != nil {
		create = append([]gin.HandlerFunc{middleware.Idempotency(idempotency)}, create...)
	}

	borrowings := rg.Group("/borrowings")
	{
		borrowings.POST("", create...)
		borrowings.GET("", staff, h.listBorrowings)
		borrowings.GET("/me", h.listMyBorrowings)
		borrowings.GET("/overdue", staff, h.listOverdueBorrowings)
		borrowings.GET("/:borrowingID", h.getBorrowing)
	}
	rg.GET("/borrowers/:borrowerID/borrowings", staff, h.listBorrowingsForBorrower)
	rg.GET("/items/:itemID/open-borrowings", staff, h.countOpenBorrowings)
}

// createBorrowing godoc
// @Summary Borrow a copy
// @Description Members borrow for themselves; staff may borrow on behalf of a borrower.
// @Tags borrowings
// @Accept json
// @Produce json
// @Param Idempotency-Key header string false "Client-chosen key; a repeated key is rejected"
// @Param borrowing body dto.CreateBorrowingRequest true "Borrowing details"
// @Success 201 {object} dto.BorrowingResponse
// @Failure 400 {object} ErrorResponse "Validation error"
// @Failure 403 {object} ErrorResponse "Borrowing for someone else"
// @Failure 404 {object} ErrorResponse "Item, borrower or group not found"
// @Failure 409 {object} ErrorResponse "Already borrowed or out of stock"
// @Failure 503 {object} ErrorResponse "Contention, retry"
// @Security BearerAuth
// @Router /borrowings [post]
func (h *borrowingHandler) createBorrowing(c *gin.Context) {
	var req dto.CreateBorrowingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err, "create borrowing")
		return
	}
	userID, ok := callerID(c)
	if !ok {
		return
	}

	if middleware.GetRoleFromContext(c) != domain.RoleStaff {
		if req.BorrowerID != "" && req.BorrowerID != userID {
			respondError(c, fmt.Errorf("members can only borrow for themselves: %w", apperrors.ErrForbidden), "create borrowing")
			return
		}
		req.BorrowerID = userID
	} else if req.BorrowerID == "" {
		req.BorrowerID = userID
	}

	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	logger.Info("Received request to create borrowing",
		slog.String("item_id", req.ItemID), slog.String("borrower_id", req.BorrowerID), slog.String("mode", req.Mode))

	var created *domain.Borrowing
	err := h.retry.do(c, func(ctx context.Context) error {
		var err error
		created, err = h.ledger.CreateBorrowing(ctx, req)
		return err
	})
	if err != nil {
		respondError(c, err, "create borrowing")
		return
	}

	c.JSON(http.StatusCreated, dto.ToBorrowingResponse(created, h.now()))
}

// getBorrowing godoc
// @Summary Get a borrowing
// @Description Members can read their own borrowings; staff can read any.
// @Tags borrowings
// @Produce json
// @Param borrowingID path string true "Borrowing ID"
// @Success 200 {object} dto.BorrowingResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Security BearerAuth
// @Router /borrowings/{borrowingID} [get]
func (h *borrowingHandler) getBorrowing(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	b, err := h.ledger.GetBorrowing(c.Request.Context(), c.Param("borrowingID"))
	if err != nil {
		respondError(c, err, "get borrowing")
		return
	}
	if b.BorrowerID != userID && middleware.GetRoleFromContext(c) != domain.RoleStaff {
		respondError(c, apperrors.ErrForbidden, "get borrowing")
		return
	}
	c.JSON(http.StatusOK, dto.ToBorrowingResponse(b, h.now()))
}

// listMyBorrowings godoc
// @Summary List my borrowings
// @Tags borrowings
// @Produce json
// @Success 200 {array} dto.BorrowingResponse
// @Security BearerAuth
// @Router /borrowings/me [get]
func (h *borrowingHandler) listMyBorrowings(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	h.respondBorrowerList(c, userID)
}

// listBorrowingsForBorrower godoc
// @Summary List a borrower's borrowings
// @Tags borrowings
// @Produce json
// @Param borrowerID path string true "Borrower ID"
// @Success 200 {array} dto.BorrowingResponse
// @Failure 403 {object} ErrorResponse
// @Security BearerAuth
// @Router /borrowers/{borrowerID}/borrowings [get]
func (h *borrowingHandler) listBorrowingsForBorrower(c *gin.Context) {
	h.respondBorrowerList(c, c.Param("borrowerID"))
}

func (h *borrowingHandler) respondBorrowerList(c *gin.Context, borrowerID string) {
	list, err := h.ledger.GetBorrowingsForBorrower(c.Request.Context(), borrowerID)
	if err != nil {
		respondError(c, err, "list borrowings")
		return
	}
	c.JSON(http.StatusOK, dto.ToBorrowingResponses(list, h.now()))
}

// listBorrowings godoc
// @Summary List all borrowings
// @Description Newest first.
// @Tags borrowings
// @Produce json
// @Param limit query int false "Page size" default(50)
// @Param offset query int false "Offset" default(0)
// @Success 200 {array} dto.BorrowingResponse
// @Failure 400 {object} ErrorResponse
// @Security BearerAuth
// @Router /borrowings [get]
func (h *borrowingHandler) listBorrowings(c *gin.Context) {
	var params dto.ListBorrowingsParams
	if err := c.ShouldBindQuery(&params); err != nil {
		bindError(c, err, "list borrowings")
		return
	}
	list, err := h.ledger.ListBorrowings(c.Request.Context(), params)
	if err != nil {
		respondError(c, err, "list borrowings")
		return
	}
	c.JSON(http.StatusOK, dto.ToBorrowingResponses(list, h.now()))
}

// listOverdueBorrowings godoc
// @Summary List overdue borrowings
// @Description Open borrowings past their due date, oldest due first.
// @Tags borrowings
// @Produce json
// @Success 200 {array} dto.BorrowingResponse
// @Security BearerAuth
// @Router /borrowings/overdue [get]
func (h *borrowingHandler) listOverdueBorrowings(c *gin.Context) {
	list, err := h.ledger.ListOverdueBorrowings(c.Request.Context())
	if err != nil {
		respondError(c, err, "list overdue borrowings")
		return
	}
	c.JSON(http.StatusOK, dto.ToBorrowingResponses(list, h.now()))
}

// countOpenBorrowings godoc
// @Summary Count open borrowings of an item
// @Description The catalog refuses to delete an item while this is non-zero.
// @Tags items
// @Produce json
// @Param itemID path string true "Item ID"
// @Success 200 {object} dto.OpenBorrowingsResponse
// @Security BearerAuth
// @Router /items/{itemID}/open-borrowings [get]
func (h *borrowingHandler) countOpenBorrowings(c *gin.Context) {
	itemID := c.Param("itemID")
	n, err := h.ledger.CountOpenBorrowingsForItem(c.Request.Context(), itemID)
	if err != nil {
		respondError(c, err, "count open borrowings")
		return
	}
	c.JSON(http.StatusOK, dto.OpenBorrowingsResponse{ItemID: itemID, Open: n})
}
