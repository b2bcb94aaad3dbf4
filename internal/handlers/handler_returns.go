package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/SscSPs/book_lending_app/internal/apperrors"
	"github.com/SscSPs/book_lending_app/internal/core/domain"
	portssvc "github.com/SscSPs/book_lending_app/internal/core/ports/services"
	"github.com/SscSPs/book_lending_app/internal/dto"
	"github.com/SscSPs/book_lending_app/internal/middleware"
	"github.com/gin-gonic/gin"
)

// returnHandler handles the return workflow.
type returnHandler struct {
	returns portssvc.ReturnWorkflowSvc
	ledger  portssvc.BorrowingReaderSvc
	retry   retrier
	now     func() time.Time
}

func newReturnHandler(returns portssvc.ReturnWorkflowSvc, ledger portssvc.BorrowingReaderSvc, r retrier) *returnHandler {
	return &returnHandler{returns: returns, ledger: ledger, retry: r, now: time.Now}
}

// RegisterReturnRoutes registers the return workflow routes.
func RegisterReturnRoutes(rg *gin.RouterGroup, returns portssvc.ReturnWorkflowSvc, ledger portssvc.BorrowingReaderSvc, maxAttempts int) {
	h := newReturnHandler(returns, ledger, newRetrier(maxAttempts))
	staff := middleware.RequireRole(domain.RoleStaff)

	borrowing := rg.Group("/borrowings/:borrowingID")
	{
		borrowing.POST("/return-request", h.requestReturn)
		borrowing.POST("/approve", staff, h.approveReturn)
		borrowing.POST("/reject", staff, h.rejectReturn)
		borrowing.POST("/pay", staff, h.payFine)
		borrowing.POST("/return", staff, h.directReturn)
	}
	rg.GET("/returns/pending", staff, h.listPending)
}

// transitionFunc is one return workflow operation.
type transitionFunc func(ctx context.Context, borrowingID string) (*domain.Borrowing, error)

func (h *returnHandler) runTransition(c *gin.Context, action string, fn transitionFunc) {
	borrowingID := c.Param("borrowingID")
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	logger.Info("Received return workflow request", slog.String("action", action), slog.String("borrowing_id", borrowingID))

	var updated *domain.Borrowing
	err := h.retry.do(c, func(ctx context.Context) error {
		var err error
		updated, err = fn(ctx, borrowingID)
		return err
	})
	if err != nil {
		respondError(c, err, action)
		return
	}
	c.JSON(http.StatusOK, dto.ToBorrowingResponse(updated, h.now()))
}

// requestReturn godoc
// @Summary Request to return a borrowed copy
// @Description Only the borrower (or staff) may request the return. ACTIVE -> RETURN_REQUESTED.
// @Tags returns
// @Produce json
// @Param borrowingID path string true "Borrowing ID"
// @Success 200 {object} dto.BorrowingResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse "Wrong status"
// @Security BearerAuth
// @Router /borrowings/{borrowingID}/return-request [post]
func (h *returnHandler) requestReturn(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	if middleware.GetRoleFromContext(c) != domain.RoleStaff {
		b, err := h.ledger.GetBorrowing(c.Request.Context(), c.Param("borrowingID"))
		if err != nil {
			respondError(c, err, "request return")
			return
		}
		if b.BorrowerID != userID {
			respondError(c, apperrors.ErrForbidden, "request return")
			return
		}
	}
	h.runTransition(c, "request return", h.returns.RequestReturn)
}

// approveReturn godoc
// @Summary Approve a return request
// @Description Classifies damage and freezes the itemized fine. RETURN_REQUESTED -> RETURN_APPROVED.
// @Tags returns
// @Accept json
// @Produce json
// @Param borrowingID path string true "Borrowing ID"
// @Param approval body dto.ApproveReturnRequest true "Damage assessment"
// @Success 200 {object} dto.BorrowingResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse "Wrong status"
// @Security BearerAuth
// @Router /borrowings/{borrowingID}/approve [post]
func (h *returnHandler) approveReturn(c *gin.Context) {
	var req dto.ApproveReturnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err, "approve return")
		return
	}
	h.runTransition(c, "approve return", func(ctx context.Context, borrowingID string) (*domain.Borrowing, error) {
		return h.returns.ApproveReturn(ctx, borrowingID, req)
	})
}

// rejectReturn godoc
// @Summary Reject a return request
// @Description RETURN_REQUESTED -> ACTIVE.
// @Tags returns
// @Produce json
// @Param borrowingID path string true "Borrowing ID"
// @Success 200 {object} dto.BorrowingResponse
// @Failure 409 {object} ErrorResponse "Wrong status"
// @Security BearerAuth
// @Router /borrowings/{borrowingID}/reject [post]
func (h *returnHandler) rejectReturn(c *gin.Context) {
	h.runTransition(c, "reject return", h.returns.RejectReturn)
}

// payFine godoc
// @Summary Record fine payment
// @Description Settles the fine, returns the copy to the shelf. RETURN_APPROVED -> RETURNED.
// @Tags returns
// @Produce json
// @Param borrowingID path string true "Borrowing ID"
// @Success 200 {object} dto.BorrowingResponse
// @Failure 409 {object} ErrorResponse "Wrong status"
// @Security BearerAuth
// @Router /borrowings/{borrowingID}/pay [post]
func (h *returnHandler) payFine(c *gin.Context) {
	h.runTransition(c, "pay fine", h.returns.PayFine)
}

// directReturn godoc
// @Summary Return without the request/approval flow
// @Description ACTIVE -> RETURNED, no fine.
// @Tags returns
// @Produce json
// @Param borrowingID path string true "Borrowing ID"
// @Success 200 {object} dto.BorrowingResponse
// @Failure 409 {object} ErrorResponse "Wrong status"
// @Security BearerAuth
// @Router /borrowings/{borrowingID}/return [post]
func (h *returnHandler) directReturn(c *gin.Context) {
	h.runTransition(c, "direct return", h.returns.DirectReturn)
}

// listPending godoc
// @Summary List pending return requests
// @Description Oldest request first.
// @Tags returns
// @Produce json
// @Success 200 {array} dto.BorrowingResponse
// @Security BearerAuth
// @Router /returns/pending [get]
func (h *returnHandler) listPending(c *gin.Context) {
	list, err := h.returns.ListPendingReturnRequests(c.Request.Context())
	if err != nil {
		respondError(c, err, "list pending return requests")
		return
	}
	c.JSON(http.StatusOK, dto.ToBorrowingResponses(list, h.now()))
}
