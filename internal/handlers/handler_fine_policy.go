package handlers

import (
	"log/slog"
	"net/http"

	"github.com/SscSPs/book_lending_app/internal/core/domain"
	portssvc "github.com/SscSPs/book_lending_app/internal/core/ports/services"
	"github.com/SscSPs/book_lending_app/internal/dto"
	"github.com/SscSPs/book_lending_app/internal/middleware"
	"github.com/gin-gonic/gin"
)

type finePolicyHandler struct {
	policy portssvc.FinePolicySvc
}

// RegisterFinePolicyRoutes registers routes for the global fine policy.
func RegisterFinePolicyRoutes(rg *gin.RouterGroup, policy portssvc.FinePolicySvc) {
	h := &finePolicyHandler{policy: policy}
	rg.GET("/fine-policy", h.getPolicy)
	rg.PUT("/fine-policy", middleware.RequireRole(domain.RoleStaff), h.updatePolicy)
}

// getPolicy godoc
// @Summary Get the fine policy
// @Tags fine-policy
// @Produce json
// @Success 200 {object} dto.FinePolicyResponse
// @Security BearerAuth
// @Router /fine-policy [get]
func (h *finePolicyHandler) getPolicy(c *gin.Context) {
	p, err := h.policy.GetPolicy(c.Request.Context())
	if err != nil {
		respondError(c, err, "get fine policy")
		return
	}
	c.JSON(http.StatusOK, dto.FinePolicyResponse(*p))
}

// updatePolicy godoc
// @Summary Replace the fine policy
// @Description Applies to approvals made after the change; approved fines are never recomputed.
// @Tags fine-policy
// @Accept json
// @Produce json
// @Param policy body dto.UpdateFinePolicyRequest true "New policy"
// @Success 200 {object} dto.FinePolicyResponse
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Security BearerAuth
// @Router /fine-policy [put]
func (h *finePolicyHandler) updatePolicy(c *gin.Context) {
	var req dto.UpdateFinePolicyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err, "update fine policy")
		return
	}
	userID, ok := callerID(c)
	if !ok {
		return
	}

	p, err := h.policy.UpdatePolicy(c.Request.Context(), req, userID)
	if err != nil {
		respondError(c, err, "update fine policy")
		return
	}
	middleware.GetLoggerFromCtx(c.Request.Context()).Info("Fine policy updated", slog.String("updated_by", userID))
	c.JSON(http.StatusOK, dto.FinePolicyResponse(*p))
}
