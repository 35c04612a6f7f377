package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/netraseva/intake-api/internal/handler"
	"github.com/netraseva/intake-api/internal/model"
	"github.com/netraseva/intake-api/internal/service/auth"
	apperrors "github.com/netraseva/intake-api/pkg/errors"
)

type Handler struct {
	svc *auth.Service
}

func NewHandler(svc *auth.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	group := r.Group("/auth")
	{
		group.POST("/register", h.Register)
		group.POST("/login", h.Login)
	}
}

// RegisterAdminRoutes mounts the approval surface; the router wraps it in
// the admin-role middleware.
func (h *Handler) RegisterAdminRoutes(r *gin.RouterGroup) {
	group := r.Group("/auth")
	{
		group.GET("/pending-users", h.ListPendingApprovals)
		group.PUT("/approve-user/:id/:role", h.ApproveUser)
	}
}

func (h *Handler) Register(c *gin.Context) {
	var req model.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	account, err := h.svc.Register(c.Request.Context(), &req)
	if err != nil {
		c.JSON(handler.StatusFromError(err), handler.NewErrorResponse(err.Error()))
		return
	}

	c.JSON(http.StatusCreated, handler.NewSuccessResponse(gin.H{
		"account_id": account.ID,
	}))
}

func (h *Handler) Login(c *gin.Context) {
	var req model.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	tokens, err := h.svc.Login(c.Request.Context(), req.Email, req.Password, req.Role)
	if err != nil {
		// Bad credentials come back as 400 per the client contract; an
		// unapproved role stays 403 so the two are distinguishable.
		if apperrors.CodeOf(err) == apperrors.ErrUnauthorized {
			c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid credentials"))
			return
		}
		c.JSON(handler.StatusFromError(err), handler.NewErrorResponse(err.Error()))
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(tokens))
}

func (h *Handler) ListPendingApprovals(c *gin.Context) {
	pending, err := h.svc.ListPendingApprovals(c.Request.Context())
	if err != nil {
		c.JSON(handler.StatusFromError(err), handler.NewErrorResponse(err.Error()))
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(pending))
}

func (h *Handler) ApproveUser(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid account ID"))
		return
	}

	role := model.Role(c.Param("role"))
	if !role.Valid() {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid role"))
		return
	}

	if err := h.svc.Approve(c.Request.Context(), id, role); err != nil {
		c.JSON(handler.StatusFromError(err), handler.NewErrorResponse(err.Error()))
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{
		"message": "role approved",
	}))
}
