package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/snapq/snapq-go/internal/apperror"
)

// Handler adapts the Service's business logic to gin HTTP handlers.
type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperror.Abort(c, apperror.FromValidator(err))
		return
	}

	resp, err := h.service.Register(&req)
	if err != nil {
		apperror.Abort(c, err)
		return
	}
	c.JSON(http.StatusCreated, apperror.DataEnvelope(resp, nil))
}

func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperror.Abort(c, apperror.FromValidator(err))
		return
	}

	resp, err := h.service.Login(&req)
	if err != nil {
		apperror.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, apperror.DataEnvelope(resp, nil))
}

func (h *Handler) Refresh(c *gin.Context) {
	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperror.Abort(c, apperror.FromValidator(err))
		return
	}

	tokens, err := h.service.RefreshTokens(&req)
	if err != nil {
		apperror.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, apperror.DataEnvelope(tokens, nil))
}

func (h *Handler) Logout(c *gin.Context) {
	claims := c.MustGet("claims").(*Claims)

	if err := h.service.Logout(claims.UserID); err != nil {
		apperror.Abort(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) Me(c *gin.Context) {
	claims := c.MustGet("claims").(*Claims)

	user, err := h.service.GetUserByID(claims.UserID)
	if err != nil {
		apperror.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, apperror.DataEnvelope(user, nil))
}
