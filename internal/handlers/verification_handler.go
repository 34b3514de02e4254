package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"taxlator-api/internal/models"
	"taxlator-api/internal/services"
)

// VerificationHandler handles email verification requests
type VerificationHandler struct {
	verification services.EmailVerificationService
}

// NewVerificationHandler creates a new email verification handler
func NewVerificationHandler(verification services.EmailVerificationService) *VerificationHandler {
	return &VerificationHandler{verification: verification}
}

// @Summary Send verification code
// @Description Email a six digit verification code. Unknown addresses get
// @Description the same answer as registered ones.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body models.SendVerificationCodeRequest true "Address to verify"
// @Success 200 {object} SuccessResponse
// @Failure 400 {object} ErrorResponse
// @Failure 429 {object} ErrorResponse
// @Failure 502 {object} ErrorResponse
// @Router /auth/sendVerificationCode [post]
func (h *VerificationHandler) SendVerificationCode(c *gin.Context) {
	var req models.SendVerificationCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	status, err := h.verification.SendCode(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, success(status))
}

// @Summary Verify email
// @Description Redeem a verification code and mark the address as verified
// @Tags auth
// @Accept json
// @Produce json
// @Param request body models.VerifyEmailRequest true "Address and code"
// @Success 200 {object} SuccessResponse
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /auth/verifyEmail [post]
func (h *VerificationHandler) VerifyEmail(c *gin.Context) {
	var req models.VerifyEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	status, err := h.verification.VerifyEmail(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, success(status))
}
