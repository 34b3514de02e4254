package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"taxlator-api/internal/middleware"
	"taxlator-api/internal/models"
	"taxlator-api/internal/services"
)

// AuthHandler handles account and token requests
type AuthHandler struct {
	accounts     services.AccountService
	tokens       *middleware.AuthService
	secureCookie bool
}

// NewAuthHandler creates a new authentication handler. secureCookie marks
// the token cookie as HTTPS only.
func NewAuthHandler(accounts services.AccountService, tokens *middleware.AuthService, secureCookie bool) *AuthHandler {
	return &AuthHandler{
		accounts:     accounts,
		tokens:       tokens,
		secureCookie: secureCookie,
	}
}

// TokenRequest carries a token in the request body
type TokenRequest struct {
	Token string `json:"token" binding:"required"`
}

// @Summary Sign up
// @Description Create an account and return a JWT token
// @Tags auth
// @Accept json
// @Produce json
// @Param account body models.SignUpRequest true "Account data"
// @Success 201 {object} SuccessResponse
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /auth/signup [post]
func (h *AuthHandler) SignUp(c *gin.Context) {
	var req models.SignUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	result, err := h.accounts.SignUp(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	h.setTokenCookie(c, result.Token, result.ExpiresAt)
	c.JSON(http.StatusCreated, success(result))
}

// @Summary Sign in
// @Description Authenticate with email and password and return a JWT token
// @Tags auth
// @Accept json
// @Produce json
// @Param credentials body models.SignInRequest true "Credentials"
// @Success 200 {object} SuccessResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /auth/signin [post]
func (h *AuthHandler) SignIn(c *gin.Context) {
	var req models.SignInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	result, err := h.accounts.SignIn(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	h.setTokenCookie(c, result.Token, result.ExpiresAt)
	c.JSON(http.StatusOK, success(result))
}

// @Summary Refresh token
// @Description Exchange a valid token for a new one. The token is read from
// @Description the body, the Authorization header or the token cookie.
// @Tags auth
// @Accept json
// @Produce json
// @Param token body TokenRequest false "Token to refresh"
// @Success 200 {object} SuccessResponse
// @Failure 401 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /auth/refresh [post]
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req TokenRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBindError(c, err)
			return
		}
	}

	token := req.Token
	if token == "" {
		extracted, err := middleware.ExtractToken(c)
		if err != nil {
			c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized", Message: err.Error()})
			return
		}
		token = extracted
	}

	result, err := h.accounts.Refresh(c.Request.Context(), token)
	if err != nil {
		respondError(c, err)
		return
	}

	h.setTokenCookie(c, result.Token, result.ExpiresAt)
	c.JSON(http.StatusOK, success(result))
}

// @Summary Validate token
// @Description Report whether a token is valid and who it belongs to
// @Tags auth
// @Accept json
// @Produce json
// @Param token body TokenRequest true "Token to validate"
// @Success 200 {object} SuccessResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Router /auth/validate [post]
func (h *AuthHandler) ValidateToken(c *gin.Context) {
	var req TokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	claims, err := h.tokens.ValidateToken(req.Token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error:   "Invalid or expired token",
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, success(gin.H{
		"valid":     true,
		"userId":    claims.UserID,
		"email":     claims.Email,
		"role":      claims.Role,
		"expiresAt": claims.ExpiresAt.Time,
	}))
}

// @Summary Sign out
// @Description Clear the token cookie. Tokens are stateless and stay valid until they expire.
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} SuccessResponse
// @Failure 401 {object} ErrorResponse
// @Router /auth/signout [post]
func (h *AuthHandler) SignOut(c *gin.Context) {
	logrus.WithFields(logrus.Fields{
		"user_id":    middleware.GetUserID(c),
		"request_id": c.GetString(middleware.RequestIDKey),
	}).Info("User signed out")

	h.clearTokenCookie(c)
	c.JSON(http.StatusOK, success(gin.H{"message": "Signed out successfully"}))
}

// @Summary Current user
// @Description Get the account of the authenticated user
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} SuccessResponse
// @Failure 401 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	user, err := h.accounts.GetUser(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, success(user))
}

func (h *AuthHandler) setTokenCookie(c *gin.Context, token string, expiresAt time.Time) {
	maxAge := int(time.Until(expiresAt).Seconds())
	if maxAge < 1 {
		maxAge = 1
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.TokenCookieName, token, maxAge, "/", "", h.secureCookie, true)
}

func (h *AuthHandler) clearTokenCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.TokenCookieName, "", -1, "/", "", h.secureCookie, true)
}
