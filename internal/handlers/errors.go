package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"taxlator-api/internal/middleware"
	"taxlator-api/internal/models"
	"taxlator-api/internal/repositories"
	"taxlator-api/internal/services"
)

// ErrorResponse represents a standard error response
type ErrorResponse struct {
	Success          bool                         `json:"success"`
	Error            string                       `json:"error"`
	Message          string                       `json:"message"`
	Field            string                       `json:"field,omitempty"`
	Value            interface{}                  `json:"value,omitempty"`
	ValidationErrors []middleware.ValidationError `json:"validation_errors,omitempty"`
}

// SuccessResponse wraps the payload of a successful call
type SuccessResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data"`
}

func success(data interface{}) SuccessResponse {
	return SuccessResponse{Success: true, Data: data}
}

// classifyError maps a service error to a status code and a response body
func classifyError(err error) (int, ErrorResponse) {
	var invalid *models.InvalidInputError
	if errors.As(err, &invalid) {
		return http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid input",
			Message: invalid.Error(),
			Field:   invalid.Field,
			Value:   invalid.Value,
		}
	}

	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		return http.StatusBadRequest, ErrorResponse{
			Error:            "Validation failed",
			Message:          "Request validation failed",
			ValidationErrors: middleware.FormatValidationErrors(validationErrors),
		}
	}

	switch {
	case errors.Is(err, services.ErrEmailTaken):
		return http.StatusConflict, ErrorResponse{Error: "Conflict", Message: err.Error()}
	case errors.Is(err, services.ErrInvalidCredentials):
		return http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized", Message: err.Error()}
	case errors.Is(err, services.ErrInvalidVerificationCode):
		return http.StatusBadRequest, ErrorResponse{Error: "Invalid code", Message: err.Error(), Field: "code"}
	case errors.Is(err, services.ErrVerificationThrottled):
		return http.StatusTooManyRequests, ErrorResponse{Error: "Too many requests", Message: err.Error()}
	case errors.Is(err, services.ErrEmailDelivery):
		return http.StatusBadGateway, ErrorResponse{Error: "Email delivery failed", Message: services.ErrEmailDelivery.Error()}
	case repositories.IsNotFound(err):
		return http.StatusNotFound, ErrorResponse{Error: "Not found", Message: "The requested resource does not exist"}
	case models.IsUnknownRateKey(err):
		return http.StatusInternalServerError, ErrorResponse{Error: "Configuration error", Message: "The active rate tables are incomplete"}
	}

	return http.StatusInternalServerError, ErrorResponse{Error: "Internal server error", Message: "An internal error occurred"}
}

// respondError writes the response for err. Server side failures are also
// attached to the context so the error tracker logs them.
func respondError(c *gin.Context, err error) {
	status, body := classifyError(err)
	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
	} else {
		logrus.WithFields(logrus.Fields{
			"request_id": c.GetString(middleware.RequestIDKey),
			"path":       c.Request.URL.Path,
			"status":     status,
			"error":      err.Error(),
		}).Debug("Request rejected")
	}
	c.JSON(status, body)
}

// respondBindError reports a body that could not be bound
func respondBindError(c *gin.Context, err error) {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusBadRequest, ErrorResponse{
		Error:   "Invalid request body",
		Message: err.Error(),
	})
}
