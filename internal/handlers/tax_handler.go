package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"taxlator-api/internal/middleware"
	"taxlator-api/internal/models"
	"taxlator-api/internal/services"
	"taxlator-api/pkg/lambda"
)

// TaxHandler handles the calculation endpoints
type TaxHandler struct {
	taxService  services.TaxCalculationService
	authService *middleware.AuthService
}

// NewTaxHandler creates a new tax handler. authService is only used by the
// serverless entry points, the gin routes rely on the auth middleware.
func NewTaxHandler(taxService services.TaxCalculationService, authService *middleware.AuthService) *TaxHandler {
	return &TaxHandler{
		taxService:  taxService,
		authService: authService,
	}
}

// @Summary Calculate tax
// @Description Compute PAYE/PIT, FREELANCER or CIT liability. The payload is selected by taxType.
// @Description Calculations of signed in users are added to their history.
// @Tags tax
// @Accept json
// @Produce json
// @Param input body models.PayeInput true "Calculation input (PayeInput, FreelancerInput or CITInput)"
// @Success 200 {object} SuccessResponse
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Security BearerAuth
// @Router /tax/calculate [post]
func (h *TaxHandler) Calculate(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		respondBindError(c, err)
		return
	}

	result, err := h.calculate(c.Request.Context(), middleware.GetUserID(c), body)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, success(result))
}

// @Summary Calculate VAT
// @Description Add VAT to a net amount or extract it from a gross amount
// @Tags vat
// @Accept json
// @Produce json
// @Param input body models.VATInput true "VAT input"
// @Success 200 {object} SuccessResponse
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Security BearerAuth
// @Router /vat/calculate [post]
func (h *TaxHandler) CalculateVAT(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		respondBindError(c, err)
		return
	}

	result, err := h.calculateVAT(c.Request.Context(), middleware.GetUserID(c), body)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, success(result))
}

// @Summary Get rates
// @Description Describe the active rate table version
// @Tags tax
// @Produce json
// @Success 200 {object} SuccessResponse
// @Router /tax/rates [get]
func (h *TaxHandler) GetRates(c *gin.Context) {
	c.JSON(http.StatusOK, success(h.taxService.GetRates(c.Request.Context())))
}

// HandleCalculate serves POST /api/tax/calculate outside of gin
func (h *TaxHandler) HandleCalculate(ctx context.Context, req *lambda.Request) (*lambda.Response, error) {
	result, err := h.calculate(ctx, h.requestUser(req), req.Body)
	if err != nil {
		status, body := classifyError(err)
		return jsonResponse(status, body), nil
	}
	return jsonResponse(http.StatusOK, success(result)), nil
}

// HandleCalculateVAT serves POST /api/vat/calculate outside of gin
func (h *TaxHandler) HandleCalculateVAT(ctx context.Context, req *lambda.Request) (*lambda.Response, error) {
	result, err := h.calculateVAT(ctx, h.requestUser(req), req.Body)
	if err != nil {
		status, body := classifyError(err)
		return jsonResponse(status, body), nil
	}
	return jsonResponse(http.StatusOK, success(result)), nil
}

// HandleRates serves GET /api/tax/rates outside of gin
func (h *TaxHandler) HandleRates(ctx context.Context, req *lambda.Request) (*lambda.Response, error) {
	return jsonResponse(http.StatusOK, success(h.taxService.GetRates(ctx))), nil
}

func (h *TaxHandler) calculate(ctx context.Context, userID string, body []byte) (models.CalculationResult, error) {
	input, err := models.DecodeCalculationInput(body)
	if err != nil {
		return nil, err
	}
	return h.taxService.CalculateTax(ctx, userID, input)
}

func (h *TaxHandler) calculateVAT(ctx context.Context, userID string, body []byte) (*models.VATResult, error) {
	var input models.VATInput
	if err := json.Unmarshal(body, &input); err != nil {
		return nil, models.NewInvalidInputError("body", nil, "does not match the VAT payload")
	}
	return h.taxService.CalculateVAT(ctx, userID, &input)
}

// requestUser resolves the optional bearer token of a serverless request.
// Invalid tokens are treated as guests, like OptionalAuthentication.
func (h *TaxHandler) requestUser(req *lambda.Request) string {
	if h.authService == nil {
		return ""
	}

	parts := strings.SplitN(req.Header("Authorization"), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}

	claims, err := h.authService.ValidateToken(strings.TrimSpace(parts[1]))
	if err != nil {
		return ""
	}
	return claims.UserID
}

func jsonResponse(status int, payload interface{}) *lambda.Response {
	body, err := json.Marshal(payload)
	if err != nil {
		status = http.StatusInternalServerError
		body = []byte(`{"success":false,"error":"Internal server error","message":"An internal error occurred"}`)
	}
	return lambda.JSONResponse(status, body)
}
