package main

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taxlator-api/internal/handlers"
	"taxlator-api/internal/models"
	"taxlator-api/internal/services"
	"taxlator-api/pkg/lambda"
)

func newTaxHandler(t *testing.T) *handlers.TaxHandler {
	t.Helper()
	svc, err := services.NewTaxServiceForTables(models.DefaultRateTables(), nil, nil)
	require.NoError(t, err)
	return handlers.NewTaxHandler(svc, nil)
}

func TestRoute(t *testing.T) {
	h := newTaxHandler(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
	}{
		{"paye", http.MethodPost, "/api/tax/calculate", `{"taxType":"PAYE/PIT","grossIncome":3000000}`, http.StatusOK},
		{"trailing slash", http.MethodPost, "/api/tax/calculate/", `{"taxType":"PAYE/PIT","grossIncome":3000000}`, http.StatusOK},
		{"vat", http.MethodPost, "/api/vat/calculate", `{"transactionAmount":1075,"calculationType":"remove","transactionType":"Domestic sale/Purchase"}`, http.StatusOK},
		{"invalid input", http.MethodPost, "/api/tax/calculate", `{"taxType":"PAYE/PIT","grossIncome":0}`, http.StatusBadRequest},
		{"rates", http.MethodGet, "/api/tax/rates", "", http.StatusOK},
		{"history is not served", http.MethodGet, "/api/history", "", http.StatusNotFound},
		{"wrong method", http.MethodGet, "/api/tax/calculate", "", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := route(ctx, h, &lambda.Request{Method: tt.method, Path: tt.path, Body: []byte(tt.body)})
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode, string(resp.Body))
			assert.Equal(t, "application/json", resp.Headers["Content-Type"])

			var body map[string]interface{}
			require.NoError(t, json.Unmarshal(resp.Body, &body))
			assert.Equal(t, tt.status == http.StatusOK, body["success"])
		})
	}
}
