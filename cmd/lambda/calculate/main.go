package main

import (
	"context"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	awslambda "github.com/aws/aws-lambda-go/lambda"
	"github.com/sirupsen/logrus"

	"taxlator-api/internal/handlers"
	"taxlator-api/pkg/lambda"
)

const internalErrorBody = `{"success":false,"error":"Internal server error","message":"An internal error occurred"}`

func handler(ctx context.Context, event events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	container, err := lambda.GetConnectionManager().GetContainer(ctx)
	if err != nil {
		logrus.WithError(err).Error("Failed to initialize container")
		return events.APIGatewayProxyResponse{
			StatusCode: http.StatusInternalServerError,
			Headers:    map[string]string{"Content-Type": "application/json"},
			Body:       internalErrorBody,
		}, nil
	}

	req := &lambda.Request{
		Method:  event.HTTPMethod,
		Path:    event.Path,
		Headers: event.Headers,
		Body:    []byte(event.Body),
	}

	resp, err := route(ctx, container.TaxHandler(), req)
	if err != nil {
		container.Logger.WithError(err).Error("Calculation request failed")
		return events.APIGatewayProxyResponse{
			StatusCode: http.StatusInternalServerError,
			Headers:    map[string]string{"Content-Type": "application/json"},
			Body:       internalErrorBody,
		}, nil
	}

	return events.APIGatewayProxyResponse{
		StatusCode: resp.StatusCode,
		Headers:    resp.Headers,
		Body:       string(resp.Body),
	}, nil
}

// route dispatches the public calculation endpoints. Account and history
// routes are served by the long running server only.
func route(ctx context.Context, h *handlers.TaxHandler, req *lambda.Request) (*lambda.Response, error) {
	path := strings.TrimSuffix(req.Path, "/")

	switch {
	case req.Method == http.MethodPost && path == "/api/tax/calculate":
		return h.HandleCalculate(ctx, req)
	case req.Method == http.MethodPost && path == "/api/vat/calculate":
		return h.HandleCalculateVAT(ctx, req)
	case req.Method == http.MethodGet && path == "/api/tax/rates":
		return h.HandleRates(ctx, req)
	default:
		return lambda.JSONResponse(http.StatusNotFound,
			[]byte(`{"success":false,"error":"Not found","message":"No route for `+req.Method+` `+path+`"}`)), nil
	}
}

func main() {
	awslambda.Start(handler)
}
