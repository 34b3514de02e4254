package services

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"taxlator-api/internal/models"
)

// newInputValidator checks the validate tags of the calculation inputs and
// reports fields by their JSON names
func newInputValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// toInvalidInput converts the first tag violation into an InvalidInputError
// so tag and Validate failures reach clients in the same shape
func toInvalidInput(err error) error {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) || len(validationErrors) == 0 {
		return err
	}

	fe := validationErrors[0]
	var reason string
	switch fe.Tag() {
	case "required":
		reason = "is required"
	case "gt":
		reason = "must be greater than " + fe.Param()
	case "gte":
		reason = "cannot be negative"
	case "oneof":
		reason = "must be one of " + strings.ReplaceAll(fe.Param(), " ", ", ")
	default:
		reason = "failed the " + fe.Tag() + " check"
	}

	return models.NewInvalidInputError(fe.Field(), fe.Value(), reason)
}
