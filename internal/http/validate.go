package httpx

import (
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	apperrors "github.com/quillscore/quillscore-api/internal/errors"
)

// newRequestValidator builds the validator used for API request bodies.
// Field names in error messages come from json tags so clients see wire
// names, not Go identifiers.
func newRequestValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// checkRequest validates a decoded request body and writes a 400 on failure.
// Returns true when the body passes.
func checkRequest(w http.ResponseWriter, v *validator.Validate, req any) bool {
	err := v.Struct(req)
	if err == nil {
		return true
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		WriteAppError(w, requestFieldError(verrs[0]))
		return false
	}

	WriteAppError(w, apperrors.Validation("invalid request body"))
	return false
}

// requestFieldError converts the first validator failure into the API's
// validation error shape.
func requestFieldError(fe validator.FieldError) *apperrors.AppError {
	field := fe.Field()

	message := "Invalid value for field: " + field
	if fe.Tag() == "required" {
		message = "Missing required field: " + field
	}

	appErr := apperrors.ValidationField(field, message)
	appErr.Details = map[string]any{"field": field}
	return appErr
}
