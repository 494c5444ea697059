package common

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	validator "github.com/go-playground/validator/v10"
)

// NewValidator returns a validator that reports fields by their JSON names.
func NewValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		switch name {
		case "-":
			return ""
		case "":
			return f.Name
		}
		return name
	})
	return v
}

// FieldErrors flattens validator errors into a field → message map. Nested
// fields are keyed by their dotted path below the root struct. messages
// overrides the generated text per field key.
func FieldErrors(err error, messages map[string]string) map[string]string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	out := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		key := fe.Namespace()
		if i := strings.IndexByte(key, '.'); i >= 0 {
			key = key[i+1:]
		}
		if _, seen := out[key]; seen {
			continue
		}
		if msg, ok := messages[key]; ok {
			out[key] = msg
			continue
		}
		out[key] = describe(key, fe)
	}
	return out
}

func describe(field string, fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_if", "required_unless":
		return fmt.Sprintf("%s is required", field)
	case "min", "gte":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max", "lte":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "email":
		return fmt.Sprintf("%s must be a valid email", field)
	}
	return fmt.Sprintf("%s is invalid", field)
}

// ValidationFailed builds a 422 AppError carrying per-field messages.
func ValidationFailed(fields map[string]string, err error) *AppError {
	return &AppError{
		Code:       "VALIDATION_FAILED",
		Message:    "validation failed",
		HTTPStatus: http.StatusUnprocessableEntity,
		Err:        err,
		Details:    map[string]any{"fields": fields},
	}
}
