package contextutils

import (
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Validator returns the shared go-playground validator instance
func Validator() *validator.Validate {
	return validate
}

// ValidateStruct validates a struct using its `validate` tags and converts failures into an AppError
func ValidateStruct(v interface{}) error {
	if err := validate.Struct(v); err != nil {
		return NewAppErrorWithCause(ErrorCodeValidationFailed, SeverityWarn, "Validation failed", err.Error(), err)
	}
	return nil
}

// IsValidURL checks if a string is an absolute http(s) URL
func IsValidURL(raw string) bool {
	return validate.Var(raw, "required,http_url") == nil
}
