package api

import (
	"strings"

	"github.com/go-playground/validator/v10"

	"notifier/internal/types"
)

// Validator wraps go-playground/validator and translates field errors into
// structured AppErrors the response layer can serialize.
type Validator struct {
	validate *validator.Validate
}

// NewValidator creates a Validator and registers custom validation tags.
func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	return &Validator{validate: v}
}

// ValidateStruct validates a request DTO. On failure it returns a
// *types.AppError with a per-field breakdown in Details.
func (v *Validator) ValidateStruct(s any) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	fieldErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return types.NewAppError(types.ErrCodeValidationInvalidBody,
			"request validation failed", err)
	}

	details := make(map[string]any, len(fieldErrs))
	for _, fe := range fieldErrs {
		details[strings.ToLower(fe.Field())] = describeFieldError(fe)
	}
	return types.NewAppErrorWithDetails(types.ErrCodeValidationInvalidBody,
		"request validation failed", err, details)
}

// describeFieldError renders a single validation failure as a short
// human-readable reason.
func describeFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "oneof":
		return "must be one of: " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	case "min":
		return "must be at least " + fe.Param()
	case "url":
		return "must be a valid URL"
	default:
		return "failed validation rule: " + fe.Tag()
	}
}
