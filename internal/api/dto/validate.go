package dto

import (
	"strings"

	"github.com/go-playground/validator/v10"

	apperrors "github.com/spec-kit/fault-service/pkg/util"
)

var validate = validator.New()

// Validate runs struct-tag validation and maps failures to the standard
// validation error shape.
func Validate(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	fieldErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	details := make(map[string]any, len(fieldErrs))
	for _, fe := range fieldErrs {
		details[strings.ToLower(fe.Field())] = fe.Tag()
	}
	return apperrors.NewValidationError("validation failed", details)
}
