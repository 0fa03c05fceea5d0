package request

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/Alturino/storefront/internal/common/validate"
)

var taxValidator = validate.New()

type ValidationResult struct {
	IsValid bool     `json:"is_valid"`
	Errors  []string `json:"errors"`
}

// ValidationError wraps a failed ValidationResult for callers that want an
// error value.
type ValidationError struct {
	Result ValidationResult
}

func (e *ValidationError) Error() string {
	return "invalid tax request: " + strings.Join(e.Result.Errors, "; ")
}

// ValidateTaxRequest reports every violated rule instead of stopping at the
// first one.
func ValidateTaxRequest(req CalculateTax) ValidationResult {
	return collect(taxValidator.Struct(req))
}

func ValidateHSNBreakdown(req HSNBreakdown) ValidationResult {
	return collect(taxValidator.Struct(req))
}

func ValidateInvoice(req Invoice) ValidationResult {
	return collect(taxValidator.Struct(req))
}

func collect(err error) ValidationResult {
	if err == nil {
		return ValidationResult{IsValid: true, Errors: []string{}}
	}
	fieldErrors := validator.ValidationErrors{}
	if !errors.As(err, &fieldErrors) {
		return ValidationResult{IsValid: false, Errors: []string{err.Error()}}
	}
	messages := make([]string, 0, len(fieldErrors))
	for _, fe := range fieldErrors {
		messages = append(messages, message(fe))
	}
	return ValidationResult{IsValid: false, Errors: messages}
}

func message(fe validator.FieldError) string {
	path := validate.Path(fe)
	switch fe.Tag() {
	case "min":
		if fe.Field() == "items" {
			return "at least one item is required"
		}
		return fmt.Sprintf("%s must have at least %s entries", path, fe.Param())
	case "required", "notblank":
		return fmt.Sprintf("%s is required", path)
	case "gte":
		if fe.Field() == "quantity" {
			return fmt.Sprintf("%s must be at least %s", path, fe.Param())
		}
		return fmt.Sprintf("%s must be greater than or equal to %s", path, fe.Param())
	default:
		return fmt.Sprintf("%s failed %s validation", path, fe.Tag())
	}
}
