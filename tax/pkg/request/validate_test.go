package request

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestValidateTaxRequest(t *testing.T) {
	negative := decimal.NewFromInt(-5)
	zero := decimal.Zero

	tests := []struct {
		name           string
		req            CalculateTax
		expectedValid  bool
		expectedErrors []string
	}{
		{
			name: "given valid request should be valid",
			req: CalculateTax{
				Items:        []TaxItem{{Name: "Book", Price: decimal.NewFromInt(100), Quantity: 2}},
				ShippingCost: &zero,
				State:        "Maharashtra",
			},
			expectedValid:  true,
			expectedErrors: []string{},
		},
		{
			name: "given no items and empty state and negative shipping should list every problem",
			req: CalculateTax{
				Items:        []TaxItem{},
				ShippingCost: &negative,
				State:        "",
			},
			expectedValid: false,
			expectedErrors: []string{
				"at least one item is required",
				"shipping_cost must be greater than or equal to 0",
				"state is required",
			},
		},
		{
			name: "given invalid item and blank state should list every problem",
			req: CalculateTax{
				Items: []TaxItem{{Name: "  ", Price: decimal.NewFromInt(-1), Quantity: 0}},
				State: "   ",
			},
			expectedValid: false,
			expectedErrors: []string{
				"items[0].name is required",
				"items[0].price must be greater than or equal to 0",
				"items[0].quantity must be at least 1",
				"state is required",
			},
		},
		{
			name: "given missing shipping cost should be valid",
			req: CalculateTax{
				Items: []TaxItem{{Name: "Book", Price: decimal.Zero, Quantity: 1}},
				State: "Goa",
			},
			expectedValid:  true,
			expectedErrors: []string{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			actual := ValidateTaxRequest(tt.req)
			assert.Equal(t, tt.expectedValid, actual.IsValid)
			assert.ElementsMatch(t, tt.expectedErrors, actual.Errors)
		})
	}
}

func TestValidationError(t *testing.T) {
	err := &ValidationError{Result: ValidationResult{Errors: []string{"state is required", "at least one item is required"}}}
	assert.Equal(t, "invalid tax request: state is required; at least one item is required", err.Error())
}

func TestValidateHSNBreakdown(t *testing.T) {
	actual := ValidateHSNBreakdown(HSNBreakdown{Price: decimal.NewFromInt(-1), Quantity: 0})
	assert.False(t, actual.IsValid)
	assert.Len(t, actual.Errors, 3)
}
