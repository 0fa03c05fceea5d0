package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alturino/storefront/tax/pkg/request"
	"github.com/Alturino/storefront/tax/pkg/response"
)

const validTaxRequest = `{
  "items": [{"id": "1", "name": "Book", "price": "100", "quantity": 2, "tax_category": "standard"}],
  "shipping_cost": "50",
  "state": "Maharashtra",
  "is_inter_state": true
}`

func runTax(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	taxCmd := newTaxCommand()
	out := &bytes.Buffer{}
	taxCmd.SetIn(strings.NewReader(stdin))
	taxCmd.SetOut(out)
	taxCmd.SetErr(&bytes.Buffer{})
	taxCmd.SetArgs(args)
	err := taxCmd.Execute()
	return out.String(), err
}

func TestTaxEstimateCommand(t *testing.T) {
	out, err := runTax(t, validTaxRequest, "estimate")
	require.NoError(t, err)

	result := response.CartTax{}
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, response.SourceLocal, result.Source)
	assert.True(t, decimal.RequireFromString("262.5").Equal(result.Totals.GrandTotal))
	assert.True(t, result.Totals.CGST.IsZero())
	assert.True(t, decimal.RequireFromString("12.5").Equal(result.Totals.IGST))
}

func TestTaxValidateCommand(t *testing.T) {
	tests := []struct {
		name          string
		stdin         string
		expectedValid bool
		expectedCount int
	}{
		{name: "given valid request should report valid", stdin: validTaxRequest, expectedValid: true},
		{name: "given empty request should list every problem", stdin: `{"items": [], "shipping_cost": "-1"}`, expectedCount: 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := runTax(t, tt.stdin, "validate")

			result := request.ValidationResult{}
			require.NoError(t, json.Unmarshal([]byte(out), &result))
			assert.Equal(t, tt.expectedValid, result.IsValid)
			assert.Len(t, result.Errors, tt.expectedCount)
			if tt.expectedValid {
				assert.NoError(t, err)
			} else {
				assert.True(t, errors.Is(err, errInvalidTaxRequest))
			}
		})
	}
}

func TestTaxEstimateCommandRejectsInvalidRequest(t *testing.T) {
	out, err := runTax(t, `{"items": []}`, "estimate")

	validationErr := &request.ValidationError{}
	require.True(t, errors.As(err, &validationErr))
	result := request.ValidationResult{}
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.False(t, result.IsValid)
}
