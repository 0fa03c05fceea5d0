package response

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(n int) *int {
	return &n
}

func TestResolveTotalItems(t *testing.T) {
	tests := []struct {
		name           string
		cart           *Cart
		expected       int
		expectedSource TotalItemsSource
	}{
		{
			name:           "given nil cart should return zero from none",
			cart:           nil,
			expected:       0,
			expectedSource: TotalItemsNone,
		},
		{
			name: "given summary total_items disagreeing with items should prefer summary",
			cart: &Cart{
				Items:      []CartItem{{Quantity: 2}, {Quantity: 3}},
				ItemsCount: intPtr(9),
				Summary:    &Summary{TotalItems: intPtr(7)},
			},
			expected:       7,
			expectedSource: TotalItemsFromSummary,
		},
		{
			name: "given summary total_items of zero should still prefer summary",
			cart: &Cart{
				Items:   []CartItem{{Quantity: 2}},
				Summary: &Summary{TotalItems: intPtr(0)},
			},
			expected:       0,
			expectedSource: TotalItemsFromSummary,
		},
		{
			name: "given summary without total_items should sum item quantities",
			cart: &Cart{
				Items:      []CartItem{{Quantity: 2}, {Quantity: 3}},
				ItemsCount: intPtr(9),
				Summary:    &Summary{},
			},
			expected:       5,
			expectedSource: TotalItemsFromItems,
		},
		{
			name: "given empty items array should return zero from items",
			cart: &Cart{
				Items:      []CartItem{},
				ItemsCount: intPtr(4),
			},
			expected:       0,
			expectedSource: TotalItemsFromItems,
		},
		{
			name:           "given only items_count should return items_count",
			cart:           &Cart{ItemsCount: intPtr(4)},
			expected:       4,
			expectedSource: TotalItemsFromItemsCount,
		},
		{
			name:           "given no count information should return zero from none",
			cart:           &Cart{},
			expected:       0,
			expectedSource: TotalItemsNone,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			actual, source := ResolveTotalItems(tt.cart)
			assert.Equal(t, tt.expected, actual)
			assert.Equal(t, tt.expectedSource, source)
		})
	}
}

func TestIDUnmarshal(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected ID
		wantErr  bool
	}{
		{name: "given number should keep its digits", input: `42`, expected: "42"},
		{name: "given string should keep it", input: `"a1b2"`, expected: "a1b2"},
		{name: "given null should be empty", input: `null`, expected: ""},
		{name: "given object should fail", input: `{}`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var id ID
			err := json.Unmarshal([]byte(tt.input), &id)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, id)
		})
	}
}

func TestCartClone(t *testing.T) {
	code := "SAVE10"
	cart := &Cart{
		Items:   []CartItem{{ID: "1", Quantity: 1, Product: &Product{Title: "Book"}}},
		Summary: &Summary{CouponCode: &code, TotalItems: intPtr(1)},
	}

	clone := cart.Clone()
	clone.Items[0].Quantity = 5
	clone.Items[0].Product.Title = "Changed"
	*clone.Summary.CouponCode = "OTHER"

	assert.Equal(t, 1, cart.Items[0].Quantity)
	assert.Equal(t, "Book", cart.Items[0].Product.Title)
	assert.Equal(t, "SAVE10", *cart.Summary.CouponCode)
	assert.Nil(t, (*Cart)(nil).Clone())
}
