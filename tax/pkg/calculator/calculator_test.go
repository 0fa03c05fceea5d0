package calculator

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/Alturino/storefront/tax/pkg/request"
	"github.com/Alturino/storefront/tax/pkg/response"
)

var paisa = decimal.New(1, -2)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func scenario(interState bool) request.CalculateTax {
	shipping := d("50")
	return request.CalculateTax{
		Items: []request.TaxItem{
			{ID: "1", Name: "Book", Price: d("100"), Quantity: 2, TaxCategory: "standard"},
		},
		ShippingCost: &shipping,
		State:        "Maharashtra",
		InterState:   interState,
	}
}

func assertDecimal(t *testing.T, expected string, actual decimal.Decimal, field string) {
	t.Helper()
	assert.Truef(t, d(expected).Equal(actual), "%s: expected %s, got %s", field, expected, actual.String())
}

func TestCalculateTaxLocally(t *testing.T) {
	tests := []struct {
		name     string
		req      request.CalculateTax
		expected response.Totals
		item     response.ItemTax
	}{
		{
			name: "given intra state standard item with shipping should split into cgst and sgst",
			req:  scenario(false),
			item: response.ItemTax{Subtotal: d("200"), CGST: d("5"), SGST: d("5"), IGST: d("0"), TotalTax: d("10"), Rate: d("5")},
			expected: response.Totals{
				Subtotal:     d("200"),
				CartTax:      d("10"),
				ShippingCost: d("50"),
				ShippingTax:  d("2.5"),
				CGST:         d("6.25"),
				SGST:         d("6.25"),
				IGST:         d("0"),
				TotalTax:     d("12.5"),
				GrandTotal:   d("262.5"),
			},
		},
		{
			name: "given inter state standard item with shipping should charge igst only with same grand total",
			req:  scenario(true),
			item: response.ItemTax{Subtotal: d("200"), CGST: d("0"), SGST: d("0"), IGST: d("10"), TotalTax: d("10"), Rate: d("5")},
			expected: response.Totals{
				Subtotal:     d("200"),
				CartTax:      d("10"),
				ShippingCost: d("50"),
				ShippingTax:  d("2.5"),
				CGST:         d("0"),
				SGST:         d("0"),
				IGST:         d("12.5"),
				TotalTax:     d("12.5"),
				GrandTotal:   d("262.5"),
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			actual := CalculateTaxLocally(tt.req)

			assert.Equal(t, response.SourceLocal, actual.Source)
			assert.Len(t, actual.Items, 1)
			item := actual.Items[0]
			assertDecimal(t, tt.item.Subtotal.String(), item.Subtotal, "item subtotal")
			assertDecimal(t, tt.item.CGST.String(), item.CGST, "item cgst")
			assertDecimal(t, tt.item.SGST.String(), item.SGST, "item sgst")
			assertDecimal(t, tt.item.IGST.String(), item.IGST, "item igst")
			assertDecimal(t, tt.item.TotalTax.String(), item.TotalTax, "item total tax")
			assertDecimal(t, tt.item.Rate.String(), item.Rate, "item rate")
			assert.Equal(t, CategoryStandard, item.Category)

			totals := actual.Totals
			assertDecimal(t, tt.expected.Subtotal.String(), totals.Subtotal, "subtotal")
			assertDecimal(t, tt.expected.CartTax.String(), totals.CartTax, "cart tax")
			assertDecimal(t, tt.expected.ShippingCost.String(), totals.ShippingCost, "shipping cost")
			assertDecimal(t, tt.expected.ShippingTax.String(), totals.ShippingTax, "shipping tax")
			assertDecimal(t, tt.expected.CGST.String(), totals.CGST, "cgst")
			assertDecimal(t, tt.expected.SGST.String(), totals.SGST, "sgst")
			assertDecimal(t, tt.expected.IGST.String(), totals.IGST, "igst")
			assertDecimal(t, tt.expected.TotalTax.String(), totals.TotalTax, "total tax")
			assertDecimal(t, tt.expected.GrandTotal.String(), totals.GrandTotal, "grand total")
			assertDecimal(t, "5", actual.EffectiveTaxRate, "effective rate")
		})
	}
}

func assertIntraStateSplit(t *testing.T, cgst, sgst decimal.Decimal, msg string) {
	t.Helper()
	diff := cgst.Sub(sgst)
	assert.Truef(t, diff.IsZero() || diff.Equal(paisa), "%s: cgst %s and sgst %s must differ by at most one paisa", msg, cgst, sgst)
}

func TestCalculateTaxLocallyInvariants(t *testing.T) {
	prices := []string{"0", "0.01", "1.99", "33.33", "100.10", "101", "249.5", "1000"}
	categories := []string{"", "essential", "standard", "reduced", "premium", "luxury", "unknown"}
	shippings := []string{"0", "7.77", "50", "50.10"}

	items := []request.TaxItem{}
	for i, price := range prices {
		items = append(items, request.TaxItem{
			ID:          price,
			Name:        "item " + price,
			Price:       d(price),
			Quantity:    i + 1,
			TaxCategory: categories[i%len(categories)],
		})
	}

	for _, shipping := range shippings {
		cost := d(shipping)
		results := map[bool]response.CartTax{}
		for _, interState := range []bool{false, true} {
			result := CalculateTaxLocally(request.CalculateTax{
				Items:        items,
				ShippingCost: &cost,
				State:        "Karnataka",
				InterState:   interState,
			})
			results[interState] = result

			for _, item := range result.Items {
				assert.True(t, item.TotalTax.Equal(item.CGST.Add(item.SGST).Add(item.IGST)), "line total tax must equal its components")
				if interState {
					assert.True(t, item.CGST.IsZero(), "inter state line must not carry cgst")
					assert.True(t, item.SGST.IsZero(), "inter state line must not carry sgst")
				} else {
					assert.True(t, item.IGST.IsZero(), "intra state line must not carry igst")
					assertIntraStateSplit(t, item.CGST, item.SGST, item.Name)
				}
			}

			totals := result.Totals
			assert.True(t, totals.TotalTax.Equal(totals.CGST.Add(totals.SGST).Add(totals.IGST)))
			assert.True(t, totals.TotalTax.Equal(totals.CartTax.Add(totals.ShippingTax)))
			assert.True(t, totals.GrandTotal.Equal(totals.Subtotal.Add(totals.ShippingCost).Add(totals.TotalTax)))
			if interState {
				assert.True(t, totals.CGST.IsZero())
				assert.True(t, totals.SGST.IsZero())
			} else {
				assert.True(t, totals.IGST.IsZero())
			}
		}

		intra, inter := results[false], results[true]
		assertDecimal(t, inter.Totals.TotalTax.String(), intra.Totals.TotalTax, "total tax for shipping "+shipping)
		assertDecimal(t, inter.Totals.GrandTotal.String(), intra.Totals.GrandTotal, "grand total for shipping "+shipping)
		for i := range intra.Items {
			assertDecimal(t, inter.Items[i].TotalTax.String(), intra.Items[i].TotalTax, "line tax of "+intra.Items[i].Name)
		}
	}
}

func TestSplitTax(t *testing.T) {
	tests := []struct {
		name       string
		taxable    string
		rate       string
		interState bool
		expected   Split
	}{
		{
			name:     "given even paise intra state should split evenly",
			taxable:  "200",
			rate:     "5",
			expected: Split{CGST: d("5"), SGST: d("5"), IGST: d("0"), Total: d("10")},
		},
		{
			name:     "given odd paise intra state should give the extra paisa to cgst",
			taxable:  "100.10",
			rate:     "5",
			expected: Split{CGST: d("2.51"), SGST: d("2.50"), IGST: d("0"), Total: d("5.01")},
		},
		{
			name:       "given odd paise inter state should carry the same total as igst",
			taxable:    "100.10",
			rate:       "5",
			interState: true,
			expected:   Split{CGST: d("0"), SGST: d("0"), IGST: d("5.01"), Total: d("5.01")},
		},
		{
			name:     "given one paisa of tax intra state should put it on cgst",
			taxable:  "0.20",
			rate:     "5",
			expected: Split{CGST: d("0.01"), SGST: d("0"), IGST: d("0"), Total: d("0.01")},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			actual := SplitTax(d(tt.taxable), d(tt.rate), tt.interState)

			assertDecimal(t, tt.expected.CGST.String(), actual.CGST, "cgst")
			assertDecimal(t, tt.expected.SGST.String(), actual.SGST, "sgst")
			assertDecimal(t, tt.expected.IGST.String(), actual.IGST, "igst")
			assertDecimal(t, tt.expected.Total.String(), actual.Total, "total")
		})
	}
}

func TestCalculateTaxLocallyTotalIgnoresSplit(t *testing.T) {
	req := request.CalculateTax{
		Items: []request.TaxItem{
			{ID: "1", Name: "Pen", Price: d("100.10"), Quantity: 1, TaxCategory: "standard"},
		},
		State: "Maharashtra",
	}

	intra := CalculateTaxLocally(req)
	req.InterState = true
	inter := CalculateTaxLocally(req)

	assertDecimal(t, "5.01", intra.Totals.TotalTax, "intra total tax")
	assertDecimal(t, "105.11", intra.Totals.GrandTotal, "intra grand total")
	assertDecimal(t, "5.01", inter.Totals.TotalTax, "inter total tax")
	assertDecimal(t, "105.11", inter.Totals.GrandTotal, "inter grand total")
	assertDecimal(t, "2.51", intra.Totals.CGST, "intra cgst")
	assertDecimal(t, "2.50", intra.Totals.SGST, "intra sgst")
}

func TestCategoryRate(t *testing.T) {
	tests := []struct {
		name             string
		category         string
		expectedCategory string
		expectedRate     string
	}{
		{name: "given essential should be 0", category: "essential", expectedCategory: CategoryEssential, expectedRate: "0"},
		{name: "given standard should be 5", category: "standard", expectedCategory: CategoryStandard, expectedRate: "5"},
		{name: "given reduced should be 12", category: "reduced", expectedCategory: CategoryReduced, expectedRate: "12"},
		{name: "given premium should be 18", category: "premium", expectedCategory: CategoryPremium, expectedRate: "18"},
		{name: "given luxury in mixed case should be 28", category: " Luxury ", expectedCategory: CategoryLuxury, expectedRate: "28"},
		{name: "given empty category should default to standard", category: "", expectedCategory: CategoryStandard, expectedRate: "5"},
		{name: "given unknown category should default to standard", category: "gold", expectedCategory: CategoryStandard, expectedRate: "5"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			category, rate := CategoryRate(tt.category)
			assert.Equal(t, tt.expectedCategory, category)
			assertDecimal(t, tt.expectedRate, rate, "rate")
		})
	}
}

func TestCalculateTaxLocallyWithoutShipping(t *testing.T) {
	result := CalculateTaxLocally(request.CalculateTax{
		Items: []request.TaxItem{{Name: "Book", Price: d("100"), Quantity: 1, TaxCategory: "essential"}},
		State: "Goa",
	})

	assert.True(t, result.Totals.ShippingTax.IsZero())
	assert.True(t, result.Totals.TotalTax.IsZero())
	assertDecimal(t, "100", result.Totals.GrandTotal, "grand total")
	assertDecimal(t, "0", result.EffectiveTaxRate, "effective rate")
}

func TestStateTaxRates(t *testing.T) {
	rates := StateTaxRates("Kerala")

	assert.Equal(t, "Kerala", rates.State)
	assert.Equal(t, response.SourceLocal, rates.Source)
	assert.True(t, rates.ShippingTaxable)
	assertDecimal(t, "5", rates.ShippingRate, "shipping rate")
	assert.Len(t, rates.Rates, len(Categories))
	for _, rate := range rates.Rates {
		assert.True(t, rate.CGST.Add(rate.SGST).Equal(rate.IGST), "cgst+sgst must equal igst for %s", rate.Category)
		assert.True(t, rate.IGST.Equal(rate.Rate))
	}
}

func TestHSNBreakdown(t *testing.T) {
	tests := []struct {
		name             string
		req              request.HSNBreakdown
		expectedCategory string
		expectedTax      string
	}{
		{
			name:             "given printed book heading should be tax free",
			req:              request.HSNBreakdown{HSNCode: "49011010", Price: d("300"), Quantity: 1},
			expectedCategory: CategoryEssential,
			expectedTax:      "0",
		},
		{
			name:             "given notebook heading should use reduced rate",
			req:              request.HSNBreakdown{HSNCode: "4820", Price: d("50"), Quantity: 2, InterState: true},
			expectedCategory: CategoryReduced,
			expectedTax:      "12",
		},
		{
			name:             "given explicit category should override the heading",
			req:              request.HSNBreakdown{HSNCode: "4901", Price: d("100"), Quantity: 1, TaxCategory: "premium"},
			expectedCategory: CategoryPremium,
			expectedTax:      "18",
		},
		{
			name:             "given unknown heading should use standard rate",
			req:              request.HSNBreakdown{HSNCode: "1234", Price: d("100"), Quantity: 1},
			expectedCategory: CategoryStandard,
			expectedTax:      "5",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			actual := HSNBreakdown(tt.req)
			assert.Equal(t, tt.expectedCategory, actual.Category)
			assertDecimal(t, tt.expectedTax, actual.TotalTax, "total tax")
			assert.True(t, actual.Total.Equal(actual.Subtotal.Add(actual.TotalTax)))
			if tt.req.InterState {
				assert.True(t, actual.CGST.IsZero())
			} else {
				assert.True(t, actual.IGST.IsZero())
			}
		})
	}
}
