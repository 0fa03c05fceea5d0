package calculator

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Alturino/storefront/tax/pkg/request"
	"github.com/Alturino/storefront/tax/pkg/response"
)

var (
	hundred = decimal.NewFromInt(100)
	two     = decimal.NewFromInt(2)
)

// Split is one taxable amount broken into GST components. Total always equals
// CGST+SGST+IGST exactly.
type Split struct {
	CGST  decimal.Decimal
	SGST  decimal.Decimal
	IGST  decimal.Decimal
	Total decimal.Decimal
}

// SplitTax applies a percentage rate to taxable. The tax is rounded to paise
// once, so a supply owes the same total whether it is inter-state or not.
// Inter-state supplies carry it all as IGST. Intra-state supplies halve it
// into CGST and SGST; an odd paisa goes to CGST.
func SplitTax(taxable, rate decimal.Decimal, interState bool) Split {
	total := taxable.Mul(rate).Div(hundred).Round(2)
	split := Split{CGST: decimal.Zero, SGST: decimal.Zero, IGST: decimal.Zero, Total: total}
	if interState {
		split.IGST = total
		return split
	}
	split.SGST = total.Div(two).RoundFloor(2)
	split.CGST = total.Sub(split.SGST)
	return split
}

// CalculateTaxLocally mirrors the backend GST computation. The request is
// expected to have passed ValidateTaxRequest.
func CalculateTaxLocally(req request.CalculateTax) response.CartTax {
	result := response.CartTax{
		Items:        make([]response.ItemTax, 0, len(req.Items)),
		State:        req.State,
		IsInterState: req.InterState,
		Source:       response.SourceLocal,
	}
	totals := response.Totals{
		Subtotal:     decimal.Zero,
		CartTax:      decimal.Zero,
		ShippingCost: decimal.Zero,
		ShippingTax:  decimal.Zero,
		CGST:         decimal.Zero,
		SGST:         decimal.Zero,
		IGST:         decimal.Zero,
	}

	for _, item := range req.Items {
		category, rate := CategoryRate(item.TaxCategory)
		subtotal := item.Price.Mul(decimal.NewFromInt(int64(item.Quantity)))
		split := SplitTax(subtotal, rate, req.InterState)

		result.Items = append(result.Items, response.ItemTax{
			ID:       item.ID,
			Name:     item.Name,
			Subtotal: subtotal,
			CGST:     split.CGST,
			SGST:     split.SGST,
			IGST:     split.IGST,
			TotalTax: split.Total,
			Rate:     rate,
			Category: category,
			HSNCode:  item.HSNCode,
		})

		totals.Subtotal = totals.Subtotal.Add(subtotal)
		totals.CartTax = totals.CartTax.Add(split.Total)
		totals.CGST = totals.CGST.Add(split.CGST)
		totals.SGST = totals.SGST.Add(split.SGST)
		totals.IGST = totals.IGST.Add(split.IGST)
	}

	if req.ShippingCost != nil {
		totals.ShippingCost = *req.ShippingCost
	}
	if totals.ShippingCost.IsPositive() && ShippingTaxable(req.State) {
		split := SplitTax(totals.ShippingCost, ShippingRate, req.InterState)
		totals.ShippingTax = split.Total
		totals.CGST = totals.CGST.Add(split.CGST)
		totals.SGST = totals.SGST.Add(split.SGST)
		totals.IGST = totals.IGST.Add(split.IGST)
	}

	totals.TotalTax = totals.CGST.Add(totals.SGST).Add(totals.IGST)
	totals.GrandTotal = totals.Subtotal.Add(totals.ShippingCost).Add(totals.TotalTax)
	result.Totals = totals
	result.EffectiveTaxRate = EffectiveRate(totals)
	return result
}

// EffectiveRate is total tax as a percentage of the taxable base (items plus
// shipping), rounded to 2 places.
func EffectiveRate(totals response.Totals) decimal.Decimal {
	base := totals.Subtotal.Add(totals.ShippingCost)
	if !base.IsPositive() {
		return decimal.Zero
	}
	return totals.TotalTax.Div(base).Mul(hundred).Round(2)
}

// StateTaxRates is the local rate table used for previews. The same table
// applies in every state; only the CGST/SGST versus IGST split differs.
func StateTaxRates(state string) response.StateRates {
	rates := make([]response.CategoryRate, 0, len(Categories))
	for _, category := range Categories {
		_, rate := CategoryRate(category)
		half := rate.Div(two)
		rates = append(rates, response.CategoryRate{
			Category: category,
			Rate:     rate,
			CGST:     half,
			SGST:     half,
			IGST:     rate,
		})
	}
	return response.StateRates{
		State:           state,
		Rates:           rates,
		ShippingRate:    ShippingRate,
		ShippingTaxable: ShippingTaxable(state),
		Source:          response.SourceLocal,
	}
}

// HSNBreakdown computes the tax of a single line. An explicit category wins
// over the one derived from the HSN code.
func HSNBreakdown(req request.HSNBreakdown) response.HSNBreakdown {
	category := req.TaxCategory
	if strings.TrimSpace(category) == "" {
		category, _ = CategoryForHSN(req.HSNCode)
	}
	category, rate := CategoryRate(category)
	subtotal := req.Price.Mul(decimal.NewFromInt(int64(req.Quantity)))
	split := SplitTax(subtotal, rate, req.InterState)
	return response.HSNBreakdown{
		HSNCode:  req.HSNCode,
		Category: category,
		Rate:     rate,
		Price:    req.Price,
		Quantity: req.Quantity,
		Subtotal: subtotal,
		CGST:     split.CGST,
		SGST:     split.SGST,
		IGST:     split.IGST,
		TotalTax: split.Total,
		Total:    subtotal.Add(split.Total),
		Source:   response.SourceLocal,
	}
}
