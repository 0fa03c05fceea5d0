package response

import (
	"time"

	"github.com/shopspring/decimal"
)

// Source tells whether a figure came from the backend or the local replica.
type Source string

const (
	SourceRemote Source = "remote"
	SourceLocal  Source = "local"
)

type ItemTax struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Subtotal decimal.Decimal `json:"subtotal"`
	CGST     decimal.Decimal `json:"cgst"`
	SGST     decimal.Decimal `json:"sgst"`
	IGST     decimal.Decimal `json:"igst"`
	TotalTax decimal.Decimal `json:"total_tax"`
	Rate     decimal.Decimal `json:"rate"`
	Category string          `json:"category"`
	HSNCode  string          `json:"hsn_code,omitempty"`
}

type Totals struct {
	Subtotal     decimal.Decimal `json:"subtotal"`
	CartTax      decimal.Decimal `json:"cart_tax"`
	ShippingCost decimal.Decimal `json:"shipping_cost"`
	ShippingTax  decimal.Decimal `json:"shipping_tax"`
	CGST         decimal.Decimal `json:"cgst"`
	SGST         decimal.Decimal `json:"sgst"`
	IGST         decimal.Decimal `json:"igst"`
	TotalTax     decimal.Decimal `json:"total_tax"`
	GrandTotal   decimal.Decimal `json:"grand_total"`
}

type CartTax struct {
	Items            []ItemTax       `json:"items"`
	Totals           Totals          `json:"totals"`
	EffectiveTaxRate decimal.Decimal `json:"effective_tax_rate"`
	State            string          `json:"state"`
	IsInterState     bool            `json:"is_inter_state"`
	Source           Source          `json:"source"`
}

type CategoryRate struct {
	Category string          `json:"category"`
	Rate     decimal.Decimal `json:"rate"`
	CGST     decimal.Decimal `json:"cgst"`
	SGST     decimal.Decimal `json:"sgst"`
	IGST     decimal.Decimal `json:"igst"`
}

type StateRates struct {
	State           string          `json:"state"`
	Rates           []CategoryRate  `json:"rates"`
	ShippingRate    decimal.Decimal `json:"shipping_rate"`
	ShippingTaxable bool            `json:"shipping_taxable"`
	Source          Source          `json:"source"`
}

type HSNBreakdown struct {
	HSNCode  string          `json:"hsn_code"`
	Category string          `json:"category"`
	Rate     decimal.Decimal `json:"rate"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
	Subtotal decimal.Decimal `json:"subtotal"`
	CGST     decimal.Decimal `json:"cgst"`
	SGST     decimal.Decimal `json:"sgst"`
	IGST     decimal.Decimal `json:"igst"`
	TotalTax decimal.Decimal `json:"total_tax"`
	Total    decimal.Decimal `json:"total"`
	Source   Source          `json:"source"`
}

type Invoice struct {
	InvoiceNumber string     `json:"invoice_number"`
	OrderID       string     `json:"order_id"`
	State         string     `json:"state"`
	IsInterState  bool       `json:"is_inter_state"`
	IssuedAt      *time.Time `json:"issued_at,omitempty"`
	GSTIN         string     `json:"gstin,omitempty"`
	Items         []ItemTax  `json:"items"`
	Totals        Totals     `json:"totals"`
}
