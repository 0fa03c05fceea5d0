package request

import "github.com/shopspring/decimal"

type TaxItem struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"           validate:"notblank"`
	Price       decimal.Decimal `json:"price"          validate:"gte=0"`
	Quantity    int             `json:"quantity"       validate:"gte=1"`
	TaxCategory string          `json:"tax_category,omitempty"`
	HSNCode     string          `json:"hsn_code,omitempty"`
}

type CalculateTax struct {
	Items        []TaxItem        `json:"items"                   validate:"min=1,dive"`
	ShippingCost *decimal.Decimal `json:"shipping_cost,omitempty" validate:"omitempty,gte=0"`
	State        string           `json:"state"                   validate:"notblank"`
	InterState   bool             `json:"is_inter_state"`
	Pincode      string           `json:"pincode,omitempty"`
}

// HSNBreakdown asks for the tax of a single product line keyed by HSN code.
type HSNBreakdown struct {
	HSNCode     string          `json:"hsn_code"               validate:"required,notblank"`
	Price       decimal.Decimal `json:"price"                  validate:"gte=0"`
	Quantity    int             `json:"quantity"               validate:"gte=1"`
	TaxCategory string          `json:"tax_category,omitempty"`
	State       string          `json:"state,omitempty"`
	InterState  bool            `json:"is_inter_state"`
}

type Invoice struct {
	OrderID string `json:"order_id" validate:"required,notblank"`
	State   string `json:"state"    validate:"required,notblank"`
}
