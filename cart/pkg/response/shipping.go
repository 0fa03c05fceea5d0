package response

import "github.com/shopspring/decimal"

type ShippingEstimate struct {
	Success bool             `json:"success"`
	Message string           `json:"message,omitempty"`
	Summary *ShippingSummary `json:"summary,omitempty"`
}

type ShippingSummary struct {
	Pincode       string          `json:"pincode"`
	PickupPincode string          `json:"pickup_pincode,omitempty"`
	ShippingCost  decimal.Decimal `json:"shipping_cost"`
	CODCharge     decimal.Decimal `json:"cod_charge"`
	Courier       string          `json:"courier,omitempty"`
	EstimatedDays int             `json:"estimated_days,omitempty"`
	Serviceable   bool            `json:"serviceable"`
}
