package response

import (
	"time"

	"github.com/shopspring/decimal"
)

type Coupon struct {
	Code          string          `json:"code"`
	Description   string          `json:"description,omitempty"`
	DiscountType  string          `json:"discount_type,omitempty"`
	DiscountValue decimal.Decimal `json:"discount_value"`
	MinOrderValue decimal.Decimal `json:"min_order_value"`
	MaxDiscount   decimal.Decimal `json:"max_discount"`
	FreeShipping  bool            `json:"free_shipping"`
	ValidUntil    *time.Time      `json:"valid_until,omitempty"`
}
