package response

import (
	"github.com/shopspring/decimal"
)

type Cart struct {
	ID         ID              `json:"id"`
	UserID     *ID             `json:"user_id"`
	Items      []CartItem      `json:"items"`
	Subtotal   decimal.Decimal `json:"subtotal"`
	TotalItems int             `json:"total_items"`
	ItemsCount *int            `json:"items_count,omitempty"`
	Summary    *Summary        `json:"summary,omitempty"`
}

type CartItem struct {
	ID              ID              `json:"id"`
	ProductID       ID              `json:"product_id"`
	Product         *Product        `json:"product,omitempty"`
	Quantity        int             `json:"quantity"`
	Price           decimal.Decimal `json:"price"`
	Total           decimal.Decimal `json:"total"`
	BundleVariantID *ID             `json:"bundle_variant_id,omitempty"`
}

type Product struct {
	ID          ID     `json:"id"`
	Title       string `json:"title"`
	Slug        string `json:"slug,omitempty"`
	TaxCategory string `json:"tax_category,omitempty"`
	HSNCode     string `json:"hsn_code,omitempty"`
}

// Summary is authoritative for totals; the item array is not.
type Summary struct {
	TotalItems         *int            `json:"total_items,omitempty"`
	Subtotal           decimal.Decimal `json:"subtotal"`
	CouponCode         *string         `json:"coupon_code,omitempty"`
	CouponDiscount     decimal.Decimal `json:"coupon_discount"`
	FreeShipping       bool            `json:"free_shipping"`
	DiscountedSubtotal decimal.Decimal `json:"discounted_subtotal"`
	TaxAmount          decimal.Decimal `json:"tax_amount"`
	ShippingCost       decimal.Decimal `json:"shipping_cost"`
	GrandTotal         decimal.Decimal `json:"grand_total"`
	Currency           string          `json:"currency"`
	IsEmpty            bool            `json:"is_empty"`
}

// ProductKey is the product the line refers to, preferring the embedded
// product when the flat reference is missing.
func (i CartItem) ProductKey() ID {
	if i.ProductID != "" {
		return i.ProductID
	}
	if i.Product != nil {
		return i.Product.ID
	}
	return ""
}

func (i CartItem) LineTotal() decimal.Decimal {
	if !i.Total.IsZero() {
		return i.Total
	}
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Clone returns a deep copy so callers can't mutate store state.
func (c *Cart) Clone() *Cart {
	if c == nil {
		return nil
	}
	cp := *c
	if c.UserID != nil {
		u := *c.UserID
		cp.UserID = &u
	}
	if c.ItemsCount != nil {
		n := *c.ItemsCount
		cp.ItemsCount = &n
	}
	if c.Items != nil {
		cp.Items = make([]CartItem, len(c.Items))
		for i, item := range c.Items {
			if item.Product != nil {
				p := *item.Product
				item.Product = &p
			}
			if item.BundleVariantID != nil {
				b := *item.BundleVariantID
				item.BundleVariantID = &b
			}
			cp.Items[i] = item
		}
	}
	if c.Summary != nil {
		s := *c.Summary
		if s.TotalItems != nil {
			n := *s.TotalItems
			s.TotalItems = &n
		}
		if s.CouponCode != nil {
			code := *s.CouponCode
			s.CouponCode = &code
		}
		cp.Summary = &s
	}
	return &cp
}
