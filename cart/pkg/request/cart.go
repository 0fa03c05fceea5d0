package request

type Product struct {
	ID              string `validate:"required" json:"product_id"`
	Title           string `json:"title"`
	BundleVariantID string `json:"bundle_variant_id,omitempty"`
}

type AddToCart struct {
	Product
	Quantity int `validate:"gte=1" json:"quantity"`
}

type UpdateQuantity struct {
	Quantity int `json:"quantity"`
}

type ApplyCoupon struct {
	Code string `validate:"required,notblank" json:"code"`
}

type CalculateShipping struct {
	Pincode       string `validate:"required,numeric,len=6"  json:"pincode"`
	PickupPincode string `validate:"omitempty,numeric,len=6" json:"pickup_pincode,omitempty"`
}

type SetPaymentMethod struct {
	Method *string `json:"method"`
}

type EstimateTax struct {
	State      string `validate:"required,notblank" json:"state"`
	InterState bool   `json:"is_inter_state"`
}

// CartQuery scopes a cart fetch to a delivery and payment context. Empty
// fields are left out of the request.
type CartQuery struct {
	DeliveryPincode string `json:"delivery_pincode,omitempty"`
	PaymentMethod   string `json:"payment_method,omitempty"`
}
