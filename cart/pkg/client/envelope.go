package client

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/Alturino/storefront/cart/pkg/response"
	commonErrors "github.com/Alturino/storefront/internal/common/errors"
)

// Shape names where in the payload the backend put the cart.
type Shape string

const (
	ShapeTopLevel   Shape = "top_level"
	ShapeNestedData Shape = "nested_data"
	ShapeData       Shape = "data"
	ShapeEmpty      Shape = "empty"
)

// Payload is a decoded cart response. Cart is nil only for ShapeEmpty.
type Payload struct {
	Shape Shape
	Cart  *response.Cart
	// Dropped counts lines removed for having quantity < 1.
	Dropped int
}

var cartKeys = []string{"items", "id", "summary", "total_items", "subtotal", "items_count"}

// DecodeCart accepts {"cart": {...}}, {"data": {"cart": {...}}} and
// {"data": {...}} and always yields the canonical cart. Anything else that
// is valid JSON decodes to ShapeEmpty.
func DecodeCart(body []byte) (Payload, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return Payload{Shape: ShapeEmpty}, nil
	}

	envelope := map[string]json.RawMessage{}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return Payload{}, fmt.Errorf("failed decoding cart envelope with error=%w", fmt.Errorf("%w: %w", commonErrors.ErrUpstreamMalformed, err))
	}

	if raw, ok := envelope["cart"]; ok && present(raw) {
		return decodeAs(ShapeTopLevel, raw)
	}

	raw, ok := envelope["data"]
	if !ok || !present(raw) {
		return Payload{Shape: ShapeEmpty}, nil
	}
	data := map[string]json.RawMessage{}
	if err := json.Unmarshal(raw, &data); err != nil {
		return Payload{Shape: ShapeEmpty}, nil
	}
	if nested, ok := data["cart"]; ok {
		if !present(nested) {
			return Payload{Shape: ShapeEmpty}, nil
		}
		return decodeAs(ShapeNestedData, nested)
	}
	for _, key := range cartKeys {
		if _, ok := data[key]; ok {
			return decodeAs(ShapeData, raw)
		}
	}
	return Payload{Shape: ShapeEmpty}, nil
}

func decodeAs(shape Shape, raw json.RawMessage) (Payload, error) {
	cart := &response.Cart{}
	if err := json.Unmarshal(raw, cart); err != nil {
		return Payload{}, fmt.Errorf("failed decoding cart with shape=%s with error=%w", shape, fmt.Errorf("%w: %w", commonErrors.ErrUpstreamMalformed, err))
	}
	dropped := normalize(cart)
	return Payload{Shape: shape, Cart: cart, Dropped: dropped}, nil
}

// normalize drops lines with quantity < 1 and returns how many it dropped.
// A nil items array stays nil so total item resolution can tell "absent"
// from "empty".
func normalize(cart *response.Cart) int {
	if cart.Items == nil {
		return 0
	}
	kept := cart.Items[:0]
	for _, item := range cart.Items {
		if item.Quantity < 1 {
			continue
		}
		kept = append(kept, item)
	}
	dropped := len(cart.Items) - len(kept)
	cart.Items = kept
	return dropped
}

func present(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && !bytes.Equal(raw, []byte("null"))
}

// decodeCoupons accepts a bare array, {"coupons": [...]}, {"data": [...]}
// and {"data": {"coupons": [...]}}.
func decodeCoupons(body []byte) ([]response.Coupon, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return []response.Coupon{}, nil
	}
	coupons := []response.Coupon{}
	if body[0] == '[' {
		if err := json.Unmarshal(body, &coupons); err != nil {
			return nil, fmt.Errorf("failed decoding coupons with error=%w", fmt.Errorf("%w: %w", commonErrors.ErrUpstreamMalformed, err))
		}
		return coupons, nil
	}

	envelope := map[string]json.RawMessage{}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("failed decoding coupons envelope with error=%w", fmt.Errorf("%w: %w", commonErrors.ErrUpstreamMalformed, err))
	}
	if raw, ok := envelope["coupons"]; ok && present(raw) {
		return decodeCouponList(raw)
	}
	if raw, ok := envelope["data"]; ok && present(raw) {
		return decodeCoupons(raw)
	}
	return coupons, nil
}

func decodeCouponList(raw json.RawMessage) ([]response.Coupon, error) {
	coupons := []response.Coupon{}
	if err := json.Unmarshal(raw, &coupons); err != nil {
		return nil, fmt.Errorf("failed decoding coupons with error=%w", fmt.Errorf("%w: %w", commonErrors.ErrUpstreamMalformed, err))
	}
	return coupons, nil
}
