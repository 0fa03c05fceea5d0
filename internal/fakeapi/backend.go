// Package fakeapi is an in-memory stand-in for the storefront backend,
// served over httptest for tests.
package fakeapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
)

// Shapes the backend can wrap the cart in.
const (
	ShapeCart       = "cart"
	ShapeNestedData = "data.cart"
	ShapeData       = "data"
)

var (
	FlatShipping = decimal.NewFromInt(50)
	CODCharge    = decimal.NewFromInt(30)
)

type Product struct {
	ID          string
	Title       string
	Price       decimal.Decimal
	TaxCategory string
	HSNCode     string
}

type line struct {
	id       int
	product  Product
	quantity int
}

type Coupon struct {
	Code          string
	Percent       decimal.Decimal
	MinOrderValue decimal.Decimal
}

type Backend struct {
	mu       sync.Mutex
	products map[string]Product
	coupons  map[string]Coupon
	lines    []line
	nextID   int
	coupon   *Coupon
	shape    string
	// unserviceable pincodes answer success=false.
	unserviceable map[string]bool
	failures      map[string]int
	cartQueries   []url.Values
	requests      []*http.Request

	server *httptest.Server
}

func New() *Backend {
	b := &Backend{
		products: map[string]Product{
			"1": {ID: "1", Title: "The Go Programming Language", Price: decimal.NewFromInt(100), TaxCategory: "standard", HSNCode: "4901"},
			"2": {ID: "2", Title: "Notebook", Price: decimal.NewFromInt(40), TaxCategory: "reduced", HSNCode: "4820"},
		},
		coupons: map[string]Coupon{
			"SAVE10": {Code: "SAVE10", Percent: decimal.NewFromInt(10)},
			"BIG500": {Code: "BIG500", Percent: decimal.NewFromInt(20), MinOrderValue: decimal.NewFromInt(500)},
		},
		nextID:        1,
		shape:         ShapeCart,
		unserviceable: map[string]bool{"999999": true},
		failures:      map[string]int{},
	}

	router := mux.NewRouter()
	router.Use(b.record)
	router.HandleFunc("/cart", b.getCart).Methods(http.MethodGet)
	router.HandleFunc("/cart", b.clearCart).Methods(http.MethodDelete)
	router.HandleFunc("/cart/items", b.addItem).Methods(http.MethodPost)
	router.HandleFunc("/cart/items/{id}", b.updateItem).Methods(http.MethodPatch)
	router.HandleFunc("/cart/items/{id}", b.removeItem).Methods(http.MethodDelete)
	router.HandleFunc("/cart/coupon", b.applyCoupon).Methods(http.MethodPost)
	router.HandleFunc("/cart/coupon", b.removeCoupon).Methods(http.MethodDelete)
	router.HandleFunc("/cart/coupons/available", b.availableCoupons).Methods(http.MethodGet)
	router.HandleFunc("/shipping/calculate", b.calculateShipping).Methods(http.MethodPost)
	b.server = httptest.NewServer(router)
	return b
}

func (b *Backend) URL() string {
	return b.server.URL
}

func (b *Backend) Close() {
	b.server.Close()
}

// SetShape picks how GET /cart wraps the cart.
func (b *Backend) SetShape(shape string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.shape = shape
}

// Fail makes every request to route ("METHOD /path") answer status until
// Recover is called.
func (b *Backend) Fail(route string, status int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures[route] = status
}

func (b *Backend) Recover(route string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.failures, route)
}

// CartQueries returns the query of every GET /cart in arrival order.
func (b *Backend) CartQueries() []url.Values {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]url.Values, len(b.cartQueries))
	copy(out, b.cartQueries)
	return out
}

func (b *Backend) LastCartQuery() url.Values {
	queries := b.CartQueries()
	if len(queries) == 0 {
		return nil
	}
	return queries[len(queries)-1]
}

// Headers returns the headers of every request received.
func (b *Backend) Headers() []http.Header {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]http.Header, 0, len(b.requests))
	for _, r := range b.requests {
		out = append(out, r.Header.Clone())
	}
	return out
}

func (b *Backend) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route := r.Method + " " + r.URL.Path
		if tpl, err := mux.CurrentRoute(r).GetPathTemplate(); err == nil {
			route = r.Method + " " + tpl
		}

		b.mu.Lock()
		b.requests = append(b.requests, r)
		if r.Method == http.MethodGet && r.URL.Path == "/cart" {
			b.cartQueries = append(b.cartQueries, r.URL.Query())
		}
		status, failing := b.failures[route]
		b.mu.Unlock()

		if failing {
			writeJSON(w, status, map[string]interface{}{"detail": fmt.Sprintf("injected failure on %s", route)})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (b *Backend) getCart(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	cart := b.cartLocked(r.URL.Query())
	shape := b.shape
	b.mu.Unlock()

	switch shape {
	case ShapeNestedData:
		writeJSON(w, http.StatusOK, map[string]interface{}{"data": map[string]interface{}{"cart": cart}})
	case ShapeData:
		writeJSON(w, http.StatusOK, map[string]interface{}{"data": cart})
	default:
		writeJSON(w, http.StatusOK, map[string]interface{}{"cart": cart})
	}
}

func (b *Backend) addItem(w http.ResponseWriter, r *http.Request) {
	body := struct {
		ProductID json.Number `json:"product_id"`
		Quantity  int         `json:"quantity"`
	}{}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"detail": err.Error()})
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	product, ok := b.products[body.ProductID.String()]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]interface{}{"detail": "Product not found"})
		return
	}
	if body.Quantity < 1 {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{"detail": []map[string]string{{"msg": "quantity must be at least 1"}}})
		return
	}
	for i := range b.lines {
		if b.lines[i].product.ID == product.ID {
			b.lines[i].quantity += body.Quantity
			writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
			return
		}
	}
	b.lines = append(b.lines, line{id: b.nextID, product: product, quantity: body.Quantity})
	b.nextID++
	writeJSON(w, http.StatusCreated, map[string]interface{}{"success": true})
}

func (b *Backend) updateItem(w http.ResponseWriter, r *http.Request) {
	body := struct {
		Quantity int `json:"quantity"`
	}{}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"detail": err.Error()})
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	i := b.lineIndexLocked(mux.Vars(r)["id"])
	if i < 0 {
		writeJSON(w, http.StatusNotFound, map[string]interface{}{"detail": "Cart item not found"})
		return
	}
	// Mirrors a lenient backend that stores whatever it is sent.
	b.lines[i].quantity = body.Quantity
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

func (b *Backend) removeItem(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	i := b.lineIndexLocked(mux.Vars(r)["id"])
	if i < 0 {
		writeJSON(w, http.StatusNotFound, map[string]interface{}{"detail": "Cart item not found"})
		return
	}
	b.lines = append(b.lines[:i], b.lines[i+1:]...)
	if len(b.lines) == 0 {
		b.coupon = nil
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

func (b *Backend) clearCart(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lines = nil
	b.coupon = nil
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "message": "Cart cleared"})
}

func (b *Backend) applyCoupon(w http.ResponseWriter, r *http.Request) {
	body := struct {
		Code string `json:"code"`
	}{}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"detail": err.Error()})
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	coupon, ok := b.coupons[body.Code]
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"detail": "Invalid coupon code"})
		return
	}
	if b.subtotalLocked().LessThan(coupon.MinOrderValue) {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success": false,
			"message": fmt.Sprintf("Minimum order value of %s not met", coupon.MinOrderValue.String()),
		})
		return
	}
	b.coupon = &coupon
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

func (b *Backend) removeCoupon(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.coupon = nil
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

func (b *Backend) availableCoupons(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	coupons := []map[string]interface{}{}
	for _, code := range []string{"SAVE10", "BIG500"} {
		coupon := b.coupons[code]
		coupons = append(coupons, map[string]interface{}{
			"code":            coupon.Code,
			"discount_type":   "percentage",
			"discount_value":  coupon.Percent,
			"min_order_value": coupon.MinOrderValue,
		})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"data": map[string]interface{}{"coupons": coupons}})
}

func (b *Backend) calculateShipping(w http.ResponseWriter, r *http.Request) {
	body := struct {
		Pincode       string `json:"pincode"`
		PickupPincode string `json:"pickup_pincode"`
	}{}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"detail": err.Error()})
		return
	}

	b.mu.Lock()
	unserviceable := b.unserviceable[body.Pincode]
	b.mu.Unlock()
	if unserviceable {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success": false,
			"message": "Delivery not available for pincode " + body.Pincode,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"summary": map[string]interface{}{
			"pincode":        body.Pincode,
			"pickup_pincode": body.PickupPincode,
			"shipping_cost":  FlatShipping,
			"cod_charge":     CODCharge,
			"courier":        "Delhivery",
			"estimated_days": 3,
			"serviceable":    true,
		},
	})
}

func (b *Backend) cartLocked(query url.Values) map[string]interface{} {
	items := make([]map[string]interface{}, 0, len(b.lines))
	totalItems := 0
	for _, l := range b.lines {
		lineTotal := l.product.Price.Mul(decimal.NewFromInt(int64(l.quantity)))
		productID, _ := strconv.Atoi(l.product.ID)
		items = append(items, map[string]interface{}{
			"id":         l.id,
			"product_id": productID,
			"product": map[string]interface{}{
				"id":           productID,
				"title":        l.product.Title,
				"tax_category": l.product.TaxCategory,
				"hsn_code":     l.product.HSNCode,
			},
			"quantity": l.quantity,
			"price":    l.product.Price,
			"total":    lineTotal,
		})
		totalItems += l.quantity
	}

	subtotal := b.subtotalLocked()
	discount := decimal.Zero
	var couponCode interface{}
	if b.coupon != nil {
		discount = subtotal.Mul(b.coupon.Percent).Div(decimal.NewFromInt(100)).Round(2)
		couponCode = b.coupon.Code
	}
	shipping := decimal.Zero
	if query.Get("delivery_pincode") != "" && len(b.lines) > 0 {
		shipping = FlatShipping
	}
	if query.Get("payment_method") == "cod" && len(b.lines) > 0 {
		shipping = shipping.Add(CODCharge)
	}
	discounted := subtotal.Sub(discount)

	return map[string]interface{}{
		"id":       42,
		"user_id":  nil,
		"items":    items,
		"subtotal": subtotal,
		"summary": map[string]interface{}{
			"total_items":         totalItems,
			"subtotal":            subtotal,
			"coupon_code":         couponCode,
			"coupon_discount":     discount,
			"free_shipping":       false,
			"discounted_subtotal": discounted,
			"tax_amount":          decimal.Zero,
			"shipping_cost":       shipping,
			"grand_total":         discounted.Add(shipping),
			"currency":            "INR",
			"is_empty":            len(b.lines) == 0,
		},
	}
}

func (b *Backend) subtotalLocked() decimal.Decimal {
	subtotal := decimal.Zero
	for _, l := range b.lines {
		subtotal = subtotal.Add(l.product.Price.Mul(decimal.NewFromInt(int64(l.quantity))))
	}
	return subtotal
}

func (b *Backend) lineIndexLocked(id string) int {
	for i, l := range b.lines {
		if strconv.Itoa(l.id) == id {
			return i
		}
	}
	return -1
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
