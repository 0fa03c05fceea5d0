package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Alturino/storefront/cart/internal/otel"
	"github.com/Alturino/storefront/cart/pkg/request"
	"github.com/Alturino/storefront/cart/pkg/response"
	commonErrors "github.com/Alturino/storefront/internal/common/errors"
	"github.com/Alturino/storefront/internal/log"
	"github.com/Alturino/storefront/internal/upstream"
	taxRequest "github.com/Alturino/storefront/tax/pkg/request"
	taxResponse "github.com/Alturino/storefront/tax/pkg/response"
)

var (
	ErrInvalidQuantity     = errors.New("quantity must be at least 1")
	ErrShippingUnavailable = errors.New("shipping unavailable")
	ErrEmptyCouponCode     = errors.New("coupon code is required")
	ErrEmptyCart           = errors.New("cart is empty")
	ErrNoTaxEstimator      = errors.New("tax estimator not configured")
)

// CartAPI is the backend the store mirrors.
type CartAPI interface {
	GetCart(c context.Context, query request.CartQuery) (*response.Cart, error)
	AddItem(c context.Context, param request.AddToCart) error
	UpdateItem(c context.Context, itemID string, quantity int) error
	RemoveItem(c context.Context, itemID string) error
	ClearCart(c context.Context) error
	ApplyCoupon(c context.Context, code string) error
	RemoveCoupon(c context.Context) error
	AvailableCoupons(c context.Context) ([]response.Coupon, error)
	CalculateShipping(c context.Context, param request.CalculateShipping) (response.ShippingEstimate, error)
}

type TaxEstimator interface {
	CalculateCartTax(c context.Context, req taxRequest.CalculateTax) (taxResponse.CartTax, error)
}

type Option func(*Store)

func WithNotifier(n Notifier) Option {
	return func(s *Store) { s.notifier = n }
}

func WithTaxEstimator(e TaxEstimator) Option {
	return func(s *Store) { s.estimator = e }
}

// Store mirrors one shopper's server-side cart. Every mutation goes to the
// backend first and the cart is re-fetched afterwards; nothing is merged
// optimistically. Store is safe for concurrent use.
type Store struct {
	api       CartAPI
	persister Persister
	key       string
	notifier  Notifier
	estimator TaxEstimator

	hydrateOnce sync.Once
	hydrateErr  error

	// persistMu orders snapshot writes so the last write carries the
	// latest state. Never acquire it while holding mu.
	persistMu sync.Mutex

	mu              sync.RWMutex
	cart            *response.Cart
	totalItems      int
	deliveryPincode *string
	paymentMethod   *string
	coupons         []response.Coupon
	inFlight        int
	pendingRefresh  int
	// issued is the sequence of the newest fetch started, applied of the
	// newest fetch whose outcome reached state.
	issued  uint64
	applied uint64
}

func New(api CartAPI, persister Persister, session string, opts ...Option) *Store {
	if persister == nil {
		persister = NewMemoryPersister()
	}
	s := &Store{
		api:       api,
		persister: persister,
		key:       SnapshotKey(session),
		notifier:  LogNotifier{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Key() string {
	return s.key
}

// Hydrate restores the persisted snapshot. Only the first call reads
// storage; later calls return the first outcome.
func (s *Store) Hydrate(c context.Context) error {
	s.hydrateOnce.Do(func() {
		s.hydrateErr = s.hydrate(c)
	})
	return s.hydrateErr
}

func (s *Store) hydrate(c context.Context) error {
	c, span := otel.Tracer.Start(c, "Store Hydrate")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "Store Hydrate").
		Str(log.KeyCacheKey, s.key).
		Str(log.KeyProcess, "hydrating store").
		Logger()

	logger.Trace().Msg("hydrating store")
	snapshot, ok, err := s.persister.Load(c, s.key)
	if err != nil {
		err = fmt.Errorf("failed hydrating store with error=%w", err)
		commonErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	if !ok {
		logger.Trace().Msg("no snapshot to hydrate")
		return nil
	}

	s.mu.Lock()
	if s.applied == 0 && s.cart == nil && s.deliveryPincode == nil && s.paymentMethod == nil {
		s.setCartLocked(snapshot.Cart)
		s.deliveryPincode = copyString(snapshot.DeliveryPincode)
		s.paymentMethod = copyString(snapshot.PaymentMethod)
	}
	s.mu.Unlock()
	logger.Debug().Msg("hydrated store")
	return nil
}

// GetCart fetches the cart scoped to query. It fails soft: on error the cart
// becomes nil and nil is returned. A response is only applied when no fetch
// issued after it has been applied already.
func (s *Store) GetCart(c context.Context, query request.CartQuery) *response.Cart {
	s.mu.Lock()
	s.issued++
	seq := s.issued
	s.inFlight++
	s.mu.Unlock()

	c, span := otel.Tracer.Start(
		c,
		"Store GetCart",
		trace.WithAttributes(
			attribute.Int64(log.KeyFetchSequence, int64(seq)),
			attribute.String(log.KeyDeliveryPincode, query.DeliveryPincode),
			attribute.String(log.KeyPaymentMethod, query.PaymentMethod),
		),
	)
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "Store GetCart").
		Uint64(log.KeyFetchSequence, seq).
		Str(log.KeyDeliveryPincode, query.DeliveryPincode).
		Str(log.KeyPaymentMethod, query.PaymentMethod).
		Str(log.KeyProcess, "fetching cart").
		Logger()

	logger.Trace().Msg("fetching cart")
	cart, err := s.api.GetCart(c, query)

	s.mu.Lock()
	s.inFlight--
	if seq <= s.applied {
		applied := s.applied
		current := s.cart.Clone()
		s.mu.Unlock()
		fetchesTotal.WithLabelValues(outcomeStale).Inc()
		logger.Debug().Uint64("appliedSequence", applied).Msg("discarded stale cart response")
		return current
	}
	s.applied = seq
	if err != nil {
		s.setCartLocked(nil)
		s.mu.Unlock()
		fetchesTotal.WithLabelValues(outcomeFailed).Inc()
		err = fmt.Errorf("failed fetching cart with error=%w", err)
		commonErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		s.save(c)
		return nil
	}
	source := s.setCartLocked(cart)
	totalItems := s.totalItems
	current := s.cart.Clone()
	s.mu.Unlock()
	fetchesTotal.WithLabelValues(outcomeApplied).Inc()

	s.save(c)
	logger.Debug().
		Int(log.KeyCartTotalItems, totalItems).
		Str("totalItemsSource", string(source)).
		Msg("fetched cart")
	return current
}

// Refresh re-fetches the cart with the full current context, pincode and
// payment method together.
func (s *Store) Refresh(c context.Context) *response.Cart {
	return s.GetCart(c, s.query())
}

// AddToCart adds quantity units of product and re-fetches the cart.
func (s *Store) AddToCart(c context.Context, product request.Product, quantity int) (err error) {
	c, span := otel.Tracer.Start(
		c,
		"Store AddToCart",
		trace.WithAttributes(
			attribute.String(log.KeyProductID, product.ID),
			attribute.Int(log.KeyCartItemQuantity, quantity),
		),
	)
	defer span.End()
	defer func() { countMutation("add_to_cart", err) }()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "Store AddToCart").
		Str(log.KeyProductID, product.ID).
		Int(log.KeyCartItemQuantity, quantity).
		Logger()

	if quantity < 1 {
		err = fmt.Errorf("failed adding product with error=%w", ErrInvalidQuantity)
		commonErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		s.notifier.Error(c, errorMessage(err, "Failed to add item to cart"))
		return err
	}

	done := s.begin()
	defer done()

	logger = logger.With().Str(log.KeyProcess, "adding product").Logger()
	logger.Trace().Msg("adding product")
	if err = s.api.AddItem(c, request.AddToCart{Product: product, Quantity: quantity}); err != nil {
		err = fmt.Errorf("failed adding product with error=%w", err)
		commonErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		s.notifier.Error(c, errorMessage(err, "Failed to add item to cart"))
		return err
	}
	logger.Trace().Msg("added product")

	s.Refresh(c)
	s.notifier.Success(c, fmt.Sprintf("%s added to cart", productTitle(product)))
	return nil
}

// UpdateQuantity sets the quantity of a line. Quantities below 1 are
// rejected; callers route them to RemoveItem, as SetItemQuantity does.
func (s *Store) UpdateQuantity(c context.Context, itemID string, quantity int) (err error) {
	c, span := otel.Tracer.Start(
		c,
		"Store UpdateQuantity",
		trace.WithAttributes(
			attribute.String(log.KeyCartItemID, itemID),
			attribute.Int(log.KeyCartItemQuantity, quantity),
		),
	)
	defer span.End()
	defer func() { countMutation("update_quantity", err) }()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "Store UpdateQuantity").
		Str(log.KeyCartItemID, itemID).
		Int(log.KeyCartItemQuantity, quantity).
		Logger()

	if quantity < 1 {
		err = fmt.Errorf("failed updating quantity with error=%w", ErrInvalidQuantity)
		commonErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}

	done := s.begin()
	defer done()

	logger = logger.With().Str(log.KeyProcess, "updating quantity").Logger()
	logger.Trace().Msg("updating quantity")
	if err = s.api.UpdateItem(c, itemID, quantity); err != nil {
		err = fmt.Errorf("failed updating quantity with error=%w", err)
		commonErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		s.notifier.Error(c, errorMessage(err, "Failed to update quantity"))
		return err
	}
	logger.Trace().Msg("updated quantity")

	s.Refresh(c)
	return nil
}

// SetItemQuantity removes the line for quantities of 0 or less and updates
// it otherwise.
func (s *Store) SetItemQuantity(c context.Context, itemID string, quantity int) error {
	if quantity <= 0 {
		return s.RemoveItem(c, itemID)
	}
	return s.UpdateQuantity(c, itemID, quantity)
}

func (s *Store) RemoveItem(c context.Context, itemID string) (err error) {
	c, span := otel.Tracer.Start(c, "Store RemoveItem", trace.WithAttributes(attribute.String(log.KeyCartItemID, itemID)))
	defer span.End()
	defer func() { countMutation("remove_item", err) }()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "Store RemoveItem").
		Str(log.KeyCartItemID, itemID).
		Str(log.KeyProcess, "removing item").
		Logger()

	done := s.begin()
	defer done()

	logger.Trace().Msg("removing item")
	if err = s.api.RemoveItem(c, itemID); err != nil {
		err = fmt.Errorf("failed removing item with error=%w", err)
		commonErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		s.notifier.Error(c, errorMessage(err, "Failed to remove item"))
		return err
	}
	logger.Trace().Msg("removed item")

	s.Refresh(c)
	return nil
}

// ClearCart empties the cart on the backend and locally. No re-fetch
// follows; fetches still in flight are discarded.
func (s *Store) ClearCart(c context.Context) (err error) {
	c, span := otel.Tracer.Start(c, "Store ClearCart")
	defer span.End()
	defer func() { countMutation("clear_cart", err) }()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "Store ClearCart").
		Str(log.KeyProcess, "clearing cart").
		Logger()

	done := s.begin()
	defer done()

	logger.Trace().Msg("clearing cart")
	if err = s.api.ClearCart(c); err != nil {
		err = fmt.Errorf("failed clearing cart with error=%w", err)
		commonErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		s.notifier.Error(c, errorMessage(err, "Failed to clear cart"))
		return err
	}

	s.mu.Lock()
	s.applied = s.issued
	s.setCartLocked(nil)
	s.mu.Unlock()
	s.save(c)

	logger.Trace().Msg("cleared cart")
	return nil
}

// ApplyCoupon returns the backend's rejection, such as an unknown code or an
// unmet minimum order, as an error.
func (s *Store) ApplyCoupon(c context.Context, code string) (err error) {
	code = strings.TrimSpace(code)
	c, span := otel.Tracer.Start(c, "Store ApplyCoupon", trace.WithAttributes(attribute.String(log.KeyCouponCode, code)))
	defer span.End()
	defer func() { countMutation("apply_coupon", err) }()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "Store ApplyCoupon").
		Str(log.KeyCouponCode, code).
		Str(log.KeyProcess, "applying coupon").
		Logger()

	if code == "" {
		err = fmt.Errorf("failed applying coupon with error=%w", ErrEmptyCouponCode)
		commonErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}

	done := s.begin()
	defer done()

	logger.Trace().Msg("applying coupon")
	if err = s.api.ApplyCoupon(c, code); err != nil {
		err = fmt.Errorf("failed applying coupon with error=%w", err)
		commonErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		s.notifier.Error(c, errorMessage(err, "Failed to apply coupon"))
		return err
	}
	logger.Trace().Msg("applied coupon")

	s.Refresh(c)
	s.notifier.Success(c, fmt.Sprintf("Coupon %s applied", code))
	return nil
}

func (s *Store) RemoveCoupon(c context.Context) (err error) {
	c, span := otel.Tracer.Start(c, "Store RemoveCoupon")
	defer span.End()
	defer func() { countMutation("remove_coupon", err) }()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "Store RemoveCoupon").
		Str(log.KeyProcess, "removing coupon").
		Logger()

	done := s.begin()
	defer done()

	logger.Trace().Msg("removing coupon")
	if err = s.api.RemoveCoupon(c); err != nil {
		err = fmt.Errorf("failed removing coupon with error=%w", err)
		commonErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		s.notifier.Error(c, errorMessage(err, "Failed to remove coupon"))
		return err
	}
	logger.Trace().Msg("removed coupon")

	s.Refresh(c)
	return nil
}

// AvailableCoupons loads the coupons applicable to the cart. The list is
// kept in memory only.
func (s *Store) AvailableCoupons(c context.Context) ([]response.Coupon, error) {
	c, span := otel.Tracer.Start(c, "Store AvailableCoupons")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "Store AvailableCoupons").
		Str(log.KeyProcess, "fetching available coupons").
		Logger()

	logger.Trace().Msg("fetching available coupons")
	coupons, err := s.api.AvailableCoupons(c)
	if err != nil {
		err = fmt.Errorf("failed fetching available coupons with error=%w", err)
		commonErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return nil, err
	}

	s.mu.Lock()
	s.coupons = append([]response.Coupon{}, coupons...)
	s.mu.Unlock()

	logger.Trace().Int("count", len(coupons)).Msg("fetched available coupons")
	return coupons, nil
}

// CalculateShipping estimates shipping to pincode. On success the pincode is
// stored first and the cart is then re-fetched with the current payment
// method, so cash on delivery surcharges land in the new total.
func (s *Store) CalculateShipping(
	c context.Context,
	pincode string,
	pickupPincode string,
) (estimate response.ShippingEstimate, err error) {
	pincode = strings.TrimSpace(pincode)
	c, span := otel.Tracer.Start(
		c,
		"Store CalculateShipping",
		trace.WithAttributes(
			attribute.String(log.KeyDeliveryPincode, pincode),
			attribute.String(log.KeyPickupPincode, pickupPincode),
		),
	)
	defer span.End()
	defer func() { countMutation("calculate_shipping", err) }()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "Store CalculateShipping").
		Str(log.KeyDeliveryPincode, pincode).
		Str(log.KeyPickupPincode, pickupPincode).
		Logger()

	done := s.begin()
	defer done()

	logger = logger.With().Str(log.KeyProcess, "calculating shipping").Logger()
	logger.Trace().Msg("calculating shipping")
	estimate, err = s.api.CalculateShipping(c, request.CalculateShipping{Pincode: pincode, PickupPincode: pickupPincode})
	if err != nil {
		err = fmt.Errorf("failed calculating shipping with error=%w", err)
		commonErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		s.notifier.Error(c, errorMessage(err, "Failed to calculate shipping"))
		return response.ShippingEstimate{}, err
	}
	if !estimate.Success {
		message := estimate.Message
		if message == "" {
			message = "delivery is not available for this pincode"
		}
		err = fmt.Errorf("failed calculating shipping with error=%w", fmt.Errorf("%w: %s", ErrShippingUnavailable, message))
		commonErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		s.notifier.Error(c, message)
		return estimate, err
	}
	logger.Trace().Msg("calculated shipping")

	logger = logger.With().Str(log.KeyProcess, "storing delivery pincode").Logger()
	s.mu.Lock()
	s.deliveryPincode = &pincode
	s.pendingRefresh++
	s.mu.Unlock()
	s.save(c)
	logger.Trace().Msg("stored delivery pincode")

	s.refreshAfterContextChange(c)
	return estimate, nil
}

// SetPaymentMethod stores method, nil or blank clearing it, then re-fetches
// the cart with the current pincode and the new method.
func (s *Store) SetPaymentMethod(c context.Context, method *string) {
	if method != nil && strings.TrimSpace(*method) == "" {
		method = nil
	}
	method = copyString(method)

	c, span := otel.Tracer.Start(c, "Store SetPaymentMethod", trace.WithAttributes(attribute.String(log.KeyPaymentMethod, deref(method))))
	defer span.End()
	defer countMutation("set_payment_method", nil)

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "Store SetPaymentMethod").
		Str(log.KeyPaymentMethod, deref(method)).
		Str(log.KeyProcess, "storing payment method").
		Logger()

	done := s.begin()
	defer done()

	s.mu.Lock()
	s.paymentMethod = method
	s.pendingRefresh++
	s.mu.Unlock()
	s.save(c)
	logger.Trace().Msg("stored payment method")

	s.refreshAfterContextChange(c)
}

// EstimateTax runs the current cart through the tax estimator. It does not
// change store state.
func (s *Store) EstimateTax(c context.Context, state string, interState bool) (taxResponse.CartTax, error) {
	c, span := otel.Tracer.Start(
		c,
		"Store EstimateTax",
		trace.WithAttributes(attribute.String(log.KeyState, state), attribute.Bool(log.KeyInterState, interState)),
	)
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "Store EstimateTax").
		Str(log.KeyState, state).
		Bool(log.KeyInterState, interState).
		Str(log.KeyProcess, "estimating tax").
		Logger()

	if s.estimator == nil {
		err := fmt.Errorf("failed estimating tax with error=%w", ErrNoTaxEstimator)
		commonErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return taxResponse.CartTax{}, err
	}

	s.mu.RLock()
	req, ok := taxRequestFromCart(s.cart, s.deliveryPincode, state, interState)
	s.mu.RUnlock()
	if !ok {
		err := fmt.Errorf("failed estimating tax with error=%w", ErrEmptyCart)
		commonErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return taxResponse.CartTax{}, err
	}

	logger.Trace().Msg("estimating tax")
	result, err := s.estimator.CalculateCartTax(c, req)
	if err != nil {
		err = fmt.Errorf("failed estimating tax with error=%w", err)
		commonErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return taxResponse.CartTax{}, err
	}
	logger.Debug().Str(log.KeyTaxSource, string(result.Source)).Msg("estimated tax")
	return result, nil
}

// Reset drops all local state, used on logout and after an order is
// placed. Fetches still in flight are discarded.
func (s *Store) Reset(c context.Context) {
	c, span := otel.Tracer.Start(c, "Store Reset")
	defer span.End()

	s.mu.Lock()
	s.applied = s.issued
	s.setCartLocked(nil)
	s.deliveryPincode = nil
	s.paymentMethod = nil
	s.coupons = nil
	s.mu.Unlock()
	s.save(c)

	zerolog.Ctx(c).Debug().Str(log.KeyTag, "Store Reset").Msg("reset store")
}

func (s *Store) Cart() *response.Cart {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cart.Clone()
}

func (s *Store) TotalItems() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.totalItems
}

// Subtotal prefers the summary, then the cart subtotal, then the sum of
// line totals.
func (s *Store) Subtotal() decimal.Decimal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return subtotal(s.cart)
}

// ItemQuantity sums the quantity of every line holding productID.
func (s *Store) ItemQuantity(productID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.cart == nil {
		return 0
	}
	quantity := 0
	for _, item := range s.cart.Items {
		if item.ProductKey() == response.ID(productID) {
			quantity += item.Quantity
		}
	}
	return quantity
}

func (s *Store) DeliveryPincode() *string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyString(s.deliveryPincode)
}

func (s *Store) PaymentMethod() *string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyString(s.paymentMethod)
}

// Loading is true while any mutation or fetch is outstanding.
func (s *Store) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.inFlight > 0
}

// RefreshPending is true between a context change and the end of the
// re-fetch it triggered.
func (s *Store) RefreshPending() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pendingRefresh > 0
}

func (s *Store) Coupons() []response.Coupon {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]response.Coupon{}, s.coupons...)
}

type View struct {
	Cart            *response.Cart    `json:"cart"`
	TotalItems      int               `json:"total_items"`
	Subtotal        decimal.Decimal   `json:"subtotal"`
	DeliveryPincode *string           `json:"delivery_pincode"`
	PaymentMethod   *string           `json:"payment_method"`
	Loading         bool              `json:"loading"`
	RefreshPending  bool              `json:"refresh_pending"`
	Coupons         []response.Coupon `json:"available_coupons"`
}

// View is a consistent copy of everything the UI renders.
func (s *Store) View() View {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return View{
		Cart:            s.cart.Clone(),
		TotalItems:      s.totalItems,
		Subtotal:        subtotal(s.cart),
		DeliveryPincode: copyString(s.deliveryPincode),
		PaymentMethod:   copyString(s.paymentMethod),
		Loading:         s.inFlight > 0,
		RefreshPending:  s.pendingRefresh > 0,
		Coupons:         append([]response.Coupon{}, s.coupons...),
	}
}

func (s *Store) begin() func() {
	s.mu.Lock()
	s.inFlight++
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		s.inFlight--
		s.mu.Unlock()
	}
}

func (s *Store) refreshAfterContextChange(c context.Context) {
	defer func() {
		s.mu.Lock()
		s.pendingRefresh--
		s.mu.Unlock()
	}()
	s.Refresh(c)
}

func (s *Store) query() request.CartQuery {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return request.CartQuery{
		DeliveryPincode: deref(s.deliveryPincode),
		PaymentMethod:   deref(s.paymentMethod),
	}
}

// setCartLocked replaces the cart and its item count. An empty cart keeps
// no coupon.
func (s *Store) setCartLocked(cart *response.Cart) response.TotalItemsSource {
	if cart != nil && cart.Summary != nil && isEmpty(cart) {
		cart.Summary.CouponCode = nil
		cart.Summary.CouponDiscount = decimal.Zero
	}
	total, source := response.ResolveTotalItems(cart)
	if cart != nil {
		cart.TotalItems = total
	}
	s.cart = cart
	s.totalItems = total
	return source
}

// save writes the current state. Failures are logged; the in-memory state
// stays authoritative.
func (s *Store) save(c context.Context) {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	s.mu.RLock()
	snapshot := Snapshot{
		Cart:            s.cart.Clone(),
		DeliveryPincode: copyString(s.deliveryPincode),
		PaymentMethod:   copyString(s.paymentMethod),
	}
	s.mu.RUnlock()

	if err := s.persister.Save(c, s.key, snapshot); err != nil {
		zerolog.Ctx(c).Error().
			Err(err).
			Str(log.KeyTag, "Store save").
			Str(log.KeyCacheKey, s.key).
			Msg(err.Error())
	}
}

func taxRequestFromCart(
	cart *response.Cart,
	pincode *string,
	state string,
	interState bool,
) (taxRequest.CalculateTax, bool) {
	if cart == nil || len(cart.Items) == 0 {
		return taxRequest.CalculateTax{}, false
	}
	req := taxRequest.CalculateTax{
		Items:      make([]taxRequest.TaxItem, 0, len(cart.Items)),
		State:      state,
		InterState: interState,
		Pincode:    deref(pincode),
	}
	for _, item := range cart.Items {
		taxItem := taxRequest.TaxItem{
			ID:       item.ID.String(),
			Name:     "Item " + item.ProductKey().String(),
			Price:    item.Price,
			Quantity: item.Quantity,
		}
		if item.Product != nil {
			if item.Product.Title != "" {
				taxItem.Name = item.Product.Title
			}
			taxItem.TaxCategory = item.Product.TaxCategory
			taxItem.HSNCode = item.Product.HSNCode
		}
		req.Items = append(req.Items, taxItem)
	}
	if cart.Summary != nil {
		shipping := cart.Summary.ShippingCost
		req.ShippingCost = &shipping
	}
	return req, true
}

func subtotal(cart *response.Cart) decimal.Decimal {
	if cart == nil {
		return decimal.Zero
	}
	if cart.Summary != nil {
		return cart.Summary.Subtotal
	}
	if !cart.Subtotal.IsZero() {
		return cart.Subtotal
	}
	sum := decimal.Zero
	for _, item := range cart.Items {
		sum = sum.Add(item.LineTotal())
	}
	return sum
}

func isEmpty(cart *response.Cart) bool {
	if cart.Summary != nil && cart.Summary.IsEmpty {
		return true
	}
	return cart.Items != nil && len(cart.Items) == 0
}

func errorMessage(err error, fallback string) string {
	apiErr := &upstream.APIError{}
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	if errors.Is(err, ErrInvalidQuantity) {
		return "Quantity must be at least 1"
	}
	return fallback
}

func productTitle(product request.Product) string {
	if strings.TrimSpace(product.Title) != "" {
		return product.Title
	}
	return "Item"
}

func copyString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
