package controller

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Alturino/storefront/cart/pkg/request"
	"github.com/Alturino/storefront/cart/pkg/store"
	commonErrors "github.com/Alturino/storefront/internal/common/errors"
	"github.com/Alturino/storefront/internal/common/otel"
	"github.com/Alturino/storefront/internal/common/response"
	"github.com/Alturino/storefront/internal/log"
	"github.com/Alturino/storefront/internal/middleware"
)

type CartController struct {
	registry *Registry
}

func AttachCartController(router *mux.Router, registry *Registry) {
	controller := CartController{registry: registry}

	router.HandleFunc("/cart", controller.GetCart).Methods(http.MethodGet)
	router.HandleFunc("/cart", controller.ClearCart).Methods(http.MethodDelete)
	router.HandleFunc("/cart/items", controller.AddItem).Methods(http.MethodPost)
	router.HandleFunc("/cart/items/{itemId}", controller.UpdateItem).Methods(http.MethodPatch)
	router.HandleFunc("/cart/items/{itemId}", controller.RemoveItem).Methods(http.MethodDelete)
	router.HandleFunc("/cart/coupon", controller.ApplyCoupon).Methods(http.MethodPost)
	router.HandleFunc("/cart/coupon", controller.RemoveCoupon).Methods(http.MethodDelete)
	router.HandleFunc("/cart/coupons/available", controller.AvailableCoupons).Methods(http.MethodGet)
	router.HandleFunc("/cart/payment-method", controller.SetPaymentMethod).Methods(http.MethodPut)
	router.HandleFunc("/cart/tax-estimate", controller.EstimateTax).Methods(http.MethodPost)
	router.HandleFunc("/cart/reset", controller.Reset).Methods(http.MethodPost)
	router.HandleFunc("/shipping/calculate", controller.CalculateShipping).Methods(http.MethodPost)
}

func (t CartController) GetCart(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "CartController GetCart")
	defer span.End()
	c, recorder := store.WithRecorder(c)

	query := request.CartQuery{
		DeliveryPincode: r.URL.Query().Get("delivery_pincode"),
		PaymentMethod:   r.URL.Query().Get("payment_method"),
	}
	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "CartController GetCart").
		Str(log.KeyDeliveryPincode, query.DeliveryPincode).
		Str(log.KeyPaymentMethod, query.PaymentMethod).
		Logger()

	s, release, err := t.storeFor(c)
	if err != nil {
		fail(c, w, span, logger, err)
		return
	}
	defer release()

	logger = logger.With().Str(log.KeyProcess, "fetching cart").Logger()
	logger.Info().Msg("fetching cart")
	c = logger.WithContext(c)
	if query.DeliveryPincode == "" && query.PaymentMethod == "" {
		s.Refresh(c)
	} else {
		s.GetCart(c, query)
	}
	logger.Info().Msg("fetched cart")

	writeView(c, w, "cart fetched", s, recorder, nil)
}

func (t CartController) AddItem(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "CartController AddItem")
	defer span.End()
	c, recorder := store.WithRecorder(c)

	logger := zerolog.Ctx(c).With().Str(log.KeyTag, "CartController AddItem").Logger()

	logger = logger.With().Str(log.KeyProcess, "decoding request body").Logger()
	logger.Info().Msg("decoding request body")
	reqBody := request.AddToCart{Quantity: 1}
	if err := decode(r, &reqBody, true); err != nil {
		fail(c, w, span, logger, err)
		return
	}
	logger = logger.With().
		Str(log.KeyProductID, reqBody.ID).
		Int(log.KeyCartItemQuantity, reqBody.Quantity).
		Logger()
	logger.Info().Msg("decoded request body")

	s, release, err := t.storeFor(c)
	if err != nil {
		fail(c, w, span, logger, err)
		return
	}
	defer release()

	logger = logger.With().Str(log.KeyProcess, "adding item").Logger()
	logger.Info().Msg("adding item")
	c = logger.WithContext(c)
	if err := s.AddToCart(c, reqBody.Product, reqBody.Quantity); err != nil {
		failWithNotifications(c, w, span, logger, err, recorder)
		return
	}
	logger.Info().Msg("added item")

	writeView(c, w, "item added to cart", s, recorder, nil)
}

// UpdateItem sets a line's quantity; 0 or less removes the line.
func (t CartController) UpdateItem(w http.ResponseWriter, r *http.Request) {
	itemID := mux.Vars(r)["itemId"]
	c, span := otel.Tracer.Start(r.Context(), "CartController UpdateItem", trace.WithAttributes(attribute.String(log.KeyCartItemID, itemID)))
	defer span.End()
	c, recorder := store.WithRecorder(c)

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "CartController UpdateItem").
		Str(log.KeyCartItemID, itemID).
		Logger()

	logger = logger.With().Str(log.KeyProcess, "decoding request body").Logger()
	reqBody := request.UpdateQuantity{}
	if err := decode(r, &reqBody, false); err != nil {
		fail(c, w, span, logger, err)
		return
	}
	logger = logger.With().Int(log.KeyCartItemQuantity, reqBody.Quantity).Logger()

	s, release, err := t.storeFor(c)
	if err != nil {
		fail(c, w, span, logger, err)
		return
	}
	defer release()

	logger = logger.With().Str(log.KeyProcess, "setting item quantity").Logger()
	logger.Info().Msg("setting item quantity")
	c = logger.WithContext(c)
	if err := s.SetItemQuantity(c, itemID, reqBody.Quantity); err != nil {
		failWithNotifications(c, w, span, logger, err, recorder)
		return
	}
	logger.Info().Msg("set item quantity")

	writeView(c, w, "cart item updated", s, recorder, nil)
}

func (t CartController) RemoveItem(w http.ResponseWriter, r *http.Request) {
	itemID := mux.Vars(r)["itemId"]
	c, span := otel.Tracer.Start(r.Context(), "CartController RemoveItem", trace.WithAttributes(attribute.String(log.KeyCartItemID, itemID)))
	defer span.End()
	c, recorder := store.WithRecorder(c)

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "CartController RemoveItem").
		Str(log.KeyCartItemID, itemID).
		Logger()

	s, release, err := t.storeFor(c)
	if err != nil {
		fail(c, w, span, logger, err)
		return
	}
	defer release()

	logger = logger.With().Str(log.KeyProcess, "removing item").Logger()
	logger.Info().Msg("removing item")
	c = logger.WithContext(c)
	if err := s.RemoveItem(c, itemID); err != nil {
		failWithNotifications(c, w, span, logger, err, recorder)
		return
	}
	logger.Info().Msg("removed item")

	writeView(c, w, "cart item removed", s, recorder, nil)
}

func (t CartController) ClearCart(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "CartController ClearCart")
	defer span.End()
	c, recorder := store.WithRecorder(c)

	logger := zerolog.Ctx(c).With().Str(log.KeyTag, "CartController ClearCart").Logger()

	s, release, err := t.storeFor(c)
	if err != nil {
		fail(c, w, span, logger, err)
		return
	}
	defer release()

	logger = logger.With().Str(log.KeyProcess, "clearing cart").Logger()
	logger.Info().Msg("clearing cart")
	c = logger.WithContext(c)
	if err := s.ClearCart(c); err != nil {
		failWithNotifications(c, w, span, logger, err, recorder)
		return
	}
	logger.Info().Msg("cleared cart")

	writeView(c, w, "cart cleared", s, recorder, nil)
}

func (t CartController) ApplyCoupon(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "CartController ApplyCoupon")
	defer span.End()
	c, recorder := store.WithRecorder(c)

	logger := zerolog.Ctx(c).With().Str(log.KeyTag, "CartController ApplyCoupon").Logger()

	logger = logger.With().Str(log.KeyProcess, "decoding request body").Logger()
	reqBody := request.ApplyCoupon{}
	if err := decode(r, &reqBody, true); err != nil {
		fail(c, w, span, logger, err)
		return
	}
	logger = logger.With().Str(log.KeyCouponCode, reqBody.Code).Logger()

	s, release, err := t.storeFor(c)
	if err != nil {
		fail(c, w, span, logger, err)
		return
	}
	defer release()

	logger = logger.With().Str(log.KeyProcess, "applying coupon").Logger()
	logger.Info().Msg("applying coupon")
	c = logger.WithContext(c)
	if err := s.ApplyCoupon(c, reqBody.Code); err != nil {
		failWithNotifications(c, w, span, logger, err, recorder)
		return
	}
	logger.Info().Msg("applied coupon")

	writeView(c, w, "coupon applied", s, recorder, nil)
}

func (t CartController) RemoveCoupon(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "CartController RemoveCoupon")
	defer span.End()
	c, recorder := store.WithRecorder(c)

	logger := zerolog.Ctx(c).With().Str(log.KeyTag, "CartController RemoveCoupon").Logger()

	s, release, err := t.storeFor(c)
	if err != nil {
		fail(c, w, span, logger, err)
		return
	}
	defer release()

	logger = logger.With().Str(log.KeyProcess, "removing coupon").Logger()
	logger.Info().Msg("removing coupon")
	c = logger.WithContext(c)
	if err := s.RemoveCoupon(c); err != nil {
		failWithNotifications(c, w, span, logger, err, recorder)
		return
	}
	logger.Info().Msg("removed coupon")

	writeView(c, w, "coupon removed", s, recorder, nil)
}

func (t CartController) AvailableCoupons(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "CartController AvailableCoupons")
	defer span.End()

	logger := zerolog.Ctx(c).With().Str(log.KeyTag, "CartController AvailableCoupons").Logger()

	s, release, err := t.storeFor(c)
	if err != nil {
		fail(c, w, span, logger, err)
		return
	}
	defer release()

	logger = logger.With().Str(log.KeyProcess, "fetching available coupons").Logger()
	logger.Info().Msg("fetching available coupons")
	coupons, err := s.AvailableCoupons(logger.WithContext(c))
	if err != nil {
		fail(c, w, span, logger, err)
		return
	}
	logger.Info().Msg("fetched available coupons")

	response.WriteSuccess(c, w, map[string]string{}, "available coupons fetched", map[string]interface{}{
		"coupons": coupons,
	})
}

func (t CartController) CalculateShipping(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "CartController CalculateShipping")
	defer span.End()
	c, recorder := store.WithRecorder(c)

	logger := zerolog.Ctx(c).With().Str(log.KeyTag, "CartController CalculateShipping").Logger()

	logger = logger.With().Str(log.KeyProcess, "decoding request body").Logger()
	reqBody := request.CalculateShipping{}
	if err := decode(r, &reqBody, true); err != nil {
		fail(c, w, span, logger, err)
		return
	}
	logger = logger.With().
		Str(log.KeyDeliveryPincode, reqBody.Pincode).
		Str(log.KeyPickupPincode, reqBody.PickupPincode).
		Logger()

	s, release, err := t.storeFor(c)
	if err != nil {
		fail(c, w, span, logger, err)
		return
	}
	defer release()

	logger = logger.With().Str(log.KeyProcess, "calculating shipping").Logger()
	logger.Info().Msg("calculating shipping")
	c = logger.WithContext(c)
	estimate, err := s.CalculateShipping(c, reqBody.Pincode, reqBody.PickupPincode)
	if err != nil {
		failWithNotifications(c, w, span, logger, err, recorder)
		return
	}
	logger.Info().Msg("calculated shipping")

	writeView(c, w, "shipping calculated", s, recorder, map[string]interface{}{"shipping": estimate})
}

func (t CartController) SetPaymentMethod(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "CartController SetPaymentMethod")
	defer span.End()
	c, recorder := store.WithRecorder(c)

	logger := zerolog.Ctx(c).With().Str(log.KeyTag, "CartController SetPaymentMethod").Logger()

	logger = logger.With().Str(log.KeyProcess, "decoding request body").Logger()
	reqBody := request.SetPaymentMethod{}
	if err := decode(r, &reqBody, false); err != nil {
		fail(c, w, span, logger, err)
		return
	}

	s, release, err := t.storeFor(c)
	if err != nil {
		fail(c, w, span, logger, err)
		return
	}
	defer release()

	logger = logger.With().Str(log.KeyProcess, "setting payment method").Logger()
	logger.Info().Msg("setting payment method")
	s.SetPaymentMethod(logger.WithContext(c), reqBody.Method)
	logger.Info().Msg("set payment method")

	writeView(c, w, "payment method set", s, recorder, nil)
}

func (t CartController) EstimateTax(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "CartController EstimateTax")
	defer span.End()

	logger := zerolog.Ctx(c).With().Str(log.KeyTag, "CartController EstimateTax").Logger()

	logger = logger.With().Str(log.KeyProcess, "decoding request body").Logger()
	reqBody := request.EstimateTax{}
	if err := decode(r, &reqBody, true); err != nil {
		fail(c, w, span, logger, err)
		return
	}
	logger = logger.With().
		Str(log.KeyState, reqBody.State).
		Bool(log.KeyInterState, reqBody.InterState).
		Logger()

	s, release, err := t.storeFor(c)
	if err != nil {
		fail(c, w, span, logger, err)
		return
	}
	defer release()

	logger = logger.With().Str(log.KeyProcess, "estimating tax").Logger()
	logger.Info().Msg("estimating tax")
	tax, err := s.EstimateTax(logger.WithContext(c), reqBody.State, reqBody.InterState)
	if err != nil {
		fail(c, w, span, logger, err)
		return
	}
	logger.Info().Str(log.KeyTaxSource, string(tax.Source)).Msg("estimated tax")

	response.WriteSuccess(c, w, map[string]string{}, "tax estimated", map[string]interface{}{
		"tax": tax,
	})
}

// Reset drops the session's local cart state after logout or checkout.
func (t CartController) Reset(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "CartController Reset")
	defer span.End()
	c, recorder := store.WithRecorder(c)

	logger := zerolog.Ctx(c).With().Str(log.KeyTag, "CartController Reset").Logger()

	s, release, err := t.storeFor(c)
	if err != nil {
		fail(c, w, span, logger, err)
		return
	}
	defer release()

	logger = logger.With().Str(log.KeyProcess, "resetting store").Logger()
	logger.Info().Msg("resetting store")
	s.Reset(logger.WithContext(c))
	logger.Info().Msg("reset store")

	writeView(c, w, "cart state reset", s, recorder, nil)
}

func (t CartController) storeFor(c context.Context) (*store.Store, func(), error) {
	session, ok := middleware.SessionFromContext(c)
	if !ok || session.Key == "" {
		return nil, nil, fmt.Errorf("failed resolving session with error=%w", commonErrors.ErrEmptySession)
	}
	return t.registry.Get(c, session.Key)
}

func writeView(
	c context.Context,
	w http.ResponseWriter,
	message string,
	s *store.Store,
	recorder *store.Recorder,
	extra map[string]interface{},
) {
	data := map[string]interface{}{
		"cart":          s.View(),
		"notifications": recorder.Notifications(),
	}
	for k, v := range extra {
		data[k] = v
	}
	response.WriteSuccess(c, w, map[string]string{}, message, data)
}

func fail(c context.Context, w http.ResponseWriter, span trace.Span, logger zerolog.Logger, err error) {
	commonErrors.HandleError(err, span)
	logger.Error().Err(err).Msg(err.Error())
	response.WriteFailed(c, w, statusCode(err), err)
}

func failWithNotifications(
	c context.Context,
	w http.ResponseWriter,
	span trace.Span,
	logger zerolog.Logger,
	err error,
	recorder *store.Recorder,
) {
	commonErrors.HandleError(err, span)
	logger.Error().Err(err).Msg(err.Error())
	response.WriteFailedWithData(c, w, statusCode(err), err, map[string]interface{}{
		"notifications": recorder.Notifications(),
	})
}
