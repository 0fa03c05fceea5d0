package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Alturino/storefront/cart/internal/otel"
	"github.com/Alturino/storefront/cart/pkg/request"
	"github.com/Alturino/storefront/cart/pkg/response"
	commonErrors "github.com/Alturino/storefront/internal/common/errors"
	"github.com/Alturino/storefront/internal/log"
	"github.com/Alturino/storefront/internal/upstream"
)

// Client talks to the backend cart endpoints. It is safe for concurrent
// use; WithCredentials returns an independent copy.
type Client struct {
	api *upstream.Client
}

func New(baseURL string, httpClient *http.Client) *Client {
	return &Client{api: upstream.New(baseURL, httpClient)}
}

func (cl *Client) WithCredentials(creds Credentials) *Client {
	return &Client{api: cl.api.WithCredentials(creds)}
}

func (cl *Client) GetCart(c context.Context, query request.CartQuery) (*response.Cart, error) {
	c, span := otel.Tracer.Start(
		c,
		"Client GetCart",
		trace.WithAttributes(
			attribute.String(log.KeyDeliveryPincode, query.DeliveryPincode),
			attribute.String(log.KeyPaymentMethod, query.PaymentMethod),
		),
	)
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "Client GetCart").
		Str(log.KeyDeliveryPincode, query.DeliveryPincode).
		Str(log.KeyPaymentMethod, query.PaymentMethod).
		Logger()

	values := url.Values{}
	if query.DeliveryPincode != "" {
		values.Set("delivery_pincode", query.DeliveryPincode)
	}
	if query.PaymentMethod != "" {
		values.Set("payment_method", query.PaymentMethod)
	}

	logger = logger.With().Str(log.KeyProcess, "fetching cart").Logger()
	logger.Trace().Msg("fetching cart")
	resp, err := cl.api.Do(c, upstream.Request{Method: http.MethodGet, Path: "/cart", Query: values})
	if err != nil {
		err = fmt.Errorf("failed fetching cart with error=%w", err)
		commonErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return nil, err
	}
	logger.Trace().Msg("fetched cart")

	logger = logger.With().Str(log.KeyProcess, "normalizing cart").Logger()
	payload, err := DecodeCart(resp.Body)
	if err != nil {
		commonErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.String(log.KeyCartShape, string(payload.Shape)))
	if payload.Dropped > 0 {
		logger.Warn().
			Int("dropped", payload.Dropped).
			Msgf("dropped %d cart lines with quantity below 1", payload.Dropped)
	}
	logger.Debug().Str(log.KeyCartShape, string(payload.Shape)).Msg("normalized cart")

	return payload.Cart, nil
}

func (cl *Client) AddItem(c context.Context, param request.AddToCart) error {
	c, span := otel.Tracer.Start(
		c,
		"Client AddItem",
		trace.WithAttributes(
			attribute.String(log.KeyProductID, param.ID),
			attribute.Int(log.KeyCartItemQuantity, param.Quantity),
		),
	)
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "Client AddItem").
		Str(log.KeyProductID, param.ID).
		Int(log.KeyCartItemQuantity, param.Quantity).
		Str(log.KeyProcess, "adding item").
		Logger()

	logger.Trace().Msg("adding item")
	if err := cl.mutate(c, upstream.Request{Method: http.MethodPost, Path: "/cart/items", Body: param}); err != nil {
		err = fmt.Errorf("failed adding item with error=%w", err)
		commonErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	logger.Trace().Msg("added item")
	return nil
}

func (cl *Client) UpdateItem(c context.Context, itemID string, quantity int) error {
	c, span := otel.Tracer.Start(
		c,
		"Client UpdateItem",
		trace.WithAttributes(
			attribute.String(log.KeyCartItemID, itemID),
			attribute.Int(log.KeyCartItemQuantity, quantity),
		),
	)
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "Client UpdateItem").
		Str(log.KeyCartItemID, itemID).
		Int(log.KeyCartItemQuantity, quantity).
		Str(log.KeyProcess, "updating item").
		Logger()

	logger.Trace().Msg("updating item")
	err := cl.mutate(c, upstream.Request{
		Method: http.MethodPatch,
		Path:   "/cart/items/" + url.PathEscape(itemID),
		Body:   request.UpdateQuantity{Quantity: quantity},
	})
	if err != nil {
		err = fmt.Errorf("failed updating item with error=%w", err)
		commonErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	logger.Trace().Msg("updated item")
	return nil
}

func (cl *Client) RemoveItem(c context.Context, itemID string) error {
	c, span := otel.Tracer.Start(c, "Client RemoveItem", trace.WithAttributes(attribute.String(log.KeyCartItemID, itemID)))
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "Client RemoveItem").
		Str(log.KeyCartItemID, itemID).
		Str(log.KeyProcess, "removing item").
		Logger()

	logger.Trace().Msg("removing item")
	err := cl.mutate(c, upstream.Request{Method: http.MethodDelete, Path: "/cart/items/" + url.PathEscape(itemID)})
	if err != nil {
		err = fmt.Errorf("failed removing item with error=%w", err)
		commonErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	logger.Trace().Msg("removed item")
	return nil
}

func (cl *Client) ClearCart(c context.Context) error {
	c, span := otel.Tracer.Start(c, "Client ClearCart")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "Client ClearCart").
		Str(log.KeyProcess, "clearing cart").
		Logger()

	logger.Trace().Msg("clearing cart")
	if err := cl.mutate(c, upstream.Request{Method: http.MethodDelete, Path: "/cart"}); err != nil {
		err = fmt.Errorf("failed clearing cart with error=%w", err)
		commonErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	logger.Trace().Msg("cleared cart")
	return nil
}

func (cl *Client) ApplyCoupon(c context.Context, code string) error {
	c, span := otel.Tracer.Start(c, "Client ApplyCoupon", trace.WithAttributes(attribute.String(log.KeyCouponCode, code)))
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "Client ApplyCoupon").
		Str(log.KeyCouponCode, code).
		Str(log.KeyProcess, "applying coupon").
		Logger()

	logger.Trace().Msg("applying coupon")
	err := cl.mutate(c, upstream.Request{Method: http.MethodPost, Path: "/cart/coupon", Body: request.ApplyCoupon{Code: code}})
	if err != nil {
		err = fmt.Errorf("failed applying coupon with error=%w", err)
		commonErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	logger.Trace().Msg("applied coupon")
	return nil
}

func (cl *Client) RemoveCoupon(c context.Context) error {
	c, span := otel.Tracer.Start(c, "Client RemoveCoupon")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "Client RemoveCoupon").
		Str(log.KeyProcess, "removing coupon").
		Logger()

	logger.Trace().Msg("removing coupon")
	if err := cl.mutate(c, upstream.Request{Method: http.MethodDelete, Path: "/cart/coupon"}); err != nil {
		err = fmt.Errorf("failed removing coupon with error=%w", err)
		commonErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	logger.Trace().Msg("removed coupon")
	return nil
}

func (cl *Client) AvailableCoupons(c context.Context) ([]response.Coupon, error) {
	c, span := otel.Tracer.Start(c, "Client AvailableCoupons")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "Client AvailableCoupons").
		Str(log.KeyProcess, "fetching available coupons").
		Logger()

	logger.Trace().Msg("fetching available coupons")
	resp, err := cl.api.Do(c, upstream.Request{Method: http.MethodGet, Path: "/cart/coupons/available"})
	if err != nil {
		err = fmt.Errorf("failed fetching available coupons with error=%w", err)
		commonErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return nil, err
	}
	coupons, err := decodeCoupons(resp.Body)
	if err != nil {
		commonErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return nil, err
	}
	logger.Trace().Int("count", len(coupons)).Msg("fetched available coupons")
	return coupons, nil
}

func (cl *Client) CalculateShipping(
	c context.Context,
	param request.CalculateShipping,
) (response.ShippingEstimate, error) {
	c, span := otel.Tracer.Start(
		c,
		"Client CalculateShipping",
		trace.WithAttributes(
			attribute.String(log.KeyDeliveryPincode, param.Pincode),
			attribute.String(log.KeyPickupPincode, param.PickupPincode),
		),
	)
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "Client CalculateShipping").
		Str(log.KeyDeliveryPincode, param.Pincode).
		Str(log.KeyPickupPincode, param.PickupPincode).
		Str(log.KeyProcess, "calculating shipping").
		Logger()

	logger.Trace().Msg("calculating shipping")
	estimate := response.ShippingEstimate{}
	err := cl.api.DoJSON(c, upstream.Request{Method: http.MethodPost, Path: "/shipping/calculate", Body: param}, &estimate)
	if err != nil {
		err = fmt.Errorf("failed calculating shipping with error=%w", err)
		commonErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.ShippingEstimate{}, err
	}
	logger.Trace().Bool("success", estimate.Success).Msg("calculated shipping")
	return estimate, nil
}

func (cl *Client) mutate(c context.Context, req upstream.Request) error {
	resp, err := cl.api.Do(c, req)
	if err != nil {
		return err
	}
	return upstream.CheckAck(resp)
}
