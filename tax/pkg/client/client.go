package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	commonErrors "github.com/Alturino/storefront/internal/common/errors"
	"github.com/Alturino/storefront/internal/log"
	"github.com/Alturino/storefront/internal/upstream"
	"github.com/Alturino/storefront/tax/internal/otel"
	"github.com/Alturino/storefront/tax/pkg/request"
	"github.com/Alturino/storefront/tax/pkg/response"
)

// Client calls the backend tax endpoints.
type Client struct {
	api *upstream.Client
}

func New(baseURL string, httpClient *http.Client) *Client {
	return &Client{api: upstream.New(baseURL, httpClient)}
}

func (cl *Client) CalculateCartTax(c context.Context, req request.CalculateTax) (response.CartTax, error) {
	c, span := otel.Tracer.Start(
		c,
		"Client CalculateCartTax",
		trace.WithAttributes(
			attribute.String(log.KeyState, req.State),
			attribute.Bool(log.KeyInterState, req.InterState),
		),
	)
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "Client CalculateCartTax").
		Str(log.KeyState, req.State).
		Bool(log.KeyInterState, req.InterState).
		Str(log.KeyProcess, "calculating cart tax").
		Logger()

	logger.Trace().Msg("calculating cart tax")
	result := response.CartTax{}
	if err := cl.fetch(c, upstream.Request{Method: http.MethodPost, Path: "/tax/calculate", Body: req}, &result, "totals", "items"); err != nil {
		err = fmt.Errorf("failed calculating cart tax with error=%w", err)
		commonErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.CartTax{}, err
	}
	result.Source = response.SourceRemote
	logger.Trace().Msg("calculated cart tax")
	return result, nil
}

func (cl *Client) GetStateTaxRates(c context.Context, state string) (response.StateRates, error) {
	c, span := otel.Tracer.Start(c, "Client GetStateTaxRates", trace.WithAttributes(attribute.String(log.KeyState, state)))
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "Client GetStateTaxRates").
		Str(log.KeyState, state).
		Str(log.KeyProcess, "fetching state tax rates").
		Logger()

	logger.Trace().Msg("fetching state tax rates")
	result := response.StateRates{}
	req := upstream.Request{Method: http.MethodGet, Path: "/tax/rates/" + url.PathEscape(state)}
	if err := cl.fetch(c, req, &result, "rates", "state"); err != nil {
		err = fmt.Errorf("failed fetching state tax rates with error=%w", err)
		commonErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.StateRates{}, err
	}
	if result.State == "" {
		result.State = state
	}
	result.Source = response.SourceRemote
	logger.Trace().Msg("fetched state tax rates")
	return result, nil
}

func (cl *Client) GetHSNTaxBreakdown(c context.Context, req request.HSNBreakdown) (response.HSNBreakdown, error) {
	c, span := otel.Tracer.Start(c, "Client GetHSNTaxBreakdown", trace.WithAttributes(attribute.String(log.KeyHSNCode, req.HSNCode)))
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "Client GetHSNTaxBreakdown").
		Str(log.KeyHSNCode, req.HSNCode).
		Str(log.KeyProcess, "fetching hsn tax breakdown").
		Logger()

	logger.Trace().Msg("fetching hsn tax breakdown")
	result := response.HSNBreakdown{}
	if err := cl.fetch(c, upstream.Request{Method: http.MethodPost, Path: "/tax/hsn-breakdown", Body: req}, &result, "hsn_code", "total_tax"); err != nil {
		err = fmt.Errorf("failed fetching hsn tax breakdown with error=%w", err)
		commonErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.HSNBreakdown{}, err
	}
	result.Source = response.SourceRemote
	logger.Trace().Msg("fetched hsn tax breakdown")
	return result, nil
}

// GenerateTaxInvoice sends token as bearer credentials when it is not empty.
func (cl *Client) GenerateTaxInvoice(c context.Context, req request.Invoice, token string) (response.Invoice, error) {
	c, span := otel.Tracer.Start(
		c,
		"Client GenerateTaxInvoice",
		trace.WithAttributes(attribute.String(log.KeyOrderID, req.OrderID), attribute.String(log.KeyState, req.State)),
	)
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "Client GenerateTaxInvoice").
		Str(log.KeyOrderID, req.OrderID).
		Str(log.KeyState, req.State).
		Str(log.KeyProcess, "generating tax invoice").
		Logger()

	logger.Trace().Msg("generating tax invoice")
	result := response.Invoice{}
	err := cl.fetch(c, upstream.Request{Method: http.MethodPost, Path: "/tax/invoice", Body: req, Token: token}, &result, "invoice_number", "order_id")
	if err != nil {
		err = fmt.Errorf("failed generating tax invoice with error=%w", err)
		commonErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Invoice{}, err
	}
	logger.Trace().Msg("generated tax invoice")
	return result, nil
}

// fetch decodes the body into out, unwrapping a {"data": ...} envelope when
// none of keys appear at the top level.
func (cl *Client) fetch(c context.Context, req upstream.Request, out interface{}, keys ...string) error {
	resp, err := cl.api.Do(c, req)
	if err != nil {
		return err
	}
	body, err := unwrap(resp.Body, keys...)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed decoding response with error=%w", fmt.Errorf("%w: %w", commonErrors.ErrUpstreamMalformed, err))
	}
	return nil
}

func unwrap(body []byte, keys ...string) ([]byte, error) {
	envelope := map[string]json.RawMessage{}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("failed decoding envelope with error=%w", fmt.Errorf("%w: %w", commonErrors.ErrUpstreamMalformed, err))
	}
	for _, key := range keys {
		if _, ok := envelope[key]; ok {
			return body, nil
		}
	}
	if data, ok := envelope["data"]; ok && len(bytes.TrimSpace(data)) > 0 && !bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return data, nil
	}
	return body, nil
}
