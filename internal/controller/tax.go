package controller

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	commonErrors "github.com/Alturino/storefront/internal/common/errors"
	"github.com/Alturino/storefront/internal/common/otel"
	"github.com/Alturino/storefront/internal/common/response"
	"github.com/Alturino/storefront/internal/log"
	"github.com/Alturino/storefront/internal/middleware"
	taxRequest "github.com/Alturino/storefront/tax/pkg/request"
	taxResponse "github.com/Alturino/storefront/tax/pkg/response"
)

type TaxService interface {
	ValidateTaxRequest(req taxRequest.CalculateTax) taxRequest.ValidationResult
	CalculateCartTax(c context.Context, req taxRequest.CalculateTax) (taxResponse.CartTax, error)
	GetStateTaxRates(c context.Context, state string) (taxResponse.StateRates, error)
	GetHSNTaxBreakdown(c context.Context, req taxRequest.HSNBreakdown) (taxResponse.HSNBreakdown, error)
	GenerateTaxInvoice(c context.Context, req taxRequest.Invoice, token string) (taxResponse.Invoice, error)
}

type TaxController struct {
	service TaxService
}

func AttachTaxController(router *mux.Router, service TaxService) {
	controller := TaxController{service: service}

	taxRouter := router.PathPrefix("/tax").Subrouter()
	taxRouter.HandleFunc("/calculate", controller.CalculateCartTax).Methods(http.MethodPost)
	taxRouter.HandleFunc("/validate", controller.ValidateTaxRequest).Methods(http.MethodPost)
	taxRouter.HandleFunc("/rates/{state}", controller.GetStateTaxRates).Methods(http.MethodGet)
	taxRouter.HandleFunc("/hsn-breakdown", controller.GetHSNTaxBreakdown).Methods(http.MethodPost)
	taxRouter.HandleFunc("/invoice", controller.GenerateTaxInvoice).Methods(http.MethodPost)
}

func (t TaxController) CalculateCartTax(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "TaxController CalculateCartTax")
	defer span.End()

	logger := zerolog.Ctx(c).With().Str(log.KeyTag, "TaxController CalculateCartTax").Logger()

	logger = logger.With().Str(log.KeyProcess, "decoding request body").Logger()
	logger.Info().Msg("decoding request body")
	reqBody := taxRequest.CalculateTax{}
	if err := decode(r, &reqBody, false); err != nil {
		fail(c, w, span, logger, err)
		return
	}
	logger = logger.With().
		Str(log.KeyState, reqBody.State).
		Bool(log.KeyInterState, reqBody.InterState).
		Logger()
	logger.Info().Msg("decoded request body")

	logger = logger.With().Str(log.KeyProcess, "calculating cart tax").Logger()
	logger.Info().Msg("calculating cart tax")
	tax, err := t.service.CalculateCartTax(logger.WithContext(c), reqBody)
	if err != nil {
		failTax(c, w, span, logger, err)
		return
	}
	logger.Info().Str(log.KeyTaxSource, string(tax.Source)).Msg("calculated cart tax")

	response.WriteSuccess(c, w, map[string]string{}, "cart tax calculated", map[string]interface{}{
		"tax": tax,
	})
}

// ValidateTaxRequest always answers 200; the verdict is in the body.
func (t TaxController) ValidateTaxRequest(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "TaxController ValidateTaxRequest")
	defer span.End()

	logger := zerolog.Ctx(c).With().Str(log.KeyTag, "TaxController ValidateTaxRequest").Logger()

	reqBody := taxRequest.CalculateTax{}
	if err := decode(r, &reqBody, false); err != nil {
		fail(c, w, span, logger, err)
		return
	}

	result := t.service.ValidateTaxRequest(reqBody)
	logger.Info().Bool("isValid", result.IsValid).Int("errors", len(result.Errors)).Msg("validated tax request")

	response.WriteSuccess(c, w, map[string]string{}, "tax request validated", map[string]interface{}{
		"validation": result,
	})
}

func (t TaxController) GetStateTaxRates(w http.ResponseWriter, r *http.Request) {
	state := strings.TrimSpace(mux.Vars(r)["state"])
	c, span := otel.Tracer.Start(r.Context(), "TaxController GetStateTaxRates", trace.WithAttributes(attribute.String(log.KeyState, state)))
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "TaxController GetStateTaxRates").
		Str(log.KeyState, state).
		Str(log.KeyProcess, "fetching state tax rates").
		Logger()

	if state == "" {
		fail(c, w, span, logger, fmt.Errorf("failed fetching state tax rates with error=%w", commonErrors.ErrInvalidRequest))
		return
	}

	logger.Info().Msg("fetching state tax rates")
	rates, err := t.service.GetStateTaxRates(logger.WithContext(c), state)
	if err != nil {
		failTax(c, w, span, logger, err)
		return
	}
	logger.Info().Str(log.KeyTaxSource, string(rates.Source)).Msg("fetched state tax rates")

	response.WriteSuccess(c, w, map[string]string{}, "state tax rates fetched", map[string]interface{}{
		"rates": rates,
	})
}

func (t TaxController) GetHSNTaxBreakdown(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "TaxController GetHSNTaxBreakdown")
	defer span.End()

	logger := zerolog.Ctx(c).With().Str(log.KeyTag, "TaxController GetHSNTaxBreakdown").Logger()

	reqBody := taxRequest.HSNBreakdown{}
	if err := decode(r, &reqBody, false); err != nil {
		fail(c, w, span, logger, err)
		return
	}
	logger = logger.With().Str(log.KeyHSNCode, reqBody.HSNCode).Str(log.KeyProcess, "fetching hsn tax breakdown").Logger()

	logger.Info().Msg("fetching hsn tax breakdown")
	breakdown, err := t.service.GetHSNTaxBreakdown(logger.WithContext(c), reqBody)
	if err != nil {
		failTax(c, w, span, logger, err)
		return
	}
	logger.Info().Str(log.KeyTaxSource, string(breakdown.Source)).Msg("fetched hsn tax breakdown")

	response.WriteSuccess(c, w, map[string]string{}, "hsn tax breakdown fetched", map[string]interface{}{
		"breakdown": breakdown,
	})
}

// GenerateTaxInvoice forwards the session's auth token, which the backend
// requires for orders of registered users.
func (t TaxController) GenerateTaxInvoice(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "TaxController GenerateTaxInvoice")
	defer span.End()

	logger := zerolog.Ctx(c).With().Str(log.KeyTag, "TaxController GenerateTaxInvoice").Logger()

	reqBody := taxRequest.Invoice{}
	if err := decode(r, &reqBody, false); err != nil {
		fail(c, w, span, logger, err)
		return
	}
	logger = logger.With().
		Str(log.KeyOrderID, reqBody.OrderID).
		Str(log.KeyState, reqBody.State).
		Str(log.KeyProcess, "generating tax invoice").
		Logger()

	token := ""
	if session, ok := middleware.SessionFromContext(c); ok {
		token = session.AuthToken
	}

	logger.Info().Msg("generating tax invoice")
	invoice, err := t.service.GenerateTaxInvoice(logger.WithContext(c), reqBody, token)
	if err != nil {
		failTax(c, w, span, logger, err)
		return
	}
	logger.Info().Msg("generated tax invoice")

	response.WriteSuccess(c, w, map[string]string{}, "tax invoice generated", map[string]interface{}{
		"invoice": invoice,
	})
}

// failTax adds the full list of validation errors when err carries one.
func failTax(c context.Context, w http.ResponseWriter, span trace.Span, logger zerolog.Logger, err error) {
	validationErr := &taxRequest.ValidationError{}
	if !errors.As(err, &validationErr) {
		fail(c, w, span, logger, err)
		return
	}
	commonErrors.HandleError(err, span)
	logger.Error().Err(err).Msg(err.Error())
	response.WriteFailedWithData(c, w, statusCode(err), err, map[string]interface{}{
		"validation": validationErr.Result,
	})
}
