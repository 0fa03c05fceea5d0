package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	commonErrors "github.com/Alturino/storefront/internal/common/errors"
	"github.com/Alturino/storefront/internal/log"
	"github.com/Alturino/storefront/internal/upstream"
	"github.com/Alturino/storefront/tax/internal/otel"
	"github.com/Alturino/storefront/tax/pkg/calculator"
	"github.com/Alturino/storefront/tax/pkg/request"
	"github.com/Alturino/storefront/tax/pkg/response"
)

// Remote is the backend tax API.
type Remote interface {
	CalculateCartTax(c context.Context, req request.CalculateTax) (response.CartTax, error)
	GetStateTaxRates(c context.Context, state string) (response.StateRates, error)
	GetHSNTaxBreakdown(c context.Context, req request.HSNBreakdown) (response.HSNBreakdown, error)
	GenerateTaxInvoice(c context.Context, req request.Invoice, token string) (response.Invoice, error)
}

// Service answers tax questions from the backend and falls back to the
// local calculator when the backend is unreachable or failing. A nil
// remote always computes locally.
type Service struct {
	remote        Remote
	localFallback bool
	fallbacks     metric.Int64Counter
}

func New(remote Remote, localFallback bool) (*Service, error) {
	fallbacks, err := otel.Meter.Int64Counter(
		"tax.local_fallbacks",
		metric.WithDescription("Tax requests answered by the local calculator after a backend failure."),
	)
	if err != nil {
		return nil, fmt.Errorf("failed creating fallback counter with error=%w", err)
	}
	return &Service{remote: remote, localFallback: localFallback, fallbacks: fallbacks}, nil
}

func (s *Service) ValidateTaxRequest(req request.CalculateTax) request.ValidationResult {
	return request.ValidateTaxRequest(req)
}

func (s *Service) CalculateCartTax(c context.Context, req request.CalculateTax) (response.CartTax, error) {
	c, span := otel.Tracer.Start(
		c,
		"Service CalculateCartTax",
		trace.WithAttributes(attribute.String(log.KeyState, req.State), attribute.Bool(log.KeyInterState, req.InterState)),
	)
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "Service CalculateCartTax").
		Str(log.KeyState, req.State).
		Bool(log.KeyInterState, req.InterState).
		Logger()

	logger = logger.With().Str(log.KeyProcess, "validating request").Logger()
	logger.Trace().Msg("validating request")
	if result := request.ValidateTaxRequest(req); !result.IsValid {
		err := fmt.Errorf("failed validating request with error=%w", &request.ValidationError{Result: result})
		commonErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.CartTax{}, err
	}
	logger.Trace().Msg("validated request")

	if s.remote != nil {
		logger = logger.With().Str(log.KeyProcess, "calculating tax remotely").Logger()
		logger.Trace().Msg("calculating tax remotely")
		result, err := s.remote.CalculateCartTax(c, req)
		if err == nil {
			logger.Debug().Str(log.KeyTaxSource, string(result.Source)).Msg("calculated tax remotely")
			return result, nil
		}
		if !s.shouldFallback(err) {
			commonErrors.HandleError(err, span)
			logger.Error().Err(err).Msg(err.Error())
			return response.CartTax{}, err
		}
		s.recordFallback(c, "calculate", err)
	}

	logger = logger.With().Str(log.KeyProcess, "calculating tax locally").Logger()
	result := calculator.CalculateTaxLocally(req)
	logger.Debug().Str(log.KeyTaxSource, string(result.Source)).Msg("calculated tax locally")
	return result, nil
}

func (s *Service) GetStateTaxRates(c context.Context, state string) (response.StateRates, error) {
	c, span := otel.Tracer.Start(c, "Service GetStateTaxRates", trace.WithAttributes(attribute.String(log.KeyState, state)))
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "Service GetStateTaxRates").
		Str(log.KeyState, state).
		Str(log.KeyProcess, "fetching state tax rates").
		Logger()

	if s.remote != nil {
		logger.Trace().Msg("fetching state tax rates remotely")
		result, err := s.remote.GetStateTaxRates(c, state)
		if err == nil {
			return result, nil
		}
		if !s.shouldFallback(err) {
			commonErrors.HandleError(err, span)
			logger.Error().Err(err).Msg(err.Error())
			return response.StateRates{}, err
		}
		s.recordFallback(c, "rates", err)
	}
	logger.Trace().Msg("using local state tax rates")
	return calculator.StateTaxRates(state), nil
}

func (s *Service) GetHSNTaxBreakdown(c context.Context, req request.HSNBreakdown) (response.HSNBreakdown, error) {
	c, span := otel.Tracer.Start(c, "Service GetHSNTaxBreakdown", trace.WithAttributes(attribute.String(log.KeyHSNCode, req.HSNCode)))
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "Service GetHSNTaxBreakdown").
		Str(log.KeyHSNCode, req.HSNCode).
		Logger()

	if result := request.ValidateHSNBreakdown(req); !result.IsValid {
		err := fmt.Errorf("failed validating request with error=%w", &request.ValidationError{Result: result})
		commonErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.HSNBreakdown{}, err
	}

	if s.remote != nil {
		result, err := s.remote.GetHSNTaxBreakdown(c, req)
		if err == nil {
			return result, nil
		}
		if !s.shouldFallback(err) {
			commonErrors.HandleError(err, span)
			logger.Error().Err(err).Msg(err.Error())
			return response.HSNBreakdown{}, err
		}
		s.recordFallback(c, "hsn_breakdown", err)
	}
	return calculator.HSNBreakdown(req), nil
}

// GenerateTaxInvoice has no local equivalent: invoices need the order,
// which only the backend holds.
func (s *Service) GenerateTaxInvoice(c context.Context, req request.Invoice, token string) (response.Invoice, error) {
	c, span := otel.Tracer.Start(c, "Service GenerateTaxInvoice", trace.WithAttributes(attribute.String(log.KeyOrderID, req.OrderID)))
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "Service GenerateTaxInvoice").
		Str(log.KeyOrderID, req.OrderID).
		Logger()

	if result := request.ValidateInvoice(req); !result.IsValid {
		err := fmt.Errorf("failed validating request with error=%w", &request.ValidationError{Result: result})
		commonErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Invoice{}, err
	}
	if s.remote == nil {
		err := fmt.Errorf("failed generating tax invoice with error=%w", upstream.ErrUnavailable)
		commonErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Invoice{}, err
	}
	return s.remote.GenerateTaxInvoice(c, req, token)
}

// shouldFallback is true for transport failures and 5xx answers. 4xx
// answers are validation problems the caller must see.
func (s *Service) shouldFallback(err error) bool {
	return s.localFallback && upstream.IsUnavailable(err)
}

func (s *Service) recordFallback(c context.Context, operation string, err error) {
	s.fallbacks.Add(c, 1, metric.WithAttributes(attribute.String("operation", operation)))
	zerolog.Ctx(c).Warn().
		Err(err).
		Str(log.KeyTag, "Service recordFallback").
		Str("operation", operation).
		Msg("backend tax call failed, falling back to local calculation")
}
