package controller

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/Alturino/storefront/cart/pkg/store"
	commonErrors "github.com/Alturino/storefront/internal/common/errors"
	"github.com/Alturino/storefront/internal/common/validate"
	"github.com/Alturino/storefront/internal/upstream"
	taxRequest "github.com/Alturino/storefront/tax/pkg/request"
)

var bodyValidator = validate.New()

// statusCode maps domain and backend errors to the gateway's answer.
func statusCode(err error) int {
	validationErr := &taxRequest.ValidationError{}
	switch {
	case errors.Is(err, commonErrors.ErrEmptySession):
		return http.StatusUnauthorized
	case errors.Is(err, commonErrors.ErrInvalidRequest),
		errors.Is(err, store.ErrInvalidQuantity),
		errors.Is(err, store.ErrEmptyCouponCode):
		return http.StatusBadRequest
	case errors.As(err, &validationErr),
		errors.Is(err, store.ErrShippingUnavailable),
		errors.Is(err, store.ErrEmptyCart):
		return http.StatusUnprocessableEntity
	case errors.Is(err, store.ErrNoTaxEstimator):
		return http.StatusServiceUnavailable
	case errors.Is(err, commonErrors.ErrUpstreamMalformed):
		return http.StatusBadGateway
	default:
		return upstream.StatusCode(err)
	}
}

// decode reads a JSON body into out and validates it when validated is set.
func decode(r *http.Request, out interface{}, validated bool) error {
	if err := json.NewDecoder(r.Body).Decode(out); err != nil {
		return fmt.Errorf("failed decoding request body with error=%w", fmt.Errorf("%w: %w", commonErrors.ErrInvalidRequest, err))
	}
	if !validated {
		return nil
	}
	if err := bodyValidator.StructCtx(r.Context(), out); err != nil {
		fieldErrors := validator.ValidationErrors{}
		if errors.As(err, &fieldErrors) && len(fieldErrors) > 0 {
			fe := fieldErrors[0]
			err = fmt.Errorf("%s failed %s validation", validate.Path(fe), fe.Tag())
		}
		return fmt.Errorf("failed validating request body with error=%w", fmt.Errorf("%w: %w", commonErrors.ErrInvalidRequest, err))
	}
	return nil
}
