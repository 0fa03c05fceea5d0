package service

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alturino/storefront/internal/upstream"
	"github.com/Alturino/storefront/tax/pkg/calculator"
	"github.com/Alturino/storefront/tax/pkg/client"
	"github.com/Alturino/storefront/tax/pkg/request"
	"github.com/Alturino/storefront/tax/pkg/response"
)

type (
	serviceSetupFunc    func(t *testing.T) (*Service, *httptest.Server)
	serviceTeardownFunc func(*httptest.Server)
)

// setupBackend serves every tax route with status and body.
func setupBackend(status int, body string, localFallback bool) serviceSetupFunc {
	return func(t *testing.T) (*Service, *httptest.Server) {
		router := mux.NewRouter()
		handler := func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(status)
			_, _ = w.Write([]byte(body))
		}
		router.HandleFunc("/tax/calculate", handler).Methods(http.MethodPost)
		router.HandleFunc("/tax/rates/{state}", handler).Methods(http.MethodGet)
		router.HandleFunc("/tax/hsn-breakdown", handler).Methods(http.MethodPost)
		router.HandleFunc("/tax/invoice", handler).Methods(http.MethodPost)
		server := httptest.NewServer(router)

		s, err := New(client.New(server.URL, nil), localFallback)
		require.NoError(t, err)
		return s, server
	}
}

func teardownBackend() serviceTeardownFunc {
	return func(server *httptest.Server) {
		server.Close()
	}
}

func scenario(interState bool) request.CalculateTax {
	shipping := decimal.NewFromInt(50)
	return request.CalculateTax{
		Items: []request.TaxItem{
			{ID: "1", Name: "Book", Price: decimal.NewFromInt(100), Quantity: 2, TaxCategory: "standard"},
		},
		ShippingCost: &shipping,
		State:        "Maharashtra",
		InterState:   interState,
	}
}

func TestServiceCalculateCartTax(t *testing.T) {
	tests := []struct {
		name           string
		setup          serviceSetupFunc
		teardown       serviceTeardownFunc
		req            request.CalculateTax
		expectedSource response.Source
		expectedErr    bool
		expectedStatus int
	}{
		{
			name:           "given backend 503 should fall back to local",
			setup:          setupBackend(http.StatusServiceUnavailable, `{"detail":"down"}`, true),
			teardown:       teardownBackend(),
			req:            scenario(false),
			expectedSource: response.SourceLocal,
		},
		{
			name:           "given backend 500 with fallback disabled should fail",
			setup:          setupBackend(http.StatusInternalServerError, `{"detail":"boom"}`, false),
			teardown:       teardownBackend(),
			req:            scenario(false),
			expectedErr:    true,
			expectedStatus: http.StatusInternalServerError,
		},
		{
			name:           "given backend 422 should surface the error without fallback",
			setup:          setupBackend(http.StatusUnprocessableEntity, `{"detail":[{"msg":"state is required"}]}`, true),
			teardown:       teardownBackend(),
			req:            scenario(false),
			expectedErr:    true,
			expectedStatus: http.StatusUnprocessableEntity,
		},
		{
			name:           "given backend success should return remote result",
			setup:          setupBackend(http.StatusOK, readTestdata(t, "calculate_intra_state.json"), true),
			teardown:       teardownBackend(),
			req:            scenario(false),
			expectedSource: response.SourceRemote,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, server := tt.setup(t)
			defer tt.teardown(server)

			actual, err := s.CalculateCartTax(context.Background(), tt.req)

			if tt.expectedErr {
				require.Error(t, err)
				apiErr := &upstream.APIError{}
				require.True(t, errors.As(err, &apiErr))
				assert.Equal(t, tt.expectedStatus, apiErr.StatusCode)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expectedSource, actual.Source)
			assert.True(t, decimal.RequireFromString("262.5").Equal(actual.Totals.GrandTotal))
		})
	}
}

func TestServiceFallbackOnTransportFailure(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	s, err := New(client.New(url, nil), true)
	require.NoError(t, err)

	actual, err := s.CalculateCartTax(context.Background(), scenario(true))
	require.NoError(t, err)
	assert.Equal(t, response.SourceLocal, actual.Source)

	rates, err := s.GetStateTaxRates(context.Background(), "Goa")
	require.NoError(t, err)
	assert.Equal(t, response.SourceLocal, rates.Source)
	assert.Equal(t, "Goa", rates.State)

	breakdown, err := s.GetHSNTaxBreakdown(context.Background(), request.HSNBreakdown{HSNCode: "4901", Price: decimal.NewFromInt(10), Quantity: 1})
	require.NoError(t, err)
	assert.Equal(t, response.SourceLocal, breakdown.Source)

	_, err = s.GenerateTaxInvoice(context.Background(), request.Invoice{OrderID: "o-1", State: "Goa"}, "")
	assert.True(t, upstream.IsUnavailable(err))
}

func TestServiceValidation(t *testing.T) {
	s, err := New(nil, true)
	require.NoError(t, err)

	_, err = s.CalculateCartTax(context.Background(), request.CalculateTax{})
	validationErr := &request.ValidationError{}
	require.True(t, errors.As(err, &validationErr))
	assert.False(t, validationErr.Result.IsValid)
	assert.Len(t, validationErr.Result.Errors, 2)

	_, err = s.GetHSNTaxBreakdown(context.Background(), request.HSNBreakdown{Quantity: 1})
	assert.True(t, errors.As(err, &validationErr))

	_, err = s.GenerateTaxInvoice(context.Background(), request.Invoice{State: "Goa"}, "")
	assert.True(t, errors.As(err, &validationErr))
}

func TestServiceWithoutRemote(t *testing.T) {
	s, err := New(nil, false)
	require.NoError(t, err)

	actual, err := s.CalculateCartTax(context.Background(), scenario(false))
	require.NoError(t, err)
	assert.Equal(t, response.SourceLocal, actual.Source)

	_, err = s.GenerateTaxInvoice(context.Background(), request.Invoice{OrderID: "o-1", State: "Goa"}, "")
	assert.True(t, errors.Is(err, upstream.ErrUnavailable))
}

func TestRemoteAndLocalAgree(t *testing.T) {
	tests := []struct {
		name       string
		payload    string
		interState bool
	}{
		{name: "given intra state recording should match local result", payload: "calculate_intra_state.json", interState: false},
		{name: "given inter state recording should match local result", payload: "calculate_inter_state.json", interState: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, server := setupBackend(http.StatusOK, readTestdata(t, tt.payload), false)(t)
			defer teardownBackend()(server)
			req := scenario(tt.interState)

			remote, err := s.CalculateCartTax(context.Background(), req)
			require.NoError(t, err)
			local := calculator.CalculateTaxLocally(req)

			assert.Equal(t, response.SourceRemote, remote.Source)
			assert.Equal(t, response.SourceLocal, local.Source)
			assert.Equal(t, local.IsInterState, remote.IsInterState)
			require.Len(t, remote.Items, len(local.Items))
			for i := range local.Items {
				assertDecimalsEqual(t, "item subtotal", local.Items[i].Subtotal, remote.Items[i].Subtotal)
				assertDecimalsEqual(t, "item cgst", local.Items[i].CGST, remote.Items[i].CGST)
				assertDecimalsEqual(t, "item sgst", local.Items[i].SGST, remote.Items[i].SGST)
				assertDecimalsEqual(t, "item igst", local.Items[i].IGST, remote.Items[i].IGST)
				assertDecimalsEqual(t, "item total tax", local.Items[i].TotalTax, remote.Items[i].TotalTax)
				assertDecimalsEqual(t, "item rate", local.Items[i].Rate, remote.Items[i].Rate)
			}
			assertDecimalsEqual(t, "subtotal", local.Totals.Subtotal, remote.Totals.Subtotal)
			assertDecimalsEqual(t, "cart tax", local.Totals.CartTax, remote.Totals.CartTax)
			assertDecimalsEqual(t, "shipping cost", local.Totals.ShippingCost, remote.Totals.ShippingCost)
			assertDecimalsEqual(t, "shipping tax", local.Totals.ShippingTax, remote.Totals.ShippingTax)
			assertDecimalsEqual(t, "cgst", local.Totals.CGST, remote.Totals.CGST)
			assertDecimalsEqual(t, "sgst", local.Totals.SGST, remote.Totals.SGST)
			assertDecimalsEqual(t, "igst", local.Totals.IGST, remote.Totals.IGST)
			assertDecimalsEqual(t, "total tax", local.Totals.TotalTax, remote.Totals.TotalTax)
			assertDecimalsEqual(t, "grand total", local.Totals.GrandTotal, remote.Totals.GrandTotal)
			assertDecimalsEqual(t, "effective rate", local.EffectiveTaxRate, remote.EffectiveTaxRate)
		})
	}
}

func assertDecimalsEqual(t *testing.T, field string, expected, actual decimal.Decimal) {
	t.Helper()
	assert.Truef(t, expected.Equal(actual), "%s: expected %s, got %s", field, expected.String(), actual.String())
}

func readTestdata(t *testing.T, name string) string {
	t.Helper()
	b, err := os.ReadFile(filepath.Join("testdata", name))
	if err != nil {
		t.Fatalf("failed reading testdata %s with error: %s", name, err)
	}
	return string(b)
}
