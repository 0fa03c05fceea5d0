package controller

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alturino/storefront/cart/pkg/client"
	"github.com/Alturino/storefront/cart/pkg/store"
	"github.com/Alturino/storefront/internal/fakeapi"
	"github.com/Alturino/storefront/tax/pkg/service"
)

type gatewayResponse struct {
	Status     string                 `json:"status"`
	StatusCode int                    `json:"statusCode"`
	Message    string                 `json:"message"`
	Data       map[string]interface{} `json:"data"`
}

type gateway struct {
	router  http.Handler
	backend *fakeapi.Backend
}

func setupGateway(t *testing.T) *gateway {
	t.Helper()
	return setupGatewayWithSecret(t, nil)
}

func setupGatewayWithSecret(t *testing.T, secretKey []byte) *gateway {
	t.Helper()
	backend := fakeapi.New()
	t.Cleanup(backend.Close)

	taxService, err := service.New(nil, true)
	require.NoError(t, err)
	api := client.New(backend.URL(), nil)
	persister := store.NewMemoryPersister()
	registry := NewRegistry(func(session string) *store.Store {
		return store.New(api, persister, session, store.WithTaxEstimator(taxService))
	}, 0)
	return &gateway{router: NewRouter(registry, taxService, secretKey), backend: backend}
}

func (g *gateway) do(t *testing.T, method, path, guest string, body interface{}) (*httptest.ResponseRecorder, gatewayResponse) {
	t.Helper()
	header := http.Header{}
	if guest != "" {
		header.Set("X-Guest-Session-Id", guest)
	}
	return g.doWithHeader(t, method, path, header, body)
}

func (g *gateway) doWithHeader(t *testing.T, method, path string, header http.Header, body interface{}) (*httptest.ResponseRecorder, gatewayResponse) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	g.router.ServeHTTP(rec, req)

	resp := gatewayResponse{}
	if rec.Header().Get("Content-Type") == "application/json" {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	}
	return rec, resp
}

func cartView(t *testing.T, resp gatewayResponse) map[string]interface{} {
	t.Helper()
	view, ok := resp.Data["cart"].(map[string]interface{})
	require.True(t, ok, "response has no cart view")
	return view
}

func TestGatewayCartFlow(t *testing.T) {
	g := setupGateway(t)
	const guest = "guest-42"

	rec, resp := g.do(t, http.MethodPost, "/cart/items", guest, map[string]interface{}{"product_id": "1", "title": "The Go Programming Language", "quantity": 2})
	require.Equal(t, http.StatusOK, rec.Code, resp.Message)
	assert.Equal(t, guest, rec.Header().Get("X-Guest-Session-Id"))
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
	assert.EqualValues(t, 2, cartView(t, resp)["total_items"])
	assert.EqualValues(t, 2, cartView(t, resp)["cart"].(map[string]interface{})["total_items"])
	notifications := resp.Data["notifications"].([]interface{})
	require.Len(t, notifications, 1)
	assert.Equal(t, "The Go Programming Language added to cart", notifications[0].(map[string]interface{})["message"])

	rec, resp = g.do(t, http.MethodPost, "/shipping/calculate", guest, map[string]interface{}{"pincode": "400001"})
	require.Equal(t, http.StatusOK, rec.Code, resp.Message)
	assert.Equal(t, "400001", cartView(t, resp)["delivery_pincode"])
	assert.Contains(t, resp.Data, "shipping")

	rec, resp = g.do(t, http.MethodPut, "/cart/payment-method", guest, map[string]interface{}{"method": "cod"})
	require.Equal(t, http.StatusOK, rec.Code, resp.Message)
	assert.Equal(t, "cod", cartView(t, resp)["payment_method"])
	query := g.backend.LastCartQuery()
	assert.Equal(t, "400001", query.Get("delivery_pincode"))
	assert.Equal(t, "cod", query.Get("payment_method"))

	rec, resp = g.do(t, http.MethodPost, "/cart/tax-estimate", guest, map[string]interface{}{"state": "Maharashtra"})
	require.Equal(t, http.StatusOK, rec.Code, resp.Message)
	tax := resp.Data["tax"].(map[string]interface{})
	assert.Equal(t, "local", tax["source"])

	rec, resp = g.do(t, http.MethodGet, "/cart", guest, nil)
	require.Equal(t, http.StatusOK, rec.Code, resp.Message)
	items := cartView(t, resp)["cart"].(map[string]interface{})["items"].([]interface{})
	require.Len(t, items, 1)
	lineID := items[0].(map[string]interface{})["id"].(string)

	rec, resp = g.do(t, http.MethodPatch, "/cart/items/"+lineID, guest, map[string]interface{}{"quantity": 0})
	require.Equal(t, http.StatusOK, rec.Code, resp.Message)
	assert.EqualValues(t, 0, cartView(t, resp)["total_items"])

	rec, resp = g.do(t, http.MethodPost, "/cart/reset", guest, nil)
	require.Equal(t, http.StatusOK, rec.Code, resp.Message)
	assert.Nil(t, cartView(t, resp)["delivery_pincode"])
}

func TestGatewayErrors(t *testing.T) {
	tests := []struct {
		name           string
		method         string
		path           string
		body           interface{}
		expectedStatus int
	}{
		{
			name:           "given missing product id should answer bad request",
			method:         http.MethodPost,
			path:           "/cart/items",
			body:           map[string]interface{}{"quantity": 1},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "given unknown coupon should answer backend status",
			method:         http.MethodPost,
			path:           "/cart/coupon",
			body:           map[string]interface{}{"code": "NOPE"},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "given unserviceable pincode should answer unprocessable",
			method:         http.MethodPost,
			path:           "/shipping/calculate",
			body:           map[string]interface{}{"pincode": "999999"},
			expectedStatus: http.StatusUnprocessableEntity,
		},
		{
			name:           "given malformed pincode should answer bad request",
			method:         http.MethodPost,
			path:           "/shipping/calculate",
			body:           map[string]interface{}{"pincode": "40A"},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "given tax estimate on empty cart should answer unprocessable",
			method:         http.MethodPost,
			path:           "/cart/tax-estimate",
			body:           map[string]interface{}{"state": "Goa"},
			expectedStatus: http.StatusUnprocessableEntity,
		},
		{
			name:           "given invalid tax request should answer unprocessable",
			method:         http.MethodPost,
			path:           "/tax/calculate",
			body:           map[string]interface{}{"items": []interface{}{}, "state": ""},
			expectedStatus: http.StatusUnprocessableEntity,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := setupGateway(t)

			rec, resp := g.do(t, tt.method, tt.path, "guest-errors", tt.body)

			assert.Equal(t, tt.expectedStatus, rec.Code)
			assert.Equal(t, "failed", resp.Status)
			assert.Equal(t, tt.expectedStatus, resp.StatusCode)
		})
	}
}

func TestGatewayMintsGuestSession(t *testing.T) {
	g := setupGateway(t)

	rec, _ := g.do(t, http.MethodGet, "/cart", "", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Guest-Session-Id"))
}

func TestGatewayTaxRoutes(t *testing.T) {
	g := setupGateway(t)
	taxBody := map[string]interface{}{
		"items":         []interface{}{map[string]interface{}{"name": "Book", "price": "100", "quantity": 2, "tax_category": "standard"}},
		"shipping_cost": "50",
		"state":         "Maharashtra",
	}

	rec, resp := g.do(t, http.MethodPost, "/tax/calculate", "guest-tax", taxBody)
	require.Equal(t, http.StatusOK, rec.Code, resp.Message)
	totals := resp.Data["tax"].(map[string]interface{})["totals"].(map[string]interface{})
	assert.Equal(t, "262.5", totals["grand_total"])

	rec, resp = g.do(t, http.MethodPost, "/tax/validate", "guest-tax", map[string]interface{}{"items": []interface{}{}})
	require.Equal(t, http.StatusOK, rec.Code)
	validation := resp.Data["validation"].(map[string]interface{})
	assert.Equal(t, false, validation["is_valid"])
	assert.Len(t, validation["errors"], 2)

	rec, resp = g.do(t, http.MethodGet, "/tax/rates/Goa", "guest-tax", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Goa", resp.Data["rates"].(map[string]interface{})["state"])
}

func TestGatewayMetrics(t *testing.T) {
	g := setupGateway(t)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	g.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("X-Guest-Session-Id"))
}
