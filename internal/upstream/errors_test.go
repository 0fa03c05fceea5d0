package upstream

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractMessage(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		statusCode int
		expected   string
	}{
		{name: "given message field should use it", body: `{"message":"Invalid coupon code"}`, statusCode: 400, expected: "Invalid coupon code"},
		{name: "given detail string should use it", body: `{"detail":"Cart item not found"}`, statusCode: 404, expected: "Cart item not found"},
		{
			name:       "given detail list should join messages",
			body:       `{"detail":[{"msg":"quantity must be at least 1"},{"msg":"product_id is required"}]}`,
			statusCode: 422,
			expected:   "quantity must be at least 1; product_id is required",
		},
		{name: "given error field should use it", body: `{"error":"boom"}`, statusCode: 500, expected: "boom"},
		{name: "given plain text should use it", body: `Bad Gateway from proxy`, statusCode: 502, expected: "Bad Gateway from proxy"},
		{name: "given empty body should use status text", body: ``, statusCode: 503, expected: "Service Unavailable"},
		{name: "given unknown json should use status text", body: `{"foo":1}`, statusCode: 400, expected: "Bad Request"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ExtractMessage([]byte(tt.body), tt.statusCode))
		})
	}
}

func TestIsUnavailable(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{name: "given nil should be false", err: nil, expected: false},
		{name: "given transport failure should be true", err: fmt.Errorf("wrapped: %w", ErrUnavailable), expected: true},
		{name: "given 500 should be true", err: fmt.Errorf("wrapped: %w", &APIError{StatusCode: http.StatusInternalServerError}), expected: true},
		{name: "given 400 should be false", err: &APIError{StatusCode: http.StatusBadRequest}, expected: false},
		{name: "given unrelated error should be false", err: errors.New("nope"), expected: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsUnavailable(tt.err))
		})
	}
}

func TestStatusCode(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, StatusCode(&APIError{StatusCode: http.StatusNotFound}))
	assert.Equal(t, http.StatusBadGateway, StatusCode(&APIError{StatusCode: http.StatusServiceUnavailable}))
	assert.Equal(t, http.StatusBadGateway, StatusCode(ErrUnavailable))
	assert.Equal(t, http.StatusInternalServerError, StatusCode(errors.New("x")))
}

func TestCheckAck(t *testing.T) {
	assert.NoError(t, CheckAck(Response{Body: []byte(`{"success":true}`)}))
	assert.NoError(t, CheckAck(Response{Body: []byte(`{"id":1}`)}))
	assert.NoError(t, CheckAck(Response{Body: []byte(``)}))

	err := CheckAck(Response{Body: []byte(`{"success":false,"message":"Minimum order value not met"}`)})
	apiErr := &APIError{}
	assert.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.StatusCode)
	assert.Equal(t, "Minimum order value not met", apiErr.Message)
}
