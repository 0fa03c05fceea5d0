package upstream

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var ErrUnavailable = errors.New("backend unavailable")

// APIError is a non-2xx answer, or a 2xx answer with success=false, from the
// backend. Message carries the backend's own wording.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("backend returned status code=%d with message=%s", e.StatusCode, e.Message)
}

// Temporary reports whether retrying elsewhere could help, which is the
// case for server-side failures only.
func (e *APIError) Temporary() bool {
	return e.StatusCode >= http.StatusInternalServerError
}

// IsUnavailable reports transport failures and 5xx answers.
func IsUnavailable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrUnavailable) {
		return true
	}
	apiErr := &APIError{}
	if errors.As(err, &apiErr) {
		return apiErr.Temporary()
	}
	return false
}

// StatusCode maps err to the status a gateway should answer with.
func StatusCode(err error) int {
	apiErr := &APIError{}
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode >= http.StatusInternalServerError {
			return http.StatusBadGateway
		}
		return apiErr.StatusCode
	}
	if errors.Is(err, ErrUnavailable) {
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// ExtractMessage pulls a human readable message out of an error body,
// trying message, detail (string or list of {msg}) and error in turn.
func ExtractMessage(body []byte, statusCode int) string {
	payload := map[string]json.RawMessage{}
	if err := json.Unmarshal(body, &payload); err == nil {
		for _, key := range []string{"message", "detail", "error"} {
			raw, ok := payload[key]
			if !ok {
				continue
			}
			var s string
			if err := json.Unmarshal(raw, &s); err == nil && strings.TrimSpace(s) != "" {
				return s
			}
			var details []struct {
				Msg string `json:"msg"`
			}
			if err := json.Unmarshal(raw, &details); err == nil && len(details) > 0 {
				msgs := make([]string, 0, len(details))
				for _, d := range details {
					if d.Msg != "" {
						msgs = append(msgs, d.Msg)
					}
				}
				if len(msgs) > 0 {
					return strings.Join(msgs, "; ")
				}
			}
		}
	}
	if text := strings.TrimSpace(string(body)); text != "" && len(text) < 256 && !strings.HasPrefix(text, "{") {
		return text
	}
	return http.StatusText(statusCode)
}
