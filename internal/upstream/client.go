package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	commonErrors "github.com/Alturino/storefront/internal/common/errors"
	commonHttp "github.com/Alturino/storefront/internal/common/http"
	"github.com/Alturino/storefront/internal/common/otel"
	"github.com/Alturino/storefront/internal/log"
)

const maxBodyBytes = 4 << 20

// Credentials identify the shopper to the backend.
type Credentials struct {
	AuthToken      string
	GuestSessionID string
}

type Client struct {
	baseURL     string
	httpClient  *http.Client
	credentials Credentials
}

type Request struct {
	Method string
	Path   string
	Query  url.Values
	Body   interface{}
	// Token overrides the client's auth token for this call.
	Token string
}

type Response struct {
	StatusCode int
	Body       []byte
}

func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout:   timeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
}

func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = otelhttp.DefaultClient
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), httpClient: httpClient}
}

// WithCredentials returns a copy bound to creds; the receiver is unchanged.
func (cl *Client) WithCredentials(creds Credentials) *Client {
	cp := *cl
	cp.credentials = creds
	return &cp
}

func (cl *Client) Credentials() Credentials {
	return cl.credentials
}

func (cl *Client) BaseURL() string {
	return cl.baseURL
}

// Do sends req and returns the raw body of a 2xx answer. Transport failures
// wrap ErrUnavailable; non-2xx answers are *APIError.
func (cl *Client) Do(c context.Context, req Request) (Response, error) {
	endpoint := cl.baseURL + req.Path
	if len(req.Query) > 0 {
		endpoint += "?" + req.Query.Encode()
	}

	c, span := otel.Tracer.Start(
		c,
		"upstream Do",
		trace.WithAttributes(
			attribute.String(log.KeyRequestMethod, req.Method),
			attribute.String(log.KeyURL, endpoint),
		),
	)
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "upstream Do").
		Str(log.KeyRequestMethod, req.Method).
		Str(log.KeyURL, endpoint).
		Logger()

	var body io.Reader
	if req.Body != nil {
		logger = logger.With().Str(log.KeyProcess, "marshaling request body").Logger()
		logger.Trace().Msg("marshaling request body")
		b, err := json.Marshal(req.Body)
		if err != nil {
			err = fmt.Errorf("failed marshaling request body with error=%w", err)
			commonErrors.HandleError(err, span)
			logger.Error().Err(err).Msg(err.Error())
			return Response{}, err
		}
		body = bytes.NewReader(b)
		logger.Trace().Msg("marshaled request body")
	}

	logger = logger.With().Str(log.KeyProcess, "creating request").Logger()
	httpReq, err := http.NewRequestWithContext(c, req.Method, endpoint, body)
	if err != nil {
		err = fmt.Errorf("failed creating request with error=%w", err)
		commonErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return Response{}, err
	}
	httpReq.Header.Set("Accept", commonHttp.HeaderValueJson)
	if req.Body != nil {
		httpReq.Header.Set(commonHttp.HeaderContentType, commonHttp.HeaderValueJson)
	}
	if requestID := log.RequestIDFromContext(c); requestID != "" {
		httpReq.Header.Set(commonHttp.HeaderRequestID, requestID)
	}
	creds := cl.credentials
	if fromContext, ok := CredentialsFromContext(c); ok {
		creds = fromContext
	}
	token := req.Token
	if token == "" {
		token = creds.AuthToken
	}
	switch {
	case token != "":
		httpReq.Header.Set(commonHttp.HeaderAuthorization, "Bearer "+token)
	case creds.GuestSessionID != "":
		httpReq.Header.Set(commonHttp.HeaderGuestSessionID, creds.GuestSessionID)
	}

	logger = logger.With().Str(log.KeyProcess, "sending request").Logger()
	logger.Debug().Msg("sending request")
	resp, err := cl.httpClient.Do(httpReq)
	if err != nil {
		err = fmt.Errorf("failed sending request with error=%w", fmt.Errorf("%w: %w", ErrUnavailable, err))
		commonErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return Response{}, err
	}
	defer resp.Body.Close()

	logger = logger.With().
		Str(log.KeyProcess, "reading response body").
		Int(log.KeyResponseStatusCode, resp.StatusCode).
		Logger()
	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		err = fmt.Errorf("failed reading response body with error=%w", fmt.Errorf("%w: %w", ErrUnavailable, err))
		commonErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return Response{}, err
	}
	span.SetAttributes(attribute.Int(log.KeyResponseStatusCode, resp.StatusCode))

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		err := &APIError{
			StatusCode: resp.StatusCode,
			Message:    ExtractMessage(respBody, resp.StatusCode),
		}
		commonErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return Response{StatusCode: resp.StatusCode, Body: respBody}, err
	}
	logger.Debug().Msg("received response")

	return Response{StatusCode: resp.StatusCode, Body: respBody}, nil
}

// DoJSON is Do followed by decoding the body into out when out is not nil.
func (cl *Client) DoJSON(c context.Context, req Request, out interface{}) error {
	resp, err := cl.Do(c, req)
	if err != nil {
		return err
	}
	if out == nil || len(bytes.TrimSpace(resp.Body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Body, out); err != nil {
		return fmt.Errorf("failed decoding response body with error=%w", fmt.Errorf("%w: %w", commonErrors.ErrUpstreamMalformed, err))
	}
	return nil
}

// CheckAck turns a 2xx body of the form {"success": false, "message": ...}
// into an *APIError. Bodies without a success flag are accepted.
func CheckAck(resp Response) error {
	ack := struct {
		Success *bool `json:"success"`
	}{}
	if err := json.Unmarshal(resp.Body, &ack); err != nil || ack.Success == nil || *ack.Success {
		return nil
	}
	return &APIError{
		StatusCode: http.StatusUnprocessableEntity,
		Message:    ExtractMessage(resp.Body, http.StatusUnprocessableEntity),
	}
}
