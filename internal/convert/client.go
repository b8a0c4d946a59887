// Package convert talks to the remote services that turn Slim into HTML and
// HTML back into Slim.
//
// Each direction is its own wire contract. Requests are form encoded; the
// response body is decoded once into a Result so callers branch on its
// variant instead of probing nested fields.
package convert

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/conneroisu/slimview/internal/errors"
	"github.com/conneroisu/slimview/internal/version"
)

// Direction selects the conversion contract.
type Direction int

const (
	// ToHTML renders Slim source to HTML.
	ToHTML Direction = iota
	// ToSlim reconstructs Slim source from HTML.
	ToSlim
)

// String returns the string representation of the direction.
func (d Direction) String() string {
	switch d {
	case ToHTML:
		return "slim-to-html"
	case ToSlim:
		return "html-to-slim"
	default:
		return "unknown"
	}
}

const (
	// DefaultHTMLEndpoint renders Slim with the CodePen preprocessor.
	DefaultHTMLEndpoint = "http://preprocessor.codepen.io"
	// DefaultSlimEndpoint converts HTML to Slim.
	DefaultSlimEndpoint = "http://www.html2slim.net/convert.json"
	// DefaultPreProcessor is the preprocessor name sent with ToHTML requests.
	DefaultPreProcessor = "slim"
	// DefaultTimeout bounds a single HTTP exchange.
	DefaultTimeout = 30 * time.Second
	// DefaultMaxResponseBytes caps the response body size.
	DefaultMaxResponseBytes int64 = 8 << 20
)

// Request is one conversion call.
type Request struct {
	Direction Direction
	Text      string
}

// Converter converts text remotely. The error return is reserved for
// transport failures; service-level outcomes are reported through Result.
type Converter interface {
	Convert(ctx context.Context, req Request) (Result, error)
}

// Options configures an HTTPConverter.
type Options struct {
	HTMLEndpoint     string
	SlimEndpoint     string
	PreProcessor     string
	Timeout          time.Duration
	MaxResponseBytes int64
	HTTPClient       *http.Client
}

// HTTPConverter implements Converter over HTTP POST.
type HTTPConverter struct {
	htmlEndpoint     string
	slimEndpoint     string
	preProcessor     string
	maxResponseBytes int64
	httpClient       *http.Client
	userAgent        string
}

// NewHTTPConverter creates a converter, filling unset options with defaults.
func NewHTTPConverter(opts Options) *HTTPConverter {
	if opts.HTMLEndpoint == "" {
		opts.HTMLEndpoint = DefaultHTMLEndpoint
	}
	if opts.SlimEndpoint == "" {
		opts.SlimEndpoint = DefaultSlimEndpoint
	}
	if opts.PreProcessor == "" {
		opts.PreProcessor = DefaultPreProcessor
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.MaxResponseBytes <= 0 {
		opts.MaxResponseBytes = DefaultMaxResponseBytes
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}

	return &HTTPConverter{
		htmlEndpoint:     opts.HTMLEndpoint,
		slimEndpoint:     opts.SlimEndpoint,
		preProcessor:     opts.PreProcessor,
		maxResponseBytes: opts.MaxResponseBytes,
		httpClient:       client,
		userAgent:        version.UserAgent(),
	}
}

// Endpoint returns the URL used for direction.
func (c *HTTPConverter) Endpoint(direction Direction) string {
	if direction == ToSlim {
		return c.slimEndpoint
	}
	return c.htmlEndpoint
}

// Form builds the request body for req.
func (c *HTTPConverter) Form(req Request) url.Values {
	form := url.Values{}
	switch req.Direction {
	case ToSlim:
		form.Set("data", req.Text)
	default:
		form.Set("html", req.Text)
		form.Set("html_pre_processor", c.preProcessor)
	}
	return form
}

// Convert implements Converter.
func (c *HTTPConverter) Convert(ctx context.Context, req Request) (Result, error) {
	if req.Direction != ToHTML && req.Direction != ToSlim {
		return nil, errors.NewValidationError(errors.ErrCodeUnsupportedKind,
			"unsupported conversion direction: "+req.Direction.String())
	}

	endpoint := c.Endpoint(req.Direction)
	body := strings.NewReader(c.Form(req).Encode())

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return nil, errors.NewTransportError("failed to create request", err).
			WithContext("endpoint", endpoint)
	}

	requestID := uuid.New().String()
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", c.userAgent)
	httpReq.Header.Set("X-Request-ID", requestID)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, errors.NewTransportError("conversion request failed", err).
			WithContext("endpoint", endpoint).
			WithContext("request_id", requestID)
	}
	defer func() { _ = resp.Body.Close() }() // Error ignored: response consumed

	data, err := io.ReadAll(io.LimitReader(resp.Body, c.maxResponseBytes+1))
	if err != nil {
		return nil, errors.NewTransportError("failed to read response", err).
			WithContext("request_id", requestID)
	}
	if int64(len(data)) > c.maxResponseBytes {
		e := errors.NewTransportError(
			fmt.Sprintf("response exceeds %d bytes", c.maxResponseBytes), nil)
		e.Code = errors.ErrCodeResponseTooLarge
		return nil, e.WithContext("request_id", requestID)
	}

	result := Decode(req.Direction, data)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if svcErr, ok := result.(ServiceError); ok {
			return svcErr, nil
		}
		e := errors.NewTransportError(
			fmt.Sprintf("conversion service returned status %d", resp.StatusCode), nil)
		e.Code = errors.ErrCodeUnexpectedStatus
		return nil, e.WithContext("request_id", requestID).
			WithContext("status", resp.StatusCode)
	}

	return result, nil
}
