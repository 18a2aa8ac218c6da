// Package dnsapi talks to the NIC.RU DNS-master API: a Dispatcher that
// authorizes, throttles and retries requests, and a Client exposing the
// service, zone and record operations on top of it.
package dnsapi

import (
	"bytes"
	"context"
	"net/http"
	"strings"
	"time"

	"nic-dns/internal/circuitbreaker"
	"nic-dns/internal/common/errors"
	commonhttp "nic-dns/internal/common/http"
	"nic-dns/internal/common/logging"
	"nic-dns/internal/common/ratelimit"
	"nic-dns/internal/oauth2"
)

// DefaultBaseURL is the NIC.RU API host
const DefaultBaseURL = "https://api.nic.ru"

// TokenSource supplies bearer tokens. *oauth2.Manager implements it.
type TokenSource interface {
	EnsureValid(ctx context.Context) (oauth2.Token, error)
	Reauthorize(ctx context.Context, rejectedAccessToken string) (oauth2.Token, error)
}

// Request is a DNS-master call. Path is relative to <base>/dns-master/.
type Request struct {
	Method      string
	Path        string
	Body        []byte
	ContentType string
}

// Dispatcher sends authorized requests. When the API rejects the token it
// renews once and retries once; no other request is retried.
type Dispatcher struct {
	apiURL     string
	tokens     TokenSource
	httpClient commonhttp.Doer
	breaker    *circuitbreaker.GoBreakerAdapter
	limiter    ratelimit.Limiter
	logger     logging.Logger
}

// DispatcherOption configures a Dispatcher
type DispatcherOption func(*Dispatcher)

// WithBaseURL sets the API host; requests go to <baseURL>/dns-master/
func WithBaseURL(baseURL string) DispatcherOption {
	return func(d *Dispatcher) {
		d.apiURL = strings.TrimRight(baseURL, "/") + "/dns-master/"
	}
}

// WithHTTPClient sets the transport
func WithHTTPClient(client commonhttp.Doer) DispatcherOption {
	return func(d *Dispatcher) {
		d.httpClient = client
	}
}

// WithCircuitBreaker replaces the default API breaker
func WithCircuitBreaker(cb *circuitbreaker.GoBreakerAdapter) DispatcherOption {
	return func(d *Dispatcher) {
		d.breaker = cb
	}
}

// WithRateLimiter throttles outgoing requests
func WithRateLimiter(limiter ratelimit.Limiter) DispatcherOption {
	return func(d *Dispatcher) {
		d.limiter = limiter
	}
}

// WithLogger sets the logger
func WithLogger(logger logging.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

// NewDispatcher creates a Dispatcher drawing tokens from tokens
func NewDispatcher(tokens TokenSource, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{tokens: tokens}
	WithBaseURL(DefaultBaseURL)(d)

	for _, opt := range opts {
		opt(d)
	}

	if d.logger == nil {
		d.logger = logging.GetGlobalLogger()
	}
	if d.httpClient == nil {
		d.httpClient = commonhttp.NewHTTPClientWithTimeout(30 * time.Second)
	}
	if d.breaker == nil {
		d.breaker = circuitbreaker.NewGoBreaker("nic-dns-master", circuitbreaker.APIConfig, d.logger)
	}
	if d.limiter == nil {
		d.limiter, _ = ratelimit.NewLocalLimiter(ratelimit.Config{Enabled: false})
	}

	return d
}

// Do sends req and returns the response when its status is 2xx. Other
// statuses are mapped to errors, see responseError.
func (d *Dispatcher) Do(ctx context.Context, req *Request) (*commonhttp.Response, error) {
	if logging.RequestIDFromContext(ctx) == "" {
		ctx = logging.ContextWithRequestID(ctx)
	}
	logger := d.logger.WithContext(ctx)

	token, err := d.tokens.EnsureValid(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := d.send(ctx, req, token)
	if err == nil || !isAuthFailure(err) {
		return resp, err
	}

	logger.Warn("Access token rejected, renewing",
		logging.Field{Key: "method", Value: req.Method},
		logging.Field{Key: "path", Value: req.Path},
	)

	token, err = d.tokens.Reauthorize(ctx, token.AccessToken)
	if err != nil {
		return nil, err
	}

	resp, err = d.send(ctx, req, token)
	if err != nil && isAuthFailure(err) {
		appErr, _ := errors.As(err)
		retryErr := errors.AuthError("request rejected after token renewal").WithCode(appErr.Code)
		retryErr.Cause = err
		return nil, retryErr
	}
	return resp, err
}

func (d *Dispatcher) send(ctx context.Context, req *Request, token oauth2.Token) (*commonhttp.Response, error) {
	if err := d.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	logger := d.logger.WithContext(ctx)

	var resp *commonhttp.Response
	err := d.breaker.Execute(ctx, func() error {
		var body *bytes.Reader
		if req.Body != nil {
			body = bytes.NewReader(req.Body)
		}

		httpReq, err := newHTTPRequest(ctx, req.Method, d.apiURL+req.Path, body)
		if err != nil {
			return errors.InternalError("failed to create request", err)
		}
		httpReq.Header.Set("Authorization", token.AuthorizationHeader())
		if req.ContentType != "" {
			httpReq.Header.Set("Content-Type", req.ContentType)
		}
		if requestID := logging.RequestIDFromContext(ctx); requestID != "" {
			httpReq.Header.Set("X-Request-ID", requestID)
		}

		r, err := commonhttp.Do(ctx, d.httpClient, httpReq)
		if err != nil {
			return err
		}

		logger.Debug("DNS-master request finished",
			logging.Field{Key: "method", Value: req.Method},
			logging.Field{Key: "path", Value: req.Path},
			logging.Field{Key: "status", Value: r.StatusCode},
			logging.Field{Key: "duration", Value: r.Duration},
		)

		if r.StatusCode < 200 || r.StatusCode > 299 {
			return responseError(r)
		}
		resp = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// newHTTPRequest avoids handing a typed nil reader to net/http
func newHTTPRequest(ctx context.Context, method, url string, body *bytes.Reader) (*http.Request, error) {
	if body == nil {
		return http.NewRequestWithContext(ctx, method, url, nil)
	}
	return http.NewRequestWithContext(ctx, method, url, body)
}
