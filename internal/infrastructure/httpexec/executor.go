// Package httpexec provides the token-guarded request executor used for every
// call to a remote system. An Executor owns one credential, acquires it before
// a request when it is missing or expired, and retries exactly once when the
// remote answers 401.
package httpexec

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// defaultMaxResponseSize bounds how much of a response body is read (10MB).
const defaultMaxResponseSize = 10 * 1024 * 1024

var (
	ErrAcquisitionFailed = errors.New("httpexec: token acquisition failed")
	ErrEncodeBody        = errors.New("httpexec: failed to encode request body")
	ErrTransport         = errors.New("httpexec: transport failure")
	ErrResponseTooLarge  = errors.New("httpexec: response body too large")
)

// Executor issues authorized requests against one remote system.
// It is safe for concurrent use.
type Executor struct {
	httpClient      *http.Client
	strategy        Strategy
	logger          *zap.Logger
	observer        Observer
	now             func() time.Time
	maxResponseSize int64

	mu    sync.Mutex
	token Token

	// acquireMu serializes pre-flight and 401-driven acquisitions.
	acquireMu sync.Mutex
	flight    singleflight.Group
}

// Option configures an Executor.
type Option func(*Executor)

// WithHTTPClient sets the client used for requests.
func WithHTTPClient(c *http.Client) Option {
	return func(e *Executor) {
		if c != nil {
			e.httpClient = c
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Executor) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithObserver sets the acquisition observer.
func WithObserver(o Observer) Option {
	return func(e *Executor) {
		e.observer = o
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(e *Executor) {
		if now != nil {
			e.now = now
		}
	}
}

// WithMaxResponseSize bounds the bytes read from a response body.
func WithMaxResponseSize(n int64) Option {
	return func(e *Executor) {
		if n > 0 {
			e.maxResponseSize = n
		}
	}
}

// New creates an Executor for strategy.
func New(strategy Strategy, opts ...Option) *Executor {
	e := &Executor{
		httpClient:      &http.Client{Timeout: 30 * time.Second},
		strategy:        strategy,
		logger:          zap.NewNop(),
		now:             time.Now,
		maxResponseSize: defaultMaxResponseSize,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With(zap.String("system", strategy.System()))
	return e
}

// Get issues a GET.
func (e *Executor) Get(ctx context.Context, url string) (*Response, error) {
	return e.Execute(ctx, http.MethodGet, url, nil, "")
}

// Post issues a POST. body may be nil, []byte, json.RawMessage or any JSON-encodable value.
func (e *Executor) Post(ctx context.Context, url string, body any, etag string) (*Response, error) {
	return e.Execute(ctx, http.MethodPost, url, body, etag)
}

// Patch issues a PATCH.
func (e *Executor) Patch(ctx context.Context, url string, body any, etag string) (*Response, error) {
	return e.Execute(ctx, http.MethodPatch, url, body, etag)
}

// Delete issues a DELETE.
func (e *Executor) Delete(ctx context.Context, url string, etag string) (*Response, error) {
	return e.Execute(ctx, http.MethodDelete, url, nil, etag)
}

// Execute issues method against url. A non-nil error means the request could
// not be encoded, authorized or transported; every received status, including
// a second 401, is returned as a Response.
func (e *Executor) Execute(ctx context.Context, method, url string, body any, etag string) (*Response, error) {
	payload, err := encodeBody(body)
	if err != nil {
		return nil, err
	}

	tok, err := e.ensureToken(ctx)
	if err != nil {
		if e.strategy.RequireToken() {
			return nil, fmt.Errorf("%w: %v", ErrAcquisitionFailed, err)
		}
		e.logger.Warn("Token acquisition failed, sending request with held credential",
			zap.String("method", method),
			zap.String("url", url),
			zap.Error(err),
		)
	}

	resp, err := e.send(ctx, method, url, payload, etag, tok)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized {
		return resp, nil
	}

	e.logger.Info("Request unauthorized, re-acquiring token",
		zap.String("method", method),
		zap.String("url", url),
	)
	fresh, err := e.reacquire(ctx, tok)
	if err != nil {
		e.logger.Error("Token re-acquisition failed",
			zap.String("url", url),
			zap.Error(err),
		)
		return resp, nil
	}
	return e.send(ctx, method, url, payload, etag, fresh)
}

func (e *Executor) current() Token {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.token
}

func (e *Executor) store(t Token) {
	e.mu.Lock()
	e.token = t
	e.mu.Unlock()
}

func (e *Executor) ensureToken(ctx context.Context) (Token, error) {
	if tok := e.current(); tok.Valid(e.now()) {
		return tok, nil
	}

	// Detached so one caller's cancellation does not fail the others sharing the flight.
	flightCtx := context.WithoutCancel(ctx)
	v, err, _ := e.flight.Do("acquire", func() (any, error) {
		e.acquireMu.Lock()
		defer e.acquireMu.Unlock()

		held := e.current()
		if held.Valid(e.now()) {
			return held, nil
		}
		grant, err := e.strategy.Acquire(flightCtx, held)
		e.observe(flightCtx, err)
		if err != nil {
			return held, err
		}
		fresh := e.tokenFrom(grant)
		e.store(fresh)
		e.logger.Debug("Token acquired", zap.Time("expires_at", fresh.ExpiresAt))
		return fresh, nil
	})
	return v.(Token), err
}

func (e *Executor) reacquire(ctx context.Context, rejected Token) (Token, error) {
	flightCtx := context.WithoutCancel(ctx)
	v, err, _ := e.flight.Do("reacquire", func() (any, error) {
		e.acquireMu.Lock()
		defer e.acquireMu.Unlock()

		held := e.current()
		// Another request already replaced the rejected credential.
		if held.Value != rejected.Value && held.Valid(e.now()) {
			return held, nil
		}
		grant, err := e.strategy.Reacquire(flightCtx, rejected)
		e.observe(flightCtx, err)
		if err != nil {
			e.store(Token{})
			return Token{}, err
		}
		fresh := e.tokenFrom(grant)
		e.store(fresh)
		return fresh, nil
	})
	return v.(Token), err
}

func (e *Executor) tokenFrom(g Grant) Token {
	return Token{
		Value:        g.AccessToken,
		RefreshToken: g.RefreshToken,
		ExpiresAt:    e.now().Add(g.ExpiresIn),
	}
}

func (e *Executor) observe(ctx context.Context, err error) {
	if e.observer != nil {
		e.observer.TokenAcquisition(ctx, e.strategy.System(), err)
	}
}

func (e *Executor) send(ctx context.Context, method, url string, payload []byte, etag string, tok Token) (*Response, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", ErrTransport, err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if !tok.IsZero() {
		req.Header.Set("Authorization", "Bearer "+tok.Value)
	}
	if etag != "" {
		req.Header.Set("If-Match", etag)
	}

	e.logger.Debug("Executing request",
		zap.String("method", method),
		zap.String("url", url),
		zap.Bool("if_match", etag != ""),
	)

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %v", ErrTransport, method, url, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, e.maxResponseSize+1))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrTransport, err)
	}
	if int64(len(data)) > e.maxResponseSize {
		return nil, fmt.Errorf("%w: %s %s", ErrResponseTooLarge, method, url)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header.Clone(),
		Body:       data,
	}, nil
}

func encodeBody(body any) ([]byte, error) {
	switch b := body.(type) {
	case nil:
		return nil, nil
	case []byte:
		return b, nil
	case json.RawMessage:
		return b, nil
	default:
		data, err := json.Marshal(b)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrEncodeBody, err)
		}
		return data, nil
	}
}
