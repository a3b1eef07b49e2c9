// Copyright (c) 2025 LOXTR
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package gateway is the single chokepoint for calls to the LOXTR API.
// It attaches the bearer credential, renews an expired session exactly once per
// call, and turns every failure into a typed error from internal/errors.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	apperrors "loxtr/console/internal/errors"
	"loxtr/console/internal/logging"
)

// DefaultTimeout is the fixed deadline of a single call.
const DefaultTimeout = 120 * time.Second

// DefaultRefreshPath is the session renewal endpoint relative to the base URL.
const DefaultRefreshPath = "/auth/refresh"

// Request describes one remote call. Body, when non-nil, is sent as JSON.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Body   any
	Header http.Header
}

// Response is a successful (2xx) reply.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// Gateway performs authenticated calls against one API base URL.
type Gateway struct {
	baseURL        string
	client         *http.Client
	creds          Credentials
	refreshPath    string
	timeout        time.Duration
	onSessionEnded func()
	logger         zerolog.Logger
	tracer         trace.Tracer
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithTimeout overrides the per-call deadline.
func WithTimeout(d time.Duration) Option {
	return func(g *Gateway) {
		if d > 0 {
			g.timeout = d
		}
	}
}

// WithHTTPClient replaces the transport client. Its Timeout is ignored; the
// gateway applies its own deadline per call.
func WithHTTPClient(c *http.Client) Option {
	return func(g *Gateway) { g.client = c }
}

// WithRefreshPath overrides the session renewal endpoint.
func WithRefreshPath(p string) Option {
	return func(g *Gateway) {
		if p != "" {
			g.refreshPath = p
		}
	}
}

// WithSessionEnded registers the hook run after a failed renewal cleared the credentials.
func WithSessionEnded(fn func()) Option {
	return func(g *Gateway) { g.onSessionEnded = fn }
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(g *Gateway) { g.logger = l }
}

// New creates a gateway for baseURL (e.g. "https://host/api").
func New(baseURL string, creds Credentials, opts ...Option) *Gateway {
	if creds == nil {
		creds = &MemoryCredentials{}
	}
	g := &Gateway{
		baseURL:     strings.TrimRight(baseURL, "/"),
		client:      &http.Client{},
		creds:       creds,
		refreshPath: DefaultRefreshPath,
		timeout:     DefaultTimeout,
		logger:      zerolog.Nop(),
		tracer:      otel.Tracer("loxtr/console/gateway"),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// BaseURL returns the API base URL.
func (g *Gateway) BaseURL() string { return g.baseURL }

// Credentials returns the credential store used by the gateway.
func (g *Gateway) Credentials() Credentials { return g.creds }

// Call performs req. On 401 with a held refresh token it renews the session
// once and re-issues req once; a failed renewal clears the credentials, runs
// the session-ended hook and returns AuthExpired wrapping SessionEnded. Other non-2xx replies
// become RemoteError and are never retried.
func (g *Gateway) Call(ctx context.Context, req Request) (*Response, error) {
	ctx, span := g.tracer.Start(ctx, "gateway.call", trace.WithAttributes(
		attribute.String("http.method", req.Method),
		attribute.String("http.route", req.Path),
	))
	defer span.End()

	resp, err := g.do(ctx, req, g.creds.AccessToken())
	if err == nil && resp.Status == http.StatusUnauthorized {
		resp, err = g.renewAndRetry(ctx, req)
	}
	if err == nil && (resp.Status < 200 || resp.Status > 299) {
		err = apperrors.Remote(resp.Status, serverMessage(resp.Body))
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(apperrors.KindOf(err)))
		g.logger.Debug().
			Str("method", req.Method).
			Str("path", req.Path).
			Str("kind", string(apperrors.KindOf(err))).
			Msg(logging.Mask(err.Error()))
		return nil, err
	}
	span.SetAttributes(attribute.Int("http.status_code", resp.Status))
	return resp, nil
}

func (g *Gateway) renewAndRetry(ctx context.Context, req Request) (*Response, error) {
	refresh := g.creds.RefreshToken()
	if refresh == "" {
		return nil, apperrors.New(apperrors.AuthExpired, "not logged in or session expired")
	}
	access, err := g.refresh(ctx, refresh)
	if err != nil {
		if cerr := g.creds.Clear(); cerr != nil {
			g.logger.Warn().Err(cerr).Msg("clear credentials after failed refresh")
		}
		if g.onSessionEnded != nil {
			g.onSessionEnded()
		}
		return nil, apperrors.Wrap(apperrors.AuthExpired, "session ended, log in again",
			apperrors.Wrap(apperrors.SessionEnded, "refresh failed", err))
	}
	resp, err := g.do(ctx, req, access)
	if err != nil {
		return nil, err
	}
	if resp.Status == http.StatusUnauthorized {
		return nil, apperrors.Wrap(apperrors.AuthExpired, "renewed credentials were rejected", apperrors.Remote(resp.Status, serverMessage(resp.Body)))
	}
	return resp, nil
}

// refresh exchanges the refresh token for a new access token and stores it.
// It never goes through the 401 handling of Call.
func (g *Gateway) refresh(ctx context.Context, refreshToken string) (string, error) {
	resp, err := g.do(ctx, Request{
		Method: http.MethodPost,
		Path:   g.refreshPath,
		Body:   map[string]string{"refreshToken": refreshToken},
	}, "")
	if err != nil {
		return "", err
	}
	if resp.Status != http.StatusOK {
		return "", apperrors.Remote(resp.Status, serverMessage(resp.Body))
	}
	access, rotated, err := parseTokens(resp.Body)
	if err != nil {
		return "", err
	}
	if err := g.creds.SetTokens(access, rotated); err != nil {
		return "", fmt.Errorf("store refreshed token: %w", err)
	}
	g.logger.Debug().Bool("rotated", rotated != "").Msg("session renewed")
	return access, nil
}

func (g *Gateway) do(ctx context.Context, req Request, token string) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	var body io.Reader
	if req.Body != nil {
		b, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("encode %s body: %w", req.Path, err)
		}
		body = bytes.NewReader(b)
	}

	u := g.baseURL + req.Path
	if len(req.Query) > 0 {
		u += "?" + req.Query.Encode()
	}
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	hreq, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, err
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			hreq.Header.Add(k, v)
		}
	}
	hreq.Header.Set("Accept", "application/json")
	hreq.Header.Set("X-Request-Id", uuid.NewString())
	if body != nil {
		hreq.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		hreq.Header.Set("Authorization", "Bearer "+token)
	}

	hresp, err := g.client.Do(hreq)
	if err != nil {
		return nil, g.classify(ctx, err)
	}
	defer hresp.Body.Close()

	b, err := io.ReadAll(hresp.Body)
	if err != nil {
		return nil, g.classify(ctx, err)
	}
	return &Response{Status: hresp.StatusCode, Header: hresp.Header, Body: b}, nil
}

func (g *Gateway) classify(ctx context.Context, err error) error {
	var nerr net.Error
	if stderrors.Is(ctx.Err(), context.DeadlineExceeded) || (stderrors.As(err, &nerr) && nerr.Timeout()) {
		return apperrors.Wrap(apperrors.Timeout, fmt.Sprintf("no response within %s", g.timeout), err)
	}
	return apperrors.Wrap(apperrors.Network, "request failed", err)
}
