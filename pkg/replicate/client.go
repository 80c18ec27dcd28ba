// Package replicate is a client for the Replicate HTTP API.
//
// Every method maps to exactly one HTTP request. The only exception is
// Wait (and Run, which calls it), which polls a prediction or training
// until it reaches a terminal status.
package replicate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/replicate/go/logging"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

const tracerName = "github.com/replicate/replicate-client/pkg/replicate"

// Client is safe for concurrent use. Each sub-resource shares the
// Client's configuration and transport.
type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     *zap.Logger
	metrics    *clientMetrics

	Predictions *Predictions
	Models      *Models
	Collections *Collections
	Trainings   *Trainings
	Webhooks    *Webhooks
}

type Option func(*Client)

// WithHTTPClient replaces the default otelhttp-instrumented client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRegisterer registers request counters and latency histograms.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(c *Client) {
		c.metrics = newClientMetrics(reg)
	}
}

// New returns a Client for cfg. An invalid cfg is not rejected here;
// every method returns a *ConfigError before sending anything instead.
func New(cfg Config, opts ...Option) *Client {
	c := &Client{
		cfg: cfg.withDefaults(),
		httpClient: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = logging.New("replicate")
	} else {
		c.logger = c.logger.Named("replicate")
	}

	c.Predictions = &Predictions{client: c}
	c.Models = &Models{client: c, Versions: &Versions{client: c}}
	c.Collections = &Collections{client: c}
	c.Trainings = &Trainings{client: c}
	c.Webhooks = &Webhooks{client: c}
	return c
}

// NewFromEnv is New(ConfigFromEnv()).
func NewFromEnv(opts ...Option) (*Client, error) {
	cfg, err := ConfigFromEnv()
	if err != nil {
		return nil, err
	}
	return New(cfg, opts...), nil
}

func (c *Client) Config() Config {
	return c.cfg
}

// url resolves path against the base URL. Absolute URLs, such as page
// cursors, are only followed when they point at the same scheme and host
// so the token is never sent elsewhere.
func (c *Client) url(path string) (string, error) {
	if !strings.HasPrefix(path, "http://") && !strings.HasPrefix(path, "https://") {
		return c.cfg.BaseURL + path, nil
	}
	u, err := url.Parse(path)
	if err != nil {
		return "", fmt.Errorf("replicate: %w", err)
	}
	base, err := url.Parse(c.cfg.BaseURL)
	if err != nil {
		return "", &ConfigError{Field: "base_url", Err: fmt.Errorf("%w: %w", ErrInvalidBaseURL, err)}
	}
	if u.Scheme != base.Scheme || u.Host != base.Host {
		return "", fmt.Errorf("replicate: %w: %s", ErrForeignURL, u.Redacted())
	}
	return path, nil
}

func checkID(id string) error {
	if id == "" {
		return fmt.Errorf("replicate: %w", ErrMissingID)
	}
	return nil
}

// do sends one request and decodes a 2xx body into out when out is non-nil.
func (c *Client) do(ctx context.Context, op, method, path string, body, out any) (err error) {
	if err := c.cfg.Validate(); err != nil {
		return err
	}
	log := c.logger.Sugar()
	u, err := c.url(path)
	if err != nil {
		return err
	}

	ctx, span := otel.Tracer(tracerName).Start(ctx, "replicate."+op)
	span.SetAttributes(
		attribute.String("http.request.method", method),
		attribute.String("url.full", u),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	var reqBody io.Reader
	if body != nil {
		bs, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("replicate: failed to marshal request: %w", err)
		}
		reqBody = bytes.NewReader(bs)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return &TransportError{Method: method, URL: u, Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	log.Debugw("sending request", "op", op, "method", method, "url", u)
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.observe(op, method, "error", time.Since(start))
		return &TransportError{Method: method, URL: u, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	c.metrics.observe(op, method, strconv.Itoa(resp.StatusCode), time.Since(start))
	if err != nil {
		return &TransportError{Method: method, URL: u, Err: err}
	}
	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))
	log.Debugw("received response", "op", op, "status", resp.StatusCode, "bytes", len(respBody), "duration", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newAPIError(resp.StatusCode, respBody)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return &DecodeError{Body: string(respBody), Err: err}
	}
	return nil
}

// NextPage fetches the page after p into a new Page. It returns nil, nil
// when p is the last page.
func NextPage[T any](ctx context.Context, c *Client, p *Page[T]) (*Page[T], error) {
	if p == nil || p.Next == nil || *p.Next == "" {
		return nil, nil
	}
	next := &Page[T]{}
	if err := c.do(ctx, "pages.next", http.MethodGet, *p.Next, nil, next); err != nil {
		return nil, err
	}
	return next, nil
}
