// Package gateway is the single HTTP client the repositories talk through.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	apierrors "github.com/yukikurage/task-management-client/internal/errors"
	"github.com/yukikurage/task-management-client/internal/logger"
	"github.com/yukikurage/task-management-client/internal/metrics"
	"golang.org/x/time/rate"
)

const (
	DefaultTimeout = 10 * time.Second

	maxBodyBytes = 4 << 20
)

// Gateway sends JSON requests to the API base URL.
type Gateway struct {
	baseURL   string
	client    *http.Client
	decorate  RequestDecorator
	normalize ResponseNormalizer
	limiter   *rate.Limiter
	metrics   metrics.Recorder
	logger    *slog.Logger
}

type Option func(*Gateway)

// WithTimeout bounds every request, including reading the body.
func WithTimeout(d time.Duration) Option {
	return func(g *Gateway) {
		if d > 0 {
			g.client.Timeout = d
		}
	}
}

// WithTransport replaces the HTTP transport.
func WithTransport(rt http.RoundTripper) Option {
	return func(g *Gateway) { g.client.Transport = rt }
}

// WithRateLimit caps outgoing requests per second. Zero disables the limit.
func WithRateLimit(rps float64) Option {
	return func(g *Gateway) {
		if rps > 0 {
			burst := int(rps)
			if burst < 1 {
				burst = 1
			}
			g.limiter = rate.NewLimiter(rate.Limit(rps), burst)
		}
	}
}

func WithMetrics(m metrics.Recorder) Option {
	return func(g *Gateway) { g.metrics = m }
}

func WithLogger(l *slog.Logger) Option {
	return func(g *Gateway) { g.logger = l }
}

// WithDecorators appends decorators after the default chain.
func WithDecorators(ds ...RequestDecorator) Option {
	return func(g *Gateway) { g.decorate = Chain(g.decorate, Chain(ds...)) }
}

// New creates a Gateway. tokens supplies the bearer credential and
// onUnauthorized is called on every 401 response.
func New(baseURL string, tokens TokenSource, onUnauthorized func(), opts ...Option) *Gateway {
	g := &Gateway{
		baseURL:   strings.TrimRight(baseURL, "/"),
		client:    &http.Client{Timeout: DefaultTimeout},
		decorate:  Chain(JSONHeaders(), RequestID(), BearerAuth(tokens)),
		normalize: Normalize(onUnauthorized),
		metrics:   metrics.Nop{},
		logger:    logger.Discard(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Do sends in as the JSON body (when non-nil) and decodes a 2xx body into out
// (when non-nil). Every error it returns is an *apierrors.APIError.
func (g *Gateway) Do(ctx context.Context, method, path string, in, out interface{}) error {
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return g.normalize(0, nil, err)
		}
	}

	var body io.Reader = http.NoBody
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return apierrors.NewAPIError(apierrors.ErrCodeInvalidInput, fmt.Sprintf("failed to encode request: %v", err))
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, body)
	if err != nil {
		return apierrors.FromTransport(err, false)
	}
	g.decorate(req)

	start := time.Now()
	status, respBody, err := g.roundTrip(req)
	g.metrics.RecordRequest(method, status, time.Since(start))

	if err := g.normalize(status, respBody, err); err != nil {
		g.logFailure(req, err)
		return err
	}

	if out != nil && len(bytes.TrimSpace(respBody)) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			g.logger.Error("failed to decode response", "method", method, "path", path, "error", err)
			return &apierrors.APIError{
				Code:    apierrors.ErrCodeInternalError,
				Message: "Unexpected response from server",
				Status:  status,
				Payload: respBody,
			}
		}
	}

	g.logger.Debug("api request", "method", method, "path", path, "status", status,
		"request_id", req.Header.Get(RequestIDHeader), "duration", time.Since(start))
	return nil
}

func (g *Gateway) roundTrip(req *http.Request) (int, []byte, error) {
	resp, err := g.client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return 0, nil, err
	}
	return resp.StatusCode, body, nil
}

func (g *Gateway) logFailure(req *http.Request, err error) {
	apiErr, ok := apierrors.As(err)
	if !ok {
		return
	}
	level := slog.LevelWarn
	if apiErr.Kind() == apierrors.KindServer {
		level = slog.LevelError
	}
	g.logger.Log(req.Context(), level, "api request failed",
		"method", req.Method,
		"path", req.URL.Path,
		"status", apiErr.Status,
		"kind", apiErr.Kind().String(),
		"request_id", req.Header.Get(RequestIDHeader),
		"error", apiErr.Message,
	)
}

func (g *Gateway) Get(ctx context.Context, path string, out interface{}) error {
	return g.Do(ctx, http.MethodGet, path, nil, out)
}

func (g *Gateway) Post(ctx context.Context, path string, in, out interface{}) error {
	return g.Do(ctx, http.MethodPost, path, in, out)
}

func (g *Gateway) Put(ctx context.Context, path string, in, out interface{}) error {
	return g.Do(ctx, http.MethodPut, path, in, out)
}

func (g *Gateway) Delete(ctx context.Context, path string) error {
	return g.Do(ctx, http.MethodDelete, path, nil, nil)
}
