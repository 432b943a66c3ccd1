package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/dmehra2102/prod-golang-projects/repdash/config"
)

const maxBodyBytes = 64 << 20

// TokenSource yields the bearer token for the caller behind ctx.
type TokenSource interface {
	Token(ctx context.Context) (string, bool)
}

type TokenFunc func(ctx context.Context) (string, bool)

func (f TokenFunc) Token(ctx context.Context) (string, bool) { return f(ctx) }

// Observer receives one call per finished upstream operation.
type Observer interface {
	UpstreamCall(op, outcome string, seconds float64)
}

type Client struct {
	baseURL  string
	http     *http.Client
	tokens   TokenSource
	breaker  *gobreaker.CircuitBreaker[*response]
	tracer   trace.Tracer
	observer Observer
	maxBody  int64
	log      *zap.Logger
}

type Option func(*Client)

func WithObserver(o Observer) Option {
	return func(c *Client) { c.observer = o }
}

// WithTransport replaces the underlying round tripper. The client timeout is
// kept.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) { c.http.Transport = rt }
}

func New(cfg config.UpstreamConfig, tokens TokenSource, log *zap.Logger, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    &http.Client{Timeout: cfg.Timeout},
		tokens:  tokens,
		tracer:  otel.Tracer("repdash/upstream"),
		maxBody: maxBodyBytes,
		log:     log,
	}

	failures := cfg.BreakerFailures
	if failures == 0 {
		failures = 5
	}
	c.breaker = gobreaker.NewCircuitBreaker[*response](gobreaker.Settings{
		Name:        "upstream",
		MaxRequests: 1,
		Timeout:     cfg.BreakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !tripsBreaker(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("upstream circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})

	for _, opt := range opts {
		opt(c)
	}
	return c
}

type request struct {
	op     string
	method string
	path   string
	query  url.Values
	body   any
	// anonymous requests (login) carry no bearer token.
	anonymous bool
}

type response struct {
	status      int
	contentType string
	body        []byte
}

// do runs one exchange through the breaker and normalizes every failure
// into *Error.
func (c *Client) do(ctx context.Context, req request) (*response, error) {
	ctx, span := c.tracer.Start(ctx, "upstream."+req.op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", req.method),
			attribute.String("url.path", req.path),
		),
	)
	defer span.End()

	start := time.Now()
	resp, err := c.breaker.Execute(func() (*response, error) {
		resp, err := c.exchange(ctx, req)
		if err != nil {
			return nil, c.normalize(req.op, err)
		}
		return resp, nil
	})
	if err != nil {
		err = c.normalize(req.op, err)
	}

	outcome := "ok"
	if err != nil {
		outcome = string(KindOf(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
	}
	if c.observer != nil {
		c.observer.UpstreamCall(req.op, outcome, time.Since(start).Seconds())
	}
	if err != nil {
		c.log.Debug("upstream call failed",
			zap.String("op", req.op),
			zap.String("kind", outcome),
			zap.Error(err),
		)
		return nil, err
	}
	return resp, nil
}

func (c *Client) exchange(ctx context.Context, req request) (*response, error) {
	u := c.baseURL + req.path
	if len(req.query) > 0 {
		u += "?" + req.query.Encode()
	}

	var body io.Reader
	if req.body != nil {
		buf, err := json.Marshal(req.body)
		if err != nil {
			return nil, &Error{Kind: KindValidation, Op: req.op, Message: defaultMessage(req.op), Err: err}
		}
		body = bytes.NewReader(buf)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, u, body)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if id := RequestIDFrom(ctx); id != "" {
		httpReq.Header.Set("X-Request-ID", id)
	}
	if !req.anonymous && c.tokens != nil {
		if token, ok := c.tokens.Token(ctx); ok {
			httpReq.Header.Set("Authorization", "Bearer "+token)
		}
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(httpReq.Header))

	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(httpResp.Body, c.maxBody+1))
	if err != nil {
		return nil, err
	}
	if int64(len(raw)) > c.maxBody {
		return nil, &Error{
			Kind:    KindUnstructured,
			Status:  httpResp.StatusCode,
			Message: messageFor(req.op, KindUnstructured),
			Op:      req.op,
			Err:     ErrBodyTooLarge,
		}
	}

	resp := &response{
		status:      httpResp.StatusCode,
		contentType: httpResp.Header.Get("Content-Type"),
		body:        raw,
	}
	if resp.status >= 400 {
		return nil, statusError(req.op, resp)
	}
	return resp, nil
}

func statusError(op string, resp *response) *Error {
	msg, structured := extractMessage(resp.body)
	kind := kindForStatus(resp.status, structured)
	if msg == "" {
		msg = messageFor(op, kind)
	}
	return &Error{Kind: kind, Status: resp.status, Message: msg, Op: op}
}

func (c *Client) normalize(op string, err error) error {
	var ue *Error
	if errors.As(err, &ue) {
		return ue
	}

	kind := KindNetwork
	var netErr net.Error
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		kind = KindUnavailable
	case errors.Is(err, context.Canceled):
		kind = KindCanceled
	case errors.Is(err, context.DeadlineExceeded):
		kind = KindTimeout
	case errors.As(err, &netErr) && netErr.Timeout():
		kind = KindTimeout
	}
	return &Error{Kind: kind, Message: messageFor(op, kind), Op: op, Err: err}
}

type requestIDKey struct{}

// WithRequestID makes the id travel to the upstream as X-Request-ID.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
