package labclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/labflow/backend/internal/domain/remote"
	"github.com/labflow/backend/internal/infrastructure/telemetry"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Option configures a client
type Option func(*transport)

// WithHTTPClient replaces the default HTTP client
func WithHTTPClient(client *http.Client) Option {
	return func(t *transport) {
		t.http = client
	}
}

// WithRemoteMetrics records every call in m
func WithRemoteMetrics(m *telemetry.RemoteMetrics) Option {
	return func(t *transport) {
		t.metrics = m
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(t *transport) {
		t.logger = logger
	}
}

// transport performs JSON requests against one base URL and maps failures
// onto remote.ServiceError.
type transport struct {
	service     string
	baseURL     string
	contentType string
	http        *http.Client
	metrics     *telemetry.RemoteMetrics
	logger      *zap.Logger
}

func newTransport(service, contentType string, cfg ServiceConfig, opts []Option) (*transport, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", service, err)
	}
	t := &transport{
		service:     service,
		baseURL:     cfg.BaseURL,
		contentType: contentType,
		http:        &http.Client{Timeout: cfg.Timeout},
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// call describes one request
type call struct {
	operation string
	method    string
	path      string
	query     url.Values
	body      any
}

// do sends c and decodes a successful response into out when out is non-nil.
func (t *transport) do(ctx context.Context, c call, out any) (err error) {
	start := time.Now()
	status := 0

	ctx, span := telemetry.StartSpan(ctx, "labclient."+t.service+"."+c.operation,
		telemetry.WithSpanKind(trace.SpanKindClient),
		telemetry.WithAttribute(telemetry.AttrKeyRemoteMethod, c.method),
		telemetry.WithAttribute(telemetry.AttrKeyRemotePath, c.path),
	)
	defer func() {
		d := time.Since(start)
		t.metrics.RecordCall(ctx, t.service, c.operation, status, d)
		if err != nil {
			telemetry.RecordError(span, err)
		} else {
			telemetry.SetOK(span)
		}
		span.End()
		t.logger.Debug("remote call",
			zap.String("service", t.service),
			zap.String("operation", c.operation),
			zap.String("method", c.method),
			zap.String("path", c.path),
			zap.Int("status", status),
			zap.Duration("duration", d),
			zap.Error(err),
		)
	}()

	target := t.baseURL + c.path
	if len(c.query) > 0 {
		target += "?" + c.query.Encode()
	}

	var body io.Reader
	if c.body != nil {
		payload, err := json.Marshal(c.body)
		if err != nil {
			return t.fail(c, 0, fmt.Errorf("encode request: %w", err))
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, c.method, target, body)
	if err != nil {
		return t.fail(c, 0, fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Accept", t.contentType)
	if body != nil {
		req.Header.Set("Content-Type", t.contentType)
	}

	resp, err := t.http.Do(req)
	if err != nil {
		return t.fail(c, 0, fmt.Errorf("%w: %v", remote.ErrServiceUnavailable, err))
	}
	defer resp.Body.Close()
	status = resp.StatusCode

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return t.fail(c, status, fmt.Errorf("read response: %w", err))
	}

	switch {
	case status == http.StatusNotFound:
		return t.fail(c, status, remote.ErrNotFound)
	case status >= 500:
		return t.fail(c, status, fmt.Errorf("%w: %s", remote.ErrServiceUnavailable, snippet(raw)))
	case status >= 400:
		return t.fail(c, status, fmt.Errorf("%w: %s", remote.ErrRequestFailed, snippet(raw)))
	}

	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return t.fail(c, status, fmt.Errorf("%w: decode response: %v", remote.ErrRequestFailed, err))
	}
	return nil
}

func (t *transport) fail(c call, status int, err error) error {
	return &remote.ServiceError{
		Service:    t.service,
		Operation:  c.operation,
		StatusCode: status,
		Err:        err,
	}
}

// snippet bounds error bodies quoted in messages
func snippet(raw []byte) string {
	const limit = 256
	raw = bytes.TrimSpace(raw)
	if len(raw) > limit {
		return string(raw[:limit]) + "..."
	}
	return string(raw)
}
