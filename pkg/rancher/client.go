package rancher

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cuemby/corral/pkg/metrics"
	"github.com/cuemby/corral/pkg/types"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"
)

// ErrRemoteCallFailed wraps transport failures and unexpected status codes
var ErrRemoteCallFailed = errors.New("rancher API call failed")

// maxBodyBytes caps how much of a response body is read
const maxBodyBytes = 8 << 20

var tracer = otel.Tracer("corral.rancher")

// API is the subset of the Rancher v2-beta API the deployer needs.
// Every call distinguishes "not there" (None) from a failed call (error).
type API interface {
	Environment(ctx context.Context, envID string) (types.Optional[types.Environment], error)
	Stacks(ctx context.Context, envID string) (types.Optional[[]types.Stack], error)
	CreateStack(ctx context.Context, stack types.Stack, envID string) (types.Optional[types.Stack], error)
	Services(ctx context.Context, envID, stackID string) (types.Optional[[]types.Service], error)
	Service(ctx context.Context, envID, serviceID string) (types.Optional[types.Service], error)
	CreateService(ctx context.Context, service types.Service, envID, stackID string) (types.Optional[types.Service], error)
	UpgradeService(ctx context.Context, envID, serviceID string, upgrade types.ServiceUpgrade) (types.Optional[types.Service], error)
	FinishUpgrade(ctx context.Context, envID, serviceID string) (types.Optional[types.Service], error)
	RollbackUpgrade(ctx context.Context, envID, serviceID string) (types.Optional[types.Service], error)
}

// StatusError is returned when Rancher answers with a status other than
// 200, 201, 202 or 404
type StatusError struct {
	Operation  string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: %s returned status %d: %s", ErrRemoteCallFailed, e.Operation, e.StatusCode, e.Body)
}

func (e *StatusError) Unwrap() error {
	return ErrRemoteCallFailed
}

// Client talks to a Rancher v2-beta endpoint over HTTP
type Client struct {
	endpoint   string
	accessKey  string
	secretKey  string
	requestID  string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// Ensure Client implements API.
var _ API = (*Client)(nil)

// Option configures a Client
type Option func(*Client)

// WithCredentials sets the API key pair used for basic auth
func WithCredentials(accessKey, secretKey string) Option {
	return func(c *Client) {
		c.accessKey = accessKey
		c.secretKey = secretKey
	}
}

// WithHTTPClient replaces the default HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithRateLimit bounds outbound requests per second. Zero disables limiting.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(c *Client) {
		if perSecond <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// WithRequestID sets the X-Request-Id header sent with every call
func WithRequestID(id string) Option {
	return func(c *Client) {
		c.requestID = id
	}
}

// NewClient creates a client for endpoint, e.g. "https://rancher.example.com/v2-beta"
func NewClient(endpoint string, opts ...Option) (*Client, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid endpoint %q: %w", endpoint, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid endpoint %q: scheme must be http or https", endpoint)
	}

	c := &Client{
		endpoint: strings.TrimRight(endpoint, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		limiter: rate.NewLimiter(rate.Limit(10), 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Environment fetches an environment, used as a connectivity probe
func (c *Client) Environment(ctx context.Context, envID string) (types.Optional[types.Environment], error) {
	var env types.Environment
	found, err := c.do(ctx, "environment", http.MethodGet, projectPath(envID), nil, nil, &env)
	return result(env, found, err)
}

// Stacks lists the stacks in an environment
func (c *Client) Stacks(ctx context.Context, envID string) (types.Optional[[]types.Stack], error) {
	var stacks types.Stacks
	found, err := c.do(ctx, "stacks", http.MethodGet, projectPath(envID, "stacks"), nil, nil, &stacks)
	return result(stacks.Data, found, err)
}

// CreateStack creates a stack and returns it with its assigned id
func (c *Client) CreateStack(ctx context.Context, stack types.Stack, envID string) (types.Optional[types.Stack], error) {
	var created types.Stack
	found, err := c.do(ctx, "create_stack", http.MethodPost, projectPath(envID, "stack"), nil, stack, &created)
	return result(created, found, err)
}

// Services lists the services in a stack
func (c *Client) Services(ctx context.Context, envID, stackID string) (types.Optional[[]types.Service], error) {
	var services types.Services
	found, err := c.do(ctx, "services", http.MethodGet, projectPath(envID, "stacks", stackID, "services"), nil, nil, &services)
	return result(services.Data, found, err)
}

// Service fetches a single service by id
func (c *Client) Service(ctx context.Context, envID, serviceID string) (types.Optional[types.Service], error) {
	var service types.Service
	found, err := c.do(ctx, "service", http.MethodGet, projectPath(envID, "services", serviceID), nil, nil, &service)
	return result(service, found, err)
}

// CreateService creates a service inside stackID
func (c *Client) CreateService(ctx context.Context, service types.Service, envID, stackID string) (types.Optional[types.Service], error) {
	service.StackID = stackID
	var created types.Service
	found, err := c.do(ctx, "create_service", http.MethodPost, projectPath(envID, "service"), nil, service, &created)
	return result(created, found, err)
}

// UpgradeService starts an in-service upgrade
func (c *Client) UpgradeService(ctx context.Context, envID, serviceID string, upgrade types.ServiceUpgrade) (types.Optional[types.Service], error) {
	return c.action(ctx, "upgrade", envID, serviceID, upgrade)
}

// FinishUpgrade confirms an upgraded service
func (c *Client) FinishUpgrade(ctx context.Context, envID, serviceID string) (types.Optional[types.Service], error) {
	return c.action(ctx, "finishupgrade", envID, serviceID, nil)
}

// RollbackUpgrade reverts an upgraded service to its previous revision
func (c *Client) RollbackUpgrade(ctx context.Context, envID, serviceID string) (types.Optional[types.Service], error) {
	return c.action(ctx, "rollback", envID, serviceID, nil)
}

func (c *Client) action(ctx context.Context, action, envID, serviceID string, body any) (types.Optional[types.Service], error) {
	var service types.Service
	query := url.Values{"action": []string{action}}
	found, err := c.do(ctx, action, http.MethodPost, projectPath(envID, "services", serviceID)+"/", query, body, &service)
	return result(service, found, err)
}

// do performs one request. It reports found=false for 404 or an empty
// success body, and decodes any other success into out.
func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, body, out any) (bool, error) {
	ctx, span := tracer.Start(ctx, "rancher."+op, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(
		attribute.String("rancher.operation", op),
		attribute.String("http.method", method),
	)

	found, err := c.roundTrip(ctx, op, method, path, query, body, out)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return found, err
}

func (c *Client) roundTrip(ctx context.Context, op, method, path string, query url.Values, body, out any) (bool, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return false, fmt.Errorf("%w: %s: %w", ErrRemoteCallFailed, op, err)
		}
	}

	target := c.endpoint + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return false, fmt.Errorf("failed to encode %s request: %w", op, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return false, fmt.Errorf("failed to create %s request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.accessKey != "" || c.secretKey != "" {
		req.SetBasicAuth(c.accessKey, c.secretKey)
	}
	if c.requestID != "" {
		req.Header.Set("X-Request-Id", c.requestID)
	}

	timer := metrics.NewTimer()
	resp, err := c.httpClient.Do(req)
	timer.ObserveDurationVec(metrics.RemoteRequestDuration, op)
	if err != nil {
		metrics.RemoteRequestsTotal.WithLabelValues(op, "error").Inc()
		return false, fmt.Errorf("%w: %s: %w", ErrRemoteCallFailed, op, err)
	}
	defer resp.Body.Close()

	metrics.RemoteRequestsTotal.WithLabelValues(op, strconv.Itoa(resp.StatusCode)).Inc()
	trace.SpanFromContext(ctx).SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return false, fmt.Errorf("%w: %s: reading response: %w", ErrRemoteCallFailed, op, err)
	}

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated, http.StatusAccepted:
	case http.StatusNotFound:
		return false, nil
	default:
		return false, &StatusError{Operation: op, StatusCode: resp.StatusCode, Body: string(data)}
	}

	if out == nil {
		return true, nil
	}
	// a success status with nothing to decode is not a usable result
	if len(bytes.TrimSpace(data)) == 0 {
		return false, nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return false, fmt.Errorf("%w: %s: decoding response: %w", ErrRemoteCallFailed, op, err)
	}
	return true, nil
}

func result[T any](v T, found bool, err error) (types.Optional[T], error) {
	if err != nil || !found {
		return types.None[T](), err
	}
	return types.Some(v), nil
}

func projectPath(envID string, parts ...string) string {
	var b strings.Builder
	b.WriteString("/projects/")
	b.WriteString(url.PathEscape(envID))
	for _, p := range parts {
		b.WriteString("/")
		b.WriteString(url.PathEscape(p))
	}
	return b.String()
}
