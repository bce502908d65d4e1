// Package supabase talks to a Supabase-compatible backend: GoTrue auth endpoints,
// PostgREST row endpoints and edge functions, through the supabase-community clients.
package supabase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	functions "github.com/supabase-community/functions-go"
	gotrue "github.com/supabase-community/gotrue-go"
	postgrest "github.com/supabase-community/postgrest-go"
)

const (
	authPath      = "/auth/v1"
	restPath      = "/rest/v1"
	functionsPath = "/functions/v1"

	restSchema = "public"

	// DefaultTimeout bounds every call to the backend.
	DefaultTimeout = 15 * time.Second
)

// Config holds connection settings for the backend.
type Config struct {
	URL        string // Required, e.g. https://<project>.supabase.co
	AnonKey    string // Required
	HTTPClient *http.Client
	Timeout    time.Duration
	Logger     *slog.Logger
}

// Client holds the shared connection settings. Per-session state lives in Auth.
type Client struct {
	baseURL    *url.URL
	anonKey    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient validates cfg and builds a Client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.URL == "" {
		return nil, errors.New("supabase URL is required")
	}
	if cfg.AnonKey == "" {
		return nil, errors.New("supabase anon key is required")
	}
	u, err := url.Parse(strings.TrimSuffix(cfg.URL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse supabase URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("supabase URL must be absolute: %q", cfg.URL)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:    u,
		anonKey:    cfg.AnonKey,
		httpClient: httpClient,
		logger:     logger.With("component", "supabase"),
	}, nil
}

// Issuer is the token issuer of the auth service.
func (c *Client) Issuer() string { return c.baseURL.String() + authPath }

func (c *Client) bearer(token string) string {
	if token == "" {
		return c.anonKey
	}
	return token
}

// authClient returns a GoTrue client whose requests carry ctx and the extra query parameters.
func (c *Client) authClient(ctx context.Context, token string, query url.Values) gotrue.Client {
	base := c.httpClient.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	hc := http.Client{
		Transport: boundTransport{ctx: ctx, query: query, base: base},
		Timeout:   c.httpClient.Timeout,
	}
	return gotrue.New("", c.anonKey).
		WithCustomGoTrueURL(c.baseURL.String() + authPath).
		WithClient(hc).
		WithToken(c.bearer(token))
}

// restClient returns a PostgREST client authenticated as token.
func (c *Client) restClient(token string) (*postgrest.Client, error) {
	rc := postgrest.NewClient(c.baseURL.String()+restPath, restSchema, map[string]string{"apikey": c.anonKey})
	if rc.ClientError != nil {
		return nil, fmt.Errorf("build rest client: %w", rc.ClientError)
	}
	return rc.TokenAuth(c.bearer(token)), nil
}

// functionsClient returns an edge-function client authenticated as token.
func (c *Client) functionsClient(token string) *functions.Client {
	return functions.NewClient(c.baseURL.String()+functionsPath, c.bearer(token), map[string]string{"apikey": c.anonKey})
}

// boundTransport attaches a context and extra query parameters to every request.
type boundTransport struct {
	ctx   context.Context
	query url.Values
	base  http.RoundTripper
}

func (t boundTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(t.ctx)
	if len(t.query) > 0 {
		q := req.URL.Query()
		for k, vs := range t.query {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		req.URL.RawQuery = q.Encode()
	}
	return t.base.RoundTrip(req)
}

// detach runs fn for clients that take no context. It returns ctx's error as soon as ctx
// ends; fn still runs to completion.
func detach[T any](ctx context.Context, fn func() (T, error)) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}
	type result struct {
		v   T
		err error
	}
	done := make(chan result, 1)
	go func() {
		v, err := fn()
		done <- result{v, err}
	}()
	select {
	case r := <-done:
		return r.v, r.err
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// APIError is a non-2xx answer from the backend.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string { return e.Message }

// IsStatus reports whether err is an APIError with one of the given HTTP statuses.
func IsStatus(err error, statuses ...int) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	for _, s := range statuses {
		if apiErr.Status == s {
			return true
		}
	}
	return false
}

// errorBody covers the GoTrue error shapes.
type errorBody struct {
	Error            string          `json:"error"`
	ErrorDescription string          `json:"error_description"`
	ErrorCode        string          `json:"error_code"`
	Msg              string          `json:"msg"`
	Message          string          `json:"message"`
	Code             json.RawMessage `json:"code"`
}

func parseAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{Status: status}
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err == nil {
		var code string
		if len(eb.Code) > 0 && json.Unmarshal(eb.Code, &code) == nil {
			apiErr.Code = code
		}
		if apiErr.Code == "" {
			apiErr.Code = firstNonEmpty(eb.ErrorCode, eb.Error)
		}
		apiErr.Message = firstNonEmpty(eb.ErrorDescription, eb.Msg, eb.Message, eb.Error)
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(status)
	}
	return apiErr
}

// reStatus reads the "response status code 400: {...}" errors GoTrue calls return.
var reStatus = regexp.MustCompile(`(?s)status code (\d{3})(?::\s*(.*))?`)

// authError turns a GoTrue status error into an APIError. Other errors pass through.
func authError(err error) error {
	if err == nil {
		return nil
	}
	m := reStatus.FindStringSubmatch(err.Error())
	if m == nil {
		return err
	}
	status, convErr := strconv.Atoi(m[1])
	if convErr != nil {
		return err
	}
	return parseAPIError(status, []byte(strings.TrimSpace(m[2])))
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
