package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	pkgerrors "ipdash/pkg/errors"
)

// Client talks to the optimizer API. It never retries; every failure is
// reported once as an *errors.APIError.
type Client struct {
	baseURL   *url.URL
	endpoints Endpoints
	http      *http.Client
	userAgent string
	logger    *zap.Logger
}

// ClientConfig represents client configuration
type ClientConfig struct {
	BaseURL   string
	Endpoints *Endpoints
	UserAgent string
	// Timeout of zero leaves the transport default in place.
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// DefaultClientConfig returns default client configuration
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		BaseURL:   "http://127.0.0.1:6788",
		UserAgent: "ipdash/dev",
	}
}

// RequestOptions customizes a single request. A nil *RequestOptions is a GET.
type RequestOptions struct {
	Method      string
	Body        []byte
	ContentType string
}

// Response is a successful (2xx) response.
type Response struct {
	StatusCode  int
	ContentType string
	Body        []byte
	RequestID   string
}

// NewClient creates a new API client
func NewClient(cfg ClientConfig) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, pkgerrors.ErrServerURLEmpty
	}
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid server url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid server url %q: scheme and host required", cfg.BaseURL)
	}

	endpoints := DefaultEndpoints()
	if cfg.Endpoints != nil {
		endpoints = *cfg.Endpoints
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 5,
				IdleConnTimeout:     90 * time.Second,
			},
		}
	}

	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = DefaultClientConfig().UserAgent
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		baseURL:   base,
		endpoints: endpoints,
		http:      httpClient,
		userAgent: userAgent,
		logger:    logger.Named("api"),
	}, nil
}

// BaseURL returns the server root the client resolves endpoints against.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// Endpoints returns the client's endpoint registry.
func (c *Client) Endpoints() Endpoints {
	return c.endpoints
}

// Do performs one request against the named endpoint.
func (c *Client) Do(ctx context.Context, endpoint string, opts *RequestOptions) (*Response, error) {
	path, err := c.endpoints.Path(endpoint)
	if err != nil {
		return nil, err
	}

	method := http.MethodGet
	var body io.Reader
	contentType := ""
	if opts != nil {
		if opts.Method != "" {
			method = opts.Method
		}
		if opts.Body != nil {
			body = bytes.NewReader(opts.Body)
		}
		contentType = opts.ContentType
	}

	target := c.baseURL.ResolveReference(&url.URL{Path: path})
	req, err := http.NewRequestWithContext(ctx, method, target.String(), body)
	if err != nil {
		return nil, &pkgerrors.APIError{
			Endpoint: endpoint,
			Kind:     pkgerrors.KindTransport,
			Message:  fmt.Sprintf("failed to create request: %v", err),
			Err:      err,
		}
	}

	requestID := uuid.NewString()
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json, text/plain, */*")
	req.Header.Set("X-Request-ID", requestID)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	log := c.logger.With(
		zap.String("endpoint", endpoint),
		zap.String("method", method),
		zap.String("request_id", requestID),
	)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		log.Warn("request failed", zap.Error(err), zap.Duration("elapsed", time.Since(start)))
		return nil, &pkgerrors.APIError{
			Endpoint: endpoint,
			Kind:     pkgerrors.KindTransport,
			Message:  fmt.Sprintf("request failed: %v", unwrapURLError(err)),
			Err:      err,
		}
	}
	defer resp.Body.Close()

	data, readErr := io.ReadAll(resp.Body)
	log = log.With(zap.Int("status", resp.StatusCode), zap.Duration("elapsed", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := httpError(endpoint, resp.StatusCode, data)
		log.Warn("request rejected", zap.String("message", apiErr.Message))
		return nil, apiErr
	}
	if readErr != nil {
		log.Warn("failed to read response", zap.Error(readErr))
		return nil, &pkgerrors.APIError{
			Endpoint:   endpoint,
			Kind:       pkgerrors.KindTransport,
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("failed to read response: %v", readErr),
			Err:        readErr,
		}
	}

	log.Debug("request ok", zap.Int("bytes", len(data)))
	return &Response{
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        data,
		RequestID:   requestID,
	}, nil
}

// httpError builds the error for a non-2xx response from its JSON body,
// falling back to the status code.
func httpError(endpoint string, status int, body []byte) *pkgerrors.APIError {
	apiErr := &pkgerrors.APIError{
		Endpoint:   endpoint,
		Kind:       pkgerrors.KindHTTP,
		StatusCode: status,
		Message:    pkgerrors.HTTPStatusMessage(status),
	}
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err == nil {
		switch {
		case eb.Error != "":
			apiErr.Message = eb.Error
		case eb.Message != "":
			apiErr.Message = eb.Message
		}
	}
	return apiErr
}

func unwrapURLError(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return urlErr.Err
	}
	return err
}

func malformed(endpoint string, err error) *pkgerrors.APIError {
	return &pkgerrors.APIError{
		Endpoint: endpoint,
		Kind:     pkgerrors.KindMalformed,
		Message:  fmt.Sprintf("invalid %s response: %v", endpoint, err),
		Err:      err,
	}
}

func application(endpoint, message string) *pkgerrors.APIError {
	return &pkgerrors.APIError{
		Endpoint: endpoint,
		Kind:     pkgerrors.KindApplication,
		Message:  message,
	}
}

// BestIP fetches the currently selected IP.
func (c *Client) BestIP(ctx context.Context) (*BestIPResponse, error) {
	resp, err := c.Do(ctx, EndpointBestIP, nil)
	if err != nil {
		return nil, err
	}
	var payload struct {
		BestIP *string `json:"best_ip"`
		Error  string  `json:"error"`
	}
	if err := json.Unmarshal(resp.Body, &payload); err != nil {
		return nil, malformed(EndpointBestIP, err)
	}
	if payload.BestIP == nil && payload.Error != "" {
		return nil, application(EndpointBestIP, payload.Error)
	}
	out := &BestIPResponse{}
	if payload.BestIP != nil {
		out.BestIP = *payload.BestIP
	}
	return out, nil
}

// Results fetches the result rows, keeping each row's column order.
func (c *Client) Results(ctx context.Context) (ResultsResponse, error) {
	resp, err := c.Do(ctx, EndpointResults, nil)
	if err != nil {
		return nil, err
	}
	trimmed := bytes.TrimSpace(resp.Body)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var eb errorBody
		if err := json.Unmarshal(trimmed, &eb); err == nil && (eb.Error != "" || eb.Message != "") {
			msg := eb.Error
			if msg == "" {
				msg = eb.Message
			}
			return nil, application(EndpointResults, msg)
		}
		return nil, malformed(EndpointResults, errors.New("expected a list"))
	}
	var rows ResultsResponse
	if err := json.Unmarshal(trimmed, &rows); err != nil {
		return nil, malformed(EndpointResults, err)
	}
	if rows == nil {
		rows = ResultsResponse{}
	}
	return rows, nil
}

// Logs fetches the log lines, or the server's log error.
func (c *Client) Logs(ctx context.Context) (*LogsResponse, error) {
	resp, err := c.Do(ctx, EndpointLogs, nil)
	if err != nil {
		return nil, err
	}
	var logs LogsResponse
	if err := json.Unmarshal(resp.Body, &logs); err != nil {
		return nil, malformed(EndpointLogs, err)
	}
	return &logs, nil
}

// Config fetches the configuration as raw text, byte for byte.
func (c *Client) Config(ctx context.Context) (string, error) {
	resp, err := c.Do(ctx, EndpointConfig, nil)
	if err != nil {
		return "", err
	}
	return string(resp.Body), nil
}

// ConfigJSON fetches the configuration as JSON and pretty-prints it.
func (c *Client) ConfigJSON(ctx context.Context) (string, error) {
	resp, err := c.Do(ctx, EndpointConfig, nil)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, bytes.TrimSpace(resp.Body), "", "  "); err != nil {
		return "", malformed(EndpointConfig, err)
	}
	return buf.String(), nil
}

// SaveConfig posts text verbatim as the new configuration.
func (c *Client) SaveConfig(ctx context.Context, text string) (*ActionResult, error) {
	resp, err := c.Do(ctx, EndpointConfig, &RequestOptions{
		Method:      http.MethodPost,
		Body:        []byte(text),
		ContentType: "text/plain; charset=utf-8",
	})
	if err != nil {
		return nil, err
	}
	return decodeAction(EndpointConfig, resp.Body)
}

// RunTest asks the server to start an optimization run.
func (c *Client) RunTest(ctx context.Context) (*ActionResult, error) {
	resp, err := c.Do(ctx, EndpointRunTest, &RequestOptions{Method: http.MethodPost})
	if err != nil {
		return nil, err
	}
	return decodeAction(EndpointRunTest, resp.Body)
}

func decodeAction(endpoint string, body []byte) (*ActionResult, error) {
	var payload errorBody
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, malformed(endpoint, err)
	}
	if payload.Message == "" && payload.Error != "" {
		return nil, application(endpoint, payload.Error)
	}
	return &ActionResult{Message: payload.Message}, nil
}
