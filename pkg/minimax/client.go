// Package minimax is a client for the MiniMax speech synthesis API. Only the
// t2a_v2 endpoints are covered; audio arrives hex-encoded and is returned
// decoded.
package minimax

import (
	"net/http"
	"time"
)

const (
	DefaultBaseURL = "https://api.minimax.chat"

	DefaultTimeout = 30 * time.Second

	DefaultMaxRetries = 3
)

// Client is the MiniMax API client.
type Client struct {
	// Speech provides speech synthesis operations.
	Speech *SpeechService

	config *clientConfig
	http   *httpClient
}

type clientConfig struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
	maxRetries int
}

// Option configures the client.
type Option func(*clientConfig)

// WithBaseURL sets a custom API base URL.
func WithBaseURL(url string) Option {
	return func(c *clientConfig) { c.baseURL = url }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *clientConfig) { c.httpClient = client }
}

// WithTimeout sets the request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *clientConfig) { c.timeout = timeout }
}

// WithRetry sets the maximum number of retries for transient errors.
func WithRetry(maxRetries int) Option {
	return func(c *clientConfig) { c.maxRetries = maxRetries }
}

// NewClient creates a MiniMax client authenticated with apiKey.
func NewClient(apiKey string, opts ...Option) *Client {
	cfg := &clientConfig{
		apiKey:     apiKey,
		baseURL:    DefaultBaseURL,
		timeout:    DefaultTimeout,
		maxRetries: DefaultMaxRetries,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.httpClient == nil {
		cfg.httpClient = &http.Client{Timeout: cfg.timeout}
	}

	c := &Client{
		config: cfg,
		http:   newHTTPClient(cfg),
	}
	c.Speech = &SpeechService{client: c}
	return c
}

// BaseURL returns the configured base URL.
func (c *Client) BaseURL() string {
	return c.config.baseURL
}
