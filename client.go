// Package bdp implements the engine shared by the SAP Business Document
// Processing service clients: OAuth2 client-credentials token handling, a
// retrying HTTP transport, a generic asynchronous-job poller, and a
// concurrent batch dispatcher with order-preserving result iteration.
package bdp

import (
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
)

// Config controls polling cadence, batch concurrency, and transport retries.
type Config struct {
	PollingSleep       time.Duration
	PollingLongSleep   time.Duration
	PollingMaxAttempts int
	PollingThreads     int
	RetryCount         int
	BackoffFactor      time.Duration
	TokenRenewalBuffer time.Duration
}

// DefaultConfig returns the configuration used when no options override it.
func DefaultConfig() Config {
	return Config{
		PollingSleep:       DefaultPollingSleep,
		PollingLongSleep:   DefaultPollingLongSleep,
		PollingMaxAttempts: DefaultPollingMaxAttempts,
		PollingThreads:     DefaultPollingThreads,
		RetryCount:         DefaultRetryCount,
		BackoffFactor:      DefaultBackoffFactor,
		TokenRenewalBuffer: DefaultTokenRenewalBuffer,
	}
}

// Client is the shared request client. Service packages embed it and add
// their endpoint methods on top of Get/Post/Delete/PollForURL.
type Client struct {
	restyClient *resty.Client
	tokens      TokenProvider
	baseURL     string
	pathPrefix  string
	config      Config
	logger      zerolog.Logger
}

type Option func(*Client)

// WithURLPathPrefix sets the path segment joined between the base URL and
// every request path, e.g. "document-information-extraction/v1/".
func WithURLPathPrefix(prefix string) Option {
	return func(c *Client) {
		c.pathPrefix = prefix
	}
}

// WithLogger injects the logger used for request and polling progress lines.
// The default is a no-op logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

func WithPollingThreads(threads int) Option {
	return func(c *Client) {
		c.config.PollingThreads = threads
	}
}

func WithPollingSleep(sleep time.Duration) Option {
	return func(c *Client) {
		c.config.PollingSleep = sleep
	}
}

func WithPollingLongSleep(sleep time.Duration) Option {
	return func(c *Client) {
		c.config.PollingLongSleep = sleep
	}
}

func WithPollingMaxAttempts(attempts int) Option {
	return func(c *Client) {
		if attempts > 0 {
			c.config.PollingMaxAttempts = attempts
		}
	}
}

func WithRetryCount(count int) Option {
	return func(c *Client) {
		if count >= 0 {
			c.config.RetryCount = count
		}
	}
}

// WithBackoffFactor sets the initial wait between transport-level retries.
func WithBackoffFactor(factor time.Duration) Option {
	return func(c *Client) {
		if factor > 0 {
			c.config.BackoffFactor = factor
		}
	}
}

func WithTokenRenewalBuffer(buffer time.Duration) Option {
	return func(c *Client) {
		if buffer > 0 {
			c.config.TokenRenewalBuffer = buffer
		}
	}
}

// WithTokenProvider overrides the OAuth2 client-credentials provider, e.g.
// with a StaticTokenProvider in tests.
func WithTokenProvider(tokens TokenProvider) Option {
	return func(c *Client) {
		if tokens != nil {
			c.tokens = tokens
		}
	}
}

// WithRestyClient allows callers to provide a preconfigured HTTP client.
func WithRestyClient(restyClient *resty.Client) Option {
	return func(c *Client) {
		if restyClient != nil {
			c.restyClient = restyClient
		}
	}
}

// New creates a client for one service instance. Credentials are not
// exercised until the first request; missing credentials surface as an
// AuthenticationError at that point.
func New(baseURL, clientID, clientSecret, authURL string, opts ...Option) *Client {
	c := &Client{
		config: DefaultConfig(),
		logger: zerolog.Nop(),
	}

	for _, opt := range opts {
		opt(c)
	}

	c.clampConfig()
	c.baseURL = baseURL
	if c.pathPrefix != "" {
		c.baseURL = makeURL(baseURL, c.pathPrefix)
	}

	if c.tokens == nil {
		c.tokens = NewClientCredentialsProvider(authURL, clientID, clientSecret,
			c.config.TokenRenewalBuffer, c.logger)
	}
	if c.restyClient == nil {
		c.restyClient = newRetryingClient(c.config)
	}

	return c
}

// clampConfig corrects out-of-range values with a warning instead of
// rejecting them, so permissive construction keeps working.
func (c *Client) clampConfig() {
	if c.config.PollingThreads > MaxPollingThreads {
		c.logger.Warn().
			Int("requested", c.config.PollingThreads).
			Int("maximum", MaxPollingThreads).
			Msg("Number of parallel polling threads is too high, clamped to the maximal allowed amount")
		c.config.PollingThreads = MaxPollingThreads
	}
	if c.config.PollingThreads < 1 {
		c.config.PollingThreads = 1
	}
	if c.config.PollingSleep < MinPollingInterval {
		c.logger.Warn().
			Dur("requested", c.config.PollingSleep).
			Dur("minimum", MinPollingInterval).
			Msg("Polling interval is too small, raised to the minimal allowed amount")
		c.config.PollingSleep = MinPollingInterval
	}
	if c.config.PollingLongSleep < MinPollingInterval {
		c.logger.Warn().
			Dur("requested", c.config.PollingLongSleep).
			Dur("minimum", MinPollingInterval).
			Msg("Polling interval for long operations is too small, raised to the minimal allowed amount")
		c.config.PollingLongSleep = MinPollingInterval
	}
	if c.config.PollingMaxAttempts < 1 {
		c.config.PollingMaxAttempts = 1
	}
}

// Config returns a copy of the effective configuration.
func (c *Client) Config() Config { return c.config }

// Logger returns the logger the client was configured with.
func (c *Client) Logger() zerolog.Logger { return c.logger }

// BatchWorkers returns the worker count for a batch of the given size.
func (c *Client) BatchWorkers(itemCount int) int {
	if itemCount < c.config.PollingThreads {
		return itemCount
	}
	return c.config.PollingThreads
}

// PathToURL resolves a request path against the configured base URL.
func (c *Client) PathToURL(path string) string {
	return makeURL(c.baseURL, path)
}
