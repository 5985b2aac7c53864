package bdp

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
)

// TokenProvider serves bearer tokens for outbound requests. Implementations
// cache tokens and refresh them transparently.
type TokenProvider interface {
	// Token returns a valid access token, refreshing if necessary.
	Token(ctx context.Context) (string, error)

	// Invalidate forces a fresh token on the next Token call. Used after a
	// request fails with 401 Unauthorized.
	Invalidate()
}

// StaticTokenProvider serves a fixed token. Useful for tests and
// pre-authorized environments.
type StaticTokenProvider string

func (s StaticTokenProvider) Token(context.Context) (string, error) { return string(s), nil }

func (s StaticTokenProvider) Invalidate() {}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

// clientCredentialsProvider fetches tokens with the OAuth2 client-credentials
// grant and caches them until the renewal buffer before expiry.
type clientCredentialsProvider struct {
	httpClient    *resty.Client
	tokenURL      string
	clientID      string
	clientSecret  string
	renewalBuffer time.Duration
	retryWait     time.Duration
	now           func() time.Time
	logger        zerolog.Logger

	mu          sync.Mutex
	accessToken string
	expiresAt   time.Time
}

// NewClientCredentialsProvider creates the default token provider. The token
// endpoint is derived from authURL by appending "/oauth/token" unless the
// URL already ends with it.
func NewClientCredentialsProvider(authURL, clientID, clientSecret string, renewalBuffer time.Duration, logger zerolog.Logger) TokenProvider {
	tokenURL := ""
	if authURL != "" {
		tokenURL = makeOAuthURL(authURL)
	}
	return &clientCredentialsProvider{
		httpClient:    resty.New().SetTimeout(30 * time.Second),
		tokenURL:      tokenURL,
		clientID:      clientID,
		clientSecret:  clientSecret,
		renewalBuffer: renewalBuffer,
		retryWait:     tokenFetchRetryWait,
		now:           time.Now,
		logger:        logger,
	}
}

func (p *clientCredentialsProvider) Token(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	// Serve the cached token while it is still outside the renewal buffer.
	// The expiry is re-checked under the lock, so callers that queued behind
	// an in-flight refresh pick up the replacement token.
	if p.accessToken != "" && p.now().Add(p.renewalBuffer).Before(p.expiresAt) {
		return p.accessToken, nil
	}

	return p.refreshLocked(ctx)
}

func (p *clientCredentialsProvider) Invalidate() {
	p.mu.Lock()
	p.accessToken = ""
	p.mu.Unlock()
}

// refreshLocked fetches a new token with a small fixed retry budget. A
// missing-token response is often a transient eventual-consistency effect
// right after tenant provisioning, so this budget is separate from the
// transport-level retry policy.
func (p *clientCredentialsProvider) refreshLocked(ctx context.Context) (string, error) {
	if p.tokenURL == "" || p.clientID == "" || p.clientSecret == "" {
		return "", &AuthenticationError{APIError{Message: ErrMissingAuthInfo.Error(), Err: ErrMissingAuthInfo}}
	}

	var lastErr error
	lastStatus := 0
	lastBody := ""

	for attempt := 0; attempt < tokenFetchAttempts; attempt++ {
		tokenFetchesTotal.Inc()

		var token tokenResponse
		resp, err := p.httpClient.R().
			SetContext(ctx).
			SetBasicAuth(p.clientID, p.clientSecret).
			SetFormData(map[string]string{"grant_type": "client_credentials"}).
			SetResult(&token).
			Post(p.tokenURL)

		switch {
		case err != nil:
			lastErr = err
		case !resp.IsSuccess() || token.AccessToken == "":
			lastErr = fmt.Errorf("token endpoint answered with status %d", resp.StatusCode())
			lastStatus = resp.StatusCode()
			lastBody = resp.String()
		default:
			p.accessToken = token.AccessToken
			p.expiresAt = p.now().Add(time.Duration(token.ExpiresIn) * time.Second)
			p.logger.Debug().Time("expires_at", p.expiresAt).Msg("Fetched a new bearer token")
			return p.accessToken, nil
		}

		p.logger.Warn().Err(lastErr).Int("attempt", attempt+1).Msg("Bearer token fetch failed")

		if attempt < tokenFetchAttempts-1 {
			select {
			case <-ctx.Done():
				return "", &AuthenticationError{APIError{
					Message: "token fetch cancelled",
					Err:     ctx.Err(),
				}}
			case <-time.After(p.retryWait):
			}
		}
	}

	return "", &AuthenticationError{APIError{
		Message:    fmt.Sprintf("unable to fetch the bearer token after %d tries", tokenFetchAttempts),
		StatusCode: lastStatus,
		Body:       lastBody,
		Err:        lastErr,
	}}
}
