package bdp

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// FileUpload describes the file part of a multipart form-data request.
type FileUpload struct {
	Field       string
	Name        string
	Reader      io.Reader
	ContentType string
}

// RequestOptions shapes a single request. The zero value issues a plain
// request with status validation enabled.
type RequestOptions struct {
	Params   map[string]string
	Headers  map[string]string
	JSON     any
	FormData map[string]string
	File     *FileUpload

	// SkipValidation returns the raw response instead of mapping 4xx/5xx
	// statuses to errors, so pollers can inspect expected statuses such as
	// 409 "still processing".
	SkipValidation bool

	LogBefore string
	LogAfter  string
}

// Get issues a GET request against the service.
func (c *Client) Get(ctx context.Context, path string, opts RequestOptions) (*resty.Response, error) {
	return c.request(ctx, http.MethodGet, path, opts)
}

// Post issues a POST request against the service.
func (c *Client) Post(ctx context.Context, path string, opts RequestOptions) (*resty.Response, error) {
	return c.request(ctx, http.MethodPost, path, opts)
}

// Delete issues a DELETE request against the service.
func (c *Client) Delete(ctx context.Context, path string, opts RequestOptions) (*resty.Response, error) {
	return c.request(ctx, http.MethodDelete, path, opts)
}

func (c *Client) request(ctx context.Context, method, path string, opts RequestOptions) (*resty.Response, error) {
	if opts.LogBefore != "" {
		c.logger.Debug().Msg(opts.LogBefore)
	}

	rewind, err := prepareReplayableFile(&opts)
	if err != nil {
		return nil, err
	}

	resp, err := c.do(ctx, method, path, opts)
	if err != nil {
		return nil, err
	}

	// A rejected token is refreshed once and the request replayed exactly
	// once before the 401 is surfaced.
	if resp.StatusCode() == http.StatusUnauthorized {
		c.logger.Debug().Str("url", c.PathToURL(path)).Msg("Token rejected, refreshing and retrying once")
		c.tokens.Invalidate()
		if rewind != nil {
			if err := rewind(); err != nil {
				return nil, fmt.Errorf("rewind upload %s for replay: %w", opts.File.Name, err)
			}
		}
		resp, err = c.do(ctx, method, path, opts)
		if err != nil {
			return nil, err
		}
	}

	if !opts.SkipValidation {
		if err := c.ValidateResponse(resp); err != nil {
			return nil, err
		}
	}

	if opts.LogAfter != "" {
		c.logger.Info().Msg(opts.LogAfter)
	}
	return resp, nil
}

// prepareReplayableFile makes the file part of an upload restartable. The
// first attempt drains the reader, so a token-refresh replay must rewind it
// to the original offset; readers that cannot seek are buffered up front.
func prepareReplayableFile(opts *RequestOptions) (func() error, error) {
	if opts.File == nil {
		return nil, nil
	}

	file := *opts.File
	seeker, ok := file.Reader.(io.ReadSeeker)
	if !ok {
		data, err := io.ReadAll(file.Reader)
		if err != nil {
			return nil, fmt.Errorf("read upload %s: %w", file.Name, err)
		}
		seeker = bytes.NewReader(data)
	}

	offset, err := seeker.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, fmt.Errorf("prepare upload %s for replay: %w", file.Name, err)
	}

	file.Reader = seeker
	opts.File = &file
	return func() error {
		_, err := seeker.Seek(offset, io.SeekStart)
		return err
	}, nil
}

func (c *Client) do(ctx context.Context, method, path string, opts RequestOptions) (*resty.Response, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}

	req := c.restyClient.R().
		SetContext(ctx).
		SetAuthToken(token)

	if len(opts.Params) > 0 {
		req.SetQueryParams(opts.Params)
	}
	if len(opts.Headers) > 0 {
		req.SetHeaders(opts.Headers)
	}
	if opts.JSON != nil {
		req.SetBody(opts.JSON)
	}
	if len(opts.FormData) > 0 {
		req.SetFormData(opts.FormData)
	}
	if opts.File != nil {
		contentType := opts.File.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		req.SetMultipartField(opts.File.Field, opts.File.Name, contentType, opts.File.Reader)
	}

	start := time.Now()
	resp, err := req.Execute(method, c.PathToURL(path))
	requestDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())

	if err != nil {
		requestsTotal.WithLabelValues(method, "network_error").Inc()
		return nil, fmt.Errorf("%s request to URL %s failed: %w", method, c.PathToURL(path), err)
	}

	requestsTotal.WithLabelValues(method, strconv.Itoa(resp.StatusCode())).Inc()
	return resp, nil
}

// ValidateResponse maps 4xx/5xx statuses to the typed error taxonomy. The
// returned errors keep the status code and response body so callers can
// distinguish retriable from fatal conditions.
func (c *Client) ValidateResponse(resp *resty.Response) error {
	status := resp.StatusCode()
	if status < 400 {
		return nil
	}

	body := strings.TrimSpace(resp.String())
	c.logger.Warn().
		Str("method", resp.Request.Method).
		Str("url", resp.Request.URL).
		Int("status", status).
		Str("body", body).
		Msg("Request failed")

	switch {
	case status == http.StatusUnauthorized:
		return &UnauthorizedError{ClientError{APIError{
			Message:    "missing authorization for this service",
			StatusCode: status,
			Body:       body,
		}}}
	case status < 500:
		return &ClientError{APIError{
			Message:    fmt.Sprintf("request failed with status %d: %s", status, body),
			StatusCode: status,
			Body:       body,
		}}
	default:
		return &ServerError{APIError{
			Message:    fmt.Sprintf("request failed with status %d", status),
			StatusCode: status,
			Body:       body,
		}}
	}
}
