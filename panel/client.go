package panel

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

const maxErrorBody = 4096

var defaultHTTPClient = &http.Client{
	Timeout:   time.Minute,
	Transport: newTransport(),
}

func newTransport() *http.Transport {
	t := http.DefaultTransport.(*http.Transport).Clone()
	t.MaxIdleConnsPerHost = 16
	t.IdleConnTimeout = 30 * time.Second
	t.ResponseHeaderTimeout = 30 * time.Second
	return t
}

// Client talks JSON to the kickoff server. Paths of every Resource are resolved against its base URL
type Client struct {
	base       *url.URL
	httpClient *http.Client
	user       string
	pass       string
	logger     zerolog.Logger
}

// ClientOption configures Client
type ClientOption func(*Client)

// WithHTTPClient replaces default HTTP client
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithBasicAuth sends given credentials with every request
func WithBasicAuth(user, pass string) ClientOption {
	return func(c *Client) {
		c.user = user
		c.pass = pass
	}
}

// WithClientLogger sets logger for requests
func WithClientLogger(logger zerolog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient prepares client for the server located at baseURL
func NewClient(baseURL string, opts ...ClientOption) (*Client, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, errors.Wrapf(err, "Bad base URL '%s'", baseURL)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, errors.Errorf("Base URL '%s' must be absolute", baseURL)
	}
	if !strings.HasSuffix(base.Path, "/") {
		base.Path += "/"
	}
	c := &Client{
		base:       base,
		httpClient: defaultHTTPClient,
		logger:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// do sends JSON request and decodes JSON response into out (when out is not nil and body is not empty)
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	ref, err := url.Parse(path)
	if err != nil {
		return errors.Wrapf(err, "Bad resource path '%s'", path)
	}
	target := c.base.ResolveReference(ref).String()

	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return errors.Wrapf(err, "Can't encode body for %s %s", method, target)
		}
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return errors.Wrapf(err, "Can't prepare %s %s", method, target)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.user != "" {
		req.SetBasicAuth(c.user, c.pass)
	}

	c.logger.Debug().Str("scope", SCOPE_RESOURCE).Str("event", EVENT_RESOURCE_REQUEST).Str("method", method).Str("url", target).Msg("Send request")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrapf(err, "Can't %s %s", method, target)
	}
	defer resp.Body.Close()
	c.logger.Debug().Str("scope", SCOPE_RESOURCE).Str("event", EVENT_RESOURCE_RESPONSE).Str("method", method).Str("url", target).Int("status", resp.StatusCode).Msg("Got response")

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &HTTPError{
			Method:     method,
			URL:        target,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(data)),
		}
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrapf(err, "Can't read response of %s %s", method, target)
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return errors.Wrapf(err, "Can't decode response of %s %s", method, target)
	}
	return nil
}
