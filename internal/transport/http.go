// Package transport executes request specs over HTTP.
package transport

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"zenrin-geocoding/internal/apperr"
	"zenrin-geocoding/internal/request"

	"github.com/rs/zerolog/log"
)

// Response is the raw upstream reply.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Client sends request specs. It holds no state between calls.
type Client struct{}

// NewClient creates a transport client.
func NewClient() *Client {
	return &Client{}
}

// Do sends spec and returns the raw response. Transport-level failures are
// returned as network errors and never retried.
func (c *Client) Do(ctx context.Context, spec *request.Spec) (*Response, error) {
	httpClient, err := newHTTPClient(spec)
	if err != nil {
		return nil, err
	}

	body := strings.NewReader(spec.Params.Encode())
	req, err := http.NewRequestWithContext(ctx, spec.Method, spec.URL, body)
	if err != nil {
		return nil, apperr.Config("transport", "invalid request url %q", spec.URL).Wrap(err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for k, v := range spec.Headers {
		req.Header.Set(k, v)
	}

	log.Debug().
		Str("method", spec.Method).
		Str("url", spec.URL).
		Bool("verify_ssl", spec.VerifySSL).
		Dur("timeout", spec.Timeout).
		Msg("sending geocode request")

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, apperr.Network("transport", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperr.Network("transport", fmt.Errorf("reading response body: %w", err))
	}

	log.Debug().Int("status", resp.StatusCode).Int("bytes", len(data)).Msg("received geocode response")

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       data,
	}, nil
}

func newHTTPClient(spec *request.Spec) (*http.Client, error) {
	proxies := make(map[string]*url.URL, len(spec.Proxies))
	for scheme, raw := range spec.Proxies {
		if raw == "" {
			continue
		}
		u, err := url.Parse(raw)
		if err != nil {
			return nil, apperr.Config("transport", "invalid %s proxy %q", scheme, raw).Wrap(err)
		}
		proxies[strings.ToLower(scheme)] = u
	}

	tr := http.DefaultTransport.(*http.Transport).Clone()
	tr.Proxy = func(req *http.Request) (*url.URL, error) {
		return proxies[req.URL.Scheme], nil
	}
	if !spec.VerifySSL {
		tr.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // opted out with --no-verify-ssl
	}

	return &http.Client{
		Transport: tr,
		Timeout:   spec.Timeout,
	}, nil
}
