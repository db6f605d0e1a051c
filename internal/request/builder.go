// Package request turns a GeocodeConfig and a batch of addresses into a fully
// described HTTP request for the address-coding endpoint. It performs no I/O.
package request

import (
	"maps"
	"net/http"
	"net/url"
	"strings"
	"time"

	"zenrin-geocoding/internal/apperr"
	"zenrin-geocoding/internal/models"
)

const (
	// MaxBatchSize is the largest batch the service accepts in one call.
	MaxBatchSize = 100

	endpointPath = "/data-coding/ac_standard"

	// encodingUTF8 is the service's enc code for UTF-8 input.
	encodingUTF8 = "0"

	singleTimeout = 10 * time.Second
	batchTimeout  = 30 * time.Second
)

// Header names sent on every request.
const (
	HeaderAPIKey        = "x-api-key"
	HeaderAuthorization = "Authorization"
	HeaderReferer       = "Referer"
)

// Spec is a request ready for a generic transport to execute.
type Spec struct {
	Method  string
	URL     string
	Headers map[string]string
	// Params are sent form-encoded in the request body.
	Params    url.Values
	Proxies   map[string]string
	VerifySSL bool
	Timeout   time.Duration
}

// Builder builds request specs. The zero value is not usable; use NewBuilder.
type Builder struct {
	encoding BatchEncoding
}

// Option configures a Builder.
type Option func(*Builder)

// WithBatchEncoding replaces the default comma-delimited batch encoding.
func WithBatchEncoding(enc BatchEncoding) Option {
	return func(b *Builder) {
		b.encoding = enc
	}
}

// NewBuilder creates a request builder.
func NewBuilder(opts ...Option) *Builder {
	b := &Builder{encoding: DelimitedWord{Delimiter: ","}}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build validates the inputs and returns the request spec.
func (b *Builder) Build(cfg models.GeocodeConfig, addresses []string) (*Spec, error) {
	if len(addresses) == 0 {
		return nil, apperr.Validation("request", "at least one address is required")
	}
	if len(addresses) > MaxBatchSize {
		return nil, apperr.Validation("request", "at most %d addresses per request, got %d", MaxBatchSize, len(addresses))
	}
	for i, a := range addresses {
		if strings.TrimSpace(a) == "" {
			return nil, apperr.Validation("request", "address %d is empty", i+1)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	params := url.Values{}
	if err := b.encoding.Encode(params, addresses); err != nil {
		return nil, err
	}
	params.Set("enc", encodingUTF8)
	params.Set("datum", string(cfg.Datum))
	if cfg.MatchLevel != "" {
		params.Set("match_level", string(cfg.MatchLevel))
	}
	if cfg.UseKana {
		params.Set("use_kana", "true")
	}
	if cfg.UseMultiAddr {
		params.Set("use_multi_addr", "true")
	}

	timeout := singleTimeout
	if len(addresses) > 1 {
		timeout = batchTimeout
	}

	return &Spec{
		Method:    http.MethodPost,
		URL:       Endpoint(cfg.Domain),
		Headers:   authHeaders(cfg),
		Params:    params,
		Proxies:   maps.Clone(cfg.Proxies),
		VerifySSL: cfg.VerifySSL,
		Timeout:   timeout,
	}, nil
}

// Endpoint returns the address-coding URL for a domain. A domain that already
// names a scheme is used as the base as-is.
func Endpoint(domain string) string {
	domain = strings.TrimRight(strings.TrimSpace(domain), "/")
	if strings.HasPrefix(domain, "http://") || strings.HasPrefix(domain, "https://") {
		return domain + endpointPath
	}
	return "https://" + domain + endpointPath
}

// authHeaders assumes cfg has been validated.
func authHeaders(cfg models.GeocodeConfig) map[string]string {
	headers := map[string]string{HeaderAPIKey: cfg.APIKey}

	switch cfg.AuthMethod {
	case models.AuthIP:
		headers[HeaderAuthorization] = "ip"
	case models.AuthReferer:
		headers[HeaderAuthorization] = "referer"
		headers[HeaderReferer] = cfg.Referer
	case models.AuthBearer:
		headers[HeaderAuthorization] = "Bearer " + cfg.Token
	}

	return headers
}
