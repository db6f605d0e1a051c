package service

import (
	"context"
	"fmt"
	"net/http"

	"zenrin-geocoding/internal/apperr"
	"zenrin-geocoding/internal/models"
	"zenrin-geocoding/internal/request"
	"zenrin-geocoding/internal/response"
	"zenrin-geocoding/internal/transport"

	"github.com/rs/zerolog/log"
)

// maxErrorBody caps how much of an error reply is kept in the error message.
const maxErrorBody = 500

// GeoCodeService runs the build, send, map pipeline for one configuration.
type GeoCodeService struct {
	cfg       models.GeocodeConfig
	builder   *request.Builder
	transport Transport
}

// Transport interface for dependency injection
type Transport interface {
	Do(ctx context.Context, spec *request.Spec) (*transport.Response, error)
}

// NewGeoCodeService creates a new geo code service. The config is validated
// once here so callers fail before any address is read.
func NewGeoCodeService(cfg models.GeocodeConfig, tr Transport, builder *request.Builder) (*GeoCodeService, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if builder == nil {
		builder = request.NewBuilder()
	}
	return &GeoCodeService{cfg: cfg, builder: builder, transport: tr}, nil
}

// Config returns the configuration the service was built with.
func (s *GeoCodeService) Config() models.GeocodeConfig {
	return s.cfg
}

// Geocode resolves a single address.
func (s *GeoCodeService) Geocode(ctx context.Context, address string) ([]models.GeocodeResult, error) {
	results, err := s.call(ctx, []string{address})
	if err != nil {
		return nil, fmt.Errorf("service: %w", err)
	}
	return results, nil
}

// GeocodeBatch resolves addresses in sequential chunks of at most
// request.MaxBatchSize. The first failing chunk aborts the run.
func (s *GeoCodeService) GeocodeBatch(ctx context.Context, addresses []string) ([]models.GeocodeResult, error) {
	if len(addresses) == 0 {
		return nil, apperr.Validation("service", "no addresses to geocode")
	}

	results := []models.GeocodeResult{}
	for start := 0; start < len(addresses); start += request.MaxBatchSize {
		end := min(start+request.MaxBatchSize, len(addresses))

		log.Info().Int("from", start+1).Int("to", end).Int("total", len(addresses)).Msg("geocoding chunk")

		chunk, err := s.call(ctx, addresses[start:end])
		if err != nil {
			return nil, fmt.Errorf("service: addresses %d-%d: %w", start+1, end, err)
		}
		results = append(results, chunk...)
	}

	return results, nil
}

// Send builds and sends a request without mapping the reply, for diagnostics.
func (s *GeoCodeService) Send(ctx context.Context, addresses []string) (*request.Spec, *transport.Response, error) {
	spec, err := s.builder.Build(s.cfg, addresses)
	if err != nil {
		return nil, nil, err
	}
	resp, err := s.transport.Do(ctx, spec)
	return spec, resp, err
}

func (s *GeoCodeService) call(ctx context.Context, addresses []string) ([]models.GeocodeResult, error) {
	_, resp, err := s.Send(ctx, addresses)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, apperr.Response("upstream", "returned status %d: %s", resp.StatusCode, truncate(string(resp.Body), maxErrorBody))
	}

	results, err := response.MapBody(resp.Body, s.cfg.MatchLevel)
	if err != nil {
		return nil, err
	}

	log.Debug().Int("addresses", len(addresses)).Int("results", len(results)).Msg("geocode call finished")

	return results, nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
