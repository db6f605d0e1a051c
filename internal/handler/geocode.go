package handler

import (
	"context"
	"net/http"

	"zenrin-geocoding/internal/apperr"
	"zenrin-geocoding/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// GeoCodeHandler handles geocoding requests
type GeoCodeHandler struct {
	service GeoCodeService
}

// Service interface for dependency injection
type GeoCodeService interface {
	Geocode(context.Context, string) ([]models.GeocodeResult, error)
	GeocodeBatch(context.Context, []string) ([]models.GeocodeResult, error)
}

// NewGeoCodeHandler creates a new geocode handler
func NewGeoCodeHandler(svc GeoCodeService) *GeoCodeHandler {
	return &GeoCodeHandler{service: svc}
}

// NewRouter registers the health and geocode routes.
func NewRouter(h *GeoCodeHandler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
		})
	})
	r.GET("/geocode", h.GeoCode)

	return r
}

// GeoCode handles GET /geocode requests. Repeat q to geocode a batch.
func (h *GeoCodeHandler) GeoCode(c *gin.Context) {
	queries := c.QueryArray("q")
	if len(queries) == 0 || (len(queries) == 1 && queries[0] == "") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing required query parameter 'q'"})
		return
	}

	var (
		results []models.GeocodeResult
		err     error
	)
	if len(queries) == 1 {
		results, err = h.service.Geocode(c.Request.Context(), queries[0])
	} else {
		results, err = h.service.GeocodeBatch(c.Request.Context(), queries)
	}
	if err != nil {
		status, body := errorResponse(err)
		log.Error().Err(err).Int("status", status).Msg("geocode request failed")
		c.JSON(status, body)
		return
	}

	c.JSON(http.StatusOK, results)
}

func errorResponse(err error) (int, gin.H) {
	switch apperr.KindOf(err) {
	case apperr.KindValidation:
		return http.StatusBadRequest, gin.H{"error": err.Error()}
	case apperr.KindResponse, apperr.KindNetwork:
		return http.StatusBadGateway, gin.H{"error": "upstream geocoding service failed"}
	default:
		return http.StatusInternalServerError, gin.H{"error": "internal server error"}
	}
}
