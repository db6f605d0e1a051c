package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"zenrin-geocoding/internal/apperr"
	"zenrin-geocoding/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// MockGeoCodeService is a mock implementation of the GeoCodeService interface
type MockGeoCodeService struct {
	mock.Mock
}

func (m *MockGeoCodeService) Geocode(ctx context.Context, address string) ([]models.GeocodeResult, error) {
	args := m.Called(ctx, address)
	results, _ := args.Get(0).([]models.GeocodeResult)
	return results, args.Error(1)
}

func (m *MockGeoCodeService) GeocodeBatch(ctx context.Context, addresses []string) ([]models.GeocodeResult, error) {
	args := m.Called(ctx, addresses)
	results, _ := args.Get(0).([]models.GeocodeResult)
	return results, args.Error(1)
}

var awajicho = models.GeocodeResult{
	Address:      "東京都千代田区淡路町2-101",
	Longitude:    139.767126193576,
	Latitude:     35.6975523546007,
	MatchLevel:   "TBN1",
	Prefecture:   "東京都",
	Municipality: "千代田区",
}

func TestGeoCodeHandler_GeoCode(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name           string
		queries        []string
		setup          func(m *MockGeoCodeService)
		expectedStatus int
		expectedBody   interface{}
	}{
		{
			name:           "missing query parameter",
			expectedStatus: http.StatusBadRequest,
			expectedBody:   map[string]interface{}{"error": "missing required query parameter 'q'"},
		},
		{
			name:    "successful geocoding",
			queries: []string{"東京都千代田区淡路町2-101"},
			setup: func(m *MockGeoCodeService) {
				m.On("Geocode", mock.Anything, "東京都千代田区淡路町2-101").
					Return([]models.GeocodeResult{awajicho}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody: []interface{}{
				map[string]interface{}{
					"address":      "東京都千代田区淡路町2-101",
					"longitude":    139.767126193576,
					"latitude":     35.6975523546007,
					"match_level":  "TBN1",
					"prefecture":   "東京都",
					"municipality": "千代田区",
				},
			},
		},
		{
			name:    "batch geocoding",
			queries: []string{"東京都千代田区淡路町2-101", "東京都港区赤坂1丁目"},
			setup: func(m *MockGeoCodeService) {
				m.On("GeocodeBatch", mock.Anything, []string{"東京都千代田区淡路町2-101", "東京都港区赤坂1丁目"}).
					Return([]models.GeocodeResult{}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   []interface{}{},
		},
		{
			name:    "validation error",
			queries: []string{"a,b", "c"},
			setup: func(m *MockGeoCodeService) {
				m.On("GeocodeBatch", mock.Anything, []string{"a,b", "c"}).
					Return(nil, apperr.Validation("request", "address 1 contains the batch delimiter \",\""))
			},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   map[string]interface{}{"error": "request: address 1 contains the batch delimiter \",\""},
		},
		{
			name:    "upstream error",
			queries: []string{"東京都"},
			setup: func(m *MockGeoCodeService) {
				m.On("Geocode", mock.Anything, "東京都").
					Return(nil, apperr.Network("transport", assert.AnError))
			},
			expectedStatus: http.StatusBadGateway,
			expectedBody:   map[string]interface{}{"error": "upstream geocoding service failed"},
		},
		{
			name:    "unexpected error",
			queries: []string{"東京都"},
			setup: func(m *MockGeoCodeService) {
				m.On("Geocode", mock.Anything, "東京都").Return(nil, assert.AnError)
			},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   map[string]interface{}{"error": "internal server error"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Setup
			mockSvc := new(MockGeoCodeService)
			if tt.setup != nil {
				tt.setup(mockSvc)
			}
			router := NewRouter(NewGeoCodeHandler(mockSvc))

			// Create request
			q := url.Values{}
			for _, query := range tt.queries {
				q.Add("q", query)
			}
			req := httptest.NewRequest(http.MethodGet, "/geocode?"+q.Encode(), nil)
			w := httptest.NewRecorder()

			// Execute
			router.ServeHTTP(w, req)

			// Assert
			assert.Equal(t, tt.expectedStatus, w.Code)

			var actualBody interface{}
			err := json.Unmarshal(w.Body.Bytes(), &actualBody)
			assert.NoError(t, err)
			assert.Equal(t, tt.expectedBody, actualBody)

			mockSvc.AssertExpectations(t)
		})
	}
}

func TestHealth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := NewRouter(NewGeoCodeHandler(new(MockGeoCodeService)))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}
