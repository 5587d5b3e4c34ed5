package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"releasewatch/internal/catalog"
	"releasewatch/internal/handler"
)

type MockListService struct {
	mock.Mock
}

func (m *MockListService) Lists() []string {
	args := m.Called()
	return args.Get(0).([]string)
}

func (m *MockListService) GetPage(ctx context.Context, list string, page, limit int) (*catalog.Page, error) {
	args := m.Called(ctx, list, page, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Page), args.Error(1)
}

func setupRouter(svc handler.ListService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := handler.NewMovieListHandler(svc, zerolog.Nop())
	h.RegisterRoutes(r.Group("/api/v1/lists"))
	return r
}

func TestMovieListHandler_Get(t *testing.T) {
	svc := new(MockListService)
	r := setupRouter(svc)

	page := &catalog.Page{
		List:       catalog.ListRecentDigital,
		Movies:     []catalog.MovieEntry{{ID: 7, Title: "Heat", ReleaseDate: "2024-05-01"}},
		Page:       2,
		Limit:      10,
		TotalCount: 11,
		TotalPages: 2,
	}
	svc.On("GetPage", mock.Anything, catalog.ListRecentDigital, 2, 10).Return(page, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/lists/"+catalog.ListRecentDigital+"?page=2&limit=10", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var got catalog.Page
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, 2, got.Page)
	assert.Equal(t, 11, got.TotalCount)
	require.Len(t, got.Movies, 1)
	assert.Equal(t, "Heat", got.Movies[0].Title)
	svc.AssertExpectations(t)
}

func TestMovieListHandler_GetDefaults(t *testing.T) {
	svc := new(MockListService)
	r := setupRouter(svc)
	svc.On("GetPage", mock.Anything, catalog.ListUpcomingTheatrical, 1, catalog.DefaultPageLimit).
		Return(&catalog.Page{List: catalog.ListUpcomingTheatrical, Movies: []catalog.MovieEntry{}}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/lists/"+catalog.ListUpcomingTheatrical, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	svc.AssertExpectations(t)
}

func TestMovieListHandler_GetErrors(t *testing.T) {
	tests := []struct {
		name   string
		query  string
		err    error
		status int
	}{
		{"unknown list", "", fmt.Errorf("%w: %q", catalog.ErrUnknownList, "nope"), http.StatusNotFound},
		{"build failure", "", errors.New("catalog: 503"), http.StatusBadGateway},
		{"bad page", "?page=abc", nil, http.StatusBadRequest},
		{"bad limit", "?limit=1.5", nil, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockListService)
			r := setupRouter(svc)
			if tt.err != nil {
				svc.On("GetPage", mock.Anything, "nope", 1, catalog.DefaultPageLimit).Return(nil, tt.err)
			}

			req := httptest.NewRequest(http.MethodGet, "/api/v1/lists/nope"+tt.query, nil)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)
			assert.Contains(t, w.Body.String(), "error")
			svc.AssertExpectations(t)
		})
	}
}

func TestMovieListHandler_Index(t *testing.T) {
	svc := new(MockListService)
	r := setupRouter(svc)
	svc.On("Lists").Return([]string{catalog.ListUpcomingTheatrical, catalog.ListRecentDigital})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/lists", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Lists []string `json:"lists"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, []string{catalog.ListRecentDigital, catalog.ListUpcomingTheatrical}, body.Lists)
}

func TestRegisterHealth(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("healthy", func(t *testing.T) {
		r := gin.New()
		handler.RegisterHealth(r, map[string]func(context.Context) error{
			"cache": func(context.Context) error { return nil },
		})
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("degraded", func(t *testing.T) {
		r := gin.New()
		handler.RegisterHealth(r, map[string]func(context.Context) error{
			"cache": func(context.Context) error { return errors.New("dial tcp: refused") },
		})
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Contains(t, w.Body.String(), "refused")
	})
}

func TestRequestLogger(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var buf bytes.Buffer
	r := gin.New()
	r.Use(handler.RequestLogger(zerolog.New(&buf)))
	r.GET("/missing", func(c *gin.Context) { c.Status(http.StatusNotFound) })

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/missing", nil))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "warn", entry["level"])
	assert.EqualValues(t, 404, entry["status"])
	assert.Equal(t, "/missing", entry["path"])
}
