package client

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetListPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/lists/recent-digital", r.URL.Path)
		assert.Equal(t, "2", r.URL.Query().Get("page"))
		assert.Equal(t, "5", r.URL.Query().Get("limit"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"list":"recent-digital","movies":[{"id":1,"title":"Heat","release_date":"2024-05-01","releases":{"streaming":"2024-05-01T00:00:00Z"}}],"page":2,"limit":5,"total_count":6,"total_pages":2}`))
	}))
	defer srv.Close()

	page, err := NewHTTPClient(srv.URL + "/").GetListPage("recent-digital", 2, 5)
	require.NoError(t, err)
	assert.Equal(t, 6, page.TotalCount)
	require.Len(t, page.Movies, 1)
	require.NotNil(t, page.Movies[0].Releases.Streaming)
	assert.Equal(t, 2024, page.Movies[0].Releases.Streaming.Year())
}

func TestGetListPageError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"list not found"}`))
	}))
	defer srv.Close()

	_, err := NewHTTPClient(srv.URL).GetListPage("nope", 0, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
	assert.Contains(t, err.Error(), "list not found")
}

func TestListNames(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"lists":["recent-digital","upcoming-theatrical"]}`))
	}))
	defer srv.Close()

	names, err := NewHTTPClient(srv.URL).ListNames()
	require.NoError(t, err)
	assert.Equal(t, []string{"recent-digital", "upcoming-theatrical"}, names)
}
