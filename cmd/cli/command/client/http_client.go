package client

// http_client.go talks to the releasewatch read API.

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"releasewatch/cmd/cli/dto"
)

type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		// a cold list is built while we wait
		httpClient: &http.Client{Timeout: 90 * time.Second},
	}
}

// ListNames returns the names of the served lists.
func (c *HTTPClient) ListNames() ([]string, error) {
	var out dto.ListIndexResponse
	if err := c.get("/api/v1/lists", nil, &out); err != nil {
		return nil, err
	}
	return out.Lists, nil
}

// GetListPage fetches one page of a cached list.
func (c *HTTPClient) GetListPage(list string, page, limit int) (*dto.ListPageResponse, error) {
	params := url.Values{}
	if page > 0 {
		params.Set("page", strconv.Itoa(page))
	}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
	var out dto.ListPageResponse
	if err := c.get("/api/v1/lists/"+url.PathEscape(list), params, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) get(path string, params url.Values, result interface{}) error {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	resp, err := c.httpClient.Get(u)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var apiErr dto.ErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Error != "" {
			return fmt.Errorf("server returned %d: %s", resp.StatusCode, apiErr.Error)
		}
		return fmt.Errorf("server returned %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
