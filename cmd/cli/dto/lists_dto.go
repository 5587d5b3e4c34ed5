package dto

import "time"

// ReleaseSummary mirrors the unified dates of one movie.
type ReleaseSummary struct {
	Theatrical *time.Time `json:"theatrical,omitempty"`
	Streaming  *time.Time `json:"streaming,omitempty"`
}

type MovieEntry struct {
	ID          int64          `json:"id"`
	Title       string         `json:"title"`
	Popularity  float64        `json:"popularity"`
	ReleaseDate string         `json:"release_date"`
	Releases    ReleaseSummary `json:"releases"`
}

// ListPageResponse is GET /api/v1/lists/:list
type ListPageResponse struct {
	List       string       `json:"list"`
	Movies     []MovieEntry `json:"movies"`
	Page       int          `json:"page"`
	Limit      int          `json:"limit"`
	TotalCount int          `json:"total_count"`
	TotalPages int          `json:"total_pages"`
	BuiltAt    time.Time    `json:"built_at"`
}

type ListIndexResponse struct {
	Lists []string `json:"lists"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
