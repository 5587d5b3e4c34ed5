package catalog

import (
	"fmt"
	"time"

	"releasewatch/internal/release"
)

// MovieEntry is one cached movie with its unified dates.
type MovieEntry struct {
	ID          int64           `json:"id"`
	Title       string          `json:"title"`
	PosterPath  string          `json:"poster_path,omitempty"`
	Popularity  float64         `json:"popularity"`
	ReleaseDate string          `json:"release_date"`
	Releases    release.Summary `json:"releases"`

	sortDay time.Time
}

// Stats describes the work done by one build.
type Stats struct {
	TotalFetched  int `json:"total_fetched"`
	PagesConsumed int `json:"pages_consumed"`
	UniqueMovies  int `json:"unique_movies"`
	Enriched      int `json:"enriched"`
	Filtered      int `json:"filtered"`
}

func (s Stats) validate() error {
	if s.TotalFetched < 0 || s.PagesConsumed < 0 || s.UniqueMovies < 0 || s.Enriched < 0 || s.Filtered < 0 {
		return fmt.Errorf("%w: negative counter in %+v", ErrInvariant, s)
	}
	if s.Enriched > s.UniqueMovies {
		return fmt.Errorf("%w: enriched %d > unique %d", ErrInvariant, s.Enriched, s.UniqueMovies)
	}
	if s.Filtered > s.UniqueMovies {
		return fmt.Errorf("%w: filtered %d > unique %d", ErrInvariant, s.Filtered, s.UniqueMovies)
	}
	if s.UniqueMovies > s.TotalFetched {
		return fmt.Errorf("%w: unique %d > fetched %d", ErrInvariant, s.UniqueMovies, s.TotalFetched)
	}
	return nil
}

// Entry is a fully built list. It is written to the cache store whole and
// never patched in place.
type Entry struct {
	CacheKey   string       `json:"cache_key"`
	Country    string       `json:"country"`
	Filter     Filter       `json:"filter"`
	Movies     []MovieEntry `json:"movies"`
	TotalCount int          `json:"total_count"`
	BuiltAt    time.Time    `json:"built_at"`
	Stats      Stats        `json:"stats"`
}

// Page is one slice of an Entry.
type Page struct {
	List       string       `json:"list"`
	Movies     []MovieEntry `json:"movies"`
	Page       int          `json:"page"`
	Limit      int          `json:"limit"`
	TotalCount int          `json:"total_count"`
	TotalPages int          `json:"total_pages"`
	BuiltAt    time.Time    `json:"built_at"`
}

// Slice cuts page (1-based) of size limit out of the entry.
func (e *Entry) Slice(page, limit int) *Page {
	total := len(e.Movies)
	totalPages := 0
	if limit > 0 {
		totalPages = (total + limit - 1) / limit
	}
	p := &Page{
		List:       e.Filter.List,
		Movies:     []MovieEntry{},
		Page:       page,
		Limit:      limit,
		TotalCount: e.TotalCount,
		TotalPages: totalPages,
		BuiltAt:    e.BuiltAt,
	}
	start := (page - 1) * limit
	if start >= total || limit <= 0 {
		return p
	}
	end := start + limit
	if end > total {
		end = total
	}
	p.Movies = append(p.Movies, e.Movies[start:end]...)
	return p
}
