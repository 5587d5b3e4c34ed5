package tmdb

import (
	"strings"
	"time"

	"releasewatch/internal/release"
)

// Movie is one entry of a /discover/movie page. Any field may be absent.
type Movie struct {
	ID            int64   `json:"id"`
	Title         string  `json:"title"`
	OriginalTitle string  `json:"original_title"`
	Adult         bool    `json:"adult"`
	PosterPath    string  `json:"poster_path"`
	Overview      string  `json:"overview"`
	Popularity    float64 `json:"popularity"`
	ReleaseDate   string  `json:"release_date"`
}

// MoviePage models the paginated discover response.
type MoviePage struct {
	Page         int     `json:"page"`
	Results      []Movie `json:"results"`
	TotalPages   int     `json:"total_pages"`
	TotalResults int     `json:"total_results"`
}

// ReleaseDate is one raw release date entry flattened with its country.
type ReleaseDate struct {
	Country       string
	Type          int
	Date          string
	Note          string
	Certification string
}

type releaseDatesResponse struct {
	ID      int64 `json:"id"`
	Results []struct {
		Country      string `json:"iso_3166_1"`
		ReleaseDates []struct {
			Certification string `json:"certification"`
			Note          string `json:"note"`
			ReleaseDate   string `json:"release_date"`
			Type          int    `json:"type"`
		} `json:"release_dates"`
	} `json:"results"`
}

func (r releaseDatesResponse) flatten() []ReleaseDate {
	var out []ReleaseDate
	for _, country := range r.Results {
		for _, d := range country.ReleaseDates {
			out = append(out, ReleaseDate{
				Country:       strings.ToUpper(strings.TrimSpace(country.Country)),
				Type:          d.Type,
				Date:          d.ReleaseDate,
				Note:          d.Note,
				Certification: d.Certification,
			})
		}
	}
	return out
}

// ToFacts converts raw entries into release facts, dropping entries with an
// unknown type or an unparseable date.
func ToFacts(movieID int64, dates []ReleaseDate) []release.Fact {
	facts := make([]release.Fact, 0, len(dates))
	for _, d := range dates {
		kind := release.Kind(d.Type)
		if !kind.Valid() || d.Country == "" {
			continue
		}
		day, ok := release.ParseDate(d.Date)
		if !ok {
			continue
		}
		facts = append(facts, release.Fact{
			MovieID: movieID,
			Country: d.Country,
			Kind:    kind,
			Date:    day,
		})
	}
	return facts
}

// CandidateQuery narrows /discover/movie to movies with a release of one of
// Kinds in Region between From and To.
type CandidateQuery struct {
	Region string
	Kinds  []release.Kind
	From   time.Time
	To     time.Time
	SortBy string
}
