package catalog

import (
	"time"

	"releasewatch/internal/release"
)

// Built-in list names served by the read surface.
const (
	ListRecentDigital      = "recent-digital"
	ListUpcomingTheatrical = "upcoming-theatrical"
)

type DateField string

const (
	FieldDigital    DateField = "digital"
	FieldTheatrical DateField = "theatrical"
)

type SortOrder string

const (
	SortDesc SortOrder = "desc"
	SortAsc  SortOrder = "asc"
)

// Filter selects movies whose unified Field date lies in
// [today+FromDays, today+ToDays], both ends inclusive.
type Filter struct {
	List     string         `json:"list"`
	Field    DateField      `json:"field"`
	FromDays int            `json:"from_days"`
	ToDays   int            `json:"to_days"`
	Order    SortOrder      `json:"order"`
	Kinds    []release.Kind `json:"kinds"`
}

// RecentDigital matches digital releases within the last days days, today included.
func RecentDigital(days int) Filter {
	return Filter{
		List:     ListRecentDigital,
		Field:    FieldDigital,
		FromDays: -days,
		ToDays:   0,
		Order:    SortDesc,
		Kinds:    []release.Kind{release.KindDigital},
	}
}

// UpcomingTheatrical matches wide theatrical releases from today through days ahead.
func UpcomingTheatrical(days int) Filter {
	return Filter{
		List:     ListUpcomingTheatrical,
		Field:    FieldTheatrical,
		FromDays: 0,
		ToDays:   days,
		Order:    SortAsc,
		Kinds:    []release.Kind{release.KindTheatricalLimited, release.KindTheatricalWide},
	}
}

// DefaultLists returns the built-in filters keyed by list name.
func DefaultLists(windowDays int) map[string]Filter {
	recent := RecentDigital(windowDays)
	upcoming := UpcomingTheatrical(windowDays)
	return map[string]Filter{
		recent.List:   recent,
		upcoming.List: upcoming,
	}
}

// Range returns the inclusive calendar window relative to today.
func (f Filter) Range(today time.Time) (from, to time.Time) {
	return release.AddDays(today, f.FromDays), release.AddDays(today, f.ToDays)
}

func (f Filter) dateOf(s release.Summary) *time.Time {
	switch f.Field {
	case FieldDigital:
		return s.Digital
	case FieldTheatrical:
		return s.Theatrical
	}
	return nil
}

// Match returns the filter date of s when it falls inside the window.
func (f Filter) Match(s release.Summary, today time.Time) (time.Time, bool) {
	d := f.dateOf(s)
	if d == nil {
		return time.Time{}, false
	}
	from, to := f.Range(today)
	if !release.Within(*d, from, to) {
		return time.Time{}, false
	}
	return release.Day(*d), true
}

// less orders by date in the filter's direction, then by movie ID.
func (f Filter) less(a, b MovieEntry) bool {
	if !a.sortDay.Equal(b.sortDay) {
		if f.Order == SortAsc {
			return a.sortDay.Before(b.sortDay)
		}
		return a.sortDay.After(b.sortDay)
	}
	return a.ID < b.ID
}
